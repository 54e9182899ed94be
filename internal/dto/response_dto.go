package dto

import (
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/model"
)

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type QuotaResponse struct {
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

type ProgressResponse struct {
	QuestionsAsked int `json:"questions_asked"`
	TotalQuestions int `json:"total_questions"`
	Percentage     int `json:"percentage"`
}

type TurnResponse struct {
	Seq       int           `json:"seq"`
	Speaker   model.Speaker `json:"speaker"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"timestamp"`
}

type FeedbackResponse struct {
	SessionID         string    `json:"session_id"`
	OverallScore      float64   `json:"overall_score"`
	RelevanceScore    float64   `json:"relevance_score"`
	ConfidenceScore   float64   `json:"confidence_score"`
	PositivityScore   float64   `json:"positivity_score"`
	Strengths         []string  `json:"strengths"`
	Weaknesses        []string  `json:"weaknesses"`
	Tips              []string  `json:"actionable_tips"`
	Summary           string    `json:"summary,omitempty"`
	FillerWordCount   int       `json:"filler_word_count"`
	AvgResponseLength int       `json:"avg_response_length"`
	CreatedAt         time.Time `json:"created_at"`
}

// SessionSummaryResponse is one row of the session listing.
type SessionSummaryResponse struct {
	ID                  string              `json:"session_id"`
	CategoryID          string              `json:"category_id"`
	Difficulty          model.Difficulty    `json:"difficulty"`
	Status              model.SessionStatus `json:"status"`
	TargetQuestionCount int                 `json:"target_question_count"`
	StartedAt           time.Time           `json:"started_at"`
	EndedAt             *time.Time          `json:"ended_at,omitempty"`
	DurationSeconds     int                 `json:"duration_seconds"`
	OverallScore        *float64            `json:"overall_score,omitempty"`
}

type SessionDetailResponse struct {
	ID                  string              `json:"session_id"`
	CategoryID          string              `json:"category_id"`
	Difficulty          model.Difficulty    `json:"difficulty"`
	Status              model.SessionStatus `json:"status"`
	TargetQuestionCount int                 `json:"target_question_count"`
	StartedAt           time.Time           `json:"started_at"`
	LastActivityAt      time.Time           `json:"last_activity_at"`
	EndedAt             *time.Time          `json:"ended_at,omitempty"`
	DurationSeconds     int                 `json:"duration_seconds"`
	TotalTokensUsed     int                 `json:"total_tokens_used"`
	ModelUsed           string              `json:"model_used,omitempty"`
	Turns               []TurnResponse      `json:"transcript"`
	Feedback            *FeedbackResponse   `json:"feedback,omitempty"`
}

type StartInterviewResponse struct {
	SessionID           string              `json:"session_id"`
	Status              model.SessionStatus `json:"status"`
	Difficulty          model.Difficulty    `json:"difficulty"`
	TargetQuestionCount int                 `json:"target_question_count"`
	FirstQuestion       string              `json:"first_question"`
	StartedAt           time.Time           `json:"started_at"`
	Quota               QuotaResponse       `json:"quota"`
}

type SubmitAnswerResponse struct {
	SessionID            string              `json:"session_id"`
	Status               model.SessionStatus `json:"status"`
	NextQuestion         string              `json:"next_question,omitempty"`
	IsFinalQuestion      bool                `json:"is_final_question"`
	Completed            bool                `json:"completed"`
	Feedback             *FeedbackResponse   `json:"feedback,omitempty"`
	TokensUsed           int                 `json:"tokens_used"`
	Progress             ProgressResponse    `json:"progress"`
	TimeRemainingMinutes int                 `json:"time_remaining_minutes"`
	TimeWarning          string              `json:"time_warning,omitempty"`
}

type EndInterviewResponse struct {
	SessionID       string              `json:"session_id"`
	Status          model.SessionStatus `json:"status"`
	DurationSeconds int                 `json:"duration_seconds"`
	AlreadyEnded    bool                `json:"already_ended"`
	Feedback        *FeedbackResponse   `json:"feedback"`
}

type PageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Pages int   `json:"pages"`
}

type ItemCountResponse struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type ScoreAveragesResponse struct {
	Overall    float64 `json:"overall"`
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence"`
	Positivity float64 `json:"positivity"`
}

type FeedbackSummaryResponse struct {
	TotalInterviews  int                    `json:"total_interviews"`
	AverageScores    *ScoreAveragesResponse `json:"average_scores"`
	CommonStrengths  []ItemCountResponse    `json:"common_strengths"`
	CommonWeaknesses []ItemCountResponse    `json:"common_weaknesses"`
	ImprovementRate  float64                `json:"improvement_rate"`
	LatestScore      *float64               `json:"latest_score"`
}

type FeedbackComparisonResponse struct {
	SessionsCompared   int                `json:"sessions_compared"`
	Scores             []FeedbackResponse `json:"score_comparison"`
	AverageImprovement float64            `json:"average_improvement"`
}

type TrendPointResponse struct {
	SessionID  string    `json:"session_id"`
	Date       time.Time `json:"date"`
	Overall    float64   `json:"overall_score"`
	Relevance  float64   `json:"relevance_score"`
	Confidence float64   `json:"confidence_score"`
	Positivity float64   `json:"positivity_score"`
}

type DateRangeResponse struct {
	Start *time.Time `json:"start"`
	End   time.Time  `json:"end"`
}

type ProgressTrendsResponse struct {
	Period          string               `json:"period"`
	DataPoints      []TrendPointResponse `json:"data_points"`
	Trend           string               `json:"trend"`
	TotalInterviews int                  `json:"total_interviews"`
	DateRange       DateRangeResponse    `json:"date_range"`
}

type CategoryScoresResponse struct {
	CategoryID     string                `json:"category_id"`
	CategoryName   string                `json:"category_name"`
	InterviewCount int                   `json:"interview_count"`
	AverageScores  ScoreAveragesResponse `json:"average_scores"`
	BestScore      float64               `json:"best_score"`
	WorstScore     float64               `json:"worst_score"`
}

type ScoreBreakdownResponse struct {
	Categories []CategoryScoresResponse `json:"categories"`
}

type CategoryCountResponse struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"name"`
	Count        int    `json:"count"`
}

type UserStatisticsResponse struct {
	TotalInterviews       int                    `json:"total_interviews"`
	TotalTimeSpentMinutes int                    `json:"total_time_spent_minutes"`
	AverageScores         ScoreAveragesResponse  `json:"average_scores"`
	MostPracticed         *CategoryCountResponse `json:"most_practiced_category"`
	CurrentStreakDays     int                    `json:"current_streak_days"`
	ImprovementRate       float64                `json:"improvement_rate"`
}

type CategoryComparisonResponse struct {
	Categories               []CategoryScoresResponse `json:"categories"`
	BestCategory             *CategoryScoresResponse  `json:"best_category"`
	WorstCategory            *CategoryScoresResponse  `json:"worst_category"`
	TotalCategoriesPracticed int                      `json:"total_categories_practiced"`
}
