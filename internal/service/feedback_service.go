package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/rs/zerolog/log"
)

type ScoreAverages struct {
	Overall    float64 `json:"overall"`
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence"`
	Positivity float64 `json:"positivity"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type FeedbackSummary struct {
	TotalInterviews  int            `json:"total_interviews"`
	AverageScores    *ScoreAverages `json:"average_scores"`
	CommonStrengths  []ItemCount    `json:"common_strengths"`
	CommonWeaknesses []ItemCount    `json:"common_weaknesses"`
	ImprovementRate  float64        `json:"improvement_rate"`
	LatestScore      *float64       `json:"latest_score"`
}

type FeedbackComparison struct {
	SessionsCompared   int              `json:"sessions_compared"`
	Scores             []model.Feedback `json:"score_comparison"`
	AverageImprovement float64          `json:"average_improvement"`
}

type FeedbackPage struct {
	Items []model.Feedback
	Total int64
	Page  int
	Size  int
	Pages int
}

type FeedbackService interface {
	GetBySession(ctx context.Context, userID, sessionID string) (*model.Feedback, error)
	// List pages through the user's feedback, most recently ended first.
	List(ctx context.Context, userID string, page, size int) (*FeedbackPage, error)
	Summary(ctx context.Context, userID string) (*FeedbackSummary, error)
	Compare(ctx context.Context, userID string, sessionIDs []string) (*FeedbackComparison, error)
}

type feedbackService struct {
	sessions     repository.SessionRepository
	feedback     repository.FeedbackRepository
	storeTimeout time.Duration
}

func NewFeedbackService(sessions repository.SessionRepository, feedback repository.FeedbackRepository, cfg *config.Config) FeedbackService {
	return &feedbackService{sessions: sessions, feedback: feedback, storeTimeout: cfg.Interview.StoreTimeout}
}

func (s *feedbackService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, s.storeTimeout)
}

func (s *feedbackService) GetBySession(ctx context.Context, userID, sessionID string) (*model.Feedback, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	session, err := s.sessions.FindByID(sctx, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	if session.Feedback == nil {
		return nil, ErrFeedbackNotReady
	}
	return session.Feedback, nil
}

func (s *feedbackService) List(ctx context.Context, userID string, page, size int) (*FeedbackPage, error) {
	page, size = pageBounds(page, size)
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	items, total, err := s.feedback.ListByUserPage(sctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return &FeedbackPage{Items: items, Total: total, Page: page, Size: size, Pages: pageCount(total, size)}, nil
}

func (s *feedbackService) Summary(ctx context.Context, userID string) (*FeedbackSummary, error) {
	sctx, cancel := s.storeCtx(ctx)
	all, err := s.feedback.ListByUser(sctx, userID)
	cancel()
	if err != nil {
		return nil, err
	}
	summary := &FeedbackSummary{
		TotalInterviews:  len(all),
		CommonStrengths:  []ItemCount{},
		CommonWeaknesses: []ItemCount{},
	}
	if len(all) == 0 {
		return summary, nil
	}

	var avg ScoreAverages
	var strengths, weaknesses []string
	for _, f := range all {
		avg.Overall += f.OverallScore
		avg.Relevance += f.RelevanceScore
		avg.Confidence += f.ConfidenceScore
		avg.Positivity += f.PositivityScore
		strengths = append(strengths, f.Strengths...)
		weaknesses = append(weaknesses, f.Weaknesses...)
	}
	n := float64(len(all))
	summary.AverageScores = &ScoreAverages{
		Overall:    round1(avg.Overall / n),
		Relevance:  round1(avg.Relevance / n),
		Confidence: round1(avg.Confidence / n),
		Positivity: round1(avg.Positivity / n),
	}
	summary.CommonStrengths = mostCommon(strengths, 5)
	summary.CommonWeaknesses = mostCommon(weaknesses, 5)
	summary.ImprovementRate = improvementRate(all)
	latest := round1(all[0].OverallScore)
	summary.LatestScore = &latest

	log.Info().Str("userID", userID).Int("interviews", len(all)).Msg("Generated feedback summary")
	return summary, nil
}

func (s *feedbackService) Compare(ctx context.Context, userID string, sessionIDs []string) (*FeedbackComparison, error) {
	if len(sessionIDs) < 2 {
		return nil, ErrNotEnoughFeedback
	}
	var list []model.Feedback
	for _, id := range sessionIDs {
		f, err := s.GetBySession(ctx, userID, id)
		switch {
		case err == nil:
			list = append(list, *f)
		case errors.Is(err, ErrFeedbackNotReady), errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrForbidden):
			log.Debug().Err(err).Str("sessionID", id).Msg("Compare: skipping session")
			continue
		default:
			return nil, err
		}
	}
	if len(list) < 2 {
		return nil, ErrNotEnoughFeedback
	}
	return &FeedbackComparison{
		SessionsCompared:   len(list),
		Scores:             list,
		AverageImprovement: improvementBetween(list),
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// mostCommon ranks items by frequency; ties keep first-seen order.
func mostCommon(items []string, limit int) []ItemCount {
	counts := map[string]int{}
	var order []string
	for _, it := range items {
		if _, seen := counts[it]; !seen {
			order = append(order, it)
		}
		counts[it]++
	}
	out := make([]ItemCount, 0, len(order))
	for _, it := range order {
		out = append(out, ItemCount{Item: it, Count: counts[it]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// improvementRate compares the mean overall score of the most recent
// interviews with the oldest ones. list is newest first.
func improvementRate(list []model.Feedback) float64 {
	sample := len(list) / 2
	if sample > 3 {
		sample = 3
	}
	if sample == 0 {
		return 0
	}
	mean := func(fs []model.Feedback) float64 {
		sum := 0.0
		for _, f := range fs {
			sum += f.OverallScore
		}
		return sum / float64(len(fs))
	}
	recent := mean(list[:sample])
	oldest := mean(list[len(list)-sample:])
	if oldest == 0 {
		return 0
	}
	return round1((recent - oldest) / oldest * 100)
}

// improvementBetween averages the percentage change between consecutive
// entries, each compared with the one after it.
func improvementBetween(list []model.Feedback) float64 {
	var changes []float64
	for i := 0; i+1 < len(list); i++ {
		prev := list[i+1].OverallScore
		if prev > 0 {
			changes = append(changes, (list[i].OverallScore-prev)/prev*100)
		}
	}
	if len(changes) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range changes {
		sum += c
	}
	return round1(sum / float64(len(changes)))
}
