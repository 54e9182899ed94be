package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/dto"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/quota"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInterviews struct {
	err        error
	lastInput  service.StartInput
	lastAnswer string
	lastReason service.EndReason
	lastQuery  service.ListQuery
}

var startedAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func session(status model.SessionStatus) *model.InterviewSession {
	return &model.InterviewSession{
		ID:                  "sess-1",
		UserID:              "user-1",
		CategoryID:          "cat-1",
		Difficulty:          model.DifficultyBeginner,
		TargetQuestionCount: 5,
		Status:              status,
		StartedAt:           startedAt,
		LastActivityAt:      startedAt,
		Turns: []model.Turn{
			{Seq: 0, Speaker: model.SpeakerInterviewer, Text: "Tell me about yourself.", CreatedAt: startedAt},
		},
	}
}

func (s *stubInterviews) Start(_ context.Context, in service.StartInput) (*service.StartResult, error) {
	s.lastInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &service.StartResult{
		Session:       session(model.StatusInProgress),
		FirstQuestion: "Tell me about yourself.",
		Quota:         quota.Reservation{Used: 1, Remaining: 4},
	}, nil
}

func (s *stubInterviews) SubmitAnswer(_ context.Context, _, _, text string) (*service.SubmitResult, error) {
	s.lastAnswer = text
	if s.err != nil {
		return nil, s.err
	}
	return &service.SubmitResult{
		Session:              session(model.StatusInProgress),
		NextQuestion:         "Why that approach?",
		TokensUsed:           12,
		Progress:             service.Progress{QuestionsAsked: 2, TotalQuestions: 5, Percentage: 40},
		TimeRemainingMinutes: 28,
	}, nil
}

func (s *stubInterviews) End(_ context.Context, _, _ string, reason service.EndReason) (*service.EndResult, error) {
	s.lastReason = reason
	if s.err != nil {
		return nil, s.err
	}
	sess := session(model.StatusCompleted)
	return &service.EndResult{
		Session:         sess,
		Feedback:        &model.Feedback{SessionID: sess.ID, OverallScore: 72.5, Strengths: []string{"clear"}},
		DurationSeconds: 300,
	}, nil
}

func (s *stubInterviews) GetSession(context.Context, string, string) (*model.InterviewSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return session(model.StatusInProgress), nil
}

func (s *stubInterviews) ListSessions(_ context.Context, _ string, q service.ListQuery) (*service.SessionPage, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	done := session(model.StatusCompleted)
	ended := startedAt.Add(10 * time.Minute)
	done.EndedAt = &ended
	done.Feedback = &model.Feedback{OverallScore: 81}
	return &service.SessionPage{Items: []model.InterviewSession{*done}, Total: 11, Page: 2, Size: 10, Pages: 2}, nil
}

func (s *stubInterviews) ExpireIdle(context.Context, time.Time) (int, error) { return 0, nil }

type stubFeedback struct {
	err      error
	ids      []string
	lastPage [2]int
}

func (s *stubFeedback) List(_ context.Context, _ string, page, size int) (*service.FeedbackPage, error) {
	s.lastPage = [2]int{page, size}
	if s.err != nil {
		return nil, s.err
	}
	return &service.FeedbackPage{
		Items: []model.Feedback{{SessionID: "sess-2", OverallScore: 72}},
		Total: 3, Page: 2, Size: 1, Pages: 3,
	}, nil
}

func (s *stubFeedback) GetBySession(context.Context, string, string) (*model.Feedback, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Feedback{SessionID: "sess-1", OverallScore: 70, Tips: []string{"use STAR"}}, nil
}

func (s *stubFeedback) Summary(context.Context, string) (*service.FeedbackSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	latest := 80.0
	return &service.FeedbackSummary{
		TotalInterviews: 3,
		AverageScores:   &service.ScoreAverages{Overall: 65},
		CommonStrengths: []service.ItemCount{{Item: "clear", Count: 2}},
		ImprovementRate: 12.5,
		LatestScore:     &latest,
	}, nil
}

func (s *stubFeedback) Compare(_ context.Context, _ string, ids []string) (*service.FeedbackComparison, error) {
	s.ids = ids
	if s.err != nil {
		return nil, s.err
	}
	return &service.FeedbackComparison{
		SessionsCompared:   2,
		Scores:             []model.Feedback{{SessionID: "a", OverallScore: 50}, {SessionID: "b", OverallScore: 60}},
		AverageImprovement: 10,
	}, nil
}

type stubAnalytics struct {
	err            error
	lastPeriod     string
	lastCategoryID string
}

var backendScores = service.CategoryScores{
	CategoryID: "cat-1", CategoryName: "Backend Engineer", InterviewCount: 2,
	Averages: service.ScoreAverages{Overall: 78.5}, BestScore: 82, WorstScore: 75,
}

func (s *stubAnalytics) ProgressTrends(_ context.Context, _, period string) (*service.ProgressTrends, error) {
	s.lastPeriod = period
	if s.err != nil {
		return nil, s.err
	}
	return &service.ProgressTrends{
		Period: "7d",
		Points: []service.TrendPoint{{SessionID: "a", Date: startedAt, Overall: 60}, {SessionID: "b", Date: startedAt.Add(time.Hour), Overall: 75}},
		Trend:  service.TrendImproving,
		End:    startedAt.Add(time.Hour),
	}, nil
}

func (s *stubAnalytics) ScoreBreakdown(_ context.Context, _, categoryID string) ([]service.CategoryScores, error) {
	s.lastCategoryID = categoryID
	if s.err != nil {
		return nil, s.err
	}
	return []service.CategoryScores{backendScores}, nil
}

func (s *stubAnalytics) Statistics(context.Context, string) (*service.UserStatistics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.UserStatistics{
		TotalInterviews:   2,
		CurrentStreakDays: 4,
		MostPracticed:     &service.CategoryCount{CategoryID: "cat-1", CategoryName: "Backend Engineer", Count: 2},
	}, nil
}

func (s *stubAnalytics) CategoryComparison(context.Context, string) (*service.CategoryComparison, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.CategoryComparison{Categories: []service.CategoryScores{backendScores}, Best: &backendScores, Worst: &backendScores}, nil
}

func newRouter(interviews *stubInterviews, feedback *stubFeedback) *gin.Engine {
	return newRouterWithAnalytics(interviews, feedback, &stubAnalytics{})
}

func newRouterWithAnalytics(interviews *stubInterviews, feedback *stubFeedback, analytics *stubAnalytics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewController(NewInterviewController(interviews), NewFeedbackController(feedback), NewAnalyticsController(analytics)).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(UserIDHeader, "user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestMissingUserHeaderIsUnauthorized(t *testing.T) {
	r := newRouter(&stubInterviews{}, &stubFeedback{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/interviews", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartInterview(t *testing.T) {
	interviews := &stubInterviews{}
	r := newRouter(interviews, &stubFeedback{})

	w := do(r, http.MethodPost, "/api/v1/interviews", `{"category_id":"cat-1","difficulty":"beginner"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[dto.StartInterviewResponse](t, w)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "Tell me about yourself.", resp.FirstQuestion)
	assert.Equal(t, model.StatusInProgress, resp.Status)
	assert.Equal(t, 5, resp.TargetQuestionCount)
	assert.Equal(t, 4, resp.Quota.Remaining)
	assert.Equal(t, service.StartInput{UserID: "user-1", CategoryID: "cat-1", Difficulty: model.DifficultyBeginner}, interviews.lastInput)
}

func TestStartInterview_MissingFields(t *testing.T) {
	r := newRouter(&stubInterviews{}, &stubFeedback{})
	w := do(r, http.MethodPost, "/api/v1/interviews", `{"difficulty":"beginner"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAnswer(t *testing.T) {
	interviews := &stubInterviews{}
	r := newRouter(interviews, &stubFeedback{})

	w := do(r, http.MethodPost, "/api/v1/interviews/sess-1/answers", `{"answer":"I led the migration."}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.SubmitAnswerResponse](t, w)
	assert.Equal(t, "Why that approach?", resp.NextQuestion)
	assert.Equal(t, 40, resp.Progress.Percentage)
	assert.Nil(t, resp.Feedback)
	assert.Equal(t, "I led the migration.", interviews.lastAnswer)
}

func TestEndInterview_DefaultsReason(t *testing.T) {
	interviews := &stubInterviews{}
	r := newRouter(interviews, &stubFeedback{})

	w := do(r, http.MethodPost, "/api/v1/interviews/sess-1/end", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.EndReason(""), interviews.lastReason)

	resp := decode[dto.EndInterviewResponse](t, w)
	assert.Equal(t, model.StatusCompleted, resp.Status)
	require.NotNil(t, resp.Feedback)
	assert.Equal(t, 72.5, resp.Feedback.OverallScore)
	assert.Equal(t, []string{"clear"}, resp.Feedback.Strengths)
	assert.Equal(t, []string{}, resp.Feedback.Tips)

	w = do(r, http.MethodPost, "/api/v1/interviews/sess-1/end", `{"reason":"abandoned"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.EndAbandoned, interviews.lastReason)
}

func TestGetSession_IncludesTranscript(t *testing.T) {
	r := newRouter(&stubInterviews{}, &stubFeedback{})

	w := do(r, http.MethodGet, "/api/v1/interviews/sess-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.SessionDetailResponse](t, w)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, model.SpeakerInterviewer, resp.Turns[0].Speaker)
	assert.Equal(t, "Tell me about yourself.", resp.Turns[0].Text)
	assert.Equal(t, 0, resp.DurationSeconds)
}

func TestListSessions(t *testing.T) {
	interviews := &stubInterviews{}
	r := newRouter(interviews, &stubFeedback{})

	w := do(r, http.MethodGet, "/api/v1/interviews?page=2&size=10&status=completed", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.ListQuery{Page: 2, Size: 10, Status: model.StatusCompleted}, interviews.lastQuery)

	resp := decode[dto.PageResponse[dto.SessionSummaryResponse]](t, w)
	assert.Equal(t, int64(11), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 600, resp.Items[0].DurationSeconds)
	require.NotNil(t, resp.Items[0].OverallScore)
	assert.Equal(t, 81.0, *resp.Items[0].OverallScore)

	w = do(r, http.MethodGet, "/api/v1/interviews?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	providerErr := &llm.ProviderError{Provider: "gemini", Kind: llm.KindRateLimited, Message: "slow down"}
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrQuotaExceeded, http.StatusTooManyRequests},
		{service.ErrSessionExpired, http.StatusRequestTimeout},
		{service.ErrStaleSession, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrInvalidDifficulty, http.StatusBadRequest},
		{service.ErrInvalidEndReason, http.StatusBadRequest},
		{service.ErrEmptyAnswer, http.StatusBadRequest},
		{service.ErrInvalidStatus, http.StatusBadRequest},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrCategoryNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: %w", service.ErrProviderUnavailable, providerErr), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", service.ErrInvalidResponse, providerErr), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newRouter(&stubInterviews{err: tc.err}, &stubFeedback{})
			w := do(r, http.MethodPost, "/api/v1/interviews/sess-1/answers", `{"answer":"hello"}`)
			assert.Equal(t, tc.want, w.Code)
			resp := decode[dto.ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	r := newRouter(&stubInterviews{err: errors.New("pq: connection refused")}, &stubFeedback{})
	w := do(r, http.MethodGet, "/api/v1/interviews/sess-1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestFeedbackRoutes(t *testing.T) {
	feedback := &stubFeedback{}
	r := newRouter(&stubInterviews{}, feedback)

	w := do(r, http.MethodGet, "/api/v1/interviews/sess-1/feedback", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"use STAR"}, decode[dto.FeedbackResponse](t, w).Tips)

	w = do(r, http.MethodGet, "/api/v1/feedback/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[dto.FeedbackSummaryResponse](t, w)
	assert.Equal(t, 3, summary.TotalInterviews)
	assert.Equal(t, 65.0, summary.AverageScores.Overall)
	assert.Equal(t, []dto.ItemCountResponse{{Item: "clear", Count: 2}}, summary.CommonStrengths)
	assert.Empty(t, summary.CommonWeaknesses)

	w = do(r, http.MethodPost, "/api/v1/feedback/compare", `{"session_ids":["a","b"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"a", "b"}, feedback.ids)
	assert.Len(t, decode[dto.FeedbackComparisonResponse](t, w).Scores, 2)

	w = do(r, http.MethodPost, "/api/v1/feedback/compare", `{"session_ids":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackNotReady(t *testing.T) {
	r := newRouter(&stubInterviews{}, &stubFeedback{err: service.ErrFeedbackNotReady})
	w := do(r, http.MethodGet, "/api/v1/interviews/sess-1/feedback", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFeedback(t *testing.T) {
	feedback := &stubFeedback{}
	r := newRouter(&stubInterviews{}, feedback)

	w := do(r, http.MethodGet, "/api/v1/feedback?page=2&size=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, [2]int{2, 1}, feedback.lastPage)
	resp := decode[dto.PageResponse[dto.FeedbackResponse]](t, w)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 3, resp.Pages)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "sess-2", resp.Items[0].SessionID)

	w = do(r, http.MethodGet, "/api/v1/feedback?size=lots", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	analytics := &stubAnalytics{}
	r := newRouterWithAnalytics(&stubInterviews{}, &stubFeedback{}, analytics)

	w := do(r, http.MethodGet, "/api/v1/analytics/progress?period=7d", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "7d", analytics.lastPeriod)
	progress := decode[dto.ProgressTrendsResponse](t, w)
	assert.Equal(t, "improving", progress.Trend)
	assert.Equal(t, 2, progress.TotalInterviews)
	assert.Nil(t, progress.DateRange.Start)

	w = do(r, http.MethodGet, "/api/v1/analytics/breakdown?category_id=cat-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cat-1", analytics.lastCategoryID)
	breakdown := decode[dto.ScoreBreakdownResponse](t, w)
	require.Len(t, breakdown.Categories, 1)
	assert.Equal(t, 78.5, breakdown.Categories[0].AverageScores.Overall)

	w = do(r, http.MethodGet, "/api/v1/analytics/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[dto.UserStatisticsResponse](t, w)
	assert.Equal(t, 4, stats.CurrentStreakDays)
	require.NotNil(t, stats.MostPracticed)
	assert.Equal(t, "Backend Engineer", stats.MostPracticed.CategoryName)

	w = do(r, http.MethodGet, "/api/v1/analytics/comparison", "")
	require.Equal(t, http.StatusOK, w.Code)
	cmp := decode[dto.CategoryComparisonResponse](t, w)
	assert.Equal(t, 1, cmp.TotalCategoriesPracticed)
	require.NotNil(t, cmp.BestCategory)
	assert.Equal(t, "cat-1", cmp.BestCategory.CategoryID)
}

func TestAnalyticsInvalidPeriod(t *testing.T) {
	r := newRouterWithAnalytics(&stubInterviews{}, &stubFeedback{}, &stubAnalytics{err: service.ErrInvalidPeriod})
	w := do(r, http.MethodGet, "/api/v1/analytics/progress?period=1y", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[dto.ErrorResponse](t, w).Message, "period")
}
