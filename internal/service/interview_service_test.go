package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetQuestionCount(t *testing.T) {
	counts := testConfig().Interview.QuestionCounts
	assert.Equal(t, 5, TargetQuestionCount(counts, model.DifficultyBeginner))
	assert.Equal(t, 7, TargetQuestionCount(counts, model.DifficultyIntermediate))
	assert.Equal(t, 10, TargetQuestionCount(counts, model.DifficultyAdvanced))
}

func TestStart_CreatesSessionWithOpeningQuestion(t *testing.T) {
	for _, d := range []model.Difficulty{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced} {
		t.Run(string(d), func(t *testing.T) {
			h := newHarness(t, model.PlanFree)
			res := h.start(t, d)

			assert.NotEmpty(t, res.FirstQuestion)
			assert.False(t, res.UsedFallback)
			assert.Equal(t, 4, res.Quota.Remaining)

			got := h.reload(t, res.Session.ID)
			assert.Equal(t, model.StatusInProgress, got.Status)
			assert.Equal(t, TargetQuestionCount(h.cfg.Interview.QuestionCounts, d), got.TargetQuestionCount)
			require.Len(t, got.Turns, 1)
			assert.Equal(t, model.SpeakerInterviewer, got.Turns[0].Speaker)
			assert.Equal(t, res.FirstQuestion, got.Turns[0].Text)
			assert.Equal(t, 10, got.TotalTokensUsed)

			req := h.provider.Last()
			assert.Contains(t, req.System, "Backend Engineer")
			assert.Contains(t, req.Messages[0].Content, "Target Role: Backend Engineer")
		})
	}
}

func TestStart_Validation(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	ctx := context.Background()

	_, err := h.svc.Start(ctx, StartInput{UserID: h.account.ID, CategoryID: h.category.ID, Difficulty: "expert"})
	assert.ErrorIs(t, err, ErrInvalidDifficulty)

	_, err = h.svc.Start(ctx, StartInput{UserID: "ghost", CategoryID: h.category.ID, Difficulty: model.DifficultyBeginner})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = h.svc.Start(ctx, StartInput{UserID: h.account.ID, CategoryID: "missing", Difficulty: model.DifficultyBeginner})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	require.NoError(t, h.db.Model(h.category).Update("is_active", false).Error)
	_, err = h.svc.Start(ctx, StartInput{UserID: h.account.ID, CategoryID: h.category.ID, Difficulty: model.DifficultyBeginner})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	assert.Equal(t, 0, h.provider.Calls())
}

func TestStart_QuotaExceededCreatesNoSession(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	for i := 0; i < 5; i++ {
		h.start(t, model.DifficultyBeginner)
	}

	_, err := h.svc.Start(context.Background(), StartInput{
		UserID: h.account.ID, CategoryID: h.category.ID, Difficulty: model.DifficultyBeginner,
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var count int64
	require.NoError(t, h.db.Model(&model.InterviewSession{}).Where("user_id = ?", h.account.ID).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestStart_ConcurrentCallsForLastReservation(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	for i := 0; i < 4; i++ {
		h.start(t, model.DifficultyBeginner)
	}

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Start(context.Background(), StartInput{
				UserID: h.account.ID, CategoryID: h.category.ID, Difficulty: model.DifficultyBeginner,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, denied := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrQuotaExceeded):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, denied)

	var used int
	require.NoError(t, h.db.Model(&model.UsageRecord{}).Where("user_id = ?", h.account.ID).Select("interviews_used").Scan(&used).Error)
	assert.Equal(t, 5, used)
}

func TestStart_FallbackQuestionWhenProviderDown(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	h.provider.Push(fail(llm.KindUnavailable), fail(llm.KindUnavailable), fail(llm.KindUnavailable))

	res := h.start(t, model.DifficultyIntermediate)
	assert.True(t, res.UsedFallback)
	assert.Contains(t, res.FirstQuestion, "Backend Engineer position")
	assert.Equal(t, 3, h.provider.Calls())
	assert.Equal(t, 4, res.Quota.Remaining)
}

func TestSubmitAnswer_TranscriptGrowsByPairs(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyIntermediate)
	ctx := context.Background()

	answers := []string{"I build payment APIs in Go.", "I led the migration to Postgres.", "We cut latency by half."}
	for i, a := range answers {
		out, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, a)
		require.NoError(t, err)
		assert.NotEmpty(t, out.NextQuestion)
		assert.False(t, out.Completed)
		assert.Equal(t, i+2, out.Progress.QuestionsAsked)
		assert.Equal(t, 7, out.Progress.TotalQuestions)

		req := h.provider.Last()
		last := req.Messages[len(req.Messages)-1]
		assert.Equal(t, llm.RoleUser, last.Role)
		assert.Contains(t, last.Content, a)
		assert.Equal(t, llm.RoleModel, req.Messages[0].Role)
		assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	}

	got := h.reload(t, res.Session.ID)
	require.Len(t, got.Turns, 2*len(answers)+1)
	for i, turn := range got.Turns {
		assert.Equal(t, i, turn.Seq)
		want := model.SpeakerInterviewer
		if i%2 == 1 {
			want = model.SpeakerCandidate
		}
		assert.Equal(t, want, turn.Speaker)
	}
	assert.Equal(t, answers[1], got.Turns[3].Text)
}

func TestSubmitAnswer_BeginnerAutoCompletesOnFifthAnswer(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	ctx := context.Background()

	var out *SubmitResult
	var err error
	for i := 1; i <= 5; i++ {
		out, err = h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "Um, I basically shipped the feature, you know.")
		require.NoError(t, err)
		if i == 4 {
			assert.True(t, out.IsFinal)
		}
		if i < 5 {
			assert.False(t, out.Completed)
		}
	}
	assert.True(t, out.Completed)
	require.NotNil(t, out.Feedback)
	assert.Equal(t, 100, out.Progress.Percentage)

	got := h.reload(t, res.Session.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.NotNil(t, got.EndedAt)
	require.Len(t, got.Turns, 10)
	assert.Equal(t, model.SpeakerCandidate, got.Turns[9].Speaker)
	require.NotNil(t, got.Feedback)
	assert.GreaterOrEqual(t, got.Feedback.OverallScore, 0.0)
	assert.LessOrEqual(t, got.Feedback.OverallScore, 100.0)
	assert.Equal(t, 70.0, got.Feedback.OverallScore)
	assert.Equal(t, 15, got.Feedback.FillerWordCount)
	assert.Equal(t, 8, got.Feedback.AvgResponseLength)

	_, err = h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "One more thing")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitAnswer_ExpiredAfterInactivity(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)

	h.clock.Advance(31 * time.Minute)
	_, err := h.svc.SubmitAnswer(context.Background(), h.account.ID, res.Session.ID, "Sorry, I stepped away.")
	assert.ErrorIs(t, err, ErrSessionExpired)

	got := h.reload(t, res.Session.ID)
	assert.Equal(t, model.StatusExpired, got.Status)
	assert.Len(t, got.Turns, 1)
	assert.Nil(t, got.Feedback)

	_, err = h.svc.SubmitAnswer(context.Background(), h.account.ID, res.Session.ID, "Hello?")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitAnswer_RateLimitedThenRetryDoesNotDuplicate(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyIntermediate)
	ctx := context.Background()
	before := h.provider.Calls()

	h.provider.Push(fail(llm.KindRateLimited), fail(llm.KindRateLimited), fail(llm.KindRateLimited))
	_, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "I design event pipelines.")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	kind, ok := llm.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, llm.KindRateLimited, kind)
	assert.Equal(t, before+3, h.provider.Calls())

	got := h.reload(t, res.Session.ID)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Len(t, got.Turns, 1)

	out, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "I design event pipelines.")
	require.NoError(t, err)
	assert.NotEmpty(t, out.NextQuestion)

	got = h.reload(t, res.Session.ID)
	require.Len(t, got.Turns, 3)
	assert.Equal(t, 1, got.CandidateTurns())
}

func TestSubmitAnswer_InvalidResponseRetriedOnce(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyIntermediate)
	ctx := context.Background()

	h.provider.Push(say("   "))
	out, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "First answer")
	require.NoError(t, err)
	assert.NotEmpty(t, out.NextQuestion)

	before := h.provider.Calls()
	h.provider.Push(say(""), say(""))
	_, err = h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "Second answer")
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, before+2, h.provider.Calls())
	assert.Len(t, h.reload(t, res.Session.ID).Turns, 3)
}

func TestSubmitAnswer_CancelledCallPersistsNothing(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyIntermediate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.provider.Push(func(llm.Request) (*llm.Completion, error) {
		cancel()
		return nil, context.Canceled
	})
	_, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "Half an answer")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h.reload(t, res.Session.ID).Turns, 1)
}

func TestSubmitAnswer_Ownership(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	ctx := context.Background()

	_, err := h.svc.SubmitAnswer(ctx, "someone-else", res.Session.ID, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.SubmitAnswer(ctx, h.account.ID, "missing", "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestSubmitAnswer_ConcurrentCallsDoNotInterleave(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyAdvanced)

	var wg sync.WaitGroup
	for _, a := range []string{"Answer A", "Answer B"} {
		wg.Add(1)
		go func(a string) {
			defer wg.Done()
			_, err := h.svc.SubmitAnswer(context.Background(), h.account.ID, res.Session.ID, a)
			assert.NoError(t, err)
		}(a)
	}
	wg.Wait()

	got := h.reload(t, res.Session.ID)
	require.Len(t, got.Turns, 5)
	for i, turn := range got.Turns {
		if i%2 == 0 {
			assert.Equal(t, model.SpeakerInterviewer, turn.Speaker)
		} else {
			assert.Equal(t, model.SpeakerCandidate, turn.Speaker)
		}
	}
}

func TestEnd_IsIdempotent(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyIntermediate)
	ctx := context.Background()

	for _, a := range []string{"I build APIs.", "Mostly in Go."} {
		_, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, a)
		require.NoError(t, err)
	}

	first, err := h.svc.End(ctx, h.account.ID, res.Session.ID, EndCompleted)
	require.NoError(t, err)
	require.NotNil(t, first.Feedback)
	assert.False(t, first.AlreadyEnded)
	assert.Equal(t, model.StatusCompleted, first.Session.Status)
	calls := h.provider.Calls()

	second, err := h.svc.End(ctx, h.account.ID, res.Session.ID, EndCompleted)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEnded)
	require.NotNil(t, second.Feedback)
	assert.Equal(t, first.Feedback.ID, second.Feedback.ID)
	assert.Equal(t, first.Feedback.OverallScore, second.Feedback.OverallScore)
	assert.Equal(t, calls, h.provider.Calls())

	var count int64
	require.NoError(t, h.db.Model(&model.Feedback{}).Where("session_id = ?", res.Session.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnd_Abandoned(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	ctx := context.Background()
	_, err := h.svc.SubmitAnswer(ctx, h.account.ID, res.Session.ID, "Something")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	out, err := h.svc.End(ctx, h.account.ID, res.Session.ID, EndAbandoned)
	require.NoError(t, err)
	assert.Nil(t, out.Feedback)
	assert.Equal(t, model.StatusAbandoned, out.Session.Status)
	assert.Equal(t, 120, out.DurationSeconds)

	got := h.reload(t, res.Session.ID)
	assert.Equal(t, model.StatusAbandoned, got.Status)
	assert.Nil(t, got.Feedback)
}

func TestEnd_CompletedWithoutAnswersIsAbandoned(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	calls := h.provider.Calls()

	out, err := h.svc.End(context.Background(), h.account.ID, res.Session.ID, EndCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbandoned, out.Session.Status)
	assert.Nil(t, out.Feedback)
	assert.Equal(t, calls, h.provider.Calls())
}

func TestEnd_IdleSessionExpires(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)

	h.clock.Advance(45 * time.Minute)
	out, err := h.svc.End(context.Background(), h.account.ID, res.Session.ID, EndCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, out.Session.Status)
	assert.Nil(t, out.Feedback)
}

func TestEnd_RejectsUnknownReason(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	_, err := h.svc.End(context.Background(), h.account.ID, res.Session.ID, "paused")
	assert.ErrorIs(t, err, ErrInvalidEndReason)
}

func TestGetSession_AppliesLazyExpiry(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	res := h.start(t, model.DifficultyBeginner)
	ctx := context.Background()

	got, err := h.svc.GetSession(ctx, h.account.ID, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	h.clock.Advance(31 * time.Minute)
	got, err = h.svc.GetSession(ctx, h.account.ID, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
	assert.Equal(t, model.StatusExpired, h.reload(t, res.Session.ID).Status)

	_, err = h.svc.GetSession(ctx, "intruder", res.Session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListSessions_PaginatesNewestFirst(t *testing.T) {
	h := newHarness(t, model.PlanStarter)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, h.start(t, model.DifficultyBeginner).Session.ID)
		h.clock.Advance(time.Minute)
	}
	ctx := context.Background()

	page, err := h.svc.ListSessions(ctx, h.account.ID, ListQuery{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)

	page, err = h.svc.ListSessions(ctx, h.account.ID, ListQuery{Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)

	page, err = h.svc.ListSessions(ctx, h.account.ID, ListQuery{Status: model.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 10, page.Size)

	_, err = h.svc.ListSessions(ctx, h.account.ID, ListQuery{Status: "paused"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestExpireIdle_OnlyTouchesIdleSessions(t *testing.T) {
	h := newHarness(t, model.PlanFree)
	idle := h.start(t, model.DifficultyBeginner)
	active := h.start(t, model.DifficultyBeginner)
	ctx := context.Background()

	h.clock.Advance(20 * time.Minute)
	_, err := h.svc.SubmitAnswer(ctx, h.account.ID, active.Session.ID, "Still here")
	require.NoError(t, err)
	h.clock.Advance(15 * time.Minute)

	n, err := h.svc.ExpireIdle(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusExpired, h.reload(t, idle.Session.ID).Status)
	assert.Equal(t, model.StatusInProgress, h.reload(t, active.Session.ID).Status)

	n, err = h.svc.ExpireIdle(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
