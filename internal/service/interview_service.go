package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/lock"
	"github.com/Jobt25/First-jobt-repo/internal/metrics"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/quota"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type StartInput struct {
	UserID     string
	CategoryID string
	Difficulty model.Difficulty
}

type StartResult struct {
	Session       *model.InterviewSession
	FirstQuestion string
	Quota         quota.Reservation
	// UsedFallback is set when the provider could not produce the opening
	// question and the canned one was used.
	UsedFallback bool
}

type Progress struct {
	QuestionsAsked int `json:"questions_asked"`
	TotalQuestions int `json:"total_questions"`
	Percentage     int `json:"percentage"`
}

type SubmitResult struct {
	Session              *model.InterviewSession
	NextQuestion         string
	IsFinal              bool
	Completed            bool
	Feedback             *model.Feedback
	TokensUsed           int
	Progress             Progress
	TimeRemainingMinutes int
	TimeWarning          string
}

type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndAbandoned EndReason = "abandoned"
)

type EndResult struct {
	Session         *model.InterviewSession
	Feedback        *model.Feedback
	DurationSeconds int
	// AlreadyEnded reports that the session was terminal before the call.
	AlreadyEnded bool
}

type ListQuery struct {
	Page   int
	Size   int
	Status model.SessionStatus
}

type SessionPage struct {
	Items []model.InterviewSession
	Total int64
	Page  int
	Size  int
	Pages int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
	idleBatchSize   = 100
	idleWorkers     = 4
	warnRemaining   = 5 * time.Minute
)

var ErrInvalidStatus = errors.New("status must be in_progress, completed, abandoned or expired")

// InterviewService owns the lifecycle of interview sessions.
type InterviewService interface {
	Start(ctx context.Context, in StartInput) (*StartResult, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, text string) (*SubmitResult, error)
	End(ctx context.Context, userID, sessionID string, reason EndReason) (*EndResult, error)
	GetSession(ctx context.Context, userID, sessionID string) (*model.InterviewSession, error)
	ListSessions(ctx context.Context, userID string, q ListQuery) (*SessionPage, error)
	// ExpireIdle marks every in-progress session idle since before
	// now-timeout as expired and returns how many it expired.
	ExpireIdle(ctx context.Context, now time.Time) (int, error)
}

type interviewService struct {
	sessions   repository.SessionRepository
	accounts   repository.AccountRepository
	categories repository.CategoryRepository
	gate       quota.Gate
	questions  QuestionGenerator
	feedback   FeedbackEngine
	locker     lock.Locker
	cfg        config.Interview
	now        func() time.Time
}

func NewInterviewService(
	sessions repository.SessionRepository,
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	gate quota.Gate,
	questions QuestionGenerator,
	feedback FeedbackEngine,
	locker lock.Locker,
	cfg *config.Config,
) InterviewService {
	return newInterviewService(sessions, accounts, categories, gate, questions, feedback, locker, cfg, time.Now)
}

func newInterviewService(
	sessions repository.SessionRepository,
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	gate quota.Gate,
	questions QuestionGenerator,
	feedback FeedbackEngine,
	locker lock.Locker,
	cfg *config.Config,
	now func() time.Time,
) *interviewService {
	return &interviewService{
		sessions:   sessions,
		accounts:   accounts,
		categories: categories,
		gate:       gate,
		questions:  questions,
		feedback:   feedback,
		locker:     locker,
		cfg:        cfg.Interview,
		now:        func() time.Time { return now().UTC() },
	}
}

// TargetQuestionCount maps a difficulty to the number of questions asked.
func TargetQuestionCount(counts map[string]int, d model.Difficulty) int {
	if n, ok := counts[string(d)]; ok && n > 0 {
		return n
	}
	return config.DefaultQuestionCounts()[string(d)]
}

func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *interviewService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withStoreTimeout(ctx, s.cfg.StoreTimeout)
}

// pageBounds applies the default and maximum page size.
func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func pageCount(total int64, size int) int {
	return int((total + int64(size) - 1) / int64(size))
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %w", ErrStaleSession, err)
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	}
	return err
}

func (s *interviewService) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	if !in.Difficulty.Valid() {
		return nil, ErrInvalidDifficulty
	}

	sctx, cancel := s.storeCtx(ctx)
	account, err := s.accounts.FindByID(sctx, in.UserID)
	if err != nil {
		cancel()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	category, err := s.categories.FindByID(sctx, in.CategoryID)
	cancel()
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !category.IsActive) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.start(ctx, in, account, category)
}

func (s *interviewService) start(ctx context.Context, in StartInput, account *model.Account, category *model.JobCategory) (*StartResult, error) {
	reservation, err := s.gate.CheckAndReserve(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			metrics.QuotaDenied()
		}
		return nil, err
	}

	target := TargetQuestionCount(s.cfg.QuestionCounts, in.Difficulty)
	qc := QuestionContext{
		Category:       category.Name,
		Difficulty:     in.Difficulty,
		Profile:        account,
		TotalQuestions: target,
	}

	result := &StartResult{Quota: reservation}
	question, err := s.questions.GenerateFirst(ctx, qc)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrInvalidResponse):
		log.Warn().Err(err).Str("userID", in.UserID).Msg("Using fallback opening question")
		question = &Question{Text: fallbackOpeningQuestion(category.Name)}
		result.UsedFallback = true
	default:
		return nil, err
	}

	now := s.now()
	session := &model.InterviewSession{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		CategoryID:          category.ID,
		Difficulty:          in.Difficulty,
		TargetQuestionCount: target,
		Status:              model.StatusInProgress,
		StartedAt:           now,
		LastActivityAt:      now,
		TotalTokensUsed:     question.TokensUsed,
		ModelUsed:           question.Model,
		Turns: []model.Turn{{
			Seq:       0,
			Speaker:   model.SpeakerInterviewer,
			Text:      question.Text,
			CreatedAt: now,
		}},
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.sessions.Create(sctx, session); err != nil {
		log.Error().Err(err).Str("userID", in.UserID).Msg("Start: failed to persist session")
		return nil, fmt.Errorf("failed to create interview session: %w", err)
	}

	metrics.SessionStarted(string(in.Difficulty))
	log.Info().Str("sessionID", session.ID).Str("userID", in.UserID).Str("difficulty", string(in.Difficulty)).
		Int("target", target).Int("tokens", question.TokensUsed).Msg("Interview session started")

	result.Session = session
	result.FirstQuestion = question.Text
	return result, nil
}

// load fetches a session and checks that userID owns it.
func (s *interviewService) load(ctx context.Context, userID, sessionID string) (*model.InterviewSession, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	session, err := s.sessions.FindByID(sctx, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

func (s *interviewService) lockSession(ctx context.Context, sessionID string) (func(), error) {
	return s.locker.Lock(ctx, "session:"+sessionID)
}

func (s *interviewService) idle(session *model.InterviewSession, now time.Time) bool {
	return session.Status == model.StatusInProgress && now.Sub(session.LastActivityAt) > s.cfg.InactivityTimeout
}

// expire moves an idle session to expired. The transcript is left as is.
func (s *interviewService) expire(ctx context.Context, session *model.InterviewSession, now time.Time) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err := s.sessions.Finish(sctx, session, repository.SessionFinish{Status: model.StatusExpired, EndedAt: now})
	if err != nil {
		return storeErr(err)
	}
	metrics.SessionEnded(string(model.StatusExpired))
	log.Info().Str("sessionID", session.ID).Time("lastActivity", session.LastActivityAt).Msg("Interview session expired")
	return nil
}

func (s *interviewService) categoryName(ctx context.Context, id string) string {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	category, err := s.categories.FindByID(sctx, id)
	if err != nil {
		log.Warn().Err(err).Str("categoryID", id).Msg("Category lookup failed, using generic role")
		return "general"
	}
	return category.Name
}

func (s *interviewService) progress(session *model.InterviewSession) Progress {
	asked := session.InterviewerTurns()
	total := session.TargetQuestionCount
	pct := 0
	if total > 0 {
		pct = asked * 100 / total
	}
	if session.Status == model.StatusCompleted || pct > 100 {
		pct = 100
	}
	return Progress{QuestionsAsked: asked, TotalQuestions: total, Percentage: pct}
}

// timeRemaining is the advisory session budget measured from the start.
func (s *interviewService) timeRemaining(session *model.InterviewSession, now time.Time) (int, string) {
	remaining := s.cfg.InactivityTimeout - now.Sub(session.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(remaining / time.Minute)
	if remaining < warnRemaining {
		return minutes, fmt.Sprintf("Only %d minutes remaining in this session", minutes)
	}
	return minutes, ""
}

func (s *interviewService) SubmitAnswer(ctx context.Context, userID, sessionID, text string) (*SubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyAnswer
	}

	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrInvalidTransition
	}
	now := s.now()
	if s.idle(session, now) {
		if err := s.expire(ctx, session, now); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	answer := model.Turn{Speaker: model.SpeakerCandidate, Text: text, CreatedAt: now}
	pending := make([]model.Turn, 0, len(session.Turns)+1)
	pending = append(pending, session.Turns...)
	pending = append(pending, answer)
	category := s.categoryName(ctx, session.CategoryID)

	if session.CandidateTurns()+1 >= session.TargetQuestionCount {
		return s.complete(ctx, session, pending, answer, category)
	}

	question, err := s.questions.GenerateNext(ctx, pending, QuestionContext{
		Category:       category,
		Difficulty:     session.Difficulty,
		TotalQuestions: session.TargetQuestionCount,
	})
	if err != nil {
		log.Warn().Err(err).Str("sessionID", sessionID).Msg("SubmitAnswer: next question failed, transcript unchanged")
		return nil, err
	}

	at := s.now()
	asked := model.Turn{Speaker: model.SpeakerInterviewer, Text: question.Text, CreatedAt: at}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.sessions.AppendTurns(sctx, session, []model.Turn{answer, asked}, question.TokensUsed, at); err != nil {
		return nil, storeErr(err)
	}

	minutes, warning := s.timeRemaining(session, at)
	return &SubmitResult{
		Session:              session,
		NextQuestion:         question.Text,
		IsFinal:              question.IsFinal,
		TokensUsed:           question.TokensUsed,
		Progress:             s.progress(session),
		TimeRemainingMinutes: minutes,
		TimeWarning:          warning,
	}, nil
}

// complete grades the transcript including the final answer, then writes
// the answer, the feedback and the completed status together.
func (s *interviewService) complete(ctx context.Context, session *model.InterviewSession, pending []model.Turn, answer model.Turn, category string) (*SubmitResult, error) {
	feedback, tokens, err := s.feedback.Generate(ctx, pending, FeedbackContext{Category: category, Difficulty: session.Difficulty})
	if err != nil {
		log.Warn().Err(err).Str("sessionID", session.ID).Msg("Feedback generation failed, transcript unchanged")
		return nil, err
	}

	at := s.now()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.sessions.Finish(sctx, session, repository.SessionFinish{
		Status:   model.StatusCompleted,
		EndedAt:  at,
		Turns:    []model.Turn{answer},
		Feedback: feedback,
		Tokens:   tokens,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	metrics.SessionEnded(string(model.StatusCompleted))
	log.Info().Str("sessionID", session.ID).Float64("overall", feedback.OverallScore).Msg("Interview session completed")

	return &SubmitResult{
		Session:    session,
		IsFinal:    true,
		Completed:  true,
		Feedback:   feedback,
		TokensUsed: tokens,
		Progress:   s.progress(session),
	}, nil
}

func (s *interviewService) End(ctx context.Context, userID, sessionID string, reason EndReason) (*EndResult, error) {
	if reason == "" {
		reason = EndCompleted
	}
	if reason != EndCompleted && reason != EndAbandoned {
		return nil, ErrInvalidEndReason
	}

	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return endResult(session, true), nil
	}

	now := s.now()
	if s.idle(session, now) {
		if err := s.expire(ctx, session, now); err != nil {
			return nil, err
		}
		return endResult(session, false), nil
	}

	finish := repository.SessionFinish{Status: model.StatusAbandoned, EndedAt: now}
	if reason == EndCompleted && session.CandidateTurns() > 0 {
		category := s.categoryName(ctx, session.CategoryID)
		feedback, tokens, err := s.feedback.Generate(ctx, session.Turns, FeedbackContext{Category: category, Difficulty: session.Difficulty})
		if err != nil {
			return nil, err
		}
		finish = repository.SessionFinish{
			Status:   model.StatusCompleted,
			EndedAt:  s.now(),
			Feedback: feedback,
			Tokens:   tokens,
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.sessions.Finish(sctx, session, finish); err != nil {
		return nil, storeErr(err)
	}
	metrics.SessionEnded(string(finish.Status))
	log.Info().Str("sessionID", sessionID).Str("status", string(finish.Status)).Str("reason", string(reason)).Msg("Interview session ended")
	return endResult(session, false), nil
}

func endResult(session *model.InterviewSession, already bool) *EndResult {
	return &EndResult{
		Session:         session,
		Feedback:        session.Feedback,
		DurationSeconds: session.DurationSeconds(),
		AlreadyEnded:    already,
	}
}

func (s *interviewService) GetSession(ctx context.Context, userID, sessionID string) (*model.InterviewSession, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.idle(session, s.now()) {
		return session, nil
	}

	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	// Re-read under the lock; an answer may have landed in between.
	session, err = s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if now := s.now(); s.idle(session, now) {
		if err := s.expire(ctx, session, now); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *interviewService) ListSessions(ctx context.Context, userID string, q ListQuery) (*SessionPage, error) {
	switch q.Status {
	case "", model.StatusInProgress, model.StatusCompleted, model.StatusAbandoned, model.StatusExpired:
	default:
		return nil, ErrInvalidStatus
	}
	q.Page, q.Size = pageBounds(q.Page, q.Size)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	items, total, err := s.sessions.ListByUser(sctx, userID, q.Status, (q.Page-1)*q.Size, q.Size)
	if err != nil {
		return nil, err
	}
	return &SessionPage{Items: items, Total: total, Page: q.Page, Size: q.Size, Pages: pageCount(total, q.Size)}, nil
}

func (s *interviewService) ExpireIdle(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().Add(-s.cfg.InactivityTimeout)
	var expired int64

	for {
		sctx, cancel := s.storeCtx(ctx)
		batch, err := s.sessions.FindIdle(sctx, cutoff, idleBatchSize)
		cancel()
		if err != nil {
			return int(expired), err
		}
		if len(batch) == 0 {
			return int(expired), nil
		}

		before := atomic.LoadInt64(&expired)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(idleWorkers)
		for _, candidate := range batch {
			id := candidate.ID
			g.Go(func() error {
				done, err := s.expireIfIdle(gctx, id, now.UTC())
				if err != nil {
					if errors.Is(err, ErrStaleSession) {
						log.Warn().Err(err).Str("sessionID", id).Msg("Idle sweep lost a race, skipping")
						return nil
					}
					return err
				}
				if done {
					atomic.AddInt64(&expired, 1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(expired), err
		}
		if len(batch) < idleBatchSize || atomic.LoadInt64(&expired) == before {
			return int(expired), nil
		}
	}
}

func (s *interviewService) expireIfIdle(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	defer unlock()

	sctx, cancel := s.storeCtx(ctx)
	session, err := s.sessions.FindByID(sctx, sessionID)
	cancel()
	if err != nil {
		return false, storeErr(err)
	}
	if !s.idle(session, now) {
		return false, nil
	}
	return true, s.expire(ctx, session, now)
}
