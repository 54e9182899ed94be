package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/lock"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/quota"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/Jobt25/First-jobt-repo/internal/testhelpers"
	"gorm.io/gorm"
)

const rubricJSON = `{"relevance_score": 80, "confidence_score": 60, "positivity_score": 70,
"strengths": ["Clear structure"], "weaknesses": ["Few metrics"],
"summary": "Solid answers.", "actionable_tips": ["Quantify impact"]}`

type reply func(req llm.Request) (*llm.Completion, error)

func say(s string) reply {
	return func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: s, TokensUsed: 10, Model: "fake-model"}, nil
	}
}

func fail(kind llm.ErrorKind) reply {
	return func(llm.Request) (*llm.Completion, error) {
		return nil, &llm.ProviderError{Provider: "fake", Kind: kind, Message: string(kind)}
	}
}

// fakeProvider plays queued replies in order, then falls back to a
// numbered question or a fixed rubric.
type fakeProvider struct {
	mu       sync.Mutex
	queue    []reply
	requests []llm.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Push(replies ...reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, replies...)
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) Last() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	n := len(p.requests)
	var next reply
	if len(p.queue) > 0 {
		next, p.queue = p.queue[0], p.queue[1:]
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if next != nil {
		return next(req)
	}
	if req.JSON {
		return say(rubricJSON)(req)
	}
	return say(fmt.Sprintf("Question %d: what did you learn?", n))(req)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Interview.BackoffInitial = time.Millisecond
	cfg.Interview.BackoffMax = 2 * time.Millisecond
	cfg.Interview.ProviderTimeout = 2 * time.Second
	return cfg
}

type harness struct {
	db       *gorm.DB
	cfg      *config.Config
	svc      *interviewService
	provider *fakeProvider
	clock    *fakeClock
	sessions repository.SessionRepository
	account  *model.Account
	category *model.JobCategory
}

func newHarness(t *testing.T, plan model.Plan) *harness {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	cfg := testConfig()
	provider := &fakeProvider{}
	clock := newFakeClock()

	sessions := repository.NewSessionRepository(db)
	accounts := repository.NewAccountRepository(db)
	categories := repository.NewCategoryRepository(db)
	gate := quota.NewSQLGate(repository.NewUsageRepository(db), quota.NewPlanLimitResolver(accounts, cfg), clock.Now)

	svc := newInterviewService(
		sessions, accounts, categories, gate,
		NewQuestionGenerator(provider, cfg),
		NewFeedbackEngine(NewLLMRubric(provider, cfg), cfg),
		lock.NewMemoryLocker(),
		cfg,
		clock.Now,
	)

	return &harness{
		db:       db,
		cfg:      cfg,
		svc:      svc,
		provider: provider,
		clock:    clock,
		sessions: sessions,
		account:  testhelpers.SeedAccount(t, db, plan),
		category: testhelpers.SeedCategory(t, db, "Backend Engineer"),
	}
}

func (h *harness) start(t *testing.T, difficulty model.Difficulty) *StartResult {
	t.Helper()
	res, err := h.svc.Start(context.Background(), StartInput{
		UserID:     h.account.ID,
		CategoryID: h.category.ID,
		Difficulty: difficulty,
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return res
}

func (h *harness) reload(t *testing.T, id string) *model.InterviewSession {
	t.Helper()
	session, err := h.sessions.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	return session
}
