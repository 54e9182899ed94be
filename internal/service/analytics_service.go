package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/rs/zerolog/log"
)

var ErrInvalidPeriod = errors.New("period must be 7d, 30d, 90d or all")

type Trend string

const (
	TrendNoData       Trend = "no_data"
	TrendInsufficient Trend = "insufficient_data"
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
)

// trendThreshold is the change in mean overall score, in points, between the
// older and newer half of a period that counts as a trend.
const trendThreshold = 5.0

const unknownCategory = "unknown"

var periodDays = map[string]int{"7d": 7, "30d": 30, "90d": 90, "all": 0}

type TrendPoint struct {
	SessionID  string
	Date       time.Time
	Overall    float64
	Relevance  float64
	Confidence float64
	Positivity float64
}

type ProgressTrends struct {
	Period string
	Points []TrendPoint
	Trend  Trend
	// Start is nil for the all-time period.
	Start *time.Time
	End   time.Time
}

type CategoryScores struct {
	CategoryID     string
	CategoryName   string
	InterviewCount int
	Averages       ScoreAverages
	BestScore      float64
	WorstScore     float64
}

type CategoryCount struct {
	CategoryID   string
	CategoryName string
	Count        int
}

type UserStatistics struct {
	TotalInterviews       int
	TotalTimeSpentMinutes int
	AverageScores         ScoreAverages
	MostPracticed         *CategoryCount
	CurrentStreakDays     int
	ImprovementRate       float64
}

type CategoryComparison struct {
	// Categories is sorted by average overall score, best first.
	Categories []CategoryScores
	Best       *CategoryScores
	Worst      *CategoryScores
}

// AnalyticsService reports on a user's completed interviews over time and
// across job categories.
type AnalyticsService interface {
	ProgressTrends(ctx context.Context, userID, period string) (*ProgressTrends, error)
	// ScoreBreakdown groups scores by category; an empty categoryID means all.
	ScoreBreakdown(ctx context.Context, userID, categoryID string) ([]CategoryScores, error)
	Statistics(ctx context.Context, userID string) (*UserStatistics, error)
	CategoryComparison(ctx context.Context, userID string) (*CategoryComparison, error)
}

type analyticsService struct {
	sessions     repository.SessionRepository
	categories   repository.CategoryRepository
	storeTimeout time.Duration
	now          func() time.Time
}

func NewAnalyticsService(sessions repository.SessionRepository, categories repository.CategoryRepository, cfg *config.Config) AnalyticsService {
	return newAnalyticsService(sessions, categories, cfg, time.Now)
}

func newAnalyticsService(sessions repository.SessionRepository, categories repository.CategoryRepository, cfg *config.Config, now func() time.Time) *analyticsService {
	return &analyticsService{
		sessions:     sessions,
		categories:   categories,
		storeTimeout: cfg.Interview.StoreTimeout,
		now:          func() time.Time { return now().UTC() },
	}
}

func (s *analyticsService) completed(ctx context.Context, userID string, since time.Time) ([]model.InterviewSession, error) {
	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.sessions.ListCompleted(sctx, userID, since)
}

func (s *analyticsService) categoryNames(ctx context.Context, ids []string) map[string]string {
	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	names := make(map[string]string, len(ids))
	categories, err := s.categories.FindByIDs(sctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("Category lookup failed, reporting categories as unknown")
		return names
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

func (s *analyticsService) ProgressTrends(ctx context.Context, userID, period string) (*ProgressTrends, error) {
	if period == "" {
		period = "30d"
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, ErrInvalidPeriod
	}

	end := s.now()
	result := &ProgressTrends{Period: period, Points: []TrendPoint{}, End: end}
	var since time.Time
	if days > 0 {
		since = end.AddDate(0, 0, -days)
		result.Start = &since
	}

	sessions, err := s.completed(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		if session.Feedback == nil || session.EndedAt == nil {
			continue
		}
		f := session.Feedback
		result.Points = append(result.Points, TrendPoint{
			SessionID:  session.ID,
			Date:       *session.EndedAt,
			Overall:    f.OverallScore,
			Relevance:  f.RelevanceScore,
			Confidence: f.ConfidenceScore,
			Positivity: f.PositivityScore,
		})
	}
	result.Trend = trendOf(result.Points)

	log.Info().Str("userID", userID).Str("period", period).Int("points", len(result.Points)).Msg("Generated progress trends")
	return result, nil
}

// trendOf compares the mean overall score of the older half of points with
// the newer half. points are oldest first.
func trendOf(points []TrendPoint) Trend {
	switch len(points) {
	case 0:
		return TrendNoData
	case 1:
		return TrendInsufficient
	}
	mid := len(points) / 2
	mean := func(ps []TrendPoint) float64 {
		sum := 0.0
		for _, p := range ps {
			sum += p.Overall
		}
		return sum / float64(len(ps))
	}
	diff := mean(points[mid:]) - mean(points[:mid])
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	}
	return TrendStable
}

func (s *analyticsService) ScoreBreakdown(ctx context.Context, userID, categoryID string) ([]CategoryScores, error) {
	sessions, err := s.completed(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum         ScoreAverages
		n           int
		best, worst float64
	}
	byCategory := map[string]*acc{}
	var order []string
	for _, session := range sessions {
		f := session.Feedback
		if f == nil || (categoryID != "" && session.CategoryID != categoryID) {
			continue
		}
		a, ok := byCategory[session.CategoryID]
		if !ok {
			a = &acc{best: f.OverallScore, worst: f.OverallScore}
			byCategory[session.CategoryID] = a
			order = append(order, session.CategoryID)
		}
		a.n++
		a.sum.Overall += f.OverallScore
		a.sum.Relevance += f.RelevanceScore
		a.sum.Confidence += f.ConfidenceScore
		a.sum.Positivity += f.PositivityScore
		a.best = max(a.best, f.OverallScore)
		a.worst = min(a.worst, f.OverallScore)
	}

	names := s.categoryNames(ctx, order)
	out := make([]CategoryScores, 0, len(order))
	for _, id := range order {
		a := byCategory[id]
		n := float64(a.n)
		name, ok := names[id]
		if !ok {
			name = unknownCategory
		}
		out = append(out, CategoryScores{
			CategoryID:     id,
			CategoryName:   name,
			InterviewCount: a.n,
			Averages: ScoreAverages{
				Overall:    round1(a.sum.Overall / n),
				Relevance:  round1(a.sum.Relevance / n),
				Confidence: round1(a.sum.Confidence / n),
				Positivity: round1(a.sum.Positivity / n),
			},
			BestScore:  round1(a.best),
			WorstScore: round1(a.worst),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Averages.Overall > out[j].Averages.Overall })
	return out, nil
}

func (s *analyticsService) Statistics(ctx context.Context, userID string) (*UserStatistics, error) {
	sessions, err := s.completed(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	stats := &UserStatistics{TotalInterviews: len(sessions)}
	if len(sessions) == 0 {
		return stats, nil
	}

	var seconds int
	var sum ScoreAverages
	// newest first, the order improvementRate expects
	var feedback []model.Feedback
	counts := map[string]int{}
	var order []string
	for i := len(sessions) - 1; i >= 0; i-- {
		session := sessions[i]
		seconds += session.DurationSeconds()
		if _, seen := counts[session.CategoryID]; !seen {
			order = append(order, session.CategoryID)
		}
		counts[session.CategoryID]++
		if f := session.Feedback; f != nil {
			feedback = append(feedback, *f)
			sum.Overall += f.OverallScore
			sum.Relevance += f.RelevanceScore
			sum.Confidence += f.ConfidenceScore
			sum.Positivity += f.PositivityScore
		}
	}
	stats.TotalTimeSpentMinutes = seconds / 60
	if n := float64(len(feedback)); n > 0 {
		stats.AverageScores = ScoreAverages{
			Overall:    round1(sum.Overall / n),
			Relevance:  round1(sum.Relevance / n),
			Confidence: round1(sum.Confidence / n),
			Positivity: round1(sum.Positivity / n),
		}
	}
	stats.ImprovementRate = improvementRate(feedback)
	stats.CurrentStreakDays = streakDays(sessions, s.now())

	// Ties go to the category practised most recently.
	top := order[0]
	for _, id := range order[1:] {
		if counts[id] > counts[top] {
			top = id
		}
	}
	name, ok := s.categoryNames(ctx, []string{top})[top]
	if !ok {
		name = unknownCategory
	}
	stats.MostPracticed = &CategoryCount{CategoryID: top, CategoryName: name, Count: counts[top]}

	log.Info().Str("userID", userID).Int("interviews", stats.TotalInterviews).Int("streak", stats.CurrentStreakDays).Msg("Generated user statistics")
	return stats, nil
}

// streakDays counts consecutive UTC days with a completed interview, ending
// today or yesterday. An older last interview breaks the streak.
func streakDays(sessions []model.InterviewSession, now time.Time) int {
	days := map[time.Time]bool{}
	for _, session := range sessions {
		if session.EndedAt != nil {
			days[truncateDay(*session.EndedAt)] = true
		}
	}
	if len(days) == 0 {
		return 0
	}

	day := truncateDay(now)
	if !days[day] {
		day = day.AddDate(0, 0, -1)
		if !days[day] {
			return 0
		}
	}
	streak := 0
	for days[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *analyticsService) CategoryComparison(ctx context.Context, userID string) (*CategoryComparison, error) {
	categories, err := s.ScoreBreakdown(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	cmp := &CategoryComparison{Categories: categories}
	if len(categories) > 0 {
		cmp.Best = &categories[0]
		cmp.Worst = &categories[len(categories)-1]
	}
	return cmp, nil
}
