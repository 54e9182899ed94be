package dto

import (
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

func copyInto(to, from interface{}) {
	if err := copier.Copy(to, from); err != nil {
		log.Error().Err(err).Msgf("DTO mapping from %T failed", from)
	}
}

func NewFeedbackResponse(f *model.Feedback) *FeedbackResponse {
	if f == nil {
		return nil
	}
	var resp FeedbackResponse
	copyInto(&resp, f)
	resp.Strengths = nonNil(resp.Strengths)
	resp.Weaknesses = nonNil(resp.Weaknesses)
	resp.Tips = nonNil(resp.Tips)
	return &resp
}

func NewSessionDetailResponse(s *model.InterviewSession) SessionDetailResponse {
	var resp SessionDetailResponse
	copyInto(&resp, s)
	resp.Turns = make([]TurnResponse, 0, len(s.Turns))
	for _, t := range s.Turns {
		resp.Turns = append(resp.Turns, TurnResponse{Seq: t.Seq, Speaker: t.Speaker, Text: t.Text, CreatedAt: t.CreatedAt})
	}
	resp.Feedback = NewFeedbackResponse(s.Feedback)
	resp.DurationSeconds = s.DurationSeconds()
	return resp
}

func NewSessionPageResponse(page *service.SessionPage) PageResponse[SessionSummaryResponse] {
	items := make([]SessionSummaryResponse, 0, len(page.Items))
	for i := range page.Items {
		s := &page.Items[i]
		var row SessionSummaryResponse
		copyInto(&row, s)
		row.DurationSeconds = s.DurationSeconds()
		row.OverallScore = nil
		if s.Feedback != nil {
			score := s.Feedback.OverallScore
			row.OverallScore = &score
		}
		items = append(items, row)
	}
	return PageResponse[SessionSummaryResponse]{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Size:  page.Size,
		Pages: page.Pages,
	}
}

func NewStartInterviewResponse(res *service.StartResult) StartInterviewResponse {
	var resp StartInterviewResponse
	copyInto(&resp, res.Session)
	resp.SessionID = res.Session.ID
	resp.FirstQuestion = res.FirstQuestion
	resp.Quota = QuotaResponse(res.Quota)
	return resp
}

func NewSubmitAnswerResponse(res *service.SubmitResult) SubmitAnswerResponse {
	return SubmitAnswerResponse{
		SessionID:            res.Session.ID,
		Status:               res.Session.Status,
		NextQuestion:         res.NextQuestion,
		IsFinalQuestion:      res.IsFinal,
		Completed:            res.Completed,
		Feedback:             NewFeedbackResponse(res.Feedback),
		TokensUsed:           res.TokensUsed,
		Progress:             ProgressResponse(res.Progress),
		TimeRemainingMinutes: res.TimeRemainingMinutes,
		TimeWarning:          res.TimeWarning,
	}
}

func NewEndInterviewResponse(res *service.EndResult) EndInterviewResponse {
	return EndInterviewResponse{
		SessionID:       res.Session.ID,
		Status:          res.Session.Status,
		DurationSeconds: res.DurationSeconds,
		AlreadyEnded:    res.AlreadyEnded,
		Feedback:        NewFeedbackResponse(res.Feedback),
	}
}

func NewFeedbackSummaryResponse(sum *service.FeedbackSummary) FeedbackSummaryResponse {
	resp := FeedbackSummaryResponse{
		TotalInterviews:  sum.TotalInterviews,
		CommonStrengths:  itemCounts(sum.CommonStrengths),
		CommonWeaknesses: itemCounts(sum.CommonWeaknesses),
		ImprovementRate:  sum.ImprovementRate,
		LatestScore:      sum.LatestScore,
	}
	if sum.AverageScores != nil {
		avg := ScoreAveragesResponse(*sum.AverageScores)
		resp.AverageScores = &avg
	}
	return resp
}

func itemCounts(items []service.ItemCount) []ItemCountResponse {
	out := make([]ItemCountResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemCountResponse(it))
	}
	return out
}

func NewFeedbackComparisonResponse(cmp *service.FeedbackComparison) FeedbackComparisonResponse {
	resp := FeedbackComparisonResponse{
		SessionsCompared:   cmp.SessionsCompared,
		Scores:             make([]FeedbackResponse, 0, len(cmp.Scores)),
		AverageImprovement: cmp.AverageImprovement,
	}
	for i := range cmp.Scores {
		resp.Scores = append(resp.Scores, *NewFeedbackResponse(&cmp.Scores[i]))
	}
	return resp
}

func NewFeedbackPageResponse(page *service.FeedbackPage) PageResponse[FeedbackResponse] {
	items := make([]FeedbackResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *NewFeedbackResponse(&page.Items[i]))
	}
	return PageResponse[FeedbackResponse]{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Size:  page.Size,
		Pages: page.Pages,
	}
}

func NewProgressTrendsResponse(tr *service.ProgressTrends) ProgressTrendsResponse {
	resp := ProgressTrendsResponse{
		Period:          tr.Period,
		DataPoints:      make([]TrendPointResponse, 0, len(tr.Points)),
		Trend:           string(tr.Trend),
		TotalInterviews: len(tr.Points),
		DateRange:       DateRangeResponse{Start: tr.Start, End: tr.End},
	}
	for _, p := range tr.Points {
		resp.DataPoints = append(resp.DataPoints, TrendPointResponse(p))
	}
	return resp
}

func categoryScores(list []service.CategoryScores) []CategoryScoresResponse {
	out := make([]CategoryScoresResponse, 0, len(list))
	for _, c := range list {
		out = append(out, newCategoryScoresResponse(c))
	}
	return out
}

func newCategoryScoresResponse(c service.CategoryScores) CategoryScoresResponse {
	return CategoryScoresResponse{
		CategoryID:     c.CategoryID,
		CategoryName:   c.CategoryName,
		InterviewCount: c.InterviewCount,
		AverageScores:  ScoreAveragesResponse(c.Averages),
		BestScore:      c.BestScore,
		WorstScore:     c.WorstScore,
	}
}

func NewScoreBreakdownResponse(list []service.CategoryScores) ScoreBreakdownResponse {
	return ScoreBreakdownResponse{Categories: categoryScores(list)}
}

func NewUserStatisticsResponse(st *service.UserStatistics) UserStatisticsResponse {
	resp := UserStatisticsResponse{
		TotalInterviews:       st.TotalInterviews,
		TotalTimeSpentMinutes: st.TotalTimeSpentMinutes,
		AverageScores:         ScoreAveragesResponse(st.AverageScores),
		CurrentStreakDays:     st.CurrentStreakDays,
		ImprovementRate:       st.ImprovementRate,
	}
	if st.MostPracticed != nil {
		top := CategoryCountResponse(*st.MostPracticed)
		resp.MostPracticed = &top
	}
	return resp
}

func NewCategoryComparisonResponse(cmp *service.CategoryComparison) CategoryComparisonResponse {
	resp := CategoryComparisonResponse{
		Categories:               categoryScores(cmp.Categories),
		TotalCategoriesPracticed: len(cmp.Categories),
	}
	if cmp.Best != nil {
		best := newCategoryScoresResponse(*cmp.Best)
		resp.BestCategory = &best
	}
	if cmp.Worst != nil {
		worst := newCategoryScoresResponse(*cmp.Worst)
		resp.WorstCategory = &worst
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
