package controller

import (
	"net/http"

	"github.com/Jobt25/First-jobt-repo/internal/dto"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsController(svc service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analyticsService: svc}
}

// Progress godoc
// @Summary Score trend over a period
// @Description Data points come from completed interviews with feedback, oldest first.
// @Tags Analytics
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param period query string false "7d, 30d, 90d or all" default(30d)
// @Success 200 {object} dto.ProgressTrendsResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown period"
// @Router /analytics/progress [get]
func (c *AnalyticsController) Progress(ctx *gin.Context) {
	var q dto.ProgressTrendsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}
	trends, err := c.analyticsService.ProgressTrends(ctx.Request.Context(), userID(ctx), q.Period)
	if err != nil {
		respondError(ctx, "progress trends", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewProgressTrendsResponse(trends))
}

// Breakdown godoc
// @Summary Scores grouped by job category
// @Tags Analytics
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param category_id query string false "Restrict to one category"
// @Success 200 {object} dto.ScoreBreakdownResponse
// @Router /analytics/breakdown [get]
func (c *AnalyticsController) Breakdown(ctx *gin.Context) {
	var q dto.ScoreBreakdownQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}
	categories, err := c.analyticsService.ScoreBreakdown(ctx.Request.Context(), userID(ctx), q.CategoryID)
	if err != nil {
		respondError(ctx, "score breakdown", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewScoreBreakdownResponse(categories))
}

// Statistics godoc
// @Summary Totals, averages and practice streak
// @Tags Analytics
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Success 200 {object} dto.UserStatisticsResponse
// @Router /analytics/statistics [get]
func (c *AnalyticsController) Statistics(ctx *gin.Context) {
	stats, err := c.analyticsService.Statistics(ctx.Request.Context(), userID(ctx))
	if err != nil {
		respondError(ctx, "user statistics", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewUserStatisticsResponse(stats))
}

// Comparison godoc
// @Summary Rank job categories by average score
// @Tags Analytics
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Success 200 {object} dto.CategoryComparisonResponse
// @Router /analytics/comparison [get]
func (c *AnalyticsController) Comparison(ctx *gin.Context) {
	cmp, err := c.analyticsService.CategoryComparison(ctx.Request.Context(), userID(ctx))
	if err != nil {
		respondError(ctx, "category comparison", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewCategoryComparisonResponse(cmp))
}
