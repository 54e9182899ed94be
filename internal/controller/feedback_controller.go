package controller

import (
	"net/http"

	"github.com/Jobt25/First-jobt-repo/internal/dto"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-gonic/gin"
)

type FeedbackController struct {
	feedbackService service.FeedbackService
}

func NewFeedbackController(svc service.FeedbackService) *FeedbackController {
	return &FeedbackController{feedbackService: svc}
}

// GetBySession godoc
// @Summary Get the feedback of a completed interview
// @Tags Feedback
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.FeedbackResponse
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another account"
// @Failure 404 {object} dto.ErrorResponse "Session or feedback not found"
// @Router /interviews/{session_id}/feedback [get]
func (c *FeedbackController) GetBySession(ctx *gin.Context) {
	feedback, err := c.feedbackService.GetBySession(ctx.Request.Context(), userID(ctx), ctx.Param("session_id"))
	if err != nil {
		respondError(ctx, "get feedback", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewFeedbackResponse(feedback))
}

// List godoc
// @Summary List the caller's feedback
// @Description Pages through feedback of completed interviews, most recently ended first.
// @Tags Feedback
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param page query int false "Page number, starting at 1"
// @Param size query int false "Page size, at most 100"
// @Success 200 {object} dto.PageResponse[dto.FeedbackResponse]
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Router /feedback [get]
func (c *FeedbackController) List(ctx *gin.Context) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}
	page, err := c.feedbackService.List(ctx.Request.Context(), userID(ctx), q.Page, q.Size)
	if err != nil {
		respondError(ctx, "list feedback", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewFeedbackPageResponse(page))
}

// Summary godoc
// @Summary Aggregate feedback across the caller's interviews
// @Tags Feedback
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Success 200 {object} dto.FeedbackSummaryResponse
// @Router /feedback/summary [get]
func (c *FeedbackController) Summary(ctx *gin.Context) {
	summary, err := c.feedbackService.Summary(ctx.Request.Context(), userID(ctx))
	if err != nil {
		respondError(ctx, "feedback summary", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewFeedbackSummaryResponse(summary))
}

// Compare godoc
// @Summary Compare feedback between interviews
// @Tags Feedback
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param request body dto.CompareFeedbackRequest true "Sessions to compare, in chronological order"
// @Success 200 {object} dto.FeedbackComparisonResponse
// @Failure 400 {object} dto.ErrorResponse "Fewer than two sessions with feedback"
// @Router /feedback/compare [post]
func (c *FeedbackController) Compare(ctx *gin.Context) {
	var req dto.CompareFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	cmp, err := c.feedbackService.Compare(ctx.Request.Context(), userID(ctx), req.SessionIDs)
	if err != nil {
		respondError(ctx, "compare feedback", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewFeedbackComparisonResponse(cmp))
}
