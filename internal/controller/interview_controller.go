package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/Jobt25/First-jobt-repo/internal/dto"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type InterviewController struct {
	interviewService service.InterviewService
}

func NewInterviewController(svc service.InterviewService) *InterviewController {
	return &InterviewController{interviewService: svc}
}

// Start godoc
// @Summary Start a mock interview
// @Description Reserves one unit of the monthly quota, asks the opening question and creates the session.
// @Tags Interviews
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param request body dto.StartInterviewRequest true "Category and difficulty"
// @Success 201 {object} dto.StartInterviewResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Account or category not found"
// @Failure 429 {object} dto.ErrorResponse "Monthly quota exceeded"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /interviews [post]
func (c *InterviewController) Start(ctx *gin.Context) {
	var req dto.StartInterviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	res, err := c.interviewService.Start(ctx.Request.Context(), service.StartInput{
		UserID:     userID(ctx),
		CategoryID: req.CategoryID,
		Difficulty: model.Difficulty(req.Difficulty),
	})
	if err != nil {
		respondError(ctx, "start interview", err)
		return
	}
	if res.UsedFallback {
		log.Warn().Str("sessionID", res.Session.ID).Msg("Interview started with fallback opening question")
	}
	ctx.JSON(http.StatusCreated, dto.NewStartInterviewResponse(res))
}

// SubmitAnswer godoc
// @Summary Answer the current question
// @Description Records the answer and returns the next question, or the feedback when the answer completes the interview.
// @Tags Interviews
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param session_id path string true "Session ID"
// @Param request body dto.SubmitAnswerRequest true "Answer text"
// @Success 200 {object} dto.SubmitAnswerResponse
// @Failure 400 {object} dto.ErrorResponse "Empty answer"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 408 {object} dto.ErrorResponse "Session expired"
// @Failure 409 {object} dto.ErrorResponse "Session already ended or modified concurrently"
// @Failure 502 {object} dto.ErrorResponse "Invalid provider response"
// @Failure 503 {object} dto.ErrorResponse "Provider unavailable"
// @Router /interviews/{session_id}/answers [post]
func (c *InterviewController) SubmitAnswer(ctx *gin.Context) {
	var req dto.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	res, err := c.interviewService.SubmitAnswer(ctx.Request.Context(), userID(ctx), ctx.Param("session_id"), req.Answer)
	if err != nil {
		respondError(ctx, "submit answer", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSubmitAnswerResponse(res))
}

// End godoc
// @Summary End an interview
// @Description Completes (with feedback) or abandons the session. Ending an already ended session returns its stored result.
// @Tags Interviews
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param session_id path string true "Session ID"
// @Param request body dto.EndInterviewRequest false "End reason, completed by default"
// @Success 200 {object} dto.EndInterviewResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid reason"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 503 {object} dto.ErrorResponse "Provider unavailable"
// @Router /interviews/{session_id}/end [post]
func (c *InterviewController) End(ctx *gin.Context) {
	var req dto.EndInterviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	res, err := c.interviewService.End(ctx.Request.Context(), userID(ctx), ctx.Param("session_id"), service.EndReason(req.Reason))
	if err != nil {
		respondError(ctx, "end interview", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewEndInterviewResponse(res))
}

// Get godoc
// @Summary Get an interview session
// @Description Returns the session with its full transcript and feedback, if any.
// @Tags Interviews
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another account"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /interviews/{session_id} [get]
func (c *InterviewController) Get(ctx *gin.Context) {
	session, err := c.interviewService.GetSession(ctx.Request.Context(), userID(ctx), ctx.Param("session_id"))
	if err != nil {
		respondError(ctx, "get interview", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSessionDetailResponse(session))
}

// List godoc
// @Summary List interview sessions
// @Description Pages through the caller's sessions, newest first.
// @Tags Interviews
// @Produce json
// @Param X-User-ID header string true "Account ID"
// @Param page query int false "Page number, starting at 1"
// @Param size query int false "Page size, at most 100"
// @Param status query string false "in_progress, completed, abandoned or expired"
// @Success 200 {object} dto.PageResponse[dto.SessionSummaryResponse]
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Router /interviews [get]
func (c *InterviewController) List(ctx *gin.Context) {
	var q dto.ListSessionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}

	page, err := c.interviewService.ListSessions(ctx.Request.Context(), userID(ctx), service.ListQuery{
		Page:   q.Page,
		Size:   q.Size,
		Status: model.SessionStatus(q.Status),
	})
	if err != nil {
		respondError(ctx, "list interviews", err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSessionPageResponse(page))
}
