package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Jobt25/First-jobt-repo/internal/dto"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UserIDHeader carries the account id resolved by the upstream gateway.
const UserIDHeader = "X-User-ID"

const statusClientClosedRequest = 499

type Controller struct {
	interviews *InterviewController
	feedback   *FeedbackController
	analytics  *AnalyticsController
}

func NewController(interviews *InterviewController, feedback *FeedbackController, analytics *AnalyticsController) *Controller {
	return &Controller{interviews: interviews, feedback: feedback, analytics: analytics}
}

func (ctrl *Controller) RegisterRoutes(router *gin.Engine) {
	apiV1 := router.Group("/api/v1")
	apiV1.Use(requireUser())
	{
		interviews := apiV1.Group("/interviews")
		interviews.POST("", ctrl.interviews.Start)
		interviews.GET("", ctrl.interviews.List)
		interviews.GET("/:session_id", ctrl.interviews.Get)
		interviews.POST("/:session_id/answers", ctrl.interviews.SubmitAnswer)
		interviews.POST("/:session_id/end", ctrl.interviews.End)
		interviews.GET("/:session_id/feedback", ctrl.feedback.GetBySession)

		feedback := apiV1.Group("/feedback")
		feedback.GET("", ctrl.feedback.List)
		feedback.GET("/summary", ctrl.feedback.Summary)
		feedback.POST("/compare", ctrl.feedback.Compare)

		analytics := apiV1.Group("/analytics")
		analytics.GET("/progress", ctrl.analytics.Progress)
		analytics.GET("/breakdown", ctrl.analytics.Breakdown)
		analytics.GET("/statistics", ctrl.analytics.Statistics)
		analytics.GET("/comparison", ctrl.analytics.Comparison)
	}
}

func requireUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if strings.TrimSpace(ctx.GetHeader(UserIDHeader)) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing " + UserIDHeader + " header"})
			return
		}
		ctx.Next()
	}
}

func userID(ctx *gin.Context) string {
	return strings.TrimSpace(ctx.GetHeader(UserIDHeader))
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrSessionExpired):
		return http.StatusRequestTimeout
	case errors.Is(err, service.ErrStaleSession),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrInvalidEndReason),
		errors.Is(err, service.ErrEmptyAnswer),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNotEnoughFeedback),
		errors.Is(err, service.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrFeedbackNotReady):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

func respondError(ctx *gin.Context, op string, err error) {
	status := statusFor(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("op", op).Int("status", status).Str("userID", userID(ctx)).Msg("Request failed")

	if status == http.StatusInternalServerError {
		ctx.JSON(status, dto.ErrorResponse{Message: "Internal server error"})
		return
	}
	ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
}
