package service

import (
	"errors"

	"github.com/Jobt25/First-jobt-repo/internal/quota"
)

var (
	ErrQuotaExceeded     = quota.ErrQuotaExceeded
	ErrSessionNotFound   = errors.New("interview session not found")
	ErrForbidden         = errors.New("interview session belongs to another account")
	ErrSessionExpired    = errors.New("interview session expired due to inactivity")
	ErrStaleSession      = errors.New("interview session was modified concurrently, reload and retry")
	ErrInvalidTransition = errors.New("interview session is no longer in progress")

	ErrInvalidDifficulty = errors.New("difficulty must be beginner, intermediate or advanced")
	ErrInvalidEndReason  = errors.New("end reason must be completed or abandoned")
	ErrEmptyAnswer       = errors.New("answer text is required")
	ErrAccountNotFound   = errors.New("account not found")
	ErrCategoryNotFound  = errors.New("job category not found or inactive")

	// ErrProviderUnavailable is returned once retries against the language
	// model are exhausted, or the failure cannot be retried.
	ErrProviderUnavailable = errors.New("interview provider unavailable, please retry")
	ErrInvalidResponse     = errors.New("interview provider returned an invalid response")

	ErrFeedbackNotReady  = errors.New("feedback is not available for this session")
	ErrNotEnoughFeedback = errors.New("at least 2 sessions with feedback are required for comparison")
)
