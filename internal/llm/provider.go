// Package llm is the provider-neutral boundary to text generation models.
package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one completion call. Messages are in chronological order and
// the last one is expected to come from the user.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	// JSON asks the provider for a JSON object response.
	JSON bool
}

type Completion struct {
	Text       string
	TokensUsed int
	Model      string
}

// Provider generates completions. Failures are reported as *ProviderError.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Name() string
}

type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnavailable     ErrorKind = "unavailable"
)

// ProviderError is the normalized failure of a provider call.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	// Fatal marks failures that retrying cannot fix, such as a rejected key.
	Fatal bool
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf returns the kind of a wrapped *ProviderError.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsFatal reports a provider error that no retry of the same request fixes.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Fatal
}

// Retryable reports whether another attempt may succeed.
func Retryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Fatal {
		return false
	}
	switch pe.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	}
	return false
}
