package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/metrics"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// llmCaller runs provider calls under the retry policy shared by question
// generation and rubric grading. Transient kinds are retried with
// exponential backoff; an invalid response gets one immediate retry.
type llmCaller struct {
	provider    llm.Provider
	timeout     time.Duration
	maxAttempts int
	initial     time.Duration
	max         time.Duration
}

func newLLMCaller(provider llm.Provider, cfg config.Interview) *llmCaller {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &llmCaller{
		provider:    provider,
		timeout:     cfg.ProviderTimeout,
		maxAttempts: attempts,
		initial:     cfg.BackoffInitial,
		max:         cfg.BackoffMax,
	}
}

func invalidResponse(provider, msg string, err error) error {
	return &llm.ProviderError{Provider: provider, Kind: llm.KindInvalidResponse, Message: msg, Err: err}
}

// callLLM sends req and hands the completion to parse. A parse error counts
// as an invalid response. The returned error wraps ErrProviderUnavailable or
// ErrInvalidResponse, or is the caller's context error.
func callLLM[T any](ctx context.Context, c *llmCaller, operation string, req llm.Request, parse func(*llm.Completion) (T, error)) (T, int, error) {
	var tokens int

	attempt := func() (T, error) {
		var zero T
		var lastErr error
		// Two tries: the call itself plus one immediate retry on an invalid response.
		for try := 0; try < 2; try++ {
			callCtx := ctx
			cancel := func() {}
			if c.timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			}
			start := time.Now()
			completion, err := c.provider.Complete(callCtx, req)
			cancel()

			if err == nil {
				var value T
				value, err = parse(completion)
				if err == nil {
					metrics.ProviderCall(operation, "ok", time.Since(start), completion.TokensUsed)
					tokens = completion.TokensUsed
					return value, nil
				}
				err = invalidResponse(c.provider.Name(), "unparseable completion", err)
			}

			if ctx.Err() != nil {
				return zero, backoff.Permanent(ctx.Err())
			}
			kind, ok := llm.KindOf(err)
			if !ok {
				kind = llm.KindUnavailable
				err = &llm.ProviderError{Provider: c.provider.Name(), Kind: kind, Message: "request failed", Err: err}
			}
			metrics.ProviderCall(operation, string(kind), time.Since(start), 0)
			lastErr = err

			if kind != llm.KindInvalidResponse || llm.IsFatal(err) {
				break
			}
			log.Warn().Err(err).Str("operation", operation).Msg("Invalid provider response, retrying once")
		}

		if llm.Retryable(lastErr) {
			return zero, lastErr
		}
		return zero, backoff.Permanent(lastErr)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.max

	value, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("operation", operation).Dur("retryIn", next).Msg("Provider call failed, backing off")
		}),
	)
	if err == nil {
		return value, tokens, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return value, 0, ctxErr
	}
	if kind, ok := llm.KindOf(err); ok && kind == llm.KindInvalidResponse {
		return value, 0, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return value, 0, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}
