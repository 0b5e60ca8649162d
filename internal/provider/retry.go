package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultMaxRetries = 3

// WithRetry wraps a completer with transport-level retry: transient errors
// (HTTP 429/5xx, rate-limit/overloaded text) are retried up to three times
// with exponential backoff (1s, 2s, 4s). Backoff sleeps honor ctx.
func WithRetry(inner Completer) Completer {
	return &retrying{inner: inner, maxRetries: defaultMaxRetries, sleep: sleepCtx}
}

type retrying struct {
	inner      Completer
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func (r *retrying) Complete(ctx context.Context, req Request) (string, error) {
	for attempt := 0; ; attempt++ {
		text, err := r.inner.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt >= r.maxRetries || !Retryable(err) {
			return "", err
		}
		backoff := time.Second << attempt
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("transient completion error, retrying")
		if err := r.sleep(ctx, backoff); err != nil {
			return "", err
		}
	}
}

// sleepCtx sleeps for d, resolving early with ctx.Err() if the context
// fires first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
