package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// flaky fails with err for failures calls, then succeeds.
type flaky struct {
	failures int
	err      error
	calls    int
}

func (f *flaky) Complete(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	inner := &flaky{failures: 2, err: errors.New("rate limit exceeded")}
	var slept []time.Duration
	r := &retrying{inner: inner, maxRetries: 3, sleep: noSleep(&slept)}

	text, err := r.Complete(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	// Two backoff sleeps: 1s then 2s.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("backoffs = %v", slept)
	}
}

func TestRetry_NonRetryable(t *testing.T) {
	inner := &flaky{failures: 10, err: errors.New("invalid model")}
	var slept []time.Duration
	r := &retrying{inner: inner, maxRetries: 3, sleep: noSleep(&slept)}

	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
	if len(slept) != 0 {
		t.Errorf("unexpected sleeps: %v", slept)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	inner := &flaky{failures: 10, err: errors.New("service unavailable")}
	var slept []time.Duration
	r := &retrying{inner: inner, maxRetries: 3, sleep: noSleep(&slept)}

	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// Initial attempt + 3 retries.
	if inner.calls != 4 {
		t.Errorf("calls = %d, want 4", inner.calls)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	inner := &flaky{failures: 10, err: errors.New("overloaded")}
	ctx, cancel := context.WithCancel(context.Background())
	r := &retrying{inner: inner, maxRetries: 3, sleep: func(c context.Context, d time.Duration) error {
		cancel()
		return c.Err()
	}}

	_, err := r.Complete(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Rate Limit hit"), true},
		{errors.New("model overloaded"), true},
		{errors.New("Service Unavailable"), true},
		{errors.New("upstream connect error"), true},
		{errors.New("connection refused"), true},
		{errors.New("bad request"), false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
