// Package provider implements the chat completion capability consumed by
// the handoff pipeline: one system prompt, one user message, final text out.
package provider

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a completion finishes without emitting
// any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Request is a single completion request.
type Request struct {
	Model        string
	SystemPrompt string
	UserContent  string
	MaxTokens    int
}

// Completer sends a completion request and returns the aggregated text.
// Implementations must honor ctx cancellation and return ctx.Err() when the
// caller aborts mid-flight.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
