package handoff

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sacenox/relay/internal/provider"
)

func TestDriver_PassRequests(t *testing.T) {
	mock := provider.NewMock(
		provider.MockStep{Text: "## Goal\nfacts"},
		provider.MockStep{Text: "# Context\nprompt"},
	)
	d := NewDriver(mock, "claude-sonnet-4")

	facts, err := d.Extract(context.Background(), "extract input")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if facts != "## Goal\nfacts" {
		t.Errorf("facts = %q", facts)
	}
	prompt, err := d.Compose(context.Background(), "compose input")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if prompt != "# Context\nprompt" {
		t.Errorf("prompt = %q", prompt)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}

	// System prompts go through verbatim; user content is untouched.
	if calls[0].SystemPrompt != ExtractorPrompt() {
		t.Error("extract call does not carry the extractor system prompt")
	}
	if calls[1].SystemPrompt != ComposerPrompt() {
		t.Error("compose call does not carry the composer system prompt")
	}
	if calls[0].UserContent != "extract input" || calls[1].UserContent != "compose input" {
		t.Errorf("user content altered: %q, %q", calls[0].UserContent, calls[1].UserContent)
	}
	for i, call := range calls {
		if call.Model != "claude-sonnet-4" {
			t.Errorf("call %d model = %q", i, call.Model)
		}
	}
	if calls[0].MaxTokens != maxExtractOutputTokens {
		t.Errorf("extract max tokens = %d", calls[0].MaxTokens)
	}
	if calls[1].MaxTokens != maxComposeOutputTokens {
		t.Errorf("compose max tokens = %d", calls[1].MaxTokens)
	}
}

func TestDriver_CancelledBeforeCall(t *testing.T) {
	mock := provider.NewMock(provider.MockStep{Text: "never"})
	d := NewDriver(mock, "m")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Extract(ctx, "input"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n := len(mock.Calls()); n != 0 {
		t.Errorf("completer called %d times after cancellation", n)
	}
}

func TestDriver_ErrorNamesPass(t *testing.T) {
	boom := errors.New("boom")
	d := NewDriver(provider.NewMock(provider.MockStep{Err: boom}), "m")

	_, err := d.Compose(context.Background(), "input")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "compose pass") {
		t.Errorf("err = %q, want pass name", err)
	}
}
