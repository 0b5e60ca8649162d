package handoff

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sacenox/relay/internal/provider"
	"github.com/sacenox/relay/internal/tokens"
)

// Embedded system prompts. Their contents define the output structure both
// passes must produce; downstream consumers depend on them verbatim.
//
//go:embed prompts/extractor.md
var extractorPrompt string

//go:embed prompts/composer.md
var composerPrompt string

// ExtractorPrompt returns the pass-1 system prompt.
func ExtractorPrompt() string { return extractorPrompt }

// ComposerPrompt returns the pass-2 system prompt.
func ComposerPrompt() string { return composerPrompt }

// Output token caps per pass.
const (
	maxExtractOutputTokens = 2400
	maxComposeOutputTokens = 1600
)

// Driver runs the two LLM passes. Pass 2 strictly depends on pass 1; both
// honor ctx cancellation.
type Driver struct {
	completer provider.Completer
	model     string
}

// NewDriver creates a driver over a completion capability. The completer
// should already carry transport-level retry (provider.WithRetry).
func NewDriver(c provider.Completer, model string) *Driver {
	return &Driver{completer: c, model: model}
}

// Extract runs pass 1: condensed session view in, facts bundle out.
func (d *Driver) Extract(ctx context.Context, input string) (string, error) {
	return d.run(ctx, "extract", extractorPrompt, input, maxExtractOutputTokens)
}

// Compose runs pass 2: facts bundle in, final handoff prompt out.
func (d *Driver) Compose(ctx context.Context, input string) (string, error) {
	return d.run(ctx, "compose", composerPrompt, input, maxComposeOutputTokens)
}

func (d *Driver) run(ctx context.Context, pass, systemPrompt, input string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	log.Debug().
		Str("pass", pass).
		Str("model", d.model).
		Int("input_tokens", tokens.Estimate(input)).
		Msg("running handoff pass")

	text, err := d.completer.Complete(ctx, provider.Request{
		Model:        d.model,
		SystemPrompt: systemPrompt,
		UserContent:  input,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s pass: %w", pass, err)
	}
	return text, nil
}
