package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	zen "github.com/sacenox/go-opencode-ai-zen-sdk"
)

// Zen is a Completer backed by the opencode zen gateway. The gateway
// multiplexes several upstream encodings (Anthropic Messages, OpenAI chat
// completions and Responses, Gemini); text deltas are extracted per
// endpoint and joined into the final response.
type Zen struct {
	client *zen.Client
}

// NewZen creates a zen-backed completer. baseURL defaults to the public
// gateway when empty.
func NewZen(apiKey, baseURL string) (*Zen, error) {
	if baseURL == "" {
		baseURL = "https://opencode.ai/zen/v1"
	}
	client, err := zen.NewClient(zen.Config{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
	})
	if err != nil {
		return nil, err
	}
	return &Zen{client: client}, nil
}

// Complete streams a single-turn completion and returns the joined text.
func (z *Zen) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	zr := zen.NormalizedRequest{
		Model:  req.Model,
		System: req.SystemPrompt,
		Messages: []zen.NormalizedMessage{
			{Role: "user", Content: req.UserContent},
		},
		Stream: true,
	}
	if maxTokens > 0 {
		zr.MaxTokens = &maxTokens
	}

	events, errs, err := z.client.UnifiedStreamNormalized(ctx, zr)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return finishText(sb.String())
			}
			text, done := textDelta(ev)
			sb.WriteString(text)
			if done {
				return finishText(sb.String())
			}
		case err, ok := <-errs:
			if ok && err != nil {
				logAPIError(err)
				return "", err
			}
			return finishText(sb.String())
		case <-ctx.Done():
			// In-flight stream is abandoned; the SDK closes the
			// connection when the context fires.
			return "", ctx.Err()
		}
	}
}

func finishText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func logAPIError(err error) {
	if apiErr := AsAPIError(err); apiErr != nil {
		log.Error().
			Int("status", apiErr.StatusCode).
			Str("body", string(apiErr.Body)).
			Msg("zen: stream API error")
	}
}

// textDelta extracts the text content carried by one unified event.
// done is true when the event terminates the stream.
func textDelta(ev zen.UnifiedEvent) (text string, done bool) {
	data := ev.Data
	if len(data) == 0 || string(data) == "[DONE]" {
		return "", true
	}

	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false
	}

	switch ev.Endpoint {
	case zen.EndpointMessages:
		return anthropicTextDelta(ev.Event, chunk)
	case zen.EndpointModels:
		return geminiTextDelta(chunk), false
	case zen.EndpointResponses:
		if ev.Event == "response.output_text.delta" {
			return getStringOrEmpty(chunk, "delta"), false
		}
		return "", ev.Event == "response.completed"
	default:
		return chatCompletionsTextDelta(chunk), false
	}
}

// anthropicTextDelta handles Anthropic Messages SSE chunks.
func anthropicTextDelta(event string, chunk map[string]any) (string, bool) {
	switch event {
	case "message_stop":
		return "", true
	case "content_block_delta":
		delta, _ := chunk["delta"].(map[string]any)
		if getStringOrEmpty(delta, "type") == "text_delta" {
			return getStringOrEmpty(delta, "text"), false
		}
	}
	return "", false
}

// geminiTextDelta handles Gemini SSE chunks:
// candidates[0].content.parts[].text.
func geminiTextDelta(chunk map[string]any) string {
	candidates, _ := chunk["candidates"].([]any)
	if len(candidates) == 0 {
		return ""
	}
	candidate, _ := candidates[0].(map[string]any)
	content, _ := candidate["content"].(map[string]any)
	parts, _ := content["parts"].([]any)

	var sb strings.Builder
	for _, p := range parts {
		part, _ := p.(map[string]any)
		sb.WriteString(getStringOrEmpty(part, "text"))
	}
	return sb.String()
}

// chatCompletionsTextDelta handles OpenAI chat completions SSE chunks.
func chatCompletionsTextDelta(chunk map[string]any) string {
	choices, _ := chunk["choices"].([]any)
	if len(choices) == 0 {
		delta, _ := chunk["delta"].(map[string]any)
		return getStringOrEmpty(delta, "content")
	}
	choice, _ := choices[0].(map[string]any)
	delta, _ := choice["delta"].(map[string]any)
	return getStringOrEmpty(delta, "content")
}

func getStringOrEmpty(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
