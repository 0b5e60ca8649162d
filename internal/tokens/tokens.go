// Package tokens provides a cheap, deterministic token approximation used
// for budgeting bundle sections. One token ~= 4 bytes of text.
package tokens

import (
	"fmt"
	"strings"
)

const bytesPerToken = 4

// Estimate returns an approximate token count for text.
func Estimate(text string) int {
	return (len(text) + bytesPerToken - 1) / bytesPerToken
}

// TruncateToTokens cuts text so it fits within maxTokens, appending a
// truncation marker when anything was removed. maxTokens <= 0 yields "".
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * bytesPerToken
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "\n...[truncated]"
}

// TruncateLines keeps the first maxLines lines of text and notes how many
// were dropped.
func TruncateLines(text string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	kept := strings.Join(lines[:maxLines], "\n")
	return kept + fmt.Sprintf("\n...[%d more lines truncated]", len(lines)-maxLines)
}
