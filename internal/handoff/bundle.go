package handoff

import (
	"fmt"
	"strings"

	"github.com/sacenox/relay/internal/redact"
	"github.com/sacenox/relay/internal/tokens"
)

const emptySection = "(none)"

// ExtractorInput renders the pass-1 input: goal, summaries, anchors,
// operational context, and file lists, each under its own budget, the
// whole capped at MaxExtractTokens.
func ExtractorInput(goal string, idx *BranchIndex, anchors []Anchor, items []OperationalItem, readFiles, modifiedFiles []string, b Budgets) string {
	b = b.WithDefaults()

	sections := []string{
		"Goal: " + redact.Normalize(goal),
		"Summaries\n" + renderSummaries(idx.Summaries, b),
		"Anchors\n" + renderAnchors(anchors),
		"Operational context\n" + renderOperational(items, b),
		"Files\n" + renderFiles(readFiles, modifiedFiles, b),
	}

	return tokens.TruncateToTokens(strings.Join(sections, "\n\n"), b.MaxExtractTokens)
}

// ComposerInput renders the pass-2 input from the extracted facts bundle,
// capped at ComposeInputTokens.
func ComposerInput(goal, factsBundle string, items []OperationalItem, readFiles, modifiedFiles []string, b Budgets) string {
	b = b.WithDefaults()

	bundle := strings.TrimSpace(factsBundle)
	if bundle == "" {
		bundle = emptySection
	}

	sections := []string{
		"Goal: " + redact.Normalize(goal),
		"Extracted facts bundle\n" + bundle,
		"Operational context\n" + renderOperational(items, b),
		"Files\n" + renderFiles(readFiles, modifiedFiles, b),
	}

	return tokens.TruncateToTokens(strings.Join(sections, "\n\n"), b.ComposeInputTokens)
}

// renderSummaries emits each compaction/branch summary under a header with
// its entry id, redacted, each within a per-entry budget derived from the
// overall summary budget.
func renderSummaries(summaries []SummaryEntry, b Budgets) string {
	if len(summaries) == 0 {
		return emptySection
	}

	perEntry := b.SummaryTokens / len(summaries)
	if perEntry > b.SummaryEntryTokens {
		perEntry = b.SummaryEntryTokens
	}

	parts := make([]string, len(summaries))
	for i, s := range summaries {
		body := tokens.TruncateToTokens(redact.Normalize(s.Summary), perEntry)
		parts[i] = fmt.Sprintf("[%s %s]\n%s", s.Type, s.EntryID, body)
	}
	return strings.Join(parts, "\n")
}

func renderAnchors(anchors []Anchor) string {
	if len(anchors) == 0 {
		return emptySection
	}
	parts := make([]string, len(anchors))
	for i, a := range anchors {
		parts[i] = fmt.Sprintf("### Turn %d (%s)\n%s", a.Turn.Index+1, a.Reason, a.Excerpt)
	}
	return strings.Join(parts, "\n")
}

func renderOperational(items []OperationalItem, b Budgets) string {
	if len(items) == 0 {
		return emptySection
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item.Text
	}
	return tokens.TruncateToTokens(strings.Join(lines, "\n"), b.OperationalTokens)
}

func renderFiles(readFiles, modifiedFiles []string, b Budgets) string {
	if len(readFiles) == 0 && len(modifiedFiles) == 0 {
		return emptySection
	}
	var sb strings.Builder
	sb.WriteString("Read-only:\n")
	writeFileList(&sb, readFiles)
	sb.WriteString("Modified:\n")
	writeFileList(&sb, modifiedFiles)
	return tokens.TruncateToTokens(strings.TrimRight(sb.String(), "\n"), b.FileTokens)
}

func writeFileList(sb *strings.Builder, paths []string) {
	if len(paths) == 0 {
		sb.WriteString("- " + emptySection + "\n")
		return
	}
	for _, p := range paths {
		sb.WriteString("- " + p + "\n")
	}
}
