// Package handoff builds goal-conditioned handoff packets from persisted
// session branches: it indexes the branch into turns, selects anchor turns
// against a goal under token budgets, extracts operational highlights, and
// drives a two-pass extract/compose LLM pipeline that produces the first
// message of a new child session.
package handoff

// Budgets holds the token and count budgets for bundle construction.
// Zero-valued fields fall back to defaults; budgets are per-invocation.
type Budgets struct {
	MaxExtractTokens     int `toml:"max_extract_tokens"`
	SummaryTokens        int `toml:"summary_tokens"`
	SummaryEntryTokens   int `toml:"summary_entry_tokens"`
	AnchorTokens         int `toml:"anchor_tokens"`
	RequiredAnchorTokens int `toml:"required_anchor_tokens"`
	OptionalAnchorTokens int `toml:"optional_anchor_tokens"`
	OperationalTokens    int `toml:"operational_tokens"`
	FileTokens           int `toml:"file_tokens"`
	ComposeInputTokens   int `toml:"compose_input_tokens"`
	MaxToolOutputLines   int `toml:"max_tool_output_lines"`
	MaxOperationalItems  int `toml:"max_operational_items"`
	RecentTurnCount      int `toml:"recent_turn_count"`
	MaxFileEntries       int `toml:"max_file_entries"`
}

// DefaultBudgets returns the standard budget set.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxExtractTokens:     7000,
		SummaryTokens:        1800,
		SummaryEntryTokens:   600,
		AnchorTokens:         2600,
		RequiredAnchorTokens: 220,
		OptionalAnchorTokens: 260,
		OperationalTokens:    800,
		FileTokens:           400,
		ComposeInputTokens:   2200,
		MaxToolOutputLines:   8,
		MaxOperationalItems:  10,
		RecentTurnCount:      2,
		MaxFileEntries:       60,
	}
}

// WithDefaults fills zero fields from DefaultBudgets.
func (b Budgets) WithDefaults() Budgets {
	d := DefaultBudgets()
	if b.MaxExtractTokens <= 0 {
		b.MaxExtractTokens = d.MaxExtractTokens
	}
	if b.SummaryTokens <= 0 {
		b.SummaryTokens = d.SummaryTokens
	}
	if b.SummaryEntryTokens <= 0 {
		b.SummaryEntryTokens = d.SummaryEntryTokens
	}
	if b.AnchorTokens <= 0 {
		b.AnchorTokens = d.AnchorTokens
	}
	if b.RequiredAnchorTokens <= 0 {
		b.RequiredAnchorTokens = d.RequiredAnchorTokens
	}
	if b.OptionalAnchorTokens <= 0 {
		b.OptionalAnchorTokens = d.OptionalAnchorTokens
	}
	if b.OperationalTokens <= 0 {
		b.OperationalTokens = d.OperationalTokens
	}
	if b.FileTokens <= 0 {
		b.FileTokens = d.FileTokens
	}
	if b.ComposeInputTokens <= 0 {
		b.ComposeInputTokens = d.ComposeInputTokens
	}
	if b.MaxToolOutputLines <= 0 {
		b.MaxToolOutputLines = d.MaxToolOutputLines
	}
	if b.MaxOperationalItems <= 0 {
		b.MaxOperationalItems = d.MaxOperationalItems
	}
	if b.RecentTurnCount <= 0 {
		b.RecentTurnCount = d.RecentTurnCount
	}
	if b.MaxFileEntries <= 0 {
		b.MaxFileEntries = d.MaxFileEntries
	}
	return b
}
