package handoff

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sacenox/relay/internal/redact"
	"github.com/sacenox/relay/internal/tokens"
)

// Anchor reasons, in display precedence order.
const (
	ReasonFirstUser = "first user"
	ReasonError     = "error"
	ReasonKeySignal = "key signal"
	ReasonGoalMatch = "goal match"
)

// Anchor is a turn selected for verbatim inclusion in the extractor input.
type Anchor struct {
	Turn     *Turn
	Reason   string
	Excerpt  string
	Required bool
}

// SelectAnchors picks the turns carried into the extractor input: the first
// turn, the last few turns, every error or high-signal turn (all required,
// kept regardless of budget), then goal-matched turns by score until the
// anchor budget is spent.
func SelectAnchors(idx *BranchIndex, b Budgets) []Anchor {
	b = b.WithDefaults()
	n := len(idx.Turns)
	if n == 0 {
		return nil
	}

	required := make(map[int]bool)
	required[0] = true
	for i := n - b.RecentTurnCount; i < n; i++ {
		if i >= 0 {
			required[i] = true
		}
	}
	for i, t := range idx.Turns {
		if t.HasError || t.HighSignal {
			required[i] = true
		}
	}

	var anchors []Anchor
	used := 0
	for i, t := range idx.Turns {
		if !required[i] {
			continue
		}
		excerpt := BuildTurnExcerpt(t, b.RequiredAnchorTokens)
		used += tokens.Estimate(excerpt)
		anchors = append(anchors, Anchor{
			Turn:     t,
			Reason:   requiredReason(t),
			Excerpt:  excerpt,
			Required: true,
		})
	}

	// Optional candidates: remaining turns by score, original order on ties.
	var optional []*Turn
	for i, t := range idx.Turns {
		if !required[i] {
			optional = append(optional, t)
		}
	}
	sort.SliceStable(optional, func(i, j int) bool {
		if optional[i].GoalScore != optional[j].GoalScore {
			return optional[i].GoalScore > optional[j].GoalScore
		}
		return optional[i].Index < optional[j].Index
	})

	for _, t := range optional {
		if used >= b.AnchorTokens {
			break
		}
		excerpt := BuildTurnExcerpt(t, b.OptionalAnchorTokens)
		used += tokens.Estimate(excerpt)
		anchors = append(anchors, Anchor{
			Turn:    t,
			Reason:  ReasonGoalMatch,
			Excerpt: excerpt,
		})
	}

	// Present anchors in branch order.
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Turn.Index < anchors[j].Turn.Index
	})
	return anchors
}

func requiredReason(t *Turn) string {
	switch {
	case t.Index == 0:
		return ReasonFirstUser
	case t.HasError:
		return ReasonError
	default:
		return ReasonKeySignal
	}
}

// BuildTurnExcerpt renders a turn for anchor inclusion, truncated to the
// given token budget.
func BuildTurnExcerpt(t *Turn, budget int) string {
	var lines []string

	if t.UserText != "" {
		lines = append(lines, "[User]: "+t.UserText)
	}
	if len(t.AssistantTexts) > 0 {
		lines = append(lines, "[Assistant]: "+strings.Join(t.AssistantTexts, "\n"))
	}
	if len(t.ToolCalls) > 0 {
		displays := make([]string, len(t.ToolCalls))
		for i, call := range t.ToolCalls {
			displays[i] = ToolCallDisplay(call)
		}
		lines = append(lines, "[Assistant tool calls]: "+strings.Join(displays, "; "))
	}
	var errLines []string
	for _, res := range t.ToolResults {
		if res.IsError {
			errLines = append(errLines, res.ToolName+": "+res.Content)
		}
	}
	if len(errLines) > 0 {
		lines = append(lines, "[Tool errors]: "+strings.Join(errLines, "\n"))
	}
	if len(t.ExtraTexts) > 0 {
		lines = append(lines, "[Custom]: "+strings.Join(t.ExtraTexts, "\n"))
	}

	return tokens.TruncateToTokens(strings.Join(lines, "\n"), budget)
}

const maxCommandDisplayChars = 180

// ToolCallDisplay is the human-readable form of a tool call. Bash shows the
// redacted command; other tools show their path argument, with sensitive
// paths masked.
func ToolCallDisplay(call ToolCallInfo) string {
	if call.Name == "bash" {
		cmd := redact.Redact(call.StringArg("command"))
		if len(cmd) > maxCommandDisplayChars {
			cmd = cmd[:maxCommandDisplayChars]
		}
		return "bash(command=" + jsonQuote(cmd) + ")"
	}
	path := call.StringArg("path")
	if redact.IsSensitivePath(path) {
		path = redact.PathPlaceholder
	}
	return call.Name + "(path=" + jsonQuote(path) + ")"
}

func jsonQuote(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(quoted)
}
