package handoff

import (
	"strings"

	"github.com/sacenox/relay/internal/redact"
	"github.com/sacenox/relay/internal/session"
	"github.com/sacenox/relay/internal/tokens"
)

// highSignalMarkers promote a turn to a required anchor when any of them
// appears in the turn's normalized search text.
var highSignalMarkers = []string{
	"must", "constraint", "decision", "blocked", "todo", "fix",
	"should", "require", "avoid", "risk", "bug", "prefer",
}

// ToolCallInfo is a tool call recorded on a turn.
type ToolCallInfo struct {
	ID        string
	Name      string
	Arguments map[string]any
	EntryID   string
}

// StringArg returns a string argument by key, or "".
func (t ToolCallInfo) StringArg(key string) string {
	if t.Arguments == nil {
		return ""
	}
	if s, ok := t.Arguments[key].(string); ok {
		return s
	}
	return ""
}

// ToolResultInfo is a tool result recorded on a turn. Content is truncated
// and normalized at index time.
type ToolResultInfo struct {
	ToolCallID string
	ToolName   string
	IsError    bool
	Content    string
}

// Turn is a maximal contiguous segment of the branch: one user message and
// everything emitted in response, up to the next user message.
type Turn struct {
	Index        int
	StartEntryID string
	EntryIDs     []string

	UserText       string
	AssistantTexts []string
	ExtraTexts     []string

	ToolCalls   []ToolCallInfo
	ToolResults []ToolResultInfo
	FilePaths   map[string]struct{}

	HasError   bool
	HighSignal bool
	SearchText string
	GoalScore  int
}

// SummaryEntry is a compaction or branch-summary entry preserved verbatim.
type SummaryEntry struct {
	Type    session.EntryType
	EntryID string
	Summary string
}

// FileOps accumulates file paths touched on the branch. A path present in
// both sets counts as modified.
type FileOps struct {
	Read     map[string]struct{}
	Modified map[string]struct{}
}

// BranchIndex is the typed turn-level model derived from a branch.
type BranchIndex struct {
	Turns         []*Turn
	Summaries     []SummaryEntry
	FileOps       FileOps
	ToolCallsByID map[string]ToolCallInfo
}

// Index walks branch entries in order and derives the turn-level model.
// Deterministic for a given input sequence; unknown entry types are skipped.
func Index(entries []session.Entry, b Budgets) *BranchIndex {
	b = b.WithDefaults()
	idx := &BranchIndex{
		FileOps: FileOps{
			Read:     make(map[string]struct{}),
			Modified: make(map[string]struct{}),
		},
		ToolCallsByID: make(map[string]ToolCallInfo),
	}

	var open *Turn
	finalize := func() {
		if open == nil {
			return
		}
		open.SearchText = buildSearchText(open)
		open.HighSignal = hasHighSignal(open.SearchText)
		idx.Turns = append(idx.Turns, open)
		open = nil
	}
	ensureOpen := func(e session.Entry) *Turn {
		if open == nil {
			open = &Turn{Index: len(idx.Turns), StartEntryID: e.ID}
		}
		open.EntryIDs = append(open.EntryIDs, e.ID)
		return open
	}

	for _, e := range entries {
		switch e.Type {
		case session.EntryMessage:
			switch e.Role {
			case session.RoleUser:
				finalize()
				t := ensureOpen(e)
				t.UserText = redact.Normalize(e.Text)
			case session.RoleAssistant:
				t := ensureOpen(e)
				indexAssistant(idx, t, e)
			case session.RoleToolResult:
				t := ensureOpen(e)
				indexToolResult(t, e, b.MaxToolOutputLines)
			}

		case session.EntryCustomMessage:
			t := ensureOpen(e)
			if text := redact.Normalize(e.Text); text != "" {
				t.ExtraTexts = append(t.ExtraTexts, text)
			}

		case session.EntryCompaction, session.EntryBranchSummary:
			// Summaries belong to no turn.
			idx.Summaries = append(idx.Summaries, SummaryEntry{
				Type:    e.Type,
				EntryID: e.ID,
				Summary: e.Summary,
			})
			if e.Details != nil {
				for _, p := range e.Details.ReadFiles {
					idx.FileOps.Read[p] = struct{}{}
				}
				for _, p := range e.Details.ModifiedFiles {
					idx.FileOps.Modified[p] = struct{}{}
				}
			}

		case session.EntryHeader, session.EntryCustom:
			// Metadata and extension state carry no conversational content.

		default:
			// Unknown entry types are skipped silently.
		}
	}
	finalize()

	return idx
}

// indexAssistant records an assistant message's text blocks and tool calls.
func indexAssistant(idx *BranchIndex, t *Turn, e session.Entry) {
	if e.StopReason == "error" || e.ErrorMessage != "" {
		t.HasError = true
	}
	for _, block := range e.Blocks {
		switch block.Type {
		case "text":
			if text := redact.Normalize(block.Text); text != "" {
				t.AssistantTexts = append(t.AssistantTexts, text)
			}
		case "toolCall":
			if block.ToolCall == nil {
				continue
			}
			info := ToolCallInfo{
				ID:        block.ToolCall.ID,
				Name:      block.ToolCall.Name,
				Arguments: block.ToolCall.Arguments,
				EntryID:   e.ID,
			}
			t.ToolCalls = append(t.ToolCalls, info)
			idx.ToolCallsByID[info.ID] = info

			if path := info.StringArg("path"); path != "" {
				if t.FilePaths == nil {
					t.FilePaths = make(map[string]struct{})
				}
				t.FilePaths[path] = struct{}{}
				switch info.Name {
				case "read":
					idx.FileOps.Read[path] = struct{}{}
				case "write", "edit":
					idx.FileOps.Modified[path] = struct{}{}
				}
			}
		}
		// Thinking blocks are deliberately not indexed.
	}
}

// indexToolResult records a tool result, truncating its content. Orphan
// results (no matching call on the branch) are retained on the open turn.
func indexToolResult(t *Turn, e session.Entry, maxLines int) {
	res := e.ToolResult
	if res == nil {
		return
	}
	if res.IsError {
		t.HasError = true
	}
	t.ToolResults = append(t.ToolResults, ToolResultInfo{
		ToolCallID: res.ToolCallID,
		ToolName:   res.ToolName,
		IsError:    res.IsError,
		Content:    redact.Normalize(tokens.TruncateLines(res.Content, maxLines)),
	})
}

// buildSearchText concatenates everything goal matching should see:
// user text, assistant texts, custom texts, tool-call signatures, and the
// contents of error results.
func buildSearchText(t *Turn) string {
	var parts []string
	if t.UserText != "" {
		parts = append(parts, t.UserText)
	}
	parts = append(parts, t.AssistantTexts...)
	parts = append(parts, t.ExtraTexts...)
	for _, call := range t.ToolCalls {
		parts = append(parts, toolCallSignature(call))
	}
	for _, res := range t.ToolResults {
		if res.IsError {
			parts = append(parts, res.Content)
		}
	}
	return strings.ToLower(redact.Normalize(strings.Join(parts, "\n")))
}

// toolCallSignature is the searchable form of a tool call: the redacted
// command for bash, tool name plus path otherwise.
func toolCallSignature(call ToolCallInfo) string {
	if call.Name == "bash" {
		return "bash " + redact.Redact(call.StringArg("command"))
	}
	return call.Name + " " + call.StringArg("path")
}

func hasHighSignal(searchText string) bool {
	for _, marker := range highSignalMarkers {
		if strings.Contains(searchText, marker) {
			return true
		}
	}
	return false
}
