// Package session persists coding-agent sessions as append-only entry logs
// in SQLite. Sessions form a tree: each session may reference a parent
// session, and entries carry parent pointers for branch reconstruction.
package session

import (
	"encoding/json"
	"time"
)

// EntryType discriminates the Entry union.
type EntryType string

const (
	EntryMessage       EntryType = "message"
	EntryCustomMessage EntryType = "custom_message"
	EntryCompaction    EntryType = "compaction"
	EntryBranchSummary EntryType = "branch_summary"
	EntryCustom        EntryType = "custom"
	EntryHeader        EntryType = "session"
)

// Message roles.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolResult = "toolResult"
)

// ContentBlock is one block of assistant message content.
type ContentBlock struct {
	Type     string    `json:"type"` // "text", "thinking" or "toolCall"
	Text     string    `json:"text,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

// ToolCall is an assistant-initiated tool invocation.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a prior tool call.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	IsError    bool   `json:"isError,omitempty"`
	Content    string `json:"content"`
}

// SummaryDetails carries optional structured data on compaction and
// branch-summary entries.
type SummaryDetails struct {
	ReadFiles     []string `json:"readFiles,omitempty"`
	ModifiedFiles []string `json:"modifiedFiles,omitempty"`
}

// Entry is one element of a session log. Type selects which variant fields
// are meaningful; unknown types round-trip through the store untouched.
type Entry struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId,omitempty"`
	Type      EntryType `json:"type"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// message
	Role         string         `json:"role,omitempty"`
	Text         string         `json:"text,omitempty"` // user / custom_message content
	Blocks       []ContentBlock `json:"blocks,omitempty"`
	StopReason   string         `json:"stopReason,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	ToolResult   *ToolResult    `json:"toolResult,omitempty"`

	// compaction / branch_summary
	Summary string          `json:"summary,omitempty"`
	Details *SummaryDetails `json:"details,omitempty"`

	// custom
	CustomType string          `json:"customType,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// UserMessage builds a user message entry.
func UserMessage(text string) Entry {
	return Entry{Type: EntryMessage, Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// AssistantMessage builds an assistant message entry from content blocks.
func AssistantMessage(blocks ...ContentBlock) Entry {
	return Entry{Type: EntryMessage, Role: RoleAssistant, Blocks: blocks, Timestamp: time.Now()}
}

// ToolResultMessage builds a toolResult message entry.
func ToolResultMessage(res ToolResult) Entry {
	return Entry{Type: EntryMessage, Role: RoleToolResult, ToolResult: &res, Timestamp: time.Now()}
}

// TextBlock is a convenience constructor for a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ToolCallBlock is a convenience constructor for a toolCall content block.
func ToolCallBlock(id, name string, args map[string]any) ContentBlock {
	return ContentBlock{Type: "toolCall", ToolCall: &ToolCall{ID: id, Name: name, Arguments: args}}
}

// StringArg returns a string argument from a tool call, or "".
func (t *ToolCall) StringArg(key string) string {
	if t == nil || t.Arguments == nil {
		return ""
	}
	if s, ok := t.Arguments[key].(string); ok {
		return s
	}
	return ""
}
