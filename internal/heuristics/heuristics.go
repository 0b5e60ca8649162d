// Package heuristics runs the offline selection pipeline over every session
// in a store and dumps the per-turn decisions for inspection. No LLM calls
// are made; the output shows which turns the live pipeline would anchor.
package heuristics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sacenox/relay/internal/handoff"
	"github.com/sacenox/relay/internal/session"
)

// Goal sources, in resolution precedence order.
const (
	GoalSourceFlag      = "flag"
	GoalSourceHandoff   = "handoff"
	GoalSourceFirstUser = "first_user"
	GoalSourceNone      = "none"
)

// TurnRecord is one line of turns.jsonl: a turn plus the selection verdict.
type TurnRecord struct {
	SessionFile   string   `json:"sessionFile"`
	SessionID     string   `json:"sessionId"`
	GoalSource    string   `json:"goalSource"`
	Goal          string   `json:"goal"`
	TurnIndex     int      `json:"turnIndex"`
	EntryID       string   `json:"entryId"`
	UserText      string   `json:"userText"`
	AssistantText string   `json:"assistantText"`
	ToolCalls     []string `json:"toolCalls"`
	ToolErrors    []string `json:"toolErrors"`
	FilePaths     []string `json:"filePaths"`
	HasError      bool     `json:"hasError"`
	HighSignal    bool     `json:"highSignal"`
	GoalScore     int      `json:"goalScore"`
	Selected      bool     `json:"selected"`
	Required      bool     `json:"required"`
	Reasons       []string `json:"reasons"`
}

// SessionRecord is one element of sessions.json.
type SessionRecord struct {
	SessionFile   string `json:"sessionFile"`
	SessionID     string `json:"sessionId"`
	GoalSource    string `json:"goalSource"`
	Goal          string `json:"goal"`
	TurnCount     int    `json:"turnCount"`
	SelectedCount int    `json:"selectedCount"`
}

// Options configure a heuristics run.
type Options struct {
	DBPath  string
	OutDir  string
	Goal    string // optional override applied to every session
	Budgets handoff.Budgets
}

// Run walks every session in the store, scores and selects turns against the
// resolved goal, and writes turns.jsonl and sessions.json under OutDir.
func Run(opts Options) error {
	store, err := session.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	turnsFile, err := os.Create(filepath.Join(opts.OutDir, "turns.jsonl"))
	if err != nil {
		return fmt.Errorf("create turns.jsonl: %w", err)
	}
	defer turnsFile.Close()
	enc := json.NewEncoder(turnsFile)

	b := opts.Budgets.WithDefaults()
	var sessionRecords []SessionRecord

	for _, sess := range sessions {
		entries, err := store.Branch(sess.ID)
		if err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("skipping unreadable session")
			continue
		}
		goal, source := resolveGoal(opts.Goal, entries)

		idx := handoff.Index(entries, b)
		handoff.ScoreTurns(idx, goal)
		anchors := handoff.SelectAnchors(idx, b)

		selected := make(map[int]handoff.Anchor, len(anchors))
		for _, a := range anchors {
			selected[a.Turn.Index] = a
		}

		for _, t := range idx.Turns {
			rec := TurnRecord{
				SessionFile:   opts.DBPath,
				SessionID:     sess.ID,
				GoalSource:    source,
				Goal:          goal,
				TurnIndex:     t.Index,
				EntryID:       t.StartEntryID,
				UserText:      t.UserText,
				AssistantText: strings.Join(t.AssistantTexts, "\n"),
				ToolCalls:     toolCallDisplays(t),
				ToolErrors:    toolErrorTexts(t),
				FilePaths:     sortedPaths(t.FilePaths),
				HasError:      t.HasError,
				HighSignal:    t.HighSignal,
				GoalScore:     t.GoalScore,
			}
			if a, ok := selected[t.Index]; ok {
				rec.Selected = true
				rec.Required = a.Required
				rec.Reasons = []string{a.Reason}
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write turn record: %w", err)
			}
		}

		sessionRecords = append(sessionRecords, SessionRecord{
			SessionFile:   opts.DBPath,
			SessionID:     sess.ID,
			GoalSource:    source,
			Goal:          goal,
			TurnCount:     len(idx.Turns),
			SelectedCount: len(anchors),
		})
		log.Info().
			Str("session", sess.ID).
			Str("goal_source", source).
			Int("turns", len(idx.Turns)).
			Int("selected", len(anchors)).
			Msg("session analyzed")
	}

	raw, err := json.MarshalIndent(sessionRecords, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session records: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutDir, "sessions.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write sessions.json: %w", err)
	}
	return nil
}

// resolveGoal picks the goal for a session: the override flag when given,
// else the most recent recorded handoff goal, else the first user message.
func resolveGoal(flagGoal string, entries []session.Entry) (goal, source string) {
	if g := strings.TrimSpace(flagGoal); g != "" {
		return g, GoalSourceFlag
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Type != session.EntryCustom || e.CustomType != "handoff" {
			continue
		}
		var rec struct {
			Goal string `json:"goal"`
		}
		if err := json.Unmarshal(e.Data, &rec); err == nil && rec.Goal != "" {
			return rec.Goal, GoalSourceHandoff
		}
	}
	for _, e := range entries {
		if e.Type == session.EntryMessage && e.Role == session.RoleUser {
			if text := strings.TrimSpace(e.Text); text != "" {
				return text, GoalSourceFirstUser
			}
		}
	}
	return "", GoalSourceNone
}

func toolCallDisplays(t *handoff.Turn) []string {
	if len(t.ToolCalls) == 0 {
		return nil
	}
	out := make([]string, len(t.ToolCalls))
	for i, call := range t.ToolCalls {
		out[i] = handoff.ToolCallDisplay(call)
	}
	return out
}

func toolErrorTexts(t *handoff.Turn) []string {
	var out []string
	for _, res := range t.ToolResults {
		if res.IsError {
			out = append(out, res.ToolName+": "+res.Content)
		}
	}
	return out
}

func sortedPaths(paths map[string]struct{}) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
