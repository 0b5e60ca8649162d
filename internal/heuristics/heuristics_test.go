package heuristics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sacenox/relay/internal/session"
)

func seedStore(t *testing.T, dbPath string) (withAudit, withoutAudit string) {
	t.Helper()
	store, err := session.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	mustAppend := func(sessionID string, e session.Entry) {
		t.Helper()
		if _, err := store.AppendEntry(sessionID, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	a, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	mustAppend(a.ID, session.UserMessage("fix the fetcher timeouts"))
	mustAppend(a.ID, session.AssistantMessage(
		session.TextBlock("running the suite"),
		session.ToolCallBlock("c1", "bash", map[string]any{"command": "go test ./..."}),
	))
	mustAppend(a.ID, session.ToolResultMessage(session.ToolResult{
		ToolCallID: "c1", ToolName: "bash", IsError: true, Content: "FAIL: TestFetch",
	}))
	if err := store.AppendCustomEntry(a.ID, "handoff", map[string]any{
		"goal": "polish the fetcher", "timestamp": 1700000000000,
	}); err != nil {
		t.Fatalf("append audit: %v", err)
	}

	b, err := store.CreateSession("")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	mustAppend(b.ID, session.UserMessage("write the docs"))

	return a.ID, b.ID
}

func readTurns(t *testing.T, outDir string) map[string][]TurnRecord {
	t.Helper()
	f, err := os.Open(filepath.Join(outDir, "turns.jsonl"))
	if err != nil {
		t.Fatalf("open turns.jsonl: %v", err)
	}
	defer f.Close()

	bySession := make(map[string][]TurnRecord)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec TurnRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode turn record: %v", err)
		}
		bySession[rec.SessionID] = append(bySession[rec.SessionID], rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return bySession
}

func TestRun_GoalResolutionAndSelection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	outDir := filepath.Join(t.TempDir(), "out")
	withAudit, withoutAudit := seedStore(t, dbPath)

	if err := Run(Options{DBPath: dbPath, OutDir: outDir}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	turns := readTurns(t, outDir)

	audited := turns[withAudit]
	if len(audited) != 1 {
		t.Fatalf("audited session has %d turns, want 1", len(audited))
	}
	rec := audited[0]
	if rec.GoalSource != GoalSourceHandoff || rec.Goal != "polish the fetcher" {
		t.Errorf("goal = %q from %q, want recorded handoff goal", rec.Goal, rec.GoalSource)
	}
	if !rec.Selected || !rec.Required || !rec.HasError {
		t.Errorf("record = %+v, want selected required error turn", rec)
	}
	if len(rec.Reasons) != 1 || rec.Reasons[0] != "first user" {
		t.Errorf("reasons = %v", rec.Reasons)
	}
	if len(rec.ToolErrors) != 1 || rec.ToolErrors[0] != "bash: FAIL: TestFetch" {
		t.Errorf("tool errors = %v", rec.ToolErrors)
	}
	if len(rec.ToolCalls) != 1 || rec.ToolCalls[0] != `bash(command="go test ./...")` {
		t.Errorf("tool calls = %v", rec.ToolCalls)
	}

	plain := turns[withoutAudit]
	if len(plain) != 1 {
		t.Fatalf("plain session has %d turns, want 1", len(plain))
	}
	if plain[0].GoalSource != GoalSourceFirstUser || plain[0].Goal != "write the docs" {
		t.Errorf("goal = %q from %q, want first user message", plain[0].Goal, plain[0].GoalSource)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "sessions.json"))
	if err != nil {
		t.Fatalf("read sessions.json: %v", err)
	}
	var sessions []SessionRecord
	if err := json.Unmarshal(raw, &sessions); err != nil {
		t.Fatalf("decode sessions.json: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d session records, want 2", len(sessions))
	}
	for _, s := range sessions {
		if s.TurnCount != 1 || s.SelectedCount != 1 {
			t.Errorf("session %s counts = %d/%d, want 1/1", s.SessionID, s.SelectedCount, s.TurnCount)
		}
	}
}

func TestRun_GoalFlagOverrides(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	outDir := filepath.Join(t.TempDir(), "out")
	seedStore(t, dbPath)

	if err := Run(Options{DBPath: dbPath, OutDir: outDir, Goal: "migrate the storage layer"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, recs := range readTurns(t, outDir) {
		for _, rec := range recs {
			if rec.GoalSource != GoalSourceFlag || rec.Goal != "migrate the storage layer" {
				t.Errorf("goal = %q from %q, want flag override", rec.Goal, rec.GoalSource)
			}
		}
	}
}

func TestResolveGoal_Precedence(t *testing.T) {
	entries := []session.Entry{
		session.UserMessage("first message"),
		{Type: session.EntryCustom, CustomType: "handoff", Data: []byte(`{"goal":"recorded goal","timestamp":1}`)},
	}

	if goal, source := resolveGoal("flag goal", entries); goal != "flag goal" || source != GoalSourceFlag {
		t.Errorf("got %q/%q", goal, source)
	}
	if goal, source := resolveGoal("", entries); goal != "recorded goal" || source != GoalSourceHandoff {
		t.Errorf("got %q/%q", goal, source)
	}
	if goal, source := resolveGoal("", entries[:1]); goal != "first message" || source != GoalSourceFirstUser {
		t.Errorf("got %q/%q", goal, source)
	}
	if goal, source := resolveGoal("", nil); goal != "" || source != GoalSourceNone {
		t.Errorf("got %q/%q", goal, source)
	}
}
