package handoff

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sacenox/relay/internal/session"
)

func TestOperationalItems_ErrorsFirst(t *testing.T) {
	entries := []session.Entry{
		user("build and test"),
		assistant(bashCall("ok1", "go build ./...")),
		toolResult("ok1", "bash", "", false),
		assistant(bashCall("bad1", "go test ./...")),
		toolResult("bad1", "bash", "FAIL: TestRetry", true),
	}
	idx := Index(entries, Budgets{})

	items := OperationalItems(idx, Budgets{})
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !items[0].IsError {
		t.Error("error item should rank first")
	}
	if !strings.Contains(items[0].Text, "FAIL: TestRetry") {
		t.Errorf("error item text = %q", items[0].Text)
	}
	// Empty bash output renders as "ok".
	if !strings.Contains(items[1].Text, "-> ok") {
		t.Errorf("success item text = %q", items[1].Text)
	}
}

func TestOperationalItems_NonBashSuccessIgnored(t *testing.T) {
	entries := []session.Entry{
		user("read it"),
		assistant(pathCall("c1", "read", "main.go")),
		toolResult("c1", "read", "package main ...", false),
	}
	idx := Index(entries, Budgets{})

	if items := OperationalItems(idx, Budgets{}); len(items) != 0 {
		t.Errorf("got %d items, want 0 (successful non-bash results are not operational)", len(items))
	}
}

func TestOperationalItems_Dedupe(t *testing.T) {
	entries := []session.Entry{
		user("retry the build"),
		assistant(bashCall("a", "make")),
		toolResult("a", "bash", "done", false),
		assistant(bashCall("b", "make")),
		toolResult("b", "bash", "done", false),
	}
	idx := Index(entries, Budgets{})

	if items := OperationalItems(idx, Budgets{}); len(items) != 1 {
		t.Errorf("got %d items, want 1 after dedupe", len(items))
	}
}

func TestOperationalItems_Cap(t *testing.T) {
	entries := []session.Entry{user("lots of commands")}
	blocks := assistant()
	for i := 0; i < 30; i++ {
		id := string(rune('a' + i%26)) + string(rune('a'+i/26))
		blocks.Blocks = append(blocks.Blocks, bashCall(id, "cmd-"+id))
	}
	entries = append(entries, blocks)
	for _, b := range entries[1].Blocks {
		entries = append(entries, toolResult(b.ToolCall.ID, "bash", "out-"+b.ToolCall.ID, false))
	}
	idx := Index(entries, Budgets{})

	items := OperationalItems(idx, Budgets{MaxOperationalItems: 5})
	if len(items) != 5 {
		t.Errorf("got %d items, want 5", len(items))
	}
}

func TestOperationalItems_GoalScoreBoost(t *testing.T) {
	entries := []session.Entry{
		user("unrelated"),
		assistant(bashCall("a", "ls")),
		toolResult("a", "bash", "files", false),
		user("work on the fetcher"),
		assistant(bashCall("b", "go test ./fetcher")),
		toolResult("b", "bash", "ok 1 package", false),
	}
	idx := Index(entries, Budgets{})
	ScoreTurns(idx, "improve fetcher retries")

	items := OperationalItems(idx, Budgets{})
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if !strings.Contains(items[0].Text, "fetcher") {
		t.Errorf("goal-relevant command should rank first: %q", items[0].Text)
	}
}

func TestBashDisplay_MultilineParsed(t *testing.T) {
	cmd := "cd /tmp\ngo build ./...\ngo test ./..."
	got := bashDisplay(cmd)
	want := "cd; go; go"
	if got != want {
		t.Errorf("bashDisplay = %q, want %q", got, want)
	}

	// Single-line commands pass through.
	if got := bashDisplay("go test ./..."); got != "go test ./..." {
		t.Errorf("single line mangled: %q", got)
	}
}

func TestFileLists(t *testing.T) {
	ops := FileOps{
		Read: map[string]struct{}{
			"b.go": {}, "a.go": {}, "shared.go": {}, "/home/u/.env": {},
		},
		Modified: map[string]struct{}{
			"shared.go": {}, "z.go": {}, "creds/credentials.json": {},
		},
	}

	read, modified := FileLists(ops, Budgets{})

	// Modified wins over read; both sorted; sensitive paths dropped.
	if !reflect.DeepEqual(read, []string{"a.go", "b.go"}) {
		t.Errorf("read = %v", read)
	}
	if !reflect.DeepEqual(modified, []string{"shared.go", "z.go"}) {
		t.Errorf("modified = %v", modified)
	}
}

func TestFileLists_Cap(t *testing.T) {
	ops := FileOps{Read: map[string]struct{}{}, Modified: map[string]struct{}{}}
	for _, p := range []string{"e.go", "d.go", "c.go", "b.go", "a.go"} {
		ops.Read[p] = struct{}{}
	}

	read, _ := FileLists(ops, Budgets{MaxFileEntries: 2})
	if !reflect.DeepEqual(read, []string{"a.go", "b.go"}) {
		t.Errorf("read = %v", read)
	}
}
