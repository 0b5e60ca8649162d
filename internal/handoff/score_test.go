package handoff

import (
	"reflect"
	"testing"

	"github.com/sacenox/relay/internal/session"
)

func TestGoalTokens(t *testing.T) {
	tests := []struct {
		goal string
		want []string
	}{
		{"add retry to the fetcher module", []string{"add", "retry", "the", "fetcher", "module"}},
		{"fix src/fetcher.go", []string{"fix", "src/fetcher.go"}},
		{"Continue DB migration!", []string{"continue", "migration"}},
		{"a an to", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := GoalTokens(tt.goal); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("GoalTokens(%q) = %v, want %v", tt.goal, got, tt.want)
		}
	}
}

func TestScoreTurns(t *testing.T) {
	entries := []session.Entry{
		user("please add retry logic to the fetcher"),
		assistant(session.TextBlock("done")),
		user("unrelated chatter about lunch"),
		assistant(session.TextBlock("sure")),
	}
	idx := Index(entries, Budgets{})

	ScoreTurns(idx, "add retry to the fetcher module")

	// Turn 0: "add"(+1), "retry"(+2), "the"(+1), "fetcher"(+2).
	if idx.Turns[0].GoalScore != 6 {
		t.Errorf("turn 0 score = %d, want 6", idx.Turns[0].GoalScore)
	}
	// Turn 1: only "the" matches ("chatter" does not contain goal tokens).
	if idx.Turns[1].GoalScore >= idx.Turns[0].GoalScore {
		t.Errorf("turn 1 score = %d, should be below turn 0", idx.Turns[1].GoalScore)
	}
}

func TestScoreTurns_FilePathBonus(t *testing.T) {
	entries := []session.Entry{
		user("look around"),
		assistant(pathCall("c1", "read", "src/fetcher.go")),
	}
	idx := Index(entries, Budgets{})

	ScoreTurns(idx, "rework src/fetcher.go error handling")

	// Path contained in goal: +3. Tokens "src/fetcher.go" (+1 substring of
	// path) plus the direct searchText match of the signature.
	if idx.Turns[0].GoalScore < 4 {
		t.Errorf("score = %d, want at least 4", idx.Turns[0].GoalScore)
	}
}

func TestScoreTurns_EmptyGoal(t *testing.T) {
	idx := Index([]session.Entry{user("anything at all")}, Budgets{})
	ScoreTurns(idx, "to a")
	if idx.Turns[0].GoalScore != 0 {
		t.Errorf("score = %d, want 0 for empty goal tokens", idx.Turns[0].GoalScore)
	}
}
