package handoff

import (
	"regexp"
	"strings"
)

var goalSplit = regexp.MustCompile(`[^a-z0-9_./-]+`)

// GoalTokens lowercases the goal and splits it into matchable tokens of at
// least three characters.
func GoalTokens(goal string) []string {
	var out []string
	for _, tok := range goalSplit.Split(strings.ToLower(goal), -1) {
		if len(tok) >= 3 {
			out = append(out, tok)
		}
	}
	return out
}

// ScoreTurns assigns every turn a relevance score against the goal.
// Scores are zero when the goal yields no tokens; ties keep turn order.
func ScoreTurns(idx *BranchIndex, goal string) {
	goalLower := strings.ToLower(goal)
	goalTokens := GoalTokens(goal)

	for _, t := range idx.Turns {
		t.GoalScore = scoreTurn(t, goalLower, goalTokens)
	}
}

func scoreTurn(t *Turn, goalLower string, goalTokens []string) int {
	if len(goalTokens) == 0 {
		return 0
	}

	score := 0
	for _, tok := range goalTokens {
		if strings.Contains(t.SearchText, tok) {
			if len(tok) > 4 {
				score += 2
			} else {
				score++
			}
		}
	}

	for path := range t.FilePaths {
		pathLower := strings.ToLower(path)
		if strings.Contains(goalLower, pathLower) {
			score += 3
		}
		for _, tok := range goalTokens {
			if strings.Contains(pathLower, tok) {
				score++
			}
		}
	}

	return score
}
