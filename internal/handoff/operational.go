package handoff

import (
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/sacenox/relay/internal/redact"
)

// OperationalItem is one ranked operational highlight: a tool error or a
// notable bash invocation.
type OperationalItem struct {
	Text    string
	IsError bool
	Score   int
}

const maxOperationalChars = 200

// OperationalItems walks every turn's tool results and ranks errors and
// bash invocations. Errors come first; successes fill the remaining slots
// up to MaxOperationalItems.
func OperationalItems(idx *BranchIndex, b Budgets) []OperationalItem {
	b = b.WithDefaults()

	seen := make(map[string]bool)
	var errorItems, successItems []OperationalItem

	for _, t := range idx.Turns {
		for _, res := range t.ToolResults {
			call, hasCall := idx.ToolCallsByID[res.ToolCallID]
			isBash := hasCall && call.Name == "bash"
			if !res.IsError && !isBash {
				continue
			}

			var text string
			if isBash {
				out := res.Content
				if strings.TrimSpace(out) == "" {
					out = "ok"
				}
				text = "bash: " + truncateChars(bashDisplay(call.StringArg("command")), maxOperationalChars) +
					"  -> " + truncateChars(out, maxOperationalChars)
			} else {
				text = res.ToolName + ": " + truncateChars(res.Content, maxOperationalChars)
			}
			if seen[text] {
				continue
			}
			seen[text] = true

			score := 1
			if res.IsError {
				score = 5
			}
			if t.GoalScore > 0 {
				score += 2
			}
			score += t.GoalScore

			item := OperationalItem{Text: text, IsError: res.IsError, Score: score}
			if res.IsError {
				errorItems = append(errorItems, item)
			} else {
				successItems = append(successItems, item)
			}
		}
	}

	byScore := func(items []OperationalItem) func(i, j int) bool {
		return func(i, j int) bool { return items[i].Score > items[j].Score }
	}
	sort.SliceStable(errorItems, byScore(errorItems))
	sort.SliceStable(successItems, byScore(successItems))

	out := errorItems
	for _, item := range successItems {
		if len(out) >= b.MaxOperationalItems {
			break
		}
		out = append(out, item)
	}
	if len(out) > b.MaxOperationalItems {
		out = out[:b.MaxOperationalItems]
	}
	return out
}

// bashDisplay condenses a bash command for display. Multi-line commands
// (heredocs, scripts) are parsed and reduced to their command words; parse
// failures fall back to the first line.
func bashDisplay(cmd string) string {
	cmd = redact.Redact(cmd)
	if !strings.Contains(cmd, "\n") {
		return cmd
	}
	if words := commandWords(cmd); len(words) > 0 {
		return strings.Join(words, "; ")
	}
	return strings.SplitN(cmd, "\n", 2)[0]
}

// commandWords parses a shell command and returns the leading word of each
// call expression.
func commandWords(cmd string) []string {
	file, err := syntax.NewParser().Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil
	}
	var words []string
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok && len(call.Args) > 0 {
			if lit := call.Args[0].Lit(); lit != "" {
				words = append(words, lit)
			}
		}
		return true
	})
	return words
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// FileLists derives the final read/modified listings: modified wins over
// read, both sorted, capped at MaxFileEntries, and sensitive paths removed
// after the cap.
func FileLists(ops FileOps, b Budgets) (readFiles, modifiedFiles []string) {
	b = b.WithDefaults()

	for p := range ops.Modified {
		modifiedFiles = append(modifiedFiles, p)
	}
	sort.Strings(modifiedFiles)

	for p := range ops.Read {
		if _, alsoModified := ops.Modified[p]; !alsoModified {
			readFiles = append(readFiles, p)
		}
	}
	sort.Strings(readFiles)

	readFiles = capAndFilter(readFiles, b.MaxFileEntries)
	modifiedFiles = capAndFilter(modifiedFiles, b.MaxFileEntries)
	return readFiles, modifiedFiles
}

func capAndFilter(paths []string, max int) []string {
	if len(paths) > max {
		paths = paths[:max]
	}
	out := paths[:0]
	for _, p := range paths {
		if !redact.IsSensitivePath(p) {
			out = append(out, p)
		}
	}
	return out
}
