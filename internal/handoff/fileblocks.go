package handoff

import "strings"

// Machine-parseable block tags in the composed prompt.
const (
	readFilesOpen  = "<read-files>"
	readFilesClose = "</read-files>"
	modFilesOpen   = "<modified-files>"
	modFilesClose  = "</modified-files>"
)

// EnsureFileBlocks repairs a composed prompt that lacks the machine-
// parseable file blocks, appending the missing block(s) from the computed
// lists. Idempotent: a prompt that already has both blocks is returned
// unchanged, and each block is appended at most once.
func EnsureFileBlocks(text string, readFiles, modifiedFiles []string) string {
	hasRead := strings.Contains(text, readFilesOpen)
	hasMod := strings.Contains(text, modFilesOpen)
	if hasRead && hasMod {
		return text
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(text, "\n"))
	if !hasRead {
		sb.WriteString("\n\n")
		writeBlock(&sb, readFilesOpen, readFilesClose, readFiles)
	}
	if !hasMod {
		sb.WriteString("\n\n")
		writeBlock(&sb, modFilesOpen, modFilesClose, modifiedFiles)
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, openTag, closeTag string, paths []string) {
	sb.WriteString(openTag)
	for _, p := range paths {
		sb.WriteString("\n" + p)
	}
	sb.WriteString("\n" + closeTag)
}
