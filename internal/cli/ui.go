// Package cli implements the terminal surface the handoff controller talks
// to: styled notifications, progress lines, and an $EDITOR round-trip for
// prompt review.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/sacenox/relay/internal/handoff"
)

// UI prints to Out/Err and launches the user's editor for review.
type UI struct {
	Out io.Writer
	Err io.Writer
}

// New returns a UI bound to stdout/stderr.
func New() *UI {
	return &UI{Out: os.Stdout, Err: os.Stderr}
}

// Notify prints a styled one-line message.
func (u *UI) Notify(message string, level handoff.Level) {
	switch level {
	case handoff.LevelError:
		fmt.Fprintln(u.Err, errorStyle.Render(message))
	default:
		fmt.Fprintln(u.Out, infoStyle.Render(message))
	}
}

// Progress prints a dimmed pipeline stage line.
func (u *UI) Progress(stage string) {
	fmt.Fprintln(u.Err, stageStyle.Render("... "+stage))
}

// Editor writes initial to a temp file, opens $VISUAL/$EDITOR (vi fallback)
// on it, and returns the edited contents. ok is false when the editor exits
// nonzero or the file cannot be read back.
func (u *UI) Editor(title, initial string) (string, bool) {
	f, err := os.CreateTemp("", "relay-handoff-*.md")
	if err != nil {
		log.Warn().Err(err).Msg("editor temp file")
		return "", false
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		log.Warn().Err(err).Msg("editor temp write")
		return "", false
	}
	f.Close()

	fmt.Fprintln(u.Err, stageStyle.Render(title))

	parts := editorCommand()
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Str("editor", parts[0]).Msg("editor exited with error")
		return "", false
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Msg("editor read back")
		return "", false
	}
	return string(edited), true
}

// editorCommand resolves the editor invocation. $VISUAL and $EDITOR may
// carry arguments.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return strings.Fields(v)
		}
	}
	return []string{"vi"}
}

// SignalContext derives a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
