package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/rs/zerolog/log"

	"github.com/sacenox/relay/internal/provider"
	"github.com/sacenox/relay/internal/session"
)

// Controller outcome sentinels.
var (
	ErrCancelled = errors.New("cancelled")
	ErrEmptyGoal = errors.New("goal is required")
	ErrNoEntries = errors.New("no session entries to hand off")
	ErrNoTurns   = errors.New("no conversation turns to hand off")
)

// Level classifies user notifications.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// SessionManager is the narrow view of the session store the controller
// consumes: the current branch plus the audit append.
type SessionManager interface {
	SessionID() string
	Branch() ([]session.Entry, error)
	AppendCustomEntry(customType string, data any) error
}

// SessionCreator creates the child session seeded with the handoff prompt.
// The prompt is injected but not submitted.
type SessionCreator interface {
	NewSession(parentID, seedPrompt string) (sessionID string, err error)
}

// UI is the surface the controller talks to. Editor returns ok=false when
// the user cancels review; Progress reports pipeline stages to a loader.
type UI interface {
	Notify(message string, level Level)
	Progress(stage string)
	Editor(title, initial string) (edited string, ok bool)
}

// auditRecord is the custom entry appended to the originating session when
// a handoff completes.
type auditRecord struct {
	Goal      string `json:"goal"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Controller orchestrates one handoff invocation.
type Controller struct {
	Sessions SessionManager
	Creator  SessionCreator
	UI       UI
	Driver   *Driver
	Budgets  Budgets
}

// Run executes the handoff pipeline for the given goal. Cancellation at any
// suspension point surfaces a single "Cancelled" notification and returns
// ErrCancelled; nothing is persisted unless both passes and the editor
// review succeed.
func (c *Controller) Run(ctx context.Context, goal string) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		c.UI.Notify("Handoff goal is required", LevelError)
		return "", ErrEmptyGoal
	}

	entries, err := c.Sessions.Branch()
	if err != nil {
		c.UI.Notify("Failed to load session: "+err.Error(), LevelError)
		return "", err
	}
	if len(entries) == 0 {
		c.UI.Notify("No session entries to hand off", LevelError)
		return "", ErrNoEntries
	}

	b := c.Budgets.WithDefaults()
	idx := Index(entries, b)
	if len(idx.Turns) == 0 {
		c.UI.Notify("No conversation turns to hand off", LevelError)
		return "", ErrNoTurns
	}

	ScoreTurns(idx, goal)
	anchors := SelectAnchors(idx, b)
	items := OperationalItems(idx, b)
	readFiles, modifiedFiles := FileLists(idx.FileOps, b)

	log.Info().
		Str("session", c.Sessions.SessionID()).
		Int("turns", len(idx.Turns)).
		Int("anchors", len(anchors)).
		Int("operational", len(items)).
		Msg("handoff bundle indexed")

	// Pass 1: extract the facts bundle.
	c.UI.Progress("Extracting session facts")
	extractIn := ExtractorInput(goal, idx, anchors, items, readFiles, modifiedFiles, b)
	facts, err := c.Driver.Extract(ctx, extractIn)
	if err != nil {
		return "", c.fail(err)
	}

	// Pass 2: compose the handoff prompt.
	c.UI.Progress("Composing handoff prompt")
	composeIn := ComposerInput(goal, facts, items, readFiles, modifiedFiles, b)
	prompt, err := c.Driver.Compose(ctx, composeIn)
	if err != nil {
		return "", c.fail(err)
	}
	prompt = EnsureFileBlocks(prompt, readFiles, modifiedFiles)

	// User review. Cancel here still leaves the session untouched.
	edited, ok := c.UI.Editor("Handoff prompt", prompt)
	if !ok {
		return "", c.cancelled()
	}
	if err := ctx.Err(); err != nil {
		return "", c.cancelled()
	}
	logEditDiff(prompt, edited)

	// Audit record first, child session second.
	if err := c.Sessions.AppendCustomEntry("handoff", auditRecord{
		Goal:      goal,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		c.UI.Notify("Failed to record handoff: "+err.Error(), LevelError)
		return "", err
	}

	childID, err := c.Creator.NewSession(c.Sessions.SessionID(), edited)
	if err != nil {
		c.UI.Notify("Failed to create new session: "+err.Error(), LevelError)
		return "", err
	}

	c.UI.Notify(fmt.Sprintf("Handoff ready: new session %s", childID), LevelInfo)
	return childID, nil
}

// fail maps a pipeline error to the right notification: cancellation is not
// an error, everything else surfaces a friendly message.
func (c *Controller) fail(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return c.cancelled()
	}
	c.UI.Notify(provider.FriendlyMessage(err), LevelError)
	return err
}

func (c *Controller) cancelled() error {
	c.UI.Notify("Cancelled", LevelInfo)
	return ErrCancelled
}

// logEditDiff records what the user changed during review.
func logEditDiff(before, after string) {
	if before == after {
		return
	}
	edits := myers.ComputeEdits(span.URIFromPath("handoff.md"), before, after)
	diff := fmt.Sprint(gotextdiff.ToUnified("composed", "edited", before, edits))
	log.Debug().Str("diff", diff).Msg("handoff prompt edited by user")
}
