package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sacenox/relay/internal/cli"
	"github.com/sacenox/relay/internal/config"
	"github.com/sacenox/relay/internal/handoff"
	"github.com/sacenox/relay/internal/provider"
	"github.com/sacenox/relay/internal/session"
)

func newHandoffCmd(flags *rootFlags) *cobra.Command {
	var goal, sessionID, model string

	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Build a handoff prompt and seed a new child session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbPath, err := resolve(flags)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Model
			}

			store, err := session.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if sessionID == "" {
				latest, err := store.LatestSession()
				if err != nil {
					return err
				}
				if latest == nil {
					return errors.New("no sessions in store")
				}
				sessionID = latest.ID
			}

			apiKey, err := resolveAPIKey()
			if err != nil {
				return err
			}
			zen, err := provider.NewZen(apiKey, cfg.Endpoint)
			if err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context())
			defer cancel()

			controller := &handoff.Controller{
				Sessions: sessionManager{store: store, id: sessionID},
				Creator:  sessionCreator{store: store},
				UI:       cli.New(),
				Driver:   handoff.NewDriver(provider.WithRetry(zen), model),
				Budgets:  cfg.Budgets,
			}
			_, err = controller.Run(ctx, goal)
			return err
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "goal for the follow-up session")
	cmd.Flags().StringVar(&sessionID, "session", "", "originating session id (default: most recent)")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	return cmd
}

// resolveAPIKey checks RELAY_API_KEY, then the stored credentials.
func resolveAPIKey() (string, error) {
	if key := os.Getenv("RELAY_API_KEY"); key != "" {
		return key, nil
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return "", err
	}
	if key := creds.GetAPIKey("zen"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key: set RELAY_API_KEY or add a zen key to credentials.json")
}

// sessionManager adapts the store to the controller's branch view.
type sessionManager struct {
	store *session.Store
	id    string
}

func (m sessionManager) SessionID() string { return m.id }

func (m sessionManager) Branch() ([]session.Entry, error) {
	return m.store.Branch(m.id)
}

func (m sessionManager) AppendCustomEntry(customType string, data any) error {
	return m.store.AppendCustomEntry(m.id, customType, data)
}

// sessionCreator creates the child session and injects the seed prompt as
// its first user message, left unsubmitted.
type sessionCreator struct {
	store *session.Store
}

func (c sessionCreator) NewSession(parentID, seedPrompt string) (string, error) {
	sess, err := c.store.CreateSession(parentID)
	if err != nil {
		return "", err
	}
	if _, err := c.store.AppendEntry(sess.ID, session.UserMessage(seedPrompt)); err != nil {
		return "", err
	}
	return sess.ID, nil
}
