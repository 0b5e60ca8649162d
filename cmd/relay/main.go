package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sacenox/relay/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "relay",
		Short:         "Goal-conditioned handoffs between coding agent sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.toml")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to the session database")

	root.AddCommand(
		newHandoffCmd(flags),
		newHeuristicsCmd(flags),
		newSessionsCmd(flags),
	)
	return root
}

// setupLogging sends the global logger to ~/.config/relay/relay.log so the
// terminal stays clean for notifications. RELAY_LOG=debug raises the level.
func setupLogging() error {
	dir, err := config.EnsureDataDir()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "relay.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if os.Getenv("RELAY_LOG") == "debug" {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	return nil
}

// resolve loads config and decides the database path: --db flag, then
// config, then the default location.
func resolve(flags *rootFlags) (*config.Config, string, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, "", err
	}
	dbPath := flags.dbPath
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		dbPath, err = config.DefaultDBPath()
		if err != nil {
			return nil, "", err
		}
	}
	return cfg, dbPath, nil
}
