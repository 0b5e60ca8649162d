package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sacenox/relay/internal/heuristics"
)

func newHeuristicsCmd(flags *rootFlags) *cobra.Command {
	var outDir, goal string

	cmd := &cobra.Command{
		Use:   "heuristics",
		Short: "Dump per-turn selection decisions for every session (no LLM calls)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbPath, err := resolve(flags)
			if err != nil {
				return err
			}
			if err := heuristics.Run(heuristics.Options{
				DBPath:  dbPath,
				OutDir:  outDir,
				Goal:    goal,
				Budgets: cfg.Budgets,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s/turns.jsonl and %s/sessions.json\n", outDir, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "heuristics-out", "output directory")
	cmd.Flags().StringVar(&goal, "goal", "", "goal override applied to every session")
	return cmd
}
