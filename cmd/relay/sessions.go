package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sacenox/relay/internal/session"
)

func newSessionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dbPath, err := resolve(flags)
			if err != nil {
				return err
			}
			store, err := session.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Sessions()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPARENT\tUPDATED\tTITLE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.ID, s.ParentID, s.Updated.Format("2006-01-02 15:04"), s.Title)
			}
			return w.Flush()
		},
	}
}
