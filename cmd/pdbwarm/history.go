package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/render"
	"github.com/Zuo-Peng/pdbwarm/internal/tui"
)

func historyCmd() *cobra.Command {
	var limit int
	var runID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintln(os.Stderr, "No runs recorded.")
				return nil
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if runID > 0 {
				entries, err := db.GetEntries(runID)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%s\n", e.Outcome, e.Module, e.GUID, e.Age, e.Source, e.CachePath)
				}
				return nil
			}

			runs, err := db.RecentRuns(limit)
			if err != nil {
				return err
			}
			if term.IsTerminal(int(os.Stdout.Fd())) && len(runs) > 0 {
				return tui.Run(tui.RunItems(db, runs), "copy retry cmd / trace path", out)
			}
			return render.History(out, runs, render.StdoutOptions())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to show")
	cmd.Flags().Int64Var(&runID, "run", 0, "Show the entries of one run (TSV)")

	return cmd
}
