package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/pipeline"
	"github.com/Zuo-Peng/pdbwarm/internal/symcache"
	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/tools"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

func scanCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <trace.etl>",
		Short: "List the Chrome PDBs a trace references and whether they are cached",
		Long: `Runs the trace analysis only. Output is TSV:
  module, guid, age, pdb, symcache path, hit|miss, last ledger outcome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := g.logger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p := pipeline.New(toolexec.ExecRunner{}, logger)
			records, err := p.Analyze(ctx, pipeline.Options{
				TracePath: args[0],
				Tools:     tools.Set{Xperf: cfg.Xperf},
			})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(os.Stderr, "No Chrome modules found.")
				return nil
			}

			// the ledger is optional here
			var db *index.DB
			if _, err := os.Stat(cfg.DBPath); err == nil {
				if db, err = index.OpenDB(cfg.DBPath); err == nil {
					defer db.Close()
				}
			}

			out := cmd.OutOrStdout()
			for _, rec := range records {
				fmt.Fprintln(out, scanLine(rec, symcache.Resolve(cfg.SymcacheRoot, rec), lastOutcome(db, rec, cfg.SymcacheRoot)))
			}
			return nil
		},
	}
}

func lastOutcome(db *index.DB, rec trace.SymbolRecord, root string) string {
	if db == nil {
		return "-"
	}
	outcome, err := db.LastOutcome(symcache.Path(root, rec))
	if err != nil || outcome == "" {
		return "-"
	}
	return outcome
}

func scanLine(rec trace.SymbolRecord, entry symcache.Entry, last string) string {
	state := "miss"
	if entry.Exists {
		state = "hit"
	}
	return strings.Join([]string{
		rec.Module.FileName,
		rec.GUID.String(),
		fmt.Sprint(rec.Age),
		strings.ReplaceAll(rec.PDBPath, "\t", " "),
		entry.TargetPath,
		state,
		last,
	}, "\t")
}
