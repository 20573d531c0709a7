package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/pipeline"
	"github.com/Zuo-Peng/pdbwarm/internal/render"
	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/tools"
)

func stripCmd(g *globalFlags) *cobra.Command {
	var downloadOnly, copyRetry bool

	cmd := &cobra.Command{
		Use:   "strip <trace.etl>",
		Short: "Generate symcache files for the Chrome modules in a trace from stripped PDBs",
		Long: `Scans the trace for Chrome modules without a symcache file, retrieves their
PDBs (or uses locally built ones), strips private symbols with pdbcopy and has
xperf build the symcache files from the stripped copies only. Local PDBs are
renamed away while xperf runs and always renamed back.

Nothing happens unless _NT_SYMBOL_PATH refers to chromium-browser-symsrv.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := g.logger(cfg)

			if err := tools.CheckSymbolPath(cfg); err != nil {
				logger.Debug(err.Error())
				return err
			}
			set, err := tools.Discover(cfg, logger)
			if err != nil {
				logger.Info(err.Error())
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now()
			report, runErr := pipeline.New(toolexec.ExecRunner{}, logger).Run(ctx, pipeline.Options{
				TracePath:       args[0],
				CacheRoot:       cfg.SymcacheRoot,
				Tools:           set,
				FastlinkInPlace: cfg.FastlinkInPlace,
				TempDir:         cfg.TempDir,
				DownloadOnly:    downloadOnly,
			})
			recordRun(cfg.DBPath, report.RunRecord(runErr, started, time.Now()), logger)

			if err := render.Report(cmd.OutOrStdout(), report, runErr, render.StdoutOptions()); err != nil {
				logger.Warn("could not write report", "err", err)
			}
			if retry := report.RetryCommand(); copyRetry && retry != "" {
				if err := clipboard.WriteAll(retry); err != nil {
					logger.Warn("could not copy retry command to clipboard", "err", err)
				} else {
					fmt.Fprintln(os.Stderr, "Retry command copied to clipboard.")
				}
			}

			var verr *pipeline.VerificationError
			if errors.As(runErr, &verr) {
				// the report already lists what is missing
				return fmt.Errorf("%d symcache file(s) not generated", len(verr.Missing))
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&downloadOnly, "download-only", false, "Only download PDBs from the symbol server, do not strip or build")
	cmd.Flags().BoolVar(&copyRetry, "copy-retry", false, "Copy the symbol path command to the clipboard when PDBs are retained")

	return cmd
}

// recordRun adds the run to the ledger. Ledger problems never fail a run.
func recordRun(dbPath string, run index.RunRecord, logger *slog.Logger) {
	db, err := index.OpenDB(dbPath)
	if err != nil {
		logger.Warn("could not open run ledger", "path", dbPath, "err", err)
		return
	}
	defer db.Close()

	id, stats, err := index.RecordRun(db, run)
	if err != nil {
		logger.Warn("could not record run", "err", err)
		return
	}
	logger.Debug("run recorded", "id", id, "stats", stats.String())
}
