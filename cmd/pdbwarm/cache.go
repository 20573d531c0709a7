package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/render"
	"github.com/Zuo-Peng/pdbwarm/internal/scan"
	"github.com/Zuo-Peng/pdbwarm/internal/tui"
)

func cacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "List the symcache files in the symcache store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			files, err := scan.ScanSymcache(cfg.SymcacheRoot)
			if err != nil {
				return fmt.Errorf("scan %s: %w", cfg.SymcacheRoot, err)
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) || len(files) == 0 {
				return render.Cache(cmd.OutOrStdout(), cfg.SymcacheRoot, files, render.StdoutOptions())
			}

			// the ledger only adds outcomes to the preview
			var db *index.DB
			if _, err := os.Stat(cfg.DBPath); err == nil {
				if db, err = index.OpenDB(cfg.DBPath); err != nil {
					return err
				}
				defer db.Close()
			}
			return tui.Run(tui.CacheItems(files, db), "copy path", cmd.OutOrStdout())
		},
	}
}
