package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/logging"
	"github.com/Zuo-Peng/pdbwarm/internal/tools"
)

var version = "dev"

type globalFlags struct {
	verbose int
	quiet   bool
}

func (g *globalFlags) logger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, logging.LevelFromFlags(cfg.LogLevel, g.verbose, g.quiet))
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "pdbwarm",
		Short:         "Pre-translate Chrome symbols in an ETW trace into symcache files using stripped PDBs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "More logging (debug)")
	rootCmd.PersistentFlags().BoolVar(&g.quiet, "quiet", false, "No logging, only the final report")

	rootCmd.AddCommand(stripCmd(&g))
	rootCmd.AddCommand(scanCmd(&g))
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(doctorCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, tools.ErrMissing) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
