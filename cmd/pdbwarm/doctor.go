package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/scan"
	"github.com/Zuo-Peng/pdbwarm/internal/tools"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify symbol path, helper tools, symcache store and ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Symbol Path ===")
			fmt.Printf("  %s=%s\n", config.SymbolPathEnv, cfg.SymbolPath)
			if err := tools.CheckSymbolPath(cfg); err != nil {
				fmt.Printf("  Status: %s not found, strip does nothing\n", cfg.SymbolServerMark)
			} else {
				fmt.Println("  Status: OK")
			}

			fmt.Println("\n=== Tools ===")
			checkDir("Tool dir", cfg.ToolDir)
			checkFile("RetrieveSymbols", cfg.RetrieveSymbols)
			checkFile("pdbcopy", cfg.PDBCopy)
			if cfg.SDKPDBCopy != "" {
				checkFile("pdbcopy (SDK)", cfg.SDKPDBCopy)
			}
			checkFile("mspdbcmf", cfg.FastlinkTool)
			for _, name := range tools.SupportFiles {
				checkFile(name, filepath.Join(cfg.ThirdPartyDir, name))
			}

			fmt.Println("\n=== Symcache Store ===")
			checkDir("Root", cfg.SymcacheRoot)
			files, err := scan.ScanSymcache(cfg.SymcacheRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				chrome := 0
				for _, f := range files {
					if f.Module != "" {
						chrome++
					}
				}
				fmt.Printf("  Symcache files: %d (%d named by signature)\n", len(files), chrome)
			}

			fmt.Println("\n=== Ledger ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created by the first 'pdbwarm strip')")
				return nil
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			runCount, err := db.RunCount()
			if err != nil {
				return fmt.Errorf("count runs: %w", err)
			}
			entryCount, err := db.EntryCount()
			if err != nil {
				return fmt.Errorf("count entries: %w", err)
			}
			fmt.Printf("  Runs:    %d\n", runCount)
			fmt.Printf("  Entries: %d\n", entryCount)

			if runs, err := db.RecentRuns(1); err == nil && len(runs) > 0 && runs[0].Retained {
				fmt.Printf("  Last run retained stripped PDBs: %s\n", strings.ReplaceAll(runs[0].SymbolPath, ";", "\n    "))
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}

func checkFile(name, path string) {
	if path == "" {
		fmt.Printf("  %s: (NOT CONFIGURED)\n", name)
	} else if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if info.IsDir() {
		fmt.Printf("  %s: %s (IS A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
