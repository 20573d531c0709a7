// Package tools locates the helper executables the pipeline depends on and
// checks that the environment asks for Chrome symbols at all.
package tools

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
)

// ErrMissing means a prerequisite is absent. It is not a failure: the
// pipeline has nothing to do and exits quietly.
var ErrMissing = errors.New("prerequisite missing")

// SupportFiles must sit next to RetrieveSymbols.exe.
var SupportFiles = []string{"pdbcopy.exe", "dbghelp.dll", "symsrv.dll"}

// Set is the resolved tool locations for one run.
type Set struct {
	Xperf           string
	RetrieveSymbols string
	PDBCopy         string
	// FastlinkTool is empty when mspdbcmf.exe is not installed.
	FastlinkTool string
}

// CheckSymbolPath reports whether the symbol path refers to the Chromium
// symbol server.
func CheckSymbolPath(cfg *config.Config) error {
	if !strings.Contains(cfg.SymbolPath, cfg.SymbolServerMark) {
		return fmt.Errorf("%w: %s not in %s, no symbol stripping needed", ErrMissing, cfg.SymbolServerMark, config.SymbolPathEnv)
	}
	return nil
}

// Discover resolves the helper tools. Missing support files are copied from
// the third-party directory first; copy failures are only logged.
func Discover(cfg *config.Config, logger *slog.Logger) (Set, error) {
	CopySupportFiles(cfg.ThirdPartyDir, cfg.ToolDir, logger)

	set := Set{
		Xperf:           cfg.Xperf,
		RetrieveSymbols: cfg.RetrieveSymbols,
		PDBCopy:         cfg.PDBCopy,
	}
	// the UIforETW copy of pdbcopy fails on some Chrome PDBs that the
	// Windows 10 SDK version handles
	if cfg.SDKPDBCopy != "" && exists(cfg.SDKPDBCopy) {
		set.PDBCopy = cfg.SDKPDBCopy
	}
	if cfg.FastlinkTool != "" && exists(cfg.FastlinkTool) {
		set.FastlinkTool = cfg.FastlinkTool
	}

	if !exists(set.PDBCopy) {
		return set, fmt.Errorf("%w: pdbcopy.exe not found, no symbol stripping is possible", ErrMissing)
	}
	if !exists(set.RetrieveSymbols) {
		return set, fmt.Errorf("%w: RetrieveSymbols.exe not found, no symbol retrieval is possible", ErrMissing)
	}
	return set, nil
}

// CopySupportFiles copies each support file missing from toolDir out of
// thirdPartyDir.
func CopySupportFiles(thirdPartyDir, toolDir string, logger *slog.Logger) {
	if thirdPartyDir == "" || toolDir == "" {
		return
	}
	for _, name := range SupportFiles {
		dst := filepath.Join(toolDir, name)
		if exists(dst) {
			continue
		}
		src := filepath.Join(thirdPartyDir, name)
		if !exists(src) {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			logger.Warn("could not copy support file", "src", src, "dst", dst, "err", err)
			continue
		}
		logger.Debug("copied support file", "dst", dst)
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
