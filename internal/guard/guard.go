// Package guard hides local, unstripped PDBs from xperf while it builds
// symcache files.
//
// Hiding is a rename to a sibling name. It is advisory: it only works
// because xperf looks for the original name. Every hidden file must be
// renamed back, so callers defer Restore immediately after New.
package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
)

// Suffix is appended to hidden files: chrome.dll.pdb becomes chrome.dll.pdbx.
const Suffix = "x"

type RenamedFile struct {
	OriginalPath string
	TempPath     string
}

// RenameError describes a file that could not be hidden.
type RenameError struct {
	Path string
	Err  error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename %s: %v", e.Path, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }

type Guard struct {
	logger  *slog.Logger
	renamed []RenamedFile
	failed  int
}

func New(logger *slog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Hide renames each path away. Paths that are already hidden are skipped.
// Failures are logged and collected but do not stop the remaining renames.
func (g *Guard) Hide(paths ...string) error {
	var result *multierror.Error
	for _, p := range paths {
		if err := g.hide(p); err != nil {
			g.failed++
			g.logger.Warn("could not hide local PDB, continuing", "path", p, "err", err)
			result = multierror.Append(result, &RenameError{Path: p, Err: err})
		}
	}
	return result.ErrorOrNil()
}

func (g *Guard) hide(p string) error {
	for _, r := range g.renamed {
		// already hidden; removing its temp name would delete the PDB
		if r.OriginalPath == p || r.TempPath == p+Suffix {
			return nil
		}
	}
	tmp := p + Suffix
	g.logger.Info(fmt.Sprintf("renaming %s to %s to stop unstripped PDBs from being used", p, tmp))
	// rename fails on Windows when the destination exists
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(p, tmp); err != nil {
		return err
	}
	g.renamed = append(g.renamed, RenamedFile{OriginalPath: p, TempPath: tmp})
	return nil
}

// Failed reports whether any Hide call failed. A failed rename means the
// privacy of that PDB cannot be guaranteed.
func (g *Guard) Failed() bool {
	return g.failed > 0
}

// Hidden returns the files currently renamed away.
func (g *Guard) Hidden() []RenamedFile {
	return append([]RenamedFile(nil), g.renamed...)
}

// Restore renames every hidden file back. Each file is attempted
// independently and failures are only logged. Calling Restore again is a
// no-op. The returned error is informational.
func (g *Guard) Restore() error {
	var result *multierror.Error
	for _, r := range g.renamed {
		if err := os.Rename(r.TempPath, r.OriginalPath); err != nil {
			g.logger.Error("could not rename PDB back, continuing", "path", r.TempPath, "err", err)
			result = multierror.Append(result, &RenameError{Path: r.TempPath, Err: err})
		}
	}
	g.renamed = nil
	return result.ErrorOrNil()
}
