// Package strip copies PDBs into private workspaces with pdbcopy, removing
// private symbol information on the way.
package strip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

// ErrNotStripped means the stripped PDB was not produced. Continuing would
// produce a useless build, so it aborts the whole run.
var ErrNotStripped = errors.New("stripped PDB was not produced")

// Workspace is a temporary directory owned by one symbol record.
type Workspace struct {
	Dir      string
	Stripped string
}

func (w Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}

type Stripper struct {
	PDBCopy string
	// FastlinkTool converts /debug:fastlink PDBs into self-contained ones so
	// pdbcopy can read them. Empty disables the fallback.
	FastlinkTool string
	// InPlace runs FastlinkTool on the original PDB instead of a copy. The
	// conversion cannot be undone.
	InPlace bool
	TempDir string
	Runner  toolexec.Runner
	Logger  *slog.Logger
}

// Strip copies src into a fresh workspace as a public-only PDB. On error
// the workspace, if any, is still returned so the caller can dispose of it.
func (s *Stripper) Strip(ctx context.Context, src string) (Workspace, error) {
	dir, err := os.MkdirTemp(s.TempDir, "pdbwarm-")
	if err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	ws := Workspace{Dir: dir, Stripped: filepath.Join(dir, trace.BaseName(src))}
	s.Logger.Info("copying PDB", "dest", ws.Stripped)

	res := s.copy(ctx, src, ws.Stripped)
	if err := ctx.Err(); err != nil {
		return ws, err
	}
	if !res.OK() && s.FastlinkTool != "" {
		converted, cleanup, err := s.unfastlink(ctx, src)
		if err != nil {
			return ws, err
		}
		s.copy(ctx, converted, ws.Stripped)
		cleanup()
		if err := ctx.Err(); err != nil {
			return ws, err
		}
	}

	if _, err := os.Stat(ws.Stripped); err != nil {
		return ws, fmt.Errorf("%w: %s", ErrNotStripped, ws.Stripped)
	}
	return ws, nil
}

func (s *Stripper) copy(ctx context.Context, src, dst string) toolexec.Result {
	cmd := toolexec.Command{Path: s.PDBCopy, Args: []string{src, dst, "-p"}}
	s.Logger.Info("> " + cmd.String())
	res := s.Runner.Run(ctx, cmd)
	if out := strings.TrimSpace(string(res.Output)); out != "" {
		s.Logger.Info(out)
	}
	if !res.OK() {
		s.Logger.Warn("pdbcopy failed", "exit", res.ExitCode, "err", res.Err)
	}
	return res
}

// unfastlink converts src and returns the path of the converted PDB. Unless
// InPlace is set the conversion runs on a copy kept outside the workspace,
// and cleanup removes it; the copy still holds private symbols.
func (s *Stripper) unfastlink(ctx context.Context, src string) (string, func(), error) {
	target := src
	cleanup := func() {}
	if !s.InPlace {
		dir, err := os.MkdirTemp(s.TempDir, "pdbwarm-unfastlink-")
		if err != nil {
			return "", cleanup, fmt.Errorf("create conversion dir: %w", err)
		}
		cleanup = func() {
			if err := os.RemoveAll(dir); err != nil {
				s.Logger.Warn("failed to remove conversion dir", "dir", dir, "err", err)
			}
		}
		target = filepath.Join(dir, trace.BaseName(src))
		if err := copyFile(src, target); err != nil {
			cleanup()
			return "", func() {}, fmt.Errorf("copy %s for conversion: %w", src, err)
		}
	}

	cmd := toolexec.Command{Path: s.FastlinkTool, Args: []string{target}}
	s.Logger.Info("attempting to un-fastlink PDB so that pdbcopy can strip it, this may be slow")
	s.Logger.Info("> " + cmd.String())
	res := s.Runner.Run(ctx, cmd)
	if err := ctx.Err(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if !res.OK() {
		// mspdbcmf can report failure after converting; the retry decides
		s.Logger.Warn("un-fastlink reported failure, retrying pdbcopy anyway", "exit", res.ExitCode, "err", res.Err)
	}
	return target, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
