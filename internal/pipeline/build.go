package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
	"github.com/Zuo-Peng/pdbwarm/internal/guard"
	"github.com/Zuo-Peng/pdbwarm/internal/strip"
	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
)

// build hides local PDBs, runs the symcache build over the workspaces,
// restores the hidden PDBs and verifies the result.
func (p *Pipeline) build(ctx context.Context, opts Options, report *Report, g *guard.Guard, localPDBs []string) error {
	dirs := make([]string, 0, len(report.Workspaces))
	for _, ws := range report.Workspaces {
		dirs = append(dirs, ws.Dir)
	}
	report.SymbolPath = strings.Join(dirs, ";")
	p.Logger.Info(fmt.Sprintf("stripped PDBs are in %s, converting to symcache files now", report.SymbolPath))

	g.Hide(localPDBs...)
	report.RenameFailures = len(localPDBs) - len(g.Hidden())

	if g.Failed() {
		p.Logger.Warn("skipping symbol generation due to PDB rename errors, symbol loading may be slow")
	} else {
		cmd := toolexec.Command{
			Path: opts.Tools.Xperf,
			Args: []string{"-i", opts.TracePath, "-symbols", "-tle", "-tti", "-a", "symcache", "-build"},
			Env:  BuildEnv(opts.Env, report.SymbolPath),
		}
		p.Logger.Info("> " + cmd.String())
		res := p.Runner.Run(ctx, cmd)
		report.BuildRan = true
		if ctx.Err() != nil {
			report.Interrupted = true
			if len(g.Hidden()) > 0 {
				p.Logger.Warn("interrupted, renaming PDBs back")
			}
		} else if !res.OK() {
			p.Logger.Warn("symcache build failed", "exit", res.ExitCode, "err", res.Err)
		}
	}

	g.Restore()

	for i := range report.Entries {
		e := &report.Entries[i]
		if _, err := os.Stat(e.Entry.TargetPath); err == nil {
			e.Generated = true
			p.Logger.Info(e.Entry.TargetPath + " generated")
		} else {
			p.Logger.Error(e.Entry.TargetPath + " not generated")
		}
	}

	missing := report.Missing()
	if len(missing) == 0 && !report.Interrupted {
		removeWorkspaces(p.Logger, report.Workspaces)
		return nil
	}

	report.Retained = true
	p.Logger.Warn("retaining PDBs to allow rerunning the xperf command, set the symbol path first",
		"command", report.RetryCommand())
	if report.Interrupted {
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}
	return &VerificationError{Missing: missing}
}

// BuildEnv returns env with the symbol path replaced by symbolPath. The
// process environment itself is left alone.
func BuildEnv(env []string, symbolPath string) []string {
	if env == nil {
		env = os.Environ()
	}
	out := make([]string, 0, len(env)+1)
	prefix := config.SymbolPathEnv + "="
	for _, kv := range env {
		// environment names are case-insensitive on Windows
		if len(kv) >= len(prefix) && strings.EqualFold(kv[:len(prefix)], prefix) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+symbolPath)
}

func removeWorkspaces(logger *slog.Logger, workspaces []strip.Workspace) {
	for _, ws := range workspaces {
		if err := ws.Remove(); err != nil {
			logger.Warn("could not remove workspace", "dir", ws.Dir, "err", err)
		}
	}
}
