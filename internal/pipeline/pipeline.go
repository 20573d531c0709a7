// Package pipeline pre-translates Chrome symbols referenced by an ETW trace
// into symcache files, feeding xperf only stripped PDBs.
//
// A run scans the trace for Chrome modules, skips signatures that already
// have a symcache file, retrieves and strips the PDB for each miss into its
// own workspace, hides locally built PDBs, and finally asks xperf to build
// the symcache files from the workspaces.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Zuo-Peng/pdbwarm/internal/guard"
	"github.com/Zuo-Peng/pdbwarm/internal/retrieve"
	"github.com/Zuo-Peng/pdbwarm/internal/strip"
	"github.com/Zuo-Peng/pdbwarm/internal/symcache"
	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/tools"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

type Options struct {
	TracePath string
	CacheRoot string
	Tools     tools.Set
	// FastlinkInPlace converts fastlink PDBs destructively instead of
	// converting a copy.
	FastlinkInPlace bool
	TempDir         string
	// DownloadOnly retrieves PDBs from the symbol server and stops there.
	DownloadOnly bool
	// Env is the environment the build inherits; the symbol path is
	// replaced. Nil means the process environment.
	Env []string
}

type Pipeline struct {
	Runner toolexec.Runner
	Logger *slog.Logger
}

func New(runner toolexec.Runner, logger *slog.Logger) *Pipeline {
	return &Pipeline{Runner: runner, Logger: logger}
}

// Run processes one trace. The returned report is never nil. Every local
// PDB hidden during the run has been renamed back when Run returns.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{TracePath: opts.TracePath, DownloadOnly: opts.DownloadOnly}

	g := guard.New(p.Logger)
	defer g.Restore()

	records, err := p.Analyze(ctx, opts)
	if err != nil {
		return report, err
	}
	report.Records = len(records)

	retriever := &retrieve.Retriever{
		Tool:       opts.Tools.RetrieveSymbols,
		Runner:     p.Runner,
		Logger:     p.Logger,
		AllowLocal: !opts.DownloadOnly,
	}
	stripper := &strip.Stripper{
		PDBCopy:      opts.Tools.PDBCopy,
		FastlinkTool: opts.Tools.FastlinkTool,
		InPlace:      opts.FastlinkInPlace,
		TempDir:      opts.TempDir,
		Runner:       p.Runner,
		Logger:       p.Logger,
	}

	var localPDBs []string
	hidden := make(map[string]bool)
	seen := make(map[string]bool)
	for _, rec := range records {
		entry := symcache.Resolve(opts.CacheRoot, rec)
		if entry.Exists {
			report.Hits++
			p.Logger.Debug("symcache file already exists, skipping", "path", entry.TargetPath)
			continue
		}
		if seen[entry.TargetPath] {
			continue
		}
		seen[entry.TargetPath] = true

		p.Logger.Info(fmt.Sprintf("found uncached reference to %s: %s - %d", rec.PDBBaseName(), rec.GUIDNoHyphens(), rec.Age))
		res := EntryResult{Record: rec, Entry: entry}

		resolved, err := retriever.Resolve(ctx, rec)
		var rerr *retrieve.Error
		switch {
		case errors.As(err, &rerr):
			p.Logger.Warn("failed to retrieve symbols", "pdb", rec.PDBBaseName())
			report.RetrievalFailures++
			report.Entries = append(report.Entries, res)
			continue
		case err != nil:
			return report, p.abort(report, err)
		}
		res.Source = resolved.Source
		res.PDBPath = resolved.Path

		if opts.DownloadOnly {
			p.Logger.Info("symbols retrieved", "path", resolved.Path)
			report.Entries = append(report.Entries, res)
			continue
		}

		ws, err := stripper.Strip(ctx, resolved.Path)
		if ws.Dir != "" {
			report.Workspaces = append(report.Workspaces, ws)
		}
		if err != nil {
			report.Entries = append(report.Entries, res)
			return report, p.abort(report, err)
		}
		res.Workspace = ws.Dir
		report.Entries = append(report.Entries, res)
		// several ages of one incrementally linked PDB share its path
		if resolved.Source == retrieve.SourceLocal && !hidden[resolved.Path] {
			hidden[resolved.Path] = true
			localPDBs = append(localPDBs, resolved.Path)
		}
	}

	if opts.DownloadOnly {
		return report, nil
	}
	if len(report.Workspaces) == 0 {
		if report.FoundUncached() {
			p.Logger.Info("no PDBs copied, nothing to do")
		} else {
			p.Logger.Info("no uncached PDBs found, nothing to do")
		}
		return report, nil
	}

	return report, p.build(ctx, opts, report, g, localPDBs)
}

// Analyze runs xperf over the trace and returns the Chrome symbol records
// it references.
func (p *Pipeline) Analyze(ctx context.Context, opts Options) ([]trace.SymbolRecord, error) {
	cmd := toolexec.Command{
		Path: opts.Tools.Xperf,
		// -tle tolerates lost events, -tti time inversions; -dbgid prints
		// symbol identification
		Args: []string{"-i", opts.TracePath, "-tle", "-tti", "-a", "symcache", "-dbgid"},
	}
	p.Logger.Info("> " + cmd.String())
	res := p.Runner.Run(ctx, cmd)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: %s exited with %d: %v", ErrTraceAnalysis, opts.Tools.Xperf, res.ExitCode, res.Err)
	}
	records, err := trace.Scan(bytes.NewReader(res.Output))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTraceAnalysis, err)
	}
	return records, nil
}

// abort disposes of the workspaces of a run that cannot reach the build.
func (p *Pipeline) abort(report *Report, err error) error {
	removeWorkspaces(p.Logger, report.Workspaces)
	switch {
	case errors.Is(err, strip.ErrNotStripped):
		p.Logger.Error("aborting symbol generation, symbol loading may be slow", "err", err)
		return fmt.Errorf("%w: %v", ErrStripFailed, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	default:
		return err
	}
}
