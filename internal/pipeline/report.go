package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/retrieve"
	"github.com/Zuo-Peng/pdbwarm/internal/strip"
	"github.com/Zuo-Peng/pdbwarm/internal/symcache"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

var (
	// ErrStripFailed aborts a run: a broken workspace makes the build
	// meaningless.
	ErrStripFailed = errors.New("aborting symbol generation, stripped PDB was not produced")
	// ErrInterrupted is returned after the user interrupted a run and the
	// hidden PDBs were renamed back.
	ErrInterrupted = errors.New("interrupted")
	// ErrTraceAnalysis means xperf could not list the trace's symbols.
	ErrTraceAnalysis = errors.New("trace analysis failed")
)

// VerificationError lists the symcache files the build did not produce.
type VerificationError struct {
	Missing []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%d symcache file(s) not generated: %s", len(e.Missing), strings.Join(e.Missing, ", "))
}

// EntryResult follows one cache miss through the pipeline.
type EntryResult struct {
	Record trace.SymbolRecord
	Entry  symcache.Entry
	// Source is empty when no PDB could be retrieved.
	Source    retrieve.Source
	PDBPath   string
	Workspace string
	Generated bool
}

// Report is the outcome of one run.
type Report struct {
	TracePath    string
	DownloadOnly bool

	Records int
	Hits    int
	Entries []EntryResult

	Workspaces        []strip.Workspace
	RetrievalFailures int
	RenameFailures    int

	BuildRan    bool
	Interrupted bool
	Retained    bool
	// SymbolPath is the value _NT_SYMBOL_PATH had for the build.
	SymbolPath string
}

// FoundUncached reports whether the trace referenced any PDB that had no
// symcache file yet.
func (r *Report) FoundUncached() bool {
	return len(r.Entries) > 0
}

// Missing returns the target paths that were not generated.
func (r *Report) Missing() []string {
	var missing []string
	for _, e := range r.Entries {
		if !e.Generated {
			missing = append(missing, e.Entry.TargetPath)
		}
	}
	return missing
}

// RetryCommand is what a user runs before re-running the build by hand.
func (r *Report) RetryCommand() string {
	if !r.Retained {
		return ""
	}
	return RetryCommand(r.SymbolPath)
}

// RetryCommand points the symbol path at retained workspaces.
func RetryCommand(symbolPath string) string {
	if symbolPath == "" {
		return ""
	}
	return "set _NT_SYMBOL_PATH=" + symbolPath
}

// Status summarises the run for the ledger.
func (r *Report) Status(err error) string {
	var verr *VerificationError
	switch {
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrStripFailed):
		return "strip_failed"
	case errors.As(err, &verr) && r.RenameFailures > 0:
		return "rename_failed"
	case errors.As(err, &verr):
		return "verification_failed"
	case err != nil:
		return "error"
	case r.DownloadOnly:
		return "download_only"
	case !r.FoundUncached():
		return "cached"
	case len(r.Workspaces) == 0 && !r.BuildRan:
		return "nothing_to_do"
	default:
		return "ok"
	}
}
