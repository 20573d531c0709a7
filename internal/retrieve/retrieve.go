// Package retrieve locates the PDB for a symbol record, either by
// downloading it with RetrieveSymbols or by falling back to a locally built
// copy.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

type Source string

const (
	SourceDownloaded Source = "downloaded"
	SourceLocal      Source = "local"
)

var foundRe = regexp.MustCompile(`^Found .*file - placed it in (.*)`)

// Resolved is a PDB that can be stripped.
type Resolved struct {
	Path   string
	Source Source
}

// Error reports that no PDB could be found for a record. It never aborts
// a run.
type Error struct {
	Record trace.SymbolRecord
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to retrieve symbols for %s %s %d", e.Record.PDBBaseName(), e.Record.GUIDNoHyphens(), e.Record.Age)
}

type Retriever struct {
	Tool   string
	Runner toolexec.Runner
	Logger *slog.Logger
	// AllowLocal enables the fallback to PDBs that exist at the path
	// recorded in the trace.
	AllowLocal bool
}

// Resolve finds a PDB for rec. It returns *Error when neither retrieval
// nor the local fallback produced one; the context error is returned as is.
func (r *Retriever) Resolve(ctx context.Context, rec trace.SymbolRecord) (Resolved, error) {
	cmd := toolexec.Command{
		Path: r.Tool,
		Args: []string{rec.GUIDNoHyphens(), strconv.FormatUint(uint64(rec.Age), 10), rec.PDBBaseName()},
	}
	r.Logger.Info("> " + cmd.String())
	res := r.Runner.Run(ctx, cmd)
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}
	if res.Err != nil {
		r.Logger.Warn("retrieve tool did not run", "tool", r.Tool, "err", res.Err)
	}

	if p := CachedPath(res.Lines()); p != "" {
		return Resolved{Path: p, Source: SourceDownloaded}, nil
	}

	if r.AllowLocal && isFile(rec.PDBPath) {
		r.Logger.Info("using locally built symbols", "path", rec.PDBPath)
		return Resolved{Path: rec.PDBPath, Source: SourceLocal}, nil
	}
	return Resolved{}, &Error{Record: rec}
}

// CachedPath scans RetrieveSymbols output for the location of the
// downloaded PDB. The last match wins.
func CachedPath(lines []string) string {
	var path string
	for _, line := range lines {
		m := foundRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		// RetrieveSymbols ends the sentence with a period
		path = strings.TrimSuffix(m[1], ".")
	}
	return path
}

func isFile(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
