package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/pipeline"
	"github.com/Zuo-Peng/pdbwarm/internal/scan"
)

type Options struct {
	Color bool
	Width int // wrap width (0 = no wrap)
}

// StdoutOptions enables colours and wrapping only when stdout is a terminal.
func StdoutOptions() Options {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return Options{}
	}
	opts := Options{Color: true}
	if w, _, err := term.GetSize(fd); err == nil {
		opts.Width = w
	}
	return opts
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

type lineWriter struct {
	w     io.Writer
	width int
	err   error
}

func (lw *lineWriter) line(s string) {
	if lw.err != nil {
		return
	}
	for _, wl := range wrapLine(s, lw.width) {
		if _, err := io.WriteString(lw.w, wl+"\n"); err != nil {
			lw.err = err
			return
		}
	}
}

func (lw *lineWriter) linef(format string, args ...any) {
	lw.line(fmt.Sprintf(format, args...))
}

// Report writes the outcome of a pipeline run. err is the error the run
// returned.
func Report(w io.Writer, r *pipeline.Report, err error, opts Options) error {
	st := newStyles(opts.Color)
	lw := &lineWriter{w: w, width: opts.Width}

	lw.line(st.title.Render("=== " + r.TracePath + " ==="))
	lw.linef("  Modules:  %d", r.Records)
	lw.linef("  Cached:   %d", r.Hits)
	lw.linef("  Uncached: %d", len(r.Entries))

	if len(r.Entries) > 0 {
		lw.line("")
		for _, e := range r.Entries {
			label, style := entryLabel(e, r.DownloadOnly, st)
			detail := string(e.Source)
			if detail == "" {
				detail = "no pdb"
			}
			lw.linef("  %s %s %s", style.Render(runewidth.FillRight(label, 10)), e.Record.Module.FileName,
				st.dim.Render(e.Entry.TargetPath+" ("+detail+")"))
		}
	}

	if r.RetrievalFailures > 0 {
		lw.line(st.warn.Render(fmt.Sprintf("  Retrieval failures: %d", r.RetrievalFailures)))
	}
	if r.RenameFailures > 0 {
		lw.line(st.fail.Render(fmt.Sprintf("  Rename failures: %d, symcache build skipped", r.RenameFailures)))
	}

	lw.line("")
	status := r.Status(err)
	switch status {
	case "ok", "cached", "download_only":
		lw.line("Status: " + st.ok.Render(status))
	case "nothing_to_do":
		lw.line("Status: " + st.warn.Render(status))
	default:
		lw.line("Status: " + st.fail.Render(status))
	}
	if err != nil {
		lw.line(st.fail.Render("Error: " + err.Error()))
	}
	if cmd := r.RetryCommand(); cmd != "" {
		lw.line("Stripped PDBs retained. Set the symbol path before rerunning xperf:")
		lw.line("  " + cmd)
	}
	return lw.err
}

func entryLabel(e pipeline.EntryResult, downloadOnly bool, st styles) (string, lipgloss.Style) {
	switch {
	case e.Generated:
		return "generated", st.ok
	case e.Source == "":
		return "no pdb", st.warn
	case downloadOnly:
		return "retrieved", st.ok
	default:
		return "missing", st.fail
	}
}

// History writes the ledger's recent runs as a table. The trace column is
// truncated to fit width.
func History(w io.Writer, runs []index.RunRow, opts Options) error {
	st := newStyles(opts.Color)
	lw := &lineWriter{w: w}
	if len(runs) == 0 {
		lw.line("No runs recorded.")
		return lw.err
	}

	const statusW = 20
	lw.line(st.title.Render(fmt.Sprintf("%5s  %-20s  %s  %7s  %s", "ID", "STARTED", runewidth.FillRight("STATUS", statusW), "GEN", "TRACE")))
	for _, r := range runs {
		prefix := fmt.Sprintf("%5d  %-20s  %s  %7s  ", r.ID, r.StartedAt, runewidth.FillRight(r.Status, statusW),
			fmt.Sprintf("%d/%d", r.Generated, r.Entries))
		trace := r.TracePath
		if opts.Width > 0 {
			trace = runewidth.Truncate(trace, max(opts.Width-runewidth.StringWidth(prefix), 10), "…")
		}
		if r.Retained {
			trace += st.warn.Render(" [retained]")
		}
		lw.line(prefix + trace)
	}
	return lw.err
}

// RunEntries writes one ledger run with the outcome of each of its entries.
func RunEntries(w io.Writer, run index.RunRow, entries []index.EntryRow, opts Options) error {
	st := newStyles(opts.Color)
	lw := &lineWriter{w: w, width: opts.Width}

	lw.line(st.title.Render(fmt.Sprintf("=== run %d: %s ===", run.ID, run.TracePath)))
	lw.linef("  Started:  %s", run.StartedAt)
	lw.linef("  Finished: %s", run.FinishedAt)
	lw.linef("  Status:   %s", run.Status)
	if cmd := pipeline.RetryCommand(run.SymbolPath); run.Retained && cmd != "" {
		lw.line(st.warn.Render("  Retained: " + cmd))
	}
	if len(entries) == 0 {
		lw.line("")
		lw.line("No uncached PDBs.")
		return lw.err
	}

	lw.line("")
	for _, e := range entries {
		style := st.fail
		switch e.Outcome {
		case index.OutcomeGenerated, index.OutcomeDownloaded:
			style = st.ok
		case index.OutcomeRetrievalFailed:
			style = st.warn
		}
		lw.linef("  %s %s", style.Render(runewidth.FillRight(e.Outcome, 16)), e.Module)
		lw.line(st.dim.Render(fmt.Sprintf("    %s age %d %s", e.GUID, e.Age, e.Source)))
		lw.line(st.dim.Render("    " + e.CachePath))
	}
	return lw.err
}

// CacheFile writes the details of one symcache file. lastOutcome is the
// ledger's most recent outcome for it, or "".
func CacheFile(w io.Writer, f scan.FileInfo, lastOutcome string, opts Options) error {
	st := newStyles(opts.Color)
	lw := &lineWriter{w: w, width: opts.Width}

	lw.line(st.title.Render(f.Path))
	lw.linef("  Size:     %s", formatSize(f.Size))
	lw.linef("  Modified: %s", time.Unix(f.Mtime, 0).Format("2006-01-02 15:04:05"))
	if f.Module == "" {
		lw.line(st.dim.Render("  Not named by debug signature."))
		return lw.err
	}
	lw.linef("  Module:   %s", f.Module)
	lw.linef("  GUID:     %s", f.GUID)
	lw.linef("  Age:      %d", f.Age)
	if lastOutcome != "" {
		lw.linef("  Ledger:   %s", lastOutcome)
	}
	return lw.err
}

// Cache writes the symcache store listing followed by per-module totals.
func Cache(w io.Writer, root string, files []scan.FileInfo, opts Options) error {
	st := newStyles(opts.Color)
	lw := &lineWriter{w: w}
	lw.line(st.title.Render("=== " + root + " ==="))
	if len(files) == 0 {
		lw.line("No symcache files.")
		return lw.err
	}

	for _, f := range files {
		module := f.Module
		if module == "" {
			module = "-"
		}
		prefix := fmt.Sprintf("%9s  %s  %s  ", formatSize(f.Size),
			time.Unix(f.Mtime, 0).Format("2006-01-02 15:04"), runewidth.FillRight(module, 18))
		path := f.Path
		if opts.Width > 0 {
			path = runewidth.Truncate(path, max(opts.Width-runewidth.StringWidth(prefix), 10), "…")
		}
		lw.line(prefix + st.dim.Render(path))
	}

	totals := scan.Totals(files)
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	lw.line("")
	var sum int64
	for _, name := range names {
		lw.linef("  %s %9s", runewidth.FillRight(name, 18), formatSize(totals[name]))
		sum += totals[name]
	}
	lw.linef("  %s %9s  (%d files)", runewidth.FillRight("total", 18), formatSize(sum), len(files))
	return lw.err
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
