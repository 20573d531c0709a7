package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/pipeline"
	"github.com/Zuo-Peng/pdbwarm/internal/render"
	"github.com/Zuo-Peng/pdbwarm/internal/scan"
)

// RunItems lists ledger runs. The preview shows a run's entries; choosing a
// retained run copies its symbol path command, any other its trace path.
func RunItems(db *index.DB, runs []index.RunRow) []Item {
	items := make([]Item, 0, len(runs))
	for _, r := range runs {
		title := fmt.Sprintf("#%d %s", r.ID, filepath.Base(r.TracePath))
		detail := fmt.Sprintf("%s  %s  %d/%d", r.StartedAt, r.Status, r.Generated, r.Entries)
		copyText := r.TracePath
		if r.Retained {
			detail += "  retained"
			if cmd := pipeline.RetryCommand(r.SymbolPath); cmd != "" {
				copyText = cmd
			}
		}
		items = append(items, Item{
			Key:     "run:" + strconv.FormatInt(r.ID, 10),
			Title:   title,
			Detail:  detail,
			Copy:    copyText,
			Preview: runPreview(db, r),
		})
	}
	return items
}

func runPreview(db *index.DB, run index.RunRow) func(int) (string, error) {
	return func(width int) (string, error) {
		entries, err := db.GetEntries(run.ID)
		if err != nil {
			return "", fmt.Errorf("get entries of run %d: %w", run.ID, err)
		}
		var b strings.Builder
		err = render.RunEntries(&b, run, entries, render.Options{Color: true, Width: width})
		return b.String(), err
	}
}

// CacheItems lists symcache files. db may be nil, in which case previews
// carry no ledger outcome. Choosing a file copies its path.
func CacheItems(files []scan.FileInfo, db *index.DB) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		module := f.Module
		if module == "" {
			module = "-"
		}
		items = append(items, Item{
			Key:     "file:" + f.Path,
			Title:   filepath.Base(f.Path),
			Detail:  fmt.Sprintf("%s  %s", module, time.Unix(f.Mtime, 0).Format("2006-01-02 15:04")),
			Copy:    f.Path,
			Preview: cachePreview(f, db),
		})
	}
	return items
}

func cachePreview(f scan.FileInfo, db *index.DB) func(int) (string, error) {
	return func(width int) (string, error) {
		var outcome string
		if db != nil {
			var err error
			if outcome, err = db.LastOutcome(f.Path); err != nil {
				return "", fmt.Errorf("last outcome of %s: %w", f.Path, err)
			}
		}
		var b strings.Builder
		err := render.CacheFile(&b, f, outcome, render.Options{Color: true, Width: width})
		return b.String(), err
	}
}
