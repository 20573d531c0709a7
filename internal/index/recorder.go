package index

import (
	"fmt"
	"time"
)

// Entry outcomes.
const (
	OutcomeGenerated       = "generated"
	OutcomeMissing         = "missing"
	OutcomeRetrievalFailed = "retrieval_failed"
	OutcomeDownloaded      = "downloaded"
)

const timeLayout = "2006-01-02T15:04:05Z"

// RunRecord is everything the ledger keeps about one pipeline run.
type RunRecord struct {
	TracePath  string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	SymbolPath string
	Retained   bool
	Entries    []EntryRow
}

type Stats struct {
	Entries   int
	Generated int
	Failed    int
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%d generated=%d failed=%d", s.Entries, s.Generated, s.Failed)
}

// RecordRun stores a run and its entries in one transaction.
func RecordRun(db *DB, run RunRecord) (int64, Stats, error) {
	var stats Stats

	tx, err := db.Raw().Begin()
	if err != nil {
		return 0, stats, err
	}
	defer tx.Rollback()

	retained := 0
	if run.Retained {
		retained = 1
	}
	res, err := tx.Exec(
		`INSERT INTO runs (trace_path, started_at, finished_at, status, symbol_path, retained)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.TracePath,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Status,
		run.SymbolPath,
		retained,
	)
	if err != nil {
		return 0, stats, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, stats, err
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO entries (run_id, cache_path, module, guid, age, source, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, stats, err
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		if _, err := stmt.Exec(runID, e.CachePath, e.Module, e.GUID, e.Age, e.Source, e.Outcome); err != nil {
			return 0, stats, err
		}
		stats.Entries++
		if e.Outcome == OutcomeGenerated {
			stats.Generated++
		} else if e.Outcome != OutcomeDownloaded {
			stats.Failed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, stats, err
	}
	return runID, stats, nil
}
