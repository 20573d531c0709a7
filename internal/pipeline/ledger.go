package pipeline

import (
	"time"

	"github.com/Zuo-Peng/pdbwarm/internal/index"
)

// RunRecord converts the report into a ledger record. err is the error the
// run returned.
func (r *Report) RunRecord(err error, started, finished time.Time) index.RunRecord {
	run := index.RunRecord{
		TracePath:  r.TracePath,
		StartedAt:  started,
		FinishedAt: finished,
		Status:     r.Status(err),
		SymbolPath: r.SymbolPath,
		Retained:   r.Retained,
	}
	for _, e := range r.Entries {
		run.Entries = append(run.Entries, index.EntryRow{
			CachePath: e.Entry.TargetPath,
			Module:    e.Record.Module.FileName,
			GUID:      e.Record.GUID.String(),
			Age:       e.Record.Age,
			Source:    string(e.Source),
			Outcome:   entryOutcome(e, r.DownloadOnly),
		})
	}
	return run
}

func entryOutcome(e EntryResult, downloadOnly bool) string {
	switch {
	case e.Generated:
		return index.OutcomeGenerated
	case e.Source == "":
		return index.OutcomeRetrievalFailed
	case downloadOnly:
		return index.OutcomeDownloaded
	default:
		return index.OutcomeMissing
	}
}
