package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_path  TEXT NOT NULL,
    started_at  TEXT NOT NULL DEFAULT '',
    finished_at TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT '',
    symbol_path TEXT NOT NULL DEFAULT '',
    retained    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    run_id     INTEGER NOT NULL,
    cache_path TEXT NOT NULL,
    module     TEXT NOT NULL DEFAULT '',
    guid       TEXT NOT NULL DEFAULT '',
    age        INTEGER NOT NULL DEFAULT 0,
    source     TEXT NOT NULL DEFAULT '',
    outcome    TEXT NOT NULL,
    PRIMARY KEY (run_id, cache_path)
);

CREATE INDEX IF NOT EXISTS entries_cache_path ON entries(cache_path);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	// schema version tracking
	db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)")
	d := &DB{db: db}
	d.migrateSchemaVersion()

	return d, nil
}

// schemaVersion should be bumped whenever the ledger layout changes.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func (d *DB) RunCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

func (d *DB) EntryCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n)
	return n, err
}

type RunRow struct {
	ID         int64
	TracePath  string
	StartedAt  string
	FinishedAt string
	Status     string
	SymbolPath string
	Retained   bool
	Entries    int
	Generated  int
}

// RecentRuns returns the latest runs first, with entry counts.
func (d *DB) RecentRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(`
		SELECT r.id, r.trace_path, r.started_at, r.finished_at, r.status, r.symbol_path, r.retained,
		       COUNT(e.cache_path),
		       COALESCE(SUM(CASE WHEN e.outcome = ? THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN entries e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?`,
		OutcomeGenerated, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		var retained int
		if err := rows.Scan(&r.ID, &r.TracePath, &r.StartedAt, &r.FinishedAt, &r.Status, &r.SymbolPath, &retained, &r.Entries, &r.Generated); err != nil {
			return nil, err
		}
		r.Retained = retained != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type EntryRow struct {
	CachePath string
	Module    string
	GUID      string
	Age       uint32
	Source    string
	Outcome   string
}

func (d *DB) GetEntries(runID int64) ([]EntryRow, error) {
	rows, err := d.db.Query(
		"SELECT cache_path, module, guid, age, source, outcome FROM entries WHERE run_id = ? ORDER BY cache_path",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EntryRow
	for rows.Next() {
		var e EntryRow
		if err := rows.Scan(&e.CachePath, &e.Module, &e.GUID, &e.Age, &e.Source, &e.Outcome); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastOutcome returns the most recent outcome recorded for a cache file, or
// "" if it was never a target.
func (d *DB) LastOutcome(cachePath string) (string, error) {
	var outcome string
	err := d.db.QueryRow(
		"SELECT outcome FROM entries WHERE cache_path = ? ORDER BY run_id DESC LIMIT 1",
		cachePath,
	).Scan(&outcome)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return outcome, err
}
