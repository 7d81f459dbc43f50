// internal/journal/journal.go
package journal

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB records one row per collect cycle. Operational history only: the
// JSONL file stays the sole log output and the sole dedup state, the
// journal just answers "what did the last runs do".
type DB struct {
	db *sql.DB
}

// Run is one journaled cycle.
type Run struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Fetched       int
	ParseFailures int
	Excluded      int
	Appended      int
	Status        string // "ok" or "error"
	Error         string
}

// Open opens or creates the journal database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL so a watch loop and a history query don't block each other
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		fetched INTEGER NOT NULL,
		parse_failures INTEGER NOT NULL,
		excluded INTEGER NOT NULL,
		appended INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores one cycle's outcome.
func (d *DB) Insert(r *Run) error {
	_, err := d.db.Exec(`
		INSERT INTO runs (started_at, finished_at, fetched, parse_failures, excluded, appended, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339),
		r.Fetched, r.ParseFailures, r.Excluded, r.Appended, r.Status, r.Error)

	return err
}

// Recent returns the latest runs, newest first.
func (d *DB) Recent(limit int) ([]Run, error) {
	rows, err := d.db.Query(`
		SELECT id, started_at, finished_at, fetched, parse_failures, excluded, appended, status, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Failed returns the latest failed runs, newest first.
func (d *DB) Failed(limit int) ([]Run, error) {
	rows, err := d.db.Query(`
		SELECT id, started_at, finished_at, fetched, parse_failures, excluded, appended, status, error
		FROM runs
		WHERE status != 'ok'
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var startedStr, finishedStr string
		var errStr sql.NullString

		err := rows.Scan(&r.ID, &startedStr, &finishedStr,
			&r.Fetched, &r.ParseFailures, &r.Excluded, &r.Appended, &r.Status, &errStr)
		if err != nil {
			return nil, err
		}

		r.StartedAt, _ = time.Parse(time.RFC3339, startedStr)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finishedStr)
		if errStr.Valid {
			r.Error = errStr.String
		}

		runs = append(runs, r)
	}
	return runs, rows.Err()
}
