// Package history keeps an append-only SQLite ledger of effect runs. It backs
// occurrence deduplication for scheduled runs and the `huebctl history`
// listing.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded effect run.
type Run struct {
	ID            string
	Effect        string
	Args          map[string]any
	OccurrenceKey string
	StartedAt     time.Time
	CompletedAt   *time.Time
	FailedAt      *time.Time
	Error         string
}

// Failed reports whether the run ended in an error.
func (r *Run) Failed() bool { return r.FailedAt != nil }

// Completed reports whether the run finished successfully.
func (r *Run) Completed() bool { return r.CompletedAt != nil }

// Ledger is the SQLite-backed run history.
type Ledger struct {
	db *sql.DB
}

// Open opens (and creates, if needed) the ledger database at the given path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_ledger (
			id TEXT PRIMARY KEY,
			effect TEXT NOT NULL,
			args TEXT,
			occurrence_key TEXT,
			started_at INTEGER NOT NULL,
			completed_at INTEGER,
			failed_at INTEGER,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_run_started ON run_ledger(started_at);
	`)
	if err != nil {
		return err
	}

	// First completion wins: at most one completed run per occurrence key.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_run_occurrence_completed
		ON run_ledger(occurrence_key)
		WHERE occurrence_key != '' AND completed_at IS NOT NULL;
	`)
	return err
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Begin records the start of a run and returns its id.
func (l *Ledger) Begin(effect string, args map[string]any, occurrenceKey string) (string, error) {
	id := uuid.NewString()

	var argsJSON []byte
	if args != nil {
		var err error
		argsJSON, err = json.Marshal(argsForJSON(args))
		if err != nil {
			return "", fmt.Errorf("marshal args: %w", err)
		}
	}

	_, err := l.db.Exec(`
		INSERT INTO run_ledger (id, effect, args, occurrence_key, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, effect, string(argsJSON), occurrenceKey, time.Now().UTC().Unix())
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Complete marks a run as finished. INSERT OR IGNORE semantics of the unique
// partial index make a concurrent duplicate completion a no-op.
func (l *Ledger) Complete(id string) error {
	_, err := l.db.Exec(`
		UPDATE OR IGNORE run_ledger SET completed_at = ? WHERE id = ?
	`, time.Now().UTC().Unix(), id)
	return err
}

// Fail marks a run as failed with the given error text.
func (l *Ledger) Fail(id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := l.db.Exec(`
		UPDATE run_ledger SET failed_at = ?, error = ? WHERE id = ?
	`, time.Now().UTC().Unix(), msg, id)
	return err
}

// HasCompleted reports whether any run with the given occurrence key finished
// successfully. An empty key never deduplicates.
func (l *Ledger) HasCompleted(occurrenceKey string) bool {
	if occurrenceKey == "" {
		return false
	}
	var one int
	err := l.db.QueryRow(`
		SELECT 1 FROM run_ledger
		WHERE occurrence_key = ? AND completed_at IS NOT NULL
		LIMIT 1
	`, occurrenceKey).Scan(&one)
	return err == nil && one == 1
}

// Recent returns the latest runs, newest first.
func (l *Ledger) Recent(limit int) ([]*Run, error) {
	rows, err := l.db.Query(`
		SELECT id, effect, args, occurrence_key, started_at, completed_at, failed_at, error
		FROM run_ledger
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var argsStr, occKey, errText sql.NullString
		var started int64
		var completed, failed sql.NullInt64

		if err := rows.Scan(&r.ID, &r.Effect, &argsStr, &occKey, &started, &completed, &failed, &errText); err != nil {
			return nil, err
		}

		r.StartedAt = time.Unix(started, 0).UTC()
		if completed.Valid {
			t := time.Unix(completed.Int64, 0).UTC()
			r.CompletedAt = &t
		}
		if failed.Valid {
			t := time.Unix(failed.Int64, 0).UTC()
			r.FailedAt = &t
		}
		if occKey.Valid {
			r.OccurrenceKey = occKey.String
		}
		if errText.Valid {
			r.Error = errText.String
		}
		if argsStr.Valid && argsStr.String != "" {
			r.Args = make(map[string]any)
			if err := json.Unmarshal([]byte(argsStr.String), &r.Args); err != nil {
				return nil, fmt.Errorf("unmarshal run args: %w", err)
			}
		}

		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Prune deletes runs older than the retention window and returns how many
// were removed.
func (l *Ledger) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Unix()
	res, err := l.db.Exec(`DELETE FROM run_ledger WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// argsForJSON renders durations as strings so the stored document stays
// readable.
func argsForJSON(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if d, ok := v.(time.Duration); ok {
			out[k] = d.String()
			continue
		}
		out[k] = v
	}
	return out
}
