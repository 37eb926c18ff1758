// Package journal persists consultation records.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"wildrose/internal/domain"
)

// SQLiteJournal implements domain.Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

var _ domain.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS consultations (
			id          TEXT PRIMARY KEY,
			origin      TEXT NOT NULL,
			prompt      TEXT NOT NULL,
			reply       TEXT NOT NULL DEFAULT '',
			tool_calls  TEXT NOT NULL DEFAULT '[]',
			fallback    TEXT NOT NULL DEFAULT '',
			error_code  TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			started_at  TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func (j *SQLiteJournal) Record(ctx context.Context, rec domain.ConsultationRecord) error {
	if rec.ID == "" {
		return domain.NewDomainError("Journal.Record", domain.ErrInvalidInput, "record id is empty")
	}
	calls := rec.ToolCalls
	if calls == nil {
		calls = []domain.ToolCallRecord{}
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}
	var fallbackJSON []byte
	if rec.Fallback != nil {
		if fallbackJSON, err = json.Marshal(rec.Fallback); err != nil {
			return fmt.Errorf("marshal fallback: %w", err)
		}
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO consultations
			(id, origin, prompt, reply, tool_calls, fallback, error_code, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Trigger, rec.Prompt, rec.Reply, string(callsJSON), string(fallbackJSON),
		string(rec.ErrorCode), rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Recent(ctx context.Context, n int) ([]domain.ConsultationRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, origin, prompt, reply, tool_calls, fallback, error_code, error, started_at, duration_ms
		 FROM consultations ORDER BY rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConsultationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (j *SQLiteJournal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM consultations").Scan(&n)
	return n, err
}

func scanRecord(rows *sql.Rows) (domain.ConsultationRecord, error) {
	var (
		rec                                   domain.ConsultationRecord
		callsStr, fallbackStr, code, startStr string
		durationMS                            int64
	)
	if err := rows.Scan(&rec.ID, &rec.Trigger, &rec.Prompt, &rec.Reply, &callsStr, &fallbackStr,
		&code, &rec.Error, &startStr, &durationMS); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(callsStr), &rec.ToolCalls); err != nil {
		return rec, fmt.Errorf("unmarshal tool calls: %w", err)
	}
	if fallbackStr != "" {
		rec.Fallback = &domain.ToolCallRecord{}
		if err := json.Unmarshal([]byte(fallbackStr), rec.Fallback); err != nil {
			return rec, fmt.Errorf("unmarshal fallback: %w", err)
		}
	}
	rec.ErrorCode = domain.ErrorCode(code)
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startStr)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}
