/*
Package sqlite provides the SQLite-backed LocalStore.

PURPOSE:
  Implements schedule.LocalStore and timeoff.QueueStore for the
  manager-owned database file. This store is authoritative for shift
  content; everything cloud-side is a projection of it.

KEY TABLES:
  employees           roster with optional cloud account id
  shifts              locally owned shift intervals, publish marker
  time_off            one row per (employee, date), UNIQUE enforced
  availability_rules  three-tier override rules
  shift_templates, weekly_templates, schedule_notes, shift_runners
  timeoff_queue       durable offline submissions awaiting connectivity

TRANSACTIONS:
  Multi-statement sequences (cascade deletes, replace-rules, publish
  markers) run inside explicit transactions so a crash never leaves a
  partial apply. Single-statement upserts rely on SQLite's own atomicity.

WAL MODE:
  The database opens with WAL and foreign keys on: readers don't block,
  one writer at a time, cascade deletes enforced by the engine.

USAGE:
  store, err := sqlite.New("./data/schedulehq.db")
  ...
  defer store.Close()
  Use ":memory:" for tests.

SEE ALSO:
  - schedule/store.go: interface definitions
  - timeoff/queue.go: the flusher draining timeoff_queue
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// Store implements schedule.LocalStore and timeoff.QueueStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes multi-statement transactions
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schemaStmts := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			job_code TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shifts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			published_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_employee_start ON shifts(employee_id, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_start ON shifts(start_at)`,
		`CREATE TABLE IF NOT EXISTS time_off (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			hours TEXT NOT NULL DEFAULT '0',
			start_minute INTEGER,
			end_minute INTEGER,
			status TEXT NOT NULL,
			group_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(employee_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_off_date_status ON time_off(date, status)`,
		`CREATE TABLE IF NOT EXISTS availability_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			class TEXT NOT NULL,
			date TEXT,
			weekday INTEGER,
			cycle_week INTEGER,
			all_day INTEGER NOT NULL DEFAULT 0,
			start_minute INTEGER NOT NULL DEFAULT 0,
			end_minute INTEGER NOT NULL DEFAULT 0,
			available INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_availability_employee ON availability_rules(employee_id)`,
		`CREATE TABLE IF NOT EXISTS shift_templates (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			job_code TEXT NOT NULL DEFAULT '',
			start_minute INTEGER NOT NULL DEFAULT 0,
			end_minute INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_notes (
			date TEXT PRIMARY KEY,
			text TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shift_runners (
			date TEXT NOT NULL,
			segment TEXT NOT NULL,
			employee_id INTEGER NOT NULL,
			PRIMARY KEY (date, segment)
		)`,
		`CREATE TABLE IF NOT EXISTS timeoff_queue (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			enqueued_at TEXT NOT NULL,
			last_error TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range schemaStmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// TIME ENCODING
// =============================================================================

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func encodeDay(t time.Time) string {
	return schedule.DayOf(t).Format(schedule.DateLayout)
}

func decodeDay(s string) time.Time {
	t, _ := time.Parse(schedule.DateLayout, s)
	return t
}

func encodeNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func encodeNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func decodeNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

var _ schedule.LocalStore = (*Store)(nil)
