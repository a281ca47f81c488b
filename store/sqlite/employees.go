package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) CreateEmployee(ctx context.Context, e *schedule.Employee) error {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (account_id, name, job_code, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.AccountID, e.Name, e.JobCode, e.Email, encodeTime(now), encodeTime(now))
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	e.ID = schedule.EmployeeID(id)
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id schedule.EmployeeID) (*schedule.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, name, job_code, email, created_at, updated_at
		 FROM employees WHERE id = ?`, int64(id))
	return scanEmployee(row)
}

func (s *Store) ListEmployees(ctx context.Context) ([]schedule.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, name, job_code, email, created_at, updated_at
		 FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []schedule.Employee
	for rows.Next() {
		e, err := scanEmployeeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEmployee(ctx context.Context, e *schedule.Employee) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET account_id = ?, name = ?, job_code = ?, email = ?, updated_at = ?
		 WHERE id = ?`,
		e.AccountID, e.Name, e.JobCode, e.Email, encodeTime(e.UpdatedAt), int64(e.ID))
	if err != nil {
		return fmt.Errorf("update employee %d: %w", e.ID, err)
	}
	return requireRow(res, e.ID)
}

func (s *Store) SetAccountID(ctx context.Context, id schedule.EmployeeID, accountID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET account_id = ?, updated_at = ? WHERE id = ?`,
		accountID, encodeTime(time.Now().UTC()), int64(id))
	if err != nil {
		return fmt.Errorf("set account id for %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *Store) DeleteEmployee(ctx context.Context, id schedule.EmployeeID) error {
	// Foreign keys cascade shifts, time-off and availability rules, but the
	// delete still runs in a transaction so a future multi-table cleanup
	// stays atomic.
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, int64(id))
		if err != nil {
			return fmt.Errorf("delete employee %d: %w", id, err)
		}
		return requireRow(res, id)
	})
}

// UpsertEmployee inserts or updates by local id. An empty incoming account
// id never clobbers a stored one; the identity resolver owns downgrades.
func (s *Store) UpsertEmployee(ctx context.Context, e schedule.Employee) error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: upsert employee without local id", schedule.ErrInvalidInput)
	}
	now := encodeTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (id, account_id, name, job_code, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			account_id = CASE WHEN excluded.account_id = '' THEN employees.account_id ELSE excluded.account_id END,
			name = excluded.name,
			job_code = excluded.job_code,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		int64(e.ID), e.AccountID, e.Name, e.JobCode, e.Email, now, now)
	if err != nil {
		return fmt.Errorf("upsert employee %d: %w", e.ID, err)
	}
	return nil
}

// =============================================================================
// SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row *sql.Row) (*schedule.Employee, error) {
	e, err := scanEmployeeFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, schedule.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanEmployeeRows(rows *sql.Rows) (schedule.Employee, error) {
	return scanEmployeeFrom(rows)
}

func scanEmployeeFrom(sc rowScanner) (schedule.Employee, error) {
	var e schedule.Employee
	var id int64
	var created, updated string
	if err := sc.Scan(&id, &e.AccountID, &e.Name, &e.JobCode, &e.Email, &created, &updated); err != nil {
		return e, err
	}
	e.ID = schedule.EmployeeID(id)
	e.CreatedAt = decodeTime(created)
	e.UpdatedAt = decodeTime(updated)
	return e, nil
}

func requireRow(res sql.Result, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: employee %v", schedule.ErrNotFound, id)
	}
	return nil
}
