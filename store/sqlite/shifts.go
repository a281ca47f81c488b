package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// SHIFTS - locally authoritative; the cloud copy is a projection
// =============================================================================

func (s *Store) CreateShift(ctx context.Context, sh *schedule.Shift) error {
	if err := sh.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	sh.CreatedAt, sh.UpdatedAt = now, now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shifts (employee_id, start_at, end_at, label, notes, created_at, updated_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(sh.EmployeeID), encodeTime(sh.Start), encodeTime(sh.End),
		sh.Label, sh.Notes, encodeTime(now), encodeTime(now), encodeNullTime(sh.PublishedAt))
	if err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	sh.ID = schedule.ShiftID(id)
	return nil
}

func (s *Store) GetShift(ctx context.Context, id schedule.ShiftID) (*schedule.Shift, error) {
	row := s.db.QueryRowContext(ctx, selectShift+` WHERE id = ?`, int64(id))
	sh, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: shift %d", schedule.ErrNotFound, id)
		}
		return nil, err
	}
	return &sh, nil
}

func (s *Store) UpdateShift(ctx context.Context, sh *schedule.Shift) error {
	if err := sh.Validate(); err != nil {
		return err
	}
	sh.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET employee_id = ?, start_at = ?, end_at = ?, label = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		int64(sh.EmployeeID), encodeTime(sh.Start), encodeTime(sh.End),
		sh.Label, sh.Notes, encodeTime(sh.UpdatedAt), int64(sh.ID))
	if err != nil {
		return fmt.Errorf("update shift %d: %w", sh.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: shift %d", schedule.ErrNotFound, sh.ID)
	}
	return nil
}

func (s *Store) DeleteShift(ctx context.Context, id schedule.ShiftID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("delete shift %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: shift %d", schedule.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListShiftsInRange(ctx context.Context, r schedule.DateRange, employeeIDs []schedule.EmployeeID) ([]schedule.Shift, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	// The range is inclusive calendar days; shifts are selected by start
	// instant within [start 00:00, end+1d 00:00).
	from := encodeTime(schedule.DayOf(r.Start))
	to := encodeTime(schedule.DayOf(r.End).AddDate(0, 0, 1))

	query := selectShift + ` WHERE start_at >= ? AND start_at < ?`
	args := []any{from, to}
	if len(employeeIDs) > 0 {
		query += ` AND employee_id IN (` + placeholders(len(employeeIDs)) + `)`
		for _, id := range employeeIDs {
			args = append(args, int64(id))
		}
	}
	query += ` ORDER BY start_at, id`
	return s.queryShifts(ctx, query, args...)
}

func (s *Store) ListShiftsForEmployee(ctx context.Context, id schedule.EmployeeID, r schedule.DateRange) ([]schedule.Shift, error) {
	return s.ListShiftsInRange(ctx, r, []schedule.EmployeeID{id})
}

func (s *Store) MarkShiftsPublished(ctx context.Context, ids []schedule.ShiftID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stamp := encodeTime(at)
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE shifts SET published_at = ? WHERE id = ?`, stamp, int64(id)); err != nil {
				return fmt.Errorf("mark published %d: %w", id, err)
			}
		}
		return nil
	})
}

// =============================================================================
// SCANNING
// =============================================================================

const selectShift = `SELECT id, employee_id, start_at, end_at, label, notes, created_at, updated_at, published_at FROM shifts`

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]schedule.Shift, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []schedule.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func scanShift(sc rowScanner) (schedule.Shift, error) {
	var sh schedule.Shift
	var id, empID int64
	var start, end, created, updated string
	var published sql.NullString
	if err := sc.Scan(&id, &empID, &start, &end, &sh.Label, &sh.Notes, &created, &updated, &published); err != nil {
		return sh, err
	}
	sh.ID = schedule.ShiftID(id)
	sh.EmployeeID = schedule.EmployeeID(empID)
	sh.Start = decodeTime(start)
	sh.End = decodeTime(end)
	sh.CreatedAt = decodeTime(created)
	sh.UpdatedAt = decodeTime(updated)
	if published.Valid {
		t := decodeTime(published.String)
		sh.PublishedAt = &t
	}
	return sh, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
