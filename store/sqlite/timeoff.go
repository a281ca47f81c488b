package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// TIME OFF - one row per (employee, date)
// =============================================================================

func (s *Store) CreateTimeOff(ctx context.Context, e *schedule.TimeOffEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO time_off (employee_id, date, category, hours, start_minute, end_minute, status, group_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(e.EmployeeID), encodeDay(e.Date), string(e.Category), e.Hours.String(),
		encodeNullInt(e.StartMinute), encodeNullInt(e.EndMinute),
		string(e.Status), e.GroupID, encodeTime(now), encodeTime(now))
	if err != nil {
		return fmt.Errorf("create time off: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create time off: %w", err)
	}
	e.ID = schedule.TimeOffID(id)
	return nil
}

func (s *Store) GetTimeOff(ctx context.Context, id schedule.TimeOffID) (*schedule.TimeOffEntry, error) {
	row := s.db.QueryRowContext(ctx, selectTimeOff+` WHERE id = ?`, int64(id))
	e, err := scanTimeOff(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: time off %d", schedule.ErrNotFound, id)
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateTimeOff(ctx context.Context, e *schedule.TimeOffEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_off SET category = ?, hours = ?, start_minute = ?, end_minute = ?, status = ?, group_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(e.Category), e.Hours.String(), encodeNullInt(e.StartMinute), encodeNullInt(e.EndMinute),
		string(e.Status), e.GroupID, encodeTime(e.UpdatedAt), int64(e.ID))
	if err != nil {
		return fmt.Errorf("update time off %d: %w", e.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: time off %d", schedule.ErrNotFound, e.ID)
	}
	return nil
}

func (s *Store) DeleteTimeOff(ctx context.Context, id schedule.TimeOffID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM time_off WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("delete time off %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: time off %d", schedule.ErrNotFound, id)
	}
	return nil
}

// UpsertTimeOffByDay inserts or replaces the row for (EmployeeID, Date).
// The UNIQUE constraint makes sync downloads converge instead of piling up
// duplicate rows.
func (s *Store) UpsertTimeOffByDay(ctx context.Context, e schedule.TimeOffEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	now := encodeTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO time_off (employee_id, date, category, hours, start_minute, end_minute, status, group_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(employee_id, date) DO UPDATE SET
			category = excluded.category,
			hours = excluded.hours,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			status = excluded.status,
			group_id = excluded.group_id,
			updated_at = excluded.updated_at`,
		int64(e.EmployeeID), encodeDay(e.Date), string(e.Category), e.Hours.String(),
		encodeNullInt(e.StartMinute), encodeNullInt(e.EndMinute),
		string(e.Status), e.GroupID, now, now)
	if err != nil {
		return fmt.Errorf("upsert time off %d/%s: %w", e.EmployeeID, encodeDay(e.Date), err)
	}
	return nil
}

func (s *Store) ListTimeOffInRange(ctx context.Context, r schedule.DateRange) ([]schedule.TimeOffEntry, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.queryTimeOff(ctx,
		selectTimeOff+` WHERE date >= ? AND date <= ? ORDER BY date, employee_id`,
		encodeDay(r.Start), encodeDay(r.End))
}

func (s *Store) ListTimeOffForEmployee(ctx context.Context, id schedule.EmployeeID, r schedule.DateRange) ([]schedule.TimeOffEntry, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.queryTimeOff(ctx,
		selectTimeOff+` WHERE employee_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		int64(id), encodeDay(r.Start), encodeDay(r.End))
}

func (s *Store) CountApprovedTimeOff(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM time_off WHERE date = ? AND status = ?`,
		encodeDay(day), string(schedule.StatusApproved)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved time off: %w", err)
	}
	return n, nil
}

// =============================================================================
// SCANNING
// =============================================================================

const selectTimeOff = `SELECT id, employee_id, date, category, hours, start_minute, end_minute, status, group_id, created_at, updated_at FROM time_off`

func (s *Store) queryTimeOff(ctx context.Context, query string, args ...any) ([]schedule.TimeOffEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time off: %w", err)
	}
	defer rows.Close()

	var out []schedule.TimeOffEntry
	for rows.Next() {
		e, err := scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanTimeOff(sc rowScanner) (schedule.TimeOffEntry, error) {
	var e schedule.TimeOffEntry
	var id, empID int64
	var date, category, hours, status, created, updated string
	var startMin, endMin sql.NullInt64
	if err := sc.Scan(&id, &empID, &date, &category, &hours, &startMin, &endMin, &status, &e.GroupID, &created, &updated); err != nil {
		return e, err
	}
	e.ID = schedule.TimeOffID(id)
	e.EmployeeID = schedule.EmployeeID(empID)
	e.Date = decodeDay(date)
	e.Category = schedule.TimeOffCategory(category)
	if d, err := decimal.NewFromString(hours); err == nil {
		e.Hours = d
	}
	e.StartMinute = decodeNullInt(startMin)
	e.EndMinute = decodeNullInt(endMin)
	e.Status = schedule.TimeOffStatus(status)
	e.CreatedAt = decodeTime(created)
	e.UpdatedAt = decodeTime(updated)
	return e, nil
}
