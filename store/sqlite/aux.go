package sqlite

import (
	"context"
	"fmt"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// TEMPLATES, NOTES, SHIFT RUNNERS - natural-key upserts
// =============================================================================

func (s *Store) UpsertShiftTemplate(ctx context.Context, t schedule.ShiftTemplate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_templates (id, label, job_code, start_minute, end_minute)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			job_code = excluded.job_code,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute`,
		t.ID, t.Label, t.JobCode, t.StartMinute, t.EndMinute)
	if err != nil {
		return fmt.Errorf("upsert shift template %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) ListShiftTemplates(ctx context.Context) ([]schedule.ShiftTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, job_code, start_minute, end_minute FROM shift_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shift templates: %w", err)
	}
	defer rows.Close()

	var out []schedule.ShiftTemplate
	for rows.Next() {
		var t schedule.ShiftTemplate
		if err := rows.Scan(&t.ID, &t.Label, &t.JobCode, &t.StartMinute, &t.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertWeeklyTemplate(ctx context.Context, t schedule.WeeklyTemplate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_templates (id, name, payload)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, payload = excluded.payload`,
		t.ID, t.Name, t.Payload)
	if err != nil {
		return fmt.Errorf("upsert weekly template %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) ListWeeklyTemplates(ctx context.Context) ([]schedule.WeeklyTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, payload FROM weekly_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list weekly templates: %w", err)
	}
	defer rows.Close()

	var out []schedule.WeeklyTemplate
	for rows.Next() {
		var t schedule.WeeklyTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Payload); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertScheduleNote(ctx context.Context, n schedule.ScheduleNote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_notes (date, text, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		encodeDay(n.Date), n.Text, encodeTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert schedule note %s: %w", encodeDay(n.Date), err)
	}
	return nil
}

func (s *Store) ListScheduleNotes(ctx context.Context, r schedule.DateRange) ([]schedule.ScheduleNote, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.queryNotes(ctx,
		`SELECT date, text, updated_at FROM schedule_notes WHERE date >= ? AND date <= ? ORDER BY date`,
		encodeDay(r.Start), encodeDay(r.End))
}

func (s *Store) ListAllScheduleNotes(ctx context.Context) ([]schedule.ScheduleNote, error) {
	return s.queryNotes(ctx, `SELECT date, text, updated_at FROM schedule_notes ORDER BY date`)
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]schedule.ScheduleNote, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedule notes: %w", err)
	}
	defer rows.Close()

	var out []schedule.ScheduleNote
	for rows.Next() {
		var n schedule.ScheduleNote
		var date, updated string
		if err := rows.Scan(&date, &n.Text, &updated); err != nil {
			return nil, err
		}
		n.Date = decodeDay(date)
		n.UpdatedAt = decodeTime(updated)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UpsertShiftRunner(ctx context.Context, sr schedule.ShiftRunner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_runners (date, segment, employee_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT(date, segment) DO UPDATE SET employee_id = excluded.employee_id`,
		encodeDay(sr.Date), sr.Segment, int64(sr.EmployeeID))
	if err != nil {
		return fmt.Errorf("upsert shift runner %s/%s: %w", encodeDay(sr.Date), sr.Segment, err)
	}
	return nil
}

func (s *Store) ListShiftRunners(ctx context.Context, r schedule.DateRange) ([]schedule.ShiftRunner, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.queryRunners(ctx,
		`SELECT date, segment, employee_id FROM shift_runners WHERE date >= ? AND date <= ? ORDER BY date, segment`,
		encodeDay(r.Start), encodeDay(r.End))
}

func (s *Store) ListAllShiftRunners(ctx context.Context) ([]schedule.ShiftRunner, error) {
	return s.queryRunners(ctx, `SELECT date, segment, employee_id FROM shift_runners ORDER BY date, segment`)
}

func (s *Store) queryRunners(ctx context.Context, query string, args ...any) ([]schedule.ShiftRunner, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shift runners: %w", err)
	}
	defer rows.Close()

	var out []schedule.ShiftRunner
	for rows.Next() {
		var sr schedule.ShiftRunner
		var date string
		var empID int64
		if err := rows.Scan(&date, &sr.Segment, &empID); err != nil {
			return nil, err
		}
		sr.Date = decodeDay(date)
		sr.EmployeeID = schedule.EmployeeID(empID)
		out = append(out, sr)
	}
	return out, rows.Err()
}
