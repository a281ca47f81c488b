package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// AVAILABILITY RULES
// =============================================================================

func (s *Store) ListAvailabilityRules(ctx context.Context, id schedule.EmployeeID) ([]schedule.AvailabilityRule, error) {
	return s.queryRules(ctx, selectRule+` WHERE employee_id = ? ORDER BY id`, int64(id))
}

func (s *Store) ListAllAvailabilityRules(ctx context.Context) ([]schedule.AvailabilityRule, error) {
	return s.queryRules(ctx, selectRule+` ORDER BY employee_id, id`)
}

// ReplaceAvailabilityRules swaps the employee's full rule set atomically.
// The delete-then-insert runs inside one transaction so a crash can never
// leave the employee with half a rule set.
func (s *Store) ReplaceAvailabilityRules(ctx context.Context, id schedule.EmployeeID, rules []schedule.AvailabilityRule) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM availability_rules WHERE employee_id = ?`, int64(id)); err != nil {
			return fmt.Errorf("replace rules: %w", err)
		}
		for _, r := range rules {
			if !r.Class.Valid() {
				return fmt.Errorf("%w: unknown rule class %q", schedule.ErrInvalidInput, r.Class)
			}
			var date sql.NullString
			if r.Date != nil {
				date = sql.NullString{String: encodeDay(*r.Date), Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO availability_rules (employee_id, class, date, weekday, cycle_week, all_day, start_minute, end_minute, available)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				int64(id), string(r.Class), date, encodeNullInt(r.Weekday), encodeNullInt(r.CycleWeek),
				boolInt(r.AllDay), r.StartMinute, r.EndMinute, boolInt(r.Available)); err != nil {
				return fmt.Errorf("replace rules: %w", err)
			}
		}
		return nil
	})
}

// =============================================================================
// SCANNING
// =============================================================================

const selectRule = `SELECT id, employee_id, class, date, weekday, cycle_week, all_day, start_minute, end_minute, available FROM availability_rules`

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]schedule.AvailabilityRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	defer rows.Close()

	var out []schedule.AvailabilityRule
	for rows.Next() {
		var r schedule.AvailabilityRule
		var empID int64
		var class string
		var date sql.NullString
		var weekday, cycleWeek sql.NullInt64
		var allDay, available int
		if err := rows.Scan(&r.ID, &empID, &class, &date, &weekday, &cycleWeek, &allDay, &r.StartMinute, &r.EndMinute, &available); err != nil {
			return nil, err
		}
		r.EmployeeID = schedule.EmployeeID(empID)
		r.Class = schedule.RuleClass(class)
		if date.Valid {
			d := decodeDay(date.String)
			r.Date = &d
		}
		r.Weekday = decodeNullInt(weekday)
		r.CycleWeek = decodeNullInt(cycleWeek)
		r.AllDay = allDay != 0
		r.Available = available != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
