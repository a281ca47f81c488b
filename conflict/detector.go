/*
Package conflict detects overlapping shift assignments for an employee.

PURPOSE:
  A proposed shift conflicts with an existing one iff the open intervals
  overlap: existing.Start < proposed.End AND existing.End > proposed.Start.
  Back-to-back shifts (one ends exactly when the other starts) do not
  conflict. Conflict is an expected decision input, returned as a value,
  never as an error.

EXCLUSION:
  When editing a shift in place, pass its id as exclude so the shift is not
  reported as conflicting with itself.
*/
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// NoExclusion is passed when no shift is being edited.
const NoExclusion = schedule.ShiftID(0)

// Detector checks proposed shift windows against stored shifts.
type Detector struct {
	Shifts schedule.ShiftStore
}

func NewDetector(shifts schedule.ShiftStore) *Detector {
	return &Detector{Shifts: shifts}
}

// HasConflict reports whether the proposed [start, end) window overlaps any
// other shift of the employee.
func (d *Detector) HasConflict(ctx context.Context, employeeID schedule.EmployeeID, start, end time.Time, exclude schedule.ShiftID) (bool, error) {
	conflicts, err := d.ListConflicts(ctx, employeeID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// ListConflicts returns every overlapping shift, for callers that present
// the collisions to the user.
func (d *Detector) ListConflicts(ctx context.Context, employeeID schedule.EmployeeID, start, end time.Time, exclude schedule.ShiftID) ([]schedule.Shift, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: conflict check end %s not after start %s", schedule.ErrInvalidWindow, end, start)
	}
	// Widen the day range by one day on each side: an overnight shift
	// starting the previous day can still overlap the proposed window.
	r := schedule.DateRange{
		Start: schedule.DayOf(start).AddDate(0, 0, -1),
		End:   schedule.DayOf(end).AddDate(0, 0, 1),
	}
	existing, err := d.Shifts.ListShiftsForEmployee(ctx, employeeID, r)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}

	var conflicts []schedule.Shift
	for _, s := range existing {
		if exclude != NoExclusion && s.ID == exclude {
			continue
		}
		if Overlaps(s.Start, s.End, start, end) {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts, nil
}

// Overlaps is the strict open-interval overlap test shared by the detector
// and its callers.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
