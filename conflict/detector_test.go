package conflict_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonS1999/ScheduleHQ-sub002/conflict"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDetector(t *testing.T) (*conflict.Detector, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return conflict.NewDetector(store), store
}

func addEmployee(t *testing.T, store *sqlite.Store, name string) schedule.EmployeeID {
	e := &schedule.Employee{Name: name}
	require.NoError(t, store.CreateEmployee(context.Background(), e))
	return e.ID
}

func addShift(t *testing.T, store *sqlite.Store, emp schedule.EmployeeID, start, end time.Time) schedule.ShiftID {
	s := &schedule.Shift{EmployeeID: emp, Start: start, End: end, Label: "floor"}
	require.NoError(t, store.CreateShift(context.Background(), s))
	return s.ID
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.April, day, hour, 0, 0, 0, time.UTC)
}

// =============================================================================
// OVERLAP SEMANTICS TESTS
// =============================================================================

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		want         bool
	}{
		{"partial overlap", at(1, 9), at(1, 17), at(1, 16), at(1, 20), true},
		{"containment", at(1, 9), at(1, 17), at(1, 10), at(1, 12), true},
		{"touching end-to-start", at(1, 9), at(1, 12), at(1, 12), at(1, 17), false},
		{"touching start-to-end", at(1, 12), at(1, 17), at(1, 9), at(1, 12), false},
		{"disjoint", at(1, 9), at(1, 10), at(1, 14), at(1, 16), false},
		{"identical", at(1, 9), at(1, 17), at(1, 9), at(1, 17), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, conflict.Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// Overlap is symmetric.
			assert.Equal(t, tc.want, conflict.Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

// =============================================================================
// DETECTOR TESTS
// =============================================================================

func TestListConflicts_FindsOverlap_IgnoresTouching(t *testing.T) {
	// GIVEN: An employee with a 09:00-17:00 shift
	// WHEN: Checking an overlapping window and a back-to-back window
	// THEN: Only the overlapping window conflicts

	d, store := newTestDetector(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "Alice")
	addShift(t, store, emp, at(1, 9), at(1, 17))

	got, err := d.ListConflicts(ctx, emp, at(1, 16), at(1, 20), conflict.NoExclusion)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	has, err := d.HasConflict(ctx, emp, at(1, 17), at(1, 21), conflict.NoExclusion)
	require.NoError(t, err)
	assert.False(t, has, "back-to-back shifts must not conflict")
}

func TestListConflicts_OtherEmployeeDoesNotConflict(t *testing.T) {
	// GIVEN: Two employees with overlapping shifts
	// WHEN: Checking one employee's window
	// THEN: The other employee's shift is irrelevant

	d, store := newTestDetector(t)
	ctx := context.Background()
	alice := addEmployee(t, store, "Alice")
	bob := addEmployee(t, store, "Bob")
	addShift(t, store, bob, at(1, 9), at(1, 17))

	has, err := d.HasConflict(ctx, alice, at(1, 10), at(1, 12), conflict.NoExclusion)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListConflicts_ExcludeSkipsEditedShift(t *testing.T) {
	// GIVEN: An employee editing an existing shift in place
	// WHEN: Checking the edited window with the shift's own id excluded
	// THEN: The shift does not conflict with itself, but others still do

	d, store := newTestDetector(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "Alice")
	edited := addShift(t, store, emp, at(1, 9), at(1, 17))

	has, err := d.HasConflict(ctx, emp, at(1, 10), at(1, 18), edited)
	require.NoError(t, err)
	assert.False(t, has, "shift must not conflict with itself during edit")

	addShift(t, store, emp, at(1, 18), at(1, 22))
	has, err = d.HasConflict(ctx, emp, at(1, 10), at(1, 19), edited)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestListConflicts_OvernightShiftFromPreviousDay(t *testing.T) {
	// GIVEN: An overnight shift starting April 1 22:00 and ending April 2 06:00
	// WHEN: Checking an April 2 morning window
	// THEN: The previous day's shift is found despite starting outside the day

	d, store := newTestDetector(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "Alice")
	addShift(t, store, emp, at(1, 22), at(2, 6))

	has, err := d.HasConflict(ctx, emp, at(2, 5), at(2, 9), conflict.NoExclusion)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestListConflicts_InvalidWindowRejected(t *testing.T) {
	// GIVEN: A window whose end is not after its start
	// WHEN: Checking conflicts
	// THEN: ErrInvalidWindow

	d, _ := newTestDetector(t)
	_, err := d.ListConflicts(context.Background(), 1, at(1, 17), at(1, 9), conflict.NoExclusion)
	assert.ErrorIs(t, err, schedule.ErrInvalidWindow)
}
