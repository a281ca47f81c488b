package publish_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud/memory"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/publish"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const validUID = "x9QmT4vW8nB2cF6hJ1kL5pR7s"

var (
	june     = schedule.DateRange{Start: day(2026, 6, 1), End: day(2026, 6, 30)}
	frozen   = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	frozenFn = func() time.Time { return frozen }
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) (*publish.Engine, *sqlite.Store, *memory.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cl := memory.New("mgr-1")
	eng := publish.NewEngine(store, cl, identity.NewResolver(store, cl, nil), nil)
	eng.Now = frozenFn
	return eng, store, cl
}

func createEmployee(t *testing.T, store *sqlite.Store, name, accountID string) schedule.EmployeeID {
	e := &schedule.Employee{Name: name, AccountID: accountID}
	require.NoError(t, store.CreateEmployee(context.Background(), e))
	return e.ID
}

func createShift(t *testing.T, store *sqlite.Store, emp schedule.EmployeeID, start time.Time, hours int) schedule.ShiftID {
	s := &schedule.Shift{EmployeeID: emp, Start: start, End: start.Add(time.Duration(hours) * time.Hour), Label: "floor"}
	require.NoError(t, store.CreateShift(context.Background(), s))
	return s.ID
}

// =============================================================================
// PUBLISH TESTS
// =============================================================================

func TestPublish_MaterializesProjection(t *testing.T) {
	// GIVEN: An employee with a valid account and two June shifts
	// WHEN: Publishing June
	// THEN: Both land in the 2026-06 shard, denormalized, and the local
	//       rows carry the publish marker

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice", validUID)
	s1 := createShift(t, store, emp, day(2026, 6, 3).Add(9*time.Hour), 8)
	createShift(t, store, emp, day(2026, 6, 4).Add(9*time.Hour), 8)

	res, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Published)
	assert.Zero(t, res.SkippedNoAccount)
	assert.Empty(t, res.FailedShards)

	docs, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	doc := docs["1_1"]
	assert.Equal(t, validUID, doc.AccountID)
	assert.Equal(t, "Alice", doc.EmployeeName)
	assert.Equal(t, "2026-06-03", doc.Date)
	assert.Equal(t, frozen, doc.PublishedAt)

	local, err := store.GetShift(ctx, s1)
	require.NoError(t, err)
	require.NotNil(t, local.PublishedAt)
	assert.Equal(t, frozen, local.PublishedAt.UTC())
}

func TestPublish_SkipsEmployeesWithoutValidAccounts(t *testing.T) {
	// GIVEN: One provisioned employee and one holding a placeholder id
	// WHEN: Publishing the range
	// THEN: The placeholder employee's shift is skipped and counted,
	//       never silently dropped

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	good := createEmployee(t, store, "Alice", validUID)
	bad := createEmployee(t, store, "Bob", "manager")
	createShift(t, store, good, day(2026, 6, 3).Add(9*time.Hour), 8)
	createShift(t, store, bad, day(2026, 6, 3).Add(9*time.Hour), 8)

	res, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Published)
	assert.Equal(t, 1, res.SkippedNoAccount)

	docs, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestPublish_Idempotent(t *testing.T) {
	// GIVEN: A published range
	// WHEN: Publishing it again
	// THEN: The projection overwrites in place rather than duplicating

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice", validUID)
	createShift(t, store, emp, day(2026, 6, 3).Add(9*time.Hour), 8)

	_, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)
	res, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Published)

	docs, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestPublish_SplitsMonthShards(t *testing.T) {
	// GIVEN: Shifts straddling a month boundary
	// WHEN: Publishing the covering range
	// THEN: Each shift lands in its own month shard

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice", validUID)
	createShift(t, store, emp, day(2026, 6, 30).Add(9*time.Hour), 8)
	createShift(t, store, emp, day(2026, 7, 1).Add(9*time.Hour), 8)

	rng := schedule.DateRange{Start: day(2026, 6, 25), End: day(2026, 7, 5)}
	res, err := eng.Publish(ctx, rng, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Published)

	months, err := cl.ListShiftMonths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06", "2026-07"}, months)
}

func TestPublish_ShardFailureIsPartial(t *testing.T) {
	// GIVEN: A cloud store that fails the next write
	// WHEN: Publishing a single-shard range
	// THEN: The failure is recorded per shard, not returned as a pass error

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice", validUID)
	createShift(t, store, emp, day(2026, 6, 3).Add(9*time.Hour), 8)
	cl.FailNextWrites(1)

	res, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Published)
	assert.Equal(t, []string{"2026-06"}, res.FailedShards)
	require.Len(t, res.Errors, 1)
}

func TestPublish_Unauthenticated_FailsFast(t *testing.T) {
	// GIVEN: No manager identity bound
	// WHEN: Publishing
	// THEN: ErrNotAuthenticated before any work

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cl := memory.New("")
	eng := publish.NewEngine(store, cl, identity.NewResolver(store, cl, nil), nil)

	_, err = eng.Publish(context.Background(), june, nil)
	assert.ErrorIs(t, err, schedule.ErrNotAuthenticated)
}

// =============================================================================
// UNPUBLISH TESTS
// =============================================================================

func TestUnpublish_RemovesRangeFromCloudOnly(t *testing.T) {
	// GIVEN: A published June
	// WHEN: Unpublishing the first half of the month
	// THEN: Only those cloud docs disappear; local shifts are untouched

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice", validUID)
	early := createShift(t, store, emp, day(2026, 6, 3).Add(9*time.Hour), 8)
	createShift(t, store, emp, day(2026, 6, 20).Add(9*time.Hour), 8)

	_, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)

	deleted, err := eng.Unpublish(ctx, schedule.DateRange{Start: day(2026, 6, 1), End: day(2026, 6, 15)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	docs, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	local, err := store.GetShift(ctx, early)
	require.NoError(t, err)
	assert.NotNil(t, local.PublishedAt, "unpublish never touches local rows")
}

func TestUnpublish_EmployeeFilter(t *testing.T) {
	// GIVEN: Two employees published in June
	// WHEN: Unpublishing only one of them
	// THEN: The other's projection survives

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	alice := createEmployee(t, store, "Alice", validUID)
	bob := createEmployee(t, store, "Bob", "q7W3eR5tY9uI1oP2aS4dF6gH8j")
	createShift(t, store, alice, day(2026, 6, 3).Add(9*time.Hour), 8)
	createShift(t, store, bob, day(2026, 6, 3).Add(9*time.Hour), 8)

	_, err := eng.Publish(ctx, june, nil)
	require.NoError(t, err)

	deleted, err := eng.Unpublish(ctx, june, []schedule.EmployeeID{alice})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	docs, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	for _, doc := range docs {
		assert.Equal(t, int64(bob), doc.EmployeeID)
	}
}

func TestUnpublish_NothingPublished_ReturnsZero(t *testing.T) {
	// GIVEN: An empty cloud
	// WHEN: Unpublishing a range
	// THEN: Zero deletions, no error

	eng, _, _ := newTestEngine(t)
	deleted, err := eng.Unpublish(context.Background(), june, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
