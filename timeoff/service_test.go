package timeoff_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonS1999/ScheduleHQ-sub002/approval"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud/memory"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
	"github.com/JasonS1999/ScheduleHQ-sub002/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	july6 = time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC)
	july8 = time.Date(2026, time.July, 8, 0, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*timeoff.Service, *sqlite.Store, *memory.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cl := memory.New("mgr-1")
	svc := timeoff.NewService(store, cl, store, nil, approval.NewPolicy(store), nil)
	return svc, store, cl
}

func createEmployee(t *testing.T, store *sqlite.Store, name string) schedule.EmployeeID {
	e := &schedule.Employee{Name: name}
	require.NoError(t, store.CreateEmployee(context.Background(), e))
	return e.ID
}

func ptoRequest(emp schedule.EmployeeID, start, end time.Time) timeoff.Request {
	return timeoff.Request{
		EmployeeID:  emp,
		Range:       schedule.DateRange{Start: start, End: end},
		Category:    schedule.CategoryPTO,
		HoursPerDay: decimal.NewFromInt(8),
	}
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmitOrQueue_SingleDay_AutoApproved(t *testing.T) {
	// GIVEN: An empty day and an eligible single-day PTO request
	// WHEN: Submitting
	// THEN: Auto-approved, written locally and to the cloud, not queued

	svc, store, cl := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")

	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err)
	assert.True(t, sub.AutoApproved)
	assert.False(t, sub.Queued)
	require.Len(t, sub.Entries, 1)
	assert.Equal(t, schedule.StatusApproved, sub.Entries[0].Status)
	assert.NotEmpty(t, sub.GroupID)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSubmitOrQueue_ThresholdReached_StaysPending(t *testing.T) {
	// GIVEN: Two employees already approved for the day
	// WHEN: A third submits the same day
	// THEN: The new entry stays pending

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		other := createEmployee(t, store, "seed")
		_, err := svc.SubmitOrQueue(ctx, ptoRequest(other, july6, july6))
		require.NoError(t, err)
	}

	emp := createEmployee(t, store, "Late")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err)
	assert.False(t, sub.AutoApproved)
	assert.Equal(t, schedule.StatusPending, sub.Entries[0].Status)
}

func TestSubmitOrQueue_MultiDay_AlwaysPending_SharesGroup(t *testing.T) {
	// GIVEN: A three-day request on empty days
	// WHEN: Submitting
	// THEN: Every day is pending and linked by one group id

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")

	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july8))
	require.NoError(t, err)
	assert.False(t, sub.AutoApproved)
	require.Len(t, sub.Entries, 3)
	for _, e := range sub.Entries {
		assert.Equal(t, schedule.StatusPending, e.Status)
		assert.Equal(t, sub.GroupID, e.GroupID)
	}
}

func TestSubmitOrQueue_UnknownCategoryRejected(t *testing.T) {
	// GIVEN: A request with a made-up category
	// WHEN: Submitting
	// THEN: ErrInvalidInput, nothing persisted

	svc, store, _ := newTestService(t)
	emp := createEmployee(t, store, "Alice")
	req := ptoRequest(emp, july6, july6)
	req.Category = "sabbatical"

	_, err := svc.SubmitOrQueue(context.Background(), req)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)
}

func TestSubmitOrQueue_UnknownEmployeeRejected(t *testing.T) {
	// GIVEN: A request for an employee id that does not exist
	// WHEN: Submitting
	// THEN: ErrNotFound

	svc, _, _ := newTestService(t)
	_, err := svc.SubmitOrQueue(context.Background(), ptoRequest(999, july6, july6))
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

// =============================================================================
// OFFLINE QUEUE TESTS
// =============================================================================

func TestSubmitOrQueue_CloudOutage_QueuesInsteadOfFailing(t *testing.T) {
	// GIVEN: A cloud store that is down
	// WHEN: Submitting a request
	// THEN: The local entry lands, the submission reports queued, and the
	//       durable queue holds the cloud write

	svc, store, cl := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	cl.FailNextWrites(1)

	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err, "transient outage is never a submission error")
	assert.True(t, sub.Queued)

	entries, err := store.ListTimeOffForEmployee(ctx, emp, schedule.DateRange{Start: july6, End: july6})
	require.NoError(t, err)
	assert.Len(t, entries, 1, "local write happens before the cloud push")

	items, err := store.ListQueuedTimeOff(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cloud.TimeOffDocID(emp, july6, schedule.CategoryPTO), items[0].DocID)
}

// =============================================================================
// WITHDRAW TESTS
// =============================================================================

func TestWithdraw_PendingOwnedEntry(t *testing.T) {
	// GIVEN: A pending multi-day entry
	// WHEN: The owner withdraws one day
	// THEN: That day disappears locally and in the cloud

	svc, store, cl := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july8))
	require.NoError(t, err)

	require.NoError(t, svc.Withdraw(ctx, emp, sub.Entries[0].ID))

	entries, err := store.ListTimeOffForEmployee(ctx, emp, schedule.DateRange{Start: july6, End: july8})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestWithdraw_NotOwner(t *testing.T) {
	// GIVEN: Bob trying to withdraw Alice's entry
	// WHEN: Withdrawing
	// THEN: ErrNotOwner; the entry survives

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	alice := createEmployee(t, store, "Alice")
	bob := createEmployee(t, store, "Bob")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(alice, july6, july8))
	require.NoError(t, err)

	err = svc.Withdraw(ctx, bob, sub.Entries[0].ID)
	assert.ErrorIs(t, err, schedule.ErrNotOwner)
}

func TestWithdraw_ReviewedEntryImmutable(t *testing.T) {
	// GIVEN: An auto-approved (reviewed) entry
	// WHEN: The owner withdraws it
	// THEN: ErrImmutableEntry

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err)
	require.True(t, sub.AutoApproved)

	err = svc.Withdraw(ctx, emp, sub.Entries[0].ID)
	assert.ErrorIs(t, err, schedule.ErrImmutableEntry)
}

// =============================================================================
// REVIEW TESTS
// =============================================================================

func TestReview_PendingToDenied_ThenImmutable(t *testing.T) {
	// GIVEN: A pending entry
	// WHEN: Denying it, then reviewing again
	// THEN: The first review sticks; the second hits the immutability rule

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july8))
	require.NoError(t, err)
	id := sub.Entries[0].ID

	require.NoError(t, svc.Review(ctx, id, false))

	entry, err := store.GetTimeOff(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusDenied, entry.Status)

	err = svc.Review(ctx, id, true)
	assert.ErrorIs(t, err, schedule.ErrImmutableEntry)
}

func TestReverseReview_ReturnsEntryToPending(t *testing.T) {
	// GIVEN: A denied entry
	// WHEN: The manager reverses the review
	// THEN: The entry is pending again and can be re-reviewed

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july8))
	require.NoError(t, err)
	id := sub.Entries[0].ID

	require.NoError(t, svc.Review(ctx, id, false))
	require.NoError(t, svc.ReverseReview(ctx, id))

	entry, err := store.GetTimeOff(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusPending, entry.Status)

	require.NoError(t, svc.Review(ctx, id, true))
}

func TestReverseReview_PendingEntryRejected(t *testing.T) {
	// GIVEN: A still-pending entry
	// WHEN: Reversing its review
	// THEN: ErrInvalidInput; there is nothing to reverse

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	sub, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july8))
	require.NoError(t, err)

	err = svc.ReverseReview(ctx, sub.Entries[0].ID)
	assert.ErrorIs(t, err, schedule.ErrInvalidInput)
}

// =============================================================================
// FLUSHER TESTS
// =============================================================================

func TestFlushOnce_DeliversWhenCloudReturns(t *testing.T) {
	// GIVEN: A submission queued during an outage
	// WHEN: Flushing after connectivity returns
	// THEN: The doc reaches the cloud and leaves the queue

	svc, store, cl := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	cl.FailNextWrites(1)
	_, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err)

	f := timeoff.NewFlusher(store, cl, nil)
	delivered, remaining, err := f.FlushOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, remaining)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	items, err := store.ListQueuedTimeOff(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFlushOnce_FailedItemsStayWithBumpedAttempts(t *testing.T) {
	// GIVEN: A queued item and a cloud that is still down
	// WHEN: Flushing
	// THEN: The item stays queued with its attempt count bumped and the
	//       failure recorded; the flush itself does not error

	svc, store, cl := newTestService(t)
	ctx := context.Background()
	emp := createEmployee(t, store, "Alice")
	cl.FailNextWrites(2) // one for the submission, one for the flush

	_, err := svc.SubmitOrQueue(ctx, ptoRequest(emp, july6, july6))
	require.NoError(t, err)

	f := timeoff.NewFlusher(store, cl, nil)
	delivered, remaining, err := f.FlushOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Equal(t, 1, remaining)

	items, err := store.ListQueuedTimeOff(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Attempts)
	assert.NotEmpty(t, items[0].LastError)

	// The next flush, with the cloud back, drains the queue.
	delivered, remaining, err = f.FlushOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, remaining)
}

func TestFlusher_StartStop(t *testing.T) {
	// GIVEN: A running flusher
	// WHEN: Stopping it
	// THEN: Stop returns cleanly and double Start/Stop are no-ops

	_, store, cl := newTestService(t)
	f := timeoff.NewFlusher(store, cl, nil)
	f.Interval = 10 * time.Millisecond

	f.Start()
	f.Start() // no-op
	time.Sleep(30 * time.Millisecond)
	f.Stop()
	f.Stop() // no-op
}
