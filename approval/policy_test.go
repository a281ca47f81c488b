package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonS1999/ScheduleHQ-sub002/approval"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var may5 = time.Date(2026, time.May, 5, 0, 0, 0, 0, time.UTC)

func newTestPolicy(t *testing.T) (*approval.Policy, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return approval.NewPolicy(store), store
}

// approveDay records an approved entry for a fresh employee on the day.
func approveDay(t *testing.T, store *sqlite.Store, day time.Time) {
	ctx := context.Background()
	e := &schedule.Employee{Name: "seed"}
	require.NoError(t, store.CreateEmployee(ctx, e))
	require.NoError(t, store.UpsertTimeOffByDay(ctx, schedule.TimeOffEntry{
		EmployeeID: e.ID,
		Date:       day,
		Category:   schedule.CategoryPTO,
		Hours:      decimal.NewFromInt(8),
		Status:     schedule.StatusApproved,
	}))
}

// =============================================================================
// THRESHOLD TESTS
// =============================================================================

func TestShouldAutoApprove_BelowLimit(t *testing.T) {
	// GIVEN: One employee already approved for the day (limit 2)
	// WHEN: A PTO request arrives for the same day
	// THEN: Auto-approved

	p, store := newTestPolicy(t)
	approveDay(t, store, may5)

	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryPTO)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldAutoApprove_AtLimit_StaysPending(t *testing.T) {
	// GIVEN: Two employees already approved for the day (limit 2)
	// WHEN: A PTO request arrives for the same day
	// THEN: Not auto-approved; approval requires count strictly below limit

	p, store := newTestPolicy(t)
	approveDay(t, store, may5)
	approveDay(t, store, may5)

	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryPTO)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldAutoApprove_OtherDaysDoNotCount(t *testing.T) {
	// GIVEN: Two approvals on a different day
	// WHEN: Requesting the day in question
	// THEN: Auto-approved; the count is per calendar day

	p, store := newTestPolicy(t)
	approveDay(t, store, may5.AddDate(0, 0, 1))
	approveDay(t, store, may5.AddDate(0, 0, 1))

	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryPTO)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldAutoApprove_CustomLimit(t *testing.T) {
	// GIVEN: A policy with the limit raised to 3 and two existing approvals
	// WHEN: Requesting the day
	// THEN: Auto-approved under the raised limit

	_, store := newTestPolicy(t)
	p := &approval.Policy{TimeOff: store, Limit: 3}
	approveDay(t, store, may5)
	approveDay(t, store, may5)

	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryPTO)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldAutoApprove_PendingEntriesDoNotCount(t *testing.T) {
	// GIVEN: Two pending (not approved) entries on the day
	// WHEN: Requesting the day
	// THEN: Auto-approved; only approved entries consume the limit

	p, store := newTestPolicy(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		e := &schedule.Employee{Name: "seed"}
		require.NoError(t, store.CreateEmployee(ctx, e))
		require.NoError(t, store.UpsertTimeOffByDay(ctx, schedule.TimeOffEntry{
			EmployeeID: e.ID,
			Date:       may5,
			Category:   schedule.CategoryVacation,
			Hours:      decimal.NewFromInt(8),
			Status:     schedule.StatusPending,
		}))
	}

	ok, err := p.ShouldAutoApprove(ctx, may5, schedule.CategoryPTO)
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// CATEGORY ELIGIBILITY TESTS
// =============================================================================

func TestShouldAutoApprove_VacationNeverAutoApproves(t *testing.T) {
	// GIVEN: An empty day
	// WHEN: A vacation request arrives
	// THEN: Not auto-approved regardless of the count

	p, _ := newTestPolicy(t)
	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryVacation)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldAutoApprove_ScheduledOffEligible(t *testing.T) {
	// GIVEN: An empty day
	// WHEN: A scheduled-off request arrives
	// THEN: Auto-approved

	p, _ := newTestPolicy(t)
	ok, err := p.ShouldAutoApprove(context.Background(), may5, schedule.CategoryScheduledOff)
	require.NoError(t, err)
	assert.True(t, ok)
}
