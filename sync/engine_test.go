package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud/memory"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	"github.com/JasonS1999/ScheduleHQ-sub002/store/sqlite"
	syncer "github.com/JasonS1999/ScheduleHQ-sub002/sync"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const validUID = "k2M4nP6qR8sT0uV2wX4yZ6aB8c"

var june3 = time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*syncer.Engine, *sqlite.Store, *memory.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cl := memory.New("mgr-1")
	eng := syncer.NewEngine(store, cl, identity.NewResolver(store, cl, nil), nil)
	return eng, store, cl
}

func categoryByName(t *testing.T, res syncer.Result, name string) syncer.CategoryResult {
	for _, c := range res.Categories {
		if c.Category == name {
			return c
		}
	}
	t.Fatalf("category %q not in result", name)
	return syncer.CategoryResult{}
}

func seedCloudEmployee(t *testing.T, cl *memory.Store, localID int64, accountID, name string) {
	require.NoError(t, cl.SetEmployee(context.Background(),
		cloud.EmployeeDocID(schedule.EmployeeID(localID)),
		cloud.EmployeeDoc{LocalID: localID, AccountID: accountID, Name: name, UpdatedAt: time.Now()}))
}

func timeOffDoc(employeeID int64, date string, category, status string) cloud.TimeOffDoc {
	return cloud.TimeOffDoc{
		EmployeeID: employeeID,
		AccountID:  validUID,
		Date:       date,
		Category:   category,
		Status:     status,
		Hours:      "8",
		UpdatedAt:  time.Now(),
	}
}

// =============================================================================
// DOWNLOAD TESTS
// =============================================================================

func TestDownloadAll_RosterAndTimeOff(t *testing.T) {
	// GIVEN: A cloud roster with one provisioned and one placeholder
	//        employee, and a time-off doc
	// WHEN: Downloading
	// THEN: Both employees land locally, the placeholder id scrubbed to
	//       empty, and the time-off entry is upserted

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	seedCloudEmployee(t, cl, 1, validUID, "Alice")
	seedCloudEmployee(t, cl, 2, "manager", "Bob")
	require.NoError(t, cl.SetTimeOff(ctx, "2026-06-03_pto_1", timeOffDoc(1, "2026-06-03", "pto", "approved")))

	res, err := eng.DownloadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, categoryByName(t, res, "employees").Synced)
	assert.Equal(t, 1, categoryByName(t, res, "timeOff").Synced)
	assert.Empty(t, res.Failed())

	alice, err := store.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, validUID, alice.AccountID)

	bob, err := store.GetEmployee(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, bob.AccountID, "placeholder id must be scrubbed, not stored")

	entries, err := store.ListTimeOffForEmployee(ctx, 1, schedule.DateRange{Start: june3, End: june3})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schedule.StatusApproved, entries[0].Status)
}

func TestDownloadAll_PlaceholderNeverClobbersValidLocalID(t *testing.T) {
	// GIVEN: A local employee already holding a valid account id while the
	//        cloud doc carries a placeholder
	// WHEN: Downloading
	// THEN: The valid local id survives

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	e := &schedule.Employee{Name: "Alice", AccountID: validUID}
	require.NoError(t, store.CreateEmployee(ctx, e))
	seedCloudEmployee(t, cl, int64(e.ID), "admin", "Alice")

	_, err := eng.DownloadAll(ctx)
	require.NoError(t, err)

	got, err := store.GetEmployee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, validUID, got.AccountID)
}

func TestDownloadAll_TimeOffDuplicatesDeduped(t *testing.T) {
	// GIVEN: Two cloud docs for the same (employee, date) under different ids
	// WHEN: Downloading
	// THEN: Only the first in sorted doc-id order is kept; the other counts
	//       as skipped

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	seedCloudEmployee(t, cl, 1, validUID, "Alice")
	require.NoError(t, cl.SetTimeOff(ctx, "2026-06-03_pto_1", timeOffDoc(1, "2026-06-03", "pto", "approved")))
	require.NoError(t, cl.SetTimeOff(ctx, "2026-06-03_vacation_1", timeOffDoc(1, "2026-06-03", "vacation", "pending")))

	res, err := eng.DownloadAll(ctx)
	require.NoError(t, err)
	cat := categoryByName(t, res, "timeOff")
	assert.Equal(t, 1, cat.Synced)
	assert.Equal(t, 1, cat.Skipped)

	entries, err := store.ListTimeOffForEmployee(ctx, 1, schedule.DateRange{Start: june3, End: june3})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schedule.CategoryPTO, entries[0].Category, "lowest doc id wins")
}

func TestDownloadAll_AvailabilityReplacesRuleSet(t *testing.T) {
	// GIVEN: A cloud availability doc with one weekly rule
	// WHEN: Downloading twice
	// THEN: The local rule set converges to exactly one rule

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	seedCloudEmployee(t, cl, 1, validUID, "Alice")
	weekday := 1
	require.NoError(t, cl.SetAvailability(ctx, "1", cloud.AvailabilityDoc{
		EmployeeID: 1,
		Rules: []cloud.AvailabilityRuleDoc{
			{Class: "weekly", Weekday: &weekday, AllDay: true, Available: true},
		},
	}))

	_, err := eng.DownloadAll(ctx)
	require.NoError(t, err)
	_, err = eng.DownloadAll(ctx)
	require.NoError(t, err)

	rules, err := store.ListAvailabilityRules(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUploadAll_RoundTripConverges(t *testing.T) {
	// GIVEN: A local roster with an approved time-off entry
	// WHEN: Uploading, then downloading into the same store
	// THEN: The second pass writes the same rows; nothing multiplies

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	e := &schedule.Employee{Name: "Alice", AccountID: validUID}
	require.NoError(t, store.CreateEmployee(ctx, e))
	require.NoError(t, store.UpsertTimeOffByDay(ctx, schedule.TimeOffEntry{
		EmployeeID: e.ID, Date: june3, Category: schedule.CategoryPTO,
		Hours: decimal.NewFromInt(8), Status: schedule.StatusApproved,
	}))

	up, err := eng.UploadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, categoryByName(t, up, "employees").Synced)
	assert.Equal(t, 1, categoryByName(t, up, "timeOff").Synced)

	down, err := eng.DownloadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, down.Failed())

	employees, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, employees, 1)
	entries, err := store.ListTimeOffForEmployee(ctx, e.ID, schedule.DateRange{Start: june3, End: june3})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestUploadAll_KeepsProvisionedCloudID(t *testing.T) {
	// GIVEN: A cloud doc already provisioned with a valid UID while the
	//        local row has none
	// WHEN: Uploading
	// THEN: The cloud doc keeps its UID

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	e := &schedule.Employee{Name: "Alice"}
	require.NoError(t, store.CreateEmployee(ctx, e))
	seedCloudEmployee(t, cl, int64(e.ID), validUID, "Alice")

	_, err := eng.UploadAll(ctx)
	require.NoError(t, err)

	docs, err := cl.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, validUID, docs[cloud.EmployeeDocID(e.ID)].AccountID)
}

// =============================================================================
// FAILURE MODEL TESTS
// =============================================================================

func TestUploadAll_CategoryFailureDoesNotAbortPass(t *testing.T) {
	// GIVEN: A cloud store that fails its first write
	// WHEN: Uploading a roster plus a schedule note
	// THEN: The employees category errors, later categories still run, and
	//       the pass itself succeeds

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	e := &schedule.Employee{Name: "Alice", AccountID: validUID}
	require.NoError(t, store.CreateEmployee(ctx, e))
	require.NoError(t, store.UpsertScheduleNote(ctx, schedule.ScheduleNote{
		Date: june3, Text: "truck day", UpdatedAt: time.Now(),
	}))
	cl.FailNextWrites(1)

	res, err := eng.UploadAll(ctx)
	require.NoError(t, err, "category failures are recorded, not returned")
	assert.Equal(t, []string{"employees"}, res.Failed())
	assert.Equal(t, 1, categoryByName(t, res, "scheduleNotes").Synced)
}

func TestRunPass_Unauthenticated_FailsFast(t *testing.T) {
	// GIVEN: No manager identity
	// WHEN: Running any pass
	// THEN: ErrNotAuthenticated with no category work

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	cl := memory.New("")
	eng := syncer.NewEngine(store, cl, identity.NewResolver(store, cl, nil), nil)

	res, err := eng.DownloadAll(context.Background())
	assert.ErrorIs(t, err, schedule.ErrNotAuthenticated)
	assert.Empty(t, res.Categories)
}

func TestRunPass_CancelledContextStopsBetweenCategories(t *testing.T) {
	// GIVEN: An already-cancelled context
	// WHEN: Running a pass
	// THEN: The pass returns the context error without running categories

	eng, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := eng.DownloadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Categories)
}

// =============================================================================
// LEGACY MIGRATION TESTS
// =============================================================================

func TestMigrateLegacy_RelocatesAndEmptiesSource(t *testing.T) {
	// GIVEN: A misfiled record in the shared legacy collection
	// WHEN: Migrating, twice
	// THEN: The record lands in the manager partition exactly once; the
	//       second run is a no-op

	eng, _, cl := newTestEngine(t)
	ctx := context.Background()
	cl.SeedLegacyTimeOff("legacy-1", timeOffDoc(1, "2026-06-03", "pto", "approved"))

	res, err := eng.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, categoryByName(t, res, "legacyTimeOff").Synced)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	legacy, err := cl.ListLegacyTimeOff(ctx)
	require.NoError(t, err)
	assert.Empty(t, legacy)

	res, err = eng.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Zero(t, categoryByName(t, res, "legacyTimeOff").Synced)
}

func TestMigrateLegacy_ContentEqualRecordNotDuplicated(t *testing.T) {
	// GIVEN: A legacy record whose content already exists in the partition
	//        under a different doc id
	// WHEN: Migrating
	// THEN: No second copy is created, but the legacy original is deleted

	eng, _, cl := newTestEngine(t)
	ctx := context.Background()
	doc := timeOffDoc(1, "2026-06-03", "pto", "approved")
	require.NoError(t, cl.SetTimeOff(ctx, "2026-06-03_pto_1", doc))
	cl.SeedLegacyTimeOff("legacy-dup", doc)

	_, err := eng.MigrateLegacy(ctx)
	require.NoError(t, err)

	docs, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	legacy, err := cl.ListLegacyTimeOff(ctx)
	require.NoError(t, err)
	assert.Empty(t, legacy)
}

// =============================================================================
// ROSTER CASCADE TESTS
// =============================================================================

func TestRemoveEmployee_CascadesEverywhere(t *testing.T) {
	// GIVEN: An employee with a local shift, a published projection doc,
	//        a cloud time-off doc, and a cloud roster doc
	// WHEN: Removing the employee
	// THEN: Every trace is gone on both sides; other employees survive

	eng, store, cl := newTestEngine(t)
	ctx := context.Background()
	e := &schedule.Employee{Name: "Alice", AccountID: validUID}
	require.NoError(t, store.CreateEmployee(ctx, e))
	other := &schedule.Employee{Name: "Bob"}
	require.NoError(t, store.CreateEmployee(ctx, other))

	s := &schedule.Shift{EmployeeID: e.ID, Start: june3.Add(9 * time.Hour), End: june3.Add(17 * time.Hour)}
	require.NoError(t, store.CreateShift(ctx, s))

	seedCloudEmployee(t, cl, int64(e.ID), validUID, "Alice")
	require.NoError(t, cl.SetShifts(ctx, "2026-06", map[string]cloud.ShiftDoc{
		"1_1": {ShiftID: 1, EmployeeID: int64(e.ID), Date: "2026-06-03", YearMonth: "2026-06"},
		"2_9": {ShiftID: 9, EmployeeID: int64(other.ID), Date: "2026-06-03", YearMonth: "2026-06"},
	}))
	require.NoError(t, cl.SetTimeOff(ctx, "2026-06-03_pto_1", timeOffDoc(int64(e.ID), "2026-06-03", "pto", "approved")))

	require.NoError(t, eng.RemoveEmployee(ctx, e.ID))

	_, err := store.GetEmployee(ctx, e.ID)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
	_, err = store.GetShift(ctx, s.ID)
	assert.ErrorIs(t, err, schedule.ErrNotFound, "local shifts cascade")

	docs, err := cl.ListEmployees(ctx)
	require.NoError(t, err)
	assert.NotContains(t, docs, cloud.EmployeeDocID(e.ID))

	shifts, err := cl.ListShifts(ctx, "2026-06")
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Contains(t, shifts, "2_9", "other employees' projections survive")

	timeOff, err := cl.ListTimeOff(ctx)
	require.NoError(t, err)
	assert.Empty(t, timeOff)
}
