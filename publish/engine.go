/*
Package publish materializes local shifts into the cloud projection that
employees read, and reverses that materialization.

PURPOSE:
  This is the only path by which shift data crosses from the local store to
  the cloud. The cloud copy is a derived projection: publish copies, never
  mutates, and unpublish deletes cloud rows without touching local data.

FLOW:
  1. Refresh account identifiers (stale ids would silently drop employees
     from the projection).
  2. Select local shifts in range, optionally filtered by employee.
  3. Partition by yearMonth shard (bounds cloud collection size).
  4. Skip shifts whose employee lacks a valid account id, counting them.
  5. Write each shard as one atomic batch; one shard's failure does not
     block the others.

IDEMPOTENCE:
  Projection docs are keyed (employeeID, shiftID), so re-publishing a range
  overwrites instead of appending. Publish and unpublish for the same
  manager are serialized with a mutex because the two are not commutative.

SEE ALSO:
  - identity/: the pre-publish identifier refresh
  - cloud/: ShiftDoc and shard-atomic batches
*/
package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// Engine copies local shifts to the cloud projection and back out.
type Engine struct {
	Local    schedule.LocalStore
	Cloud    cloud.Store
	Identity *identity.Resolver
	Log      *logrus.Entry

	// Now is swappable for tests.
	Now func() time.Time

	// mu serializes publish/unpublish per manager. A racing publish and
	// unpublish over the same range would otherwise leave a projection
	// that is neither fully present nor fully absent.
	mu sync.Mutex
}

func NewEngine(local schedule.LocalStore, cl cloud.Store, res *identity.Resolver, log *logrus.Entry) *Engine {
	return &Engine{Local: local, Cloud: cl, Identity: res, Log: log, Now: time.Now}
}

// Result reports a publish pass. Shard failures are partial, not fatal.
type Result struct {
	Published        int
	SkippedNoAccount int
	FailedShards     []string
	Errors           []error
}

// Summary renders the human-readable outcome the UI shows after a pass.
func (r Result) Summary() string {
	s := fmt.Sprintf("published %d shifts, skipped %d without accounts", r.Published, r.SkippedNoAccount)
	if len(r.FailedShards) > 0 {
		s += fmt.Sprintf(", %d month(s) failed", len(r.FailedShards))
	}
	return s
}

// =============================================================================
// PUBLISH
// =============================================================================

// Publish materializes local shifts in the inclusive day range into the
// cloud, optionally restricted to employeeIDs (nil = all).
func (e *Engine) Publish(ctx context.Context, rng schedule.DateRange, employeeIDs []schedule.EmployeeID) (Result, error) {
	var res Result
	if e.Cloud.ManagerID() == "" {
		return res, schedule.ErrNotAuthenticated
	}
	if err := rng.Validate(); err != nil {
		return res, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Identifier refresh must precede selection.
	if _, err := e.Identity.ReconcileLocalFromCloud(ctx); err != nil {
		return res, fmt.Errorf("publish: %w", err)
	}

	employees, err := e.Local.ListEmployees(ctx)
	if err != nil {
		return res, fmt.Errorf("publish: %w", err)
	}
	byID := make(map[schedule.EmployeeID]schedule.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}

	shifts, err := e.Local.ListShiftsInRange(ctx, rng, employeeIDs)
	if err != nil {
		return res, fmt.Errorf("publish: %w", err)
	}

	now := e.Now().UTC()
	shards := make(map[string]map[string]cloud.ShiftDoc)
	shardShiftIDs := make(map[string][]schedule.ShiftID)
	for _, s := range shifts {
		emp, ok := byID[s.EmployeeID]
		if !ok || !e.Identity.IsValidAccountID(emp.AccountID) {
			// No addressable account: the employee cannot be shown a
			// schedule, so the shift is skipped and counted.
			res.SkippedNoAccount++
			continue
		}
		ym := schedule.YearMonth(s.Start)
		if shards[ym] == nil {
			shards[ym] = make(map[string]cloud.ShiftDoc)
		}
		shards[ym][cloud.ShiftDocID(s.EmployeeID, s.ID)] = shiftDoc(s, emp, now)
		shardShiftIDs[ym] = append(shardShiftIDs[ym], s.ID)
	}

	for ym, docs := range shards {
		if err := e.Cloud.SetShifts(ctx, ym, docs); err != nil {
			res.FailedShards = append(res.FailedShards, ym)
			res.Errors = append(res.Errors, fmt.Errorf("shard %s: %w", ym, err))
			e.logWarn("publish shard failed", logrus.Fields{"shard": ym, "error": err})
			continue
		}
		res.Published += len(docs)
		if err := e.Local.MarkShiftsPublished(ctx, shardShiftIDs[ym], now); err != nil {
			// The projection landed; a missing local marker only costs an
			// extra overwrite on the next pass.
			res.Errors = append(res.Errors, fmt.Errorf("mark published %s: %w", ym, err))
		}
	}

	e.logInfo("publish pass complete", logrus.Fields{
		"published": res.Published,
		"skipped":   res.SkippedNoAccount,
		"failed":    len(res.FailedShards),
	})
	return res, nil
}

// shiftDoc builds the denormalized snapshot the employee-facing reader
// consumes without joining back to the employee table.
func shiftDoc(s schedule.Shift, emp schedule.Employee, publishedAt time.Time) cloud.ShiftDoc {
	return cloud.ShiftDoc{
		ShiftID:      int64(s.ID),
		EmployeeID:   int64(s.EmployeeID),
		AccountID:    emp.AccountID,
		EmployeeName: emp.Name,
		Date:         s.Date().Format(schedule.DateLayout),
		YearMonth:    schedule.YearMonth(s.Start),
		Start:        s.Start.UTC(),
		End:          s.End.UTC(),
		Label:        s.Label,
		Notes:        s.Notes,
		PublishedAt:  publishedAt,
	}
}

// =============================================================================
// UNPUBLISH
// =============================================================================

// Unpublish deletes the cloud projection rows in range, optionally filtered
// by employee. The local store is never touched. Calling it when nothing is
// published returns zero.
func (e *Engine) Unpublish(ctx context.Context, rng schedule.DateRange, employeeIDs []schedule.EmployeeID) (int, error) {
	if e.Cloud.ManagerID() == "" {
		return 0, schedule.ErrNotAuthenticated
	}
	if err := rng.Validate(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	filter := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		filter[int64(id)] = true
	}

	deleted := 0
	for _, ym := range rng.Months() {
		docs, err := e.Cloud.ListShifts(ctx, ym)
		if err != nil {
			return deleted, fmt.Errorf("unpublish: shard %s: %w", ym, err)
		}
		var victims []string
		for id, doc := range docs {
			day, err := time.Parse(schedule.DateLayout, doc.Date)
			if err != nil || !rng.Contains(day) {
				continue
			}
			if len(filter) > 0 && !filter[doc.EmployeeID] {
				continue
			}
			victims = append(victims, id)
		}
		if len(victims) == 0 {
			continue
		}
		if err := e.Cloud.DeleteShifts(ctx, ym, victims); err != nil {
			return deleted, fmt.Errorf("unpublish: shard %s: %w", ym, err)
		}
		deleted += len(victims)
	}

	e.logInfo("unpublish complete", logrus.Fields{"deleted": deleted})
	return deleted, nil
}

func (e *Engine) logInfo(msg string, f logrus.Fields) {
	if e.Log != nil {
		e.Log.WithFields(f).Info(msg)
	}
}

func (e *Engine) logWarn(msg string, f logrus.Fields) {
	if e.Log != nil {
		e.Log.WithFields(f).Warn(msg)
	}
}
