/*
roster.go - Cross-store roster operations

Deleting an employee must cascade locally (the store's foreign keys cover
shifts, time off and rules) and in the cloud (employee doc, published
shifts, time-off docs). The cloud side uses the same idempotent deletes
as the rest of the engine, so re-running after a partial failure finishes
the job.
*/
package sync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// RemoveEmployee deletes the employee everywhere. The local delete runs
// first and is authoritative; cloud cleanup failures are returned but the
// local state is already final.
func (e *Engine) RemoveEmployee(ctx context.Context, id schedule.EmployeeID) error {
	if e.Cloud.ManagerID() == "" {
		return schedule.ErrNotAuthenticated
	}
	if err := e.Local.DeleteEmployee(ctx, id); err != nil {
		return fmt.Errorf("remove employee: %w", err)
	}

	if err := e.Cloud.DeleteEmployee(ctx, cloud.EmployeeDocID(id)); err != nil {
		return fmt.Errorf("remove employee %d: cloud doc: %w", id, err)
	}

	// Published shift projection.
	months, err := e.Cloud.ListShiftMonths(ctx)
	if err != nil {
		return fmt.Errorf("remove employee %d: cloud cleanup: %w", id, err)
	}
	for _, ym := range months {
		docs, err := e.Cloud.ListShifts(ctx, ym)
		if err != nil {
			return fmt.Errorf("remove employee %d: shard %s: %w", id, ym, err)
		}
		var victims []string
		for docID, doc := range docs {
			if doc.EmployeeID == int64(id) {
				victims = append(victims, docID)
			}
		}
		if len(victims) > 0 {
			if err := e.Cloud.DeleteShifts(ctx, ym, victims); err != nil {
				return fmt.Errorf("remove employee %d: shard %s: %w", id, ym, err)
			}
		}
	}

	// Time-off docs.
	timeOff, err := e.Cloud.ListTimeOff(ctx)
	if err != nil {
		return fmt.Errorf("remove employee %d: cloud cleanup: %w", id, err)
	}
	for docID, doc := range timeOff {
		if doc.EmployeeID != int64(id) {
			continue
		}
		if err := e.Cloud.DeleteTimeOff(ctx, docID); err != nil {
			return fmt.Errorf("remove employee %d: time off %s: %w", id, docID, err)
		}
	}

	e.logInfo("employee removed", logrus.Fields{"employee": id})
	return nil
}
