/*
store.go - LocalStore interface (manager-owned relational store)

PURPOSE:
  Defines the contract between the engine components and the local database.
  The LocalStore is the sole source of truth for shift content; the cloud
  copy of a shift is always a derived projection.

CONTRACT NOTES:
  - Upserts are keyed by natural identifiers so every sync step is
    idempotent: re-running a download or upload converges instead of
    duplicating rows.
  - Multi-statement sequences (replace-rules, cascade deletes) are atomic
    inside the implementation; callers never see partial state.

IMPLEMENTATIONS:
  - store/sqlite: production store on mattn/go-sqlite3

SEE ALSO:
  - types.go: the records these methods move
  - store/sqlite/sqlite.go: schema and transactions
*/
package schedule

import (
	"context"
	"time"
)

// LocalStore is the manager-owned relational store.
type LocalStore interface {
	EmployeeStore
	ShiftStore
	TimeOffStore
	AvailabilityStore
	AuxStore
}

// EmployeeStore manages the roster.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	UpdateEmployee(ctx context.Context, e *Employee) error

	// SetAccountID attaches a cloud account identifier to an employee.
	SetAccountID(ctx context.Context, id EmployeeID, accountID string) error

	// DeleteEmployee removes the employee and cascades to dependent shifts
	// and time-off rows atomically.
	DeleteEmployee(ctx context.Context, id EmployeeID) error

	// UpsertEmployee inserts or updates by local id. A valid existing
	// AccountID is preserved when the incoming record carries none.
	UpsertEmployee(ctx context.Context, e Employee) error
}

// ShiftStore manages locally-authoritative shift content.
type ShiftStore interface {
	CreateShift(ctx context.Context, s *Shift) error
	GetShift(ctx context.Context, id ShiftID) (*Shift, error)
	UpdateShift(ctx context.Context, s *Shift) error
	DeleteShift(ctx context.Context, id ShiftID) error

	// ListShiftsInRange returns shifts starting within the inclusive day
	// range, optionally restricted to a set of employees (nil = all).
	ListShiftsInRange(ctx context.Context, r DateRange, employeeIDs []EmployeeID) ([]Shift, error)

	// ListShiftsForEmployee returns the employee's shifts in the range.
	ListShiftsForEmployee(ctx context.Context, id EmployeeID, r DateRange) ([]Shift, error)

	// MarkShiftsPublished stamps PublishedAt on the given shifts atomically.
	MarkShiftsPublished(ctx context.Context, ids []ShiftID, at time.Time) error
}

// TimeOffStore manages time-off entries. The natural key for sync purposes
// is (EmployeeID, Date).
type TimeOffStore interface {
	CreateTimeOff(ctx context.Context, e *TimeOffEntry) error
	GetTimeOff(ctx context.Context, id TimeOffID) (*TimeOffEntry, error)
	UpdateTimeOff(ctx context.Context, e *TimeOffEntry) error
	DeleteTimeOff(ctx context.Context, id TimeOffID) error

	// UpsertTimeOffByDay inserts or replaces the entry for its
	// (EmployeeID, Date) pair.
	UpsertTimeOffByDay(ctx context.Context, e TimeOffEntry) error

	ListTimeOffInRange(ctx context.Context, r DateRange) ([]TimeOffEntry, error)
	ListTimeOffForEmployee(ctx context.Context, id EmployeeID, r DateRange) ([]TimeOffEntry, error)

	// CountApprovedTimeOff counts approved entries across all employees for
	// one calendar day. Feeds the auto-approval policy.
	CountApprovedTimeOff(ctx context.Context, day time.Time) (int, error)
}

// AvailabilityStore manages the three-tier rule set.
type AvailabilityStore interface {
	ListAvailabilityRules(ctx context.Context, id EmployeeID) ([]AvailabilityRule, error)
	ListAllAvailabilityRules(ctx context.Context) ([]AvailabilityRule, error)

	// ReplaceAvailabilityRules swaps the employee's full rule set
	// atomically (delete-then-insert inside one transaction).
	ReplaceAvailabilityRules(ctx context.Context, id EmployeeID, rules []AvailabilityRule) error
}

// AuxStore holds the remaining synced categories: templates, notes and
// shift-runner assignments. All writes are natural-key upserts.
type AuxStore interface {
	UpsertShiftTemplate(ctx context.Context, t ShiftTemplate) error
	ListShiftTemplates(ctx context.Context) ([]ShiftTemplate, error)

	UpsertWeeklyTemplate(ctx context.Context, t WeeklyTemplate) error
	ListWeeklyTemplates(ctx context.Context) ([]WeeklyTemplate, error)

	UpsertScheduleNote(ctx context.Context, n ScheduleNote) error
	ListScheduleNotes(ctx context.Context, r DateRange) ([]ScheduleNote, error)
	ListAllScheduleNotes(ctx context.Context) ([]ScheduleNote, error)

	UpsertShiftRunner(ctx context.Context, sr ShiftRunner) error
	ListShiftRunners(ctx context.Context, r DateRange) ([]ShiftRunner, error)
	ListAllShiftRunners(ctx context.Context) ([]ShiftRunner, error)
}
