/*
Package cloud defines the contract with the multi-tenant document store.

PURPOSE:
  The cloud store is keyed by manager identity and subdivided into
  per-manager partitions: employees, schedules-by-month, time-off,
  shift runners, availability, templates, and notes. Employees only see
  what the publish engine explicitly materializes.

PARTITIONS (per manager):
  employees                      one doc per local employee id
  schedules/{yearMonth}/shifts   published shift projection, month-sharded
  timeOff                        pending/approved/denied requests
  shiftRunners                   daypart runner assignments
  employeeAvailability           availability rule sets
  weeklyTemplates, shiftTemplates, scheduleNotes

KEYS:
  Documents are addressed by natural composite keys (employeeID_shiftID,
  date_category_employeeID) so repeated writes are idempotent merges, never
  conflicting appends. Last-write-wins per document.

BATCHES:
  Shift projection writes are atomic per month shard: within one shard the
  batch either fully applies or not at all. Failures in one shard do not
  block other shards.

IMPLEMENTATIONS:
  - cloud/firestore: production adapter on the Firestore SDK
  - cloud/memory: in-memory store for tests and offline development

SEE ALSO:
  - schedule/: the local-side counterparts of these documents
*/
package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnavailable indicates a transient network or store failure. Callers
	// recover locally: the offline queue retries time-off submissions, and
	// sync/publish skip the failing category or shard and continue.
	ErrUnavailable = errors.New("cloud store unavailable")

	// ErrNotFound indicates the addressed document does not exist.
	ErrNotFound = errors.New("cloud document not found")
)

// =============================================================================
// DOCUMENTS
// =============================================================================

// EmployeeDoc mirrors a roster entry into the cloud. AccountID is attached
// asynchronously by the external provisioning process and may be absent,
// stale, or (historically) a human-typed placeholder.
type EmployeeDoc struct {
	LocalID   int64     `firestore:"localId"`
	AccountID string    `firestore:"accountId"`
	Name      string    `firestore:"name"`
	JobCode   string    `firestore:"jobCode"`
	Email     string    `firestore:"email"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// ShiftDoc is the published projection of a local shift. It is deliberately
// denormalized: the employee-facing reader must not need a join back to an
// employee table it may not have access to.
type ShiftDoc struct {
	ShiftID      int64     `firestore:"shiftId"`
	EmployeeID   int64     `firestore:"employeeId"`
	AccountID    string    `firestore:"accountId"`
	EmployeeName string    `firestore:"employeeName"`
	Date         string    `firestore:"date"`      // 2006-01-02
	YearMonth    string    `firestore:"yearMonth"` // shard key, 2006-01
	Start        time.Time `firestore:"start"`
	End          time.Time `firestore:"end"`
	Label        string    `firestore:"label"`
	Notes        string    `firestore:"notes"`
	PublishedAt  time.Time `firestore:"publishedAt"`
}

// TimeOffDoc is a single-day time-off record. Hours is carried as a decimal
// string to avoid floating-point drift across round trips.
type TimeOffDoc struct {
	EmployeeID  int64     `firestore:"employeeId"`
	AccountID   string    `firestore:"accountId"`
	Date        string    `firestore:"date"`
	Category    string    `firestore:"category"`
	Status      string    `firestore:"status"`
	Hours       string    `firestore:"hours"`
	StartMinute *int      `firestore:"startMinute"`
	EndMinute   *int      `firestore:"endMinute"`
	GroupID     string    `firestore:"groupId"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// AvailabilityDoc carries one employee's full rule set.
type AvailabilityDoc struct {
	EmployeeID int64                  `firestore:"employeeId"`
	Rules      []AvailabilityRuleDoc  `firestore:"rules"`
	UpdatedAt  time.Time              `firestore:"updatedAt"`
}

type AvailabilityRuleDoc struct {
	Class       string `firestore:"class"`
	Date        string `firestore:"date"` // empty unless class == "date"
	Weekday     *int   `firestore:"weekday"`
	CycleWeek   *int   `firestore:"cycleWeek"`
	AllDay      bool   `firestore:"allDay"`
	StartMinute int    `firestore:"startMinute"`
	EndMinute   int    `firestore:"endMinute"`
	Available   bool   `firestore:"available"`
}

type ShiftTemplateDoc struct {
	Label       string `firestore:"label"`
	JobCode     string `firestore:"jobCode"`
	StartMinute int    `firestore:"startMinute"`
	EndMinute   int    `firestore:"endMinute"`
}

type WeeklyTemplateDoc struct {
	Name    string `firestore:"name"`
	Payload string `firestore:"payload"`
}

type ScheduleNoteDoc struct {
	Date      string    `firestore:"date"`
	Text      string    `firestore:"text"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type ShiftRunnerDoc struct {
	Date       string `firestore:"date"`
	Segment    string `firestore:"segment"`
	EmployeeID int64  `firestore:"employeeId"`
}

// =============================================================================
// NATURAL KEYS
// =============================================================================

// EmployeeDocID keys the per-manager employees partition by local id.
func EmployeeDocID(id schedule.EmployeeID) string {
	return fmt.Sprintf("%d", id)
}

// ShiftDocID keys the month-sharded shift projection. Re-publishing the same
// shift overwrites the same document.
func ShiftDocID(employeeID schedule.EmployeeID, shiftID schedule.ShiftID) string {
	return fmt.Sprintf("%d_%d", employeeID, shiftID)
}

// TimeOffDocID keys time-off by day, category and employee.
func TimeOffDocID(employeeID schedule.EmployeeID, day time.Time, category schedule.TimeOffCategory) string {
	return fmt.Sprintf("%s_%s_%d", day.UTC().Format(schedule.DateLayout), category, employeeID)
}

// RunnerDocID keys shift-runner assignments by day and segment.
func RunnerDocID(day time.Time, segment string) string {
	return fmt.Sprintf("%s_%s", day.UTC().Format(schedule.DateLayout), segment)
}

// NoteDocID keys schedule notes by day.
func NoteDocID(day time.Time) string {
	return day.UTC().Format(schedule.DateLayout)
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the per-manager view of the cloud document store. Implementations
// return ErrUnavailable (wrapped) for transient transport failures and
// schedule.ErrNotAuthenticated when no manager identity is bound.
type Store interface {
	// ManagerID returns the bound manager identity, empty when unauthenticated.
	ManagerID() string

	// Employees.
	ListEmployees(ctx context.Context) (map[string]EmployeeDoc, error)
	SetEmployee(ctx context.Context, docID string, doc EmployeeDoc) error
	// ClearEmployeeAccountID deletes only the accountId field, preserving
	// every other field on the document. Clearing triggers out-of-band
	// re-provisioning.
	ClearEmployeeAccountID(ctx context.Context, docID string) error
	// DeleteEmployee removes the document. Deleting a missing doc is a no-op.
	DeleteEmployee(ctx context.Context, docID string) error

	// Published shift projection, sharded by yearMonth.
	ListShiftMonths(ctx context.Context) ([]string, error)
	ListShifts(ctx context.Context, yearMonth string) (map[string]ShiftDoc, error)
	// SetShifts applies the batch atomically within the shard.
	SetShifts(ctx context.Context, yearMonth string, docs map[string]ShiftDoc) error
	// DeleteShifts removes the given docs atomically within the shard.
	// Unknown ids are ignored.
	DeleteShifts(ctx context.Context, yearMonth string, docIDs []string) error

	// Time off.
	ListTimeOff(ctx context.Context) (map[string]TimeOffDoc, error)
	SetTimeOff(ctx context.Context, docID string, doc TimeOffDoc) error
	DeleteTimeOff(ctx context.Context, docID string) error

	// Legacy shared-collection records misfiled outside the manager
	// partition by a historical defect. Migration relocates then deletes.
	ListLegacyTimeOff(ctx context.Context) (map[string]TimeOffDoc, error)
	DeleteLegacyTimeOff(ctx context.Context, docID string) error

	// Availability.
	ListAvailability(ctx context.Context) (map[string]AvailabilityDoc, error)
	SetAvailability(ctx context.Context, docID string, doc AvailabilityDoc) error

	// Templates.
	ListShiftTemplates(ctx context.Context) (map[string]ShiftTemplateDoc, error)
	SetShiftTemplate(ctx context.Context, docID string, doc ShiftTemplateDoc) error
	ListWeeklyTemplates(ctx context.Context) (map[string]WeeklyTemplateDoc, error)
	SetWeeklyTemplate(ctx context.Context, docID string, doc WeeklyTemplateDoc) error

	// Notes.
	ListScheduleNotes(ctx context.Context) (map[string]ScheduleNoteDoc, error)
	SetScheduleNote(ctx context.Context, docID string, doc ScheduleNoteDoc) error

	// Shift runners.
	ListShiftRunners(ctx context.Context) (map[string]ShiftRunnerDoc, error)
	SetShiftRunner(ctx context.Context, docID string, doc ShiftRunnerDoc) error
}
