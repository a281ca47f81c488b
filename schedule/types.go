/*
Package schedule defines the shared domain model for the ScheduleHQ
sync and consistency engine.

PURPOSE:
  This package contains the types every engine component speaks: employees,
  shifts, time-off entries, availability rules, and the closed enumerations
  for their category/status/class fields. It also defines the LocalStore
  interface (the manager-owned relational store, authoritative for shifts)
  and the sentinel errors shared across components.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: local numeric identity + optional cloud account identifier
  - Shift: a [start, end) work interval, locally owned, cloud-projected
  - TimeOffEntry: one day of time off with category/status lifecycle
  - AvailabilityRule: three-tier override system (date > biweekly > weekly)
  - DateRange / TimeWindow: calendar-day ranges vs. instant intervals

DESIGN PRINCIPLES:
  1. Closed enums: category/status/class fields are typed constants with
     validation, never free-form strings.
  2. Natural keys: cloud documents are addressed by composite keys derived
     here (ShiftDocID, TimeOffDocID) so repeated writes merge.
  3. Precision: hour counts use decimal.Decimal, never float64.

SEE ALSO:
  - store.go: LocalStore interface
  - errors.go: sentinel errors
  - cloud/: document-store counterparts of these types
*/
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID is the stable local numeric identifier assigned by the
// LocalStore. The cloud account identifier (UID) is attached later by an
// out-of-band provisioning process and lives on Employee.AccountID.
type EmployeeID int64

// ShiftID is the local identifier of a shift. A shift is uniquely
// addressable by (EmployeeID, ShiftID).
type ShiftID int64

// TimeOffID is the local identifier of a time-off entry.
type TimeOffID int64

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID        EmployeeID
	AccountID string // cloud UID; empty until provisioned, may hold placeholder garbage
	Name      string
	JobCode   string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// SHIFT
// =============================================================================

// Shift is locally owned. The cloud copy created by the publish engine is a
// derived projection, never independent state.
type Shift struct {
	ID          ShiftID
	EmployeeID  EmployeeID
	Start       time.Time
	End         time.Time
	Label       string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time // nil until the publish engine materializes it
}

// Validate enforces the end-after-start invariant.
func (s Shift) Validate() error {
	if !s.End.After(s.Start) {
		return fmt.Errorf("%w: shift end %s not after start %s", ErrInvalidWindow, s.End, s.Start)
	}
	return nil
}

// Date returns the calendar day the shift starts on.
func (s Shift) Date() time.Time {
	return DayOf(s.Start)
}

// =============================================================================
// TIME OFF
// =============================================================================

type TimeOffCategory string

const (
	CategoryScheduledOff TimeOffCategory = "scheduled_off"
	CategoryPTO          TimeOffCategory = "pto"
	CategoryVacation     TimeOffCategory = "vacation"
)

// Valid reports whether c is a known category.
func (c TimeOffCategory) Valid() bool {
	switch c {
	case CategoryScheduledOff, CategoryPTO, CategoryVacation:
		return true
	}
	return false
}

// AutoApprovable reports whether the category is eligible for automatic
// approval. Multi-day vacation always goes to manager review.
func (c TimeOffCategory) AutoApprovable() bool {
	switch c {
	case CategoryPTO, CategoryScheduledOff:
		return true
	}
	return false
}

type TimeOffStatus string

const (
	StatusPending  TimeOffStatus = "pending"
	StatusApproved TimeOffStatus = "approved"
	StatusDenied   TimeOffStatus = "denied"
)

func (s TimeOffStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Reviewed reports whether the entry has left the pending state. Reviewed
// entries are immutable except by explicit manager reversal.
func (s TimeOffStatus) Reviewed() bool {
	return s == StatusApproved || s == StatusDenied
}

// TimeOffEntry is a single day of time off. Multi-day submissions are
// expanded day-by-day and linked via GroupID.
type TimeOffEntry struct {
	ID          TimeOffID
	EmployeeID  EmployeeID
	Date        time.Time // day granularity, UTC midnight
	Category    TimeOffCategory
	Hours       decimal.Decimal
	StartMinute *int // optional time-of-day bounds, minutes since midnight
	EndMinute   *int
	Status      TimeOffStatus
	GroupID     string // links the days of one multi-day submission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e TimeOffEntry) Validate() error {
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, e.Category)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, e.Status)
	}
	if (e.StartMinute == nil) != (e.EndMinute == nil) {
		return fmt.Errorf("%w: time-of-day bounds must be set together", ErrInvalidInput)
	}
	return nil
}

// =============================================================================
// AVAILABILITY RULES
// =============================================================================

type RuleClass string

const (
	RuleDate     RuleClass = "date"     // date-specific override, highest priority
	RuleBiweekly RuleClass = "biweekly" // two-week-cycle pattern
	RuleWeekly   RuleClass = "weekly"   // weekly pattern, lowest priority
)

func (c RuleClass) Valid() bool {
	switch c {
	case RuleDate, RuleBiweekly, RuleWeekly:
		return true
	}
	return false
}

// AvailabilityRule describes when an employee can (or explicitly cannot) be
// scheduled. For a given employee and class at most one rule may match a
// day; ties are a data-quality defect, not a valid state.
type AvailabilityRule struct {
	ID         int64
	EmployeeID EmployeeID
	Class      RuleClass
	Date       *time.Time // RuleDate only
	Weekday    *int       // 0 = Sunday; RuleWeekly and RuleBiweekly
	CycleWeek  *int       // 1 or 2; RuleBiweekly only
	AllDay     bool
	StartMinute int // minutes since midnight; ignored when AllDay
	EndMinute   int
	Available   bool // false = explicitly blocked
}

// =============================================================================
// TEMPLATES, NOTES, SHIFT RUNNERS
// =============================================================================

// ShiftTemplate is a reusable shift shape managers stamp onto the roster.
type ShiftTemplate struct {
	ID          string
	Label       string
	JobCode     string
	StartMinute int
	EndMinute   int
}

// WeeklyTemplate is a named week layout; slot payload is opaque to the
// engine and round-trips through sync untouched.
type WeeklyTemplate struct {
	ID      string
	Name    string
	Payload string // JSON blob owned by the scheduling UI
}

// ScheduleNote is a free-text note pinned to a calendar day.
type ScheduleNote struct {
	Date      time.Time
	Text      string
	UpdatedAt time.Time
}

// ShiftRunner assigns an employee to run a daypart segment.
type ShiftRunner struct {
	Date       time.Time
	Segment    string // e.g. "open", "mid", "close"
	EmployeeID EmployeeID
}

// =============================================================================
// DATE / TIME HELPERS
// =============================================================================

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: range end %s before start %s", ErrInvalidWindow, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return nil
}

// Contains reports whether day falls within the range (inclusive).
func (r DateRange) Contains(day time.Time) bool {
	d := DayOf(day)
	return !d.Before(DayOf(r.Start)) && !d.After(DayOf(r.End))
}

// Days returns every calendar day in the range.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := DayOf(r.Start); !d.After(DayOf(r.End)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Months returns the distinct year-month shard keys covered by the range.
func (r DateRange) Months() []string {
	var months []string
	seen := make(map[string]bool)
	for d := DayOf(r.Start); !d.After(DayOf(r.End)); d = d.AddDate(0, 0, 1) {
		ym := YearMonth(d)
		if !seen[ym] {
			seen[ym] = true
			months = append(months, ym)
		}
	}
	return months
}

// TimeWindow is a [Start, End) instant interval, used for proposed shifts.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

const (
	// DateLayout is the canonical day key used in document ids and shards.
	DateLayout = "2006-01-02"
	// MonthLayout is the year-month shard key for published schedules.
	MonthLayout = "2006-01"
)

// DayOf truncates t to UTC midnight of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// YearMonth returns the month shard key for t, e.g. "2026-03".
func YearMonth(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// MinuteOfDay converts an instant to minutes since its day's midnight.
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// ISOWeekParity returns 1 when the ISO week of t is odd and 2 when even.
// It drives the two-week availability cycle.
func ISOWeekParity(t time.Time) int {
	_, week := t.UTC().ISOWeek()
	if week%2 == 1 {
		return 1
	}
	return 2
}

// WeekdaySunday0 returns the day of week with Sunday as 0, matching the
// convention availability rules are stored in.
func WeekdaySunday0(t time.Time) int {
	return int(t.UTC().Weekday())
}
