/*
Package timeoff handles employee time-off submission against the cloud
store, with a durable offline queue for disconnected operation.

PURPOSE:
  Employee-submitted requests reach the cloud store directly; the
  auto-approval policy and availability engine gate and inform the
  submission. When the cloud is unreachable the request is queued to
  durable local storage and retried on a polling interval (see queue.go).

LIFECYCLE RULES:
  - Multi-day submissions are expanded day-by-day and share a group id.
  - pending -> approved/denied happens exactly once under normal flow.
  - A pending entry may be edited or withdrawn only by its owner.
  - Reviewed entries are immutable except by explicit manager reversal.

SEE ALSO:
  - approval/: the auto-approval threshold
  - availability/: schedulability warnings attached to submissions
  - queue.go: the retry flusher
*/
package timeoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/approval"
	"github.com/JasonS1999/ScheduleHQ-sub002/availability"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// QUEUE STORAGE CONTRACT
// =============================================================================

// QueuedSubmission is one cloud write awaiting connectivity.
type QueuedSubmission struct {
	ID         string // uuid
	DocID      string
	Doc        cloud.TimeOffDoc
	Attempts   int
	EnqueuedAt time.Time
	LastError  string
}

// QueueStore is the durable local queue. Implemented by store/sqlite.
type QueueStore interface {
	EnqueueTimeOff(ctx context.Context, item QueuedSubmission) error
	ListQueuedTimeOff(ctx context.Context) ([]QueuedSubmission, error)
	DeleteQueuedTimeOff(ctx context.Context, id string) error
	// BumpQueueAttempt records a failed delivery; the item stays queued.
	BumpQueueAttempt(ctx context.Context, id string, lastErr string) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service submits, withdraws, and reviews time-off entries.
type Service struct {
	Local        schedule.LocalStore
	Cloud        cloud.Store
	Queue        QueueStore
	Availability *availability.Engine
	Approval     *approval.Policy
	Log          *logrus.Entry

	// Swappable for tests.
	Now        func() time.Time
	NewGroupID func() string
}

func NewService(local schedule.LocalStore, cl cloud.Store, queue QueueStore, avail *availability.Engine, pol *approval.Policy, log *logrus.Entry) *Service {
	return &Service{
		Local:        local,
		Cloud:        cl,
		Queue:        queue,
		Availability: avail,
		Approval:     pol,
		Log:          log,
		Now:          time.Now,
		NewGroupID:   uuid.NewString,
	}
}

// Request is an employee submission covering one or more days.
type Request struct {
	EmployeeID  schedule.EmployeeID
	Range       schedule.DateRange
	Category    schedule.TimeOffCategory
	HoursPerDay decimal.Decimal
	StartMinute *int
	EndMinute   *int
}

// Submission reports what happened to a request.
type Submission struct {
	GroupID      string
	Entries      []schedule.TimeOffEntry
	AutoApproved bool
	Queued       bool     // true when the cloud write waits in the offline queue
	Warnings     []string // availability advisories, never blocking
}

// SubmitOrQueue persists the request locally, decides its status, and
// pushes it to the cloud, falling back to the durable queue when the cloud
// is unreachable. Transient cloud failure is never surfaced as an error.
func (s *Service) SubmitOrQueue(ctx context.Context, req Request) (Submission, error) {
	var sub Submission
	if !req.Category.Valid() {
		return sub, fmt.Errorf("%w: unknown category %q", schedule.ErrInvalidInput, req.Category)
	}
	if err := req.Range.Validate(); err != nil {
		return sub, err
	}
	if _, err := s.Local.GetEmployee(ctx, req.EmployeeID); err != nil {
		return sub, fmt.Errorf("submit time off: %w", err)
	}

	days := req.Range.Days()
	sub.GroupID = s.NewGroupID()

	status, err := s.decideStatus(ctx, req, days)
	if err != nil {
		return sub, err
	}
	sub.AutoApproved = status == schedule.StatusApproved

	now := s.Now().UTC()
	for _, day := range days {
		s.warnIfUnavailable(ctx, &sub, req, day)

		entry := schedule.TimeOffEntry{
			EmployeeID:  req.EmployeeID,
			Date:        day,
			Category:    req.Category,
			Hours:       req.HoursPerDay,
			StartMinute: req.StartMinute,
			EndMinute:   req.EndMinute,
			Status:      status,
			GroupID:     sub.GroupID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		// Local first: the row survives a crash, and the queue references
		// only the cloud write.
		if err := s.Local.UpsertTimeOffByDay(ctx, entry); err != nil {
			return sub, fmt.Errorf("submit time off: %w", err)
		}
		// Reload to learn the row id the upsert landed on; callers withdraw
		// and review by id.
		if stored, err := s.Local.ListTimeOffForEmployee(ctx, req.EmployeeID, schedule.DateRange{Start: day, End: day}); err == nil && len(stored) == 1 {
			entry.ID = stored[0].ID
		}
		sub.Entries = append(sub.Entries, entry)

		queued, err := s.pushOrQueue(ctx, entry)
		if err != nil {
			return sub, err
		}
		if queued {
			sub.Queued = true
		}
	}
	return sub, nil
}

// decideStatus applies the auto-approval policy. Multi-day requests always
// go to manager review; single eligible days consult the concurrency
// threshold.
func (s *Service) decideStatus(ctx context.Context, req Request, days []time.Time) (schedule.TimeOffStatus, error) {
	if len(days) != 1 {
		return schedule.StatusPending, nil
	}
	ok, err := s.Approval.ShouldAutoApprove(ctx, days[0], req.Category)
	if err != nil {
		return "", fmt.Errorf("submit time off: %w", err)
	}
	if ok {
		return schedule.StatusApproved, nil
	}
	return schedule.StatusPending, nil
}

func (s *Service) warnIfUnavailable(ctx context.Context, sub *Submission, req Request, day time.Time) {
	if s.Availability == nil {
		return
	}
	dec, err := s.Availability.Resolve(ctx, req.EmployeeID, day, nil)
	if err != nil || dec.Available {
		return
	}
	sub.Warnings = append(sub.Warnings,
		fmt.Sprintf("%s: %s", day.Format(schedule.DateLayout), dec.Reason))
}

// pushOrQueue writes the entry's cloud doc, falling back to the durable
// queue on transient unavailability. Returns whether the write was queued.
func (s *Service) pushOrQueue(ctx context.Context, entry schedule.TimeOffEntry) (bool, error) {
	docID := cloud.TimeOffDocID(entry.EmployeeID, entry.Date, entry.Category)
	doc := s.docFor(ctx, entry)

	err := s.Cloud.SetTimeOff(ctx, docID, doc)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, cloud.ErrUnavailable) {
		return false, fmt.Errorf("submit time off: %w", err)
	}

	item := QueuedSubmission{
		ID:         uuid.NewString(),
		DocID:      docID,
		Doc:        doc,
		EnqueuedAt: s.Now().UTC(),
	}
	if qerr := s.Queue.EnqueueTimeOff(ctx, item); qerr != nil {
		return false, fmt.Errorf("submit time off: enqueue after outage: %w", qerr)
	}
	if s.Log != nil {
		s.Log.WithField("doc", docID).Info("cloud unavailable, queued time-off submission")
	}
	return true, nil
}

func (s *Service) docFor(ctx context.Context, entry schedule.TimeOffEntry) cloud.TimeOffDoc {
	accountID := ""
	if emp, err := s.Local.GetEmployee(ctx, entry.EmployeeID); err == nil {
		accountID = emp.AccountID
	}
	return cloud.TimeOffDoc{
		EmployeeID:  int64(entry.EmployeeID),
		AccountID:   accountID,
		Date:        entry.Date.Format(schedule.DateLayout),
		Category:    string(entry.Category),
		Status:      string(entry.Status),
		Hours:       entry.Hours.String(),
		StartMinute: entry.StartMinute,
		EndMinute:   entry.EndMinute,
		GroupID:     entry.GroupID,
		UpdatedAt:   s.Now().UTC(),
	}
}

// =============================================================================
// WITHDRAW / REVIEW / REVERSE
// =============================================================================

// Withdraw removes a pending entry. Only the owner may withdraw, and only
// before review. The cloud row is deleted first so a failure leaves both
// stores holding the entry rather than just one.
func (s *Service) Withdraw(ctx context.Context, employeeID schedule.EmployeeID, id schedule.TimeOffID) error {
	entry, err := s.Local.GetTimeOff(ctx, id)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if entry.EmployeeID != employeeID {
		return schedule.ErrNotOwner
	}
	if entry.Status.Reviewed() {
		return schedule.ErrImmutableEntry
	}
	docID := cloud.TimeOffDocID(entry.EmployeeID, entry.Date, entry.Category)
	if err := s.Cloud.DeleteTimeOff(ctx, docID); err != nil && !errors.Is(err, cloud.ErrNotFound) {
		return fmt.Errorf("withdraw: %w", err)
	}
	if err := s.Local.DeleteTimeOff(ctx, id); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return nil
}

// Review transitions a pending entry to approved or denied. Manager-only
// path; the transition happens exactly once.
func (s *Service) Review(ctx context.Context, id schedule.TimeOffID, approve bool) error {
	entry, err := s.Local.GetTimeOff(ctx, id)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}
	if entry.Status.Reviewed() {
		return schedule.ErrImmutableEntry
	}
	if approve {
		entry.Status = schedule.StatusApproved
	} else {
		entry.Status = schedule.StatusDenied
	}
	return s.writeReviewed(ctx, entry)
}

// ReverseReview is the explicit manager reversal that returns a reviewed
// entry to pending.
func (s *Service) ReverseReview(ctx context.Context, id schedule.TimeOffID) error {
	entry, err := s.Local.GetTimeOff(ctx, id)
	if err != nil {
		return fmt.Errorf("reverse review: %w", err)
	}
	if !entry.Status.Reviewed() {
		return fmt.Errorf("%w: entry %d is still pending", schedule.ErrInvalidInput, id)
	}
	entry.Status = schedule.StatusPending
	return s.writeReviewed(ctx, entry)
}

func (s *Service) writeReviewed(ctx context.Context, entry *schedule.TimeOffEntry) error {
	entry.UpdatedAt = s.Now().UTC()
	if err := s.Local.UpdateTimeOff(ctx, entry); err != nil {
		return fmt.Errorf("update entry %d: %w", entry.ID, err)
	}
	docID := cloud.TimeOffDocID(entry.EmployeeID, entry.Date, entry.Category)
	if err := s.Cloud.SetTimeOff(ctx, docID, s.docFor(ctx, *entry)); err != nil {
		// The next upload pass reconciles the cloud copy; the local
		// decision stands.
		if s.Log != nil {
			s.Log.WithField("doc", docID).WithError(err).Warn("cloud write failed after review")
		}
	}
	return nil
}
