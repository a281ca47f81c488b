/*
handlers.go - HTTP API handlers for the scheduling sync engine

PURPOSE:
  Exposes the sync, publish, availability, conflict, identity, and
  time-off engines over REST. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Sync:
    POST   /api/sync/download          Cloud -> local pass
    POST   /api/sync/upload            Local -> cloud pass
    POST   /api/sync/migrate           Relocate legacy time-off records

  Schedule:
    POST   /api/publish                Publish shifts in a date range
    POST   /api/unpublish              Remove published shifts in a range
    GET    /api/shifts                 List local shifts in a range

  Availability & conflicts:
    GET    /api/availability/resolve   Resolve one employee/day decision
    GET    /api/conflicts              List overlapping shifts for a window

  Time off:
    POST   /api/timeoff                Submit a request (queues if offline)
    GET    /api/timeoff                List entries in a date range
    DELETE /api/timeoff/{id}           Withdraw a pending entry (owner only)
    POST   /api/timeoff/{id}/approve   Manager approval
    POST   /api/timeoff/{id}/deny      Manager denial
    POST   /api/timeoff/{id}/reopen    Reverse a review back to pending

  Roster & identity:
    GET    /api/employees              List the local roster
    DELETE /api/employees/{id}         Remove everywhere (local + cloud)
    POST   /api/identity/reconcile     Pull valid account ids from cloud
    POST   /api/identity/clear         Clear invalid cloud account ids
    POST   /api/identity/refresh       Rewrite stale published references

  Offline queue:
    GET    /api/queue                  List pending offline submissions
    POST   /api/queue/flush            Attempt delivery now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: No manager identity bound
  - 403: Caller does not own the entry
  - 404: Resource not found
  - 409: Entry already reviewed, immutable
  - 503: Cloud store unreachable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/availability"
	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/conflict"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/publish"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
	syncer "github.com/JasonS1999/ScheduleHQ-sub002/sync"
	"github.com/JasonS1999/ScheduleHQ-sub002/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Local        schedule.LocalStore
	Queue        timeoff.QueueStore
	Sync         *syncer.Engine
	Publish      *publish.Engine
	Availability *availability.Engine
	Conflicts    *conflict.Detector
	TimeOff      *timeoff.Service
	Identity     *identity.Resolver
	Flusher      *timeoff.Flusher
	Log          *logrus.Entry
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// DownloadSync runs a cloud-to-local pass.
// POST /api/sync/download
func (h *Handler) DownloadSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.DownloadAll(r.Context())
	if err != nil {
		writeDomainError(w, "Sync download failed", err)
		return
	}
	writeJSON(w, http.StatusOK, syncResultDTO(res))
}

// UploadSync runs a local-to-cloud pass.
// POST /api/sync/upload
func (h *Handler) UploadSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.UploadAll(r.Context())
	if err != nil {
		writeDomainError(w, "Sync upload failed", err)
		return
	}
	writeJSON(w, http.StatusOK, syncResultDTO(res))
}

// MigrateLegacy relocates misfiled legacy time-off records.
// POST /api/sync/migrate
func (h *Handler) MigrateLegacy(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.MigrateLegacy(r.Context())
	if err != nil {
		writeDomainError(w, "Migration failed", err)
		return
	}
	writeJSON(w, http.StatusOK, syncResultDTO(res))
}

// =============================================================================
// PUBLISH HANDLERS
// =============================================================================

// PublishShifts pushes the range's shifts to the cloud projection.
// POST /api/publish
func (h *Handler) PublishShifts(w http.ResponseWriter, r *http.Request) {
	rng, ids, ok := parseRangeBody(w, r)
	if !ok {
		return
	}
	res, err := h.Publish.Publish(r.Context(), rng, ids)
	if err != nil {
		writeDomainError(w, "Publish failed", err)
		return
	}
	dto := PublishResultDTO{
		Published:        res.Published,
		SkippedNoAccount: res.SkippedNoAccount,
		FailedShards:     res.FailedShards,
		Summary:          res.Summary(),
	}
	for _, e := range res.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, dto)
}

// UnpublishShifts removes published shifts in the range from the cloud.
// POST /api/unpublish
func (h *Handler) UnpublishShifts(w http.ResponseWriter, r *http.Request) {
	rng, ids, ok := parseRangeBody(w, r)
	if !ok {
		return
	}
	deleted, err := h.Publish.Unpublish(r.Context(), rng, ids)
	if err != nil {
		writeDomainError(w, "Unpublish failed", err)
		return
	}
	writeJSON(w, http.StatusOK, UnpublishResultDTO{Deleted: deleted})
}

// ListShifts returns local shifts in the inclusive day range.
// GET /api/shifts?start=2006-01-02&end=2006-01-02
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRangeQuery(w, r)
	if !ok {
		return
	}
	shifts, err := h.Local.ListShiftsInRange(r.Context(), rng, nil)
	if err != nil {
		writeDomainError(w, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, 0, len(shifts))
	for _, s := range shifts {
		dtos = append(dtos, shiftDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AVAILABILITY AND CONFLICT HANDLERS
// =============================================================================

// ResolveAvailability answers whether the employee can work the day, and
// optionally a proposed time window on it.
// GET /api/availability/resolve?employee_id=1&date=2006-01-02[&start=...&end=...]
func (h *Handler) ResolveAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	empID, err := strconv.ParseInt(q.Get("employee_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee_id", err)
		return
	}
	date, err := time.Parse(schedule.DateLayout, q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, want 2006-01-02", err)
		return
	}

	var window *schedule.TimeWindow
	if q.Get("start") != "" || q.Get("end") != "" {
		start, err := time.Parse(time.RFC3339, q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start, want RFC 3339", err)
			return
		}
		end, err := time.Parse(time.RFC3339, q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end, want RFC 3339", err)
			return
		}
		window = &schedule.TimeWindow{Start: start, End: end}
	}

	dec, err := h.Availability.Resolve(r.Context(), schedule.EmployeeID(empID), date, window)
	if err != nil {
		writeDomainError(w, "Availability resolution failed", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		EmployeeID: empID,
		Date:       date.Format(schedule.DateLayout),
		Available:  dec.Available,
		Reason:     dec.Reason,
		Tier:       string(dec.Tier),
	})
}

// ListConflicts returns the employee's shifts overlapping the window.
// GET /api/conflicts?employee_id=1&start=...&end=...[&exclude=shiftID]
func (h *Handler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	empID, err := strconv.ParseInt(q.Get("employee_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee_id", err)
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start, want RFC 3339", err)
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end, want RFC 3339", err)
		return
	}
	exclude := conflict.NoExclusion
	if raw := q.Get("exclude"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid exclude", err)
			return
		}
		exclude = schedule.ShiftID(id)
	}

	shifts, err := h.Conflicts.ListConflicts(r.Context(), schedule.EmployeeID(empID), start, end, exclude)
	if err != nil {
		writeDomainError(w, "Conflict check failed", err)
		return
	}
	dtos := make([]ShiftDTO, 0, len(shifts))
	for _, s := range shifts {
		dtos = append(dtos, shiftDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TIME-OFF HANDLERS
// =============================================================================

// SubmitTimeOff handles an employee submission, queuing when offline.
// POST /api/timeoff
func (h *Handler) SubmitTimeOff(w http.ResponseWriter, r *http.Request) {
	var body TimeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	rng, ok := parseRange(w, body.Start, body.End)
	if !ok {
		return
	}
	hours, err := decimal.NewFromString(body.HoursPerDay)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours_per_day", err)
		return
	}

	sub, err := h.TimeOff.SubmitOrQueue(r.Context(), timeoff.Request{
		EmployeeID:  schedule.EmployeeID(body.EmployeeID),
		Range:       rng,
		Category:    schedule.TimeOffCategory(body.Category),
		HoursPerDay: hours,
		StartMinute: body.StartMinute,
		EndMinute:   body.EndMinute,
	})
	if err != nil {
		writeDomainError(w, "Time-off submission failed", err)
		return
	}

	dto := SubmissionDTO{
		GroupID:      sub.GroupID,
		AutoApproved: sub.AutoApproved,
		Queued:       sub.Queued,
		Warnings:     sub.Warnings,
		Entries:      make([]TimeOffDTO, 0, len(sub.Entries)),
	}
	for _, e := range sub.Entries {
		dto.Entries = append(dto.Entries, timeOffDTO(e))
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListTimeOff returns entries in the inclusive day range.
// GET /api/timeoff?start=2006-01-02&end=2006-01-02
func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRangeQuery(w, r)
	if !ok {
		return
	}
	entries, err := h.Local.ListTimeOffInRange(r.Context(), rng)
	if err != nil {
		writeDomainError(w, "Failed to list time off", err)
		return
	}
	dtos := make([]TimeOffDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, timeOffDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// WithdrawTimeOff removes a pending entry on behalf of its owner.
// DELETE /api/timeoff/{id}
func (h *Handler) WithdrawTimeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	var body WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if err := h.TimeOff.Withdraw(r.Context(), schedule.EmployeeID(body.EmployeeID), schedule.TimeOffID(id)); err != nil {
		writeDomainError(w, "Withdraw failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveTimeOff reviews a pending entry as approved.
// POST /api/timeoff/{id}/approve
func (h *Handler) ApproveTimeOff(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// DenyTimeOff reviews a pending entry as denied.
// POST /api/timeoff/{id}/deny
func (h *Handler) DenyTimeOff(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if err := h.TimeOff.Review(r.Context(), schedule.TimeOffID(id), approve); err != nil {
		writeDomainError(w, "Review failed", err)
		return
	}
	entry, err := h.Local.GetTimeOff(r.Context(), schedule.TimeOffID(id))
	if err != nil {
		writeDomainError(w, "Failed to load entry", err)
		return
	}
	writeJSON(w, http.StatusOK, timeOffDTO(*entry))
}

// ReopenTimeOff reverses a review back to pending.
// POST /api/timeoff/{id}/reopen
func (h *Handler) ReopenTimeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if err := h.TimeOff.ReverseReview(r.Context(), schedule.TimeOffID(id)); err != nil {
		writeDomainError(w, "Reopen failed", err)
		return
	}
	entry, err := h.Local.GetTimeOff(r.Context(), schedule.TimeOffID(id))
	if err != nil {
		writeDomainError(w, "Failed to load entry", err)
		return
	}
	writeJSON(w, http.StatusOK, timeOffDTO(*entry))
}

// =============================================================================
// ROSTER AND IDENTITY HANDLERS
// =============================================================================

// ListEmployees returns the local roster.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Local.ListEmployees(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, EmployeeDTO{
			ID:        int64(e.ID),
			AccountID: e.AccountID,
			Name:      e.Name,
			JobCode:   e.JobCode,
			Email:     e.Email,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RemoveEmployee deletes the employee locally and in the cloud, cascading
// to dependent shifts and time off.
// DELETE /api/employees/{id}
func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r)
	if !ok {
		return
	}
	if err := h.Sync.RemoveEmployee(r.Context(), schedule.EmployeeID(id)); err != nil {
		writeDomainError(w, "Remove failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileIdentity pulls valid account ids down from the cloud roster.
// POST /api/identity/reconcile
func (h *Handler) ReconcileIdentity(w http.ResponseWriter, r *http.Request) {
	fixed, err := h.Identity.ReconcileLocalFromCloud(r.Context())
	if err != nil {
		writeDomainError(w, "Identity reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityReportDTO{Fixed: fixed})
}

// ClearInvalidIdentity clears placeholder account ids in the cloud so the
// provisioning process reassigns them.
// POST /api/identity/clear
func (h *Handler) ClearInvalidIdentity(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Identity.ClearInvalidIdentifiers(r.Context())
	if err != nil {
		writeDomainError(w, "Identity cleanup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityReportDTO{
		Fixed:        rep.Fixed,
		AlreadyValid: rep.AlreadyValid,
		Missing:      rep.Missing,
	})
}

// RefreshIdentityReferences rewrites published shift docs whose embedded
// account id went stale.
// POST /api/identity/refresh
func (h *Handler) RefreshIdentityReferences(w http.ResponseWriter, r *http.Request) {
	fixed, err := h.Identity.RefreshDependentReferences(r.Context())
	if err != nil {
		writeDomainError(w, "Reference refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityReportDTO{Fixed: fixed})
}

// =============================================================================
// OFFLINE QUEUE HANDLERS
// =============================================================================

// ListQueue returns pending offline submissions.
// GET /api/queue
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.Queue.ListQueuedTimeOff(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list queue", err)
		return
	}
	dtos := make([]QueueItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, QueueItemDTO{
			ID:         it.ID,
			DocID:      it.DocID,
			Attempts:   it.Attempts,
			EnqueuedAt: it.EnqueuedAt.Format(time.RFC3339),
			LastError:  it.LastError,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// FlushQueue attempts to deliver every queued submission now.
// POST /api/queue/flush
func (h *Handler) FlushQueue(w http.ResponseWriter, r *http.Request) {
	delivered, remaining, err := h.Flusher.FlushOnce(r.Context())
	if err != nil {
		writeDomainError(w, "Queue flush failed", err)
		return
	}
	writeJSON(w, http.StatusOK, FlushResultDTO{Delivered: delivered, Remaining: remaining})
}

// =============================================================================
// PARSING AND SERIALIZATION HELPERS
// =============================================================================

func parseRange(w http.ResponseWriter, start, end string) (schedule.DateRange, bool) {
	s, err := time.Parse(schedule.DateLayout, start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start, want 2006-01-02", err)
		return schedule.DateRange{}, false
	}
	e, err := time.Parse(schedule.DateLayout, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end, want 2006-01-02", err)
		return schedule.DateRange{}, false
	}
	rng := schedule.DateRange{Start: s, End: e}
	if err := rng.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return schedule.DateRange{}, false
	}
	return rng, true
}

func parseRangeQuery(w http.ResponseWriter, r *http.Request) (schedule.DateRange, bool) {
	q := r.URL.Query()
	return parseRange(w, q.Get("start"), q.Get("end"))
}

func parseRangeBody(w http.ResponseWriter, r *http.Request) (schedule.DateRange, []schedule.EmployeeID, bool) {
	var body RangeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return schedule.DateRange{}, nil, false
	}
	rng, ok := parseRange(w, body.Start, body.End)
	if !ok {
		return schedule.DateRange{}, nil, false
	}
	var ids []schedule.EmployeeID
	for _, raw := range body.EmployeeIDs {
		ids = append(ids, schedule.EmployeeID(raw))
	}
	return rng, ids, true
}

func parsePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func shiftDTO(s schedule.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:         int64(s.ID),
		EmployeeID: int64(s.EmployeeID),
		Start:      s.Start.Format(time.RFC3339),
		End:        s.End.Format(time.RFC3339),
		Label:      s.Label,
		Notes:      s.Notes,
	}
	if s.PublishedAt != nil {
		dto.PublishedAt = s.PublishedAt.Format(time.RFC3339)
	}
	return dto
}

func timeOffDTO(e schedule.TimeOffEntry) TimeOffDTO {
	return TimeOffDTO{
		ID:          int64(e.ID),
		EmployeeID:  int64(e.EmployeeID),
		Date:        e.Date.Format(schedule.DateLayout),
		Category:    string(e.Category),
		Status:      string(e.Status),
		Hours:       e.Hours.String(),
		StartMinute: e.StartMinute,
		EndMinute:   e.EndMinute,
		GroupID:     e.GroupID,
	}
}

func syncResultDTO(res syncer.Result) SyncResultDTO {
	dto := SyncResultDTO{
		Direction: res.Direction,
		Synced:    res.Synced(),
		Failed:    res.Failed(),
		Summary:   res.Summary(),
	}
	for _, c := range res.Categories {
		cd := SyncCategoryDTO{Category: c.Category, Synced: c.Synced, Skipped: c.Skipped}
		if c.Err != nil {
			cd.Error = c.Err.Error()
		}
		dto.Categories = append(dto.Categories, cd)
	}
	return dto
}

// writeDomainError maps engine error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, message, err)
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, cloud.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, schedule.ErrInvalidInput), errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, schedule.ErrNotOwner):
		writeError(w, http.StatusForbidden, message, err)
	case errors.Is(err, schedule.ErrImmutableEntry):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, cloud.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
