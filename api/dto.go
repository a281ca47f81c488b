/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Wire-level shapes, decoupled from domain types. Dates travel as
  2006-01-02 strings, timestamps as RFC 3339, hours as decimal strings.

SEE ALSO:
  - handlers.go: where these are parsed and produced
*/
package api

// =============================================================================
// REQUESTS
// =============================================================================

// RangeRequest is the common date-range body for publish, unpublish, and
// the ranged list endpoints. Both bounds are inclusive days.
type RangeRequest struct {
	Start       string  `json:"start"`                  // 2006-01-02
	End         string  `json:"end"`                    // 2006-01-02
	EmployeeIDs []int64 `json:"employee_ids,omitempty"` // empty means everyone
}

// TimeOffRequest submits time off for one employee over an inclusive range.
type TimeOffRequest struct {
	EmployeeID  int64  `json:"employee_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Category    string `json:"category"`
	HoursPerDay string `json:"hours_per_day"` // decimal string, e.g. "8" or "7.5"
	StartMinute *int   `json:"start_minute,omitempty"`
	EndMinute   *int   `json:"end_minute,omitempty"`
}

// WithdrawRequest identifies the owner withdrawing a pending entry.
type WithdrawRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type EmployeeDTO struct {
	ID        int64  `json:"id"`
	AccountID string `json:"account_id,omitempty"`
	Name      string `json:"name"`
	JobCode   string `json:"job_code,omitempty"`
	Email     string `json:"email,omitempty"`
}

type ShiftDTO struct {
	ID          int64  `json:"id"`
	EmployeeID  int64  `json:"employee_id"`
	Start       string `json:"start"` // RFC 3339
	End         string `json:"end"`
	Label       string `json:"label,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type TimeOffDTO struct {
	ID          int64  `json:"id"`
	EmployeeID  int64  `json:"employee_id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Hours       string `json:"hours"`
	StartMinute *int   `json:"start_minute,omitempty"`
	EndMinute   *int   `json:"end_minute,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

// SubmissionDTO reports the outcome of a time-off submission.
type SubmissionDTO struct {
	GroupID      string       `json:"group_id"`
	Entries      []TimeOffDTO `json:"entries"`
	AutoApproved bool         `json:"auto_approved"`
	Queued       bool         `json:"queued"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// AvailabilityDTO is the resolved schedulability decision for one day.
type AvailabilityDTO struct {
	EmployeeID int64  `json:"employee_id"`
	Date       string `json:"date"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason"`
	Tier       string `json:"tier"`
}

// PublishResultDTO summarizes a publish pass.
type PublishResultDTO struct {
	Published        int      `json:"published"`
	SkippedNoAccount int      `json:"skipped_no_account"`
	FailedShards     []string `json:"failed_shards,omitempty"`
	Errors           []string `json:"errors,omitempty"`
	Summary          string   `json:"summary"`
}

// UnpublishResultDTO summarizes an unpublish pass.
type UnpublishResultDTO struct {
	Deleted int `json:"deleted"`
}

// SyncCategoryDTO is one category of a sync pass.
type SyncCategoryDTO struct {
	Category string `json:"category"`
	Synced   int    `json:"synced"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// SyncResultDTO summarizes a full sync pass.
type SyncResultDTO struct {
	Direction  string            `json:"direction"`
	Categories []SyncCategoryDTO `json:"categories"`
	Synced     int               `json:"synced"`
	Failed     []string          `json:"failed,omitempty"`
	Summary    string            `json:"summary"`
}

// IdentityReportDTO summarizes an identity cleanup pass.
type IdentityReportDTO struct {
	Fixed        int `json:"fixed"`
	AlreadyValid int `json:"already_valid"`
	Missing      int `json:"missing"`
}

// QueueItemDTO is one pending offline submission.
type QueueItemDTO struct {
	ID         string `json:"id"`
	DocID      string `json:"doc_id"`
	Attempts   int    `json:"attempts"`
	EnqueuedAt string `json:"enqueued_at"`
	LastError  string `json:"last_error,omitempty"`
}

// FlushResultDTO reports one queue drain attempt.
type FlushResultDTO struct {
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
