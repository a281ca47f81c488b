/*
errors.go - Sentinel errors shared across engine components

PURPOSE:
  One place for the error taxonomy the engine exposes. Components wrap these
  with %w and callers classify with errors.Is.

ERROR CATEGORIES:
  1. Not-authenticated: no manager identity resolved; sync/publish fail fast.
  2. Invalid-reference: an id addresses nothing, or fails validity checks.
  3. Invalid input: malformed windows, unknown enum values.

  Transient cloud I/O errors live in the cloud package (cloud.ErrUnavailable)
  because only cloud-facing code produces them. Conflicts are never errors:
  the conflict detector returns them as values.
*/
package schedule

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires a resolved
	// manager or employee identity and none is configured. Operations fail
	// fast with this and perform no partial work.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when an operation addresses an employee,
	// shift, or time-off entry that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidWindow is returned for time windows or date ranges whose
	// end precedes their start.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrInvalidInput is returned for malformed domain values, such as an
	// unknown category or status string.
	ErrInvalidInput = errors.New("invalid input")

	// ErrImmutableEntry is returned when an employee attempts to edit or
	// withdraw a time-off entry that has already been reviewed.
	ErrImmutableEntry = errors.New("entry already reviewed")

	// ErrNotOwner is returned when an employee attempts to modify another
	// employee's pending entry.
	ErrNotOwner = errors.New("not the entry owner")
)
