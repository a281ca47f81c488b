/*
Package identity maps local numeric employee identifiers to cloud account
identifiers (UIDs) and repairs the damage a data-entry defect left behind.

PURPOSE:
  Account UIDs are attached to cloud employee records by an external
  provisioning process. A historical defect let human-typed placeholder
  strings ("manager", "admin", ...) land in the accountId field, and some
  published shift documents still embed those stale values. This package
  detects invalid identifiers, repairs the local roster from the cloud,
  strips invalid cloud identifiers so provisioning re-runs, and fixes
  dependent shift references.

IDEMPOTENCE:
  Every operation is safe to re-run. Partial progress before an error is
  kept, never rolled back: each row fix is independently idempotent.

SEE ALSO:
  - publish/: refreshes identities before building the projection
  - sync/: consults the resolver during roster download/upload
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// MinAccountIDLength is the shortest UID the provisioning backend issues.
// Anything shorter is human-typed garbage.
const MinAccountIDLength = 20

// DefaultPlaceholders are the known seed-account literals found in the wild,
// matched case-insensitively.
var DefaultPlaceholders = []string{"manager", "admin", "owner", "placeholder", "test"}

// Resolver repairs account identifiers across the local and cloud stores.
type Resolver struct {
	Local schedule.EmployeeStore
	Cloud cloud.Store
	Log   *logrus.Entry

	// Placeholders overrides DefaultPlaceholders when non-nil.
	Placeholders []string
}

func NewResolver(local schedule.EmployeeStore, cl cloud.Store, log *logrus.Entry) *Resolver {
	return &Resolver{Local: local, Cloud: cl, Log: log}
}

// =============================================================================
// VALIDITY
// =============================================================================

// IsValidAccountID reports whether id looks like a real provisioned UID:
// present, at least MinAccountIDLength characters, strictly alphanumeric,
// and not a known placeholder token.
func (r *Resolver) IsValidAccountID(id string) bool {
	if id == "" {
		return false
	}
	lower := strings.ToLower(id)
	for _, p := range r.placeholders() {
		if lower == p {
			return false
		}
	}
	if len(id) < MinAccountIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func (r *Resolver) placeholders() []string {
	if r.Placeholders != nil {
		return r.Placeholders
	}
	return DefaultPlaceholders
}

// =============================================================================
// RECONCILE LOCAL FROM CLOUD
// =============================================================================

// ReconcileLocalFromCloud copies valid cloud UIDs onto local employee rows
// that are missing them or hold a different value. Returns the number of
// rows changed. A currently-valid local identifier is never replaced by an
// invalid cloud one (only valid cloud values are considered at all).
func (r *Resolver) ReconcileLocalFromCloud(ctx context.Context) (int, error) {
	docs, err := r.Cloud.ListEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	changed := 0
	for docID, doc := range docs {
		if !r.IsValidAccountID(doc.AccountID) {
			continue
		}
		localID, err := parseLocalID(docID, doc)
		if err != nil {
			r.logWarn("skipping employee doc with unusable local id", logrus.Fields{"doc": docID})
			continue
		}
		emp, err := r.Local.GetEmployee(ctx, localID)
		if err != nil {
			if isNotFound(err) {
				continue // cloud knows an employee the local store never created
			}
			return changed, fmt.Errorf("reconcile employee %d: %w", localID, err)
		}
		if emp.AccountID == doc.AccountID {
			continue
		}
		if err := r.Local.SetAccountID(ctx, localID, doc.AccountID); err != nil {
			return changed, fmt.Errorf("reconcile employee %d: %w", localID, err)
		}
		changed++
	}
	if changed > 0 {
		r.logInfo("reconciled local account ids from cloud", logrus.Fields{"changed": changed})
	}
	return changed, nil
}

// =============================================================================
// CLEAR INVALID IDENTIFIERS
// =============================================================================

// Report summarizes a ClearInvalidIdentifiers pass.
type Report struct {
	Fixed        int // invalid identifiers removed
	AlreadyValid int
	Missing      int // no identifier present at all
}

// ClearInvalidIdentifiers scans cloud employee records and removes the
// accountId field wherever it fails validity. All other fields, including
// role and permissions, are preserved; the cleared field triggers
// out-of-band re-provisioning.
func (r *Resolver) ClearInvalidIdentifiers(ctx context.Context) (Report, error) {
	var rep Report
	docs, err := r.Cloud.ListEmployees(ctx)
	if err != nil {
		return rep, fmt.Errorf("clear invalid ids: %w", err)
	}
	for docID, doc := range docs {
		switch {
		case doc.AccountID == "":
			rep.Missing++
		case r.IsValidAccountID(doc.AccountID):
			rep.AlreadyValid++
		default:
			if err := r.Cloud.ClearEmployeeAccountID(ctx, docID); err != nil {
				return rep, fmt.Errorf("clear invalid ids: doc %s: %w", docID, err)
			}
			r.logInfo("cleared invalid account id", logrus.Fields{"doc": docID, "was": doc.AccountID})
			rep.Fixed++
		}
	}
	return rep, nil
}

// =============================================================================
// REFRESH DEPENDENT REFERENCES
// =============================================================================

// RefreshDependentReferences walks every published shift document and
// corrects embedded account ids that no longer match the employee's
// now-valid identifier. Returns the number of documents rewritten.
func (r *Resolver) RefreshDependentReferences(ctx context.Context) (int, error) {
	docs, err := r.Cloud.ListEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh references: %w", err)
	}
	valid := make(map[int64]string) // local id -> valid UID
	for docID, doc := range docs {
		if !r.IsValidAccountID(doc.AccountID) {
			continue
		}
		if id, err := parseLocalID(docID, doc); err == nil {
			valid[int64(id)] = doc.AccountID
		}
	}

	months, err := r.Cloud.ListShiftMonths(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh references: %w", err)
	}

	updated := 0
	for _, ym := range months {
		shifts, err := r.Cloud.ListShifts(ctx, ym)
		if err != nil {
			return updated, fmt.Errorf("refresh references: shard %s: %w", ym, err)
		}
		stale := make(map[string]cloud.ShiftDoc)
		for id, doc := range shifts {
			uid, ok := valid[doc.EmployeeID]
			if !ok || doc.AccountID == uid {
				continue
			}
			doc.AccountID = uid
			stale[id] = doc
		}
		if len(stale) == 0 {
			continue
		}
		if err := r.Cloud.SetShifts(ctx, ym, stale); err != nil {
			return updated, fmt.Errorf("refresh references: shard %s: %w", ym, err)
		}
		updated += len(stale)
		r.logInfo("refreshed stale shift references", logrus.Fields{"shard": ym, "count": len(stale)})
	}
	return updated, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// parseLocalID prefers the embedded localId field and falls back to the
// document id, which the sync engine writes as the decimal local id.
func parseLocalID(docID string, doc cloud.EmployeeDoc) (schedule.EmployeeID, error) {
	if doc.LocalID > 0 {
		return schedule.EmployeeID(doc.LocalID), nil
	}
	n, err := strconv.ParseInt(docID, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: employee doc %q has no local id", schedule.ErrInvalidInput, docID)
	}
	return schedule.EmployeeID(n), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, schedule.ErrNotFound) || errors.Is(err, cloud.ErrNotFound)
}

func (r *Resolver) logInfo(msg string, f logrus.Fields) {
	if r.Log != nil {
		r.Log.WithFields(f).Info(msg)
	}
}

func (r *Resolver) logWarn(msg string, f logrus.Fields) {
	if r.Log != nil {
		r.Log.WithFields(f).Warn(msg)
	}
}
