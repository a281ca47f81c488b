/*
Package sync keeps the local store and the cloud store convergent under
concurrent, partially-connected access.

PURPOSE:
  Two independent directions plus a cleanup pass:

    DownloadAll   cloud -> local: roster, time-off, availability,
                  templates, notes, shift runners. Shifts are deliberately
                  never downloaded; the local store is the sole source of
                  truth for shift content and the cloud copy is a one-way
                  publish projection.
    UploadAll     local -> cloud: everything local-authoritative except
                  shift content (shifts travel only through publish).
    MigrateLegacy relocates records a historical defect misfiled into the
                  shared top-level collection.

CONSISTENCY MODEL:
  Convergence, not linearizability. Every step is an upsert or a
  delete-then-recreate keyed by natural identifiers, so re-running any step
  is safe and download -> upload -> download reaches a fixed point.

FAILURE MODEL:
  Categories are independent: a failing category is recorded in the result
  and the pass continues. Each category is a cancellation point and runs
  under its own timeout. Only a missing manager identity fails the whole
  pass fast, with no partial work.

SEE ALSO:
  - download.go, upload.go, migrate.go: the category implementations
  - publish/: the only local -> cloud path for shifts
*/
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/identity"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// DefaultCategoryTimeout bounds one category's cloud round trips. A slow
// category is skipped and reported, never fatal to the pass.
const DefaultCategoryTimeout = 30 * time.Second

// Engine orchestrates bidirectional sync for one manager context.
type Engine struct {
	Local    schedule.LocalStore
	Cloud    cloud.Store
	Identity *identity.Resolver
	Log      *logrus.Entry

	// CategoryTimeout overrides DefaultCategoryTimeout when positive.
	CategoryTimeout time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

func NewEngine(local schedule.LocalStore, cl cloud.Store, res *identity.Resolver, log *logrus.Entry) *Engine {
	return &Engine{Local: local, Cloud: cl, Identity: res, Log: log, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) timeout() time.Duration {
	if e.CategoryTimeout > 0 {
		return e.CategoryTimeout
	}
	return DefaultCategoryTimeout
}

// =============================================================================
// RESULTS
// =============================================================================

// CategoryResult reports one category of a pass.
type CategoryResult struct {
	Category string
	Synced   int // records written (or relocated, for migration)
	Skipped  int // records dropped by dedup or validity rules
	Err      error
}

// Result aggregates a full pass. Category errors live here; the pass-level
// error is reserved for fail-fast conditions (no identity, cancellation).
type Result struct {
	Direction  string
	StartedAt  time.Time
	FinishedAt time.Time
	Categories []CategoryResult
}

// Synced totals records written across categories.
func (r Result) Synced() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Synced
	}
	return n
}

// Failed lists the categories that errored.
func (r Result) Failed() []string {
	var names []string
	for _, c := range r.Categories {
		if c.Err != nil {
			names = append(names, c.Category)
		}
	}
	return names
}

// Summary renders the human-readable outcome for the UI.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d records", r.Direction, r.Synced())
	skipped := 0
	for _, c := range r.Categories {
		skipped += c.Skipped
	}
	if skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", skipped)
	}
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, ", failed: %s", strings.Join(failed, ", "))
	}
	return b.String()
}

// =============================================================================
// CATEGORY RUNNER
// =============================================================================

type category struct {
	name string
	run  func(ctx context.Context) (synced, skipped int, err error)
}

// runPass iterates categories sequentially. Each boundary is a cancellation
// point; each category gets its own timeout; a category error is recorded
// and the pass continues.
func (e *Engine) runPass(ctx context.Context, direction string, cats []category) (Result, error) {
	res := Result{Direction: direction, StartedAt: e.now()}
	if e.Cloud.ManagerID() == "" {
		return res, schedule.ErrNotAuthenticated
	}

	for _, c := range cats {
		if err := ctx.Err(); err != nil {
			res.FinishedAt = e.now()
			return res, err
		}
		cctx, cancel := context.WithTimeout(ctx, e.timeout())
		synced, skipped, err := c.run(cctx)
		cancel()

		res.Categories = append(res.Categories, CategoryResult{
			Category: c.name, Synced: synced, Skipped: skipped, Err: err,
		})
		if err != nil {
			e.logWarn("sync category failed", logrus.Fields{
				"direction": direction, "category": c.name, "error": err,
			})
			continue
		}
	}

	res.FinishedAt = e.now()
	e.logInfo("sync pass complete", logrus.Fields{
		"direction": direction,
		"synced":    res.Synced(),
		"failed":    len(res.Failed()),
	})
	return res, nil
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
