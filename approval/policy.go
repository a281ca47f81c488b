/*
Package approval implements the time-off auto-approval policy.

PURPOSE:
  When an employee requests time off, eligible categories (general PTO and
  simple day-off; not multi-day vacation) may be approved without manager
  review, provided few enough employees already have that day approved.
  This is a pure query-then-decide function; the caller persists the
  resulting status.

THRESHOLD:
  The concurrency limit ("how many may already be off") defaults to 2 and
  is a policy parameter, not a hard constant: approval happens iff the
  approved count for the date is strictly below the limit.
*/
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// DefaultLimit is the default concurrency threshold.
const DefaultLimit = 2

// Policy decides immediate approval vs. pending manager review.
type Policy struct {
	TimeOff schedule.TimeOffStore

	// Limit is the maximum number of already-approved entries a date may
	// carry and still auto-approve one more. Zero means DefaultLimit.
	Limit int
}

func NewPolicy(timeOff schedule.TimeOffStore) *Policy {
	return &Policy{TimeOff: timeOff}
}

func (p *Policy) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return DefaultLimit
}

// ShouldAutoApprove reports whether a request for the given date and
// category can skip manager review.
func (p *Policy) ShouldAutoApprove(ctx context.Context, date time.Time, category schedule.TimeOffCategory) (bool, error) {
	if !category.AutoApprovable() {
		return false, nil
	}
	count, err := p.TimeOff.CountApprovedTimeOff(ctx, schedule.DayOf(date))
	if err != nil {
		return false, fmt.Errorf("auto-approval count: %w", err)
	}
	return count < p.limit(), nil
}
