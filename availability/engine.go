/*
Package availability decides whether an employee is schedulable on a date,
optionally for a specific time window.

PURPOSE:
  State-free resolution over the three-tier override system:

    1. date-specific override   (exact calendar date)
    2. two-week-cycle rule      (ISO-week parity x day-of-week)
    3. weekly rule              (day-of-week)

  First matching tier wins; no rule at any tier means available by default.

TIME WINDOWS:
  Containment is inclusive, compared as minutes since midnight:
  proposedStart >= availStart AND proposedEnd <= availEnd. A window whose
  end is at or before its start is treated as ending the next day, so a
  close shift running to 01:00 only fits an availability window that is
  itself overnight or all-day.

DATA QUALITY:
  For one employee and tier at most one rule should match a date. Ties are
  a defect; the engine picks the lowest rule id deterministically and logs
  a warning rather than failing.

SEE ALSO:
  - schedule/types.go: AvailabilityRule, RuleClass
*/
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// minutesPerDay shifts overnight end times into the next day.
const minutesPerDay = 24 * 60

// Tier identifies which rule class decided the outcome. Empty means no rule
// matched and the default applied.
type Tier string

const (
	TierDate     Tier = Tier(schedule.RuleDate)
	TierBiweekly Tier = Tier(schedule.RuleBiweekly)
	TierWeekly   Tier = Tier(schedule.RuleWeekly)
	TierNone     Tier = ""
)

// Decision is the resolution outcome.
type Decision struct {
	Available bool
	Reason    string
	Tier      Tier
}

const (
	ReasonNoRestriction = "no restriction"
	ReasonBlocked       = "explicitly blocked"
	ReasonAllDay        = "available all day"
	ReasonWithinWindow  = "within availability window"
	ReasonOutsideWindow = "outside availability window"
	ReasonHasWindow     = "available with time bounds"
)

// Engine resolves availability against the stored rule set.
type Engine struct {
	Rules schedule.AvailabilityStore
	Log   *logrus.Entry
}

func NewEngine(rules schedule.AvailabilityStore, log *logrus.Entry) *Engine {
	return &Engine{Rules: rules, Log: log}
}

// Resolve decides whether the employee can work on date. When window is
// non-nil the proposed shift window is tested against bounded rules.
func (e *Engine) Resolve(ctx context.Context, employeeID schedule.EmployeeID, date time.Time, window *schedule.TimeWindow) (Decision, error) {
	rules, err := e.Rules.ListAvailabilityRules(ctx, employeeID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve availability: %w", err)
	}
	return e.resolve(employeeID, rules, date, window), nil
}

// resolve is the pure core, exercised directly by tests.
func (e *Engine) resolve(employeeID schedule.EmployeeID, rules []schedule.AvailabilityRule, date time.Time, window *schedule.TimeWindow) Decision {
	day := schedule.DayOf(date)

	for _, tier := range []struct {
		tier  Tier
		match func(schedule.AvailabilityRule) bool
	}{
		{TierDate, func(r schedule.AvailabilityRule) bool {
			return r.Class == schedule.RuleDate && r.Date != nil && schedule.DayOf(*r.Date).Equal(day)
		}},
		{TierBiweekly, func(r schedule.AvailabilityRule) bool {
			return r.Class == schedule.RuleBiweekly &&
				r.CycleWeek != nil && *r.CycleWeek == schedule.ISOWeekParity(day) &&
				r.Weekday != nil && *r.Weekday == schedule.WeekdaySunday0(day)
		}},
		{TierWeekly, func(r schedule.AvailabilityRule) bool {
			return r.Class == schedule.RuleWeekly &&
				r.Weekday != nil && *r.Weekday == schedule.WeekdaySunday0(day)
		}},
	} {
		if rule, ok := e.firstMatch(employeeID, rules, day, tier.match); ok {
			return applyRule(rule, tier.tier, window)
		}
	}

	return Decision{Available: true, Reason: ReasonNoRestriction, Tier: TierNone}
}

// firstMatch returns the tier's matching rule, lowest id first when the data
// holds duplicates.
func (e *Engine) firstMatch(employeeID schedule.EmployeeID, rules []schedule.AvailabilityRule, day time.Time, match func(schedule.AvailabilityRule) bool) (schedule.AvailabilityRule, bool) {
	var hits []schedule.AvailabilityRule
	for _, r := range rules {
		if r.EmployeeID == employeeID && match(r) {
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return schedule.AvailabilityRule{}, false
	}
	if len(hits) > 1 {
		sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
		if e.Log != nil {
			e.Log.WithFields(logrus.Fields{
				"employee": employeeID,
				"day":      day.Format(schedule.DateLayout),
				"class":    hits[0].Class,
				"rules":    len(hits),
			}).Warn("duplicate availability rules match one day")
		}
	}
	return hits[0], true
}

func applyRule(rule schedule.AvailabilityRule, tier Tier, window *schedule.TimeWindow) Decision {
	if !rule.Available {
		return Decision{Available: false, Reason: ReasonBlocked, Tier: tier}
	}
	if rule.AllDay {
		return Decision{Available: true, Reason: ReasonAllDay, Tier: tier}
	}
	if window == nil {
		return Decision{Available: true, Reason: ReasonHasWindow, Tier: tier}
	}
	if windowWithin(*window, rule.StartMinute, rule.EndMinute) {
		return Decision{Available: true, Reason: ReasonWithinWindow, Tier: tier}
	}
	return Decision{Available: false, Reason: ReasonOutsideWindow, Tier: tier}
}

// windowWithin tests inclusive containment in minutes since midnight.
// End times at or before their start are normalized to the next day.
func windowWithin(w schedule.TimeWindow, availStart, availEnd int) bool {
	ps := schedule.MinuteOfDay(w.Start)
	pe := schedule.MinuteOfDay(w.End)
	if pe <= ps {
		pe += minutesPerDay
	}
	as, ae := availStart, availEnd
	if ae <= as {
		ae += minutesPerDay
	}
	return ps >= as && pe <= ae
}
