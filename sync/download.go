/*
download.go - Cloud -> local sync pass

Shifts are intentionally absent from the category list: downloading the
publish projection back would risk overwriting local edits with a stale
snapshot. Everything here is an idempotent upsert keyed by natural ids.
*/
package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// DownloadAll pulls every cloud-resident category into the local store.
func (e *Engine) DownloadAll(ctx context.Context) (Result, error) {
	return e.runPass(ctx, "download", []category{
		{"employees", e.downloadEmployees},
		{"timeOff", e.downloadTimeOff},
		{"availability", e.downloadAvailability},
		{"weeklyTemplates", e.downloadWeeklyTemplates},
		{"shiftTemplates", e.downloadShiftTemplates},
		{"scheduleNotes", e.downloadNotes},
		{"shiftRunners", e.downloadShiftRunners},
	})
}

func (e *Engine) downloadEmployees(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListEmployees(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced, skipped := 0, 0
	for docID, doc := range docs {
		emp, err := employeeFromDoc(docID, doc)
		if err != nil {
			skipped++
			continue
		}
		// Never let a missing or placeholder cloud id clobber a valid
		// local one: scrub invalid ids before the upsert, and the store's
		// upsert keeps the existing value when the incoming one is empty.
		if !e.Identity.IsValidAccountID(emp.AccountID) {
			emp.AccountID = ""
		}
		if err := e.Local.UpsertEmployee(ctx, emp); err != nil {
			return synced, skipped, fmt.Errorf("upsert employee %d: %w", emp.ID, err)
		}
		synced++
	}
	return synced, skipped, nil
}

// downloadTimeOff dedups by (employeeID, date): historical defects left
// duplicate cloud rows for the same pair, and only the first encountered
// (in deterministic doc-id order) is kept.
func (e *Engine) downloadTimeOff(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListTimeOff(ctx)
	if err != nil {
		return 0, 0, err
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type dayKey struct {
		employee int64
		date     string
	}
	seen := make(map[dayKey]bool)
	synced, skipped := 0, 0
	for _, id := range ids {
		doc := docs[id]
		k := dayKey{doc.EmployeeID, doc.Date}
		if seen[k] {
			skipped++
			continue
		}
		entry, err := timeOffFromDoc(doc)
		if err != nil {
			skipped++
			continue
		}
		seen[k] = true
		if err := e.Local.UpsertTimeOffByDay(ctx, entry); err != nil {
			return synced, skipped, fmt.Errorf("upsert time off %s: %w", id, err)
		}
		synced++
	}
	return synced, skipped, nil
}

func (e *Engine) downloadAvailability(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListAvailability(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced, skipped := 0, 0
	for docID, doc := range docs {
		if doc.EmployeeID <= 0 {
			skipped++
			continue
		}
		empID := schedule.EmployeeID(doc.EmployeeID)
		rules := make([]schedule.AvailabilityRule, 0, len(doc.Rules))
		for _, rd := range doc.Rules {
			rule, err := ruleFromDoc(empID, rd)
			if err != nil {
				skipped++
				continue
			}
			rules = append(rules, rule)
		}
		if err := e.Local.ReplaceAvailabilityRules(ctx, empID, rules); err != nil {
			return synced, skipped, fmt.Errorf("replace rules %s: %w", docID, err)
		}
		synced += len(rules)
	}
	return synced, skipped, nil
}

func (e *Engine) downloadWeeklyTemplates(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListWeeklyTemplates(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for id, doc := range docs {
		t := schedule.WeeklyTemplate{ID: id, Name: doc.Name, Payload: doc.Payload}
		if err := e.Local.UpsertWeeklyTemplate(ctx, t); err != nil {
			return synced, 0, fmt.Errorf("upsert weekly template %s: %w", id, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) downloadShiftTemplates(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListShiftTemplates(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for id, doc := range docs {
		t := schedule.ShiftTemplate{
			ID:          id,
			Label:       doc.Label,
			JobCode:     doc.JobCode,
			StartMinute: doc.StartMinute,
			EndMinute:   doc.EndMinute,
		}
		if err := e.Local.UpsertShiftTemplate(ctx, t); err != nil {
			return synced, 0, fmt.Errorf("upsert shift template %s: %w", id, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) downloadNotes(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListScheduleNotes(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced, skipped := 0, 0
	for id, doc := range docs {
		day, err := time.Parse(schedule.DateLayout, doc.Date)
		if err != nil {
			skipped++
			continue
		}
		n := schedule.ScheduleNote{Date: day, Text: doc.Text, UpdatedAt: doc.UpdatedAt}
		if err := e.Local.UpsertScheduleNote(ctx, n); err != nil {
			return synced, skipped, fmt.Errorf("upsert note %s: %w", id, err)
		}
		synced++
	}
	return synced, skipped, nil
}

func (e *Engine) downloadShiftRunners(ctx context.Context) (int, int, error) {
	docs, err := e.Cloud.ListShiftRunners(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced, skipped := 0, 0
	for id, doc := range docs {
		day, err := time.Parse(schedule.DateLayout, doc.Date)
		if err != nil {
			skipped++
			continue
		}
		sr := schedule.ShiftRunner{Date: day, Segment: doc.Segment, EmployeeID: schedule.EmployeeID(doc.EmployeeID)}
		if err := e.Local.UpsertShiftRunner(ctx, sr); err != nil {
			return synced, skipped, fmt.Errorf("upsert runner %s: %w", id, err)
		}
		synced++
	}
	return synced, skipped, nil
}

// =============================================================================
// DOC -> DOMAIN CONVERSIONS
// =============================================================================

func employeeFromDoc(docID string, doc cloud.EmployeeDoc) (schedule.Employee, error) {
	id := doc.LocalID
	if id <= 0 {
		return schedule.Employee{}, fmt.Errorf("%w: employee doc %s has no local id", schedule.ErrInvalidInput, docID)
	}
	return schedule.Employee{
		ID:        schedule.EmployeeID(id),
		AccountID: doc.AccountID,
		Name:      doc.Name,
		JobCode:   doc.JobCode,
		Email:     doc.Email,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func timeOffFromDoc(doc cloud.TimeOffDoc) (schedule.TimeOffEntry, error) {
	day, err := time.Parse(schedule.DateLayout, doc.Date)
	if err != nil {
		return schedule.TimeOffEntry{}, fmt.Errorf("%w: bad date %q", schedule.ErrInvalidInput, doc.Date)
	}
	hours, err := decimal.NewFromString(doc.Hours)
	if err != nil {
		hours = decimal.Zero
	}
	entry := schedule.TimeOffEntry{
		EmployeeID:  schedule.EmployeeID(doc.EmployeeID),
		Date:        day,
		Category:    schedule.TimeOffCategory(doc.Category),
		Hours:       hours,
		StartMinute: doc.StartMinute,
		EndMinute:   doc.EndMinute,
		Status:      schedule.TimeOffStatus(doc.Status),
		GroupID:     doc.GroupID,
		UpdatedAt:   doc.UpdatedAt,
	}
	if err := entry.Validate(); err != nil {
		return schedule.TimeOffEntry{}, err
	}
	return entry, nil
}

func ruleFromDoc(empID schedule.EmployeeID, rd cloud.AvailabilityRuleDoc) (schedule.AvailabilityRule, error) {
	class := schedule.RuleClass(rd.Class)
	if !class.Valid() {
		return schedule.AvailabilityRule{}, fmt.Errorf("%w: unknown rule class %q", schedule.ErrInvalidInput, rd.Class)
	}
	rule := schedule.AvailabilityRule{
		EmployeeID:  empID,
		Class:       class,
		Weekday:     rd.Weekday,
		CycleWeek:   rd.CycleWeek,
		AllDay:      rd.AllDay,
		StartMinute: rd.StartMinute,
		EndMinute:   rd.EndMinute,
		Available:   rd.Available,
	}
	if class == schedule.RuleDate {
		day, err := time.Parse(schedule.DateLayout, rd.Date)
		if err != nil {
			return schedule.AvailabilityRule{}, fmt.Errorf("%w: bad rule date %q", schedule.ErrInvalidInput, rd.Date)
		}
		rule.Date = &day
	}
	return rule, nil
}
