/*
upload.go - Local -> cloud sync pass

Everything local-authoritative except shift content travels here. Shift
content crosses only through the publish engine. Cloud documents are keyed
by natural ids so every write is an idempotent merge.
*/
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// UploadAll pushes the local-authoritative categories to the cloud.
func (e *Engine) UploadAll(ctx context.Context) (Result, error) {
	return e.runPass(ctx, "upload", []category{
		{"employees", e.uploadEmployees},
		{"timeOff", e.uploadTimeOff},
		{"shiftRunners", e.uploadShiftRunners},
		{"availability", e.uploadAvailability},
		{"weeklyTemplates", e.uploadWeeklyTemplates},
		{"shiftTemplates", e.uploadShiftTemplates},
		{"scheduleNotes", e.uploadNotes},
	})
}

func (e *Engine) uploadEmployees(ctx context.Context) (int, int, error) {
	employees, err := e.Local.ListEmployees(ctx)
	if err != nil {
		return 0, 0, err
	}
	// Existing cloud docs are read first so a valid provisioned account id
	// in the cloud is never overwritten by an empty local one.
	existing, err := e.Cloud.ListEmployees(ctx)
	if err != nil {
		return 0, 0, err
	}

	synced := 0
	for _, emp := range employees {
		docID := cloud.EmployeeDocID(emp.ID)
		doc := cloud.EmployeeDoc{
			LocalID:   int64(emp.ID),
			AccountID: emp.AccountID,
			Name:      emp.Name,
			JobCode:   emp.JobCode,
			Email:     emp.Email,
			UpdatedAt: e.now().UTC(),
		}
		if prev, ok := existing[docID]; ok {
			if !e.Identity.IsValidAccountID(doc.AccountID) && e.Identity.IsValidAccountID(prev.AccountID) {
				doc.AccountID = prev.AccountID
			}
		}
		if err := e.Cloud.SetEmployee(ctx, docID, doc); err != nil {
			return synced, 0, fmt.Errorf("set employee %s: %w", docID, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) uploadTimeOff(ctx context.Context) (int, int, error) {
	entries, err := e.Local.ListTimeOffInRange(ctx, allTime())
	if err != nil {
		return 0, 0, err
	}
	accounts, err := e.accountIndex(ctx)
	if err != nil {
		return 0, 0, err
	}

	synced := 0
	for _, entry := range entries {
		docID := cloud.TimeOffDocID(entry.EmployeeID, entry.Date, entry.Category)
		if err := e.Cloud.SetTimeOff(ctx, docID, timeOffToDoc(entry, accounts[entry.EmployeeID], e.now())); err != nil {
			return synced, 0, fmt.Errorf("set time off %s: %w", docID, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) uploadShiftRunners(ctx context.Context) (int, int, error) {
	runners, err := e.Local.ListAllShiftRunners(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for _, sr := range runners {
		docID := cloud.RunnerDocID(sr.Date, sr.Segment)
		doc := cloud.ShiftRunnerDoc{
			Date:       sr.Date.Format(schedule.DateLayout),
			Segment:    sr.Segment,
			EmployeeID: int64(sr.EmployeeID),
		}
		if err := e.Cloud.SetShiftRunner(ctx, docID, doc); err != nil {
			return synced, 0, fmt.Errorf("set runner %s: %w", docID, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) uploadAvailability(ctx context.Context) (int, int, error) {
	rules, err := e.Local.ListAllAvailabilityRules(ctx)
	if err != nil {
		return 0, 0, err
	}
	byEmployee := make(map[schedule.EmployeeID][]cloud.AvailabilityRuleDoc)
	for _, r := range rules {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], ruleToDoc(r))
	}

	synced := 0
	for empID, docs := range byEmployee {
		docID := cloud.EmployeeDocID(empID)
		doc := cloud.AvailabilityDoc{
			EmployeeID: int64(empID),
			Rules:      docs,
			UpdatedAt:  e.now().UTC(),
		}
		if err := e.Cloud.SetAvailability(ctx, docID, doc); err != nil {
			return synced, 0, fmt.Errorf("set availability %s: %w", docID, err)
		}
		synced += len(docs)
	}
	return synced, 0, nil
}

func (e *Engine) uploadWeeklyTemplates(ctx context.Context) (int, int, error) {
	templates, err := e.Local.ListWeeklyTemplates(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for _, t := range templates {
		doc := cloud.WeeklyTemplateDoc{Name: t.Name, Payload: t.Payload}
		if err := e.Cloud.SetWeeklyTemplate(ctx, t.ID, doc); err != nil {
			return synced, 0, fmt.Errorf("set weekly template %s: %w", t.ID, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) uploadShiftTemplates(ctx context.Context) (int, int, error) {
	templates, err := e.Local.ListShiftTemplates(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for _, t := range templates {
		doc := cloud.ShiftTemplateDoc{
			Label:       t.Label,
			JobCode:     t.JobCode,
			StartMinute: t.StartMinute,
			EndMinute:   t.EndMinute,
		}
		if err := e.Cloud.SetShiftTemplate(ctx, t.ID, doc); err != nil {
			return synced, 0, fmt.Errorf("set shift template %s: %w", t.ID, err)
		}
		synced++
	}
	return synced, 0, nil
}

func (e *Engine) uploadNotes(ctx context.Context) (int, int, error) {
	notes, err := e.Local.ListAllScheduleNotes(ctx)
	if err != nil {
		return 0, 0, err
	}
	synced := 0
	for _, n := range notes {
		docID := cloud.NoteDocID(n.Date)
		doc := cloud.ScheduleNoteDoc{
			Date:      n.Date.Format(schedule.DateLayout),
			Text:      n.Text,
			UpdatedAt: n.UpdatedAt,
		}
		if err := e.Cloud.SetScheduleNote(ctx, docID, doc); err != nil {
			return synced, 0, fmt.Errorf("set note %s: %w", docID, err)
		}
		synced++
	}
	return synced, 0, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// accountIndex maps local ids to account ids for denormalizing uploads.
func (e *Engine) accountIndex(ctx context.Context) (map[schedule.EmployeeID]string, error) {
	employees, err := e.Local.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[schedule.EmployeeID]string, len(employees))
	for _, emp := range employees {
		idx[emp.ID] = emp.AccountID
	}
	return idx, nil
}

func timeOffToDoc(entry schedule.TimeOffEntry, accountID string, now time.Time) cloud.TimeOffDoc {
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
		UpdatedAt:   now.UTC(),
	}
}

func ruleToDoc(r schedule.AvailabilityRule) cloud.AvailabilityRuleDoc {
	doc := cloud.AvailabilityRuleDoc{
		Class:       string(r.Class),
		Weekday:     r.Weekday,
		CycleWeek:   r.CycleWeek,
		AllDay:      r.AllDay,
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
		Available:   r.Available,
	}
	if r.Date != nil {
		doc.Date = r.Date.Format(schedule.DateLayout)
	}
	return doc
}

// allTime is the open-ended range uploads scan. The local store is a single
// manager's roster; the full history stays small.
func allTime() schedule.DateRange {
	return schedule.DateRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
