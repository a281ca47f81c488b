// Package memory provides an in-memory cloud.Store for tests and offline
// development. It mirrors the production adapter's semantics: per-manager
// partitions, shard-atomic shift batches, and field-level account clearing.
// An optional failure hook simulates transient outages for retry tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	managerID string

	employees       map[string]cloud.EmployeeDoc
	shifts          map[string]map[string]cloud.ShiftDoc // yearMonth -> docID -> doc
	timeOff         map[string]cloud.TimeOffDoc
	legacyTimeOff   map[string]cloud.TimeOffDoc
	availability    map[string]cloud.AvailabilityDoc
	shiftTemplates  map[string]cloud.ShiftTemplateDoc
	weeklyTemplates map[string]cloud.WeeklyTemplateDoc
	notes           map[string]cloud.ScheduleNoteDoc
	runners         map[string]cloud.ShiftRunnerDoc

	// FailNext, when > 0, makes that many subsequent writes fail with
	// cloud.ErrUnavailable. Used to exercise offline-queue retry paths.
	failNext int
}

func New(managerID string) *Store {
	return &Store{
		managerID:       managerID,
		employees:       make(map[string]cloud.EmployeeDoc),
		shifts:          make(map[string]map[string]cloud.ShiftDoc),
		timeOff:         make(map[string]cloud.TimeOffDoc),
		legacyTimeOff:   make(map[string]cloud.TimeOffDoc),
		availability:    make(map[string]cloud.AvailabilityDoc),
		shiftTemplates:  make(map[string]cloud.ShiftTemplateDoc),
		weeklyTemplates: make(map[string]cloud.WeeklyTemplateDoc),
		notes:           make(map[string]cloud.ScheduleNoteDoc),
		runners:         make(map[string]cloud.ShiftRunnerDoc),
	}
}

func (s *Store) ManagerID() string { return s.managerID }

// FailNextWrites makes the next n writes fail with cloud.ErrUnavailable.
func (s *Store) FailNextWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// SeedLegacyTimeOff plants a misfiled record in the shared top-level
// collection, reproducing the historical defect migration cleans up.
func (s *Store) SeedLegacyTimeOff(docID string, doc cloud.TimeOffDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacyTimeOff[docID] = doc
}

func (s *Store) checkWriteLocked() error {
	if s.managerID == "" {
		return schedule.ErrNotAuthenticated
	}
	if s.failNext > 0 {
		s.failNext--
		return cloud.ErrUnavailable
	}
	return nil
}

func (s *Store) checkRead() error {
	if s.managerID == "" {
		return schedule.ErrNotAuthenticated
	}
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) ListEmployees(_ context.Context) (map[string]cloud.EmployeeDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.employees), nil
}

func (s *Store) SetEmployee(_ context.Context, docID string, doc cloud.EmployeeDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.employees[docID] = doc
	return nil
}

func (s *Store) ClearEmployeeAccountID(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	doc, ok := s.employees[docID]
	if !ok {
		return cloud.ErrNotFound
	}
	doc.AccountID = "" // only this field; role/name/etc. preserved
	s.employees[docID] = doc
	return nil
}

func (s *Store) DeleteEmployee(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	delete(s.employees, docID)
	return nil
}

// =============================================================================
// PUBLISHED SHIFTS (month-sharded)
// =============================================================================

func (s *Store) ListShiftMonths(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	var months []string
	for ym, docs := range s.shifts {
		if len(docs) > 0 {
			months = append(months, ym)
		}
	}
	sort.Strings(months)
	return months, nil
}

func (s *Store) ListShifts(_ context.Context, yearMonth string) (map[string]cloud.ShiftDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.shifts[yearMonth]), nil
}

func (s *Store) SetShifts(_ context.Context, yearMonth string, docs map[string]cloud.ShiftDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	shard := s.shifts[yearMonth]
	if shard == nil {
		shard = make(map[string]cloud.ShiftDoc)
		s.shifts[yearMonth] = shard
	}
	// Single map under one lock: the whole batch lands or none of it does.
	for id, doc := range docs {
		shard[id] = doc
	}
	return nil
}

func (s *Store) DeleteShifts(_ context.Context, yearMonth string, docIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	shard := s.shifts[yearMonth]
	for _, id := range docIDs {
		delete(shard, id)
	}
	return nil
}

// =============================================================================
// TIME OFF
// =============================================================================

func (s *Store) ListTimeOff(_ context.Context) (map[string]cloud.TimeOffDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.timeOff), nil
}

func (s *Store) SetTimeOff(_ context.Context, docID string, doc cloud.TimeOffDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.timeOff[docID] = doc
	return nil
}

func (s *Store) DeleteTimeOff(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	delete(s.timeOff, docID)
	return nil
}

func (s *Store) ListLegacyTimeOff(_ context.Context) (map[string]cloud.TimeOffDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.legacyTimeOff), nil
}

func (s *Store) DeleteLegacyTimeOff(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	delete(s.legacyTimeOff, docID)
	return nil
}

// =============================================================================
// AVAILABILITY / TEMPLATES / NOTES / RUNNERS
// =============================================================================

func (s *Store) ListAvailability(_ context.Context) (map[string]cloud.AvailabilityDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.availability), nil
}

func (s *Store) SetAvailability(_ context.Context, docID string, doc cloud.AvailabilityDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.availability[docID] = doc
	return nil
}

func (s *Store) ListShiftTemplates(_ context.Context) (map[string]cloud.ShiftTemplateDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.shiftTemplates), nil
}

func (s *Store) SetShiftTemplate(_ context.Context, docID string, doc cloud.ShiftTemplateDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.shiftTemplates[docID] = doc
	return nil
}

func (s *Store) ListWeeklyTemplates(_ context.Context) (map[string]cloud.WeeklyTemplateDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.weeklyTemplates), nil
}

func (s *Store) SetWeeklyTemplate(_ context.Context, docID string, doc cloud.WeeklyTemplateDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.weeklyTemplates[docID] = doc
	return nil
}

func (s *Store) ListScheduleNotes(_ context.Context) (map[string]cloud.ScheduleNoteDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.notes), nil
}

func (s *Store) SetScheduleNote(_ context.Context, docID string, doc cloud.ScheduleNoteDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.notes[docID] = doc
	return nil
}

func (s *Store) ListShiftRunners(_ context.Context) (map[string]cloud.ShiftRunnerDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return copyMap(s.runners), nil
}

func (s *Store) SetShiftRunner(_ context.Context, docID string, doc cloud.ShiftRunnerDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWriteLocked(); err != nil {
		return err
	}
	s.runners[docID] = doc
	return nil
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
