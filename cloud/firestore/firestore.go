/*
Package firestore adapts the cloud.Store contract to Google Cloud Firestore.

PURPOSE:
  Production implementation of the per-manager document partitions. All
  manager data hangs under managers/{managerID}; the legacy shared
  collection a historical defect wrote into is the top-level timeOff
  collection, exposed read/delete-only for migration.

LAYOUT:
  managers/{m}/employees/{localID}
  managers/{m}/schedules/{yearMonth}/shifts/{employeeID_shiftID}
  managers/{m}/timeOff/{date_category_employeeID}
  managers/{m}/shiftRunners/{date_segment}
  managers/{m}/employeeAvailability/{localID}
  managers/{m}/weeklyTemplates/{id}
  managers/{m}/shiftTemplates/{id}
  managers/{m}/scheduleNotes/{date}
  timeOff/{docID}                      (legacy, migration source only)

BATCHES:
  Shift projection writes use a Firestore WriteBatch per month shard, which
  commits all-or-nothing. Firestore caps a batch at 500 writes; a single
  manager's month fits comfortably under that.

ERROR MAPPING:
  UNAVAILABLE / DEADLINE_EXCEEDED -> cloud.ErrUnavailable (transient)
  NOT_FOUND                       -> cloud.ErrNotFound
  unauthenticated client          -> schedule.ErrNotAuthenticated

SEE ALSO:
  - cloud/cloud.go: contract and document types
  - cloud/memory: test double with the same semantics
*/
package firestore

import (
	"context"
	"fmt"

	fs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/schedule"
)

const (
	colManagers        = "managers"
	colEmployees       = "employees"
	colSchedules       = "schedules"
	colShifts          = "shifts"
	colTimeOff         = "timeOff"
	colShiftRunners    = "shiftRunners"
	colAvailability    = "employeeAvailability"
	colWeeklyTemplates = "weeklyTemplates"
	colShiftTemplates  = "shiftTemplates"
	colScheduleNotes   = "scheduleNotes"
)

// Store implements cloud.Store on Firestore.
type Store struct {
	client    *fs.Client
	managerID string
}

// New connects with the given service-account credentials. An empty
// credentials path falls back to application-default credentials.
func New(ctx context.Context, projectID, credentialsFile, managerID string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client, managerID: managerID}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) ManagerID() string { return s.managerID }

func (s *Store) manager() (*fs.DocumentRef, error) {
	if s.managerID == "" {
		return nil, schedule.ErrNotAuthenticated
	}
	return s.client.Collection(colManagers).Doc(s.managerID), nil
}

// mapErr translates transport errors into the engine taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w: %v", op, cloud.ErrUnavailable, err)
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, cloud.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// listInto drains a collection into a map keyed by document id.
func listInto[T any](ctx context.Context, col *fs.CollectionRef, op string) (map[string]T, error) {
	out := make(map[string]T)
	iter := col.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(op, err)
		}
		var doc T
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, snap.Ref.ID, err)
		}
		out[snap.Ref.ID] = doc
	}
	return out, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) ListEmployees(ctx context.Context) (map[string]cloud.EmployeeDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.EmployeeDoc](ctx, m.Collection(colEmployees), "list employees")
}

func (s *Store) SetEmployee(ctx context.Context, docID string, doc cloud.EmployeeDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colEmployees).Doc(docID).Set(ctx, doc)
	return mapErr("set employee", err)
}

func (s *Store) ClearEmployeeAccountID(ctx context.Context, docID string) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	// Field-level delete: every other field on the document survives.
	_, err = m.Collection(colEmployees).Doc(docID).Update(ctx, []fs.Update{
		{Path: "accountId", Value: fs.Delete},
	})
	return mapErr("clear account id", err)
}

func (s *Store) DeleteEmployee(ctx context.Context, docID string) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colEmployees).Doc(docID).Delete(ctx)
	return mapErr("delete employee", err)
}

// =============================================================================
// PUBLISHED SHIFTS
// =============================================================================

func (s *Store) ListShiftMonths(ctx context.Context) ([]string, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	// DocumentRefs also yields "missing" parent docs that exist only as
	// subcollection anchors, which is exactly what month shards are.
	var months []string
	iter := m.Collection(colSchedules).DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr("list shift months", err)
		}
		months = append(months, ref.ID)
	}
	return months, nil
}

func (s *Store) shardCol(yearMonth string) (*fs.CollectionRef, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return m.Collection(colSchedules).Doc(yearMonth).Collection(colShifts), nil
}

func (s *Store) ListShifts(ctx context.Context, yearMonth string) (map[string]cloud.ShiftDoc, error) {
	col, err := s.shardCol(yearMonth)
	if err != nil {
		return nil, err
	}
	return listInto[cloud.ShiftDoc](ctx, col, "list shifts "+yearMonth)
}

func (s *Store) SetShifts(ctx context.Context, yearMonth string, docs map[string]cloud.ShiftDoc) error {
	col, err := s.shardCol(yearMonth)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for id, doc := range docs {
		batch.Set(col.Doc(id), doc)
	}
	_, err = batch.Commit(ctx)
	return mapErr("publish shard "+yearMonth, err)
}

func (s *Store) DeleteShifts(ctx context.Context, yearMonth string, docIDs []string) error {
	col, err := s.shardCol(yearMonth)
	if err != nil {
		return err
	}
	if len(docIDs) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, id := range docIDs {
		batch.Delete(col.Doc(id))
	}
	_, err = batch.Commit(ctx)
	return mapErr("unpublish shard "+yearMonth, err)
}

// =============================================================================
// TIME OFF
// =============================================================================

func (s *Store) ListTimeOff(ctx context.Context) (map[string]cloud.TimeOffDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.TimeOffDoc](ctx, m.Collection(colTimeOff), "list time off")
}

func (s *Store) SetTimeOff(ctx context.Context, docID string, doc cloud.TimeOffDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colTimeOff).Doc(docID).Set(ctx, doc)
	return mapErr("set time off", err)
}

func (s *Store) DeleteTimeOff(ctx context.Context, docID string) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colTimeOff).Doc(docID).Delete(ctx)
	return mapErr("delete time off", err)
}

func (s *Store) ListLegacyTimeOff(ctx context.Context) (map[string]cloud.TimeOffDoc, error) {
	if s.managerID == "" {
		return nil, schedule.ErrNotAuthenticated
	}
	return listInto[cloud.TimeOffDoc](ctx, s.client.Collection(colTimeOff), "list legacy time off")
}

func (s *Store) DeleteLegacyTimeOff(ctx context.Context, docID string) error {
	if s.managerID == "" {
		return schedule.ErrNotAuthenticated
	}
	_, err := s.client.Collection(colTimeOff).Doc(docID).Delete(ctx)
	return mapErr("delete legacy time off", err)
}

// =============================================================================
// AVAILABILITY / TEMPLATES / NOTES / RUNNERS
// =============================================================================

func (s *Store) ListAvailability(ctx context.Context) (map[string]cloud.AvailabilityDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.AvailabilityDoc](ctx, m.Collection(colAvailability), "list availability")
}

func (s *Store) SetAvailability(ctx context.Context, docID string, doc cloud.AvailabilityDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colAvailability).Doc(docID).Set(ctx, doc)
	return mapErr("set availability", err)
}

func (s *Store) ListShiftTemplates(ctx context.Context) (map[string]cloud.ShiftTemplateDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.ShiftTemplateDoc](ctx, m.Collection(colShiftTemplates), "list shift templates")
}

func (s *Store) SetShiftTemplate(ctx context.Context, docID string, doc cloud.ShiftTemplateDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colShiftTemplates).Doc(docID).Set(ctx, doc)
	return mapErr("set shift template", err)
}

func (s *Store) ListWeeklyTemplates(ctx context.Context) (map[string]cloud.WeeklyTemplateDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.WeeklyTemplateDoc](ctx, m.Collection(colWeeklyTemplates), "list weekly templates")
}

func (s *Store) SetWeeklyTemplate(ctx context.Context, docID string, doc cloud.WeeklyTemplateDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colWeeklyTemplates).Doc(docID).Set(ctx, doc)
	return mapErr("set weekly template", err)
}

func (s *Store) ListScheduleNotes(ctx context.Context) (map[string]cloud.ScheduleNoteDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.ScheduleNoteDoc](ctx, m.Collection(colScheduleNotes), "list schedule notes")
}

func (s *Store) SetScheduleNote(ctx context.Context, docID string, doc cloud.ScheduleNoteDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colScheduleNotes).Doc(docID).Set(ctx, doc)
	return mapErr("set schedule note", err)
}

func (s *Store) ListShiftRunners(ctx context.Context) (map[string]cloud.ShiftRunnerDoc, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return listInto[cloud.ShiftRunnerDoc](ctx, m.Collection(colShiftRunners), "list shift runners")
}

func (s *Store) SetShiftRunner(ctx context.Context, docID string, doc cloud.ShiftRunnerDoc) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	_, err = m.Collection(colShiftRunners).Doc(docID).Set(ctx, doc)
	return mapErr("set shift runner", err)
}

var _ cloud.Store = (*Store)(nil)
