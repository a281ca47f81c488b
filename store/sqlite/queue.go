package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
	"github.com/JasonS1999/ScheduleHQ-sub002/timeoff"
)

// =============================================================================
// OFFLINE QUEUE - durable storage for time-off submissions made while
// disconnected. Retry bookkeeping lives here; the flusher owns the policy.
// =============================================================================

func (s *Store) EnqueueTimeOff(ctx context.Context, item timeoff.QueuedSubmission) error {
	payload, err := json.Marshal(item.Doc)
	if err != nil {
		return fmt.Errorf("enqueue time off: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO timeoff_queue (id, doc_id, payload, attempts, enqueued_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		item.ID, item.DocID, string(payload), item.Attempts, encodeTime(item.EnqueuedAt), item.LastError)
	if err != nil {
		return fmt.Errorf("enqueue time off: %w", err)
	}
	return nil
}

func (s *Store) ListQueuedTimeOff(ctx context.Context) ([]timeoff.QueuedSubmission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, payload, attempts, enqueued_at, last_error
		 FROM timeoff_queue ORDER BY enqueued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []timeoff.QueuedSubmission
	for rows.Next() {
		var item timeoff.QueuedSubmission
		var payload, enqueued string
		if err := rows.Scan(&item.ID, &item.DocID, &payload, &item.Attempts, &enqueued, &item.LastError); err != nil {
			return nil, err
		}
		var doc cloud.TimeOffDoc
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			return nil, fmt.Errorf("list queue: corrupt payload %s: %w", item.ID, err)
		}
		item.Doc = doc
		item.EnqueuedAt = decodeTime(enqueued)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) DeleteQueuedTimeOff(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM timeoff_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete queued item %s: %w", id, err)
	}
	return nil
}

func (s *Store) BumpQueueAttempt(ctx context.Context, id string, lastErr string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE timeoff_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastErr, id); err != nil {
		return fmt.Errorf("bump queue attempt %s: %w", id, err)
	}
	return nil
}

var _ timeoff.QueueStore = (*Store)(nil)
