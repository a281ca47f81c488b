/*
migrate.go - Legacy cleanup pass

A historical defect wrote some time-off records to the shared top-level
collection instead of the manager-scoped partition. This pass relocates
them: copy into the partition unless a content-equal record (account id +
date + category) already lives there, then delete the misfiled original.
Once relocated, a second run finds nothing and is a no-op.
*/
package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/JasonS1999/ScheduleHQ-sub002/cloud"
)

// MigrateLegacy relocates misfiled cloud records into the manager partition.
func (e *Engine) MigrateLegacy(ctx context.Context) (Result, error) {
	return e.runPass(ctx, "migrate", []category{
		{"legacyTimeOff", e.migrateLegacyTimeOff},
	})
}

func (e *Engine) migrateLegacyTimeOff(ctx context.Context) (int, int, error) {
	legacy, err := e.Cloud.ListLegacyTimeOff(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(legacy) == 0 {
		return 0, 0, nil
	}
	current, err := e.Cloud.ListTimeOff(ctx)
	if err != nil {
		return 0, 0, err
	}

	// Content-equality index over the partition: account id + date +
	// category. Keying by content, not doc id, is what makes the pass
	// duplicate-proof across re-runs.
	type contentKey struct {
		accountID string
		date      string
		category  string
	}
	have := make(map[contentKey]bool, len(current))
	for _, doc := range current {
		have[contentKey{doc.AccountID, doc.Date, doc.Category}] = true
	}

	ids := make([]string, 0, len(legacy))
	for id := range legacy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	relocated, skipped := 0, 0
	for _, id := range ids {
		doc := legacy[id]
		k := contentKey{doc.AccountID, doc.Date, doc.Category}
		if !have[k] {
			entry, err := timeOffFromDoc(doc)
			if err != nil {
				// Unparseable legacy garbage stays put rather than being
				// destroyed; it is counted so the summary surfaces it.
				skipped++
				continue
			}
			docID := cloud.TimeOffDocID(entry.EmployeeID, entry.Date, entry.Category)
			if err := e.Cloud.SetTimeOff(ctx, docID, doc); err != nil {
				return relocated, skipped, fmt.Errorf("relocate %s: %w", id, err)
			}
			have[k] = true
		}
		// Delete-after-copy: the original goes away only once the
		// partition holds an equivalent record.
		if err := e.Cloud.DeleteLegacyTimeOff(ctx, id); err != nil {
			return relocated, skipped, fmt.Errorf("delete legacy %s: %w", id, err)
		}
		relocated++
	}
	return relocated, skipped, nil
}
