package importer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// SkippedDuplicate records a candidate that matched an existing alarm by
// name while overwriting was disabled.
type SkippedDuplicate struct {
	Name string
	Row  int
}

// Outcome is the result of one import operation.
type Outcome struct {
	Created   []models.AlarmRecord
	Updated   []models.AlarmRecord
	Skipped   []SkippedDuplicate
	RowErrors []RowParseError
}

// Reconcile merges parsed candidates against a user's existing alarms under
// the overwrite policy. Matching is by name, case-insensitively. Within one
// batch, a later candidate for the same name replaces the earlier one.
//
// Reconcile performs no I/O; committing the returned write-set is the
// caller's responsibility.
func Reconcile(userID uuid.UUID, existing []models.AlarmRecord, candidates []Candidate, overwrite bool, now time.Time) Outcome {
	existingByName := make(map[string]models.AlarmRecord, len(existing))
	for _, alarm := range existing {
		existingByName[strings.ToLower(alarm.Name)] = alarm
	}

	var outcome Outcome

	// Indexes into outcome.Created/Updated per lowercased name, so a later
	// row for the same name wins over the earlier one.
	createdIdx := make(map[string]int)
	updatedIdx := make(map[string]int)

	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Name)

		match, exists := existingByName[key]
		if !exists {
			record := models.AlarmRecord{
				ID:           uuid.New(),
				UserID:       userID,
				Name:         candidate.Name,
				Time:         candidate.Time,
				Recurrence:   candidate.Recurrence,
				Enabled:      candidate.Enabled,
				LastModified: now,
				CreatedAt:    now,
			}

			if i, dup := createdIdx[key]; dup {
				record.ID = outcome.Created[i].ID
				outcome.Created[i] = record
				continue
			}

			createdIdx[key] = len(outcome.Created)
			outcome.Created = append(outcome.Created, record)
			continue
		}

		if !overwrite {
			outcome.Skipped = append(outcome.Skipped, SkippedDuplicate{
				Name: candidate.Name,
				Row:  candidate.Row,
			})
			continue
		}

		// Update in place: identity is preserved, mutable fields replaced.
		record := match
		record.Time = candidate.Time
		record.Recurrence = candidate.Recurrence
		record.Enabled = candidate.Enabled
		record.LastModified = now

		if i, dup := updatedIdx[key]; dup {
			outcome.Updated[i] = record
			continue
		}

		updatedIdx[key] = len(outcome.Updated)
		outcome.Updated = append(outcome.Updated, record)
	}

	return outcome
}
