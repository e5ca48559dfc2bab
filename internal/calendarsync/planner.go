// Package calendarsync keeps a user's alarms consistent with their
// connected calendar providers: planning per-provider actions, driving them
// through the provider clients, and aggregating the results.
package calendarsync

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// PlanActions diffs the authoritative local alarm set against one
// provider's last-known remote mapping and returns the minimal action
// sequence to converge the provider.
//
// Rules: a local alarm without a mapping is created; a mapped alarm
// modified after the last sync is updated; a mapping without a local alarm
// is deleted. An alarm that was created and deleted locally before any sync
// has neither a record nor a mapping and produces nothing.
//
// The result is ordered Create, Update, Delete, each group by alarm UUID
// ascending, so planning is deterministic. Each alarm appears at most once
// per action kind.
func PlanActions(providerName string, local []models.AlarmRecord, mappings map[uuid.UUID]string, lastSync *time.Time) []models.SyncAction {
	var creates, updates, deletes []models.SyncAction

	seen := make(map[uuid.UUID]bool, len(local))
	for _, alarm := range local {
		if seen[alarm.ID] {
			continue
		}
		seen[alarm.ID] = true

		eventID, mapped := mappings[alarm.ID]
		if !mapped {
			creates = append(creates, models.SyncAction{
				Provider: providerName,
				AlarmID:  alarm.ID,
				Kind:     models.ActionCreate,
			})
			continue
		}

		if lastSync == nil || alarm.LastModified.After(*lastSync) {
			updates = append(updates, models.SyncAction{
				Provider: providerName,
				AlarmID:  alarm.ID,
				EventID:  eventID,
				Kind:     models.ActionUpdate,
			})
		}
	}

	for alarmID, eventID := range mappings {
		if seen[alarmID] {
			continue
		}
		deletes = append(deletes, models.SyncAction{
			Provider: providerName,
			AlarmID:  alarmID,
			EventID:  eventID,
			Kind:     models.ActionDelete,
		})
	}

	sortActions(creates)
	sortActions(updates)
	sortActions(deletes)

	actions := make([]models.SyncAction, 0, len(creates)+len(updates)+len(deletes))
	actions = append(actions, creates...)
	actions = append(actions, updates...)
	actions = append(actions, deletes...)
	return actions
}

func sortActions(actions []models.SyncAction) {
	sort.Slice(actions, func(i, j int) bool {
		return bytes.Compare(actions[i].AlarmID[:], actions[j].AlarmID[:]) < 0
	})
}
