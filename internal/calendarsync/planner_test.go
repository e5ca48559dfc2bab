package calendarsync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

func localAlarm(modified time.Time) models.AlarmRecord {
	return models.AlarmRecord{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Name:         "Wake Up",
		Time:         "07:00",
		Enabled:      true,
		LastModified: modified,
	}
}

// TestPlanActionsCreateUpdateDelete covers all three diff outcomes in one
// plan and checks the Create/Update/Delete group ordering.
func TestPlanActionsCreateUpdateDelete(t *testing.T) {
	t.Parallel()

	lastSync := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	unsyncedAlarm := localAlarm(lastSync.Add(time.Hour))  // no mapping -> create
	modifiedAlarm := localAlarm(lastSync.Add(time.Hour))  // mapped, modified -> update
	unchangedAlarm := localAlarm(lastSync.Add(-time.Hour)) // mapped, unchanged -> nothing
	deletedAlarmID := uuid.New()                           // mapped, no local -> delete

	mappings := map[uuid.UUID]string{
		modifiedAlarm.ID:  "evt-mod",
		unchangedAlarm.ID: "evt-same",
		deletedAlarmID:    "evt-gone",
	}

	actions := PlanActions("google", []models.AlarmRecord{unsyncedAlarm, modifiedAlarm, unchangedAlarm}, mappings, &lastSync)

	require.Len(t, actions, 3)

	require.Equal(t, models.ActionCreate, actions[0].Kind)
	require.Equal(t, unsyncedAlarm.ID, actions[0].AlarmID)

	require.Equal(t, models.ActionUpdate, actions[1].Kind)
	require.Equal(t, modifiedAlarm.ID, actions[1].AlarmID)
	require.Equal(t, "evt-mod", actions[1].EventID)

	require.Equal(t, models.ActionDelete, actions[2].Kind)
	require.Equal(t, deletedAlarmID, actions[2].AlarmID)
	require.Equal(t, "evt-gone", actions[2].EventID)

	for _, action := range actions {
		require.Equal(t, "google", action.Provider)
	}
}

// TestPlanActionsNeverSynced verifies that without a last sync time every
// mapped alarm is updated (we cannot know the remote is current).
func TestPlanActionsNeverSynced(t *testing.T) {
	t.Parallel()

	alarm := localAlarm(time.Now().UTC())
	mappings := map[uuid.UUID]string{alarm.ID: "evt-1"}

	actions := PlanActions("outlook", []models.AlarmRecord{alarm}, mappings, nil)

	require.Len(t, actions, 1)
	require.Equal(t, models.ActionUpdate, actions[0].Kind)
}

// TestPlanActionsNoOpConvergence verifies that planning over unchanged
// state yields no actions, run after run.
func TestPlanActionsNoOpConvergence(t *testing.T) {
	t.Parallel()

	lastSync := time.Now().UTC()
	alarm := localAlarm(lastSync.Add(-time.Minute))
	mappings := map[uuid.UUID]string{alarm.ID: "evt-1"}

	for i := 0; i < 2; i++ {
		actions := PlanActions("google", []models.AlarmRecord{alarm}, mappings, &lastSync)
		require.Empty(t, actions)
	}
}

// TestPlanActionsDeterministicOrdering verifies UUID-ascending ordering
// within each action group regardless of input order.
func TestPlanActionsDeterministicOrdering(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	alarms := []models.AlarmRecord{localAlarm(now), localAlarm(now), localAlarm(now)}

	first := PlanActions("google", alarms, nil, nil)
	reversed := []models.AlarmRecord{alarms[2], alarms[1], alarms[0]}
	second := PlanActions("google", reversed, nil, nil)

	require.Equal(t, first, second)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		require.True(t, first[i-1].AlarmID.String() < first[i].AlarmID.String(),
			"actions not ordered by alarm UUID")
	}
}

// TestPlanActionsDuplicateLocalAlarm verifies the at-most-once invariant
// when the local set happens to contain a duplicate record.
func TestPlanActionsDuplicateLocalAlarm(t *testing.T) {
	t.Parallel()

	alarm := localAlarm(time.Now().UTC())
	actions := PlanActions("google", []models.AlarmRecord{alarm, alarm}, nil, nil)

	require.Len(t, actions, 1)
	require.Equal(t, models.ActionCreate, actions[0].Kind)
}

// TestPlanActionsNetZero verifies that an alarm created and deleted before
// any sync produces no action at all.
func TestPlanActionsNetZero(t *testing.T) {
	t.Parallel()

	// No local record, no remote mapping: nothing to plan.
	actions := PlanActions("google", nil, nil, nil)
	require.Empty(t, actions)
}
