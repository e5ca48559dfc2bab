package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	return db
}

func testAlarm(userID uuid.UUID, name string) *models.AlarmRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.AlarmRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		Time:         "07:00",
		Recurrence:   "FREQ=DAILY",
		Enabled:      true,
		LastModified: now,
		CreatedAt:    now,
	}
}

// TestAlarmRepositoryRoundTrip covers create, read, update and delete.
func TestAlarmRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewAlarmRepository(testDB(t))
	ctx := context.Background()
	userID := uuid.New()

	alarm := testAlarm(userID, "Wake Up")
	require.NoError(t, repo.Create(ctx, alarm))

	got, err := repo.GetByID(ctx, alarm.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, alarm.Name, got.Name)
	require.Equal(t, alarm.UserID, got.UserID)

	got.Time = "08:30"
	require.NoError(t, repo.Update(ctx, got))

	listed, err := repo.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "08:30", listed[0].Time)

	require.NoError(t, repo.Delete(ctx, alarm.ID))

	gone, err := repo.GetByID(ctx, alarm.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

// TestAlarmRepositoryGetModifiedSince verifies change detection by
// last-modified timestamp.
func TestAlarmRepositoryGetModifiedSince(t *testing.T) {
	t.Parallel()

	repo := NewAlarmRepository(testDB(t))
	ctx := context.Background()
	userID := uuid.New()

	old := testAlarm(userID, "Old")
	old.LastModified = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, old))

	recent := testAlarm(userID, "Recent")
	require.NoError(t, repo.Create(ctx, recent))

	modified, err := repo.GetModifiedSince(ctx, userID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, modified, 1)
	require.Equal(t, "Recent", modified[0].Name)
}

// TestCommitImportAtomic verifies that a failing import commit writes
// nothing at all.
func TestCommitImportAtomic(t *testing.T) {
	t.Parallel()

	repo := NewAlarmRepository(testDB(t))
	ctx := context.Background()
	userID := uuid.New()

	created := *testAlarm(userID, "New Alarm")
	missing := *testAlarm(userID, "Ghost") // never inserted, update must fail

	err := repo.CommitImport(ctx, []models.AlarmRecord{created}, []models.AlarmRecord{missing})
	require.Error(t, err)

	// The created record was rolled back with the failed update.
	alarms, err := repo.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, alarms)
}

// TestCommitImportSuccess verifies both halves of the write-set land.
func TestCommitImportSuccess(t *testing.T) {
	t.Parallel()

	repo := NewAlarmRepository(testDB(t))
	ctx := context.Background()
	userID := uuid.New()

	existing := testAlarm(userID, "Wake Up")
	require.NoError(t, repo.Create(ctx, existing))

	updated := *existing
	updated.Time = "09:00"
	created := *testAlarm(userID, "Gym")

	require.NoError(t, repo.CommitImport(ctx, []models.AlarmRecord{created}, []models.AlarmRecord{updated}))

	alarms, err := repo.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, alarms, 2)
}

// TestSyncStateRepositoryUpsert verifies the one-row-per-pair invariant:
// saving twice updates in place.
func TestSyncStateRepositoryUpsert(t *testing.T) {
	t.Parallel()

	repo := NewSyncStateRepository(testDB(t))
	ctx := context.Background()
	userID := uuid.New()

	status := &models.ProviderSyncStatus{
		UserID:     userID,
		Provider:   "google",
		Authorized: true,
		Enabled:    true,
	}
	require.NoError(t, repo.SaveStatus(ctx, status))

	now := time.Now().UTC().Truncate(time.Second)
	errMsg := "rate limited"
	status.LastSyncAt = &now
	status.EventCount = 7
	status.LastError = &errMsg
	require.NoError(t, repo.SaveStatus(ctx, status))

	statuses, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Equal(t, 7, statuses[0].EventCount)
	require.NotNil(t, statuses[0].LastError)
	require.Equal(t, "rate limited", *statuses[0].LastError)
	require.True(t, statuses[0].LastSyncAt.Equal(now))
}

// TestSyncStateRepositoryLoadStatus verifies nil is returned for a pair
// that never synced.
func TestSyncStateRepositoryLoadStatus(t *testing.T) {
	t.Parallel()

	repo := NewSyncStateRepository(testDB(t))
	ctx := context.Background()

	status, err := repo.LoadStatus(ctx, uuid.New(), "google")
	require.NoError(t, err)
	require.Nil(t, status)
}

// TestListUserIDsOnlyEnabled verifies the scheduler's user listing skips
// users whose provider connections are all disabled.
func TestListUserIDsOnlyEnabled(t *testing.T) {
	t.Parallel()

	repo := NewSyncStateRepository(testDB(t))
	ctx := context.Background()

	enabledUser := uuid.New()
	disabledUser := uuid.New()

	require.NoError(t, repo.SaveStatus(ctx, &models.ProviderSyncStatus{
		UserID: enabledUser, Provider: "google", Authorized: true, Enabled: true,
	}))
	require.NoError(t, repo.SaveStatus(ctx, &models.ProviderSyncStatus{
		UserID: disabledUser, Provider: "google", Authorized: true, Enabled: false,
	}))

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{enabledUser}, ids)
}
