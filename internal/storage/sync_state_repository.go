package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// SyncStateRepository persists per-user, per-provider sync metadata.
type SyncStateRepository struct {
	BaseRepository
}

// NewSyncStateRepository creates a new sync state repository.
func NewSyncStateRepository(db *DB) *SyncStateRepository {
	return &SyncStateRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// LoadStatus retrieves the sync status for one (user, provider) pair.
// Returns nil when the provider has never been connected for the user.
func (r *SyncStateRepository) LoadStatus(ctx context.Context, userID uuid.UUID, provider string) (*models.ProviderSyncStatus, error) {
	status := &models.ProviderSyncStatus{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT user_id, provider, authorized, enabled, last_sync_at, event_count, last_error, updated_at
		FROM provider_sync_status
		WHERE user_id = ? AND provider = ?
	`, userID.String(), provider).Scan(
		&status.UserID, &status.Provider, &status.Authorized, &status.Enabled,
		&status.LastSyncAt, &status.EventCount, &status.LastError, &status.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying sync status: %w", err)
	}

	return status, nil
}

// ListByUser retrieves all provider sync statuses for a user, ordered by
// provider name.
func (r *SyncStateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProviderSyncStatus, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT user_id, provider, authorized, enabled, last_sync_at, event_count, last_error, updated_at
		FROM provider_sync_status
		WHERE user_id = ?
		ORDER BY provider
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("querying sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.ProviderSyncStatus
	for rows.Next() {
		var status models.ProviderSyncStatus
		if err := rows.Scan(
			&status.UserID, &status.Provider, &status.Authorized, &status.Enabled,
			&status.LastSyncAt, &status.EventCount, &status.LastError, &status.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning sync status: %w", err)
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

// ListUserIDs returns the distinct user IDs that have at least one enabled
// provider connection.
func (r *SyncStateRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT DISTINCT user_id FROM provider_sync_status WHERE enabled = 1 ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sync users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SaveStatus inserts or updates the sync status for one (user, provider)
// pair. The (user_id, provider) primary key guarantees at most one record
// per pair.
func (r *SyncStateRepository) SaveStatus(ctx context.Context, status *models.ProviderSyncStatus) error {
	status.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO provider_sync_status (
			user_id, provider, authorized, enabled, last_sync_at, event_count, last_error, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			authorized = excluded.authorized,
			enabled = excluded.enabled,
			last_sync_at = excluded.last_sync_at,
			event_count = excluded.event_count,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`,
		status.UserID.String(), status.Provider, status.Authorized, status.Enabled,
		status.LastSyncAt, status.EventCount, status.LastError, status.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("saving sync status: %w", err)
	}

	return nil
}
