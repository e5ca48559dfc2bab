package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// AlarmRepository provides data access for alarm records.
type AlarmRepository struct {
	BaseRepository
}

// NewAlarmRepository creates a new alarm repository.
func NewAlarmRepository(db *DB) *AlarmRepository {
	return &AlarmRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new alarm record.
func (r *AlarmRepository) Create(ctx context.Context, alarm *models.AlarmRecord) error {
	if alarm.ID == uuid.Nil {
		alarm.ID = NewID()
	}
	now := r.Now()
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = now
	}
	if alarm.LastModified.IsZero() {
		alarm.LastModified = now
	}

	if err := insertAlarm(ctx, r.DB(), alarm); err != nil {
		return fmt.Errorf("inserting alarm: %w", err)
	}

	return nil
}

// GetByID retrieves an alarm by its ID. Returns nil when not found.
func (r *AlarmRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AlarmRecord, error) {
	alarm := &models.AlarmRecord{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, user_id, name, time, recurrence, enabled, last_modified, created_at
		FROM alarms WHERE id = ?
	`, id.String()).Scan(
		&alarm.ID, &alarm.UserID, &alarm.Name, &alarm.Time,
		&alarm.Recurrence, &alarm.Enabled, &alarm.LastModified, &alarm.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying alarm: %w", err)
	}

	return alarm, nil
}

// GetByUser retrieves all alarms owned by a user, ordered by name.
func (r *AlarmRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]models.AlarmRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, user_id, name, time, recurrence, enabled, last_modified, created_at
		FROM alarms
		WHERE user_id = ?
		ORDER BY name
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("querying alarms: %w", err)
	}
	defer rows.Close()

	return scanAlarms(rows)
}

// GetModifiedSince retrieves a user's alarms modified after the given time.
func (r *AlarmRepository) GetModifiedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.AlarmRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, user_id, name, time, recurrence, enabled, last_modified, created_at
		FROM alarms
		WHERE user_id = ? AND last_modified > ?
		ORDER BY last_modified
	`, userID.String(), since)
	if err != nil {
		return nil, fmt.Errorf("querying modified alarms: %w", err)
	}
	defer rows.Close()

	return scanAlarms(rows)
}

// Update updates an existing alarm's mutable fields.
func (r *AlarmRepository) Update(ctx context.Context, alarm *models.AlarmRecord) error {
	alarm.LastModified = r.Now()

	result, err := updateAlarm(ctx, r.DB(), alarm)
	if err != nil {
		return fmt.Errorf("updating alarm: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("alarm not found: %s", alarm.ID)
	}

	return nil
}

// Delete removes an alarm by ID.
func (r *AlarmRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("deleting alarm: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("alarm not found: %s", id)
	}

	return nil
}

// CommitImport writes all created and updated records from one import in a
// single transaction. Either every record commits or none do.
func (r *AlarmRepository) CommitImport(ctx context.Context, created, updated []models.AlarmRecord) error {
	return r.Transaction(func(tx *sql.Tx) error {
		for i := range created {
			if err := insertAlarm(ctx, tx, &created[i]); err != nil {
				return fmt.Errorf("inserting imported alarm %q: %w", created[i].Name, err)
			}
		}

		for i := range updated {
			result, err := updateAlarm(ctx, tx, &updated[i])
			if err != nil {
				return fmt.Errorf("updating imported alarm %q: %w", updated[i].Name, err)
			}
			rowsAffected, _ := result.RowsAffected()
			if rowsAffected == 0 {
				return fmt.Errorf("imported alarm not found: %s", updated[i].ID)
			}
		}

		return nil
	})
}

func insertAlarm(ctx context.Context, q Queryable, alarm *models.AlarmRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO alarms (
			id, user_id, name, time, recurrence, enabled, last_modified, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		alarm.ID.String(), alarm.UserID.String(), alarm.Name, alarm.Time,
		alarm.Recurrence, alarm.Enabled, alarm.LastModified, alarm.CreatedAt,
	)
	return err
}

func updateAlarm(ctx context.Context, q Queryable, alarm *models.AlarmRecord) (sql.Result, error) {
	return q.ExecContext(ctx, `
		UPDATE alarms SET
			name = ?, time = ?, recurrence = ?, enabled = ?, last_modified = ?
		WHERE id = ?
	`,
		alarm.Name, alarm.Time, alarm.Recurrence, alarm.Enabled,
		alarm.LastModified, alarm.ID.String(),
	)
}

func scanAlarms(rows *sql.Rows) ([]models.AlarmRecord, error) {
	var alarms []models.AlarmRecord
	for rows.Next() {
		var alarm models.AlarmRecord
		if err := rows.Scan(
			&alarm.ID, &alarm.UserID, &alarm.Name, &alarm.Time,
			&alarm.Recurrence, &alarm.Enabled, &alarm.LastModified, &alarm.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning alarm: %w", err)
		}
		alarms = append(alarms, alarm)
	}

	return alarms, rows.Err()
}
