package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderSyncStatus tracks sync metadata for one (user, provider) pair.
// There is at most one active record per pair; it is updated after every
// sync attempt and never deleted.
type ProviderSyncStatus struct {
	UserID     uuid.UUID  `json:"user_id"`
	Provider   string     `json:"provider"`
	Authorized bool       `json:"authorized"`
	Enabled    bool       `json:"enabled"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	EventCount int        `json:"event_count"`
	LastError  *string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// CycleState is the terminal state the provider reached in the most
	// recent sync cycle. Transient; not persisted.
	CycleState CycleState `json:"cycle_state,omitempty"`
}

// CycleState is the per-cycle state of one provider's sync task.
type CycleState string

// Cycle states. Pending and InProgress are transitional; the rest are
// terminal.
const (
	CyclePending             CycleState = "pending"
	CycleInProgress          CycleState = "in_progress"
	CycleCompleted           CycleState = "completed"
	CycleCompletedWithErrors CycleState = "completed_with_errors"
	CycleSkipped             CycleState = "skipped"
)

// CalendarSyncStatus is the aggregate report for one sync cycle. It is
// rebuilt fresh every cycle from the provider statuses plus that cycle's
// transient errors, and is never persisted.
type CalendarSyncStatus struct {
	UserID      uuid.UUID            `json:"user_id"`
	LastSyncAt  *time.Time           `json:"last_sync_at,omitempty"`
	TotalEvents int                  `json:"total_events"`
	HasErrors   bool                 `json:"has_errors"`
	Errors      []string             `json:"errors,omitempty"`
	Providers   []ProviderSyncStatus `json:"providers"`
}

// ActionKind identifies the kind of a sync action.
type ActionKind string

// Sync action kinds.
const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// SyncAction is one Create/Update/Delete instruction targeting one alarm on
// one provider. Immutable; consumed exactly once by the sync coordinator.
type SyncAction struct {
	Provider string     `json:"provider"`
	AlarmID  uuid.UUID  `json:"alarm_id"`
	EventID  string     `json:"event_id,omitempty"` // provider-side id (update/delete)
	Kind     ActionKind `json:"kind"`
}
