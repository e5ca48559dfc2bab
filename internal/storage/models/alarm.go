// Package models contains the domain models for the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AlarmRecord represents a single alarm owned by a user.
type AlarmRecord struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Time         string    `json:"time"` // Format: "15:04"
	Recurrence   string    `json:"recurrence,omitempty"`
	Enabled      bool      `json:"enabled"`
	LastModified time.Time `json:"last_modified"`
	CreatedAt    time.Time `json:"created_at"`
}
