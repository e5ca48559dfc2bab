// Package provider contains the calendar provider client abstraction and
// the concrete clients for the supported provider kinds.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// Client is the capability contract for one external calendar provider.
// Implementations push alarm state to the remote calendar and report the
// remote's last-known identity mapping.
type Client interface {
	// Name returns the configured provider name.
	Name() string

	// CreateEvent creates a remote event for the alarm and returns the
	// provider-side event id.
	CreateEvent(ctx context.Context, alarm models.AlarmRecord) (string, error)

	// UpdateEvent replaces the remote event identified by eventID with the
	// alarm's current state.
	UpdateEvent(ctx context.Context, eventID string, alarm models.AlarmRecord) error

	// DeleteEvent removes the remote event. Deleting an event that is
	// already gone is not an error.
	DeleteEvent(ctx context.Context, eventID string) error

	// ListMappings returns the remote identity mapping for the user:
	// alarm UUID -> provider event id.
	ListMappings(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error)
}

// Classified provider failures. Callers use errors.Is against these.
var (
	// ErrAuthorizationExpired means the provider rejected our credentials.
	// The provider must be re-authorized before syncing again.
	ErrAuthorizationExpired = errors.New("provider authorization expired")

	// ErrUnavailable is a transient failure (rate limit, outage). Safe to
	// retry with backoff.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRemoteConflict means the remote event changed out-of-band. Local
	// state is left unchanged; the action is not retried.
	ErrRemoteConflict = errors.New("remote event conflict")
)

// IsRetryable reports whether the failure is transient and worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// classifyStatus maps an HTTP response status to a classified provider
// error. A nil return means the status is a success.
func classifyStatus(status int, provider string, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrAuthorizationExpired, status)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrRemoteConflict, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: %w (status %d)", provider, ErrUnavailable, status)
	default:
		return fmt.Errorf("%s: API error (status %d): %s", provider, status, body)
	}
}

// wrapTransportError classifies a transport-level failure (connection
// refused, timeout) as unavailable unless the context was cancelled.
func wrapTransportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrUnavailable, err)
}
