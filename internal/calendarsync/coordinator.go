package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alarm-routine-manager/backend/internal/config"
	"github.com/alarm-routine-manager/backend/internal/provider"
	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// AlarmSource is the alarm read contract the coordinator depends on.
type AlarmSource interface {
	GetByUser(ctx context.Context, userID uuid.UUID) ([]models.AlarmRecord, error)
}

// StatusStore persists per-provider sync state between cycles.
type StatusStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProviderSyncStatus, error)
	SaveStatus(ctx context.Context, status *models.ProviderSyncStatus) error
}

var (
	// ErrSyncInProgress is returned when a sync cycle for the same user is
	// already in flight. The new request is rejected, not queued.
	ErrSyncInProgress = errors.New("sync already in progress")

	errUserIDRequired = errors.New("user id must be provided")
)

// saveTimeout bounds the status write that follows a provider task, so a
// cycle that hit its deadline can still record its outcome.
const saveTimeout = 5 * time.Second

// Coordinator drives one user's sync cycle across all connected providers.
// Providers are synchronized concurrently and fully isolated from each
// other; the aggregate report is assembled only after every provider task
// reaches a terminal state.
type Coordinator struct {
	alarms   AlarmSource
	statuses StatusStore
	clients  map[string]provider.Client

	cycleTimeout time.Duration
	maxRetries   int
	retryBackoff time.Duration

	locks *userLocks
	log   *zap.SugaredLogger
}

// NewCoordinator creates a sync coordinator.
func NewCoordinator(alarms AlarmSource, statuses StatusStore, clients map[string]provider.Client, cfg config.SyncConfig, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		alarms:       alarms,
		statuses:     statuses,
		clients:      clients,
		cycleTimeout: cfg.CycleTimeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		locks:        newUserLocks(),
		log:          log,
	}
}

// providerResult is the outcome of one provider task within a cycle.
type providerResult struct {
	status models.ProviderSyncStatus
	errors []string
}

// SyncUserCalendars runs one full sync cycle for the user and returns the
// aggregate status report. Partial provider failures are reported inside
// the returned status, never as an error.
func (c *Coordinator) SyncUserCalendars(ctx context.Context, userID uuid.UUID) (*models.CalendarSyncStatus, error) {
	if userID == uuid.Nil {
		return nil, errUserIDRequired
	}

	if !c.locks.tryAcquire(userID) {
		return nil, ErrSyncInProgress
	}
	defer c.locks.release(userID)

	ctx, cancel := context.WithTimeout(ctx, c.cycleTimeout)
	defer cancel()

	statuses, err := c.statuses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading provider statuses: %w", err)
	}

	local, err := c.alarms.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading alarms: %w", err)
	}

	results := make([]providerResult, len(statuses))
	var wg sync.WaitGroup

	for i, status := range statuses {
		client, connected := c.clients[status.Provider]

		if !status.Enabled || !status.Authorized || !connected {
			// Skipped providers keep their last-persisted status.
			status.CycleState = models.CycleSkipped
			results[i] = providerResult{status: status}
			continue
		}

		wg.Add(1)
		go func(i int, status models.ProviderSyncStatus, client provider.Client) {
			defer wg.Done()
			results[i] = c.syncProvider(ctx, status, client, local)
		}(i, status, client)
	}

	// Join barrier: aggregation only starts once every provider task has
	// reached a terminal state.
	wg.Wait()

	return assembleStatus(userID, results), nil
}

// syncProvider runs the full plan-execute-record sequence for one provider.
// It always returns a terminal state and never panics the cycle; every
// failure is captured in the result.
func (c *Coordinator) syncProvider(ctx context.Context, status models.ProviderSyncStatus, client provider.Client, local []models.AlarmRecord) providerResult {
	status.CycleState = models.CycleInProgress
	res := providerResult{}

	mappings, err := client.ListMappings(ctx, status.UserID)
	if err != nil {
		if errors.Is(err, provider.ErrAuthorizationExpired) {
			status.Authorized = false
		}
		res.errors = append(res.errors, fmt.Sprintf("%s: listing remote events: %v", status.Provider, err))
		return c.finishProvider(status, res, 0)
	}

	actions := PlanActions(status.Provider, local, mappings, status.LastSyncAt)

	localByID := make(map[uuid.UUID]models.AlarmRecord, len(local))
	for _, alarm := range local {
		localByID[alarm.ID] = alarm
	}

	successes := 0
	for _, action := range actions {
		if ctx.Err() != nil {
			res.errors = append(res.errors, fmt.Sprintf("%s: cycle cancelled: %v", status.Provider, ctx.Err()))
			break
		}

		err := c.executeAction(ctx, client, action, localByID)
		if err == nil {
			successes++
			continue
		}

		res.errors = append(res.errors, fmt.Sprintf("%s: %s %s: %v", status.Provider, action.Kind, action.AlarmID, err))

		if errors.Is(err, provider.ErrAuthorizationExpired) {
			// Remaining actions would fail the same way.
			status.Authorized = false
			break
		}
	}

	return c.finishProvider(status, res, successes)
}

// finishProvider records the provider's terminal state and persists the
// status row. The save uses its own deadline so a timed-out cycle can still
// write its outcome.
func (c *Coordinator) finishProvider(status models.ProviderSyncStatus, res providerResult, successes int) providerResult {
	now := time.Now().UTC()
	status.LastSyncAt = &now
	status.EventCount = successes

	if len(res.errors) > 0 {
		last := res.errors[len(res.errors)-1]
		status.LastError = &last
		status.CycleState = models.CycleCompletedWithErrors
	} else {
		status.LastError = nil
		status.CycleState = models.CycleCompleted
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := c.statuses.SaveStatus(saveCtx, &status); err != nil {
		c.log.Errorw("Failed to save provider sync status",
			"provider", status.Provider, "user_id", status.UserID, "error", err)
		res.errors = append(res.errors, fmt.Sprintf("%s: saving status: %v", status.Provider, err))
	}

	res.status = status
	return res
}

// executeAction runs one action against the provider, retrying transient
// failures up to the configured budget with linear backoff.
func (c *Coordinator) executeAction(ctx context.Context, client provider.Client, action models.SyncAction, localByID map[uuid.UUID]models.AlarmRecord) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}

		err = c.runAction(ctx, client, action, localByID)
		if err == nil || !provider.IsRetryable(err) {
			return err
		}
	}
	return err
}

func (c *Coordinator) runAction(ctx context.Context, client provider.Client, action models.SyncAction, localByID map[uuid.UUID]models.AlarmRecord) error {
	switch action.Kind {
	case models.ActionCreate:
		alarm, ok := localByID[action.AlarmID]
		if !ok {
			return fmt.Errorf("alarm not found: %s", action.AlarmID)
		}
		_, err := client.CreateEvent(ctx, alarm)
		return err

	case models.ActionUpdate:
		alarm, ok := localByID[action.AlarmID]
		if !ok {
			return fmt.Errorf("alarm not found: %s", action.AlarmID)
		}
		return client.UpdateEvent(ctx, action.EventID, alarm)

	case models.ActionDelete:
		return client.DeleteEvent(ctx, action.EventID)

	default:
		return fmt.Errorf("unknown action kind: %s", action.Kind)
	}
}

// assembleStatus builds the aggregate report from the per-provider results,
// in the stable provider order the cycle started with.
func assembleStatus(userID uuid.UUID, results []providerResult) *models.CalendarSyncStatus {
	report := &models.CalendarSyncStatus{
		UserID: userID,
	}

	for _, res := range results {
		report.Providers = append(report.Providers, res.status)
		report.Errors = append(report.Errors, res.errors...)

		if res.status.LastError != nil || len(res.errors) > 0 {
			report.HasErrors = true
		}

		if res.status.CycleState != models.CycleSkipped {
			report.TotalEvents += res.status.EventCount
		}

		if res.status.LastSyncAt != nil {
			if report.LastSyncAt == nil || res.status.LastSyncAt.After(*report.LastSyncAt) {
				report.LastSyncAt = res.status.LastSyncAt
			}
		}
	}

	return report
}
