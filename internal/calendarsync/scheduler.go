package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// UserLister enumerates the users with at least one enabled provider
// connection.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Scheduler runs periodic background sync cycles for every connected user.
type Scheduler struct {
	cron        *cron.Cron
	coordinator *Coordinator
	users       UserLister
	interval    time.Duration
	log         *zap.SugaredLogger
}

// NewScheduler creates a background sync scheduler. intervalMin below one
// minute falls back to 15 minutes.
func NewScheduler(coordinator *Coordinator, users UserLister, intervalMin int, log *zap.SugaredLogger) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 15
	}

	return &Scheduler{
		cron:        cron.New(),
		coordinator: coordinator,
		users:       users,
		interval:    time.Duration(intervalMin) * time.Minute,
		log:         log,
	}
}

// Start begins the periodic sync job.
func (s *Scheduler) Start() error {
	spec := "@every " + s.interval.String()
	if _, err := s.cron.AddFunc(spec, s.syncAll); err != nil {
		return fmt.Errorf("scheduling sync job: %w", err)
	}

	s.cron.Start()
	s.log.Infof("Calendar sync scheduler started (interval %s)", s.interval)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping calendar sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Calendar sync scheduler stopped")
}

// TriggerSync starts an immediate sync cycle for one user in the
// background.
func (s *Scheduler) TriggerSync(userID uuid.UUID) {
	go s.syncUser(userID)
}

// syncAll runs one cycle for every user with an enabled provider. Cycles
// already in flight are skipped, not queued.
func (s *Scheduler) syncAll() {
	ctx := context.Background()

	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		s.log.Errorw("Failed to list sync users", "error", err)
		return
	}

	for _, userID := range userIDs {
		s.syncUser(userID)
	}
}

func (s *Scheduler) syncUser(userID uuid.UUID) {
	report, err := s.coordinator.SyncUserCalendars(context.Background(), userID)
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			s.log.Debugw("Sync already in progress, skipping", "user_id", userID)
			return
		}
		s.log.Errorw("Calendar sync failed", "user_id", userID, "error", err)
		return
	}

	s.log.Infow("Calendar sync completed",
		"user_id", userID,
		"providers", len(report.Providers),
		"total_events", report.TotalEvents,
		"has_errors", report.HasErrors,
	)
}
