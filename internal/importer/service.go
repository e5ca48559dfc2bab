package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alarm-routine-manager/backend/internal/storage/models"
)

// AlarmStore is the narrow alarm persistence contract the import service
// depends on. CommitImport must be atomic: all records or none.
type AlarmStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) ([]models.AlarmRecord, error)
	CommitImport(ctx context.Context, created, updated []models.AlarmRecord) error
}

var errUserIDRequired = errors.New("user id must be provided")

// Service runs bulk alarm imports end to end: parse, reconcile, commit.
type Service struct {
	alarms AlarmStore
	log    *zap.SugaredLogger
}

// NewService creates a new import service.
func NewService(alarms AlarmStore, log *zap.SugaredLogger) *Service {
	return &Service{
		alarms: alarms,
		log:    log,
	}
}

// ImportAlarms imports a batch of alarms from an uploaded file and merges
// them into the user's existing alarms. Row-level failures are reported
// inside the outcome; a non-nil error means the import as a whole failed
// and nothing was written.
func (s *Service) ImportAlarms(ctx context.Context, userID uuid.UUID, r io.Reader, filename string, overwrite bool) (*Outcome, error) {
	if userID == uuid.Nil {
		return nil, errUserIDRequired
	}

	candidates, rowErrors, err := Parse(r, filename)
	if err != nil {
		return nil, err
	}

	existing, err := s.alarms.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading existing alarms: %w", err)
	}

	outcome := Reconcile(userID, existing, candidates, overwrite, time.Now().UTC())
	outcome.RowErrors = append(rowErrors, outcome.RowErrors...)

	if len(outcome.Created) > 0 || len(outcome.Updated) > 0 {
		if err := s.alarms.CommitImport(ctx, outcome.Created, outcome.Updated); err != nil {
			// All-or-nothing: the write-set is discarded on commit failure.
			return nil, fmt.Errorf("committing import: %w", err)
		}
	}

	s.log.Infow("Import completed",
		"user_id", userID,
		"file", filename,
		"created", len(outcome.Created),
		"updated", len(outcome.Updated),
		"skipped", len(outcome.Skipped),
		"row_errors", len(outcome.RowErrors),
	)

	return &outcome, nil
}
