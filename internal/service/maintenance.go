package service

import (
	"context"
	"errors"
	"time"

	"garage_door/internal/repository"
)

// MaintenanceService applies the data retention policy: history rows older
// than a cutoff are purged from the event and command audit tables. Current
// records are never touched.
type MaintenanceService struct {
	eventRepo   repository.EventRepo
	commandRepo repository.CommandRepo
}

func NewMaintenanceService(eventRepo repository.EventRepo, commandRepo repository.CommandRepo) *MaintenanceService {
	return &MaintenanceService{eventRepo: eventRepo, commandRepo: commandRepo}
}

var _ Maintenance = (*MaintenanceService)(nil)

var errInvalidRetention = errors.New("retention period must be positive")

func (s *MaintenanceService) PurgeHistory(ctx context.Context, olderThan time.Duration, dryRun bool) (PurgeResult, error) {
	if olderThan <= 0 {
		return PurgeResult{}, errInvalidRetention
	}
	cutoff := time.Now().Add(-olderThan).Unix()

	eventRows, err := s.eventRepo.PurgeHistoryBefore(ctx, cutoff, dryRun)
	if err != nil {
		return PurgeResult{}, err
	}
	commandRows, err := s.commandRepo.PurgeHistoryBefore(ctx, cutoff, dryRun)
	if err != nil {
		return PurgeResult{}, err
	}
	return PurgeResult{
		CutoffSeconds: cutoff,
		DryRun:        dryRun,
		EventRows:     eventRows,
		CommandRows:   commandRows,
	}, nil
}
