package services

import (
	"context"
	"sync/atomic"
	"time"

	"benepick/internal/config"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

// Trigger sources recorded with each job run.
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManualAPI = "manual-api"
)

// SchedulerService owns the periodic catalog sync and quality loop. Each job
// is guarded so that an overlapping trigger, scheduled or manual, is rejected
// instead of running twice.
type SchedulerService struct {
	sync       *CatalogSyncService
	quality    *QualityLoopService
	syncCfg    config.SchedulerConfig
	qualityCfg config.QualityLoopConfig
	logger     LoggerInterface

	finlifeRunning atomic.Bool
	cardsRunning   atomic.Bool
	qualityRunning atomic.Bool
}

func NewSchedulerService(
	sync *CatalogSyncService,
	quality *QualityLoopService,
	syncCfg config.SchedulerConfig,
	qualityCfg config.QualityLoopConfig,
	logger LoggerInterface,
) *SchedulerService {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &SchedulerService{
		sync:       sync,
		quality:    quality,
		syncCfg:    syncCfg,
		qualityCfg: qualityCfg,
		logger:     logger,
	}
}

// Start launches the startup and periodic jobs. It returns immediately; the
// goroutines stop when ctx is cancelled.
func (s *SchedulerService) Start(ctx context.Context) {
	if s.syncCfg.Enabled {
		if s.syncCfg.RunOnStartup {
			go s.runCatalogSync(ctx, TriggerStartup)
		}
		if s.syncCfg.RunScheduled && s.syncCfg.Interval > 0 {
			go s.loop(ctx, s.syncCfg.Interval, func() {
				s.runCatalogSync(ctx, TriggerScheduled)
			})
		}
	}

	if s.qualityCfg.Enabled {
		if s.qualityCfg.RunOnStartup {
			go s.runQualityLoop(TriggerStartup)
		}
		if s.qualityCfg.RunScheduled && s.qualityCfg.Interval > 0 {
			go s.loop(ctx, s.qualityCfg.Interval, func() {
				s.runQualityLoop(TriggerScheduled)
			})
		}
	}
}

func (s *SchedulerService) loop(ctx context.Context, interval time.Duration, job func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job()
		}
	}
}

func (s *SchedulerService) runCatalogSync(ctx context.Context, trigger string) {
	if s.syncCfg.SyncFinlife {
		if _, err := s.TriggerFinlifeSync(ctx, trigger); err != nil {
			s.logger.Warn("scheduled Finlife sync failed", "trigger", trigger, "error", err.Error())
		}
	}
	if s.syncCfg.SyncCards {
		if _, err := s.TriggerCardSync(ctx, trigger); err != nil {
			s.logger.Warn("scheduled card sync failed", "trigger", trigger, "error", err.Error())
		}
	}
}

func (s *SchedulerService) runQualityLoop(trigger string) {
	if _, err := s.TriggerQualityRecompute(trigger); err != nil {
		s.logger.Warn("scheduled quality recompute failed", "trigger", trigger, "error", err.Error())
	}
}

// TriggerFinlifeSync runs one Finlife sync unless one is already in flight.
func (s *SchedulerService) TriggerFinlifeSync(ctx context.Context, trigger string) (*types.SyncResultResponse, error) {
	if !s.finlifeRunning.CompareAndSwap(false, true) {
		return nil, apperrors.NewConflictError("Finlife sync is already in progress", nil)
	}
	defer s.finlifeRunning.Store(false)
	return s.sync.SyncFinlife(ctx, trigger)
}

// TriggerCardSync runs one card feed sync unless one is already in flight.
func (s *SchedulerService) TriggerCardSync(ctx context.Context, trigger string) (*types.SyncResultResponse, error) {
	if !s.cardsRunning.CompareAndSwap(false, true) {
		return nil, apperrors.NewConflictError("Card sync is already in progress", nil)
	}
	defer s.cardsRunning.Store(false)
	return s.sync.SyncCards(ctx, trigger)
}

// TriggerQualityRecompute stores one fresh quality snapshot unless a
// recompute is already in flight.
func (s *SchedulerService) TriggerQualityRecompute(trigger string) (*types.QualityReportResponse, error) {
	if !s.qualityRunning.CompareAndSwap(false, true) {
		return nil, apperrors.NewConflictError("Quality recompute is already in progress", nil)
	}
	defer s.qualityRunning.Store(false)
	return s.quality.RecomputeAndStore(trigger)
}
