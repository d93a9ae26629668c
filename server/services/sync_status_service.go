package services

import (
	"time"

	"benepick/database"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

// Sync source identifiers persisted in catalog_sync_status.
const (
	SyncSourceFinlife = "FINLIFE"
	SyncSourceCards   = "CARDS"
)

const syncNeverMessage = "아직 동기화 실행 이력이 없습니다."

// SyncStatusService records and reports catalog sync outcomes per source.
type SyncStatusService struct {
	db     *database.CatalogDB
	logger LoggerInterface
}

// NewSyncStatusService builds the service.
func NewSyncStatusService(db *database.CatalogDB, logger LoggerInterface) *SyncStatusService {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &SyncStatusService{db: db, logger: logger}
}

// RecordSuccess stores a successful sync run for a source.
func (s *SyncStatusService) RecordSuccess(source, trigger, message string, counts database.SyncCounts) {
	if err := s.db.MarkSyncSuccess(source, trigger, message, counts); err != nil {
		s.logger.Error("failed to record sync success", "source", source, "error", err.Error())
	}
}

// RecordFailure stores a failed sync run. The persisted message is the root
// cause of the error so operators see the original upstream message.
func (s *SyncStatusService) RecordFailure(source, trigger string, cause error) {
	message := apperrors.RootMessage(cause)
	if err := s.db.MarkSyncFailure(source, trigger, message); err != nil {
		s.logger.Error("failed to record sync failure", "source", source, "error", err.Error())
	}
}

// Status builds the combined status payload for both sources.
func (s *SyncStatusService) Status() (*types.SyncStatusResponse, error) {
	finlife, err := s.targetStatus(SyncSourceFinlife)
	if err != nil {
		return nil, err
	}
	cards, err := s.targetStatus(SyncSourceCards)
	if err != nil {
		return nil, err
	}

	return &types.SyncStatusResponse{
		GeneratedAt: time.Now().UTC(),
		Finlife:     finlife,
		Cards:       cards,
	}, nil
}

func (s *SyncStatusService) targetStatus(source string) (types.SyncTargetStatus, error) {
	status, err := s.db.GetSyncStatus(source)
	if err != nil {
		return types.SyncTargetStatus{}, apperrors.WrapError(err, "failed to load sync status")
	}

	if status == nil {
		return types.SyncTargetStatus{
			Source:      source,
			LastResult:  "NEVER",
			LastTrigger: "none",
			LastMessage: syncNeverMessage,
		}, nil
	}

	return types.SyncTargetStatus{
		Source:                  status.Source,
		LastResult:              status.LastResult,
		LastTrigger:             status.LastTrigger,
		LastRunAt:               status.LastRunAt,
		LastSuccessAt:           status.LastSuccessAt,
		LastFailureAt:           status.LastFailureAt,
		LastMessage:             status.LastMessage,
		LastFetched:             status.Counts.Fetched,
		LastUpserted:            status.Counts.Upserted,
		LastDeactivated:         status.Counts.Deactivated,
		LastSkipped:             status.Counts.Skipped,
		ConsecutiveFailureCount: status.ConsecutiveFailureCount,
	}, nil
}
