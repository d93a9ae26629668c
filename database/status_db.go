package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncCounts carries the per-sync row counters.
type SyncCounts struct {
	Fetched     int
	Upserted    int
	Deactivated int
	Skipped     int
}

// SyncStatus is the persisted state of one sync source.
type SyncStatus struct {
	Source                  string
	LastResult              string
	LastTrigger             string
	LastRunAt               *time.Time
	LastSuccessAt           *time.Time
	LastFailureAt           *time.Time
	LastMessage             string
	Counts                  SyncCounts
	ConsecutiveFailureCount int
}

const maxStatusMessageLen = 1000

func truncateStatusMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= maxStatusMessageLen {
		return message
	}
	return string(runes[:maxStatusMessageLen])
}

// GetSyncStatus returns the stored status row for a source or nil.
func (db *CatalogDB) GetSyncStatus(source string) (*SyncStatus, error) {
	var status SyncStatus
	var runAt, successAt, failureAt sql.NullTime
	err := db.conn.QueryRow(`
		SELECT sync_source, last_result, last_trigger, last_run_at, last_success_at, last_failure_at,
			last_message, last_fetched, last_upserted, last_deactivated, last_skipped,
			consecutive_failure_count
		FROM catalog_sync_status WHERE sync_source = ?`, source).
		Scan(&status.Source, &status.LastResult, &status.LastTrigger, &runAt, &successAt,
			&failureAt, &status.LastMessage, &status.Counts.Fetched, &status.Counts.Upserted,
			&status.Counts.Deactivated, &status.Counts.Skipped, &status.ConsecutiveFailureCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status %s: %w", source, err)
	}

	status.LastRunAt = nullTime(runAt)
	status.LastSuccessAt = nullTime(successAt)
	status.LastFailureAt = nullTime(failureAt)
	return &status, nil
}

// MarkSyncSuccess records a successful sync. Resets the failure counter and
// overwrites the counters with the latest run.
func (db *CatalogDB) MarkSyncSuccess(source, trigger, message string, counts SyncCounts) error {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO catalog_sync_status
		(sync_source, last_result, last_trigger, last_run_at, last_success_at, last_message,
		 last_fetched, last_upserted, last_deactivated, last_skipped, consecutive_failure_count)
		VALUES (?, 'SUCCESS', ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(sync_source) DO UPDATE SET
			last_result = 'SUCCESS',
			last_trigger = excluded.last_trigger,
			last_run_at = excluded.last_run_at,
			last_success_at = excluded.last_success_at,
			last_message = excluded.last_message,
			last_fetched = excluded.last_fetched,
			last_upserted = excluded.last_upserted,
			last_deactivated = excluded.last_deactivated,
			last_skipped = excluded.last_skipped,
			consecutive_failure_count = 0`,
		source, trigger, now, now, truncateStatusMessage(message),
		counts.Fetched, counts.Upserted, counts.Deactivated, counts.Skipped)
	if err != nil {
		return fmt.Errorf("failed to mark sync success for %s: %w", source, err)
	}
	return nil
}

// MarkSyncFailure records a failed sync. Increments the failure counter and
// keeps the counters of the last successful run.
func (db *CatalogDB) MarkSyncFailure(source, trigger, message string) error {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO catalog_sync_status
		(sync_source, last_result, last_trigger, last_run_at, last_failure_at, last_message,
		 consecutive_failure_count)
		VALUES (?, 'FAILED', ?, ?, ?, ?, 1)
		ON CONFLICT(sync_source) DO UPDATE SET
			last_result = 'FAILED',
			last_trigger = excluded.last_trigger,
			last_run_at = excluded.last_run_at,
			last_failure_at = excluded.last_failure_at,
			last_message = excluded.last_message,
			consecutive_failure_count = catalog_sync_status.consecutive_failure_count + 1`,
		source, trigger, now, now, truncateStatusMessage(message))
	if err != nil {
		return fmt.Errorf("failed to mark sync failure for %s: %w", source, err)
	}
	return nil
}
