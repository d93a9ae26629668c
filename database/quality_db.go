package database

import (
	"database/sql"
	"fmt"
	"time"
)

// QualitySnapshot is one persisted quality-loop computation over a window of
// recent runs.
type QualitySnapshot struct {
	ID             string
	TriggerSource  string
	GeneratedAt    time.Time
	WindowStartAt  time.Time
	WindowEndAt    time.Time
	TotalRuns      int
	TotalItems     int
	TotalRedirects int
	UniqueClicked  int
	CtrPercent     int
	CvrPercent     int
	Notes          string
}

// QualityCategoryMetric is the per-category breakdown of a snapshot with its
// tuning suggestion.
type QualityCategoryMetric struct {
	SnapshotID         string
	CategoryKey        string
	CategoryLabel      string
	RecommendedCount   int
	RedirectCount      int
	UniqueClickedCount int
	CtrPercent         int
	CvrPercent         int
	SuggestedAction    string
	SuggestedDelta     int
	Evidence           string
}

// InsertQualitySnapshot stores a snapshot with its category metrics.
func (db *CatalogDB) InsertQualitySnapshot(snapshot QualitySnapshot, metrics []QualityCategoryMetric) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO recommendation_quality_snapshot
		(id, trigger_source, generated_at, window_start_at, window_end_at,
		 total_runs, total_items, total_redirects, unique_clicked_items,
		 ctr_percent, cvr_percent, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.TriggerSource, snapshot.GeneratedAt.UTC(),
		snapshot.WindowStartAt.UTC(), snapshot.WindowEndAt.UTC(),
		snapshot.TotalRuns, snapshot.TotalItems, snapshot.TotalRedirects,
		snapshot.UniqueClicked, snapshot.CtrPercent, snapshot.CvrPercent,
		snapshot.Notes); err != nil {
		return fmt.Errorf("failed to insert quality snapshot: %w", err)
	}

	for _, metric := range metrics {
		if _, err := tx.Exec(`
			INSERT INTO recommendation_quality_category_metric
			(snapshot_id, category_key, category_label,
			 recommended_count, redirect_count, unique_clicked_count,
			 ctr_percent, cvr_percent, suggested_action, suggested_delta_percent, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.ID, metric.CategoryKey, metric.CategoryLabel,
			metric.RecommendedCount, metric.RedirectCount, metric.UniqueClickedCount,
			metric.CtrPercent, metric.CvrPercent, metric.SuggestedAction,
			metric.SuggestedDelta, metric.Evidence); err != nil {
			return fmt.Errorf("failed to insert category metric: %w", err)
		}
	}
	return tx.Commit()
}

// GetLatestQualitySnapshot returns the newest snapshot with its metrics, or
// nil when no computation has been stored yet.
func (db *CatalogDB) GetLatestQualitySnapshot() (*QualitySnapshot, []QualityCategoryMetric, error) {
	var snapshot QualitySnapshot
	err := db.conn.QueryRow(`
		SELECT id, trigger_source, generated_at, window_start_at, window_end_at,
			total_runs, total_items, total_redirects, unique_clicked_items,
			ctr_percent, cvr_percent, notes
		FROM recommendation_quality_snapshot
		ORDER BY generated_at DESC, id DESC
		LIMIT 1`).
		Scan(&snapshot.ID, &snapshot.TriggerSource, &snapshot.GeneratedAt,
			&snapshot.WindowStartAt, &snapshot.WindowEndAt, &snapshot.TotalRuns,
			&snapshot.TotalItems, &snapshot.TotalRedirects, &snapshot.UniqueClicked,
			&snapshot.CtrPercent, &snapshot.CvrPercent, &snapshot.Notes)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load latest quality snapshot: %w", err)
	}

	metrics, err := db.listCategoryMetrics(snapshot.ID)
	if err != nil {
		return nil, nil, err
	}
	return &snapshot, metrics, nil
}

func (db *CatalogDB) listCategoryMetrics(snapshotID string) ([]QualityCategoryMetric, error) {
	rows, err := db.conn.Query(`
		SELECT snapshot_id, category_key, category_label,
			recommended_count, redirect_count, unique_clicked_count,
			ctr_percent, cvr_percent, suggested_action, suggested_delta_percent, evidence
		FROM recommendation_quality_category_metric
		WHERE snapshot_id = ?
		ORDER BY redirect_count DESC, recommended_count DESC, category_key`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category metrics: %w", err)
	}
	defer rows.Close()

	var metrics []QualityCategoryMetric
	for rows.Next() {
		var metric QualityCategoryMetric
		if err := rows.Scan(&metric.SnapshotID, &metric.CategoryKey,
			&metric.CategoryLabel, &metric.RecommendedCount, &metric.RedirectCount,
			&metric.UniqueClickedCount, &metric.CtrPercent, &metric.CvrPercent,
			&metric.SuggestedAction, &metric.SuggestedDelta, &metric.Evidence); err != nil {
			return nil, fmt.Errorf("failed to scan category metric: %w", err)
		}
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}
