package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RecommendationRun is a persisted simulate call.
type RecommendationRun struct {
	ID                       string
	Priority                 string
	ExpectedNetMonthlyProfit int
	CreatedAt                time.Time
}

// RecommendationItem is one ranked product inside a run.
type RecommendationItem struct {
	ID           string
	RunID        string
	Rank         int
	ProductType  string
	ProductID    string
	ProviderName string
	ProductName  string
	Summary      string
	Meta         string
	Score        int
	ReasonText   string
	OfficialURL  string
}

// RedirectEvent records a click-through on a recommended product.
type RedirectEvent struct {
	ID          string
	RunID       string
	ProductType string
	ProductID   string
	OfficialURL string
	ClickedAt   time.Time
	UserAgent   string
	IPAddress   string
	Referrer    string
}

// RunHistoryEntry is a run with aggregate counts for the history listing.
type RunHistoryEntry struct {
	Run           RecommendationRun
	ItemCount     int
	RedirectCount int
}

// InsertRun stores the run and all of its items in one transaction.
func (db *CatalogDB) InsertRun(run RecommendationRun, items []RecommendationItem) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin run insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO recommendation_run (id, priority, expected_net_monthly_profit, created_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Priority, run.ExpectedNetMonthlyProfit, run.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, item := range items {
		if _, err := tx.Exec(`
			INSERT INTO recommendation_item
			(id, run_id, item_rank, product_type, product_id, provider_name, product_name, summary, meta, score, reason_text, official_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, run.ID, item.Rank, item.ProductType, item.ProductID,
			item.ProviderName, item.ProductName, item.Summary, item.Meta,
			item.Score, item.ReasonText, item.OfficialURL); err != nil {
			return fmt.Errorf("failed to insert run item %s: %w", item.ProductID, err)
		}
	}
	return tx.Commit()
}

// GetRun loads a run with its items ordered by type and rank. Returns nil
// when the run does not exist.
func (db *CatalogDB) GetRun(runID string) (*RecommendationRun, []RecommendationItem, error) {
	var run RecommendationRun
	err := db.conn.QueryRow(`
		SELECT id, priority, expected_net_monthly_profit, created_at
		FROM recommendation_run WHERE id = ?`, runID).
		Scan(&run.ID, &run.Priority, &run.ExpectedNetMonthlyProfit, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	items, err := db.listRunItems(runID)
	if err != nil {
		return nil, nil, err
	}
	return &run, items, nil
}

func (db *CatalogDB) listRunItems(runID string) ([]RecommendationItem, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, item_rank, product_type, product_id, provider_name, product_name, summary, meta, score, reason_text, official_url
		FROM recommendation_item
		WHERE run_id = ?
		ORDER BY product_type, item_rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	defer rows.Close()

	var items []RecommendationItem
	for rows.Next() {
		var item RecommendationItem
		if err := rows.Scan(&item.ID, &item.RunID, &item.Rank, &item.ProductType,
			&item.ProductID, &item.ProviderName, &item.ProductName, &item.Summary,
			&item.Meta, &item.Score, &item.ReasonText, &item.OfficialURL); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindRunItem returns the item for a run/type/product triple or nil.
func (db *CatalogDB) FindRunItem(runID, productType, productID string) (*RecommendationItem, error) {
	var item RecommendationItem
	err := db.conn.QueryRow(`
		SELECT id, run_id, item_rank, product_type, product_id, provider_name, product_name, summary, meta, score, reason_text, official_url
		FROM recommendation_item
		WHERE run_id = ? AND product_type = ? AND product_id = ?`,
		runID, productType, productID).
		Scan(&item.ID, &item.RunID, &item.Rank, &item.ProductType, &item.ProductID,
			&item.ProviderName, &item.ProductName, &item.Summary, &item.Meta,
			&item.Score, &item.ReasonText, &item.OfficialURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run item: %w", err)
	}
	return &item, nil
}

// ListRecentRuns returns the newest runs with item and redirect counts.
func (db *CatalogDB) ListRecentRuns(limit int) ([]RunHistoryEntry, error) {
	rows, err := db.conn.Query(`
		SELECT r.id, r.priority, r.expected_net_monthly_profit, r.created_at,
			(SELECT COUNT(*) FROM recommendation_item i WHERE i.run_id = r.id),
			(SELECT COUNT(*) FROM recommendation_redirect_event e WHERE e.run_id = r.id)
		FROM recommendation_run r
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	defer rows.Close()

	var entries []RunHistoryEntry
	for rows.Next() {
		var entry RunHistoryEntry
		if err := rows.Scan(&entry.Run.ID, &entry.Run.Priority,
			&entry.Run.ExpectedNetMonthlyProfit, &entry.Run.CreatedAt,
			&entry.ItemCount, &entry.RedirectCount); err != nil {
			return nil, fmt.Errorf("failed to scan run history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InsertRedirectEvent stores a click-through event.
func (db *CatalogDB) InsertRedirectEvent(event RedirectEvent) error {
	_, err := db.conn.Exec(`
		INSERT INTO recommendation_redirect_event
		(id, run_id, product_type, product_id, official_url, clicked_at, user_agent, ip_address, referrer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.RunID, event.ProductType, event.ProductID, event.OfficialURL,
		event.ClickedAt.UTC(), event.UserAgent, event.IPAddress, event.Referrer)
	if err != nil {
		return fmt.Errorf("failed to insert redirect event: %w", err)
	}
	return nil
}

// ListRedirectEventsForRun returns all click events of one run.
func (db *CatalogDB) ListRedirectEventsForRun(runID string) ([]RedirectEvent, error) {
	return db.listRedirectEvents(`WHERE run_id = ?`, runID)
}

// CountRunsSince counts runs created at or after the window start.
func (db *CatalogDB) CountRunsSince(since time.Time) (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM recommendation_run WHERE created_at >= ?`, since.UTC()).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// ListItemsSince returns all items belonging to runs inside the window.
func (db *CatalogDB) ListItemsSince(since time.Time) ([]RecommendationItem, error) {
	rows, err := db.conn.Query(`
		SELECT i.id, i.run_id, i.item_rank, i.product_type, i.product_id, i.provider_name, i.product_name, i.summary, i.meta, i.score, i.reason_text, i.official_url
		FROM recommendation_item i
		JOIN recommendation_run r ON r.id = i.run_id
		WHERE r.created_at >= ?`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list items in window: %w", err)
	}
	defer rows.Close()

	var items []RecommendationItem
	for rows.Next() {
		var item RecommendationItem
		if err := rows.Scan(&item.ID, &item.RunID, &item.Rank, &item.ProductType,
			&item.ProductID, &item.ProviderName, &item.ProductName, &item.Summary,
			&item.Meta, &item.Score, &item.ReasonText, &item.OfficialURL); err != nil {
			return nil, fmt.Errorf("failed to scan windowed item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListRedirectEventsSince returns all click events inside the window.
func (db *CatalogDB) ListRedirectEventsSince(since time.Time) ([]RedirectEvent, error) {
	return db.listRedirectEvents(`WHERE clicked_at >= ?`, since.UTC())
}

func (db *CatalogDB) listRedirectEvents(where string, arg any) ([]RedirectEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, product_type, product_id, official_url, clicked_at, user_agent, ip_address, referrer
		FROM recommendation_redirect_event `+where+` ORDER BY clicked_at`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list redirect events: %w", err)
	}
	defer rows.Close()

	var events []RedirectEvent
	for rows.Next() {
		var event RedirectEvent
		if err := rows.Scan(&event.ID, &event.RunID, &event.ProductType, &event.ProductID,
			&event.OfficialURL, &event.ClickedAt, &event.UserAgent, &event.IPAddress,
			&event.Referrer); err != nil {
			return nil, fmt.Errorf("failed to scan redirect event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
