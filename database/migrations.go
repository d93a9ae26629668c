package database

import "fmt"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS account_catalog (
		id TEXT PRIMARY KEY,
		product_key TEXT NOT NULL UNIQUE,
		provider_name TEXT NOT NULL,
		product_name TEXT NOT NULL,
		account_kind TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		official_url TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS account_catalog_tag (
		account_catalog_id TEXT NOT NULL REFERENCES account_catalog(id) ON DELETE CASCADE,
		tag_code TEXT NOT NULL,
		PRIMARY KEY (account_catalog_id, tag_code)
	)`,
	`CREATE TABLE IF NOT EXISTS card_catalog (
		id TEXT PRIMARY KEY,
		product_key TEXT NOT NULL UNIQUE,
		provider_name TEXT NOT NULL,
		product_name TEXT NOT NULL,
		annual_fee_text TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		official_url TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS card_catalog_tag (
		card_catalog_id TEXT NOT NULL REFERENCES card_catalog(id) ON DELETE CASCADE,
		tag_code TEXT NOT NULL,
		PRIMARY KEY (card_catalog_id, tag_code)
	)`,
	`CREATE TABLE IF NOT EXISTS card_catalog_category (
		card_catalog_id TEXT NOT NULL REFERENCES card_catalog(id) ON DELETE CASCADE,
		category_code TEXT NOT NULL,
		PRIMARY KEY (card_catalog_id, category_code)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_run (
		id TEXT PRIMARY KEY,
		priority TEXT NOT NULL,
		expected_net_monthly_profit INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_item (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES recommendation_run(id) ON DELETE CASCADE,
		item_rank INTEGER NOT NULL,
		product_type TEXT NOT NULL,
		product_id TEXT NOT NULL,
		provider_name TEXT NOT NULL DEFAULT '',
		product_name TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		meta TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		reason_text TEXT NOT NULL DEFAULT '',
		official_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendation_item_run ON recommendation_item(run_id)`,
	`CREATE TABLE IF NOT EXISTS recommendation_redirect_event (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES recommendation_run(id) ON DELETE CASCADE,
		product_type TEXT NOT NULL,
		product_id TEXT NOT NULL,
		official_url TEXT NOT NULL DEFAULT '',
		clicked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		user_agent TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_redirect_event_run ON recommendation_redirect_event(run_id)`,
	`CREATE TABLE IF NOT EXISTS recommendation_quality_snapshot (
		id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL DEFAULT 'manual',
		generated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		window_start_at TIMESTAMP NOT NULL,
		window_end_at TIMESTAMP NOT NULL,
		total_runs INTEGER NOT NULL DEFAULT 0,
		total_items INTEGER NOT NULL DEFAULT 0,
		total_redirects INTEGER NOT NULL DEFAULT 0,
		unique_clicked_items INTEGER NOT NULL DEFAULT 0,
		ctr_percent INTEGER NOT NULL DEFAULT 0,
		cvr_percent INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_quality_category_metric (
		snapshot_id TEXT NOT NULL REFERENCES recommendation_quality_snapshot(id) ON DELETE CASCADE,
		category_key TEXT NOT NULL,
		category_label TEXT NOT NULL DEFAULT '',
		recommended_count INTEGER NOT NULL DEFAULT 0,
		redirect_count INTEGER NOT NULL DEFAULT 0,
		unique_clicked_count INTEGER NOT NULL DEFAULT 0,
		ctr_percent INTEGER NOT NULL DEFAULT 0,
		cvr_percent INTEGER NOT NULL DEFAULT 0,
		suggested_action TEXT NOT NULL DEFAULT 'HOLD',
		suggested_delta_percent INTEGER NOT NULL DEFAULT 0,
		evidence TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (snapshot_id, category_key)
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_sync_status (
		sync_source TEXT PRIMARY KEY,
		last_result TEXT NOT NULL DEFAULT 'NEVER',
		last_trigger TEXT NOT NULL DEFAULT '',
		last_run_at TIMESTAMP,
		last_success_at TIMESTAMP,
		last_failure_at TIMESTAMP,
		last_message TEXT NOT NULL DEFAULT '',
		last_fetched INTEGER NOT NULL DEFAULT 0,
		last_upserted INTEGER NOT NULL DEFAULT 0,
		last_deactivated INTEGER NOT NULL DEFAULT 0,
		last_skipped INTEGER NOT NULL DEFAULT 0,
		consecutive_failure_count INTEGER NOT NULL DEFAULT 0
	)`,
}

func (db *CatalogDB) migrate() error {
	for _, statement := range schemaStatements {
		if _, err := db.conn.Exec(statement); err != nil {
			return fmt.Errorf("failed to run catalog migration: %w", err)
		}
	}
	return nil
}
