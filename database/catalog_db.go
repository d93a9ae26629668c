package database

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountProduct is a deposit/saving catalog row with its tag codes.
type AccountProduct struct {
	ID           string
	ProductKey   string
	ProviderName string
	ProductName  string
	AccountKind  string
	Summary      string
	OfficialURL  string
	Active       bool
	Tags         []string
}

// CardProduct is a card catalog row with its tags and benefit categories.
type CardProduct struct {
	ID            string
	ProductKey    string
	ProviderName  string
	ProductName   string
	AnnualFeeText string
	Summary       string
	OfficialURL   string
	Active        bool
	Tags          []string
	Categories    []string
}

// CatalogCounts summarizes one catalog side.
type CatalogCounts struct {
	Total  int
	Active int
}

// ListActiveAccounts returns active accounts ordered by provider and name.
func (db *CatalogDB) ListActiveAccounts() ([]AccountProduct, error) {
	rows, err := db.conn.Query(`
		SELECT id, product_key, provider_name, product_name, account_kind, summary, official_url, is_active
		FROM account_catalog
		WHERE is_active = 1
		ORDER BY provider_name, product_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []AccountProduct
	for rows.Next() {
		var account AccountProduct
		var active int
		if err := rows.Scan(&account.ID, &account.ProductKey, &account.ProviderName,
			&account.ProductName, &account.AccountKind, &account.Summary,
			&account.OfficialURL, &active); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		account.Active = active != 0
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range accounts {
		tags, err := db.loadCodes("account_catalog_tag", "account_catalog_id", "tag_code", accounts[i].ID)
		if err != nil {
			return nil, err
		}
		accounts[i].Tags = tags
	}
	return accounts, nil
}

// ListActiveCards returns active cards ordered by provider and name.
func (db *CatalogDB) ListActiveCards() ([]CardProduct, error) {
	rows, err := db.conn.Query(`
		SELECT id, product_key, provider_name, product_name, annual_fee_text, summary, official_url, is_active
		FROM card_catalog
		WHERE is_active = 1
		ORDER BY provider_name, product_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active cards: %w", err)
	}
	defer rows.Close()

	var cards []CardProduct
	for rows.Next() {
		var card CardProduct
		var active int
		if err := rows.Scan(&card.ID, &card.ProductKey, &card.ProviderName,
			&card.ProductName, &card.AnnualFeeText, &card.Summary,
			&card.OfficialURL, &active); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		card.Active = active != 0
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cards {
		tags, err := db.loadCodes("card_catalog_tag", "card_catalog_id", "tag_code", cards[i].ID)
		if err != nil {
			return nil, err
		}
		categories, err := db.loadCodes("card_catalog_category", "card_catalog_id", "category_code", cards[i].ID)
		if err != nil {
			return nil, err
		}
		cards[i].Tags = tags
		cards[i].Categories = categories
	}
	return cards, nil
}

// GetAccountByKey returns the account with the given product key or nil.
func (db *CatalogDB) GetAccountByKey(productKey string) (*AccountProduct, error) {
	var account AccountProduct
	var active int
	err := db.conn.QueryRow(`
		SELECT id, product_key, provider_name, product_name, account_kind, summary, official_url, is_active
		FROM account_catalog WHERE product_key = ?`, productKey).
		Scan(&account.ID, &account.ProductKey, &account.ProviderName, &account.ProductName,
			&account.AccountKind, &account.Summary, &account.OfficialURL, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", productKey, err)
	}

	account.Active = active != 0
	account.Tags, err = db.loadCodes("account_catalog_tag", "account_catalog_id", "tag_code", account.ID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetCardByKey returns the card with the given product key or nil.
func (db *CatalogDB) GetCardByKey(productKey string) (*CardProduct, error) {
	var card CardProduct
	var active int
	err := db.conn.QueryRow(`
		SELECT id, product_key, provider_name, product_name, annual_fee_text, summary, official_url, is_active
		FROM card_catalog WHERE product_key = ?`, productKey).
		Scan(&card.ID, &card.ProductKey, &card.ProviderName, &card.ProductName,
			&card.AnnualFeeText, &card.Summary, &card.OfficialURL, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card %s: %w", productKey, err)
	}

	card.Active = active != 0
	card.Tags, err = db.loadCodes("card_catalog_tag", "card_catalog_id", "tag_code", card.ID)
	if err != nil {
		return nil, err
	}
	card.Categories, err = db.loadCodes("card_catalog_category", "card_catalog_id", "category_code", card.ID)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// UpsertAccount inserts or updates an account by product key, replacing its
// tags and reactivating the row.
func (db *CatalogDB) UpsertAccount(product AccountProduct) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin account upsert: %w", err)
	}
	defer tx.Rollback()

	id, err := upsertCatalogRow(tx, upsertSpec{
		selectID: `SELECT id FROM account_catalog WHERE product_key = ?`,
		insert: `INSERT INTO account_catalog
			(id, product_key, provider_name, product_name, account_kind, summary, official_url, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		update: `UPDATE account_catalog
			SET provider_name = ?, product_name = ?, account_kind = ?, summary = ?, official_url = ?, is_active = 1, updated_at = ?
			WHERE id = ?`,
		key:    product.ProductKey,
		fields: []any{product.ProviderName, product.ProductName, product.AccountKind, product.Summary, product.OfficialURL},
	})
	if err != nil {
		return err
	}

	if err := replaceCodes(tx, "account_catalog_tag", "account_catalog_id", "tag_code", id, product.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertCard inserts or updates a card by product key, replacing its tags and
// categories and reactivating the row.
func (db *CatalogDB) UpsertCard(product CardProduct) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin card upsert: %w", err)
	}
	defer tx.Rollback()

	id, err := upsertCatalogRow(tx, upsertSpec{
		selectID: `SELECT id FROM card_catalog WHERE product_key = ?`,
		insert: `INSERT INTO card_catalog
			(id, product_key, provider_name, product_name, annual_fee_text, summary, official_url, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		update: `UPDATE card_catalog
			SET provider_name = ?, product_name = ?, annual_fee_text = ?, summary = ?, official_url = ?, is_active = 1, updated_at = ?
			WHERE id = ?`,
		key:    product.ProductKey,
		fields: []any{product.ProviderName, product.ProductName, product.AnnualFeeText, product.Summary, product.OfficialURL},
	})
	if err != nil {
		return err
	}

	if err := replaceCodes(tx, "card_catalog_tag", "card_catalog_id", "tag_code", id, product.Tags); err != nil {
		return err
	}
	if err := replaceCodes(tx, "card_catalog_category", "card_catalog_id", "category_code", id, product.Categories); err != nil {
		return err
	}
	return tx.Commit()
}

type upsertSpec struct {
	selectID string
	insert   string
	update   string
	key      string
	fields   []any
}

func upsertCatalogRow(tx *sql.Tx, spec upsertSpec) (string, error) {
	now := time.Now().UTC()

	var id string
	err := tx.QueryRow(spec.selectID, spec.key).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		args := append([]any{id, spec.key}, spec.fields...)
		args = append(args, now, now)
		if _, err := tx.Exec(spec.insert, args...); err != nil {
			return "", fmt.Errorf("failed to insert catalog row %s: %w", spec.key, err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to look up catalog row %s: %w", spec.key, err)
	default:
		args := append(append([]any{}, spec.fields...), now, id)
		if _, err := tx.Exec(spec.update, args...); err != nil {
			return "", fmt.Errorf("failed to update catalog row %s: %w", spec.key, err)
		}
	}
	return id, nil
}

func replaceCodes(tx *sql.Tx, table, parentColumn, codeColumn, parentID string, codes []string) error {
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, parentColumn), parentID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	seen := map[string]struct{}{}
	for _, code := range codes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if _, err := tx.Exec(
			fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, parentColumn, codeColumn),
			parentID, trimmed); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func (db *CatalogDB) loadCodes(table, parentColumn, codeColumn, parentID string) ([]string, error) {
	rows, err := db.conn.Query(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", codeColumn, table, parentColumn), parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(codes)
	return codes, nil
}

// DeactivateAccountsNotSeen deactivates active accounts whose key starts with
// prefix but was not part of the latest sync. Returns the affected count.
func (db *CatalogDB) DeactivateAccountsNotSeen(prefix string, seenKeys []string) (int, error) {
	return db.deactivateNotSeen("account_catalog", prefix, seenKeys)
}

// DeactivateCardsNotSeen is the card-side counterpart of
// DeactivateAccountsNotSeen.
func (db *CatalogDB) DeactivateCardsNotSeen(prefix string, seenKeys []string) (int, error) {
	return db.deactivateNotSeen("card_catalog", prefix, seenKeys)
}

func (db *CatalogDB) deactivateNotSeen(table, prefix string, seenKeys []string) (int, error) {
	rows, err := db.conn.Query(
		fmt.Sprintf(`SELECT product_key FROM %s WHERE is_active = 1 AND product_key LIKE ? ESCAPE '\'`, table),
		likePrefix(prefix))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s keys: %w", table, err)
	}

	seen := map[string]struct{}{}
	for _, key := range seenKeys {
		seen[key] = struct{}{}
	}

	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := seen[key]; !ok {
			stale = append(stale, key)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	now := time.Now().UTC()
	for _, key := range stale {
		if _, err := db.conn.Exec(
			fmt.Sprintf("UPDATE %s SET is_active = 0, updated_at = ? WHERE product_key = ?", table),
			now, key); err != nil {
			return 0, fmt.Errorf("failed to deactivate %s row %s: %w", table, key, err)
		}
	}
	return len(stale), nil
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
	return escaped + "%"
}

// CountAccounts returns total and active account counts.
func (db *CatalogDB) CountAccounts() (CatalogCounts, error) {
	return db.countCatalog("account_catalog")
}

// CountCards returns total and active card counts.
func (db *CatalogDB) CountCards() (CatalogCounts, error) {
	return db.countCatalog("card_catalog")
}

func (db *CatalogDB) countCatalog(table string) (CatalogCounts, error) {
	var counts CatalogCounts
	err := db.conn.QueryRow(fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM %s", table)).
		Scan(&counts.Total, &counts.Active)
	if err != nil {
		return CatalogCounts{}, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return counts, nil
}

// CountAccountsWithKeyPrefix counts active accounts under a key prefix.
func (db *CatalogDB) CountAccountsWithKeyPrefix(prefix string) (int, error) {
	return db.countWithPrefix("account_catalog", prefix)
}

// CountCardsWithKeyPrefix counts active cards under a key prefix.
func (db *CatalogDB) CountCardsWithKeyPrefix(prefix string) (int, error) {
	return db.countWithPrefix("card_catalog", prefix)
}

func (db *CatalogDB) countWithPrefix(table, prefix string) (int, error) {
	var count int
	err := db.conn.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE is_active = 1 AND product_key LIKE ? ESCAPE '\'`, table),
		likePrefix(prefix)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s by prefix: %w", table, err)
	}
	return count, nil
}
