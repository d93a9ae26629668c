package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBConfig holds connection pool settings.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CatalogDB wraps the SQLite store shared by the catalog, recommendation and
// quality services.
type CatalogDB struct {
	conn *sql.DB
}

// NewCatalogDB opens the database at dbPath with default pool settings.
func NewCatalogDB(dbPath string) (*CatalogDB, error) {
	config := DBConfig{}

	// In-memory SQLite needs exactly one connection, otherwise every new
	// connection sees an empty database without the migrated schema.
	if isInMemory(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewCatalogDBWithConfig(dbPath, config)
}

func isInMemory(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	if strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory") {
		return true
	}
	return false
}

// NewCatalogDBWithConfig opens the database with explicit pool settings and
// runs the schema migrations.
func NewCatalogDBWithConfig(dbPath string, config DBConfig) (*CatalogDB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite handles large connection counts poorly, cap at 10.
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL is best-effort, in-memory databases reject it.
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil && !isInMemory(dbPath) {
		conn.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	db := &CatalogDB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the underlying connection pool.
func (db *CatalogDB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *CatalogDB) Ping() error {
	return db.conn.Ping()
}

// Conn exposes the raw *sql.DB for tests.
func (db *CatalogDB) Conn() *sql.DB {
	return db.conn
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	value := nt.Time.UTC()
	return &value
}
