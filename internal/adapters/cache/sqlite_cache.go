package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache stores reputation verdicts in a local SQLite file
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reputation_cache (
			url TEXT PRIMARY KEY,
			malicious INTEGER NOT NULL,
			suspicious INTEGER NOT NULL,
			checked_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reputation_expires_at ON reputation_cache(expires_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	queries := sqlQueries{
		get: `SELECT url, malicious, suspicious, checked_at, expires_at FROM reputation_cache WHERE url = ?`,
		upsert: `
			INSERT INTO reputation_cache (url, malicious, suspicious, checked_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				malicious = excluded.malicious,
				suspicious = excluded.suspicious,
				checked_at = excluded.checked_at,
				expires_at = excluded.expires_at`,
		delete:  `DELETE FROM reputation_cache WHERE url = ?`,
		cleanup: `DELETE FROM reputation_cache WHERE expires_at <= ?`,
	}

	return &SQLiteCache{newSQLCache("sqlite", db, queries, logger, cleanupFreq)}, nil
}
