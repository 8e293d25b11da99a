package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache stores reputation verdicts in a shared MySQL table
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(ctx context.Context, dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reputation_cache (
			url VARCHAR(2048) NOT NULL,
			url_hash BINARY(32) AS (UNHEX(SHA2(url, 256))) STORED PRIMARY KEY,
			malicious INT NOT NULL,
			suspicious INT NOT NULL,
			checked_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	queries := sqlQueries{
		get: `SELECT url, malicious, suspicious, checked_at, expires_at FROM reputation_cache
			WHERE url_hash = UNHEX(SHA2(?, 256))`,
		upsert: `
			INSERT INTO reputation_cache (url, malicious, suspicious, checked_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				malicious = VALUES(malicious),
				suspicious = VALUES(suspicious),
				checked_at = VALUES(checked_at),
				expires_at = VALUES(expires_at)`,
		delete:  `DELETE FROM reputation_cache WHERE url_hash = UNHEX(SHA2(?, 256))`,
		cleanup: `DELETE FROM reputation_cache WHERE expires_at <= ?`,
	}

	return &MySQLCache{newSQLCache("mysql", db, queries, logger, cleanupFreq)}, nil
}
