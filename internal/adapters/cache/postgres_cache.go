package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// PostgresCache stores reputation verdicts in PostgreSQL through a pgx pool
type PostgresCache struct {
	db          *pgxpool.Pool
	logger      *zap.Logger
	cleanupFreq time.Duration
	now         func() time.Time
	stopCh      chan struct{}
}

// NewPostgresCache connects to connStr and creates the cache table
func NewPostgresCache(ctx context.Context, connStr string, logger *zap.Logger, cleanupFreq time.Duration) (*PostgresCache, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	_, err = db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reputation_cache (
			url TEXT PRIMARY KEY,
			malicious INTEGER NOT NULL,
			suspicious INTEGER NOT NULL,
			checked_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reputation_expires_at ON reputation_cache (expires_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if cleanupFreq <= 0 {
		cleanupFreq = time.Hour
	}
	c := &PostgresCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
	go c.startCleanupTask()

	return c, nil
}

// Get retrieves the cached verdict for a URL
func (c *PostgresCache) Get(ctx context.Context, url string) (*core.ReputationEntry, error) {
	var entry core.ReputationEntry
	err := c.db.QueryRow(ctx,
		`SELECT url, malicious, suspicious, checked_at, expires_at FROM reputation_cache WHERE url = $1`,
		url,
	).Scan(&entry.URL, &entry.Malicious, &entry.Suspicious, &entry.CheckedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores a verdict
func (c *PostgresCache) Set(ctx context.Context, entry *core.ReputationEntry) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO reputation_cache (url, malicious, suspicious, checked_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET
		   malicious = EXCLUDED.malicious, suspicious = EXCLUDED.suspicious,
		   checked_at = EXCLUDED.checked_at, expires_at = EXCLUDED.expires_at`,
		entry.URL, entry.Malicious, entry.Suspicious, entry.CheckedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *PostgresCache) Delete(ctx context.Context, url string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM reputation_cache WHERE url = $1`, url); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *PostgresCache) Cleanup(ctx context.Context) error {
	tag, err := c.db.Exec(ctx, `DELETE FROM reputation_cache WHERE expires_at <= $1`, c.now())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}
	c.logger.Debug("Cleaned up expired cache entries",
		zap.String("backend", "postgres"),
		zap.Int64("expired_count", tag.RowsAffected()))
	return nil
}

func (c *PostgresCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.String("backend", "postgres"), zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the cleanup task and closes the pool
func (c *PostgresCache) Stop() {
	close(c.stopCh)
	c.db.Close()
}
