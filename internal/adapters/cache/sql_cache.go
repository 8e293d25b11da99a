package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// sqlQueries holds the dialect specific statements of a database/sql backend.
// Timestamps are stored as unix seconds so every driver scans them the same way.
type sqlQueries struct {
	get     string
	upsert  string
	delete  string
	cleanup string
}

// sqlCache is the database/sql backed cache shared by the SQLite and MySQL backends
type sqlCache struct {
	name        string
	db          *sql.DB
	queries     sqlQueries
	logger      *zap.Logger
	cleanupFreq time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(name string, db *sql.DB, queries sqlQueries, logger *zap.Logger, cleanupFreq time.Duration) *sqlCache {
	if cleanupFreq <= 0 {
		cleanupFreq = time.Hour
	}
	c := &sqlCache{
		name:        name,
		db:          db,
		queries:     queries,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}

	go c.startCleanupTask()

	return c
}

// Get retrieves the cached verdict for a URL
func (c *sqlCache) Get(ctx context.Context, url string) (*core.ReputationEntry, error) {
	var entry core.ReputationEntry
	var checkedAt, expiresAt int64

	err := c.db.QueryRowContext(ctx, c.queries.get, url).
		Scan(&entry.URL, &entry.Malicious, &entry.Suspicious, &checkedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.CheckedAt = time.Unix(checkedAt, 0).UTC()
	entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if !c.now().Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return &entry, nil
}

// Set stores a verdict, replacing any previous one for the URL
func (c *sqlCache) Set(ctx context.Context, entry *core.ReputationEntry) error {
	_, err := c.db.ExecContext(ctx, c.queries.upsert,
		entry.URL, entry.Malicious, entry.Suspicious, entry.CheckedAt.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, url string) error {
	if _, err := c.db.ExecContext(ctx, c.queries.delete, url); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, c.queries.cleanup, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.String("backend", c.name), zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.String("backend", c.name),
			zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (c *sqlCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.String("backend", c.name), zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.String("backend", c.name), zap.Error(err))
		}
	})
}
