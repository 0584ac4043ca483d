package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sonicvision/internal/shared"
)

// MediaCache stores raw provider payloads keyed by provider and normalized query.
//
// Expired rows are ignored on read and removed by [MediaCache.Prune].
type MediaCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewMediaCache creates a [MediaCache] whose entries live for ttl.
func NewMediaCache(db *sql.DB, ttl time.Duration) *MediaCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MediaCache{db: db, ttl: ttl, now: time.Now}
}

// Get returns the cached payload for provider and key when present and not expired.
func (c *MediaCache) Get(ctx context.Context, provider, key string) ([]byte, bool, error) {
	query := `
		SELECT payload FROM media_cache
		WHERE provider = ? AND cache_key = ? AND expires_at > ?
	`

	var payload []byte
	err := c.db.QueryRowContext(ctx, query, provider, shared.NormalizeQuery(key), c.now().UTC()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query media cache: %w", err)
	}
	return payload, true, nil
}

// Put stores payload, replacing any previous entry and restarting its TTL.
func (c *MediaCache) Put(ctx context.Context, provider, key string, payload []byte) error {
	now := c.now().UTC()
	query := `
		INSERT INTO media_cache (id, provider, cache_key, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, cache_key) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	_, err := c.db.ExecContext(ctx, query, shared.GenerateID(), provider, shared.NormalizeQuery(key), payload, now, now.Add(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to store media cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired rows and reports how many were removed.
func (c *MediaCache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM media_cache WHERE expires_at <= ?`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune media cache: %w", err)
	}
	return res.RowsAffected()
}
