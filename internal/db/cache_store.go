package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/portreviewer/internal/cache"
)

// GetEntry returns the cached payload for key, or nil if absent.
func (db *DB) GetEntry(ctx context.Context, key string) (*cache.Entry, error) {
	var e cache.Entry
	err := db.pool.QueryRow(ctx,
		`SELECT key, payload, updated_at FROM analysis_cache WHERE key = $1`, key,
	).Scan(&e.Key, &e.Payload, &e.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &e, nil
}

// UpsertEntry writes payload under key, replacing any previous value.
func (db *DB) UpsertEntry(ctx context.Context, key string, payload []byte, updatedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO analysis_cache (key, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		key, payload, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// DeleteEntry removes key. Deleting a missing key is not an error.
func (db *DB) DeleteEntry(ctx context.Context, key string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM analysis_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteEntriesBefore removes entries last written before cutoff and returns how many went.
func (db *DB) DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analysis_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ cache.Store = (*DB)(nil)
