// Package cache provides the expiry-gated result cache for narrative analyses and
// a Redis-backed JSON cache for raw repository listings.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/logger"
	"go.uber.org/zap"
)

// DefaultTTL is the lifetime of a narrative-analysis result.
const DefaultTTL = 6 * time.Hour

// Entry is one stored payload with its last write time.
type Entry struct {
	Key       string
	Payload   []byte
	UpdatedAt time.Time
}

// Store persists cache entries. GetEntry returns nil, nil for a missing key.
type Store interface {
	GetEntry(ctx context.Context, key string) (*Entry, error)
	UpsertEntry(ctx context.Context, key string, payload []byte, updatedAt time.Time) error
	DeleteEntry(ctx context.Context, key string) error
	DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResultCache is a key-value cache where entries older than the TTL are treated as absent.
// There is no size bound and no eviction beyond expiry.
type ResultCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

// Option customizes a ResultCache.
type Option func(*ResultCache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// NewResultCache creates a cache over store. A non-positive ttl selects DefaultTTL.
func NewResultCache(store Store, ttl time.Duration, log *zap.Logger, opts ...Option) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ResultCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.Named(log, "cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key prefixes for per-username analysis entries.
const (
	AnalysisPrefix = "analysis:"
	InsightsPrefix = "insights:"
)

// AnalysisKey is the cache key of a username's narrative report.
func AnalysisKey(username string) string {
	return AnalysisPrefix + NormalizeKey(username)
}

// InsightsKey is the cache key of a username's recruiter insights.
func InsightsKey(username string) string {
	return InsightsPrefix + NormalizeKey(username)
}

// NormalizeKey lowercases and trims a key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// TTL returns the configured time-to-live.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Get decodes the cached payload into out and reports a hit. An expired entry is
// deleted and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, key string, out any) (bool, error) {
	key = NormalizeKey(key)
	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if entry == nil {
		return false, nil
	}

	if c.now().Sub(entry.UpdatedAt) >= c.ttl {
		if err := c.store.DeleteEntry(ctx, key); err != nil {
			c.log.Warn("failed to delete expired entry", zap.String("key", key), zap.Error(err))
		}
		return false, nil
	}

	if err := json.Unmarshal(entry.Payload, out); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Set overwrites the entry for key and stamps the current time.
func (c *ResultCache) Set(ctx context.Context, key string, value any) error {
	key = NormalizeKey(key)
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := c.store.UpsertEntry(ctx, key, payload, c.now()); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	if err := c.store.DeleteEntry(ctx, key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// ClearExpired removes every entry older than the TTL and returns how many were removed.
func (c *ResultCache) ClearExpired(ctx context.Context) (int64, error) {
	n, err := c.store.DeleteEntriesBefore(ctx, c.now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired entries: %w", err)
	}
	c.log.Info("cleared expired entries", zap.Int64("count", n))
	return n, nil
}

// ClearUser removes every analysis entry held for username.
func (c *ResultCache) ClearUser(ctx context.Context, username string) error {
	for _, key := range []string{AnalysisKey(username), InsightsKey(username)} {
		if err := c.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
