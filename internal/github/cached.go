package github

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
)

// DefaultListingTTL is how long a raw repository listing stays cached.
const DefaultListingTTL = 45 * time.Minute

// RepositoryLister lists a user's repositories.
type RepositoryLister interface {
	ListRepositories(ctx context.Context, username string) ([]types.Repository, error)
}

// ProfileReader reads account-level data that is not part of a repository listing.
// CommitCount returns 0 on any failure.
type ProfileReader interface {
	GetUser(ctx context.Context, username string) (*types.GitHubUser, error)
	CommitCount(ctx context.Context, owner, repo string) int
}

// ListingCache is a JSON cache with per-key TTL.
type ListingCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedLister wraps a RepositoryLister with a short-lived listing cache.
// Cache failures are logged and fall through to the API.
type CachedLister struct {
	next  RepositoryLister
	cache ListingCache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedLister creates a CachedLister. A non-positive ttl selects DefaultListingTTL.
func NewCachedLister(next RepositoryLister, cache ListingCache, ttl time.Duration, log *zap.Logger) *CachedLister {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &CachedLister{next: next, cache: cache, ttl: ttl, log: logger.Named(log, "github-cache")}
}

func listingKey(username string) string {
	return "github:repos:" + strings.ToLower(strings.TrimSpace(username))
}

// ListRepositories returns the cached listing when present, else fetches and caches it.
func (l *CachedLister) ListRepositories(ctx context.Context, username string) ([]types.Repository, error) {
	key := listingKey(username)

	var cached []types.Repository
	hit, err := l.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		l.log.Warn("listing cache read failed", logger.Username(username), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	repos, err := l.next.ListRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := l.cache.SetJSON(ctx, key, repos, l.ttl); err != nil {
		l.log.Warn("listing cache write failed", logger.Username(username), zap.Error(err))
	}
	return repos, nil
}

// Invalidate drops the cached listing for username.
func (l *CachedLister) Invalidate(ctx context.Context, username string) error {
	return l.cache.Delete(ctx, listingKey(username))
}
