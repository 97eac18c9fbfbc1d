package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GuardStore tracks failed sign-ins and revoked tokens.
type GuardStore interface {
	// FailedAttempts returns the failure count for identifier and how long until it resets.
	FailedAttempts(ctx context.Context, identifier string) (int, time.Duration, error)
	// RecordFailure increments the count and restarts its window.
	RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error)
	ClearFailures(ctx context.Context, identifier string) error

	// RevokeToken marks jti revoked until ttl elapses. It reports false when
	// the jti was already revoked, which makes refresh rotation single-use.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUserTokens invalidates every token of userID issued before at.
	RevokeUserTokens(ctx context.Context, userID uuid.UUID, at time.Time, ttl time.Duration) error
	// TokensRevokedBefore returns the cutoff set by RevokeUserTokens, if any.
	TokensRevokedBefore(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
}

type expiring[T any] struct {
	value   T
	expires time.Time
}

// MemoryGuard is an in-process GuardStore for tests and single-instance
// deployments without Redis.
type MemoryGuard struct {
	mu       sync.Mutex
	now      func() time.Time
	failures map[string]expiring[int]
	revoked  map[string]time.Time
	cutoffs  map[uuid.UUID]expiring[time.Time]
}

// NewMemoryGuard creates a MemoryGuard. A nil clock means time.Now.
func NewMemoryGuard(now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{
		now:      now,
		failures: make(map[string]expiring[int]),
		revoked:  make(map[string]time.Time),
		cutoffs:  make(map[uuid.UUID]expiring[time.Time]),
	}
}

func (g *MemoryGuard) FailedAttempts(_ context.Context, identifier string) (int, time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.failures[identifier]
	now := g.now()
	if !ok || !now.Before(f.expires) {
		delete(g.failures, identifier)
		return 0, 0, nil
	}
	return f.value, f.expires.Sub(now), nil
}

func (g *MemoryGuard) RecordFailure(_ context.Context, identifier string, window time.Duration) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	f := g.failures[identifier]
	if !now.Before(f.expires) {
		f.value = 0
	}
	f.value++
	f.expires = now.Add(window)
	g.failures[identifier] = f
	return f.value, nil
}

func (g *MemoryGuard) ClearFailures(_ context.Context, identifier string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, identifier)
	return nil
}

func (g *MemoryGuard) RevokeToken(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if exp, ok := g.revoked[jti]; ok && now.Before(exp) {
		return false, nil
	}
	g.revoked[jti] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) IsRevoked(_ context.Context, jti string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.revoked[jti]
	if !ok {
		return false, nil
	}
	if !g.now().Before(exp) {
		delete(g.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (g *MemoryGuard) RevokeUserTokens(_ context.Context, userID uuid.UUID, at time.Time, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cutoffs[userID] = expiring[time.Time]{value: at, expires: g.now().Add(ttl)}
	return nil
}

func (g *MemoryGuard) TokensRevokedBefore(_ context.Context, userID uuid.UUID) (time.Time, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.cutoffs[userID]
	if !ok || !g.now().Before(c.expires) {
		delete(g.cutoffs, userID)
		return time.Time{}, false, nil
	}
	return c.value, true, nil
}

var _ GuardStore = (*MemoryGuard)(nil)
