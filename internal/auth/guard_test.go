package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type guardHarness struct {
	store   GuardStore
	advance func(time.Duration)
}

func guardImplementations(t *testing.T) map[string]guardHarness {
	clock := newFakeClock()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]guardHarness{
		"memory": {store: NewMemoryGuard(clock.Now), advance: clock.Advance},
		"redis":  {store: NewRedisGuard(client), advance: mr.FastForward},
	}
}

func TestGuard_FailureWindow(t *testing.T) {
	for name, h := range guardImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, _, err := h.store.FailedAttempts(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			for i := 1; i <= 3; i++ {
				n, err = h.store.RecordFailure(ctx, "a@example.com", 30*time.Minute)
				require.NoError(t, err)
				assert.Equal(t, i, n)
			}

			n, ttl, err := h.store.FailedAttempts(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 1)

			h.advance(31 * time.Minute)
			n, _, err = h.store.FailedAttempts(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestGuard_ClearFailures(t *testing.T) {
	for name, h := range guardImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := h.store.RecordFailure(ctx, "b@example.com", time.Minute)
			require.NoError(t, err)
			require.NoError(t, h.store.ClearFailures(ctx, "b@example.com"))

			n, _, err := h.store.FailedAttempts(ctx, "b@example.com")
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestGuard_RevokeTokenIsSingleUse(t *testing.T) {
	for name, h := range guardImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			jti := uuid.NewString()

			revoked, err := h.store.IsRevoked(ctx, jti)
			require.NoError(t, err)
			assert.False(t, revoked)

			first, err := h.store.RevokeToken(ctx, jti, time.Hour)
			require.NoError(t, err)
			assert.True(t, first)

			first, err = h.store.RevokeToken(ctx, jti, time.Hour)
			require.NoError(t, err)
			assert.False(t, first)

			revoked, err = h.store.IsRevoked(ctx, jti)
			require.NoError(t, err)
			assert.True(t, revoked)

			h.advance(2 * time.Hour)
			revoked, err = h.store.IsRevoked(ctx, jti)
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestGuard_RevokeUserTokens(t *testing.T) {
	for name, h := range guardImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()

			_, ok, err := h.store.TokensRevokedBefore(ctx, userID)
			require.NoError(t, err)
			assert.False(t, ok)

			at := time.Date(2025, 3, 1, 12, 0, 0, 250_000_000, time.UTC)
			require.NoError(t, h.store.RevokeUserTokens(ctx, userID, at, time.Hour))

			cutoff, ok, err := h.store.TokensRevokedBefore(ctx, userID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, at.Equal(cutoff))

			h.advance(2 * time.Hour)
			_, ok, err = h.store.TokensRevokedBefore(ctx, userID)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
