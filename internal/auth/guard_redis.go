package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	failedKeyPrefix  = "auth:failed:"
	revokedKeyPrefix = "auth:revoked:"
	cutoffKeyPrefix  = "auth:revoked-before:"
)

// RedisGuard is a GuardStore shared by every API instance.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard wraps a connected client.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) FailedAttempts(ctx context.Context, identifier string) (int, time.Duration, error) {
	key := failedKeyPrefix + identifier
	n, err := g.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to read login attempts: %w", err)
	}
	ttl, err := g.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read lockout ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return n, ttl, nil
}

func (g *RedisGuard) RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error) {
	key := failedKeyPrefix + identifier
	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (g *RedisGuard) ClearFailures(ctx context.Context, identifier string) error {
	if err := g.client.Del(ctx, failedKeyPrefix+identifier).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

func (g *RedisGuard) RevokeToken(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	first, err := g.client.SetNX(ctx, revokedKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	return first, nil
}

func (g *RedisGuard) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := g.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func (g *RedisGuard) RevokeUserTokens(ctx context.Context, userID uuid.UUID, at time.Time, ttl time.Duration) error {
	err := g.client.Set(ctx, cutoffKeyPrefix+userID.String(), at.UnixMicro(), ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

func (g *RedisGuard) TokensRevokedBefore(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	raw, err := g.client.Get(ctx, cutoffKeyPrefix+userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read token cutoff: %w", err)
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid token cutoff %q: %w", raw, err)
	}
	return time.UnixMicro(micros).UTC(), true, nil
}

var _ GuardStore = (*RedisGuard)(nil)
