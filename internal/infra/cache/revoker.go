package cache

import (
	"context"
	"time"

	"bidhub/internal/domain/service"
	"bidhub/internal/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// RevokerParams holds dependencies for the SessionRevoker, injected by Fx.
type RevokerParams struct {
	fx.In

	Redis redis.UniversalClient `optional:"true"`
	Clock service.Clock
}

// NewSessionRevoker returns a Redis denylist, or a no-op one when Redis is
// not configured (sessions then live until their natural expiry).
func NewSessionRevoker(params RevokerParams) service.SessionRevoker {
	if params.Redis == nil {
		return noopRevoker{}
	}

	return NewRedisRevoker(params.Redis, params.Clock)
}

// redisRevoker stores revoked token ids until the token would have expired anyway.
type redisRevoker struct {
	client redis.UniversalClient
	clock  service.Clock
}

// NewRedisRevoker creates a Redis-backed SessionRevoker.
func NewRedisRevoker(client redis.UniversalClient, clock service.Clock) service.SessionRevoker {
	return &redisRevoker{client: client, clock: clock}
}

func revokedKey(tokenID string) string {
	return keyPrefix + "revoked:" + tokenID
}

func (r *redisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "revoke session")
	}

	return nil
}

func (r *redisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check session revocation")
	}

	return n > 0, nil
}

type noopRevoker struct{}

func (noopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (noopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

var _ service.SessionRevoker = noopRevoker{}
