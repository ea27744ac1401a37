package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"bidhub/config"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// releaseLockLua deletes the key only while it still holds our token.
var releaseLockLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockerParams holds dependencies for the IssueLocker, injected by Fx.
type LockerParams struct {
	fx.In

	Redis  redis.UniversalClient `optional:"true"`
	Config *config.Config
}

// NewIssueLocker returns a Redis lock when Redis is available, otherwise a
// process-local one.
func NewIssueLocker(params LockerParams) service.IssueLocker {
	if params.Redis == nil {
		return NewMemoryLocker()
	}

	return NewRedisLocker(params.Redis, params.Config.OTP.IssueLockTTL)
}

// redisLocker holds keys with SET NX PX so a crashed holder frees the lock after ttl.
type redisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed IssueLocker.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) service.IssueLocker {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}

	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	redisKey := keyPrefix + "lock:" + key
	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquire issuance lock")
	}
	if !ok {
		return nil, service.ErrLockNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseLockLua.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return errors.Wrap(err, "release issuance lock")
		}

		return nil
	}, nil
}

// memoryLocker serializes within one process.
type memoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates a process-local IssueLocker.
func NewMemoryLocker() service.IssueLocker {
	return &memoryLocker{held: make(map[string]struct{})}
}

func (l *memoryLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, service.ErrLockNotAcquired
	}
	l.held[key] = struct{}{}

	var once sync.Once

	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})

		return nil
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate lock token")
	}

	return hex.EncodeToString(buf), nil
}
