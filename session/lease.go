package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeaseTTL   = time.Minute
	leaseRetry        = 50 * time.Millisecond
	leaseReleaseLimit = 2 * time.Second
)

// releaseLeaseScript deletes the lease only while it still carries our token,
// so an expired lease taken over by another replica is left alone.
// KEYS[1] = lease key, ARGV[1] = token
var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ Mutex = (*RedisLease)(nil)

// RedisLease serializes a session across processes sharing one Redis. Waiters
// in the same process queue on a local Locker first and only poll Redis once
// they are next in line. The TTL must outlast a whole turn.
type RedisLease struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	local     *Locker
}

func NewRedisLease(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &RedisLease{client: client, namespace: namespace, ttl: ttl, local: NewLocker()}
}

func (l *RedisLease) key(id string) string {
	return "lease:" + l.namespace + ":" + id
}

func (l *RedisLease) Acquire(ctx context.Context, id string) (func(), error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	unlockLocal := l.local.Lock(id)
	key := l.key(id)
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-time.After(leaseRetry):
		}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), leaseReleaseLimit)
		defer cancel()
		if err := releaseLeaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			slog.Warn("release session lease", "key", key, "error", err)
		}
		unlockLocal()
	}, nil
}
