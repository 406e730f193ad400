package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrEmptySessionID = errors.New("session id is empty")

// Store loads and saves conversation state by session id. A missing session is
// created empty.
type Store interface {
	GetOrCreate(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, state *State) error
	Delete(ctx context.Context, id string) error
}

var _ Store = (*CacheStore)(nil)

// CacheStore keeps states in a Cache under "<namespace>:<id>" keys. States are
// copied on the way in and out so callers never share a pointer with the cache.
type CacheStore struct {
	core      Cache[*State]
	namespace string
	now       func() time.Time
}

func NewCacheStore(core Cache[*State], namespace string) *CacheStore {
	return &CacheStore{core: core, namespace: namespace, now: time.Now}
}

func NewMemoryStore(namespace string, ttl time.Duration) (*CacheStore, *MemoryCache[*State]) {
	cache := NewMemoryCache[*State](ttl)
	return NewCacheStore(cache, namespace), cache
}

// NewRedisStore shares sessions between replicas. Pair it with a RedisLease so
// turns of one session stay serialized across processes.
func NewRedisStore(client redis.UniversalClient, namespace string, ttl time.Duration) *CacheStore {
	return NewCacheStore(NewRedisCache[*State](client, ttl), namespace)
}

func (c *CacheStore) key(id string) (string, error) {
	if id == "" {
		return "", ErrEmptySessionID
	}
	return c.namespace + ":" + id, nil
}

func (c *CacheStore) GetOrCreate(ctx context.Context, id string) (*State, error) {
	key, err := c.key(id)
	if err != nil {
		return nil, err
	}
	state, ok, err := c.core.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok || state == nil {
		return &State{UpdatedAt: c.now()}, nil
	}
	return state.Clone(), nil
}

func (c *CacheStore) Save(ctx context.Context, id string, state *State) error {
	key, err := c.key(id)
	if err != nil {
		return err
	}
	saved := state.Clone()
	saved.UpdatedAt = c.now()
	if err := c.core.Set(ctx, key, saved); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *CacheStore) Delete(ctx context.Context, id string) error {
	key, err := c.key(id)
	if err != nil {
		return err
	}
	if err := c.core.Del(ctx, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
