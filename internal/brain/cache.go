package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/adbrain/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

// StateCache stores the last BrainState per org. Returned states are shared and must
// not be mutated.
type StateCache interface {
	Get(ctx context.Context, orgID string) (*models.BrainState, error)
	Set(ctx context.Context, orgID string, st *models.BrainState, ttl time.Duration) error
	Delete(ctx context.Context, orgID string) error
}

type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to url and pings it before returning.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisCacheFromClient(client), nil
}

func NewRedisCacheFromClient(c *redis.Client) *RedisCache {
	return &RedisCache{client: c, prefix: "adbrain:state:"}
}

func (c *RedisCache) key(orgID string) string { return c.prefix + orgID }

func (c *RedisCache) Get(ctx context.Context, orgID string) (*models.BrainState, error) {
	b, err := c.client.Get(ctx, c.key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var st models.BrainState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode cached state: %w", err)
	}
	return &st, nil
}

func (c *RedisCache) Set(ctx context.Context, orgID string, st *models.BrainState, ttl time.Duration) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(orgID), b, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, orgID string) error {
	return c.client.Del(ctx, c.key(orgID)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.client.Close() }

type localEntry struct {
	st      *models.BrainState
	expires time.Time
}

// LocalCache is the in-process fallback when no Redis is configured.
type LocalCache struct {
	mu    sync.RWMutex
	items map[string]localEntry
	clock Clock
}

func NewLocalCache(clock Clock) *LocalCache {
	if clock == nil {
		clock = SystemClock()
	}
	return &LocalCache{items: map[string]localEntry{}, clock: clock}
}

func (c *LocalCache) Get(_ context.Context, orgID string) (*models.BrainState, error) {
	c.mu.RLock()
	e, ok := c.items[orgID]
	c.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !c.clock.Now().Before(e.expires)) {
		return nil, ErrCacheMiss
	}
	return e.st, nil
}

func (c *LocalCache) Set(_ context.Context, orgID string, st *models.BrainState, ttl time.Duration) error {
	e := localEntry{st: st}
	if ttl > 0 {
		e.expires = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[orgID] = e
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(_ context.Context, orgID string) error {
	c.mu.Lock()
	delete(c.items, orgID)
	c.mu.Unlock()
	return nil
}
