package geocode

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/whattodo/internal/cache"
	"github.com/geocoder89/whattodo/internal/redisclient"
)

// memoryCacheLimit bounds the per-process cache; distinct place strings are user input.
const memoryCacheLimit = 10_000

// MemoryCache keeps lookups in process, for single replicas or when Redis is not configured.
type MemoryCache struct {
	c *cache.Cache[Result]
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New[Result](ttl).WithLimit(memoryCacheLimit)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Result, bool) {
	return m.c.Get(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, r Result) {
	m.c.Set(key, r)
}

// RedisCache shares lookups between replicas. Redis errors degrade to a miss.
type RedisCache struct {
	client *redisclient.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisCache(log *slog.Logger, client *redisclient.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Result, bool) {
	var res Result
	found, err := r.client.GetJSON(ctx, key, &res)
	if err != nil {
		r.log.WarnContext(ctx, "geocode cache read failed", slog.String("key", key), slog.String("err", err.Error()))
		return Result{}, false
	}
	return res, found
}

func (r *RedisCache) Set(ctx context.Context, key string, res Result) {
	if err := r.client.SetJSON(ctx, key, res, r.ttl); err != nil {
		r.log.WarnContext(ctx, "geocode cache write failed", slog.String("key", key), slog.String("err", err.Error()))
	}
}
