package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/calslot/internal/logging"
)

// Cache stores encoded event lists for a limited time.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache is a Cache shared between instances through Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. Keys are namespaced with prefix.
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "calslot"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// NewRedisCacheFromURL connects to the Redis server at url
// (redis://[:password@]host:port/db) and verifies the connection.
func NewRedisCacheFromURL(ctx context.Context, url, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCache(rdb, prefix), nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// Ping checks the connection to the Redis server.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CachedSource serves repeated ListEvents calls for the same range from a
// Cache. Cache failures are logged and the underlying source is used.
type CachedSource struct {
	src    Source
	cache  Cache
	ttl    time.Duration
	scope  string
	logger logging.Logger
}

var _ Source = (*CachedSource)(nil)

// NewCachedSource wraps src. scope distinguishes calendars sharing a cache,
// typically the account and calendar ID.
func NewCachedSource(src Source, cache Cache, ttl time.Duration, scope string, logger logging.Logger) *CachedSource {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &CachedSource{src: src, cache: cache, ttl: ttl, scope: scope, logger: logger}
}

func (s *CachedSource) Name() string { return s.src.Name() }

func (s *CachedSource) Location() *time.Location { return s.src.Location() }

// Unwrap returns the underlying source.
func (s *CachedSource) Unwrap() Source { return s.src }

func (s *CachedSource) cacheKey(timeMin, timeMax time.Time) string {
	return fmt.Sprintf("events:%s:%s:%d:%d", s.src.Name(), s.scope, timeMin.Unix(), timeMax.Unix())
}

func (s *CachedSource) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]EventSummary, error) {
	key := s.cacheKey(timeMin, timeMax)

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("event cache read failed", logging.KeyError, err.Error())
	} else if ok {
		var events []EventSummary
		if err := json.Unmarshal(data, &events); err == nil {
			return inLocation(events, s.src.Location()), nil
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	events, err := s.src.ListEvents(ctx, timeMin, timeMax)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("event cache write failed", logging.KeyError, err.Error())
		}
	}
	return events, nil
}

// inLocation restores the reference location lost in JSON encoding.
func inLocation(events []EventSummary, loc *time.Location) []EventSummary {
	for i := range events {
		events[i].Start = events[i].Start.In(loc)
		events[i].End = events[i].End.In(loc)
	}
	return events
}
