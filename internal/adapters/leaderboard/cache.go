package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/okian/starbot/internal/domain/model"
	"github.com/okian/starbot/pkg/logger"
	"github.com/okian/starbot/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL  = 15 * time.Minute
	defaultCacheKey  = "starbot:leaderboard"
	redisPingTimeout = 5 * time.Second
)

// Cache stores raw payloads with a TTL. Get returns ErrCacheMiss when the
// key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource serves payloads from cache while fresh and refreshes from
// inner otherwise. The upstream site asks clients not to poll more than
// every 15 minutes.
type CachedSource struct {
	inner  Payloader
	cache  Cache
	key    string
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedSource wraps inner with cache.
func NewCachedSource(inner Payloader, cache Cache, log logger.Logger, opts ...CacheOption) *CachedSource {
	s := &CachedSource{
		inner:  inner,
		cache:  cache,
		key:    defaultCacheKey,
		ttl:    defaultCacheTTL,
		logger: log,
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Payload returns the cached payload or fetches and stores a fresh one.
// Cache failures degrade to an uncached fetch.
func (s *CachedSource) Payload(ctx context.Context) ([]byte, error) {
	body, err := s.cache.Get(ctx, s.key)
	switch {
	case err == nil:
		if _, perr := model.ParseSnapshot(body); perr == nil {
			metrics.RecordCacheLookup("hit")
			return body, nil
		}
		metrics.RecordCacheLookup("error")
		s.logger.Warn(ctx, "discarding undecodable cached payload", logger.String("key", s.key))
	case errors.Is(err, ErrCacheMiss):
		metrics.RecordCacheLookup("miss")
	default:
		metrics.RecordCacheLookup("error")
		s.logger.Warn(ctx, "cache lookup failed", logger.String("key", s.key), logger.Error(err))
	}

	body, err = s.inner.Payload(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := model.ParseSnapshot(body); err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, s.key, body, s.ttl); err != nil {
		s.logger.Warn(ctx, "cache store failed", logger.String("key", s.key), logger.Error(err))
	}
	return body, nil
}

// Fetch decodes the payload chosen by Payload.
func (s *CachedSource) Fetch(ctx context.Context) (model.Snapshot, error) {
	return decode(ctx, s)
}

// FileCache keeps a single payload on disk and uses the file modification
// time for expiry. It ignores the key.
type FileCache struct {
	path string
	now  func() time.Time
}

// NewFileCache creates a cache stored at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path, now: time.Now}
}

// Get returns the file contents if it is younger than the TTL recorded at
// Set time.
func (c *FileCache) Get(ctx context.Context, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("stat cache file: %w", err)
	}
	// The expiry is stored as the file's modification time.
	if !c.now().Before(info.ModTime()) {
		return nil, ErrCacheMiss
	}
	body, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return body, nil
}

// Set writes value and stamps the file with its expiry time.
func (c *FileCache) Set(ctx context.Context, _ string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, value); err != nil {
		return err
	}
	expires := c.now().Add(ttl)
	if err := os.Chtimes(c.path, expires, expires); err != nil {
		return fmt.Errorf("stamp cache file: %w", err)
	}
	return nil
}

// RedisCache stores payloads in Redis so several instances share one
// upstream fetch.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a payload by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return body, nil
}

// Set stores a payload with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
