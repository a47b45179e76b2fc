package literature

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

const DefaultCacheTTL = 24 * time.Hour

// Cache stores merged search results per query. Misses and backend errors
// look the same to callers.
type Cache interface {
	Get(ctx context.Context, key string) ([]Paper, bool)
	Set(ctx context.Context, key string, papers []Paper)
}

func cacheKey(query string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", NormalizeTitle(query), limit)))
	return "lit:" + hex.EncodeToString(sum[:12])
}

type memoryEntry struct {
	papers  []Paper
	expires time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]Paper, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]Paper(nil), e.papers...), true
}

func (c *MemoryCache) Set(_ context.Context, key string, papers []Paper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{papers: append([]Paper(nil), papers...), expires: c.now().Add(c.ttl)}
}

type RedisCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCacheFromEnv connects to REDIS_ADDR. It returns (nil, nil) when
// Redis is not configured.
func NewRedisCacheFromEnv(log *logger.Logger, ttl time.Duration) (*RedisCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCache(log, rdb, ttl), nil
}

func NewRedisCache(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{log: log.With("component", "LiteratureRedisCache"), rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Paper, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("literature cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var papers []Paper
	if err := json.Unmarshal(raw, &papers); err != nil {
		c.log.Warn("bad literature cache payload", "key", key, "error", err)
		return nil, false
	}
	return papers, true
}

func (c *RedisCache) Set(ctx context.Context, key string, papers []Paper) {
	raw, err := json.Marshal(papers)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("literature cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
