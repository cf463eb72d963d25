// Package cache keeps search results in Redis. Identical concurrent queries
// share one execution through singleflight, and any document change flushes
// every cached result.
//
// Keys carry a generation number that Invalidate bumps. A search reads the
// generation before it computes, so a result computed against data older
// than the latest invalidation is stored under a retired generation and is
// never served, even when the invalidation arrived late over Kafka.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "search:"
	// generationKey sits outside keyPrefix so flushes leave it alone.
	generationKey = "search-generation"
)

// store is the part of pkg/redis the cache uses.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client  store
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over client. m may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return newCache(client, cfg, m)
}

func newCache(client store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// generation returns the current key generation; a missing counter is 0.
func (c *QueryCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, generationKey)
	if pkgredis.IsNilError(err) {
		return "0", nil
	}
	return gen, err
}

func (c *QueryCache) get(ctx context.Context, key string, q executor.Query) (*executor.SearchResult, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "query", q.Text, "key", key)
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q or computes and stores it.
// The boolean reports a cache hit. When the generation cannot be read the
// result is computed and not cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q executor.Query,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Error("cache generation read failed", "error", err)
		c.miss()
		result, err := computeFn()
		return result, false, err
	}
	key := versionedKey(gen, q)
	if result, ok := c.get(ctx, key, q); ok {
		c.hit()
		return result, true, nil
	}
	c.miss()
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate retires the current generation and then removes stored results.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	gen, err := c.client.Incr(ctx, generationKey)
	if err != nil {
		return fmt.Errorf("bumping cache generation: %w", err)
	}
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "generation", gen, "keys_deleted", deleted)
	return nil
}

// HandleEvent flushes the cache after any catalog change.
func (c *QueryCache) HandleEvent(ctx context.Context, e events.Event) error {
	return c.Invalidate(ctx)
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key. Queries that differ only in word order,
// case or filter order share a key, since ranking ignores all three.
func BuildKey(q executor.Query) string {
	words := strings.Fields(strings.ToLower(q.Text))
	sort.Strings(words)
	filters, _ := json.Marshal(q.Filters.Normalize())
	raw := fmt.Sprintf("%s|%s|limit=%d|offset=%d", strings.Join(words, " "), filters, q.Limit, q.Offset)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func versionedKey(gen string, q executor.Query) string {
	return keyPrefix + gen + ":" + strings.TrimPrefix(BuildKey(q), keyPrefix)
}
