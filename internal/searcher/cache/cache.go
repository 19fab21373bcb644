// Package cache memoizes search results by canonical query string. Results
// live in a Backend, normally Redis; concurrent misses for the same key
// share one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/resilience"
)

const keyPrefix = "search:"

// Backend stores encoded results. *redis.Client satisfies it.
type Backend interface {
	Lookup(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend   Backend
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

type Option func(*QueryCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

// WithBreaker replaces the default circuit breaker guarding the backend.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *QueryCache) { c.breaker = cb }
}

// WithNamespace separates the keys of different indexes sharing a backend.
func WithNamespace(ns string) Option {
	return func(c *QueryCache) { c.namespace = ns }
}

func New(backend Backend, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *QueryCache) Get(ctx context.Context, q query.Query, limit int) (*executor.SearchResult, bool) {
	key := c.buildKey(q, limit)
	var data []byte
	var ok bool
	err := c.breaker.Execute(func() error {
		var err error
		data, ok, err = c.backend.Lookup(ctx, key)
		return err
	})
	if err != nil {
		c.logBackendError("cache get failed", key, err)
		ok = false
	}
	if !ok {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit()
	c.logger.Debug("cache hit", "query", q.String(), "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, q query.Query, limit int, result *executor.SearchResult) {
	key := c.buildKey(q, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Store(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logBackendError("cache set failed", key, err)
	}
}

// GetOrCompute returns the cached result for q or computes and stores it.
// Queries carrying custom scoring plug-ins are never cached. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q query.Query,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if !query.Cacheable(q) {
		result, err := computeFn()
		return result, false, err
	}
	start := time.Now()
	if result, ok := c.Get(ctx, q, limit); ok {
		c.observeHit(result, start)
		return result, true, nil
	}
	key := c.buildKey(q, limit)
	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		c.logger.Debug("cache computation shared", "key", key)
	}
	return val.(*executor.SearchResult), false, nil
}

// Search runs q through ex unless a cached result exists.
func (c *QueryCache) Search(ctx context.Context, ex *executor.Executor, q query.Query, limit int) (*executor.SearchResult, bool, error) {
	return c.GetOrCompute(ctx, q, limit, func() (*executor.SearchResult, error) {
		return ex.Search(ctx, q, limit)
	})
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := c.prefix() + "*"
	deleted, err := c.backend.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// logBackendError keeps refusals of an open breaker out of the error log.
func (c *QueryCache) logBackendError(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}

func (c *QueryCache) observeHit(result *executor.SearchResult, start time.Time) {
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	c.metrics.SearchObserved(resultType, "hit", time.Since(start).Seconds(), len(result.Results))
}

func (c *QueryCache) prefix() string {
	if c.namespace == "" {
		return keyPrefix
	}
	return keyPrefix + c.namespace + ":"
}

// buildKey hashes the canonical form of q, so structurally equal queries
// share an entry.
func (c *QueryCache) buildKey(q query.Query, limit int) string {
	raw := fmt.Sprintf("%s|limit=%d", q.String(), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", c.prefix(), hash[:16])
}
