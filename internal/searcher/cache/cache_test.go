package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
	corpus "github.com/Adithya-Monish-Kumar-K/nested-search/internal/testutil"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/resilience"
)

var black = query.Term{Field: "color", Value: "black"}

func fixedResult() *executor.SearchResult {
	return &executor.SearchResult{
		SearchID:  "s-1",
		Query:     black.String(),
		TotalHits: 2,
		Results:   []ranker.ScoredDoc{{DocID: 3, Score: 2.5}, {DocID: 7, Score: 1}},
	}
}

func TestGetOrCompute_CachesByCanonicalQuery(t *testing.T) {
	c := New(NewLocal(), time.Minute)
	ctx := context.Background()
	var calls atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		return fixedResult(), nil
	}

	res, hit, err := c.GetOrCompute(ctx, black, 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, fixedResult(), res)

	res, hit, err = c.GetOrCompute(ctx, query.Term{Field: "color", Value: "black"}, 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, fixedResult(), res)
	assert.Equal(t, int32(1), calls.Load())

	_, hit, err = c.GetOrCompute(ctx, black, 5, compute)
	require.NoError(t, err)
	assert.False(t, hit, "limit is part of the key")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestGetOrCompute_SkipsCustomScoring(t *testing.T) {
	c := New(NewLocal(), time.Minute)
	var calls int
	compute := func() (*executor.SearchResult, error) {
		calls++
		return fixedResult(), nil
	}
	q := ranker.RandomizedCustomScoreQuery(black, 1)
	for i := 0; i < 3; i++ {
		_, hit, err := c.GetOrCompute(context.Background(), q, 10, compute)
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 3, calls)
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := New(NewLocal(), time.Minute)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), black, 10, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, hit, err := c.GetOrCompute(context.Background(), black, 10, func() (*executor.SearchResult, error) {
		return fixedResult(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrCompute_CoalescesConcurrentMisses(t *testing.T) {
	c := New(NewLocal(), time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return fixedResult(), nil
	}

	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			res, _, err := c.GetOrCompute(context.Background(), black, 10, compute)
			assert.NoError(t, err)
			assert.Equal(t, fixedResult(), res)
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestLocalExpiry(t *testing.T) {
	l := NewLocal()
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, l.Store(ctx, "search:a", []byte("x"), time.Second))
	require.NoError(t, l.Store(ctx, "search:b", []byte("y"), 0))
	v, ok, err := l.Lookup(ctx, "search:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), v)

	now = now.Add(time.Second)
	_, ok, _ = l.Lookup(ctx, "search:a")
	assert.False(t, ok)
	_, ok, _ = l.Lookup(ctx, "search:b")
	assert.True(t, ok)
}

func TestInvalidateRespectsNamespace(t *testing.T) {
	backend := NewLocal()
	a := New(backend, time.Minute, WithNamespace("a"))
	b := New(backend, time.Minute, WithNamespace("b"))
	ctx := context.Background()
	a.Set(ctx, black, 10, fixedResult())
	b.Set(ctx, black, 10, fixedResult())

	require.NoError(t, a.Invalidate(ctx))
	_, ok := a.Get(ctx, black, 10)
	assert.False(t, ok)
	_, ok = b.Get(ctx, black, 10)
	assert.True(t, ok)
}

func TestSearchThroughExecutor(t *testing.T) {
	e := indexer.NewEngine(config.IndexerConfig{})
	require.NoError(t, e.IndexProducts(context.Background(), corpus.Products(40, 2)))
	snap, err := e.Commit()
	require.NoError(t, err)
	ex := executor.New(snap, nil)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(NewLocal(), time.Minute, WithMetrics(m))

	first, hit, err := c.Search(context.Background(), ex, black, 0)
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := c.Search(context.Background(), ex, black, 0)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	var out dto.Metric
	require.NoError(t, m.CacheHitsTotal.Write(&out))
	assert.Equal(t, 1.0, out.GetCounter().GetValue())
	require.NoError(t, m.CacheMissesTotal.Write(&out))
	assert.Equal(t, 1.0, out.GetCounter().GetValue())
}

func TestInvalidateAfterRebuild(t *testing.T) {
	ctx := context.Background()
	build := func(n int, seed uint64) *executor.Executor {
		e := indexer.NewEngine(config.IndexerConfig{})
		require.NoError(t, e.IndexProducts(ctx, corpus.Products(n, seed)))
		snap, err := e.Commit()
		require.NoError(t, err)
		return executor.New(snap, nil)
	}
	backend := NewLocal()
	dataDir := "/var/lib/nested-search/index"

	before, _, err := New(backend, time.Minute, WithNamespace(dataDir)).Search(ctx, build(40, 2), black, 0)
	require.NoError(t, err)

	rebuilt := build(30, 9)
	fresh, err := rebuilt.Search(ctx, black, 0)
	require.NoError(t, err)
	require.NotEqual(t, before.Results, fresh.Results)

	stale, hit, err := New(backend, time.Minute, WithNamespace(dataDir)).Search(ctx, rebuilt, black, 0)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, before.Results, stale.Results)

	require.NoError(t, New(backend, time.Minute, WithNamespace(dataDir)).Invalidate(ctx))

	after, hit, err := New(backend, time.Minute, WithNamespace(dataDir)).Search(ctx, rebuilt, black, 0)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, fresh.Results, after.Results)
}

type failingBackend struct {
	lookups int
}

func (f *failingBackend) Lookup(context.Context, string) ([]byte, bool, error) {
	f.lookups++
	return nil, false, errors.New("connection refused")
}

func (f *failingBackend) Store(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (f *failingBackend) FlushByPattern(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestBackendFailuresFallBackToCompute(t *testing.T) {
	backend := &failingBackend{}
	cb := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	c := New(backend, time.Minute, WithBreaker(cb))

	for i := 0; i < 5; i++ {
		res, hit, err := c.GetOrCompute(context.Background(), black, 10, func() (*executor.SearchResult, error) {
			return fixedResult(), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, fixedResult(), res)
	}
	assert.Equal(t, resilience.StateOpen, cb.State())
	assert.Equal(t, 1, backend.lookups, "open breaker stops backend calls")
	assert.Error(t, c.Invalidate(context.Background()))
}
