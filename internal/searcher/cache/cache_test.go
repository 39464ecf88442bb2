package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

func newMemoryCache(t *testing.T, gen *atomic.Uint64) *QueryCache {
	t.Helper()
	backend, err := NewMemoryBackend(16)
	require.NoError(t, err)
	return New(backend, gen.Load, nil)
}

func sampleResult(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		TotalHits: 1,
		Results: []executor.Result{{
			DocumentID: "d1",
			Filename:   "a.txt",
			Score:      1.23,
			Snippet:    "kafka redis",
		}},
		TermStats: map[string]int{"kafka": 1},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return sampleResult("kafka redis"), nil
	}

	res, hit, err := c.GetOrCompute(ctx, "kafka redis", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "d1", res.Results[0].DocumentID)

	res, hit, err = c.GetOrCompute(ctx, "Kafka, REDIS!", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit, "same tokens share an entry")
	assert.Equal(t, "Kafka, REDIS!", res.Query)
	assert.Equal(t, 1.23, res.Results[0].Score)
	assert.Equal(t, 1, calls)

	assert.Equal(t, Stats{Backend: "memory", Hits: 1, Misses: 1}, c.Stats())
}

func TestKeyDependsOnLimitOrderAndGeneration(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)

	base := c.buildKey("kafka redis", 10)
	assert.NotEqual(t, base, c.buildKey("kafka redis", 5))
	assert.NotEqual(t, base, c.buildKey("redis kafka", 10))
	assert.Equal(t, base, c.buildKey("the kafka redis", 10))

	gen.Add(1)
	assert.NotEqual(t, base, c.buildKey("kafka redis", 10))
}

func TestGenerationBumpMisses(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	ctx := context.Background()

	c.Set(ctx, "kafka", 10, sampleResult("kafka"))
	_, ok := c.Get(ctx, "kafka", 10)
	require.True(t, ok)

	gen.Add(1)
	_, ok = c.Get(ctx, "kafka", 10)
	assert.False(t, ok)
}

func TestComputeErrorNotCached(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "kafka", 10, func(context.Context) (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), "kafka", 10)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	ctx := context.Background()
	c.Set(ctx, "kafka", 10, sampleResult("kafka"))
	c.Set(ctx, "redis", 10, sampleResult("redis"))

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, "kafka", 10)
	assert.False(t, ok)
}

func TestConcurrentComputeCoalesced(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "kafka", 10, func(context.Context) (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return sampleResult("kafka"), nil
			})
			assert.NoError(t, err)
		}()
	}
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("unreachable")
}
func (failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("unreachable")
}
func (failingBackend) Flush(context.Context) (int64, error) {
	return 0, errors.New("unreachable")
}

func TestBackendErrorsDegradeToMiss(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(failingBackend{}, func() uint64 { return 0 }, m)

	res, hit, err := c.GetOrCompute(context.Background(), "kafka", 10, func(context.Context) (*executor.SearchResult, error) {
		return sampleResult("kafka"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "d1", res.Results[0].DocumentID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Error(t, c.Invalidate(context.Background()))
}

func TestNewMemoryBackendRejectsZeroSize(t *testing.T) {
	_, err := NewMemoryBackend(0)
	assert.Error(t, err)
}

func TestCancelledCallerDoesNotFailCoalescedCallers(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	started := make(chan struct{})
	release := make(chan struct{})
	var computeErr error
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		close(started)
		<-release
		computeErr = ctx.Err()
		return sampleResult("kafka"), nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, "kafka", 10, compute)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan error, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), "kafka", 10, compute)
		if err == nil && res.Results[0].DocumentID != "d1" {
			err = errors.New("unexpected result")
		}
		secondDone <- err
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	assert.NoError(t, <-secondDone)
	assert.NoError(t, computeErr)

	_, ok := c.Get(context.Background(), "kafka", 10)
	assert.True(t, ok, "result of an abandoned request is still cached")
}

func TestResultComputedAcrossGenerationChangeIsNotServed(t *testing.T) {
	var gen atomic.Uint64
	c := newMemoryCache(t, &gen)
	ctx := context.Background()

	_, _, err := c.GetOrCompute(ctx, "kafka", 10, func(context.Context) (*executor.SearchResult, error) {
		gen.Add(1)
		return sampleResult("kafka"), nil
	})
	require.NoError(t, err)

	_, ok := c.Get(ctx, "kafka", 10)
	assert.False(t, ok)
}

func TestRedisKeysAreNamespacedPerInstance(t *testing.T) {
	a := NewRedisBackend(nil, time.Minute, nil, "instance-a")
	b := NewRedisBackend(nil, time.Minute, nil, "instance-b")

	assert.Equal(t, "search:instance-a:abc", a.key("abc"))
	assert.NotEqual(t, a.key("abc"), b.key("abc"))
	assert.NotContains(t, b.prefix+"*", "instance-a")
}
