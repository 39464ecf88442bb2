package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	for i, q := range []string{"kafka", "Kafka ", "redis", "missing"} {
		hits := 3
		if q == "missing" {
			hits = 0
		}
		agg.Record(SearchEvent{Type: EventSearch, Query: q, TotalHits: hits, LatencyMs: int64(10 * (i + 1)), CacheHit: i%2 == 0})
	}
	agg.Record(&IngestEvent{Type: EventIngest, Indexed: 5, Skipped: 2})
	agg.Record(ClearEvent{Type: EventClear})

	s := agg.Stats()
	assert.Equal(t, int64(4), s.TotalSearches)
	assert.Equal(t, int64(2), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.InDelta(t, 25.0, s.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(30), s.P50LatencyMs)
	assert.Equal(t, []QueryCount{{"kafka", 2}, {"missing", 1}, {"redis", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"missing", 1}}, s.ZeroResultQueries)
	assert.Equal(t, int64(1), s.IngestBatches)
	assert.Equal(t, int64(5), s.DocsIndexed)
	assert.Equal(t, int64(2), s.DocsSkipped)
	assert.Equal(t, int64(1), s.Clears)
}

func TestAggregatorLatencyWindowBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.Record(SearchEvent{Type: EventSearch, Query: "q", TotalHits: 1, LatencyMs: 1})
	}
	agg.mu.RLock()
	n := len(agg.latencies)
	agg.mu.RUnlock()
	assert.Equal(t, maxLatencySamples, n)
	assert.Equal(t, int64(maxLatencySamples+50), agg.Stats().TotalSearches)
}

func TestHandleEventDecodesByType(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	search, _ := json.Marshal(SearchEvent{Type: EventSearch, Query: "kafka", TotalHits: 1})
	ingest, _ := json.Marshal(IngestEvent{Type: EventIngest, Indexed: 3})
	require.NoError(t, handle(context.Background(), []byte("search"), search))
	require.NoError(t, handle(context.Background(), []byte("ingest"), ingest))
	require.NoError(t, handle(context.Background(), nil, []byte(`{"type":"bogus"}`)))
	require.NoError(t, handle(context.Background(), nil, []byte(`not json`)))

	s := agg.Stats()
	assert.Equal(t, int64(1), s.TotalSearches)
	assert.Equal(t, int64(3), s.DocsIndexed)
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{TotalSearches: 10, DocsIndexed: 99})
	agg.Record(SearchEvent{Type: EventSearch, Query: "x", TotalHits: 1})
	s := agg.Stats()
	assert.Equal(t, int64(11), s.TotalSearches)
	assert.Equal(t, int64(99), s.DocsIndexed)
}

type captureSink struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (c *captureSink) PublishBatch(_ context.Context, events []kafka.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
	return c.err
}

func (c *captureSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	sink := &captureSink{}
	c := NewCollector(sink, 100, 3, time.Hour)
	c.Start(context.Background())
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	require.Eventually(t, func() bool { return sink.total() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, string(EventSearch), sink.batches[0][0].Key)
}

func TestCollectorFlushesOnClose(t *testing.T) {
	sink := &captureSink{}
	c := NewCollector(sink, 100, 50, time.Hour)
	c.Start(context.Background())
	c.Track(IngestEvent{Type: EventIngest})
	c.Track(ClearEvent{Type: EventClear})
	c.Close()
	assert.Equal(t, 2, sink.total())
}

func TestCollectorDropsWhenFull(t *testing.T) {
	sink := &captureSink{}
	c := NewCollector(sink, 1, 10, time.Hour)
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	assert.Equal(t, int64(1), c.Dropped())
	c.Close()
}

func TestCollectorIntoAggregator(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(agg, 10, 10, 5*time.Millisecond)
	c.Start(context.Background())
	c.Track(SearchEvent{Type: EventSearch, Query: "kafka", TotalHits: 2})
	require.Eventually(t, func() bool { return agg.Stats().TotalSearches == 1 }, time.Second, 5*time.Millisecond)
	c.Close()
}

func TestCollectorSinkErrorIsLogged(t *testing.T) {
	sink := &captureSink{err: errors.New("broker down")}
	c := NewCollector(sink, 10, 1, time.Hour)
	c.Start(context.Background())
	c.Track(SearchEvent{})
	c.Close()
	assert.Equal(t, 1, sink.total())
}

func TestFanOutReachesEverySink(t *testing.T) {
	failing := &captureSink{err: errors.New("broker down")}
	agg := NewAggregator()
	sink := FanOut(failing, agg)
	err := sink.PublishBatch(context.Background(), []kafka.Event{
		{Key: string(EventSearch), Value: SearchEvent{Type: EventSearch, Query: "redis", TotalHits: 1}},
	})
	assert.Error(t, err)
	assert.Equal(t, 1, failing.total())
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

type fakeLister struct {
	snaps []AggregatedStats
	err   error
	limit int
}

func (f *fakeLister) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	f.limit = limit
	return f.snaps, f.err
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Type: EventSearch, Query: "kafka", TotalHits: 1})
	h := NewHandler(agg, nil)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.TotalSearches)
}

func TestHandlerSnapshots(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewAggregator(), nil).Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	lister := &fakeLister{snaps: []AggregatedStats{{TotalSearches: 7}}}
	h := NewHandler(NewAggregator(), lister)

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, lister.limit)
	assert.Contains(t, rec.Body.String(), `"total_searches":7`)

	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lister.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
