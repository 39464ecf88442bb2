package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	IngestBatches     int64        `json:"ingest_batches"`
	DocsIndexed       int64        `json:"docs_indexed"`
	DocsSkipped       int64        `json:"docs_skipped"`
	Clears            int64        `json:"clears"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	ingestBatches     atomic.Int64
	docsIndexed       atomic.Int64
	docsSkipped       atomic.Int64
	clears            atomic.Int64
	latencies         []int64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes analytics messages from Kafka into agg. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := decodeEvent(value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func decodeEvent(value []byte) (any, error) {
	env, err := kafka.DecodeJSON[envelope](value)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case EventSearch:
		return kafka.DecodeJSON[SearchEvent](value)
	case EventIngest:
		return kafka.DecodeJSON[IngestEvent](value)
	case EventClear:
		return kafka.DecodeJSON[ClearEvent](value)
	default:
		return nil, fmt.Errorf("unknown analytics event type %q", env.Type)
	}
}

// PublishBatch records events directly, making the Aggregator a Sink for
// deployments without Kafka.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		a.Record(e.Value)
	}
	return nil
}

// Record applies one event. Values may be events or pointers to them; raw
// JSON is decoded first.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case *SearchEvent:
		a.recordSearchEvent(*e)
	case IngestEvent:
		a.recordIngestEvent(e)
	case *IngestEvent:
		a.recordIngestEvent(*e)
	case ClearEvent, *ClearEvent:
		a.clears.Add(1)
	case json.RawMessage:
		a.recordRaw(e)
	case []byte:
		a.recordRaw(e)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", fmt.Sprintf("%T", event))
	}
}

func (a *Aggregator) recordRaw(data []byte) {
	event, err := decodeEvent(data)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "error", err)
		return
	}
	a.Record(event)
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	query := strings.ToLower(strings.TrimSpace(event.Query))
	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	a.queryCounts[query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordIngestEvent(event IngestEvent) {
	a.ingestBatches.Add(1)
	a.docsIndexed.Add(int64(event.Indexed))
	a.docsSkipped.Add(int64(event.Skipped))
}

// Restore seeds the counters from a previously saved snapshot so totals
// survive a restart. Latency samples and query rankings start empty.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.totalSearches.Store(s.TotalSearches)
	a.cacheHits.Store(s.CacheHits)
	a.cacheMisses.Store(s.CacheMisses)
	a.zeroResults.Store(s.ZeroResultCount)
	a.ingestBatches.Store(s.IngestBatches)
	a.docsIndexed.Store(s.DocsIndexed)
	a.docsSkipped.Store(s.DocsSkipped)
	a.clears.Store(s.Clears)
	a.logger.Info("analytics restored from snapshot", "total_searches", s.TotalSearches)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		IngestBatches:   a.ingestBatches.Load(),
		DocsIndexed:     a.docsIndexed.Load(),
		DocsSkipped:     a.docsSkipped.Load(),
		Clears:          a.clears.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
