// Command loadtest seeds a search service with a synthetic corpus and then
// drives concurrent searches against it, reporting throughput and latency
// percentiles.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -seed 5000 -concurrency 20 -duration 30s
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
)

type loadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
}

type recorder struct {
	total       atomic.Int64
	success     atomic.Int64
	failed      atomic.Int64
	zeroResults atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newRecorder() *recorder {
	return &recorder{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (r *recorder) record(d time.Duration, status int, hits int, err error) {
	r.total.Add(1)
	if err != nil {
		r.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		r.success.Add(1)
		if hits == 0 {
			r.zeroResults.Add(1)
		}
	} else {
		r.failed.Add(1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, d)
	r.statusCodes[status]++
	r.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 1000, "documents to ingest before searching (0 skips seeding)")
	batchSize := flag.Int("batch", 500, "documents per ingestion request")
	flag.Parse()

	cfg := loadConfig{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Queries: []string{
			"distributed search",
			"search engine",
			"analytics platform",
			"indexing documents",
			"query processing",
			"cache optimization",
			"ranking algorithm",
			"partition replication",
			"circuit breaker",
			"inverted index",
			"kafka consumer offset",
			"quarterly revenue report",
			"customer support invoice",
			"Apple revenue",
			"nonexistentterm",
		},
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Println("=== Document Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	if *seed > 0 {
		start := time.Now()
		indexed, err := seedCorpus(context.Background(), client, cfg.BaseURL, generateCorpus(*seed, 60, 42), *batchSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d documents (%d new) in %s\n\n", *seed, indexed, time.Since(start).Round(time.Millisecond))
	}

	rec := runLoadTest(client, cfg)
	if !printReport(rec, cfg.Duration) {
		os.Exit(1)
	}
}

// seedCorpus posts docs in batches and returns how many were newly indexed.
// Asynchronous deployments answer 202 and report nothing indexed.
func seedCorpus(ctx context.Context, client *http.Client, baseURL string, docs []index.Document, batchSize int) (int, error) {
	indexed := 0
	for i, batch := range batches(docs, batchSize) {
		body, err := json.Marshal(ingestion.IngestRequest{Documents: batch})
		if err != nil {
			return indexed, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/documents", bytes.NewReader(body))
		if err != nil {
			return indexed, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return indexed, fmt.Errorf("batch %d: %w", i, err)
		}
		var report struct {
			Indexed int `json:"indexed"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&report)
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			if decodeErr != nil {
				return indexed, fmt.Errorf("batch %d: decoding report: %w", i, decodeErr)
			}
			indexed += report.Indexed
		case http.StatusAccepted:
		default:
			return indexed, fmt.Errorf("batch %d: unexpected status %d", i, resp.StatusCode)
		}
	}
	return indexed, nil
}

func runLoadTest(client *http.Client, cfg loadConfig) *recorder {
	rec := newRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	fmt.Print("Running")
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", cfg.BaseURL, url.QueryEscape(query))
				start := time.Now()
				status, hits, err := search(gctx, client, searchURL)
				if gctx.Err() != nil {
					return nil
				}
				rec.record(time.Since(start), status, hits, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	})
	_ = g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return rec
}

func search(ctx context.Context, client *http.Client, rawURL string) (status, hits int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	var body struct {
		TotalHits int `json:"total_hits"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, 0, err
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.TotalHits, nil
}

func printReport(rec *recorder, duration time.Duration) bool {
	total := rec.total.Load()
	failed := rec.failed.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", rec.success.Load())
	fmt.Printf("Errors:          %d\n", failed)
	fmt.Printf("Zero Results:    %d\n", rec.zeroResults.Load())
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	rec.mu.Lock()
	latencies := append([]time.Duration(nil), rec.latencies...)
	codes := make([]int, 0, len(rec.statusCodes))
	for code := range rec.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(rec.statusCodes))
	for code, n := range rec.statusCodes {
		counts[code] = n
	}
	rec.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		avg, stddev := meanStdDev(latencies)
		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("StdDev: %s\n", stddev)
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, counts[code])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func meanStdDev(ds []time.Duration) (mean, stddev time.Duration) {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	mean = sum / time.Duration(len(ds))
	var sq float64
	for _, d := range ds {
		diff := float64(d - mean)
		sq += diff * diff
	}
	return mean, time.Duration(math.Sqrt(sq / float64(len(ds))))
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
