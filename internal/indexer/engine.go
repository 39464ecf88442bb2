package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// DefaultChunkSize is the number of documents applied per ingestion step.
const DefaultChunkSize = 100

// ProgressFunc receives the completed percentage of a batch, in [0, 100].
type ProgressFunc func(percent float64)

// IngestReport summarises one Ingest call.
type IngestReport struct {
	Received int           `json:"received"`
	Indexed  int           `json:"indexed"`
	Empty    int           `json:"empty"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

type Engine struct {
	memIndex   *index.MemoryIndex
	cfg        config.IndexerConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	ingestMu   sync.Mutex
	generation atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records ingestion counters and collection gauges on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	e := &Engine{
		memIndex: index.NewMemoryIndex(),
		cfg:      cfg,
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest adds docs to the index in chunks of cfg.ChunkSize. Documents whose
// ID is already registered, including earlier in the same batch, are skipped
// without error. onProgress, if non-nil, is called after every chunk with a
// non-decreasing percentage; the last call reports exactly 100. An empty
// batch reports 100 once.
//
// The index lock is released between chunks so queries interleave with a
// long batch. ctx is checked at each chunk boundary: on cancellation the
// chunks already applied stay indexed and ctx's error is returned.
// Concurrent Ingest calls are serialised.
func (e *Engine) Ingest(ctx context.Context, docs []index.Document, onProgress ProgressFunc) (IngestReport, error) {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	start := time.Now()
	report := IngestReport{Received: len(docs)}
	total := len(docs)
	if total == 0 {
		if onProgress != nil {
			onProgress(100)
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	for offset := 0; offset < total; offset += e.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			e.recordBatch("cancelled", report)
			e.logger.Warn("ingestion cancelled",
				"processed", offset,
				"total", total,
				"indexed", report.Indexed,
			)
			return report, fmt.Errorf("ingestion cancelled after %d of %d documents: %w", offset, total, err)
		}
		end := min(offset+e.cfg.ChunkSize, total)
		e.applyChunk(docs[offset:end], &report)

		if onProgress != nil {
			onProgress(min(100, float64(end)/float64(total)*100))
		}
		runtime.Gosched()
	}

	report.Duration = time.Since(start)
	e.recordBatch("completed", report)
	e.logger.Info("batch ingested",
		"received", report.Received,
		"indexed", report.Indexed,
		"empty", report.Empty,
		"skipped", report.Skipped,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (e *Engine) applyChunk(chunk []index.Document, report *IngestReport) {
	prepared := make([]index.Document, len(chunk))
	for i, doc := range chunk {
		if e.cfg.AnnotateOnIngest {
			doc.Metadata = analysis.Annotate(doc.Content, maps.Clone(doc.Metadata))
		}
		prepared[i] = doc
	}

	added := 0
	e.memIndex.Apply(func(w index.Writer) {
		for _, doc := range prepared {
			switch w.AddDocument(doc) {
			case index.Added:
				report.Indexed++
				added++
			case index.AddedEmpty:
				report.Indexed++
				report.Empty++
				added++
			case index.SkippedDuplicate:
				report.Skipped++
				e.logger.Debug("duplicate document skipped", "doc_id", doc.ID)
			}
		}
		// Bumped under the write lock: a reader that sees this chunk also
		// sees the new generation.
		if added > 0 {
			e.generation.Add(1)
		}
	})
	e.updateGauges()
}

// Clear discards every document and posting. It waits for an in-flight
// Ingest to finish so no partially cleared state is observable.
func (e *Engine) Clear() {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()
	e.memIndex.Apply(func(w index.Writer) {
		w.Reset()
		e.generation.Add(1)
	})
	e.updateGauges()
	e.logger.Info("collection cleared")
}

// View runs fn under the index read lock.
func (e *Engine) View(fn func(r index.Reader)) {
	e.memIndex.View(fn)
}

// Document returns the registered document with the given ID.
func (e *Engine) Document(docID string) (index.Document, bool) {
	return e.memIndex.Document(docID)
}

// Stats returns the current corpus statistics.
func (e *Engine) Stats() index.CorpusStats {
	return e.memIndex.Stats()
}

// SizeBytes returns the approximate memory footprint of the index.
func (e *Engine) SizeBytes() int64 {
	return e.memIndex.Size()
}

// Generation changes whenever the indexed content changes. Results computed
// at one generation are valid until it moves.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) recordBatch(status string, report IngestReport) {
	if e.metrics == nil {
		return
	}
	e.metrics.IngestBatchesTotal.WithLabelValues(status).Inc()
	e.metrics.IngestDuration.Observe(report.Duration.Seconds())
	e.metrics.DocsIndexedTotal.Add(float64(report.Indexed))
	e.metrics.DocsSkippedTotal.Add(float64(report.Skipped))
}

func (e *Engine) updateGauges() {
	if e.metrics == nil {
		return
	}
	stats := e.memIndex.Stats()
	e.metrics.CollectionDocuments.Set(float64(stats.TotalDocs))
	e.metrics.IndexTerms.Set(float64(stats.Terms))
}
