// Package collection is the entry point to one searchable document
// collection. A Collection owns its index, and callers construct and pass
// it explicitly; there is no package-level instance.
package collection

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Stats describes the collection's current contents.
type Stats struct {
	Documents    int     `json:"documents"`
	Terms        int     `json:"terms"`
	TotalTokens  int64   `json:"total_tokens"`
	AvgDocLength float64 `json:"avg_doc_length"`
	SizeBytes    int64   `json:"size_bytes"`
	Generation   uint64  `json:"generation"`
}

type Collection struct {
	engine   *indexer.Engine
	executor *executor.Executor
	logger   *slog.Logger
}

type options struct {
	metrics *metrics.Metrics
}

type Option func(*options)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(idxCfg config.IndexerConfig, searchCfg config.SearchConfig, opts ...Option) *Collection {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var engineOpts []indexer.Option
	if o.metrics != nil {
		engineOpts = append(engineOpts, indexer.WithMetrics(o.metrics))
	}
	engine := indexer.NewEngine(idxCfg, engineOpts...)
	return &Collection{
		engine:   engine,
		executor: executor.New(engine, searchCfg.DefaultLimit),
		logger:   slog.Default().With("component", "collection"),
	}
}

// Ingest indexes docs in chunks, reporting progress after each one.
// Documents whose ID is already present are skipped. See indexer.Engine.Ingest.
func (c *Collection) Ingest(ctx context.Context, docs []index.Document, onProgress func(percent float64)) (indexer.IngestReport, error) {
	return c.engine.Ingest(ctx, docs, onProgress)
}

// Query returns at most limit results for text, best first. A non-positive
// limit selects the configured default.
func (c *Collection) Query(ctx context.Context, text string, limit int) (*executor.SearchResult, error) {
	return c.executor.Execute(ctx, parser.Parse(text), limit)
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.engine.Clear()
}

// AnalyzeText extracts entities and topics from text without indexing it.
func (c *Collection) AnalyzeText(text string) analysis.Metadata {
	return analysis.Analyze(text)
}

// Generation changes every time the indexed content changes.
func (c *Collection) Generation() uint64 {
	return c.engine.Generation()
}

func (c *Collection) Document(id string) (index.Document, bool) {
	return c.engine.Document(id)
}

func (c *Collection) Stats() Stats {
	s := c.engine.Stats()
	return Stats{
		Documents:    s.TotalDocs,
		Terms:        s.Terms,
		TotalTokens:  s.TotalTokens,
		AvgDocLength: s.AvgDocLength(),
		SizeBytes:    c.engine.SizeBytes(),
		Generation:   c.engine.Generation(),
	}
}
