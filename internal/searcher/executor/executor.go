package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/snippet"
)

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 20

type Result struct {
	DocumentID string         `json:"document_id"`
	Filename   string         `json:"filename"`
	Score      float64        `json:"score"`
	Snippet    string         `json:"snippet"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []Result       `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// Source gives consistent read access to an index. indexer.Engine
// satisfies it.
type Source interface {
	View(fn func(r index.Reader))
}

type Executor struct {
	source       Source
	defaultLimit int
	logger       *slog.Logger
}

func New(source Source, defaultLimit int) *Executor {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Executor{
		source:       source,
		defaultLimit: defaultLimit,
		logger:       slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks the plan's terms against the index and attaches a snippet
// to each surviving result. Ranking and document lookup share one read
// lock, so a concurrent ingestion chunk is either fully visible or not at
// all. A plan without terms or an empty index yields an empty result.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	result := &SearchResult{
		Query:     plan.RawQuery,
		Results:   []Result{},
		TermStats: map[string]int{},
	}
	if plan.Empty() {
		return result, nil
	}
	if limit <= 0 {
		limit = e.defaultLimit
	}

	var docs []index.Document
	var ranking ranker.Ranking
	e.source.View(func(r index.Reader) {
		ranking = ranker.Rank(r, plan.Terms, limit)
		docs = make([]index.Document, len(ranking.Docs))
		for i, sd := range ranking.Docs {
			doc, ok := r.Document(sd.DocID)
			if !ok {
				panic(fmt.Sprintf("executor: ranked document %q is not registered", sd.DocID))
			}
			docs[i] = doc
		}
	})

	result.TotalHits = ranking.TotalHits
	result.TermStats = ranking.DocFreqs
	result.Results = make([]Result, len(docs))
	for i, doc := range docs {
		result.Results[i] = Result{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Score:      ranking.Docs[i].Score,
			Snippet:    snippet.Extract(doc.Content, plan.Tokens),
			Metadata:   doc.Metadata,
		}
	}

	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}
