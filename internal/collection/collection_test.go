package collection

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func newCollection() *Collection {
	cfg := config.Default()
	return New(cfg.Indexer, cfg.Search)
}

func TestAppleRevenueExample(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	content := "Apple reported strong revenue in 2023. Contact: sales@apple.com"

	_, err := c.Ingest(ctx, []index.Document{{ID: "d1", Content: content, Filename: "a.txt"}}, nil)
	require.NoError(t, err)

	meta := c.AnalyzeText(content)
	assert.Contains(t, meta.Entities, "2023")
	assert.Contains(t, meta.Entities, "sales@apple.com")
	for _, stop := range []string{"in", "the", "and"} {
		assert.NotContains(t, meta.Entities, stop)
		assert.NotContains(t, meta.Topics, stop)
	}

	res, err := c.Query(ctx, "revenue", 5)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "d1", res.Results[0].DocumentID)
	assert.Greater(t, res.Results[0].Score, 0.0)
	assert.Contains(t, res.Results[0].Snippet, "revenue")
}

func TestSingleDocumentMatchesEveryToken(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	content := "Kafka consumers commit offsets to the broker after processing"
	_, err := c.Ingest(ctx, []index.Document{{ID: "only", Content: content}}, nil)
	require.NoError(t, err)

	for _, tok := range []string{"kafka", "consumers", "commit", "offsets", "broker", "processing"} {
		res, err := c.Query(ctx, tok, 10)
		require.NoError(t, err)
		require.Len(t, res.Results, 1, tok)
		assert.Equal(t, "only", res.Results[0].DocumentID)
		assert.Greater(t, res.Results[0].Score, 0.0)
	}
}

func TestReingestIsIdempotent(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	docs := []index.Document{
		{ID: "a", Content: "database replication lag"},
		{ID: "b", Content: "database index tuning"},
	}
	_, err := c.Ingest(ctx, docs, nil)
	require.NoError(t, err)
	before, err := c.Query(ctx, "database tuning", 10)
	require.NoError(t, err)
	statsBefore := c.Stats()

	report, err := c.Ingest(ctx, docs, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)

	after, err := c.Query(ctx, "database tuning", 10)
	require.NoError(t, err)
	assert.Equal(t, before.Results, after.Results)
	assert.Equal(t, statsBefore, c.Stats())
}

func TestRepeatedTermRanksFirst(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	_, err := c.Ingest(ctx, []index.Document{
		{ID: "once", Content: "database notes covering backups restores and monitoring"},
		{ID: "many", Content: "database database database database database monitoring"},
	}, nil)
	require.NoError(t, err)

	res, err := c.Query(ctx, "database", 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "many", res.Results[0].DocumentID)
}

func TestAbsentTokenReturnsNothing(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	_, err := c.Ingest(ctx, []index.Document{{ID: "d1", Content: "kafka consumer groups"}}, nil)
	require.NoError(t, err)

	res, err := c.Query(ctx, "zzz_not_present", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestEmptyInputs(t *testing.T) {
	c := newCollection()
	ctx := context.Background()

	res, err := c.Query(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	_, err = c.Ingest(ctx, []index.Document{{ID: "d1", Content: "kafka"}}, nil)
	require.NoError(t, err)
	res, err = c.Query(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestCoverageBoostFavoursFullMatch(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	_, err := c.Ingest(ctx, []index.Document{
		{ID: "partial", Content: "redis cluster failover"},
		{ID: "full", Content: "redis kafka failover"},
	}, nil)
	require.NoError(t, err)

	res, err := c.Query(ctx, "redis kafka", 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "full", res.Results[0].DocumentID)
	assert.Greater(t, res.Results[0].Score, res.Results[1].Score)
}

func TestProgressAndClear(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	docs := make([]index.Document, 150)
	for i := range docs {
		docs[i] = index.Document{ID: fmt.Sprintf("doc-%d", i), Content: "progress reporting check"}
	}
	var progress []float64
	_, err := c.Ingest(ctx, docs, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)
	require.NotEmpty(t, progress)
	assert.Equal(t, 100.0, progress[len(progress)-1])
	assert.Equal(t, 150, c.Stats().Documents)

	gen := c.Generation()
	c.Clear()
	assert.NotEqual(t, gen, c.Generation())
	assert.Zero(t, c.Stats().Documents)
	res, err := c.Query(ctx, "progress", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestMetadataAttachedOnIngest(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	_, err := c.Ingest(ctx, []index.Document{{
		ID:       "d1",
		Content:  "Postgres replicas and Postgres indexes in 2024",
		Metadata: map[string]any{"topics": []string{"custom"}},
	}}, nil)
	require.NoError(t, err)

	doc, ok := c.Document("d1")
	require.True(t, ok)
	assert.Equal(t, []string{"custom"}, doc.Metadata["topics"])
	assert.Contains(t, doc.Metadata["entities"], "2024")
}

func TestSnippetWindowOnLongDocument(t *testing.T) {
	c := newCollection()
	ctx := context.Background()
	content := strings.Repeat("filler ", 50) + "needle " + strings.Repeat("padding ", 60)
	_, err := c.Ingest(ctx, []index.Document{{ID: "long", Content: content}}, nil)
	require.NoError(t, err)

	res, err := c.Query(ctx, "needle", 1)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	snip := res.Results[0].Snippet
	assert.True(t, strings.HasPrefix(snip, "..."))
	assert.True(t, strings.HasSuffix(snip, "..."))
	assert.Contains(t, snip, "needle")
}

func TestStoredDocumentsAreIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()

	t.Run("input map without annotation", func(t *testing.T) {
		cfg := config.Default()
		cfg.Indexer.AnnotateOnIngest = false
		c := New(cfg.Indexer, cfg.Search)
		meta := map[string]any{"owner": "alice", "tags": []any{"finance"}}
		_, err := c.Ingest(ctx, []index.Document{{ID: "d1", Content: "quarterly revenue", Metadata: meta}}, nil)
		require.NoError(t, err)

		meta["owner"] = "mallory"
		meta["tags"].([]any)[0] = "tampered"

		doc, ok := c.Document("d1")
		require.True(t, ok)
		assert.Equal(t, "alice", doc.Metadata["owner"])
		assert.Equal(t, []any{"finance"}, doc.Metadata["tags"])
	})

	t.Run("query results and lookups", func(t *testing.T) {
		c := newCollection()
		_, err := c.Ingest(ctx, []index.Document{{ID: "d1", Content: "Apple reported revenue in 2023"}}, nil)
		require.NoError(t, err)

		res, err := c.Query(ctx, "revenue", 5)
		require.NoError(t, err)
		require.Len(t, res.Results, 1)
		entities := res.Results[0].Metadata[analysis.KeyEntities].([]string)
		require.NotEmpty(t, entities)
		entities[0] = "HACKED"
		res.Results[0].Metadata[analysis.KeyEntities] = []string{"HACKED"}

		doc, _ := c.Document("d1")
		doc.Metadata["owner"] = "mallory"

		stored, ok := c.Document("d1")
		require.True(t, ok)
		assert.NotContains(t, stored.Metadata[analysis.KeyEntities], "HACKED")
		assert.Contains(t, stored.Metadata[analysis.KeyEntities], "2023")
		assert.NotContains(t, stored.Metadata, "owner")
	})
}
