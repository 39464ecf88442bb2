package ranker

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

func buildIndex(docs ...index.Document) *index.MemoryIndex {
	mi := index.NewMemoryIndex()
	for _, d := range docs {
		mi.AddDocument(d)
	}
	return mi
}

func rank(mi *index.MemoryIndex, terms []string, limit int) Ranking {
	var r Ranking
	mi.View(func(reader index.Reader) {
		r = Rank(reader, terms, limit)
	})
	return r
}

func TestRankSingleDocument(t *testing.T) {
	mi := buildIndex(index.Document{ID: "d1", Content: "alpha beta"})
	r := rank(mi, []string{"alpha"}, 10)
	require.Len(t, r.Docs, 1)

	// idf = ln(4/3), tf weight = 1, coverage 1/1 doubles it.
	want := Round(math.Log(4.0/3.0) * 2)
	assert.Equal(t, "d1", r.Docs[0].DocID)
	assert.Equal(t, want, r.Docs[0].Score)
	assert.Equal(t, 0.58, r.Docs[0].Score)
	assert.Equal(t, 1, r.Docs[0].MatchedTerms)
}

func TestRankRepeatedTermRanksFirst(t *testing.T) {
	mi := buildIndex(
		index.Document{ID: "once", Content: "database systems design notes review guide"},
		index.Document{ID: "five", Content: "database database database database database systems"},
		index.Document{ID: "other", Content: "cooking recipes pasta sauce garlic basil"},
	)
	r := rank(mi, []string{"database"}, 10)
	require.Len(t, r.Docs, 2)
	assert.Equal(t, "five", r.Docs[0].DocID)
	assert.Equal(t, "once", r.Docs[1].DocID)
	assert.Greater(t, r.Docs[0].Score, r.Docs[1].Score)
	assert.Equal(t, 2, r.DocFreqs["database"])
}

func TestRankCoverageBoost(t *testing.T) {
	mi := buildIndex(
		index.Document{ID: "both", Content: "kafka redis"},
		index.Document{ID: "one", Content: "kafka postgres"},
	)
	terms := []string{"kafka", "redis"}
	r := rank(mi, terms, 10)
	require.Len(t, r.Docs, 2)

	kafkaIDF := IDF(2, 2)
	redisIDF := IDF(2, 1)
	w := TermWeight(0.5, 2, 2)

	assert.Equal(t, "both", r.Docs[0].DocID)
	assert.Equal(t, Round((kafkaIDF*w+redisIDF*w)*2), r.Docs[0].Score)
	assert.Equal(t, 2, r.Docs[0].MatchedTerms)
	assert.Equal(t, Round(kafkaIDF*w*1.5), r.Docs[1].Score)
	assert.Equal(t, 1, r.Docs[1].MatchedTerms)
}

func TestRankTieBreakByDocID(t *testing.T) {
	mi := buildIndex(
		index.Document{ID: "zeta", Content: "shared words here"},
		index.Document{ID: "alpha", Content: "shared words here"},
		index.Document{ID: "mid", Content: "shared words here"},
	)
	r := rank(mi, []string{"shared"}, 10)
	require.Len(t, r.Docs, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{r.Docs[0].DocID, r.Docs[1].DocID, r.Docs[2].DocID})
}

func TestRankLimit(t *testing.T) {
	docs := make([]index.Document, 30)
	for i := range docs {
		docs[i] = index.Document{ID: fmt.Sprintf("doc-%02d", i), Content: "limit test corpus"}
	}
	mi := buildIndex(docs...)

	r := rank(mi, []string{"limit"}, 5)
	assert.Len(t, r.Docs, 5)
	assert.Equal(t, 30, r.TotalHits)

	r = rank(mi, []string{"limit"}, 0)
	assert.Len(t, r.Docs, 30)
}

func TestRankEmptyInputs(t *testing.T) {
	mi := buildIndex(index.Document{ID: "d1", Content: "alpha"})
	assert.Empty(t, rank(mi, nil, 10).Docs)

	absent := rank(mi, []string{"zzz"}, 10)
	assert.Empty(t, absent.Docs)
	assert.Zero(t, absent.TotalHits)
	assert.Equal(t, 0, absent.DocFreqs["zzz"])

	assert.Empty(t, rank(index.NewMemoryIndex(), []string{"alpha"}, 10).Docs)
}

func TestRankSkipsZeroLengthDocuments(t *testing.T) {
	mi := buildIndex(
		index.Document{ID: "empty", Content: "the of and"},
		index.Document{ID: "full", Content: "alpha beta"},
	)
	r := rank(mi, []string{"alpha"}, 10)
	require.Len(t, r.Docs, 1)
	assert.Equal(t, "full", r.Docs[0].DocID)
}

func TestIDFAlwaysPositive(t *testing.T) {
	for _, tc := range []struct{ n, df int }{{1, 1}, {10, 10}, {100, 1}, {5, 3}} {
		assert.Greater(t, IDF(tc.n, tc.df), 0.0, "n=%d df=%d", tc.n, tc.df)
	}
	assert.Greater(t, IDF(100, 1), IDF(100, 50))
}

func TestTermWeightSaturates(t *testing.T) {
	assert.Zero(t, TermWeight(0.5, 4, 0))
	low := TermWeight(1.0/10, 10, 10)
	high := TermWeight(9.0/10, 10, 10)
	assert.Greater(t, high, low)
	assert.Less(t, high, K1+1)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.24, Round(1.2449))
	assert.Equal(t, 1.25, Round(1.245001))
	assert.Equal(t, 0.0, Round(0.004))
	assert.Equal(t, 3.0, Round(2.999))
}

func BenchmarkRank(b *testing.B) {
	terms := []string{"distributed", "search", "analytics", "platform", "indexing", "query"}
	mi := index.NewMemoryIndex()
	for i := 0; i < 10000; i++ {
		mi.AddDocument(index.Document{
			ID: fmt.Sprintf("doc-%d", i),
			Content: fmt.Sprintf("this document covers %s %s %s in production systems",
				terms[i%len(terms)], terms[(i+2)%len(terms)], terms[(i+3)%len(terms)]),
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.View(func(r index.Reader) {
			_ = Rank(r, terms[:2], 20)
		})
	}
}
