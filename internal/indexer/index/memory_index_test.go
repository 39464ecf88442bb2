package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocumentBuildsPostings(t *testing.T) {
	mi := NewMemoryIndex()
	res := mi.AddDocument(Document{ID: "d1", Content: "database replication database sharding", Filename: "a.txt"})
	require.Equal(t, Added, res)

	postings := mi.Search("database")
	require.Len(t, postings, 1)
	assert.Equal(t, "d1", postings[0].DocID)
	assert.InDelta(t, 0.5, postings[0].TF, 1e-12)

	postings = mi.Search("sharding")
	require.Len(t, postings, 1)
	assert.InDelta(t, 0.25, postings[0].TF, 1e-12)

	assert.Nil(t, mi.Search("missing"))
	assert.Equal(t, 4, mi.DocLength("d1"))
	assert.Equal(t, CorpusStats{TotalDocs: 1, TotalTokens: 4, Terms: 3}, mi.Stats())
}

func TestAddDocumentSkipsDuplicates(t *testing.T) {
	mi := NewMemoryIndex()
	require.Equal(t, Added, mi.AddDocument(Document{ID: "d1", Content: "alpha beta"}))
	assert.Equal(t, SkippedDuplicate, mi.AddDocument(Document{ID: "d1", Content: "alpha gamma"}))

	assert.Len(t, mi.Search("alpha"), 1)
	assert.Nil(t, mi.Search("gamma"))

	doc, ok := mi.Document("d1")
	require.True(t, ok)
	assert.Equal(t, "alpha beta", doc.Content)
}

func TestAddDocumentZeroLength(t *testing.T) {
	mi := NewMemoryIndex()
	assert.Equal(t, AddedEmpty, mi.AddDocument(Document{ID: "empty", Content: "the a of !!"}))
	assert.True(t, mi.Contains("empty"))
	assert.Equal(t, 0, mi.DocLength("empty"))
	assert.Equal(t, CorpusStats{TotalDocs: 1}, mi.Stats())
	assert.Empty(t, mi.Snapshot())
}

func TestPostingsKeepIngestionOrder(t *testing.T) {
	mi := NewMemoryIndex()
	for _, id := range []string{"z", "a", "m"} {
		mi.AddDocument(Document{ID: id, Content: "shared term"})
	}
	postings := mi.Search("shared")
	ids := make([]string, 0, len(postings))
	for _, p := range postings {
		ids = append(ids, p.DocID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestSearchReturnsCopy(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(Document{ID: "d1", Content: "alpha"})
	postings := mi.Search("alpha")
	postings[0].DocID = "mutated"
	assert.Equal(t, "d1", mi.Search("alpha")[0].DocID)
}

func TestApplyAndView(t *testing.T) {
	mi := NewMemoryIndex()
	var results []AddResult
	mi.Apply(func(w Writer) {
		results = append(results, w.AddDocument(Document{ID: "d1", Content: "kafka redis"}))
		results = append(results, w.AddDocument(Document{ID: "d1", Content: "kafka redis"}))
		results = append(results, w.AddDocument(Document{ID: "d2", Content: "kafka"}))
	})
	assert.Equal(t, []AddResult{Added, SkippedDuplicate, Added}, results)

	mi.View(func(r Reader) {
		assert.Len(t, r.Postings("kafka"), 2)
		assert.Equal(t, 2, r.DocLength("d1"))
		assert.InDelta(t, 1.5, r.Stats().AvgDocLength(), 1e-12)
		doc, ok := r.Document("d2")
		assert.True(t, ok)
		assert.Equal(t, "kafka", doc.Content)
		_, ok = r.Document("d3")
		assert.False(t, ok)
	})
}

func TestDocLengthPanicsForUnknownDocument(t *testing.T) {
	mi := NewMemoryIndex()
	assert.Panics(t, func() { mi.DocLength("ghost") })
}

func TestReset(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(Document{ID: "d1", Content: "alpha beta"})
	require.Positive(t, mi.Size())
	mi.Reset()
	assert.Equal(t, 0, mi.DocCount())
	assert.Equal(t, int64(0), mi.Size())
	assert.Nil(t, mi.Search("alpha"))
	assert.False(t, mi.Contains("d1"))
	assert.Equal(t, Added, mi.AddDocument(Document{ID: "d1", Content: "alpha"}))
}

func TestSnapshotSortedByTerm(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument(Document{ID: "d1", Content: "zulu alpha mike"})
	snap := mi.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "alpha", snap[0].Term)
	assert.Equal(t, "mike", snap[1].Term)
	assert.Equal(t, "zulu", snap[2].Term)
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	mi := NewMemoryIndex()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			mi.AddDocument(Document{ID: fmt.Sprintf("doc-%d", i), Content: "concurrent search engine"})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = mi.Search("search")
				_ = mi.Stats()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, mi.Search("search"), 200)
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(Document{
			ID:      fmt.Sprintf("doc-%d", i),
			Content: "this is a benchmark document with several terms for testing the indexing performance of our memory index",
		})
	}
}

func BenchmarkMemoryIndexSearchParallel(b *testing.B) {
	mi := NewMemoryIndex()
	for i := 0; i < 10000; i++ {
		mi.AddDocument(Document{ID: fmt.Sprintf("doc-%d", i), Content: "search engine with distributed indexing and query processing"})
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = mi.Search("search")
		}
	})
}
