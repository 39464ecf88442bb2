package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

var vocabulary = []string{
	"distributed", "search", "engine", "analytics", "platform", "indexing",
	"documents", "query", "processing", "cache", "optimization", "ranking",
	"algorithm", "partition", "replication", "circuit", "breaker", "balancing",
	"inverted", "index", "tokenizer", "snippet", "latency", "throughput",
	"kafka", "redis", "postgres", "consumer", "producer", "offset", "revenue",
	"quarterly", "report", "customer", "support", "invoice", "contract",
}

var entities = []string{"Apple", "Google", "Kafka", "Redis", "Postgres", "Berlin", "London", "Alice", "Bob"}

// generateCorpus builds n synthetic documents from a fixed vocabulary so
// that every load-test query has matches. The same seed yields the same
// corpus.
func generateCorpus(n, wordsPerDoc int, seed int64) []index.Document {
	rng := rand.New(rand.NewSource(seed))
	docs := make([]index.Document, n)
	for i := range docs {
		var b strings.Builder
		for w := 0; w < wordsPerDoc; w++ {
			if w > 0 {
				b.WriteByte(' ')
			}
			if rng.Intn(12) == 0 {
				b.WriteString(entities[rng.Intn(len(entities))])
				continue
			}
			b.WriteString(vocabulary[rng.Intn(len(vocabulary))])
		}
		fmt.Fprintf(&b, ". Filed in %d.", 2000+rng.Intn(25))
		docs[i] = index.Document{
			ID:       fmt.Sprintf("loadtest-%06d", i),
			Filename: fmt.Sprintf("loadtest-%06d.txt", i),
			Content:  b.String(),
		}
	}
	return docs
}

// batches splits docs into consecutive slices of at most size documents.
func batches(docs []index.Document, size int) [][]index.Document {
	if size <= 0 {
		size = len(docs)
	}
	var out [][]index.Document
	for start := 0; start < len(docs); start += size {
		out = append(out, docs[start:min(start+size, len(docs))])
	}
	return out
}
