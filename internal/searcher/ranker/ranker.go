// Package ranker scores documents against query terms with Okapi BM25 and
// a query-coverage boost.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

const (
	K1 = 1.5
	B  = 0.75
)

// Corpus is the read view ranking needs. index.Reader satisfies it.
type Corpus interface {
	Postings(term string) index.PostingList
	DocLength(docID string) int
	Stats() index.CorpusStats
}

type ScoredDoc struct {
	DocID        string  `json:"doc_id"`
	Score        float64 `json:"score"`
	MatchedTerms int     `json:"matched_terms"`
}

// Ranking is the output of Rank. TotalHits counts every document that
// matched at least one term, before the limit is applied.
type Ranking struct {
	Docs      []ScoredDoc
	TotalHits int
	DocFreqs  map[string]int
}

// Rank scores every document containing at least one of terms. terms must
// be distinct. The final score is the BM25 sum multiplied by
// 1 + matched/len(terms), rounded to two decimals. Results are ordered by
// score descending, then document ID ascending, and cut to limit when
// limit > 0.
func Rank(c Corpus, terms []string, limit int) Ranking {
	ranking := Ranking{DocFreqs: make(map[string]int, len(terms))}
	if len(terms) == 0 {
		return ranking
	}
	stats := c.Stats()
	if stats.TotalDocs == 0 {
		return ranking
	}
	avgDocLen := stats.AvgDocLength()

	scores := make(map[string]float64)
	matched := make(map[string]int)
	for _, term := range terms {
		postings := c.Postings(term)
		ranking.DocFreqs[term] = len(postings)
		if len(postings) == 0 {
			continue
		}
		idf := IDF(stats.TotalDocs, len(postings))
		for _, p := range postings {
			docLen := c.DocLength(p.DocID)
			scores[p.DocID] += idf * TermWeight(p.TF, docLen, avgDocLen)
			matched[p.DocID]++
		}
	}

	queryTerms := float64(len(terms))
	docs := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		boosted := score * (1 + float64(matched[docID])/queryTerms)
		docs = append(docs, ScoredDoc{
			DocID:        docID,
			Score:        Round(boosted),
			MatchedTerms: matched[docID],
		})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
	ranking.TotalHits = len(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	ranking.Docs = docs
	return ranking
}

// IDF is the BM25 inverse document frequency, always positive.
func IDF(totalDocs, docFreq int) float64 {
	n := float64(totalDocs)
	df := float64(docFreq)
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// TermWeight is the saturated, length-normalised term frequency. normTF is
// the posting's frequency relative to docLen, so normTF*docLen recovers the
// raw count.
func TermWeight(normTF float64, docLen int, avgDocLen float64) float64 {
	if avgDocLen == 0 {
		return 0
	}
	tf := normTF * float64(docLen)
	lengthNorm := (1 - B) + B*float64(docLen)/avgDocLen
	return tf * (K1 + 1) / (tf + K1*lengthNorm)
}

// Round rounds half away from zero to two decimals.
func Round(score float64) float64 {
	return math.Round(score*100) / 100
}
