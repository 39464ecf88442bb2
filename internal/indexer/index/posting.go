package index

import "maps"

// Document is a unit of indexed text. It is owned by the index once added
// and never modified afterwards: the index keeps its own copy of Metadata
// and hands out copies.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Filename string         `json:"filename"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// clone returns doc with a metadata map that shares nothing mutable with
// the original.
func (doc Document) clone() Document {
	doc.Metadata = cloneMetadata(doc.Metadata)
	return doc
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes metadata takes: analysis output
// ([]string) and decoded JSON ([]any, map[string]any). Scalars are values.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		return cloneMetadata(t)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}

// Posting links a term to one document. TF is the normalised term frequency:
// raw occurrences divided by the document's token count.
type Posting struct {
	DocID string
	TF    float64
}

// PostingList holds a term's postings in ingestion order.
type PostingList []Posting

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocStats describes a registered document for ranking.
type DocStats struct {
	DocID  string
	DocLen int
}

// CorpusStats holds the collection-wide numbers BM25 needs.
type CorpusStats struct {
	TotalDocs   int
	TotalTokens int64
	Terms       int
}

// AvgDocLength returns the mean token count, or 0 for an empty corpus.
func (s CorpusStats) AvgDocLength() float64 {
	if s.TotalDocs == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.TotalDocs)
}
