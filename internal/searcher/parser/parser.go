// Package parser turns raw query text into a QueryPlan using the same
// tokenizer as the index path.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	// Tokens holds every query token in order, duplicates included. Snippet
	// selection walks it to find the first token present in a document.
	Tokens []string
	// Terms holds the distinct tokens in first-seen order. Scoring and the
	// coverage boost work on these.
	Terms []string
}

// Empty reports whether the query produced no scorable terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

func Parse(query string) *QueryPlan {
	tokens := tokenizer.Tokenize(query)
	plan := &QueryPlan{
		RawQuery: query,
		Tokens:   tokens,
		Terms:    make([]string, 0, len(tokens)),
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		plan.Terms = append(plan.Terms, tok)
	}
	return plan
}
