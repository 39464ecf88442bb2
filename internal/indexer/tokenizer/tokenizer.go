// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, blanks every character outside a-z, 0-9 and
// whitespace, splits on whitespace and removes short tokens and stop-words.
// The same function feeds both the indexer and the query parser.
package tokenizer

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token kept in the index.
const MinTokenLength = 2

// stopWords holds common English function words. Contractions are absent:
// apostrophes are blanked before the stop-word check, so "isn't" could
// never match here.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"cannot": {}, "could": {}, "did": {}, "do": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "few": {}, "for": {}, "from": {},
	"further": {}, "had": {}, "has": {}, "have": {}, "having": {}, "he": {},
	"her": {}, "here": {}, "hers": {}, "herself": {}, "him": {}, "himself": {},
	"his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "itself": {}, "me": {}, "more": {}, "most": {},
	"my": {}, "myself": {}, "no": {}, "nor": {}, "not": {}, "of": {}, "off": {},
	"on": {}, "once": {}, "only": {}, "or": {}, "other": {}, "ought": {},
	"our": {}, "ours": {}, "ourselves": {}, "out": {}, "over": {}, "own": {},
	"same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {}, "them": {},
	"themselves": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "very": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"whom": {}, "why": {}, "with": {}, "would": {}, "you": {}, "your": {},
	"yours": {}, "yourself": {}, "yourselves": {},
}

// Tokenize breaks text into lowercased index terms with stop-words removed.
// Order is preserved and duplicates are kept, since term frequency is
// computed from them.
func Tokenize(text string) []string {
	words := strings.Fields(normalize(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < MinTokenLength {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// IsStopWord reports whether the already-normalised term is a stop-word.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// normalize lower-cases text and replaces every rune that is not an ASCII
// lowercase letter, digit or whitespace with a single space.
func normalize(text string) string {
	lowered := strings.ToLower(text)
	var sb strings.Builder
	sb.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
