// Package analysis extracts lightweight metadata from document text:
// candidate entities (emails, years, capitalised words) and the most frequent
// topic keywords. It is a bounded rule-based heuristic, not a trained model.
//
// Capitalised words are taken without sentence-boundary awareness, so a
// sentence-initial word such as "Contact" is reported alongside proper nouns.
package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxEntities caps the number of entities returned by Analyze.
	MaxEntities = 10
	// MaxTopics caps the number of topics returned by Analyze.
	MaxTopics = 5

	minEntityLength = 3
	minTopicLength  = 4

	// Metadata keys used when annotating a document.
	KeyEntities = "entities"
	KeyTopics   = "topics"
)

var (
	emailPattern       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	yearPattern        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	capitalizedPattern = regexp.MustCompile(`^[A-Z][a-z]+$`)
)

// Metadata is the structured summary attached to a document at ingestion.
type Metadata struct {
	Entities []string `json:"entities"`
	Topics   []string `json:"topics"`
}

// Analyze runs entity and topic extraction over text.
func Analyze(text string) Metadata {
	return Metadata{
		Entities: ExtractEntities(text),
		Topics:   ExtractTopics(text),
	}
}

// ExtractEntities returns up to MaxEntities candidate entities in discovery
// order: emails first, then years in 1900–2099, then capitalised words that
// are not common stop-words.
func ExtractEntities(text string) []string {
	set := newOrderedSet()
	for _, email := range emailPattern.FindAllString(text, -1) {
		set.add(email)
	}
	for _, year := range yearPattern.FindAllString(text, -1) {
		set.add(year)
	}
	for _, field := range strings.FieldsFunc(text, isSpace) {
		word := stripNonAlphanumeric(field)
		if len(word) < minEntityLength || !capitalizedPattern.MatchString(word) {
			continue
		}
		if isStopWord(strings.ToLower(word)) {
			continue
		}
		set.add(word)
	}
	entities := set.items()
	if len(entities) > MaxEntities {
		entities = entities[:MaxEntities]
	}
	return entities
}

// ExtractTopics returns up to MaxTopics keywords ranked by raw frequency.
// Ties keep the order in which the words first appear.
func ExtractTopics(text string) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, word := range strings.Fields(normalize(text)) {
		if len(word) < minTopicLength || isStopWord(word) {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > MaxTopics {
		order = order[:MaxTopics]
	}
	return order
}

// Annotate merges the analysis of content into metadata. Keys already
// present in metadata are left untouched. A nil map is allocated.
func Annotate(content string, metadata map[string]any) map[string]any {
	if metadata == nil {
		metadata = make(map[string]any, 2)
	}
	_, hasEntities := metadata[KeyEntities]
	_, hasTopics := metadata[KeyTopics]
	if hasEntities && hasTopics {
		return metadata
	}
	meta := Analyze(content)
	if !hasEntities {
		metadata[KeyEntities] = meta.Entities
	}
	if !hasTopics {
		metadata[KeyTopics] = meta.Topics
	}
	return metadata
}

func stripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}

// isSpace matches the ECMAScript \s class the extraction rules are written
// against: Unicode White_Space without U+0085, plus U+FEFF.
func isSpace(r rune) bool {
	switch r {
	case '\u0085':
		return false
	case '\ufeff':
		return true
	}
	return unicode.IsSpace(r)
}

func normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || isSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *orderedSet) items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
