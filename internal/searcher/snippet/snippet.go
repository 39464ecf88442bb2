// Package snippet cuts a short excerpt of a document around the first
// query token it contains.
package snippet

import (
	"strings"
	"unicode/utf8"
)

const (
	Before       = 60
	After        = 200
	FallbackSize = 150
	Ellipsis     = "..."
)

// Extract returns an excerpt of content around the first of tokens, in
// query order, that occurs in the lower-cased content. The window runs
// from Before characters ahead of the match to After characters past its
// start, clipped to the content, with Ellipsis marking each clipped side.
// When no token occurs it returns the first FallbackSize characters
// followed by Ellipsis. Positions count runes, never bytes.
func Extract(content string, tokens []string) string {
	lower := strings.ToLower(content)
	match := -1
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if idx := strings.Index(lower, tok); idx >= 0 {
			match = utf8.RuneCountInString(lower[:idx])
			break
		}
	}

	runes := []rune(content)
	if match < 0 {
		return string(runes[:min(FallbackSize, len(runes))]) + Ellipsis
	}

	start := max(0, match-Before)
	end := min(len(runes), match+After)
	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}
