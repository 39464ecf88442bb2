package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		tokens []string
		terms  []string
	}{
		{"simple", "database tuning", []string{"database", "tuning"}, []string{"database", "tuning"}},
		{"duplicates keep order", "Redis kafka REDIS", []string{"redis", "kafka", "redis"}, []string{"redis", "kafka"}},
		{"stop words dropped", "the state of the art", []string{"state", "art"}, []string{"state", "art"}},
		{"punctuation", "c++/go, rust!", []string{"go", "rust"}, []string{"go", "rust"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.query, plan.RawQuery)
			assert.Equal(t, tt.tokens, plan.Tokens)
			assert.Equal(t, tt.terms, plan.Terms)
			assert.False(t, plan.Empty())
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "the and of", "!!! ??", "a b c"} {
		plan := Parse(q)
		assert.True(t, plan.Empty(), "query %q", q)
		assert.Empty(t, plan.Terms)
	}
}

func BenchmarkParse(b *testing.B) {
	queries := map[string]string{
		"simple":     "distributed systems",
		"stop_words": "the search of the analytics and the platform",
		"long":       "distributed search analytics platform indexing query processing ranking caching replication",
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Parse(q)
			}
		})
	}
}
