package textsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  The   Great Gatsby! ": "the great gatsby",
		"Nhà Giả Kim:":           "nhà giả kim",
		"O'Reilly & Sons":        "oreilly sons",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"gatsby", "gatsby", 0},
		// diacritics count as one edit, not one per byte
		{"kim", "kìm", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Dune", "DUNE."))
	assert.Equal(t, 0.0, Similarity("", "Dune"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.InDelta(t, 0.8, Similarity("Clean Code", "Clean Coda!"), 0.11)
	assert.Less(t, Similarity("Dune", "Foundation"), 0.5)
}

func TestCompareField(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		match    string
		score    float64
	}{
		{"both empty", "", "", MatchBothEmpty, 0.5},
		{"no reference", "", "Dune", MatchNoReference, 0},
		{"missing", "Dune", "", MatchMissing, 0},
		{"exact after normalization", "The Hobbit", "the hobbit.", MatchExact, 1},
		{"high", "The Lord of the Rings", "The Lord of the Ring", MatchFuzzyHigh, 0.95},
		{"poor", "Dune", "Emma", MatchNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := CompareField("title", tt.expected, tt.actual)
			assert.Equal(t, tt.match, comp.Match)
			assert.InDelta(t, tt.score, comp.Score, 0.01)
			assert.Equal(t, "title", comp.FieldName)
			assert.NotEmpty(t, comp.Notes)
		})
	}
}
