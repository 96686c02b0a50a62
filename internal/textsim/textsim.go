// Package textsim scores how close two short strings are, using Levenshtein
// distance over normalized text.
package textsim

import (
	"fmt"
	"regexp"
	"strings"
)

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Normalize lowercases, drops punctuation and collapses whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// Similarity is 1 - distance/maxLen over normalized inputs, in [0,1].
// Two empty inputs score 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(Levenshtein(na, nb))/float64(maxLen)
}

// Match classes reported by CompareField.
const (
	MatchBothEmpty   = "both_empty"
	MatchNoReference = "no_reference"
	MatchMissing     = "missing"
	MatchExact       = "exact"
	MatchFuzzyHigh   = "fuzzy_high"
	MatchFuzzyMedium = "fuzzy_medium"
	MatchFuzzyLow    = "fuzzy_low"
	MatchNone        = "no_match"
)

// FieldComparison represents comparison for a single metadata field
type FieldComparison struct {
	FieldName string  `json:"field" yaml:"field"`
	Expected  string  `json:"expected" yaml:"expected"`
	Actual    string  `json:"actual" yaml:"actual"`
	Score     float64 `json:"score" yaml:"score"` // 0.0 to 1.0
	Distance  int     `json:"distance" yaml:"distance"`
	Match     string  `json:"match" yaml:"match"`
	Notes     string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CompareField compares a single field using Levenshtein distance
func CompareField(fieldName, expected, actual string) FieldComparison {
	comp := FieldComparison{
		FieldName: fieldName,
		Expected:  expected,
		Actual:    actual,
	}

	expNorm := Normalize(expected)
	actNorm := Normalize(actual)

	switch {
	case expNorm == "" && actNorm == "":
		comp.Score = 0.5
		comp.Match = MatchBothEmpty
		comp.Notes = "Both fields are empty"
		return comp
	case expNorm == "":
		comp.Distance = len([]rune(actNorm))
		comp.Match = MatchNoReference
		comp.Notes = "No reference value (ground truth missing)"
		return comp
	case actNorm == "":
		comp.Distance = len([]rune(expNorm))
		comp.Match = MatchMissing
		comp.Notes = "Field missing from extracted metadata"
		return comp
	case expNorm == actNorm:
		comp.Score = 1.0
		comp.Match = MatchExact
		comp.Notes = "Exact match"
		return comp
	}

	distance := Levenshtein(expNorm, actNorm)
	similarity := 1.0 - float64(distance)/float64(max(len([]rune(expNorm)), len([]rune(actNorm))))
	comp.Distance = distance
	comp.Score = similarity

	switch {
	case similarity > 0.9:
		comp.Match = MatchFuzzyHigh
		comp.Notes = fmt.Sprintf("Very high similarity (%.1f%%), Levenshtein: %d", similarity*100, distance)
	case similarity > 0.7:
		comp.Match = MatchFuzzyMedium
		comp.Notes = fmt.Sprintf("Medium similarity (%.1f%%), Levenshtein: %d", similarity*100, distance)
	case similarity > 0.5:
		comp.Match = MatchFuzzyLow
		comp.Notes = fmt.Sprintf("Low similarity (%.1f%%), Levenshtein: %d", similarity*100, distance)
	default:
		comp.Match = MatchNone
		comp.Notes = fmt.Sprintf("Poor match (%.1f%%), Levenshtein: %d", similarity*100, distance)
	}
	return comp
}
