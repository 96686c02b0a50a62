package evaluation

import (
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/textsim"
)

// FieldWeight is the importance of one metadata field in the overall score.
type FieldWeight struct {
	Field  string
	Weight float64
}

// DefaultFieldWeights rank fields by how much they matter for finding a book.
var DefaultFieldWeights = []FieldWeight{
	{"title", 0.40},
	{"authors", 0.25},
	{"translator", 0.10},
	{"publisher", 0.10},
	{"year", 0.05},
	{"isbn", 0.10},
}

// Comparison scores extracted metadata against a reference.
type Comparison struct {
	OverallScore float64                   `json:"overall_score" yaml:"overall_score"`
	Fields       []textsim.FieldComparison `json:"fields" yaml:"fields"`
}

// CompareMetadata compares every weighted field. Fields without a reference
// value are reported but left out of the overall score.
func CompareMetadata(ref Item, got models.ExtractedMetadata) Comparison {
	values := map[string][2]string{
		"title":      {ref.Title, models.Str(got.Title)},
		"authors":    {joinAuthors(ref.Authors), joinAuthors(got.Authors)},
		"translator": {ref.Translator, models.Str(got.Translator)},
		"publisher":  {ref.Publisher, models.Str(got.Publisher)},
		"year":       {ref.Year, models.Str(got.Year)},
		"isbn":       {extraction.NormalizeISBN(ref.ISBN), models.Str(got.ISBN)},
	}

	cmp := Comparison{Fields: make([]textsim.FieldComparison, 0, len(DefaultFieldWeights))}
	var totalWeight, weighted float64
	for _, fw := range DefaultFieldWeights {
		v := values[fw.Field]
		fc := textsim.CompareField(fw.Field, v[0], v[1])
		cmp.Fields = append(cmp.Fields, fc)
		if fc.Match == textsim.MatchNoReference || fc.Match == textsim.MatchBothEmpty {
			continue
		}
		totalWeight += fw.Weight
		weighted += fw.Weight * fc.Score
	}
	if totalWeight > 0 {
		cmp.OverallScore = weighted / totalWeight
	}
	return cmp
}

// joinAuthors compares author lists independent of order and case.
func joinAuthors(authors []string) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, textsim.Normalize(a))
		}
	}
	slices.Sort(names)
	return strings.Join(names, "; ")
}
