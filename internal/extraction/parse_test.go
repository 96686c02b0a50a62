package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

func ptr(s string) *string { return &s }

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		want       models.ExtractedMetadata
		parseError string
	}{
		{
			name:    "plain object",
			content: `{"title": "Dune", "author": "Frank Herbert", "translator": null, "publisher": "Ace", "year": "1965", "isbn": "978-0-441-17271-9", "description": "Desert planet."}`,
			want: models.ExtractedMetadata{
				Title:       ptr("Dune"),
				Authors:     []string{"Frank Herbert"},
				Publisher:   ptr("Ace"),
				Year:        ptr("1965"),
				ISBN:        ptr("9780441172719"),
				Description: ptr("Desert planet."),
			},
		},
		{
			name:    "fenced with capitalized keys",
			content: "```json\n{\"Title\": \"Nhà Giả Kim\", \"Author\": \"Paulo Coelho\", \"Translator\": \"Lê Chu Cầu\", \"Year\": 2020, \"ISBN\": \"893-5235-22-6\"}\n```",
			want: models.ExtractedMetadata{
				Title:      ptr("Nhà Giả Kim"),
				Authors:    []string{"Paulo Coelho"},
				Translator: ptr("Lê Chu Cầu"),
				Year:       ptr("2020"),
				ISBN:       ptr("8935235226"),
			},
		},
		{
			name:    "prose around the object",
			content: "Here is the metadata you asked for:\n{\"title\": \"Clean Code\", \"author\": \"Robert C. Martin\"}\nLet me know if you need more.",
			want: models.ExtractedMetadata{
				Title:   ptr("Clean Code"),
				Authors: []string{"Robert C. Martin"},
			},
		},
		{
			name:    "authors split on separators",
			content: `{"title": "Good Omens", "author": "Terry Pratchett & Neil Gaiman; Someone Else and Another Person", "publisher": "  ", "translator": "null"}`,
			want: models.ExtractedMetadata{
				Title:   ptr("Good Omens"),
				Authors: []string{"Terry Pratchett", "Neil Gaiman", "Someone Else", "Another Person"},
			},
		},
		{
			name:    "vietnamese conjunction",
			content: `{"author": "Nguyễn Nhật Ánh và Đỗ Hoàng Tường"}`,
			want: models.ExtractedMetadata{
				Authors: []string{"Nguyễn Nhật Ánh", "Đỗ Hoàng Tường"},
			},
		},
		{
			name:    "authors array wins over author",
			content: `{"authors": ["A. Writer", "B. Writer"], "author": "ignored"}`,
			want: models.ExtractedMetadata{
				Authors: []string{"A. Writer", "B. Writer"},
			},
		},
		{
			name:    "isbn with check digit X",
			content: `{"isbn": "ISBN 0-8044-2957-x"}`,
			want: models.ExtractedMetadata{
				ISBN: ptr("080442957X"),
			},
		},
		{
			name:       "empty response",
			content:    "   ",
			parseError: ParseErrorEmpty,
		},
		{
			name:       "no json",
			content:    "I could not find any book information.",
			parseError: ParseErrorFormat,
		},
		{
			name:       "broken json",
			content:    `{"title": "Dune", "author": }`,
			parseError: ParseErrorFormat,
		},
		{
			name:       "array instead of object",
			content:    `["Dune"]`,
			parseError: ParseErrorFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, perr := ParseMetadata(tt.content)
			assert.Equal(t, tt.parseError, perr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsedMetadataAlwaysHasAllKeys(t *testing.T) {
	for _, content := range []string{"", "garbage", `{"title": "Only title"}`} {
		md, _ := ParseMetadata(content)
		data, err := json.Marshal(md)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		for _, key := range []string{"title", "authors", "translator", "publisher", "year", "isbn", "description"} {
			assert.Contains(t, fields, key)
		}
	}
}

func TestParseSearchTerms(t *testing.T) {
	content := "```json\n" + `{
  "title": "Nhà Giả Kim",
  "author": "Paulo Coelho",
  "alternative_title": "The Alchemist",
  "keywords": ["giả kim", "Coelho", " "],
  "confidence": 0.85
}` + "\n```"

	terms, perr := ParseSearchTerms(content)
	require.Empty(t, perr)
	assert.Equal(t, models.SearchQuery{
		Title:            "Nhà Giả Kim",
		Author:           "Paulo Coelho",
		AlternativeTitle: "The Alchemist",
		Keywords:         []string{"giả kim", "Coelho"},
	}, terms.Query)
	assert.InDelta(t, 0.85, terms.Confidence, 1e-9)
}

func TestParseSearchTermsKeywordString(t *testing.T) {
	terms, perr := ParseSearchTerms(`{"title": "Dune", "keywords": "arrakis, spice; desert", "confidence": 90}`)
	require.Empty(t, perr)
	assert.Equal(t, []string{"arrakis", "spice", "desert"}, terms.Query.Keywords)
	assert.InDelta(t, 0.9, terms.Confidence, 1e-9)
}

func TestParseSearchTermsFailure(t *testing.T) {
	terms, perr := ParseSearchTerms("sorry")
	assert.Equal(t, ParseErrorFormat, perr)
	assert.Equal(t, SearchTerms{}, terms)
}
