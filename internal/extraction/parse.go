package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// Parse error codes reported alongside all-null metadata.
const (
	ParseErrorEmpty  = "empty_response"
	ParseErrorFormat = "cannot_parse"
)

var (
	fencePattern      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	authorSeparators  = regexp.MustCompile(`(?i)\s*(?:;|&|\s+and\s+|\s+và\s+)\s*`)
	keywordSeparators = regexp.MustCompile(`\s*[,;]\s*`)
)

// ParseMetadata turns a model answer into normalized metadata. When no JSON
// object can be recovered it returns all-null metadata and a parse error code.
func ParseMetadata(content string) (models.ExtractedMetadata, string) {
	obj, perr := decodeObject(content)
	if perr != "" {
		return models.ExtractedMetadata{}, perr
	}

	md := models.ExtractedMetadata{
		Title:       stringField(obj, "title", "Title"),
		Translator:  stringField(obj, "translator", "Translator"),
		Publisher:   stringField(obj, "publisher", "Publisher"),
		Year:        stringField(obj, "year", "Year"),
		ISBN:        normalizeISBN(stringField(obj, "isbn", "ISBN", "Isbn")),
		Description: stringField(obj, "description", "Description"),
	}
	if v, ok := lookup(obj, "authors", "Authors"); ok {
		md.Authors = splitAuthors(v)
	}
	if md.Authors == nil {
		if v, ok := lookup(obj, "author", "Author"); ok {
			md.Authors = splitAuthors(v)
		}
	}
	return md, ""
}

// SearchTerms is the parsed answer of the search-terms template.
type SearchTerms struct {
	Query      models.SearchQuery
	Confidence float64
}

// ParseSearchTerms applies the same recovery as ParseMetadata to a
// search-terms answer.
func ParseSearchTerms(content string) (SearchTerms, string) {
	obj, perr := decodeObject(content)
	if perr != "" {
		return SearchTerms{}, perr
	}

	terms := SearchTerms{
		Query: models.SearchQuery{
			Title:            models.Str(stringField(obj, "title", "Title")),
			Author:           models.Str(stringField(obj, "author", "Author")),
			AlternativeTitle: models.Str(stringField(obj, "alternative_title", "alternativeTitle", "Alternative_Title")),
		},
	}
	if v, ok := lookup(obj, "keywords", "Keywords"); ok {
		terms.Query.Keywords = stringList(v, keywordSeparators)
	}
	if v, ok := lookup(obj, "confidence", "Confidence"); ok {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				terms.Confidence = clamp01(f)
			}
		}
	}
	return terms, ""
}

// decodeObject strips code fences, then tries the whole body and finally
// the span from the first '{' to the last '}'.
func decodeObject(content string) (map[string]any, string) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, ParseErrorEmpty
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if obj, ok := unmarshalObject(text); ok {
		return obj, ""
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if obj, ok := unmarshalObject(text[start : end+1]); ok {
			return obj, ""
		}
	}
	return nil, ParseErrorFormat
}

func unmarshalObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return obj, true
}

func lookup(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys ...string) *string {
	v, ok := lookup(obj, keys...)
	if !ok {
		return nil
	}
	return scalar(v)
}

func scalar(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		return nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if p := scalar(item); p != nil {
				parts = append(parts, *p)
			}
		}
		s = strings.Join(parts, ", ")
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func splitAuthors(v any) []string {
	return stringList(v, authorSeparators)
}

func stringList(v any, sep *regexp.Regexp) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if p := scalar(item); p != nil {
				raw = append(raw, *p)
			}
		}
	default:
		if p := scalar(t); p != nil {
			raw = append(raw, *p)
		}
	}

	var out []string
	for _, r := range raw {
		for _, part := range sep.Split(r, -1) {
			part = strings.TrimSpace(part)
			if part == "" || strings.EqualFold(part, "null") {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

func normalizeISBN(s *string) *string {
	if s == nil {
		return nil
	}
	out := NormalizeISBN(*s)
	if out == "" {
		return nil
	}
	return &out
}

// NormalizeISBN keeps digits and the X check character.
func NormalizeISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		}
	}
	return b.String()
}

func clamp01(f float64) float64 {
	if f > 1 {
		f /= 100
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
