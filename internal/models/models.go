package models

import (
	"fmt"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
)

// TextBlock is one region of recognized text
type TextBlock struct {
	BoundingBox [][2]float64 `json:"bbox" yaml:"bbox"`
	Text        string       `json:"text" yaml:"text"`
	Confidence  float64      `json:"confidence" yaml:"confidence"`
}

// OCRResult is the outcome of one OCR pass over one image.
// Confidence is normalized to [0,1].
type OCRResult struct {
	Success          bool         `json:"success" yaml:"success"`
	ImagePath        string       `json:"image_path" yaml:"image_path"`
	Text             string       `json:"text" yaml:"text"`
	Confidence       float64      `json:"confidence" yaml:"confidence"`
	ProcessingTimeMs int64        `json:"processing_time_ms" yaml:"processing_time_ms"`
	Blocks           []TextBlock  `json:"blocks" yaml:"blocks"`
	Error            string       `json:"error,omitempty" yaml:"error,omitempty"`
	Kind             failure.Kind `json:"kind" yaml:"kind"`
	// RawOutput holds stdout when it could not be decoded
	RawOutput string `json:"raw_output,omitempty" yaml:"raw_output,omitempty"`
}

// Failed builds an unsuccessful result for imagePath.
func Failed(imagePath string, kind failure.Kind, msg string) OCRResult {
	return OCRResult{
		ImagePath: imagePath,
		Error:     msg,
		Kind:      kind,
		Blocks:    []TextBlock{},
	}
}

// CoverRole is a physical face of a book cover
type CoverRole string

const (
	CoverFront  CoverRole = "front"
	CoverSpine  CoverRole = "spine"
	CoverInside CoverRole = "inside"
	CoverBack   CoverRole = "back"
)

// CoverRoles is the order cover faces are always processed in.
var CoverRoles = []CoverRole{CoverFront, CoverSpine, CoverInside, CoverBack}

// ParseCoverRole validates a role name.
func ParseCoverRole(s string) (CoverRole, error) {
	for _, role := range CoverRoles {
		if string(role) == s {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid cover role %q (must be front, spine, inside or back)", s)
}

// CoverSet maps cover roles to image references (file paths or URLs).
type CoverSet map[CoverRole]string

// Present returns the roles that carry an image, in processing order.
func (c CoverSet) Present() []CoverRole {
	roles := make([]CoverRole, 0, len(CoverRoles))
	for _, role := range CoverRoles {
		if c[role] != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// ExtractedMetadata is the normalized result of metadata extraction.
// Every field is nullable and is always serialized, never omitted.
type ExtractedMetadata struct {
	Title       *string  `json:"title" yaml:"title"`
	Authors     []string `json:"authors" yaml:"authors"`
	Translator  *string  `json:"translator" yaml:"translator"`
	Publisher   *string  `json:"publisher" yaml:"publisher"`
	Year        *string  `json:"year" yaml:"year"`
	ISBN        *string  `json:"isbn" yaml:"isbn"`
	Description *string  `json:"description" yaml:"description"`
}

// IsEmpty reports whether no field was extracted.
func (m ExtractedMetadata) IsEmpty() bool {
	return m.Title == nil && len(m.Authors) == 0 && m.Translator == nil &&
		m.Publisher == nil && m.Year == nil && m.ISBN == nil && m.Description == nil
}

// Str returns the value of a nullable field or "".
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CatalogRecord is the narrow projection of a catalog book used for matching
type CatalogRecord struct {
	ID          string   `json:"id" yaml:"id" parquet:"id"`
	Title       string   `json:"title" yaml:"title" parquet:"title"`
	Authors     []string `json:"authors" yaml:"authors" parquet:"authors,list"`
	CoverURL    string   `json:"cover_url,omitempty" yaml:"cover_url,omitempty" parquet:"cover_url"`
	ISBN        string   `json:"isbn,omitempty" yaml:"isbn,omitempty" parquet:"isbn"`
	Publisher   string   `json:"publisher,omitempty" yaml:"publisher,omitempty" parquet:"publisher"`
	Year        string   `json:"year,omitempty" yaml:"year,omitempty" parquet:"year"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" parquet:"description"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty" parquet:"status"`
}

// StatusApproved marks records visible to matching
const StatusApproved = "approved"

// SearchQuery holds the terms used to look a book up in the catalog
type SearchQuery struct {
	Title            string   `json:"title" yaml:"title"`
	Author           string   `json:"author" yaml:"author"`
	AlternativeTitle string   `json:"alternative_title" yaml:"alternative_title"`
	Keywords         []string `json:"keywords" yaml:"keywords"`
}

// MatchCandidate is a catalog record ranked against a query.
type MatchCandidate struct {
	Record     CatalogRecord `json:"record" yaml:"record"`
	MatchScore int           `json:"match_score" yaml:"match_score"`
}

// RuntimeHealth is a snapshot of the OCR runtime check cache
type RuntimeHealth struct {
	Checked     bool   `json:"checked" yaml:"checked"`
	Valid       bool   `json:"valid" yaml:"valid"`
	CommandPath string `json:"command_path" yaml:"command_path"`
}
