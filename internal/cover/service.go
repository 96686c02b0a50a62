// Package cover scans the faces of one book and turns the combined text
// into metadata.
package cover

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/images"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/ocr"
)

// Outcome summarizes how a scan ended.
type Outcome string

const (
	OutcomeScanned            Outcome = "scanned"
	OutcomeNoCovers           Outcome = "no_covers"
	OutcomeOCRFailed          Outcome = "ocr_failed"
	OutcomeNoText             Outcome = "no_text"
	OutcomeExtracted          Outcome = "extracted"
	OutcomeExtractionFailed   Outcome = "extraction_failed"
	OutcomeExtractionDisabled Outcome = "extraction_disabled"
	OutcomeRulesExtracted     Outcome = "rules_extracted"
)

// Where ScanResult.Metadata came from.
const (
	SourceModel = "model"
	SourceRules = "rules"
)

// ScanOptions apply to one scan.
type ScanOptions struct {
	Languages           []string
	UseGPU              bool
	ForwardToExtraction bool
}

// ScanResult is the outcome of scanning one cover set.
type ScanResult struct {
	Success        bool                                  `json:"success" yaml:"success"`
	Outcome        Outcome                               `json:"outcome" yaml:"outcome"`
	Kind           failure.Kind                          `json:"kind" yaml:"kind"`
	Results        map[models.CoverRole]models.OCRResult `json:"results" yaml:"results"`
	CombinedText   string                                `json:"combined_text" yaml:"combined_text"`
	Metadata       *models.ExtractedMetadata             `json:"metadata" yaml:"metadata"`
	MetadataSource string                                `json:"metadata_source,omitempty" yaml:"metadata_source,omitempty"`
	Extraction     *extraction.Result                    `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Message        string                                `json:"message,omitempty" yaml:"message,omitempty"`
}

// Resolver turns an image reference into a local file.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*images.Local, error)
}

// Service runs OCR over every present cover role, in order, one at a time.
type Service struct {
	recognizer ocr.Recognizer
	extractor  extraction.Extractor
}

// NewService wires the pipeline. extractor may be nil when no provider is
// configured; scans then fall back to rule-based extraction and end with
// OutcomeRulesExtracted, or OutcomeExtractionDisabled when the rules find
// nothing.
func NewService(recognizer ocr.Recognizer, resolver Resolver, extractor extraction.Extractor) *Service {
	return &Service{recognizer: ResolvingRecognizer(recognizer, resolver), extractor: extractor}
}

// ExtractionEnabled reports whether an extractor is configured.
func (s *Service) ExtractionEnabled() bool {
	return s.extractor != nil
}

// ScanCoverSet recognizes each present cover and optionally extracts metadata
// from the combined text.
func (s *Service) ScanCoverSet(ctx context.Context, covers models.CoverSet, opts ScanOptions) ScanResult {
	roles := covers.Present()
	if len(roles) == 0 {
		return ScanResult{
			Outcome: OutcomeNoCovers,
			Kind:    failure.EmptyInput,
			Results: map[models.CoverRole]models.OCRResult{},
			Message: "at least one cover image is required",
		}
	}

	res := ScanResult{Results: make(map[models.CoverRole]models.OCRResult, len(roles))}
	var texts []string
	failed := 0
	for _, role := range roles {
		r := s.scanOne(ctx, covers[role], opts)
		res.Results[role] = r
		if !r.Success {
			failed++
			slog.Warn("Cover OCR failed", "role", role, "kind", r.Kind, "error", r.Error)
			continue
		}
		if text := strings.TrimSpace(r.Text); text != "" {
			texts = append(texts, text)
		}
	}
	res.CombinedText = strings.Join(texts, "\n\n")

	if failed == len(roles) {
		res.Outcome = OutcomeOCRFailed
		res.Kind = failure.Process
		for _, r := range res.Results {
			if r.Kind == failure.Environment {
				res.Kind = failure.Environment
			}
		}
		res.Message = fmt.Sprintf("OCR failed for all %d cover images", len(roles))
		return res
	}

	if res.CombinedText == "" {
		res.Outcome = OutcomeNoText
		res.Kind = failure.EmptyInput
		res.Message = "no text detected on the cover images"
		return res
	}

	res.Success = true
	res.Outcome = OutcomeScanned
	if !opts.ForwardToExtraction {
		return res
	}
	if s.extractor == nil {
		res.Outcome = OutcomeExtractionDisabled
		res.Message = "metadata extraction is not configured"
		if md := ruleMetadata(res.Results); md != nil {
			res.Outcome = OutcomeRulesExtracted
			res.Metadata = md
			res.MetadataSource = SourceRules
		}
		return res
	}

	ext := s.extractor.Extract(ctx, res.CombinedText)
	res.Extraction = &ext
	if !ext.Success {
		res.Outcome = OutcomeExtractionFailed
		res.Message = fmt.Sprintf("metadata extraction failed: %s", ext.Error)
		if md := ruleMetadata(res.Results); md != nil {
			res.Metadata = md
			res.MetadataSource = SourceRules
		}
		return res
	}
	res.Outcome = OutcomeExtracted
	res.Metadata = ext.Metadata
	res.MetadataSource = SourceModel
	return res
}

// ruleMetadata runs the rule extractor over the covers that were read, or
// returns nil when it finds nothing.
func ruleMetadata(results map[models.CoverRole]models.OCRResult) *models.ExtractedMetadata {
	texts := make(map[models.CoverRole]string, len(results))
	for role, r := range results {
		if r.Success {
			texts[role] = r.Text
		}
	}
	md := extraction.RuleExtract(texts)
	if md.IsEmpty() {
		return nil
	}
	return &md
}

func (s *Service) scanOne(ctx context.Context, ref string, opts ScanOptions) models.OCRResult {
	return s.recognizer.Recognize(ctx, ocr.Request{ImagePath: ref, Languages: opts.Languages, UseGPU: opts.UseGPU})
}

// resolvingRecognizer accepts image references (paths or URLs) and hands
// the OCR runtime a local file.
type resolvingRecognizer struct {
	next     ocr.Recognizer
	resolver Resolver
}

// ResolvingRecognizer wraps rec so requests may carry URLs. Results report
// the original reference as their image path.
func ResolvingRecognizer(rec ocr.Recognizer, resolver Resolver) ocr.Recognizer {
	return &resolvingRecognizer{next: rec, resolver: resolver}
}

func (r *resolvingRecognizer) Recognize(ctx context.Context, req ocr.Request) models.OCRResult {
	ref := req.ImagePath
	if err := ctx.Err(); err != nil {
		return models.Failed(ref, failure.Process, fmt.Sprintf("OCR canceled: %v", err))
	}

	local, err := r.resolver.Resolve(ctx, ref)
	if err != nil {
		return models.Failed(ref, failure.Process, err.Error())
	}
	defer local.Cleanup()

	req.ImagePath = local.Path
	res := r.next.Recognize(ctx, req)
	res.ImagePath = ref
	return res
}
