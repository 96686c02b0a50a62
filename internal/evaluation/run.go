package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/coverscan/internal/cover"
	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// Scanner produces cover text for items that only carry images.
type Scanner interface {
	ScanCoverSet(ctx context.Context, covers models.CoverSet, opts cover.ScanOptions) cover.ScanResult
}

// ItemResult is the evaluation of one dataset item.
type ItemResult struct {
	ID             string                    `json:"id" yaml:"id"`
	Title          string                    `json:"title" yaml:"title"`
	OCRText        string                    `json:"ocr_text,omitempty" yaml:"ocr_text,omitempty"`
	Metadata       *models.ExtractedMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	RawResponse    string                    `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
	ParseError     string                    `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	Comparison     *Comparison               `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	ProcessingTime time.Duration             `json:"processing_time" yaml:"processing_time"`
	Error          string                    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Runner extracts metadata for every item and scores it.
type Runner struct {
	extractor   extraction.Extractor
	scanner     Scanner
	scanOpts    cover.ScanOptions
	concurrency int
}

// NewRunner creates a runner. scanner may be nil when every item carries
// OCR text; concurrency below 1 runs items one at a time.
func NewRunner(extractor extraction.Extractor, scanner Scanner, scanOpts cover.ScanOptions, concurrency int) *Runner {
	return &Runner{
		extractor:   extractor,
		scanner:     scanner,
		scanOpts:    scanOpts,
		concurrency: max(concurrency, 1),
	}
}

// Run evaluates items and returns one result per item, in input order.
func (r *Runner) Run(ctx context.Context, items []Item) []ItemResult {
	slog.Info("Processing items", "items", len(items), "concurrency", r.concurrency)

	results := make([]ItemResult, len(items))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, item := range items {
		g.Go(func() error {
			slog.Info("Processing item", "id", item.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(items)))
			results[i] = r.processItem(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) processItem(ctx context.Context, item Item) (result ItemResult) {
	start := time.Now()
	result = ItemResult{ID: item.ID, Title: item.Title}
	defer func() { result.ProcessingTime = time.Since(start) }()

	text := strings.TrimSpace(item.OCRText)
	if text == "" && len(item.Covers().Present()) > 0 {
		if r.scanner == nil {
			result.Error = "item has cover images but no OCR runtime is configured"
			return result
		}
		opts := r.scanOpts
		opts.ForwardToExtraction = false
		scan := r.scanner.ScanCoverSet(ctx, item.Covers(), opts)
		if !scan.Success {
			result.Error = fmt.Sprintf("failed to scan covers: %s", scan.Message)
			return result
		}
		text = scan.CombinedText
	}
	if text == "" {
		result.Error = "no OCR text or cover images available"
		return result
	}
	result.OCRText = text

	ext := r.extractor.Extract(ctx, text)
	if !ext.Success {
		result.Error = fmt.Sprintf("failed to extract metadata: %s", ext.Error)
		return result
	}
	result.Metadata = ext.Metadata
	result.RawResponse = ext.RawResponse
	result.ParseError = ext.ParseError

	cmp := CompareMetadata(item, *ext.Metadata)
	result.Comparison = &cmp
	return result
}
