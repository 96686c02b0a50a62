package ocr

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

// DefaultConcurrency caps in-flight OCR processes in bounded mode.
const DefaultConcurrency = 3

// Options apply to every image of a batch.
type Options struct {
	Languages []string
	UseGPU    bool
}

// Batch runs a Recognizer over many images.
type Batch struct {
	rec Recognizer
}

// NewBatch creates a batch orchestrator.
func NewBatch(rec Recognizer) *Batch {
	return &Batch{rec: rec}
}

// ProcessSequential recognizes images one at a time, in input order.
func (b *Batch) ProcessSequential(ctx context.Context, paths []string, opts Options) []models.OCRResult {
	results := make([]models.OCRResult, len(paths))
	for i, path := range paths {
		results[i] = b.one(ctx, path, opts)
	}
	return results
}

// ProcessBounded recognizes images with at most concurrency in flight.
// Results keep input positions.
func (b *Batch) ProcessBounded(ctx context.Context, paths []string, concurrency int, opts Options) []models.OCRResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]models.OCRResult, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = b.one(ctx, path, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (b *Batch) one(ctx context.Context, path string, opts Options) models.OCRResult {
	if err := ctx.Err(); err != nil {
		return models.Failed(path, failure.Process, fmt.Sprintf("OCR canceled: %v", err))
	}
	return b.rec.Recognize(ctx, Request{ImagePath: path, Languages: opts.Languages, UseGPU: opts.UseGPU})
}
