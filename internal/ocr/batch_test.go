package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
)

type recognizerFunc func(ctx context.Context, req Request) models.OCRResult

func (f recognizerFunc) Recognize(ctx context.Context, req Request) models.OCRResult {
	return f(ctx, req)
}

func echoRecognizer(delay time.Duration, inFlight, peak *atomic.Int32) Recognizer {
	return recognizerFunc(func(_ context.Context, req Request) models.OCRResult {
		if inFlight != nil {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			defer inFlight.Add(-1)
		}
		time.Sleep(delay)
		if strings.HasPrefix(req.ImagePath, "bad") {
			return models.Failed(req.ImagePath, failure.Process, "unreadable image")
		}
		return models.OCRResult{Success: true, ImagePath: req.ImagePath, Text: "text of " + req.ImagePath, Blocks: []models.TextBlock{}}
	})
}

func TestProcessSequentialOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	paths := []string{"a.jpg", "bad.jpg", "c.jpg"}
	results := NewBatch(echoRecognizer(time.Millisecond, &inFlight, &peak)).ProcessSequential(context.Background(), paths, Options{})

	require.Len(t, results, 3)
	for i, path := range paths {
		assert.Equal(t, path, results[i].ImagePath)
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "unreadable image", results[1].Error)
	assert.True(t, results[2].Success)
	assert.Equal(t, int32(1), peak.Load())
}

func TestProcessBoundedRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = fmt.Sprintf("img-%02d.jpg", i)
	}
	paths[5] = "bad-05.jpg"

	results := NewBatch(echoRecognizer(20*time.Millisecond, &inFlight, &peak)).ProcessBounded(context.Background(), paths, 4, Options{})

	require.Len(t, results, len(paths))
	for i, path := range paths {
		assert.Equal(t, path, results[i].ImagePath)
	}
	assert.False(t, results[5].Success)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestProcessBoundedDefaultConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	paths := []string{"a", "b", "c", "d", "e", "f", "g"}

	results := NewBatch(echoRecognizer(20*time.Millisecond, &inFlight, &peak)).ProcessBounded(context.Background(), paths, 0, Options{})
	assert.Len(t, results, len(paths))
	assert.LessOrEqual(t, peak.Load(), int32(DefaultConcurrency))
}

func TestProcessBoundedEmpty(t *testing.T) {
	results := NewBatch(echoRecognizer(0, nil, nil)).ProcessBounded(context.Background(), nil, 3, Options{})
	assert.Empty(t, results)
}

func TestBatchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	rec := recognizerFunc(func(_ context.Context, req Request) models.OCRResult {
		calls.Add(1)
		return models.OCRResult{Success: true, ImagePath: req.ImagePath}
	})

	results := NewBatch(rec).ProcessSequential(ctx, []string{"a", "b"}, Options{})
	require.Len(t, results, 2)
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, failure.Process, res.Kind)
	}
	assert.Zero(t, calls.Load())
}

func TestBatchPassesOptions(t *testing.T) {
	var got Request
	rec := recognizerFunc(func(_ context.Context, req Request) models.OCRResult {
		got = req
		return models.OCRResult{Success: true, ImagePath: req.ImagePath}
	})

	NewBatch(rec).ProcessSequential(context.Background(), []string{"a.jpg"}, Options{Languages: []string{"vi", "en"}, UseGPU: true})
	assert.Equal(t, Request{ImagePath: "a.jpg", Languages: []string{"vi", "en"}, UseGPU: true}, got)
}
