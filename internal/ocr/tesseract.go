package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/procexec"
)

// tesseractLanguages maps runtime language codes to tesseract traineddata names.
var tesseractLanguages = map[string]string{
	"vi": "vie",
	"en": "eng",
}

// Tesseract recognizes images with the tesseract CLI. It reports plain text
// only: no blocks and no confidence.
type Tesseract struct {
	runner  procexec.Runner
	command string
}

// NewTesseract returns a recognizer running command (usually "tesseract").
func NewTesseract(runner procexec.Runner, command string) *Tesseract {
	return &Tesseract{runner: runner, command: command}
}

// Args builds the command line for one request.
func (t *Tesseract) Args(req Request) []string {
	langs := make([]string, 0, len(req.Languages))
	for _, l := range req.Languages {
		if mapped, ok := tesseractLanguages[l]; ok {
			l = mapped
		}
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		langs = []string{"vie", "eng"}
	}
	return []string{req.ImagePath, "stdout", "-l", strings.Join(langs, "+"), "--psm", "3"}
}

func (t *Tesseract) Recognize(ctx context.Context, req Request) models.OCRResult {
	out := t.runner.Run(ctx, procexec.Command{Name: t.command, Args: t.Args(req)})
	switch {
	case out.StartErr != nil && ctx.Err() != nil:
		return models.Failed(req.ImagePath, failure.Process, fmt.Sprintf("OCR canceled: %v", out.StartErr))
	case out.StartErr != nil:
		return models.Failed(req.ImagePath, failure.Environment, fmt.Sprintf("failed to start %s: %v", t.command, out.StartErr))
	case out.ExitCode != 0:
		msg := strings.TrimSpace(string(out.Stderr))
		if msg == "" {
			msg = fmt.Sprintf("%s exited with code %d", t.command, out.ExitCode)
		}
		kind := failure.ClassifyMessage(msg)
		if strings.Contains(msg, "Failed loading language") {
			kind = failure.Environment
		}
		return models.Failed(req.ImagePath, kind, msg)
	}

	res := models.OCRResult{
		Success:          true,
		ImagePath:        req.ImagePath,
		Text:             strings.TrimSpace(string(out.Stdout)),
		ProcessingTimeMs: out.Duration.Milliseconds(),
		Blocks:           []models.TextBlock{},
	}
	slog.Info("Recognized image with tesseract", "image", req.ImagePath, "length", len(res.Text))
	return res
}

type fallbackRecognizer struct {
	primary   Recognizer
	secondary Recognizer
}

// WithFallback returns a recognizer that retries a failed image on
// secondary. When both fail the primary failure is reported.
func WithFallback(primary, secondary Recognizer) Recognizer {
	return &fallbackRecognizer{primary: primary, secondary: secondary}
}

func (f *fallbackRecognizer) Recognize(ctx context.Context, req Request) models.OCRResult {
	res := f.primary.Recognize(ctx, req)
	if res.Success || ctx.Err() != nil {
		return res
	}
	slog.Warn("OCR failed, trying fallback engine", "image", req.ImagePath, "kind", res.Kind, "error", res.Error)

	alt := f.secondary.Recognize(ctx, req)
	if alt.Success {
		return alt
	}
	res.Error = fmt.Sprintf("%s (fallback: %s)", res.Error, alt.Error)
	return res
}
