// Package ocr drives the external OCR runtime: one process per image,
// a retrying engine on top, and batch helpers.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/procexec"
)

// Request is one image to recognize.
type Request struct {
	ImagePath string
	Languages []string
	UseGPU    bool
}

// Invoker runs the OCR runtime once per image.
type Invoker struct {
	runner procexec.Runner
	// Script is prepended to the arguments when the runtime is an interpreter.
	script string
}

// NewInvoker creates an invoker. script may be empty when the command is
// itself the OCR entrypoint.
func NewInvoker(runner procexec.Runner, script string) *Invoker {
	return &Invoker{runner: runner, script: script}
}

// Args builds the runtime argument list for a request.
func (i *Invoker) Args(req Request) []string {
	args := make([]string, 0, 4)
	if i.script != "" {
		args = append(args, i.script)
	}
	gpu := "false"
	if req.UseGPU {
		gpu = "true"
	}
	return append(args, req.ImagePath, strings.Join(req.Languages, ","), gpu)
}

// Recognize invokes the runtime and classifies the outcome. It never retries.
func (i *Invoker) Recognize(ctx context.Context, commandPath string, req Request) models.OCRResult {
	out := i.runner.Run(ctx, procexec.Command{Name: commandPath, Args: i.Args(req)})

	if len(out.Stderr) > 0 {
		slog.Debug("OCR runtime stderr", "image", req.ImagePath, "stderr", string(out.Stderr))
	}

	if out.StartErr != nil {
		if ctx.Err() != nil {
			return models.Failed(req.ImagePath, failure.Process, fmt.Sprintf("OCR canceled: %v", out.StartErr))
		}
		return models.Failed(req.ImagePath, failure.Environment, fmt.Sprintf("failed to start OCR runtime %s: %v", commandPath, out.StartErr))
	}

	if out.ExitCode != 0 {
		stderr := string(out.Stderr)
		msg := stderr
		if strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("OCR runtime exited with code %d", out.ExitCode)
		}
		return models.Failed(req.ImagePath, failure.ClassifyMessage(stderr), msg)
	}

	payload, err := decodeOutput(out.Stdout)
	if err != nil {
		res := models.Failed(req.ImagePath, failure.Parse, err.Error())
		res.RawOutput = string(out.Stdout)
		return res
	}

	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "OCR runtime reported failure"
		}
		return models.Failed(req.ImagePath, failure.ClassifyMessage(msg), msg)
	}

	res := payload.toResult(req.ImagePath)
	if res.ProcessingTimeMs == 0 && payload.processingTime() == nil {
		res.ProcessingTimeMs = out.Duration.Milliseconds()
	}
	slog.Info("Recognized image", "image", req.ImagePath, "confidence", res.Confidence, "blocks", len(res.Blocks), "length", len(res.Text))
	return res
}

// runtimeOutput mirrors the JSON object printed by the OCR script.
// Both snake and camel spellings are accepted.
type runtimeOutput struct {
	Success          bool           `json:"success"`
	FullText         *string        `json:"full_text"`
	Text             *string        `json:"text"`
	AvgConfidence    *float64       `json:"avg_confidence"`
	Confidence       *float64       `json:"confidence"`
	ProcessingTime   *float64       `json:"processing_time"`
	ProcessingTimeCC *float64       `json:"processingTime"`
	Blocks           []runtimeBlock `json:"blocks"`
	NumBlocks        int            `json:"num_blocks"`
	Error            string         `json:"error"`
}

type runtimeBlock struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	BBox       [][2]float64 `json:"bbox"`
	Box        [][2]float64 `json:"box"`
}

func decodeOutput(stdout []byte) (runtimeOutput, error) {
	var payload runtimeOutput
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return payload, fmt.Errorf("failed to parse OCR output: empty stdout")
	}
	if trimmed[0] != '{' {
		return payload, fmt.Errorf("failed to parse OCR output: expected a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&payload); err != nil {
		return payload, fmt.Errorf("failed to parse OCR output: %w", err)
	}
	if dec.More() {
		return payload, fmt.Errorf("failed to parse OCR output: trailing data after JSON object")
	}
	return payload, nil
}

func (p runtimeOutput) processingTime() *float64 {
	if p.ProcessingTime != nil {
		return p.ProcessingTime
	}
	return p.ProcessingTimeCC
}

func (p runtimeOutput) toResult(imagePath string) models.OCRResult {
	res := models.OCRResult{
		Success:   true,
		ImagePath: imagePath,
		Kind:      failure.None,
		Blocks:    make([]models.TextBlock, 0, len(p.Blocks)),
	}

	switch {
	case p.FullText != nil:
		res.Text = *p.FullText
	case p.Text != nil:
		res.Text = *p.Text
	}

	switch {
	case p.AvgConfidence != nil:
		res.Confidence = NormalizeConfidence(*p.AvgConfidence)
	case p.Confidence != nil:
		res.Confidence = NormalizeConfidence(*p.Confidence)
	}

	if seconds := p.processingTime(); seconds != nil && *seconds > 0 {
		res.ProcessingTimeMs = int64(*seconds * 1000)
	}

	for _, b := range p.Blocks {
		box := b.BBox
		if box == nil {
			box = b.Box
		}
		res.Blocks = append(res.Blocks, models.TextBlock{
			BoundingBox: box,
			Text:        b.Text,
			Confidence:  NormalizeConfidence(b.Confidence),
		})
	}

	if res.Text == "" && len(res.Blocks) > 0 {
		lines := make([]string, 0, len(res.Blocks))
		for _, b := range res.Blocks {
			lines = append(lines, b.Text)
		}
		res.Text = strings.Join(lines, "\n")
	}
	return res
}

// NormalizeConfidence maps a runtime confidence to [0,1]. Values above 1 are
// read as percentages.
func NormalizeConfidence(c float64) float64 {
	if c > 1 {
		c /= 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
