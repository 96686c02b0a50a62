package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/runtimeenv"
)

// Environment is the runtime health cache the engine consults.
// *runtimeenv.Manager satisfies it.
type Environment interface {
	ResolveCommand() string
	CheckEnvironment(ctx context.Context, force bool) runtimeenv.CheckResult
	ResetCache()
}

// Recognizer turns one image into an OCR result.
type Recognizer interface {
	Recognize(ctx context.Context, req Request) models.OCRResult
}

// Engine checks the runtime lazily and retries once after an environment failure.
type Engine struct {
	env     Environment
	invoker *Invoker
}

// NewEngine wires an invoker to a runtime environment.
func NewEngine(env Environment, invoker *Invoker) *Engine {
	return &Engine{env: env, invoker: invoker}
}

// Recognize runs OCR for one image. An Invalid verdict, fresh or cached,
// fails fast; only an invocation that fails with an environment error
// triggers a reset and one forced re-check.
func (e *Engine) Recognize(ctx context.Context, req Request) models.OCRResult {
	check := e.env.CheckEnvironment(ctx, false)
	if !check.Success {
		return unavailable(req, check)
	}

	res := e.invoker.Recognize(ctx, check.CommandPath, req)
	if res.Kind != failure.Environment {
		return res
	}
	slog.Warn("OCR runtime failed, re-checking environment", "image", req.ImagePath, "error", res.Error)

	e.env.ResetCache()
	check = e.env.CheckEnvironment(ctx, true)
	if !check.Success {
		return unavailable(req, check)
	}
	return e.invoker.Recognize(ctx, check.CommandPath, req)
}

func unavailable(req Request, check runtimeenv.CheckResult) models.OCRResult {
	return models.Failed(req.ImagePath, failure.Environment,
		fmt.Sprintf("OCR runtime unavailable (%s): %s", check.CommandPath, check.Details))
}
