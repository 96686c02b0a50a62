package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/coverscan/internal/catalog"
	"github.com/lehigh-university-libraries/coverscan/internal/config"
	"github.com/lehigh-university-libraries/coverscan/internal/cover"
	"github.com/lehigh-university-libraries/coverscan/internal/extraction"
	"github.com/lehigh-university-libraries/coverscan/internal/images"
	"github.com/lehigh-university-libraries/coverscan/internal/ocr"
	"github.com/lehigh-university-libraries/coverscan/internal/procexec"
	"github.com/lehigh-university-libraries/coverscan/internal/report"
	"github.com/lehigh-university-libraries/coverscan/internal/runtimeenv"
)

// app carries the loaded configuration and builds services on demand.
type app struct {
	cfg    *config.Config
	format report.Format

	manager *runtimeenv.Manager
}

func (a *app) runtime() *runtimeenv.Manager {
	if a.manager == nil {
		a.manager = runtimeenv.NewManager(procexec.NewExecRunner(), runtimeenv.Options{
			Command:     a.cfg.OCR.Command,
			PythonPath:  a.cfg.OCR.PythonPath,
			SmokeModule: a.cfg.OCR.SmokeModule,
			Timeout:     a.cfg.OCR.CheckTimeout,
		})
	}
	return a.manager
}

// engine is the EasyOCR engine, backed by tesseract when a fallback
// command is configured.
func (a *app) engine() ocr.Recognizer {
	runner := procexec.NewExecRunner()
	engine := ocr.NewEngine(a.runtime(), ocr.NewInvoker(runner, a.cfg.OCR.Script))
	if a.cfg.OCR.FallbackCommand == "" {
		return engine
	}
	return ocr.WithFallback(engine, ocr.NewTesseract(runner, a.cfg.OCR.FallbackCommand))
}

func (a *app) resolver() *images.Resolver {
	return images.NewResolver(a.cfg.OCR.MaxImageDimension)
}

// recognizer accepts paths or URLs.
func (a *app) recognizer() ocr.Recognizer {
	return cover.ResolvingRecognizer(a.engine(), a.resolver())
}

func (a *app) ocrOptions() ocr.Options {
	return ocr.Options{Languages: a.cfg.OCR.Languages, UseGPU: a.cfg.OCR.UseGPU}
}

func (a *app) scanOptions(forward bool) cover.ScanOptions {
	return cover.ScanOptions{Languages: a.cfg.OCR.Languages, UseGPU: a.cfg.OCR.UseGPU, ForwardToExtraction: forward}
}

// extractor returns nil, nil when no credentials are configured.
func (a *app) extractor() (*extraction.Client, error) {
	e := a.cfg.Extraction
	client, err := extraction.New(extraction.Settings{
		Provider:  e.Provider,
		APIKey:    e.APIKey,
		BaseURL:   e.BaseURL,
		OllamaURL: e.OllamaURL,
		Timeout:   e.Timeout,
	}, extraction.Options{
		Model:             e.Model,
		Temperature:       e.Temperature,
		MaxTokens:         e.MaxTokens,
		Timeout:           e.Timeout,
		RequestsPerSecond: e.RequestsPerSecond,
	})
	if errors.Is(err, extraction.ErrDisabled) {
		slog.Warn("Metadata extraction disabled", "provider", e.Provider)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	return client, nil
}

// requireExtractor is extractor for commands that cannot run without one.
func (a *app) requireExtractor() (*extraction.Client, error) {
	client, err := a.extractor()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w for provider %s", extraction.ErrDisabled, a.cfg.Extraction.Provider)
	}
	return client, nil
}

func (a *app) coverService() (*cover.Service, error) {
	client, err := a.extractor()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return cover.NewService(a.engine(), a.resolver(), nil), nil
	}
	return cover.NewService(a.engine(), a.resolver(), client), nil
}

// store opens the configured catalog. The returned close func is never nil.
func (a *app) store(ctx context.Context) (catalog.Store, func() error, error) {
	c := a.cfg.Catalog
	noop := func() error { return nil }

	switch c.Driver {
	case "file":
		if c.File == "" {
			return nil, noop, fmt.Errorf("catalog.file is required for the file driver")
		}
		records, err := catalog.LoadRecords(c.File)
		if err != nil {
			return nil, noop, err
		}
		return catalog.NewMemoryStore(records), noop, nil
	case "vufind":
		if c.URL == "" {
			return nil, noop, fmt.Errorf("catalog.url is required for the vufind driver")
		}
		return catalog.NewVuFindStore(c.URL), noop, nil
	default:
		s, err := a.sqliteStore(ctx)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
}

func (a *app) sqliteStore(ctx context.Context) (*catalog.SQLiteStore, error) {
	s := catalog.NewSQLiteStore(a.cfg.Catalog.DSN)
	if err := s.Connect(); err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
