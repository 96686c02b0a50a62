package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"CATALOGING_PROVIDER", "PPLX_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"OLLAMA_URL", "OLLAMA_HOST",
		"COVERSCAN_EXTRACTION_PROVIDER", "COVERSCAN_EXTRACTION_API_KEY", "COVERSCAN_EXTRACTION_OLLAMA_URL",
		"COVERSCAN_OCR_CONCURRENCY", "COVERSCAN_OCR_LANGUAGES", "COVERSCAN_OCR_FALLBACK_COMMAND",
		"COVERSCAN_CATALOG_DRIVER",
	} {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "python3", cfg.OCR.Command)
	assert.Equal(t, "easyocr", cfg.OCR.SmokeModule)
	assert.Equal(t, []string{"vi", "en"}, cfg.OCR.Languages)
	assert.Equal(t, 3, cfg.OCR.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.OCR.CheckTimeout)
	assert.Empty(t, cfg.OCR.FallbackCommand)
	assert.Equal(t, "perplexity", cfg.Extraction.Provider)
	assert.Empty(t, cfg.Extraction.APIKey)
	assert.InDelta(t, 0.1, cfg.Extraction.Temperature, 1e-9)
	assert.Equal(t, 600, cfg.Extraction.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
}

func TestLoadProviderKeysFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		provider string
		key      string
	}{
		{"perplexity", map[string]string{"PPLX_API_KEY": "pplx-1"}, "perplexity", "pplx-1"},
		{"openai via CATALOGING_PROVIDER", map[string]string{"CATALOGING_PROVIDER": "openai", "OPENAI_API_KEY": "sk-1", "PPLX_API_KEY": "pplx-1"}, "openai", "sk-1"},
		{"gemini", map[string]string{"COVERSCAN_EXTRACTION_PROVIDER": "Gemini", "GEMINI_API_KEY": "g-1"}, "gemini", "g-1"},
		{"explicit key wins", map[string]string{"COVERSCAN_EXTRACTION_API_KEY": "explicit", "PPLX_API_KEY": "pplx-1"}, "perplexity", "explicit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.provider, cfg.Extraction.Provider)
			assert.Equal(t, tt.key, cfg.Extraction.APIKey)
		})
	}
}

func TestLoadFallbackCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv("COVERSCAN_OCR_FALLBACK_COMMAND", "tesseract")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", cfg.OCR.FallbackCommand)
}

func TestLoadOllamaHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOGING_PROVIDER", "ollama")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Extraction.OllamaURL)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "coverscan.yaml")
	data := `ocr:
  python_path: /opt/ocr/bin/python
  languages: [en]
  concurrency: 5
extraction:
  provider: ollama
  model: llama3.2
  timeout: 45s
catalog:
  driver: file
  file: books.jsonl
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ocr/bin/python", cfg.OCR.PythonPath)
	assert.Equal(t, []string{"en"}, cfg.OCR.Languages)
	assert.Equal(t, 5, cfg.OCR.Concurrency)
	assert.Equal(t, "ollama", cfg.Extraction.Provider)
	assert.Equal(t, "llama3.2", cfg.Extraction.Model)
	assert.Equal(t, 45*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, "file", cfg.Catalog.Driver)
	assert.Equal(t, "books.jsonl", cfg.Catalog.File)

	t.Setenv("COVERSCAN_OCR_CONCURRENCY", "2")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.OCR.Concurrency)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("CATALOGING_PROVIDER", "claude")
	_, err = Load("")
	assert.ErrorContains(t, err, "unsupported provider")

	t.Setenv("CATALOGING_PROVIDER", "")
	t.Setenv("COVERSCAN_CATALOG_DRIVER", "postgres")
	_, err = Load("")
	assert.ErrorContains(t, err, "unsupported catalog driver")

	t.Setenv("COVERSCAN_CATALOG_DRIVER", "")
	t.Setenv("COVERSCAN_OCR_CONCURRENCY", "0")
	_, err = Load("")
	assert.ErrorContains(t, err, "ocr.concurrency")
}
