// Package config loads settings from defaults, an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the commands read.
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

type OCRConfig struct {
	Command           string        `mapstructure:"command"`
	PythonPath        string        `mapstructure:"python_path"`
	Script            string        `mapstructure:"script"`
	SmokeModule       string        `mapstructure:"smoke_module"`
	Languages         []string      `mapstructure:"languages"`
	UseGPU            bool          `mapstructure:"use_gpu"`
	Concurrency       int           `mapstructure:"concurrency"`
	MaxImageDimension int           `mapstructure:"max_image_dimension"`
	CheckTimeout      time.Duration `mapstructure:"check_timeout"`
	// FallbackCommand is a tesseract binary tried when EasyOCR fails; empty disables it.
	FallbackCommand   string        `mapstructure:"fallback_command"`
}

type ExtractionConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	OllamaURL         string        `mapstructure:"ollama_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type CatalogConfig struct {
	// Driver is sqlite, file or vufind.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	File   string `mapstructure:"file"`
	URL    string `mapstructure:"url"`
}

// providerKeyEnv names the conventional API key variable per provider.
var providerKeyEnv = map[string]string{
	"perplexity": "PPLX_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ocr.command", "python3")
	v.SetDefault("ocr.python_path", "")
	v.SetDefault("ocr.script", "")
	v.SetDefault("ocr.smoke_module", "easyocr")
	v.SetDefault("ocr.languages", []string{"vi", "en"})
	v.SetDefault("ocr.use_gpu", false)
	v.SetDefault("ocr.concurrency", 3)
	v.SetDefault("ocr.max_image_dimension", 2048)
	v.SetDefault("ocr.check_timeout", "60s")
	v.SetDefault("ocr.fallback_command", "")

	v.SetDefault("extraction.provider", "perplexity")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.base_url", "")
	v.SetDefault("extraction.ollama_url", "")
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.temperature", 0.1)
	v.SetDefault("extraction.max_tokens", 600)
	v.SetDefault("extraction.timeout", "30s")
	v.SetDefault("extraction.requests_per_second", 2.0)

	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.dsn", "./coverscan.db")
	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.url", "")
}

// Load reads configuration. An empty path looks for coverscan.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COVERSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("extraction.provider", "COVERSCAN_EXTRACTION_PROVIDER", "CATALOGING_PROVIDER"); err != nil {
		return nil, fmt.Errorf("failed to bind provider env: %w", err)
	}
	if err := v.BindEnv("extraction.ollama_url", "COVERSCAN_EXTRACTION_OLLAMA_URL", "OLLAMA_URL", "OLLAMA_HOST"); err != nil {
		return nil, fmt.Errorf("failed to bind ollama env: %w", err)
	}
	for provider, env := range providerKeyEnv {
		if err := v.BindEnv("keys."+provider, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("coverscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Extraction.Provider = strings.ToLower(strings.TrimSpace(cfg.Extraction.Provider))
	if cfg.Extraction.APIKey == "" {
		cfg.Extraction.APIKey = v.GetString("keys." + cfg.Extraction.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case "perplexity", "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Extraction.Provider)
	}
	switch c.Catalog.Driver {
	case "sqlite", "file", "vufind":
	default:
		return fmt.Errorf("unsupported catalog driver: %s (must be sqlite, file or vufind)", c.Catalog.Driver)
	}
	if c.OCR.Concurrency < 1 {
		return fmt.Errorf("ocr.concurrency must be at least 1, got %d", c.OCR.Concurrency)
	}
	if c.OCR.MaxImageDimension < 0 {
		return fmt.Errorf("ocr.max_image_dimension must not be negative")
	}
	return nil
}
