package extraction

import (
	"errors"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/coverscan/internal/gemini"
	"github.com/lehigh-university-libraries/coverscan/internal/ollama"
	"github.com/lehigh-university-libraries/coverscan/internal/openai"
	"github.com/lehigh-university-libraries/coverscan/internal/providers"
)

// ErrDisabled means no credentials are configured for the chosen provider.
var ErrDisabled = errors.New("metadata extraction disabled: no API key configured")

// Settings selects and authenticates a provider.
type Settings struct {
	Provider  string
	APIKey    string
	BaseURL   string
	OllamaURL string
	Timeout   time.Duration
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "ollama":
		return "mistral-small3.2:24b"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "sonar"
	}
}

// NewProvider builds the provider named in s.
func NewProvider(s Settings) (providers.Provider, error) {
	switch s.Provider {
	case "", "perplexity":
		if s.APIKey == "" {
			return nil, ErrDisabled
		}
		url := s.BaseURL
		if url == "" {
			url = openai.PerplexityURL
		}
		return openai.New("perplexity", url, s.APIKey, s.Timeout), nil
	case "openai":
		if s.APIKey == "" {
			return nil, ErrDisabled
		}
		return openai.New("openai", s.BaseURL, s.APIKey, s.Timeout), nil
	case "gemini":
		if s.APIKey == "" {
			return nil, ErrDisabled
		}
		return gemini.New(s.APIKey), nil
	case "ollama":
		p, err := ollama.New(s.OllamaURL, s.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", s.Provider)
	}
}

// New builds a ready client, or ErrDisabled.
func New(s Settings, opts Options) (*Client, error) {
	provider, err := NewProvider(s)
	if err != nil {
		return nil, err
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(provider.Name())
	}
	return NewClient(provider, opts), nil
}
