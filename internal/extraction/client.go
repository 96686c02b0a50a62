// Package extraction sends aggregated cover text to a language model and
// normalizes the answer into book metadata.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lehigh-university-libraries/coverscan/internal/failure"
	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/providers"
)

// Options tunes requests sent to the provider.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RequestsPerSecond paces calls; 0 disables pacing.
	RequestsPerSecond float64
}

// Result is the outcome of one metadata extraction.
type Result struct {
	Success     bool                      `json:"success" yaml:"success"`
	Metadata    *models.ExtractedMetadata `json:"metadata" yaml:"metadata"`
	RawResponse string                    `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
	ParseError  string                    `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	Kind        failure.Kind              `json:"kind" yaml:"kind"`
	Status      int                       `json:"status,omitempty" yaml:"status,omitempty"`
	Body        string                    `json:"body,omitempty" yaml:"body,omitempty"`
	Error       string                    `json:"error,omitempty" yaml:"error,omitempty"`
}

// SearchTermsResult is the outcome of one search-terms extraction.
type SearchTermsResult struct {
	Success     bool               `json:"success" yaml:"success"`
	Query       models.SearchQuery `json:"query" yaml:"query"`
	Confidence  float64            `json:"confidence" yaml:"confidence"`
	RawResponse string             `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
	ParseError  string             `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	Kind        failure.Kind       `json:"kind" yaml:"kind"`
	Status      int                `json:"status,omitempty" yaml:"status,omitempty"`
	Body        string             `json:"body,omitempty" yaml:"body,omitempty"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Extractor is what the cover pipeline needs from this package.
type Extractor interface {
	Extract(ctx context.Context, rawText string) Result
}

// Client runs the extraction templates against one provider.
type Client struct {
	provider providers.Provider
	opts     Options
	limiter  *rate.Limiter
}

// NewClient creates a client. Unset MaxTokens and Timeout fall back to 600
// and 30s.
func NewClient(provider providers.Provider, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 600
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{provider: provider, opts: opts}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Provider returns the backing provider name.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Extract asks the model for book metadata found in rawText.
func (c *Client) Extract(ctx context.Context, rawText string) Result {
	if strings.TrimSpace(rawText) == "" {
		return Result{Kind: failure.EmptyInput, Error: "OCR text is empty"}
	}

	content, err := c.complete(ctx, metadataSystemPrompt, buildMetadataPrompt(rawText), c.opts.MaxTokens)
	if err != nil {
		status, body, msg := describe(err)
		slog.Error("Metadata extraction failed", "provider", c.provider.Name(), "status", status, "error", err)
		return Result{Kind: failure.API, Status: status, Body: body, Error: msg}
	}

	md, perr := ParseMetadata(content)
	if perr != "" {
		slog.Warn("Could not parse extraction response", "provider", c.provider.Name(), "parse_error", perr)
	}
	slog.Info("Extracted metadata", "provider", c.provider.Name(), "title", models.Str(md.Title), "authors", len(md.Authors))
	return Result{
		Success:     true,
		Metadata:    &md,
		RawResponse: content,
		ParseError:  perr,
	}
}

// ExtractSearchTerms asks the model for catalog search terms.
func (c *Client) ExtractSearchTerms(ctx context.Context, rawText string) SearchTermsResult {
	if strings.TrimSpace(rawText) == "" {
		return SearchTermsResult{Kind: failure.EmptyInput, Error: "OCR text is empty"}
	}

	content, err := c.complete(ctx, searchSystemPrompt, buildSearchPrompt(rawText), min(c.opts.MaxTokens, 500))
	if err != nil {
		status, body, msg := describe(err)
		slog.Error("Search term extraction failed", "provider", c.provider.Name(), "status", status, "error", err)
		return SearchTermsResult{Kind: failure.API, Status: status, Body: body, Error: msg}
	}

	terms, perr := ParseSearchTerms(content)
	return SearchTermsResult{
		Success:     true,
		Query:       terms.Query,
		Confidence:  terms.Confidence,
		RawResponse: content,
		ParseError:  perr,
	}
}

// ExtractAll extracts each text in turn, paced by the rate limiter.
func (c *Client) ExtractAll(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Kind: failure.API, Error: err.Error()}
			continue
		}
		results[i] = c.Extract(ctx, text)
	}
	return results
}

func (c *Client) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	return c.provider.Complete(ctx, providers.Request{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   maxTokens,
		System:      system,
		Prompt:      prompt,
	})
}

func describe(err error) (int, string, string) {
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, statusErr.Body, fmt.Sprintf("API error: %d", statusErr.StatusCode)
	}
	return 0, "", err.Error()
}
