// Package ollama runs completions against a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/lehigh-university-libraries/coverscan/internal/providers"
)

// DefaultURL is used when neither OLLAMA_URL nor OLLAMA_HOST is set.
const DefaultURL = "http://localhost:11434"

// Ollama is a provider for Ollama
type Ollama struct {
	client *api.Client
}

// New returns a provider for the server at rawURL.
func New(rawURL string, timeout time.Duration) (*Ollama, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	// the SDK appends /api/... itself
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Ollama{client: api.NewClient(base, &http.Client{Timeout: timeout})}, nil
}

func (o *Ollama) Name() string { return "ollama" }

// Complete asks the model for a JSON answer.
func (o *Ollama) Complete(ctx context.Context, r providers.Request) (string, error) {
	messages := make([]api.Message, 0, 2)
	if r.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: r.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: r.Prompt})

	options := map[string]any{"temperature": r.Temperature}
	if r.MaxTokens > 0 {
		options["num_predict"] = r.MaxTokens
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model:    r.Model,
		Messages: messages,
		Stream:   &streamFalse,
		Format:   json.RawMessage(`"json"`),
		Options:  options,
	}

	var content strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			body := statusErr.ErrorMessage
			if body == "" {
				body = statusErr.Status
			}
			return "", &providers.StatusError{StatusCode: statusErr.StatusCode, Body: body}
		}
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return content.String(), nil
}
