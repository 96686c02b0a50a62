// Package openai talks to OpenAI-compatible chat-completions endpoints,
// which includes Perplexity.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/coverscan/internal/providers"
)

const (
	OpenAIURL     = "https://api.openai.com/v1/chat/completions"
	PerplexityURL = "https://api.perplexity.ai/chat/completions"
)

// OpenAI is a provider for OpenAI-compatible APIs
type OpenAI struct {
	name       string
	url        string
	apiKey     string
	httpClient *http.Client
}

// New returns a provider posting to url with a bearer token.
func New(name, url, apiKey string, timeout time.Duration) *OpenAI {
	if url == "" {
		url = OpenAIURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		name:       name,
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Name() string { return o.name }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Complete sends one chat completion and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, r providers.Request) (string, error) {
	messages := make([]message, 0, 2)
	if r.System != "" {
		messages = append(messages, message{Role: "system", Content: r.System})
	}
	messages = append(messages, message{Role: "user", Content: r.Prompt})

	requestBody, err := json.Marshal(chatRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", &providers.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", nil
	}

	return response.Choices[0].Message.Content, nil
}
