// Package providers defines the chat-completion contract shared by the
// language model backends.
package providers

import (
	"context"
	"fmt"
)

// Request is one system+user completion request
type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	System      string
	Prompt      string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is returned when the upstream answered with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-200 status code: %d - %s", e.StatusCode, e.Body)
}
