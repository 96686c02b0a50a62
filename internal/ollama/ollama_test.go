package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/coverscan/internal/providers"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"title\":\"Dune\"}"},"done":true}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL+"/api/chat", time.Second)
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), providers.Request{
		Model:       "llama3",
		Temperature: 0.1,
		MaxTokens:   600,
		System:      "sys",
		Prompt:      "user",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Dune"}`, out)

	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, false, got["stream"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	options, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.1, options["temperature"], 1e-9)
	assert.EqualValues(t, 600, options["num_predict"])
}

func TestCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("model llama3 not found"))
	}))
	defer srv.Close()

	p, err := New(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), providers.Request{Model: "llama3", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	}
}

func TestNewAcceptsBareHost(t *testing.T) {
	p, err := New("localhost:11434", 0)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}
