package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"quiz_backend/internal/config"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleter(t *testing.T) {
	var (
		mu      sync.Mutex
		gotAuth string
		gotBody chatCompletionRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		gotBody = chatCompletionRequest{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Well argued."}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(config.AIConfig{BaseURL: srv.URL + "/v1/", APIKey: "default-key", Model: "default-model"})

	out, err := c.Complete(context.Background(), CompletionRequest{Model: "course-model", Prompt: "grade this"})
	require.NoError(t, err)
	assert.Equal(t, "Well argued.", out.Text)
	assert.Equal(t, "course-model", out.Model)
	assert.NotEmpty(t, out.Raw)
	mu.Lock()
	assert.Equal(t, "Bearer default-key", gotAuth)
	assert.Equal(t, "course-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "grade this", gotBody.Messages[0].Content)
	mu.Unlock()

	_, err = c.Complete(context.Background(), CompletionRequest{APIKey: "course-key", Prompt: "p"})
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer course-key", gotAuth)
	assert.Equal(t, "default-model", gotBody.Model)
}

func TestOpenAICompleterErrors(t *testing.T) {
	var mu sync.Mutex
	status := http.StatusTooManyRequests
	body := `{"error":{"message":"rate limited"}}`
	respond := func(code int, payload string) {
		mu.Lock()
		status, body = code, payload
		mu.Unlock()
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(config.AIConfig{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	respond(http.StatusOK, `{"choices":[]}`)
	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	assert.Error(t, err)

	respond(http.StatusOK, `not json`)
	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	assert.Error(t, err)

	c.UpdateConfig(config.AIConfig{BaseURL: srv.URL})
	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
