package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"quiz_backend/internal/config"
	"quiz_backend/pkg/tracing"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// CompletionRequest carries per-course credentials; empty fields fall back to
// the client defaults.
type CompletionRequest struct {
	APIKey string
	Model  string
	Prompt string
}

type Completion struct {
	Text  string
	Model string
	Raw   []byte
}

// Completer turns a prompt into a text response.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

var ErrMissingAPIKey = errors.New("no AI API key configured")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAICompleter talks to an OpenAI compatible /chat/completions endpoint.
type OpenAICompleter struct {
	mu     sync.RWMutex
	cfg    config.AIConfig
	client *resty.Client
}

func NewOpenAICompleter(cfg config.AIConfig) *OpenAICompleter {
	c := &OpenAICompleter{}
	c.UpdateConfig(cfg)
	return c
}

// UpdateConfig swaps endpoint and default credentials, used on config reload.
func (c *OpenAICompleter) UpdateConfig(cfg config.AIConfig) {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json")

	c.mu.Lock()
	c.cfg = cfg
	c.client = client
	c.mu.Unlock()
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c.mu.RLock()
	cfg, client := c.cfg, c.client
	c.mu.RUnlock()

	apiKey := firstNonEmpty(req.APIKey, cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	modelName := firstNonEmpty(req.Model, cfg.Model)

	ctx, span := tracing.Tracer.Start(ctx, "ai.complete")
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", modelName))

	resp, err := client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(chatCompletionRequest{
			Model:    modelName,
			Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		}).
		Post("/chat/completions")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("malformed AI response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("AI API error (status %d): %s", resp.StatusCode(), msg)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, errors.New("AI response has no content")
	}

	return &Completion{
		Text:  parsed.Choices[0].Message.Content,
		Model: modelName,
		Raw:   resp.Body(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
