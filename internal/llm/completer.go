package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrEmptyResponse       = errors.New("llm returned an empty response")
)

// StatusError reports a non-success HTTP status from an LLM endpoint.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer is a text-in, text-out model backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// New builds the completer named by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		return NewOllamaClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func timeoutOf(cfg config.LLMConfig) time.Duration {
	if cfg.TimeoutSec <= 0 {
		return 180 * time.Second
	}
	return time.Duration(cfg.TimeoutSec) * time.Second
}

func observe(provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
}

// joinPrompt folds a system prompt into backends that take a single prompt string.
func joinPrompt(req CompletionRequest) string {
	if req.SystemPrompt == "" {
		return req.UserPrompt
	}
	return req.SystemPrompt + "\n\n" + req.UserPrompt
}
