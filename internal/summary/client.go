package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Defaults for the chat completion request.
const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
	DefaultTimeout     = 8 * time.Second
)

// ErrEmptyResponse is returned when the model answers without content.
var ErrEmptyResponse = errors.New("empty summary response")

// Summarizer turns a prompt into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for the chat summarizer.
type Config struct {
	// APIKey authenticates against the chat endpoint (required).
	APIKey string

	// BaseURL points at any OpenAI-compatible endpoint (optional).
	BaseURL string

	Model       string
	MaxTokens   int
	Temperature float32

	// Timeout bounds a single completion call.
	Timeout time.Duration

	Logger zerolog.Logger
}

// Client summarizes routes with an OpenAI-compatible chat completion API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewClient creates a chat summarizer.
func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      cfg.Logger,
	}
}

// Summarize sends the prompt with the travel assistant persona.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("generated route summary")

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Static always returns the same text. It stands in when no model is configured.
type Static string

// Summarize returns the static text.
func (s Static) Summarize(context.Context, string) (string, error) {
	return string(s), nil
}

// Generate runs the summarizer and falls back to FallbackText on any failure.
func Generate(ctx context.Context, s Summarizer, prompt string, logger zerolog.Logger) string {
	if s == nil {
		return FallbackText
	}
	text, err := s.Summarize(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("route summary unavailable, using fallback")
		return FallbackText
	}
	if text == "" {
		return FallbackText
	}
	return text
}
