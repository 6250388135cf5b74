package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Alias1177/PriceWatch/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured
const DefaultModel = openai.GPT3Dot5Turbo

// Client wraps the OpenAI API client
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      zerolog.Logger
}

// ClientOptions holds options for creating a new OpenAI client
type ClientOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	// BaseURL overrides the API endpoint, e.g. for a proxy
	BaseURL string
}

// NewClient creates a new OpenAI client
func NewClient(options ClientOptions) *Client {
	cfg := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       options.Model,
		temperature: options.Temperature,
		timeout:     options.Timeout,
		logger:      log.With().Str("component", "openai_client").Logger(),
	}
}

// Complete sends a system and user prompt and returns the trimmed reply
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai.Complete", "")
	var err error
	defer func() { trace.End(span, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug().Str("model", c.model).Int("max_tokens", maxTokens).Msg("Sending prompt to OpenAI")

	var resp openai.ChatCompletionResponse
	resp, err = c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   maxTokens,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
		},
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", err
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		err = errors.New("openai returned no choices")
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
