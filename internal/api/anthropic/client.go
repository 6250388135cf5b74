package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/PriceWatch/internal/trace"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-3-5-haiku-latest"

// Client wraps the Anthropic Messages API
type Client struct {
	messages    anthropic.MessageService
	model       string
	temperature float32
	timeout     time.Duration
	logger      zerolog.Logger
}

// ClientOptions holds options for creating a new Anthropic client
type ClientOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	BaseURL     string
	MaxRetries  int
}

// NewClient creates a new Anthropic client
func NewClient(options ClientOptions) *Client {
	if options.Model == "" {
		options.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(options.APIKey),
		option.WithMaxRetries(options.MaxRetries),
	}
	if options.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(options.BaseURL))
	}

	return &Client{
		messages:    anthropic.NewClient(reqOpts...).Messages,
		model:       options.Model,
		temperature: options.Temperature,
		timeout:     options.Timeout,
		logger:      log.With().Str("component", "anthropic_client").Logger(),
	}
}

// Complete sends a system and user prompt and returns the concatenated text blocks
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "anthropic.Complete", "")
	var err error
	defer func() { trace.End(span, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	c.logger.Debug().Str("model", c.model).Int("max_tokens", maxTokens).Msg("Sending prompt to Claude")

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		c.logger.Error().Err(err).Msg("Claude API error")
		err = fmt.Errorf("Claude API call failed: %w", err)
		return "", err
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		err = errors.New("no response generated from Claude API")
		return "", err
	}

	return strings.TrimSpace(response.String()), nil
}
