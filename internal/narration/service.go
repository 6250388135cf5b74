package narration

import (
	"context"

	"github.com/Alias1177/PriceWatch/internal/api/anthropic"
	"github.com/Alias1177/PriceWatch/internal/api/openai"
	"github.com/Alias1177/PriceWatch/internal/config"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fallback texts returned in place of a completion
const (
	NoKeyMessage       = "⚠ No LLM API key configured."
	commentErrorPrefix = "⚠ Error generating AI comment: "
	decideErrorPrefix  = "⚠ Error generating AI decision: "
)

// Completer is a chat-completion provider
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// DecisionInput is everything the decision prompt is built from
type DecisionInput struct {
	Record model.ResultRecord
	Trend  model.TrendStats
	News   string
}

// Service produces free-text commentary. It never returns an error:
// failures become fallback text.
type Service struct {
	completer         Completer
	commentMaxTokens  int
	decisionMaxTokens int
	logger            zerolog.Logger
}

// NewService creates a narration service. A nil completer yields NoKeyMessage.
func NewService(c Completer, commentMaxTokens, decisionMaxTokens int) *Service {
	if commentMaxTokens <= 0 {
		commentMaxTokens = 100
	}
	if decisionMaxTokens <= 0 {
		decisionMaxTokens = 400
	}
	return &Service{
		completer:         c,
		commentMaxTokens:  commentMaxTokens,
		decisionMaxTokens: decisionMaxTokens,
		logger:            log.With().Str("component", "narration").Logger(),
	}
}

// NewCompleter builds the configured provider, or nil when none is usable
func NewCompleter(cfg config.LLMConfig) Completer {
	if cfg.APIKey() == "" {
		return nil
	}
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.ClientOptions{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case "anthropic":
		return anthropic.NewClient(anthropic.ClientOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  2,
		})
	}
	return nil
}

// Enabled reports whether a provider is configured
func (s *Service) Enabled() bool {
	return s != nil && s.completer != nil
}

// Comment returns a short plain-language comment on the record
func (s *Service) Comment(ctx context.Context, rec model.ResultRecord) string {
	if !s.Enabled() {
		return NoKeyMessage
	}

	out, err := s.completer.Complete(ctx, commentSystemPrompt, FormatCommentPrompt(rec), s.commentMaxTokens)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", rec.Ticker).Msg("Comment generation failed")
		return commentErrorPrefix + err.Error()
	}
	return out
}

// Decide asks for a JSON decision and returns the reply verbatim
func (s *Service) Decide(ctx context.Context, in DecisionInput) string {
	if !s.Enabled() {
		return NoKeyMessage
	}

	prompt, err := FormatDecisionPrompt(in)
	if err != nil {
		return decideErrorPrefix + err.Error()
	}

	out, err := s.completer.Complete(ctx, decisionSystemPrompt, prompt, s.decisionMaxTokens)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", in.Record.Ticker).Msg("Decision generation failed")
		return decideErrorPrefix + err.Error()
	}

	s.logger.Debug().Str("ticker", in.Record.Ticker).Int("chars", len(out)).Msg("Decision generated")
	return out
}
