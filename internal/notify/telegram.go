package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/PriceWatch/internal/model"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier pushes alert records to a Telegram chat
type Notifier struct {
	bot    Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects to the Bot API
func NewTelegram(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return New(bot, chatID), nil
}

// New wraps an existing sender
func New(bot Sender, chatID int64) *Notifier {
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Notify sends a Markdown message for alerting records and ignores the rest.
// A nil *Notifier sends nothing.
func (n *Notifier) Notify(ctx context.Context, rec model.ResultRecord, comment string) error {
	if n == nil || !rec.Alert {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(rec, comment))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Str("ticker", rec.Ticker).Int64("chat_id", n.chatID).Msg("Failed to send alert")
		return fmt.Errorf("send telegram alert: %w", err)
	}

	n.logger.Info().Str("ticker", rec.Ticker).Msg("Alert sent")
	return nil
}

// FormatAlert renders the alert message body
func FormatAlert(rec model.ResultRecord, comment string) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚨 *Price alert: %s*\n\n", esc(rec.Ticker))
	fmt.Fprintf(&sb, "📈 Open→Close: %s\n", pct(rec.Metrics.DeltaOC))
	fmt.Fprintf(&sb, "📊 High→Low: %s\n", pct(rec.Metrics.DeltaHL))
	fmt.Fprintf(&sb, "🕒 %s\n\n", esc(rec.TimestampISO()))
	fmt.Fprintf(&sb, "Thresholds: OC %.2f%%, HL %.2f%%, window %d, k=%.2f",
		rec.Details.StaticOC, rec.Details.StaticHL, rec.Details.DynamicWindow, rec.Details.StdMultiplier)

	if c := strings.TrimSpace(comment); c != "" {
		sb.WriteString("\n\n💬 ")
		sb.WriteString(esc(c))
	}
	return sb.String()
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}
