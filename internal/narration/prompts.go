package narration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Alias1177/PriceWatch/internal/model"
)

const commentSystemPrompt = "You are a financial analyst bot."

const decisionSystemPrompt = "You are a disciplined equities analyst. " +
	"Output STRICT JSON with a BUY/SELL/HOLD action and nothing else."

const decisionSchema = `{"action":"BUY|SELL|HOLD","confidence":0.0-1.0,"rationale":"<one or two sentences>"}`

// FormatCommentPrompt builds the user prompt for a short price comment
func FormatCommentPrompt(rec model.ResultRecord) string {
	status := "not triggered"
	if rec.Alert {
		status = "TRIGGERED"
	}

	return fmt.Sprintf(
		"The stock %s has an open-close delta of %s%% and a high-low delta of %s%%. "+
			"The alert status is %s. Comment on this movement in simple financial terms.",
		rec.Ticker,
		formatMetric(rec.Metrics.DeltaOC),
		formatMetric(rec.Metrics.DeltaHL),
		status,
	)
}

// FormatDecisionPrompt builds the user prompt for a structured decision.
// The state object is JSON so that nil statistics render as null.
func FormatDecisionPrompt(in DecisionInput) (string, error) {
	state := map[string]any{
		"ticker":     in.Record.Ticker,
		"timestamp":  in.Record.TimestampISO(),
		"alert":      in.Record.Alert,
		"metrics":    in.Record.Metrics,
		"thresholds": in.Record.Details,
		"history": map[string]any{
			"bars":       in.Trend.Bars,
			"stats":      in.Trend.Stats,
			"indicators": in.Trend.Indicators(),
		},
	}
	stateB, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal decision state: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Schema:")
	sb.WriteString(decisionSchema)
	sb.WriteString("\nState:")
	sb.Write(stateB)
	if news := strings.TrimSpace(in.News); news != "" {
		sb.WriteString("\nRecent headlines:\n")
		sb.WriteString(news)
	}
	sb.WriteString("\n\nRespond ONLY with compact JSON matching the schema.")
	return sb.String(), nil
}

func formatMetric(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
