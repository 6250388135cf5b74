package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, []string{"yahoo", "finnhub"}, cfg.Sources.Order)
	assert.Equal(t, 30*time.Second, cfg.Sources.RequestTimeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "@every 5m", cfg.Monitor.Schedule)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Equal(t, model.IntradayWindow(), cfg.Intraday.Spec(model.IntradayWindow()))
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
thresholds:
  static_oc: 3.5
  dynamic_window: 5
sources:
  order: [finnhub, twelvedata]
  request_timeout: 5s
history:
  period: 2y
monitor:
  watchlist: [AAPL, MSFT]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("STD_MULTIPLIER", "2.5")
	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("WATCHLIST", "NVDA, TSLA")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x?sslmode=disable")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-10042")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3.5, cfg.Thresholds.StaticOC)
	assert.Equal(t, 7.0, cfg.Thresholds.StaticHL, "unset yaml fields keep defaults")
	assert.Equal(t, 5, cfg.Thresholds.DynamicWindow)
	assert.Equal(t, 2.5, cfg.Thresholds.StdMultiplier)
	assert.Equal(t, []string{"finnhub", "twelvedata"}, cfg.Sources.Order)
	assert.Equal(t, 5*time.Second, cfg.Sources.RequestTimeout)
	assert.Equal(t, "fh-key", cfg.Sources.FinnhubAPIKey)
	assert.Equal(t, []string{"NVDA", "TSLA"}, cfg.Monitor.Watchlist)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://u:p@db:5432/x?sslmode=disable", cfg.Database.DSN)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, int64(-10042), cfg.Telegram.ChatID)
	assert.Equal(t, model.WindowSpec{Period: "2y", Interval: "1d"}, cfg.History.Spec(model.HistoryWindow()))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown source", content: "sources:\n  order: [bloomberg]\n"},
		{name: "zero window", content: "thresholds:\n  dynamic_window: 0\n"},
		{name: "negative threshold", content: "thresholds:\n  static_oc: -1\n"},
		{name: "bad provider", content: "llm:\n  provider: llama\n"},
		{name: "bad yaml", content: "thresholds: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)
}

func TestLLMAPIKey(t *testing.T) {
	c := LLMConfig{Provider: "anthropic", OpenAIAPIKey: "o", AnthropicAPIKey: "a"}
	assert.Equal(t, "a", c.APIKey())
	c.Provider = "openai"
	assert.Equal(t, "o", c.APIKey())
	c.Provider = "none"
	assert.Empty(t, c.APIKey())
}
