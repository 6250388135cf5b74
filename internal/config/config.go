package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" default:"development"`
	LogLevel    string `yaml:"log_level" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat   string `yaml:"log_format" default:"console" validate:"oneof=console json"`

	// Thresholds are the defaults for evaluations that do not supply their own
	Thresholds model.ThresholdConfig `yaml:"thresholds"`

	Sources  SourcesConfig  `yaml:"sources"`
	Intraday WindowConfig   `yaml:"intraday"`
	History  WindowConfig   `yaml:"history"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	News     NewsConfig     `yaml:"news"`
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// SourcesConfig configures the price data sources and the shared HTTP client
type SourcesConfig struct {
	Order           []string      `yaml:"order" default:"[\"yahoo\",\"finnhub\"]" validate:"min=1,dive,oneof=yahoo finnhub twelvedata"`
	YahooBaseURL    string        `yaml:"yahoo_base_url" default:"https://query1.finance.yahoo.com"`
	FinnhubBaseURL  string        `yaml:"finnhub_base_url" default:"https://finnhub.io/api/v1"`
	FinnhubAPIKey   string        `yaml:"finnhub_api_key"`
	TwelveBaseURL   string        `yaml:"twelve_base_url" default:"https://api.twelvedata.com"`
	TwelveAPIKey    string        `yaml:"twelve_api_key"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"30s"`
	RequestsPerSec  int           `yaml:"requests_per_sec" default:"1" validate:"min=1"`
	MaxRetryTimeout time.Duration `yaml:"max_retry_timeout" default:"30s"`
}

// WindowConfig selects a period/interval pair
type WindowConfig struct {
	Period   string `yaml:"period"`
	Interval string `yaml:"interval"`
}

// Spec converts the window into a model.WindowSpec, falling back to def
func (w WindowConfig) Spec(def model.WindowSpec) model.WindowSpec {
	spec := def
	if w.Period != "" {
		spec.Period = w.Period
	}
	if w.Interval != "" {
		spec.Interval = w.Interval
	}
	return spec
}

// CacheConfig configures the history cache
type CacheConfig struct {
	Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
	TTL     time.Duration `yaml:"ttl" default:"15m"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig holds PostgreSQL connection settings.
// DSN wins over the individual fields when set.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host" default:"localhost"`
	Port     string `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"postgres"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" default:"pricewatch"`
	SSLMode  string `yaml:"sslmode" default:"disable"`
}

// LLMConfig selects and configures the narration provider
type LLMConfig struct {
	Provider          string        `yaml:"provider" default:"openai" validate:"oneof=none openai anthropic"`
	OpenAIAPIKey      string        `yaml:"openai_api_key"`
	AnthropicAPIKey   string        `yaml:"anthropic_api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature" default:"0.3"`
	CommentMaxTokens  int           `yaml:"comment_max_tokens" default:"100" validate:"min=1"`
	DecisionMaxTokens int           `yaml:"decision_max_tokens" default:"400" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" default:"60s"`
}

// APIKey returns the key for the selected provider
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// NewsConfig configures the news-context scraper
type NewsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URLTemplate  string        `yaml:"url_template" default:"https://finviz.com/quote.ashx?t={ticker}"`
	Selector     string        `yaml:"selector" default:"#news-table a.tab-link-news"`
	MaxHeadlines int           `yaml:"max_headlines" default:"8" validate:"min=1"`
	Timeout      time.Duration `yaml:"timeout" default:"15s"`
}

// TelegramConfig configures alert notifications
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether notifications can be sent
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// MonitorConfig configures scheduled watchlist evaluation
type MonitorConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Schedule    string   `yaml:"schedule" default:"@every 5m"`
	Watchlist   []string `yaml:"watchlist"`
	Concurrency int      `yaml:"concurrency" default:"4" validate:"min=1"`
}

// TracingConfig toggles the stdout OpenTelemetry exporter
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" default:"pricewatch"`
}

var validate = validator.New()

// Load builds the configuration: struct defaults, then the optional YAML
// file at path, then .env and process environment overrides
func Load(path string) (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Database.Enabled && c.Database.DSN == "" && c.Database.Host == "" {
		return errors.New("database enabled but neither dsn nor host is set")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnvWithDefault("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = strings.ToLower(getEnvWithDefault("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", cfg.LogFormat)

	cfg.Thresholds.StaticOC = getEnvFloatWithDefault("STATIC_OC", cfg.Thresholds.StaticOC)
	cfg.Thresholds.StaticHL = getEnvFloatWithDefault("STATIC_HL", cfg.Thresholds.StaticHL)
	cfg.Thresholds.DynamicWindow = getEnvIntWithDefault("DYNAMIC_WINDOW", cfg.Thresholds.DynamicWindow)
	cfg.Thresholds.StdMultiplier = getEnvFloatWithDefault("STD_MULTIPLIER", cfg.Thresholds.StdMultiplier)

	cfg.Sources.Order = getEnvListWithDefault("PRICE_SOURCES", cfg.Sources.Order)
	cfg.Sources.FinnhubAPIKey = getEnvWithDefault("FINNHUB_API_KEY", cfg.Sources.FinnhubAPIKey)
	cfg.Sources.TwelveAPIKey = getEnvWithDefault("TWELVE_API_KEY", cfg.Sources.TwelveAPIKey)
	cfg.Sources.RequestTimeout = getEnvDurationWithDefault("REQUEST_TIMEOUT", cfg.Sources.RequestTimeout)

	cfg.Cache.Backend = getEnvWithDefault("CACHE_BACKEND", cfg.Cache.Backend)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.Redis.Addr = addr
		if os.Getenv("CACHE_BACKEND") == "" {
			cfg.Cache.Backend = "redis"
		}
	}
	cfg.Cache.Redis.Password = getEnvWithDefault("REDIS_PASSWORD", cfg.Cache.Redis.Password)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
		cfg.Database.Enabled = true
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
		cfg.Database.Enabled = true
	}
	cfg.Database.Port = getEnvWithDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvWithDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvWithDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnvWithDefault("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.LLM.Provider = strings.ToLower(getEnvWithDefault("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.OpenAIAPIKey = getEnvWithDefault("OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.AnthropicAPIKey = getEnvWithDefault("ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)
	cfg.LLM.Model = getEnvWithDefault("LLM_MODEL", cfg.LLM.Model)

	cfg.News.Enabled = getEnvBoolWithDefault("NEWS_ENABLED", cfg.News.Enabled)

	cfg.Telegram.Token = getEnvWithDefault("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.ChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)

	cfg.Server.Addr = getEnvWithDefault("SERVER_ADDR", cfg.Server.Addr)

	cfg.Monitor.Enabled = getEnvBoolWithDefault("MONITOR_ENABLED", cfg.Monitor.Enabled)
	cfg.Monitor.Schedule = getEnvWithDefault("MONITOR_SCHEDULE", cfg.Monitor.Schedule)
	cfg.Monitor.Watchlist = getEnvListWithDefault("WATCHLIST", cfg.Monitor.Watchlist)

	cfg.Tracing.Enabled = getEnvBoolWithDefault("TRACING_ENABLED", cfg.Tracing.Enabled)
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration")
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
