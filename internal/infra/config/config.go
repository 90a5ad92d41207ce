package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	QnA         QnAConfig         `yaml:"qna"`
	Bot         BotConfig         `yaml:"bot"`
	Insights    InsightsConfig    `yaml:"insights"`
	ChannelAuth ChannelAuthConfig `yaml:"channelAuth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// QnAConfig points at the hosted knowledge base. The credentials are passed
// through untouched; the service rejects bad ones.
type QnAConfig struct {
	KnowledgeBaseID  string        `yaml:"knowledgebaseId"`
	AuthKey          string        `yaml:"authKey"`
	EndpointHostName string        `yaml:"endpointHostName"`
	Top              int           `yaml:"top"`
	ScoreThreshold   float64       `yaml:"scoreThreshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// BotConfig controls reply selection and texts.
type BotConfig struct {
	SelectionPolicy string        `yaml:"selectionPolicy"`
	WelcomeText     string        `yaml:"welcomeText"`
	NoAnswerText    string        `yaml:"noAnswerText"`
	PromptText      string        `yaml:"promptText"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	TopTrending     int           `yaml:"topTrending"`
}

// InsightsConfig selects the backends for the candidate cache, trending
// counters and the miss log.
type InsightsConfig struct {
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ChannelAuthConfig controls verification of inbound channel tokens.
type ChannelAuthConfig struct {
	Mode    string `yaml:"mode"`
	AppID   string `yaml:"appId"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
	JWKSURL string `yaml:"jwksUrl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	// the QnA keys keep the names used by the bot's hosting settings
	if v := os.Getenv("QnAKnowledgebaseId"); v != "" {
		cfg.QnA.KnowledgeBaseID = v
	}
	if v := os.Getenv("QnAAuthKey"); v != "" {
		cfg.QnA.AuthKey = v
	}
	if v := os.Getenv("QnAEndpointHostName"); v != "" {
		cfg.QnA.EndpointHostName = v
	}
	if v := os.Getenv("QNA_TOP"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.QnA.Top = parsed
		}
	}
	if v := os.Getenv("QNA_SCORE_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.QnA.ScoreThreshold = parsed
		}
	}
	if v := os.Getenv("QNA_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.QnA.Timeout = parsed
		}
	}
	if v := os.Getenv("BOT_SELECTION_POLICY"); v != "" {
		cfg.Bot.SelectionPolicy = v
	}
	if v := os.Getenv("BOT_WELCOME_TEXT"); v != "" {
		cfg.Bot.WelcomeText = v
	}
	if v := os.Getenv("BOT_NO_ANSWER_TEXT"); v != "" {
		cfg.Bot.NoAnswerText = v
	}
	if v := os.Getenv("BOT_PROMPT_TEXT"); v != "" {
		cfg.Bot.PromptText = v
	}
	if v := os.Getenv("BOT_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Bot.CacheTTL = parsed
		}
	}
	if v := os.Getenv("BOT_TOP_TRENDING"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Bot.TopTrending = parsed
		}
	}
	if v := os.Getenv("INSIGHTS_REDIS_ENABLED"); v != "" {
		cfg.Insights.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("INSIGHTS_REDIS_ADDR"); v != "" {
		cfg.Insights.Redis.Addr = v
	}
	if v := os.Getenv("INSIGHTS_REDIS_PREFIX"); v != "" {
		cfg.Insights.Redis.Prefix = v
	}
	if v := os.Getenv("INSIGHTS_POSTGRES_DSN"); v != "" {
		cfg.Insights.Postgres.DSN = v
	}
	if v := os.Getenv("INSIGHTS_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Insights.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CHANNEL_AUTH_MODE"); v != "" {
		cfg.ChannelAuth.Mode = v
	}
	if v := os.Getenv("MicrosoftAppId"); v != "" {
		cfg.ChannelAuth.AppID = v
	}
	if v := os.Getenv("CHANNEL_AUTH_SECRET"); v != "" {
		cfg.ChannelAuth.Secret = v
	}
	if v := os.Getenv("CHANNEL_AUTH_ISSUER"); v != "" {
		cfg.ChannelAuth.Issuer = v
	}
	if v := os.Getenv("CHANNEL_AUTH_JWKS_URL"); v != "" {
		cfg.ChannelAuth.JWKSURL = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":3978",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		QnA: QnAConfig{
			Top:            1,
			ScoreThreshold: 0.3,
			Timeout:        10 * time.Second,
		},
		Bot: BotConfig{
			SelectionPolicy: "best",
			TopTrending:     10,
		},
		Insights: InsightsConfig{
			Redis: RedisConfig{
				Prefix: "qnabot",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		ChannelAuth: ChannelAuthConfig{
			Mode: "none",
		},
	}
}

// Validate ensures the configuration is safe to use. QnA credentials are
// deliberately left to the service to reject.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.QnA.Top < 0 {
		return errors.New("qna.top cannot be negative")
	}
	if c.QnA.ScoreThreshold < 0 || c.QnA.ScoreThreshold > 1 {
		return errors.New("qna.scoreThreshold must be within [0,1]")
	}
	switch c.Bot.SelectionPolicy {
	case "best", "gated":
	default:
		return fmt.Errorf("bot.selectionPolicy must be best or gated, got %q", c.Bot.SelectionPolicy)
	}
	if c.Bot.CacheTTL < 0 {
		return errors.New("bot.cacheTtl cannot be negative")
	}
	if c.Bot.TopTrending < 0 {
		return errors.New("bot.topTrending cannot be negative")
	}
	if c.Insights.Redis.Enabled && strings.TrimSpace(c.Insights.Redis.Addr) == "" {
		return errors.New("insights.redis.addr cannot be empty when redis is enabled")
	}
	switch c.ChannelAuth.Mode {
	case "none":
	case "botframework":
		if strings.TrimSpace(c.ChannelAuth.AppID) == "" {
			return errors.New("channelAuth.appId is required for botframework mode")
		}
	case "secret":
		if strings.TrimSpace(c.ChannelAuth.Secret) == "" {
			return errors.New("channelAuth.secret is required for secret mode")
		}
	default:
		return fmt.Errorf("channelAuth.mode must be none, botframework or secret, got %q", c.ChannelAuth.Mode)
	}
	return nil
}
