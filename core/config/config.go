package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TG_BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds PostgreSQL settings for the postgres session backend.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// SessionConfig selects where per-user dialog states are stored.
type SessionConfig struct {
	Backend    string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	Prefix     string `yaml:"prefix" envconfig:"SESSION_PREFIX"`
	TTLSeconds int    `yaml:"ttl_seconds" envconfig:"SESSION_TTL_SECONDS"`
}

// RedisConfig holds the connection settings for the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// StrapiConfig points the bot at the commerce backend.
type StrapiConfig struct {
	URL            string `yaml:"url" envconfig:"STRAPI_URL"`
	Token          string `yaml:"token" envconfig:"STRAPI_TOKEN"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"STRAPI_TIMEOUT_SECONDS"`
	// Demo serves a built-in catalogue from memory; URL and Token are unused.
	Demo bool `yaml:"demo" envconfig:"STRAPI_DEMO"`
}

// DialogConfig tunes the conversation engine.
type DialogConfig struct {
	// SerializePerUser runs updates of the same user one at a time.
	// Off by default: concurrent updates race and the last state write wins.
	SerializePerUser bool `yaml:"serialize_per_user" envconfig:"DIALOG_SERIALIZE_PER_USER"`
}

// MailConfig enables order confirmation e-mails. Empty API key disables them.
type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key" envconfig:"SENDGRID_API_KEY"`
	FromEmail      string `yaml:"from_email" envconfig:"MAIL_FROM"`
	FromName       string `yaml:"from_name" envconfig:"MAIL_FROM_NAME"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// Session backends accepted by session.backend.
const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

const (
	defaultStrapiURL     = "http://localhost:1337"
	defaultStrapiTimeout = 10
	defaultRedisAddr     = "localhost:6379"
	defaultSessionPrefix = "shopbot:state:"
	defaultMailFromName  = "Shop"
	defaultDatabaseSSL   = "disable"
	defaultDatabasePool  = 5
)

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Strapi    StrapiConfig    `yaml:"strapi"`
	Dialog    DialogConfig    `yaml:"dialog"`
	Mail      MailConfig      `yaml:"mail"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CoreConfig lets *Config satisfy the runner's ConfigCarrier directly.
func (c *Config) CoreConfig() *Config {
	return c
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is not an error: everything can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		switch key {
		case "", UpdateCallback, UpdateMessage:
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeSession(cfg); err != nil {
		return err
	}

	cfg.Strapi.URL = strings.TrimRight(strings.TrimSpace(cfg.Strapi.URL), "/")
	if cfg.Strapi.URL == "" {
		cfg.Strapi.URL = defaultStrapiURL
	}
	if cfg.Strapi.Token == "" && !cfg.Strapi.Demo {
		return fmt.Errorf("strapi token is required")
	}
	if cfg.Strapi.TimeoutSeconds <= 0 {
		cfg.Strapi.TimeoutSeconds = defaultStrapiTimeout
	}

	if cfg.Mail.SendGridAPIKey != "" && strings.TrimSpace(cfg.Mail.FromEmail) == "" {
		return fmt.Errorf("mail.from_email is required when a SendGrid API key is set")
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = defaultMailFromName
	}
	return nil
}

func normalizeSession(cfg *Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if backend == "" {
		backend = SessionBackendRedis
	}
	switch backend {
	case SessionBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			cfg.Redis.Addr = defaultRedisAddr
		}
	case SessionBackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres session backend")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = defaultDatabaseSSL
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = defaultDatabasePool
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: redis, postgres, memory", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend
	if cfg.Session.TTLSeconds < 0 {
		return fmt.Errorf("session.ttl_seconds must be >= 0")
	}
	if cfg.Session.Prefix == "" {
		cfg.Session.Prefix = defaultSessionPrefix
	}
	return nil
}
