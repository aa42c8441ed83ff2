package config

import "time"

// Config holds runtime configuration for the StockGenie bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Market    MarketConfig    `mapstructure:"market" validate:"required"`
	Digest    DigestConfig    `mapstructure:"digest" validate:"required"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Webhook       string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookListen string        `mapstructure:"webhook_listen"`
}

// ServerConfig configures the operational HTTP server (metrics, health).
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the preference store backend.
type StoreConfig struct {
	Driver       string        `mapstructure:"driver" validate:"required,oneof=postgres buntdb"`
	DSN          string        `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	Path         string        `mapstructure:"path" validate:"required_if=Driver buntdb"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns" validate:"gte=0"`
	Migrate      bool          `mapstructure:"migrate"`
}

// RedisConfig configures the optional Redis connection used for price caching and rate limiting.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	PoolSize int    `mapstructure:"pool_size" validate:"gte=0"`
}

// PricingConfig configures the market-data lookup.
type PricingConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// MarketConfig describes the trading window that gates market alerts.
type MarketConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
	Open     string `mapstructure:"open" validate:"required,datetime=15:04"`
	Close    string `mapstructure:"close" validate:"required,datetime=15:04"`
}

// DigestConfig describes the daily digest schedule.
type DigestConfig struct {
	Time        string `mapstructure:"time" validate:"required,datetime=15:04"`
	Timezone    string `mapstructure:"timezone" validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0"`
}

// AlertsConfig tunes the recurring market-alert scheduler.
type AlertsConfig struct {
	NotifyOnReconcile bool `mapstructure:"notify_on_reconcile"`
}

// RateLimitRule describes a single limit, e.g. 20 requests per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig configures per-user throttling of incoming updates.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// LoggerConfig configures the slog logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}
