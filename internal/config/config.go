package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/notify-api/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Webhook   WebhookConfig
	Notifier  NotifierConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL            string `mapstructure:"url"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryBackoffMs int    `mapstructure:"retry_backoff_ms"`
	PoolSize       int    `mapstructure:"pool_size"`
	MinIdleConns   int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// TicketBaseURL is the prefix for "view ticket" links in mail bodies,
	// e.g. https://desk.example.com/tickets
	TicketBaseURL string `mapstructure:"ticket_base_url"`
}

type WebhookConfig struct {
	// URL is the configured chat endpoint; empty disables the channel.
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxFailures    int    `mapstructure:"max_failures"`
	CooldownSec    int    `mapstructure:"cooldown_seconds"`
}

type NotifierConfig struct {
	DispatchTimeoutSeconds int `mapstructure:"dispatch_timeout_seconds"`
	RetentionDays          int `mapstructure:"retention_days"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("NOTIFY")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff_ms", 100)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("webhook.timeout_seconds", 5)
	viper.SetDefault("webhook.max_failures", 5)
	viper.SetDefault("webhook.cooldown_seconds", 60)
	viper.SetDefault("notifier.dispatch_timeout_seconds", 30)
	viper.SetDefault("notifier.retention_days", 90)
	viper.SetDefault("notifier.cleanup_interval_minutes", 60)
	viper.SetDefault("ratelimit.rps", 50)
	viper.SetDefault("ratelimit.burst", 100)
}

// ToBrokerConfig converts the Redis section into broker settings.
func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: time.Duration(c.RetryBackoffMs) * time.Millisecond,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
