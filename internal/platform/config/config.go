package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"REFERRALS_ADDR" envDefault:":8080"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"identity"`
	JWTAudience     string        `env:"JWT_AUDIENCE" envDefault:"referrals"`
	ServiceToken    string        `env:"REFERRALS_SERVICE_TOKEN"`
	RequestTimeout  time.Duration `env:"REFERRALS_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"REFERRALS_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LinkBaseURL     string        `env:"REFERRALS_LINK_BASE_URL" envDefault:"https://example.com/signup"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// DatabaseConfig selects the store. An empty URL runs the in-memory store.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// RedisConfig configures the optional leaderboard cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the outbox relay target. No brokers means events are logged only.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"referral.events"`
	ClientID     string        `env:"KAFKA_CLIENT_ID" envDefault:"referrals"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// ReferralConfig tunes the engine.
type ReferralConfig struct {
	CodeLength            int           `env:"REFERRAL_CODE_LENGTH" envDefault:"8"`
	MaxGenerationAttempts int           `env:"REFERRAL_CODE_GENERATION_ATTEMPTS" envDefault:"5"`
	TxTimeout             time.Duration `env:"REFERRAL_TX_TIMEOUT" envDefault:"5s"`
	TxRetries             int           `env:"REFERRAL_TX_RETRIES" envDefault:"3"`
	TxRetryBackoff        time.Duration `env:"REFERRAL_TX_RETRY_BACKOFF" envDefault:"10ms"`
	LeaderboardTTL        time.Duration `env:"REFERRAL_LEADERBOARD_TTL" envDefault:"30s"`
}

// RateLimitConfig bounds code writes per user and redemptions per client IP.
// A limit of zero disables that rule.
type RateLimitConfig struct {
	Disabled     bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	WriteLimit   int           `env:"RATE_LIMIT_WRITES" envDefault:"30"`
	WriteWindow  time.Duration `env:"RATE_LIMIT_WRITES_WINDOW" envDefault:"1m"`
	RedeemLimit  int           `env:"RATE_LIMIT_REDEEMS" envDefault:"60"`
	RedeemWindow time.Duration `env:"RATE_LIMIT_REDEEMS_WINDOW" envDefault:"1m"`
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Referral  ReferralConfig
	RateLimit RateLimitConfig
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	if c.Referral.CodeLength < 6 || c.Referral.CodeLength > 10 {
		return fmt.Errorf("REFERRAL_CODE_LENGTH must be between 6 and 10, got %d", c.Referral.CodeLength)
	}
	if c.Referral.MaxGenerationAttempts < 1 {
		return errors.New("REFERRAL_CODE_GENERATION_ATTEMPTS must be positive")
	}
	if c.Referral.TxRetries < 0 {
		return errors.New("REFERRAL_TX_RETRIES must not be negative")
	}
	if c.Kafka.BatchSize < 1 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	if c.RateLimit.WriteLimit < 0 || c.RateLimit.RedeemLimit < 0 {
		return errors.New("RATE_LIMIT_WRITES and RATE_LIMIT_REDEEMS must not be negative")
	}
	if (c.RateLimit.WriteLimit > 0 && c.RateLimit.WriteWindow <= 0) || (c.RateLimit.RedeemLimit > 0 && c.RateLimit.RedeemWindow <= 0) {
		return errors.New("rate limit windows must be positive")
	}
	switch c.Server.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Server.LogFormat)
	}
	return nil
}
