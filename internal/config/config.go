package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	MLLPAddr           string        `mapstructure:"MLLP_ADDR"`
	MLLPMaxMessageSize int           `mapstructure:"MLLP_MAX_MESSAGE_SIZE"`
	MLLPReadTimeout    time.Duration `mapstructure:"MLLP_READ_TIMEOUT"`

	HL7DefaultVersion     string `mapstructure:"HL7_DEFAULT_VERSION"`
	HL7StrictVersion      bool   `mapstructure:"HL7_STRICT_VERSION"`
	HL7UnexpectedSegments string `mapstructure:"HL7_UNEXPECTED_SEGMENTS"`
	HL7Validate           bool   `mapstructure:"HL7_VALIDATE"`
	HL7SchemaDir          string `mapstructure:"HL7_SCHEMA_DIR"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`
	AMQPURL      string   `mapstructure:"AMQP_URL"`
	AMQPQueue    string   `mapstructure:"AMQP_QUEUE"`

	WebhookURL    string `mapstructure:"WEBHOOK_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	OTELEndpoint string `mapstructure:"OTEL_ENDPOINT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"MLLP_ADDR", "MLLP_MAX_MESSAGE_SIZE", "MLLP_READ_TIMEOUT",
	"HL7_DEFAULT_VERSION", "HL7_STRICT_VERSION", "HL7_UNEXPECTED_SEGMENTS", "HL7_VALIDATE", "HL7_SCHEMA_DIR",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "AMQP_URL", "AMQP_QUEUE",
	"WEBHOOK_URL", "WEBHOOK_SECRET",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"OTEL_ENDPOINT",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is not an
// error; environment variables override it.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MLLP_ADDR", ":2575")
	v.SetDefault("MLLP_MAX_MESSAGE_SIZE", 1<<20)
	v.SetDefault("MLLP_READ_TIMEOUT", "30s")
	v.SetDefault("HL7_DEFAULT_VERSION", "2.5")
	v.SetDefault("HL7_UNEXPECTED_SEGMENTS", "inline")
	v.SetDefault("HL7_VALIDATE", true)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("KAFKA_TOPIC", "hl7.messages")
	v.SetDefault("AMQP_QUEUE", "hl7.messages")
	v.SetDefault("AUTH_ISSUER", "hl7-engine")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading the env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma-separated lists arrive as one string from the environment.
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}

// UnexpectedSegments parses HL7_UNEXPECTED_SEGMENTS.
func (c *Config) UnexpectedSegments() (parser.UnexpectedSegments, error) {
	return parser.ParseUnexpectedSegments(c.HL7UnexpectedSegments)
}

// Validate checks that the configuration is safe to run. Outside
// development AUTH_SIGNING_KEY must be set so bearer authentication is
// enforced on the API.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" && c.Env != "test" {
		return fmt.Errorf("ENV must be development, test, staging or production, got %q", c.Env)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := c.UnexpectedSegments(); err != nil {
		return fmt.Errorf("HL7_UNEXPECTED_SEGMENTS: %w", err)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}
	if c.MLLPMaxMessageSize <= 0 {
		return fmt.Errorf("MLLP_MAX_MESSAGE_SIZE must be positive, got %d", c.MLLPMaxMessageSize)
	}
	if c.MLLPReadTimeout <= 0 {
		return fmt.Errorf("MLLP_READ_TIMEOUT must be positive, got %s", c.MLLPReadTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.AMQPURL != "" && c.AMQPQueue == "" {
		return fmt.Errorf("AMQP_QUEUE is required when AMQP_URL is set")
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" && c.Env == "production" {
		return fmt.Errorf("WEBHOOK_SECRET is required for webhook forwarding in production")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}
