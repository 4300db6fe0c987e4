package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile(missingFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.MLLPAddr != ":2575" {
		t.Errorf("expected default MLLP address :2575, got %s", cfg.MLLPAddr)
	}
	if cfg.MLLPReadTimeout != 30*time.Second {
		t.Errorf("expected 30s read timeout, got %s", cfg.MLLPReadTimeout)
	}
	if cfg.HL7DefaultVersion != "2.5" || !cfg.HL7Validate {
		t.Errorf("unexpected HL7 defaults: %+v", cfg)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DATABASE_URL should be optional, got %q", cfg.DatabaseURL)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MLLP_ADDR", ":3000")
	t.Setenv("MLLP_READ_TIMEOUT", "2m")
	t.Setenv("HL7_STRICT_VERSION", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DB_MAX_CONNS", "8")

	cfg, err := LoadFile(missingFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MLLPAddr != ":3000" || cfg.MLLPReadTimeout != 2*time.Minute || !cfg.HL7StrictVersion {
		t.Errorf("environment not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers); diff != "" {
		t.Errorf("brokers mismatch (-want +got):\n%s", diff)
	}
	if cfg.DBMaxConns != 8 {
		t.Errorf("expected 8 max conns, got %d", cfg.DBMaxConns)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := strings.Join([]string{
		"HL7_DEFAULT_VERSION=2.3",
		"HL7_UNEXPECTED_SEGMENTS=root",
		"LOG_LEVEL=debug",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HL7DefaultVersion != "2.3" {
		t.Errorf("expected version 2.3 from file, got %s", cfg.HL7DefaultVersion)
	}
	if u, _ := cfg.UnexpectedSegments(); u != parser.DropToRoot {
		t.Errorf("expected DropToRoot, got %s", u)
	}
	if lvl, _ := cfg.Level(); lvl != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", lvl)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() || c.IsProduction() {
		t.Error("expected development mode")
	}
	c.Env = "production"
	if c.IsDev() || !c.IsProduction() {
		t.Error("expected production mode")
	}
}

func validConfig() Config {
	return Config{
		Env:                   "production",
		LogLevel:              "info",
		HL7UnexpectedSegments: "inline",
		AuthSigningKey:        strings.Repeat("k", 32),
		MLLPMaxMessageSize:    1 << 20,
		MLLPReadTimeout:       time.Second,
		DBMaxConns:            10,
		DBMinConns:            1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown env", func(c *Config) { c.Env = "qa" }, "ENV"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad segment policy", func(c *Config) { c.HL7UnexpectedSegments = "ignore" }, "HL7_UNEXPECTED_SEGMENTS"},
		{"production without key", func(c *Config) { c.AuthSigningKey = "" }, "AUTH_SIGNING_KEY is required"},
		{"short key", func(c *Config) { c.AuthSigningKey = "short" }, "at least 32 bytes"},
		{"development without key", func(c *Config) { c.Env = "development"; c.AuthSigningKey = "" }, ""},
		{"zero message size", func(c *Config) { c.MLLPMaxMessageSize = 0 }, "MLLP_MAX_MESSAGE_SIZE"},
		{"zero read timeout", func(c *Config) { c.MLLPReadTimeout = 0 }, "MLLP_READ_TIMEOUT"},
		{"min over max", func(c *Config) { c.DBMinConns = 50 }, "DB_MIN_CONNS"},
		{"brokers without topic", func(c *Config) { c.KafkaBrokers = []string{"k:9092"} }, "KAFKA_TOPIC"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://localhost" }, "AMQP_QUEUE"},
		{"webhook without secret", func(c *Config) { c.WebhookURL = "https://hooks.example/hl7" }, "WEBHOOK_SECRET"},
		{"webhook with secret", func(c *Config) { c.WebhookURL = "https://hooks.example/hl7"; c.WebhookSecret = "s" }, ""},
		{"negative rate", func(c *Config) { c.RateLimitRPS = -1 }, "RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}
