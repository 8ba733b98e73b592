package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config carries all environment-driven settings for the service.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string

	LogLevel string

	TracingEnabled       bool
	TracingEndpoint      string
	TracingProtocol      string
	TracingSamplingRatio float64

	OverdueSweepInterval  time.Duration
	OverdueSweepBatchSize int

	SeedDemoData bool
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment. A .env file is loaded
// first when present so local development does not need exported vars.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServiceName:    envOr("SERVICE_NAME", "influencer-billing"),
		ServiceVersion: envOr("SERVICE_VERSION", "dev"),
		Environment:    envOr("ENVIRONMENT", "development"),

		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		LogLevel: envOr("LOG_LEVEL", "info"),

		TracingEnabled:       envBool("TRACING_ENABLED", false),
		TracingEndpoint:      os.Getenv("TRACING_ENDPOINT"),
		TracingProtocol:      envOr("TRACING_PROTOCOL", "grpc"),
		TracingSamplingRatio: envFloat("TRACING_SAMPLING_RATIO", 1.0),

		OverdueSweepInterval:  envDuration("OVERDUE_SWEEP_INTERVAL", time.Minute),
		OverdueSweepBatchSize: envInt("OVERDUE_SWEEP_BATCH_SIZE", 100),

		SeedDemoData: envBool("SEED_DEMO_DATA", false),
	}

	return cfg, nil
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
