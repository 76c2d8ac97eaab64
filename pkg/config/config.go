package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stewardhq/steward/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Sessions      SessionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings for the distributed rate limiter
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig holds session lifetime and sweeper settings
type SessionConfig struct {
	TTL           time.Duration
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("STEWARD_HOST", "0.0.0.0"),
			Port:            getEnv("STEWARD_PORT", "8080"),
			ReadTimeout:     getEnvDuration("STEWARD_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("STEWARD_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("STEWARD_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("STEWARD_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("STEWARD_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("STEWARD_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("STEWARD_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("STEWARD_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("STEWARD_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("STEWARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("STEWARD_REDIS_PASSWORD", ""),
			DB:       getEnvInt("STEWARD_REDIS_DB", 0),
		},
		Sessions: SessionConfig{
			TTL:           getEnvDuration("STEWARD_SESSION_TTL", 24*time.Hour),
			SweepSchedule: getEnv("STEWARD_SESSION_SWEEP_SCHEDULE", "@every 15m"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("STEWARD_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("STEWARD_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("STEWARD_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("STEWARD_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("STEWARD_OTEL_SERVICE_NAME", "steward"),
			OTelServiceVersion: getEnv("STEWARD_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("STEWARD_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
