package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
	Plan      PlanConfig
	Logger    LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	MetricsPort    int
	CronSecret     string  // Token authenticating cron trigger endpoints
	WebhookSecret  string  // Token authenticating gateway webhook callbacks
	RequestsPerSec float64 // Per-client request rate limit
	RequestBurst   int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds payment gateway configuration
type GatewayConfig struct {
	Provider string // Provider name recorded on transactions (default: stripe)
	BaseURL  string
	APIKey   string // Secret key, sent as a bearer token
	Timeout  int    // Request timeout in seconds (default: 30)
}

// SchedulerConfig holds sweep scheduling configuration
type SchedulerConfig struct {
	DueSpec           string // Cron spec for the due sweep
	RetrySpec         string // Cron spec for the retry sweep
	BatchSize         int
	PendingTimeoutMin int // Minutes before a PENDING attempt counts as stuck
	ChargesPerSec     float64
}

// PlanConfig holds plan lifecycle configuration
type PlanConfig struct {
	DefaultInstallments int
	MaxInstallments     int
	MaxRetryAttempts    int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			CronSecret:     getEnv("CRON_SECRET", ""),
			WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
			RequestsPerSec: getEnvAsFloat("SERVER_REQUESTS_PER_SEC", 50),
			RequestBurst:   getEnvAsInt("SERVER_REQUEST_BURST", 100),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "paylater_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			Provider: getEnv("GATEWAY_PROVIDER", "stripe"),
			BaseURL:  getEnv("GATEWAY_BASE_URL", "https://api.stripe.com"),
			APIKey:   getEnv("GATEWAY_API_KEY", ""),
			Timeout:  getEnvAsInt("GATEWAY_TIMEOUT", 30),
		},
		Scheduler: SchedulerConfig{
			DueSpec:           getEnv("SCHEDULER_DUE_SPEC", "0 9 * * *"),
			RetrySpec:         getEnv("SCHEDULER_RETRY_SPEC", "*/30 * * * *"),
			BatchSize:         getEnvAsInt("SCHEDULER_BATCH_SIZE", 100),
			PendingTimeoutMin: getEnvAsInt("SCHEDULER_PENDING_TIMEOUT_MIN", 30),
			ChargesPerSec:     getEnvAsFloat("SCHEDULER_CHARGES_PER_SEC", 5),
		},
		Plan: PlanConfig{
			DefaultInstallments: getEnvAsInt("PLAN_DEFAULT_INSTALLMENTS", 3),
			MaxInstallments:     getEnvAsInt("PLAN_MAX_INSTALLMENTS", 12),
			MaxRetryAttempts:    getEnvAsInt("PLAN_MAX_RETRY_ATTEMPTS", 3),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.APIKey == "" {
		return nil, fmt.Errorf("GATEWAY_API_KEY is required")
	}
	if cfg.Server.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}
	if cfg.Server.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
