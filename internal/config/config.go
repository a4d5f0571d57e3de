package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
)

// DefaultSortColumn is the column used when a request does not name one.
const DefaultSortColumn = "FECHA_VENTA"

// Config holds all server configuration
type Config struct {
	// Core
	Debug bool

	// Server
	Host             string
	Port             string
	HealthServerPort string

	// Sessions
	MaxMessageSize int
	MaxSessions    int
	ReadTimeout    time.Duration
	ProcessTimeout time.Duration
	WriteTimeout   time.Duration

	// Sorting
	DefaultSortColumn string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	maxMessageSize, err := getEnvQuantity("MAX_MESSAGE_SIZE", "16Ki")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		Host:             getEnv("SORT_SERVER_HOST", ""),
		Port:             getEnv("SORT_SERVER_PORT", ""),
		HealthServerPort: getEnv("HEALTH_SERVER_PORT", "8081"),

		MaxMessageSize: maxMessageSize,
		MaxSessions:    getEnvInt("MAX_SESSIONS", 64),
		ReadTimeout:    getEnvDuration("READ_TIMEOUT", 30*time.Second),
		ProcessTimeout: getEnvDuration("PROCESS_TIMEOUT", 60*time.Second),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", 30*time.Second),

		DefaultSortColumn: getEnv("DEFAULT_SORT_COLUMN", DefaultSortColumn),
	}

	// Legacy support
	cfg.applyLegacySupport()

	// Validation
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the host:port the sort server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	for name, port := range map[string]string{"SORT_SERVER_PORT": c.Port, "HEALTH_SERVER_PORT": c.HealthServerPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("invalid %s: %q", name, port)
		}
	}
	if c.Port == c.HealthServerPort && c.Port != "0" {
		return fmt.Errorf("SORT_SERVER_PORT and HEALTH_SERVER_PORT must differ (both %s)", c.Port)
	}

	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}

	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":    c.ReadTimeout,
		"PROCESS_TIMEOUT": c.ProcessTimeout,
		"WRITE_TIMEOUT":   c.WriteTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if strings.TrimSpace(c.DefaultSortColumn) == "" {
		return fmt.Errorf("DEFAULT_SORT_COLUMN must not be empty")
	}

	return nil
}

// applyLegacySupport fills the listen address from the HOST/PORT names used
// by older deployments when the new names are unset.
func (c *Config) applyLegacySupport() {
	if c.Host == "" {
		c.Host = getEnv("HOST", "0.0.0.0")
	}
	if c.Port == "" {
		c.Port = getEnv("PORT", "8080")
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvQuantity parses a byte size such as "16Ki", "1M" or "4096".
func getEnvQuantity(key, defaultValue string) (int, error) {
	value := getEnv(key, defaultValue)
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	n, ok := q.AsInt64()
	if !ok || n > int64(^uint32(0)) {
		return 0, fmt.Errorf("invalid %s %q: not a whole number of bytes below 4Gi", key, value)
	}
	return int(n), nil
}
