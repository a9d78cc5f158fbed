package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration, loaded from the environment.
type Config struct {
	// Server
	ServerAddress string
	Environment   string

	// Durable store
	MongoURI       string
	MongoDatabase  string
	ConnectTimeout time.Duration

	// Authentication (tokens are issued by the external credential service)
	JWTSecret string
	JWTIssuer string

	// Query engine
	MaxDurationMinutes int // slider cap; a request at this value means "no upper bound"
	DefaultPageSize    int

	// Features
	EnableCORS    bool
	EnableMetrics bool
	LogLevel      string
}

// Load reads configuration from environment variables with defaults suited
// to local development.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "recipehub"),
		ConnectTimeout: time.Duration(getEnvInt("CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "recipehub-auth"),

		MaxDurationMinutes: getEnvInt("MAX_DURATION_MINUTES", 240),
		DefaultPageSize:    getEnvInt("DEFAULT_PAGE_SIZE", 12),

		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required configuration for the target environment.
func (c *Config) Validate() error {
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.MaxDurationMinutes <= 0 {
		return fmt.Errorf("MAX_DURATION_MINUTES must be positive")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}
