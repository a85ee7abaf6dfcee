package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	// Embedded zone database so TIMEZONE works in minimal containers
	_ "time/tzdata"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	JWKSURL          string
	JWTIssuer        string
	JWTAudience      string
	DevSubject       string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	SuggestCount     int
	ParseCacheSize   int
	Timezone         string
	Location         *time.Location
	ReparseInterval  time.Duration
	DLQRetention     time.Duration
	OTELEnabled      bool
	OTELEndpoint     string
	DebugMode        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RedisURL:         getEnv("REDIS_URL", ""),
		RateLimit:        getEnv("RATE_LIMIT", "20-S"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		JWKSURL:          getEnv("JWKS_URL", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", ""),
		JWTAudience:      getEnv("JWT_AUDIENCE", ""),
		DevSubject:       getEnv("DEV_SUBJECT", "local-dev"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		SuggestCount:     getEnvInt("SUGGEST_COUNT", 3),
		ParseCacheSize:   getEnvInt("PARSE_CACHE_SIZE", 4096),
		Timezone:         getEnv("TIMEZONE", "UTC"),
		ReparseInterval:  getEnvDuration("REPARSE_INTERVAL", time.Hour),
		DLQRetention:     getEnvDuration("DLQ_RETENTION", 24*time.Hour),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		DebugMode:        getEnvBool("DEBUG", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (re-parsing and suggestions require RabbitMQ)")
	}

	if cfg.JWKSURL != "" && cfg.JWTIssuer == "" {
		return nil, fmt.Errorf("JWT_ISSUER is required when JWKS_URL is set")
	}

	if cfg.ParseCacheSize <= 0 {
		return nil, fmt.Errorf("PARSE_CACHE_SIZE must be positive, got %d", cfg.ParseCacheSize)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// AuthEnabled reports whether bearer tokens are verified against a JWKS
func (c *Config) AuthEnabled() bool {
	return c.JWKSURL != ""
}

// AIConfig returns the settings passed to the AI provider factory
func (c *Config) AIConfig() map[string]string {
	return map[string]string{
		"api_key":  c.OpenAIKey,
		"model":    c.AIModel,
		"base_url": c.AIBaseURL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
