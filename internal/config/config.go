package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Conversation memory
	MemoryBackend       string
	MemoryTTL           time.Duration
	MemorySweepInterval time.Duration

	// Language model
	LLMProvider         string
	LLMFallbackProvider string
	LLMTimeout          time.Duration
	LLMMaxTokens        int
	LLMTemperature      float64
	AgentMaxIterations  int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModelID       string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string

	// Clinic and booking rules
	BookingHorizonDays int
	ClinicTimezone     string
	ClinicLocation     string

	AuthJWTSecret string

	// Email
	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Provider directory
	ProviderCacheSize int
	ProviderCacheTTL  time.Duration
	ProviderSeedFile  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		MemoryBackend:       strings.ToLower(getEnv("MEMORY_BACKEND", "memory")),
		MemoryTTL:           getEnvAsDuration("MEMORY_TTL", 24*time.Hour),
		MemorySweepInterval: getEnvAsDuration("MEMORY_SWEEP_INTERVAL", 15*time.Minute),

		LLMProvider:         strings.ToLower(getEnv("LLM_PROVIDER", "bedrock")),
		LLMFallbackProvider: strings.ToLower(getEnv("LLM_FALLBACK_PROVIDER", "")),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		AgentMaxIterations:  getEnvAsInt("AGENT_MAX_ITERATIONS", 5),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		BookingHorizonDays: getEnvAsInt("BOOKING_HORIZON_DAYS", 180),
		ClinicTimezone:     getEnv("CLINIC_TIMEZONE", "UTC"),
		ClinicLocation:     getEnv("CLINIC_LOCATION", "Main Clinic"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		EmailProvider:  strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Clinic Booking Assistant"),

		ProviderCacheSize: getEnvAsInt("PROVIDER_CACHE_SIZE", 128),
		ProviderCacheTTL:  getEnvAsDuration("PROVIDER_CACHE_TTL", 5*time.Minute),
		ProviderSeedFile:  getEnv("PROVIDER_SEED_FILE", ""),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.MemoryBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("config: MEMORY_BACKEND=redis requires REDIS_ADDR")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: MEMORY_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown MEMORY_BACKEND %q", c.MemoryBackend)
	}
	for _, p := range []string{c.LLMProvider, c.LLMFallbackProvider} {
		switch p {
		case "", "bedrock", "gemini", "openai":
		default:
			return fmt.Errorf("config: unknown LLM provider %q", p)
		}
	}
	if c.LLMFallbackProvider != "" && c.LLMFallbackProvider == c.LLMProvider {
		return fmt.Errorf("config: LLM_FALLBACK_PROVIDER must differ from LLM_PROVIDER")
	}
	switch c.EmailProvider {
	case "log", "sendgrid", "ses":
	default:
		return fmt.Errorf("config: unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("config: CLINIC_TIMEZONE: %w", err)
	}
	if c.AgentMaxIterations < 1 {
		return fmt.Errorf("config: AGENT_MAX_ITERATIONS must be at least 1")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
