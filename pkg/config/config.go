package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	RedisURL           string
	LogLevel           string
	CORSAllowedOrigins []string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ProviderJWTSecret string
	SchoolJWTSecret   string
	TokenTTL          time.Duration

	SessionSweepIntervalMinutes int
	LoginRateLimitPerMinute     int

	// DemoLoginEmail short-circuits a provider console login to a locally
	// fabricated session, used for offline demos. Empty disables it.
	DemoLoginEmail string

	Plans map[string]Plan
}

// Plan describes a subscription tier offered to tenant schools.
type Plan struct {
	Name        string
	MaxStudents int
	MaxTeachers int
	MaxClasses  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTLHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}

	sweepInterval, err := strconv.Atoi(getEnv("SESSION_SWEEP_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL_MINUTES: %w", err)
	}

	loginRate, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "classtrack"),
		DBPassword: getEnv("DB_PASSWORD", "dev"),
		DBName:     getEnv("DB_NAME", "classtrack"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ProviderJWTSecret: getEnv("PROVIDER_JWT_SECRET", ""),
		SchoolJWTSecret:   getEnv("SCHOOL_JWT_SECRET", ""),
		TokenTTL:          time.Duration(tokenTTLHours) * time.Hour,

		SessionSweepIntervalMinutes: sweepInterval,
		LoginRateLimitPerMinute:     loginRate,

		DemoLoginEmail: getEnv("DEMO_LOGIN_EMAIL", "demo@classtrack.app"),

		Plans: map[string]Plan{
			"free": {
				Name:        "Free (50 students, 5 teachers, 5 classes)",
				MaxStudents: 50,
				MaxTeachers: 5,
				MaxClasses:  5,
			},
			"basic": {
				Name:        "Basic (500 students, 50 teachers, 30 classes)",
				MaxStudents: 500,
				MaxTeachers: 50,
				MaxClasses:  30,
			},
			"premium": {
				Name:        "Premium (unlimited)",
				MaxStudents: 0,
				MaxTeachers: 0,
				MaxClasses:  0,
			},
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
