package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port              string
	BaseURL           string
	AllowedOrigin     string
	DatabaseDSN       string
	DBLogLevel        string
	LogLevel          string
	JWTSecret         string
	JWTTTL            time.Duration
	ResetSecret       string
	ResetTTL          time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DashboardCacheTTL time.Duration
	GeminiAPIKey      string
	GeminiModel       string
	AllowRegistration bool
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		DatabaseDSN:       strings.TrimSpace(os.Getenv("DB_DSN")),
		DBLogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:            time.Duration(intFromEnv("JWT_TTL_HOURS", 24)) * time.Hour,
		ResetSecret:       strings.TrimSpace(os.Getenv("RESET_PASSWORD_SECRET")),
		ResetTTL:          time.Duration(intFromEnv("RESET_PASSWORD_TTL_MINUTES", 15)) * time.Minute,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           intFromEnv("REDIS_DB", 0),
		DashboardCacheTTL: time.Duration(intFromEnv("DASHBOARD_CACHE_SECONDS", 30)) * time.Second,
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		AllowRegistration: os.Getenv("ALLOW_REGISTRATION") == "true",
	}

	if cfg.DatabaseDSN == "" {
		return cfg, errors.New("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is not set")
	}
	if cfg.ResetSecret == "" {
		// reset tokens must never verify as access tokens
		cfg.ResetSecret = cfg.JWTSecret + ":reset"
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
