// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CardSecret enables encrypted card payloads when set. CardSalt must be
	// at least 8 bytes.
	CardSecret      string
	CardSalt        string
	CardChecksumKey string

	VerifyRatePerMinute int

	LogLevel  string
	LogFormat string

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
	OTelHeaders  string
}

// Load reads the configuration from the environment. Values in a .env file
// in the working directory (or the files given) fill in unset variables.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8084"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CardSecret:      getEnv("CARD_SECRET", ""),
		CardSalt:        getEnv("CARD_SALT", "koperasi-sinoman"),
		CardChecksumKey: getEnv("CARD_CHECKSUM_KEY", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelHeaders:     getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.VerifyRatePerMinute, err = getEnvInt("VERIFY_RATE_PER_MINUTE", 600); err != nil {
		return nil, err
	}
	if cfg.OTelEnabled, err = getEnvBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTelInsecure, err = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}

	if cfg.CardSecret != "" && len(cfg.CardSalt) < 8 {
		return nil, fmt.Errorf("CARD_SALT must be at least 8 bytes")
	}
	if cfg.VerifyRatePerMinute <= 0 {
		return nil, fmt.Errorf("VERIFY_RATE_PER_MINUTE must be positive, got %d", cfg.VerifyRatePerMinute)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
