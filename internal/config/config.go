package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// developmentSecret signs tokens outside production when JWT_SECRET is unset.
const developmentSecret = "lambda-http-development-secret"

// Config holds all configuration for the application
type Config struct {
	Environment    string
	Port           string
	LogLevel       string
	HandlerTimeout time.Duration
	AllowOrigins   []string
	Site           SiteConfig
	JWT            JWTConfig
	RateLimit      RateLimitConfig
}

// SiteConfig describes the deployed site handed to functions
type SiteConfig struct {
	URL  string
	Name string
	ID   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	ExpiryHours int
	Issuer      string
}

// RateLimitConfig holds per-client rate limiting configuration.
// RPS <= 0 disables rate limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8888")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_URL", "http://localhost:8888")
	v.SetDefault("SITE_NAME", "lambda-http")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("JWT_ISSUER", "lambda-http")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("HANDLER_TIMEOUT", "10s")

	config := &Config{
		Environment:    v.GetString("ENVIRONMENT"),
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		HandlerTimeout: v.GetDuration("HANDLER_TIMEOUT"),
		AllowOrigins:   splitList(v.GetString("ALLOW_ORIGINS")),
		Site: SiteConfig{
			URL:  strings.TrimRight(v.GetString("SITE_URL"), "/"),
			Name: v.GetString("SITE_NAME"),
			ID:   v.GetString("SITE_ID"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
			Issuer:      v.GetString("JWT_ISSUER"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.JWT.Secret == "" {
		config.JWT.Secret = developmentSecret
	}
	return config, nil
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWT.ExpiryHours)
	}
	if c.HandlerTimeout < 0 {
		return fmt.Errorf("HANDLER_TIMEOUT must not be negative, got %s", c.HandlerTimeout)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// NewLogger builds the application logger: JSON in production, text otherwise
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
