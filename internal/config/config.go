package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	Port         int
	LogLevel     string
	DevMode      bool

	// DiscountRate is the broker commission discount applied to every order.
	DiscountRate decimal.Decimal

	// TradeLimit caps the notional value of a single order. Zero disables the cap.
	TradeLimit decimal.Decimal

	// FeedURL is the websocket quote feed endpoint. Empty disables the feed client.
	FeedURL string

	// DuplicateWindowSeconds is how long an identical order shape is rejected
	// as a duplicate after submission.
	DuplicateWindowSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnvAsInt("GO_PORT", 8001),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		DatabasePath:           getEnv("DATABASE_PATH", "./data/trader.db"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DiscountRate:           getEnvAsDecimal("DISCOUNT_RATE", decimal.RequireFromString("0.6")),
		TradeLimit:             getEnvAsDecimal("TRADE_LIMIT", decimal.Zero),
		FeedURL:                getEnv("FEED_URL", ""),
		DuplicateWindowSeconds: getEnvAsInt("DUPLICATE_WINDOW_SECONDS", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DiscountRate.IsNegative() || c.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("DISCOUNT_RATE must be between 0 and 1")
	}
	if c.TradeLimit.IsNegative() {
		return fmt.Errorf("TRADE_LIMIT must not be negative")
	}
	if c.DuplicateWindowSeconds < 0 {
		return fmt.Errorf("DUPLICATE_WINDOW_SECONDS must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
