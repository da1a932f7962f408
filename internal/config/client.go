package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the merchant and tracker command line clients.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	StoreID        string
	OrderID        string
	PollInterval   time.Duration
	Logger         LoggerConfig
}

// LoadClient loads client configuration from environment variables, reading
// a .env file first when present.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
		APIKey:         getEnv("API_KEY", ""),
		RequestTimeout: getEnvAsDuration("API_TIMEOUT", 10*time.Second),
		StoreID:        getEnv("STORE_ID", ""),
		OrderID:        getEnv("ORDER_ID", ""),
		PollInterval:   getEnvAsDuration("POLL_INTERVAL", 3*time.Second),
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}

	return cfg, nil
}

// WebsocketURL derives the websocket endpoint from the API base URL.
func (c *ClientConfig) WebsocketURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
