package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	DatabaseURL     string
	WebhookURL      string
	WebhookTimeout  time.Duration
	CallbackBaseURL string
	NewsletterName  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		WebhookURL:      os.Getenv("GENERATION_WEBHOOK_URL"),
		WebhookTimeout:  90 * time.Second,
		CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),
		NewsletterName:  getEnv("NEWSLETTER_NAME", "My Newsletter"),
	}

	if v := os.Getenv("GENERATION_WEBHOOK_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("GENERATION_WEBHOOK_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.WebhookTimeout = time.Duration(secs) * time.Second
	}

	// DATABASE_URL and GENERATION_WEBHOOK_URL are both optional: without a
	// database the server runs on in-memory storage, without a webhook URL it
	// simulates the generation workflow locally.

	return cfg, nil
}

// OfflineStorage reports whether no durable store is configured.
func (c *Config) OfflineStorage() bool {
	return c.DatabaseURL == ""
}

// SimulatedDispatch reports whether no external workflow is configured.
func (c *Config) SimulatedDispatch() bool {
	return c.WebhookURL == ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
