package autotrader

import (
	"errors"
	"time"
)

// Config holds the provider connection settings
type Config struct {
	// BaseURL is the API root, e.g. "https://api.provider.example/service"
	BaseURL string
	// Key and Secret are the credentials exchanged for a bearer token
	Key    string
	Secret string
	// TimeoutSeconds bounds every upstream call
	TimeoutSeconds int
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("autotrader: base URL is required")
	}
	if c.Key == "" || c.Secret == "" {
		return errors.New("autotrader: key and secret are required")
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	return nil
}

// Timeout returns the per-call deadline as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
