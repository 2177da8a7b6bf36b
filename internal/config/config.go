package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
)

// Config holds the Google Calendar integration credentials. Absence of
// ClientID or APIKey means the integration is not configured.
type Config struct {
	ClientID     string `json:"clientId" env:"DAYBOOK_CLIENT_ID"`
	ClientSecret string `json:"clientSecret" env:"DAYBOOK_CLIENT_SECRET"`
	APIKey       string `json:"apiKey" env:"DAYBOOK_API_KEY"`
	CalendarID   string `json:"calendarId" env:"DAYBOOK_CALENDAR_ID"`
}

// IsConfigured reports whether the minimum credentials are present.
func (c Config) IsConfigured() bool {
	return c.ClientID != "" && c.APIKey != ""
}

// CalendarOrPrimary returns the configured calendar identifier, defaulting to
// the provider's "primary" sentinel when empty.
func (c Config) CalendarOrPrimary() string {
	if c.CalendarID == "" {
		return "primary"
	}
	return c.CalendarID
}

// FromEnv builds a Config from DAYBOOK_* environment variables. Missing
// variables leave fields empty; validation happens at use sites.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return c, nil
}

// Dir returns the directory holding the settings file, the local event store
// and the OAuth token. Overridable via DAYBOOK_CONFIG_DIR.
func Dir() (string, error) {
	if dir := os.Getenv("DAYBOOK_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "daybook"), nil
}
