package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DisplayConfig tunes the display surfaces: how often each one polls the
// store, when elapsed time escalates an order, and how many consecutive
// failed polls flip the degraded-connectivity indicator.
type DisplayConfig struct {
	StoreBaseURL string `yaml:"store_base_url"`

	KitchenPollInterval time.Duration `yaml:"kitchen_poll_interval"`
	SalonPollInterval   time.Duration `yaml:"salon_poll_interval"`
	TrackPollInterval   time.Duration `yaml:"track_poll_interval"`

	UrgentAfter   time.Duration `yaml:"urgent_after"`
	CriticalAfter time.Duration `yaml:"critical_after"`

	DegradedAfterFailures int `yaml:"degraded_after_failures"`
}

// DefaultDisplayConfig returns the display tuning used when no config
// file is given. Kitchen and salon are ambient screens, so they poll on
// a short interval; the track surface reads a single row and can match.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		StoreBaseURL:          "http://localhost:8080",
		KitchenPollInterval:   4 * time.Second,
		SalonPollInterval:     4 * time.Second,
		TrackPollInterval:     3 * time.Second,
		UrgentAfter:           10 * time.Minute,
		CriticalAfter:         20 * time.Minute,
		DegradedAfterFailures: 3,
	}
}

// LoadDisplayConfig loads display tuning from a YAML file, falling back
// to defaults for anything the file leaves out. An empty path returns
// the defaults.
func LoadDisplayConfig(path string) (DisplayConfig, error) {
	cfg := DefaultDisplayConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return cfg, fmt.Errorf("failed to read display config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse display config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the display config for values the surfaces cannot run with
func (c DisplayConfig) Validate() error {
	if c.KitchenPollInterval <= 0 || c.SalonPollInterval <= 0 || c.TrackPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}

	if c.UrgentAfter <= 0 || c.CriticalAfter <= c.UrgentAfter {
		return fmt.Errorf("escalation thresholds must satisfy 0 < urgent < critical")
	}

	if c.DegradedAfterFailures < 1 {
		return fmt.Errorf("degraded_after_failures must be at least 1")
	}

	return nil
}
