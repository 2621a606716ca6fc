package notify

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgnsrekt/auction-profile/internal/config"
)

// Config holds ntfy notification configuration.
type Config struct {
	Enabled  bool   // Whether notifications are enabled
	Server   string // ntfy server URL (default: https://ntfy.sh)
	Topic    string // Topic name (required if enabled)
	Priority string // Message priority: min, low, default, high, urgent or 1-5
	Tags     string // Comma-separated emoji tags (e.g., "chart_with_upwards_trend")
	Token    string // Optional access token for private topics

	// Proximity is the largest |tail - price| that triggers an opportunity alert.
	Proximity float64
	// MinConfidence filters out weak tails.
	MinConfidence float64
}

// FromSettings converts the service configuration section.
func FromSettings(s config.NotifyConfig) *Config {
	priority := "default"
	if s.Priority > 0 {
		priority = strconv.Itoa(s.Priority)
	}
	return &Config{
		Enabled:       s.Enabled,
		Server:        s.Server,
		Topic:         s.Topic,
		Priority:      priority,
		Tags:          s.Tags,
		Token:         s.Token,
		Proximity:     s.Proximity,
		MinConfidence: s.MinConfidence,
	}
}

// Validate checks configuration is valid when enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Topic == "" {
		return errors.New("notify.topic is required when notify is enabled")
	}

	validPriorities := map[string]bool{
		"min": true, "low": true, "default": true, "high": true, "urgent": true,
		"1": true, "2": true, "3": true, "4": true, "5": true,
	}
	if !validPriorities[c.Priority] {
		return fmt.Errorf("invalid notify.priority: %s (valid: min, low, default, high, urgent, 1-5)", c.Priority)
	}

	if c.Proximity < 0 {
		return fmt.Errorf("invalid notify.proximity: %v (must be >= 0)", c.Proximity)
	}

	return nil
}
