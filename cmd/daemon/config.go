package main

import (
	"os"
	"strconv"
	"time"
)

// DaemonConfig holds daemon-specific configuration
type DaemonConfig struct {
	ConfigPath     string        // Path to profiler config YAML
	ScheduleHour   int           // Hour in the profile timezone (default: 16)
	ScheduleMinute int           // Minute (default: 15, after the closing print settles)
	StateFile      string        // File to track the last settled session
	RunOnStartup   bool          // Settle a missed session on startup
	RetryAfter     time.Duration // Wait between attempts after a failed run
}

// LoadDaemonConfig loads configuration from environment variables
func LoadDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		ConfigPath:     getEnvOrDefault("DAEMON_CONFIG_PATH", getEnvOrDefault("PROFILER_CONFIG", "/app/configs/default.yaml")),
		ScheduleHour:   getEnvIntOrDefault("DAEMON_SCHEDULE_HOUR", 16),
		ScheduleMinute: getEnvIntOrDefault("DAEMON_SCHEDULE_MINUTE", 15),
		StateFile:      getEnvOrDefault("DAEMON_STATE_FILE", "/app/data/.daemon-state"),
		RunOnStartup:   getEnvBoolOrDefault("DAEMON_RUN_ON_STARTUP", true),
		RetryAfter:     time.Duration(getEnvIntOrDefault("DAEMON_RETRY_MINUTES", 15)) * time.Minute,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
