package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Symbol   string         `mapstructure:"symbol" yaml:"symbol"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Refresh  RefreshConfig  `mapstructure:"refresh" yaml:"refresh"`
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	WS       WSConfig       `mapstructure:"ws" yaml:"ws"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type SourceConfig struct {
	Provider      string `mapstructure:"provider" yaml:"provider"` // "yahoo" or "file"
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	UserAgent     string `mapstructure:"user_agent" yaml:"user_agent"`
	TimeoutSec    int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count" yaml:"retry_count"`
	RetryDelay    int    `mapstructure:"retry_delay_sec" yaml:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	DataDate      string `mapstructure:"data_date" yaml:"data_date"`
}

type RefreshConfig struct {
	Schedule        string `mapstructure:"schedule" yaml:"schedule"`
	QuoteInterval   string `mapstructure:"quote_interval" yaml:"quote_interval"`
	QuoteRange      string `mapstructure:"quote_range" yaml:"quote_range"`
	MarketHoursOnly bool   `mapstructure:"market_hours_only" yaml:"market_hours_only"`
}

type ProfileConfig struct {
	HistoryInterval string `mapstructure:"history_interval" yaml:"history_interval"`
	HistoryRange    string `mapstructure:"history_range" yaml:"history_range"`
	IBBars          int    `mapstructure:"ib_bars" yaml:"ib_bars"`
	Timezone        string `mapstructure:"timezone" yaml:"timezone"`
	PreviousSession string `mapstructure:"previous_session" yaml:"previous_session"` // "calendar" or "trading"
	CacheTTLSec     int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
}

type DownloadConfig struct {
	Workers       int      `mapstructure:"workers" yaml:"workers"`
	Symbols       []string `mapstructure:"symbols" yaml:"symbols"`
	Intervals     []string `mapstructure:"intervals" yaml:"intervals"`
	Range         string   `mapstructure:"range" yaml:"range"`
	ResumeEnabled bool     `mapstructure:"resume_enabled" yaml:"resume_enabled"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type RecorderConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // empty disables recording
}

type NotifyConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled"`
	Server        string  `mapstructure:"server" yaml:"server"`
	Topic         string  `mapstructure:"topic" yaml:"topic"`
	Token         string  `mapstructure:"token" yaml:"-"`
	Priority      int     `mapstructure:"priority" yaml:"priority"`
	Tags          string  `mapstructure:"tags" yaml:"tags"`
	Proximity     float64 `mapstructure:"proximity" yaml:"proximity"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

type WSConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

type EventsConfig struct {
	Enabled      bool `mapstructure:"enabled" yaml:"enabled"`
	HeartbeatSec int  `mapstructure:"heartbeat_sec" yaml:"heartbeat_sec"`
}

type LoggingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Directory   string `mapstructure:"directory" yaml:"directory"`
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "TSLA")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout_sec", 15)
	v.SetDefault("server.write_timeout_sec", 30)
	v.SetDefault("source.provider", ProviderYahoo)
	v.SetDefault("source.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("source.user_agent", "Mozilla/5.0")
	v.SetDefault("source.timeout_sec", 30)
	v.SetDefault("source.retry_count", 3)
	v.SetDefault("source.retry_delay_sec", 2)
	v.SetDefault("source.rate_per_second", 2)
	v.SetDefault("source.data_dir", "data")
	v.SetDefault("source.data_date", "latest")
	v.SetDefault("refresh.schedule", "@every 60s")
	v.SetDefault("refresh.quote_interval", "30m")
	v.SetDefault("refresh.quote_range", "1d")
	v.SetDefault("refresh.market_hours_only", false)
	v.SetDefault("profile.history_interval", "5m")
	v.SetDefault("profile.history_range", "30d")
	v.SetDefault("profile.ib_bars", 12)
	v.SetDefault("profile.timezone", "America/New_York")
	v.SetDefault("profile.previous_session", PreviousCalendar)
	v.SetDefault("profile.cache_ttl_sec", 60)
	v.SetDefault("download.workers", 3)
	v.SetDefault("download.symbols", []string{"TSLA"})
	v.SetDefault("download.intervals", []string{"5m", "30m"})
	v.SetDefault("download.range", "30d")
	v.SetDefault("download.resume_enabled", true)
	v.SetDefault("output.directory", "data")
	v.SetDefault("recorder.path", "")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", 3)
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("notify.proximity", 1.0)
	v.SetDefault("notify.min_confidence", 0.0)
	v.SetDefault("ws.enabled", true)
	v.SetDefault("ws.encoding", EncodingJSON)
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.heartbeat_sec", 15)
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.SetEnvPrefix("PROFILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Secrets never belong in the YAML file
	_ = v.BindEnv("notify.token", "PROFILER_NOTIFY_TOKEN", "NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Location returns the exchange timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Profile.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheTTL returns the history cache lifetime.
// Heartbeat is the idle interval between server-sent heartbeat events.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.Events.HeartbeatSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Profile.CacheTTLSec) * time.Second
}
