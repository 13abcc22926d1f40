// Package config defines the top-level configuration for fairwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FAIRWATCH_* environment
// variables.
type Config struct {
	Gate     GateConfig     `toml:"gate"`
	Mexc     MexcConfig     `toml:"mexc"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	ProxyURL string         `toml:"proxy_url"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// GateConfig holds Gate.io endpoints and venue tuning.
type GateConfig struct {
	Enabled bool   `toml:"enabled"`
	RestURL string `toml:"rest_url"`
	WebURL  string `toml:"web_url"` // browser-facing host, index breakdown endpoint
	WsURL   string `toml:"ws_url"`
	// Cooldown is the alert suppression window for this venue.
	Cooldown duration `toml:"cooldown"`
	// PingInterval for the streaming keepalive.
	PingInterval duration `toml:"ping_interval"`
}

// MexcConfig holds MEXC endpoints, credentials, and venue tuning. The
// wallet-network endpoint is the only signed call; ApiKey/ApiSecret may be
// left empty, which degrades network enrichment to a placeholder.
type MexcConfig struct {
	Enabled       bool   `toml:"enabled"`
	FuturesURL    string `toml:"futures_url"`     // public futures REST
	FuturesWebURL string `toml:"futures_web_url"` // web futures REST (index weights)
	SpotURL       string `toml:"spot_url"`
	WsURL         string `toml:"ws_url"`
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`

	Cooldown     duration `toml:"cooldown"`
	PingInterval duration `toml:"ping_interval"`
}

// AlertsConfig holds the spread alert policy. ThresholdPct is the single
// source of truth for the alert threshold.
type AlertsConfig struct {
	ThresholdPct float64 `toml:"threshold_pct"`
	// EnrichTimeout bounds each supplementary reference-data fetch.
	EnrichTimeout duration `toml:"enrich_timeout"`
}

// MonitorConfig holds connection supervision parameters, shared by all
// venue supervisors.
type MonitorConfig struct {
	// PollInterval is how often connection health is checked.
	PollInterval duration `toml:"poll_interval"`
	// MaxConsecutiveFailures before the supervisor backs off to Cooloff.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
	// Cooloff is the extended wait after repeated reconnect failures.
	Cooloff duration `toml:"cooloff"`
	// ReconnectBase and ReconnectMax bound the exponential backoff.
	ReconnectBase duration `toml:"reconnect_base"`
	ReconnectMax  duration `toml:"reconnect_max"`
	// HandoffBuffer is the capacity of the transport-to-pipeline channel.
	HandoffBuffer int `toml:"handoff_buffer"`
}

// ChatTarget is one Telegram delivery target. ThreadID is optional and
// addresses a forum topic within the chat.
type ChatTarget struct {
	ChatID   string `toml:"chat_id"`
	ThreadID int64  `toml:"thread_id"`
}

// TelegramConfig holds bot credentials and alert delivery targets.
type TelegramConfig struct {
	BotToken string       `toml:"bot_token"`
	Chats    []ChatTarget `toml:"chats"`
	// Commands enables the long-poll command router (/gate, /mexc, /cex).
	Commands bool `toml:"commands"`
	// PollTimeout is the getUpdates long-poll duration.
	PollTimeout duration `toml:"poll_timeout"`
}

// DiscordConfig holds the optional secondary alert channel. An empty
// webhook URL disables it.
type DiscordConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// RedisConfig holds connection parameters for the shared cooldown backend.
// When Enabled is false the in-memory cooldown tracker is used instead.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds the optional alert history store. An empty DSN
// disables persistence entirely.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Gate: GateConfig{
			Enabled:      true,
			RestURL:      "https://api.gateio.ws/api/v4",
			WebURL:       "https://www.gate.com",
			WsURL:        "wss://fx-ws.gateio.ws/v4/ws/usdt",
			Cooldown:     duration{2 * time.Minute},
			PingInterval: duration{10 * time.Second},
		},
		Mexc: MexcConfig{
			Enabled:       true,
			FuturesURL:    "https://contract.mexc.com/api/v1",
			FuturesWebURL: "https://www.mexc.com/api/platform/futures/api/v1",
			SpotURL:       "https://api.mexc.com",
			WsURL:         "wss://contract.mexc.com/edge",
			Cooldown:      duration{5 * time.Minute},
			PingInterval:  duration{15 * time.Second},
		},
		Alerts: AlertsConfig{
			ThresholdPct:  5.0,
			EnrichTimeout: duration{10 * time.Second},
		},
		Monitor: MonitorConfig{
			PollInterval:           duration{10 * time.Second},
			MaxConsecutiveFailures: 5,
			Cooloff:                duration{60 * time.Second},
			ReconnectBase:          duration{1 * time.Second},
			ReconnectMax:           duration{60 * time.Second},
			HandoffBuffer:          256,
		},
		Telegram: TelegramConfig{
			Commands:    true,
			PollTimeout: duration{30 * time.Second},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 5,
			PoolMinConns: 1,
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"bot":     true,
	"once":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, bot, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !c.Gate.Enabled && !c.Mexc.Enabled {
		errs = append(errs, "at least one venue must be enabled")
	}

	if c.Gate.Enabled {
		if c.Gate.RestURL == "" {
			errs = append(errs, "gate: rest_url must not be empty")
		}
		if c.Gate.WsURL == "" {
			errs = append(errs, "gate: ws_url must not be empty")
		}
		if c.Gate.Cooldown.Duration <= 0 {
			errs = append(errs, "gate: cooldown must be positive")
		}
	}
	if c.Mexc.Enabled {
		if c.Mexc.FuturesURL == "" {
			errs = append(errs, "mexc: futures_url must not be empty")
		}
		if c.Mexc.WsURL == "" {
			errs = append(errs, "mexc: ws_url must not be empty")
		}
		if c.Mexc.Cooldown.Duration <= 0 {
			errs = append(errs, "mexc: cooldown must be positive")
		}
		if (c.Mexc.ApiKey == "") != (c.Mexc.ApiSecret == "") {
			errs = append(errs, "mexc: api_key and api_secret must be set together")
		}
	}

	if c.Alerts.ThresholdPct <= 0 {
		errs = append(errs, "alerts: threshold_pct must be > 0")
	}

	if c.Monitor.PollInterval.Duration <= 0 {
		errs = append(errs, "monitor: poll_interval must be positive")
	}
	if c.Monitor.MaxConsecutiveFailures < 1 {
		errs = append(errs, "monitor: max_consecutive_failures must be >= 1")
	}
	if c.Monitor.ReconnectBase.Duration <= 0 || c.Monitor.ReconnectMax.Duration < c.Monitor.ReconnectBase.Duration {
		errs = append(errs, "monitor: reconnect backoff bounds are invalid")
	}
	if c.Monitor.HandoffBuffer < 1 {
		errs = append(errs, "monitor: handoff_buffer must be >= 1")
	}

	// The bot token is the only fatal startup requirement: monitor and bot
	// modes cannot deliver anything without it.
	mode := strings.ToLower(c.Mode)
	if mode == "monitor" || mode == "bot" {
		if c.Telegram.BotToken == "" {
			errs = append(errs, "telegram: bot_token is required for mode "+mode)
		}
		if mode == "monitor" && len(c.Telegram.Chats) == 0 {
			errs = append(errs, "telegram: at least one alert chat is required for monitor mode")
		}
	}
	for i, chat := range c.Telegram.Chats {
		if chat.ChatID == "" {
			errs = append(errs, fmt.Sprintf("telegram: chats[%d].chat_id must not be empty", i))
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.DSN != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
