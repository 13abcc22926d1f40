package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FAIRWATCH_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			// A missing file is fine: env vars alone can configure a deploy.
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FAIRWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Gate ──
	setBool(&cfg.Gate.Enabled, "FAIRWATCH_GATE_ENABLED")
	setStr(&cfg.Gate.RestURL, "FAIRWATCH_GATE_REST_URL")
	setStr(&cfg.Gate.WebURL, "FAIRWATCH_GATE_WEB_URL")
	setStr(&cfg.Gate.WsURL, "FAIRWATCH_GATE_WS_URL")
	setDuration(&cfg.Gate.Cooldown, "FAIRWATCH_GATE_COOLDOWN")
	setDuration(&cfg.Gate.PingInterval, "FAIRWATCH_GATE_PING_INTERVAL")

	// ── MEXC ──
	setBool(&cfg.Mexc.Enabled, "FAIRWATCH_MEXC_ENABLED")
	setStr(&cfg.Mexc.FuturesURL, "FAIRWATCH_MEXC_FUTURES_URL")
	setStr(&cfg.Mexc.FuturesWebURL, "FAIRWATCH_MEXC_FUTURES_WEB_URL")
	setStr(&cfg.Mexc.SpotURL, "FAIRWATCH_MEXC_SPOT_URL")
	setStr(&cfg.Mexc.WsURL, "FAIRWATCH_MEXC_WS_URL")
	setStr(&cfg.Mexc.ApiKey, "FAIRWATCH_MEXC_API_KEY")
	setStr(&cfg.Mexc.ApiSecret, "FAIRWATCH_MEXC_API_SECRET")
	setDuration(&cfg.Mexc.Cooldown, "FAIRWATCH_MEXC_COOLDOWN")
	setDuration(&cfg.Mexc.PingInterval, "FAIRWATCH_MEXC_PING_INTERVAL")

	// ── Alerts ──
	setFloat64(&cfg.Alerts.ThresholdPct, "FAIRWATCH_ALERTS_THRESHOLD_PCT")
	setDuration(&cfg.Alerts.EnrichTimeout, "FAIRWATCH_ALERTS_ENRICH_TIMEOUT")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "FAIRWATCH_MONITOR_POLL_INTERVAL")
	setInt(&cfg.Monitor.MaxConsecutiveFailures, "FAIRWATCH_MONITOR_MAX_CONSECUTIVE_FAILURES")
	setDuration(&cfg.Monitor.Cooloff, "FAIRWATCH_MONITOR_COOLOFF")
	setDuration(&cfg.Monitor.ReconnectBase, "FAIRWATCH_MONITOR_RECONNECT_BASE")
	setDuration(&cfg.Monitor.ReconnectMax, "FAIRWATCH_MONITOR_RECONNECT_MAX")
	setInt(&cfg.Monitor.HandoffBuffer, "FAIRWATCH_MONITOR_HANDOFF_BUFFER")

	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "FAIRWATCH_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.BotToken, "BOT_TOKEN") // compatibility alias
	setBool(&cfg.Telegram.Commands, "FAIRWATCH_TELEGRAM_COMMANDS")
	setDuration(&cfg.Telegram.PollTimeout, "FAIRWATCH_TELEGRAM_POLL_TIMEOUT")
	setChatTargets(&cfg.Telegram.Chats, "FAIRWATCH_TELEGRAM_CHATS")

	// ── Discord ──
	setStr(&cfg.Discord.WebhookURL, "FAIRWATCH_DISCORD_WEBHOOK_URL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FAIRWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FAIRWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FAIRWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FAIRWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FAIRWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FAIRWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FAIRWATCH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FAIRWATCH_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "FAIRWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FAIRWATCH_POSTGRES_POOL_MIN_CONNS")

	// ── Top-level ──
	setStr(&cfg.ProxyURL, "FAIRWATCH_PROXY_URL")
	setStr(&cfg.ProxyURL, "HTTP_PROXY") // compatibility alias
	setStr(&cfg.Mode, "FAIRWATCH_MODE")
	setStr(&cfg.LogLevel, "FAIRWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// setChatTargets parses "chatID[:threadID]" entries separated by commas,
// e.g. "-1001234:77,-1005678".
func setChatTargets(dst *[]ChatTarget, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var targets []ChatTarget
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		target := ChatTarget{ChatID: part}
		if idx := strings.LastIndex(part, ":"); idx > 0 {
			if thread, err := strconv.ParseInt(part[idx+1:], 10, 64); err == nil {
				target.ChatID = part[:idx]
				target.ThreadID = thread
			}
		}
		targets = append(targets, target)
	}
	if len(targets) > 0 {
		*dst = targets
	}
}
