package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields
// replaced by the redaction placeholder "***". Use this when logging or
// printing the active configuration so secrets are never accidentally
// exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Mexc.ApiKey)
	redact(&out.Mexc.ApiSecret)
	redact(&out.Telegram.BotToken)
	redact(&out.Discord.WebhookURL)
	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.ProxyURL)

	// Copy the chat list so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Telegram.Chats != nil {
		out.Telegram.Chats = make([]ChatTarget, len(cfg.Telegram.Chats))
		copy(out.Telegram.Chats, cfg.Telegram.Chats)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
