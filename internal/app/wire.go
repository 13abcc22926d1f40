package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akavalov/fairwatch/internal/aggregate"
	"github.com/akavalov/fairwatch/internal/config"
	"github.com/akavalov/fairwatch/internal/cooldown"
	"github.com/akavalov/fairwatch/internal/notify"
	"github.com/akavalov/fairwatch/internal/pipeline"
	"github.com/akavalov/fairwatch/internal/store/postgres"
	"github.com/akavalov/fairwatch/internal/stream"
	"github.com/akavalov/fairwatch/internal/venue"
	"github.com/akavalov/fairwatch/internal/venue/gate"
	"github.com/akavalov/fairwatch/internal/venue/mexc"
)

const restTimeout = 15 * time.Second

// VenueRuntime bundles everything one venue contributes to the monitor:
// its REST connector, frame normalizer, ticker topic, and a transport
// factory. Transports are single-use (Close is permanent), so every
// monitor start builds fresh ones through NewTransport.
type VenueRuntime struct {
	Name         string
	Connector    venue.Connector
	Normalizer   pipeline.Normalizer
	Topic        string
	NewTransport func(logger *slog.Logger) stream.Transport
}

// Dependencies bundles everything the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Venues      []*VenueRuntime
	Connectors  []venue.Connector
	Tracker     cooldown.Tracker
	Telegram    *notify.TelegramClient // nil without a bot token
	Notifier    *notify.Notifier
	Coordinator *aggregate.Coordinator
	AlertStore  *postgres.AlertStore // nil when persistence is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// must be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	httpClient, err := venue.NewHTTPClient(restTimeout, cfg.ProxyURL)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: http client: %w", err)
	}

	// --- Venues ---
	if cfg.Gate.Enabled {
		client := gate.NewClient(cfg.Gate.RestURL, cfg.Gate.WebURL, httpClient)
		wsURL, ping, buffer := cfg.Gate.WsURL, cfg.Gate.PingInterval.Duration, cfg.Monitor.HandoffBuffer
		deps.Venues = append(deps.Venues, &VenueRuntime{
			Name:       gate.VenueName,
			Connector:  client,
			Normalizer: gate.Normalizer{},
			Topic:      gate.TopicTickers,
			NewTransport: func(logger *slog.Logger) stream.Transport {
				return gate.NewStreamClient(wsURL, ping, buffer, logger)
			},
		})
	}
	if cfg.Mexc.Enabled {
		timeSync := &mexc.TimeSync{}
		client := mexc.NewClient(mexc.ClientConfig{
			FuturesURL:    cfg.Mexc.FuturesURL,
			FuturesWebURL: cfg.Mexc.FuturesWebURL,
			SpotURL:       cfg.Mexc.SpotURL,
			ApiKey:        cfg.Mexc.ApiKey,
			ApiSecret:     cfg.Mexc.ApiSecret,
		}, httpClient, timeSync)

		// Signed wallet calls reject skewed timestamps; a failed sync only
		// degrades network enrichment, so it is not fatal here.
		if client.HasCredentials() {
			if err := timeSync.Sync(ctx, httpClient, client.ServerTimeURL()); err != nil {
				logger.WarnContext(ctx, "mexc time sync failed",
					slog.String("error", err.Error()))
			}
		}

		wsURL, ping, buffer := cfg.Mexc.WsURL, cfg.Mexc.PingInterval.Duration, cfg.Monitor.HandoffBuffer
		deps.Venues = append(deps.Venues, &VenueRuntime{
			Name:       mexc.VenueName,
			Connector:  client,
			Normalizer: mexc.Normalizer{},
			Topic:      mexc.TopicTickers,
			NewTransport: func(logger *slog.Logger) stream.Transport {
				return mexc.NewStreamClient(wsURL, ping, buffer, logger)
			},
		})
	}
	for _, v := range deps.Venues {
		deps.Connectors = append(deps.Connectors, v.Connector)
	}

	// --- Cooldown tracker ---
	windows := map[string]time.Duration{
		gate.VenueName: cfg.Gate.Cooldown.Duration,
		mexc.VenueName: cfg.Mexc.Cooldown.Duration,
	}
	if cfg.Redis.Enabled {
		tracker, err := cooldown.NewRedisTracker(ctx, cooldown.RedisOptions{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		}, windows, 2*time.Minute)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis cooldown: %w", err)
		}
		deps.Tracker = tracker
	} else {
		deps.Tracker = cooldown.NewMemoryTracker(windows, 2*time.Minute)
	}
	closers = append(closers, func() { _ = deps.Tracker.Close() })

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Telegram.BotToken != "" {
		deps.Telegram = notify.NewTelegramClient(cfg.Telegram.BotToken, nil)
		if len(cfg.Telegram.Chats) > 0 {
			targets := make([]notify.ChatTarget, 0, len(cfg.Telegram.Chats))
			for _, chat := range cfg.Telegram.Chats {
				targets = append(targets, notify.ChatTarget{ChatID: chat.ChatID, ThreadID: chat.ThreadID})
			}
			senders = append(senders, notify.NewTelegramSender(deps.Telegram, targets, logger))
		}
	}
	if cfg.Discord.WebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Discord.WebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, nil, logger)

	// --- Alert history (optional) ---
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		deps.AlertStore = postgres.NewAlertStore(pgClient.Pool())
	}

	// --- Aggregation ---
	deps.Coordinator = aggregate.NewCoordinator(deps.Connectors, restTimeout, logger)

	return deps, cleanup, nil
}
