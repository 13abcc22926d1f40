// Package bot implements the Telegram command surface: on-demand venue
// lookups, cross-venue aggregation, and monitor control over a getUpdates
// long-poll loop.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/akavalov/fairwatch/internal/aggregate"
	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/notify"
	"github.com/akavalov/fairwatch/internal/pipeline"
	"github.com/akavalov/fairwatch/internal/render"
	"github.com/akavalov/fairwatch/internal/venue"
)

const errorRetryDelay = 5 * time.Second

// MonitorControl toggles the streaming supervisors at runtime.
type MonitorControl interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// AlertHistory serves the /recent command. Optional.
type AlertHistory interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AlertEvent, error)
}

// Router consumes Telegram updates and dispatches commands.
type Router struct {
	client       *notify.TelegramClient
	connectors   map[string]venue.Connector // keyed by venue name
	coordinator  *aggregate.Coordinator
	monitor      MonitorControl // nil outside monitor mode
	history      AlertHistory   // nil when persistence is disabled
	thresholdPct float64
	pollTimeout  time.Duration
	logger       *slog.Logger
}

// New creates a command router. monitor and history may be nil; the
// corresponding commands then answer that the feature is unavailable.
func New(client *notify.TelegramClient, connectors []venue.Connector, coordinator *aggregate.Coordinator,
	monitor MonitorControl, history AlertHistory, thresholdPct float64, pollTimeout time.Duration,
	logger *slog.Logger) *Router {
	byName := make(map[string]venue.Connector, len(connectors))
	for _, c := range connectors {
		byName[c.Name()] = c
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Router{
		client:       client,
		connectors:   byName,
		coordinator:  coordinator,
		monitor:      monitor,
		history:      history,
		thresholdPct: thresholdPct,
		pollTimeout:  pollTimeout,
		logger:       logger.With(slog.String("component", "bot")),
	}
}

// Run long-polls for updates until ctx is cancelled. Poll errors back off
// briefly and never terminate the loop.
func (r *Router) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "command router started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := r.client.GetUpdates(ctx, offset, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.WarnContext(ctx, "poll failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || !strings.HasPrefix(u.Message.Text, "/") {
				continue
			}
			r.handle(ctx, u.Message)
		}
	}
}

// handle parses and executes one command message.
func (r *Router) handle(ctx context.Context, msg *notify.IncomingMessage) {
	cmd, arg := splitCommand(msg.Text)

	r.logger.DebugContext(ctx, "command received",
		slog.String("command", cmd),
		slog.Int64("chat", msg.Chat.ID),
	)

	var reply string
	switch cmd {
	case "/start", "/help":
		reply = usageText
	case "/gate":
		reply = r.venueInfo(ctx, "GATE", arg)
	case "/mexc":
		reply = r.venueInfo(ctx, "MEXC", arg)
	case "/cex":
		reply = r.aggregated(ctx, arg)
	case "/monitor":
		reply = r.monitorCommand(ctx, arg)
	case "/recent":
		reply = r.recent(ctx, arg)
	default:
		return // unknown commands are ignored, the chat may host other bots
	}

	target := notify.ChatTarget{
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		ThreadID: msg.ThreadID,
	}
	if err := r.client.SendMessage(ctx, target, reply, ""); err != nil {
		r.logger.WarnContext(ctx, "reply failed",
			slog.String("command", cmd),
			slog.String("error", err.Error()),
		)
	}
}

const usageText = `Commands:
/gate SYMBOL - Gate.io futures and spot info
/mexc SYMBOL - MEXC futures and spot info
/cex SYMBOL - aggregated cross-venue view
/monitor start|stop|status - control live monitoring
/recent [N] - latest fired alerts`

// venueInfo answers a single-venue lookup with prices and current spread.
func (r *Router) venueInfo(ctx context.Context, venueName, arg string) string {
	if arg == "" {
		return "Usage: /" + strings.ToLower(venueName) + " SYMBOL"
	}
	conn, ok := r.connectors[venueName]
	if !ok {
		return venueName + " is not enabled"
	}

	symbol := venue.BaseCoin(arg) + "_USDT"

	var b strings.Builder
	b.WriteString(venueName + " " + symbol + "\n")

	ticker, err := conn.GetTicker(ctx, symbol)
	if err != nil {
		b.WriteString("Futures: " + domain.Unavailable + " (" + err.Error() + ")\n")
	} else {
		result := pipeline.Evaluate(domain.TickerSnapshot{
			Venue:          venueName,
			Instrument:     ticker.Instrument,
			LastPrice:      ticker.LastPrice,
			ReferencePrice: ticker.FairPrice,
		}, r.thresholdPct)
		b.WriteString("Last: " + render.Price(ticker.LastPrice) +
			" | Fair: " + render.Price(ticker.FairPrice) + "\n")
		b.WriteString("Spread: " + render.SignedPercent(result.SpreadPct) +
			" (" + string(result.Direction) + ")\n")
		b.WriteString("Volume 24h: " + render.Compact(ticker.Volume24h) + "\n")
	}

	spot, err := conn.GetSpotTicker(ctx, symbol)
	if err != nil {
		b.WriteString("Spot: " + domain.Unavailable + "\n")
	} else {
		b.WriteString("Spot: " + render.Price(spot.LastPrice))
		if spot.URL != "" {
			b.WriteString("  " + spot.URL)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// aggregated answers /cex with the merged multi-venue view.
func (r *Router) aggregated(ctx context.Context, arg string) string {
	if arg == "" {
		return "Usage: /cex SYMBOL"
	}
	symbol := venue.BaseCoin(arg) + "_USDT"
	view := r.coordinator.Aggregate(ctx, symbol)
	return render.AggregatePlain(view)
}

// monitorCommand handles /monitor start|stop|status.
func (r *Router) monitorCommand(ctx context.Context, arg string) string {
	if r.monitor == nil {
		return "Monitoring is not available in this mode"
	}
	switch strings.ToLower(arg) {
	case "start":
		if r.monitor.Running() {
			return "Monitoring already running"
		}
		if err := r.monitor.Start(ctx); err != nil {
			return "Failed to start monitoring: " + err.Error()
		}
		return "Monitoring started"
	case "stop":
		if !r.monitor.Running() {
			return "Monitoring is not running"
		}
		if err := r.monitor.Stop(ctx); err != nil {
			return "Failed to stop monitoring: " + err.Error()
		}
		return "Monitoring stopped"
	case "status", "":
		if r.monitor.Running() {
			return "Monitoring: running"
		}
		return "Monitoring: stopped"
	default:
		return "Usage: /monitor start|stop|status"
	}
}

// recent answers /recent with the latest fired alerts from the store.
func (r *Router) recent(ctx context.Context, arg string) string {
	if r.history == nil {
		return "Alert history is not configured"
	}
	limit := 5
	if arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 && n <= 25 {
			limit = n
		}
	}

	events, err := r.history.ListRecent(ctx, limit)
	if err != nil {
		return "Failed to load alert history: " + err.Error()
	}
	if len(events) == 0 {
		return "No alerts recorded yet"
	}

	var b strings.Builder
	b.WriteString("Recent alerts:\n")
	for _, ev := range events {
		b.WriteString(ev.FiredAt.UTC().Format("01-02 15:04") + " " +
			ev.Venue + " " + ev.Instrument + " " +
			render.SignedPercent(ev.SpreadPct) + " " + string(ev.Direction) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitCommand separates "/cmd@bot arg rest" into "/cmd" and "arg rest".
func splitCommand(text string) (cmd, arg string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	cmd = strings.ToLower(fields[0])
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.Join(fields[1:], " ")
}
