// Package notify delivers alert events and operator text to the configured
// channels. Alerts fan out to every registered sender (Telegram, Discord)
// and can be filtered by venue so operators receive only the feeds they
// care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
)

// Sender is one delivery channel.
type Sender interface {
	// SendAlert delivers a divergence alert.
	SendAlert(ctx context.Context, ev domain.AlertEvent) error
	// SendText delivers a plain operator message (startup, shutdown, errors).
	SendText(ctx context.Context, text string) error
	// Name returns a human-readable identifier ("telegram", "discord").
	Name() string
}

// Notifier dispatches to one or more Senders. It maintains a set of
// allowed venues; Alert only forwards events whose venue is in the set,
// while Broadcast bypasses the filter.
type Notifier struct {
	senders []Sender
	venues  map[string]bool // allowed venues, empty means all
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. Only alerts whose
// venue appears in venues are forwarded; an empty list allows all venues.
func NewNotifier(senders []Sender, venues []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(venues))
	for _, v := range venues {
		allowed[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	return &Notifier{
		senders: senders,
		venues:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Alert delivers ev to all senders if its venue passes the filter.
func (n *Notifier) Alert(ctx context.Context, ev domain.AlertEvent) error {
	if len(n.venues) > 0 && !n.venues[ev.Venue] {
		n.logger.DebugContext(ctx, "venue filtered out",
			slog.String("venue", ev.Venue),
		)
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.SendAlert(ctx, ev); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("key", ev.Key().String()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Broadcast sends an operator message to all senders regardless of filter.
// Individual failures are logged, never fatal.
func (n *Notifier) Broadcast(ctx context.Context, text string) {
	for _, s := range n.senders {
		if err := s.SendText(ctx, text); err != nil {
			n.logger.WarnContext(ctx, "broadcast failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}
