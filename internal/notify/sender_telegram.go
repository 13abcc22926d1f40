package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/render"
)

// TelegramSender delivers alerts to a list of chat targets. Each target is
// tried with the MarkdownV2 rendering first; if Telegram rejects it, the
// target gets one retry with the plain rendering. Per-target failures
// never block the remaining targets.
type TelegramSender struct {
	client  *TelegramClient
	targets []ChatTarget
	logger  *slog.Logger
}

// NewTelegramSender creates a sender over client for the given targets.
func NewTelegramSender(client *TelegramClient, targets []ChatTarget, logger *slog.Logger) *TelegramSender {
	return &TelegramSender{
		client:  client,
		targets: targets,
		logger:  logger.With(slog.String("component", "telegram_sender")),
	}
}

// SendAlert implements Sender. It returns an error only when no target
// accepted the message.
func (s *TelegramSender) SendAlert(ctx context.Context, ev domain.AlertEvent) error {
	markdown := render.AlertMarkdown(ev)
	plain := render.AlertPlain(ev)

	delivered := 0
	for _, target := range s.targets {
		if err := s.client.SendMessage(ctx, target, markdown, "MarkdownV2"); err != nil {
			s.logger.WarnContext(ctx, "markdown delivery rejected, retrying plain",
				slog.String("target", target.String()),
				slog.String("error", err.Error()),
			)
			if err := s.client.SendMessage(ctx, target, plain, ""); err != nil {
				s.logger.ErrorContext(ctx, "delivery failed",
					slog.String("target", target.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
		}
		delivered++
	}

	s.logger.InfoContext(ctx, "alert dispatched",
		slog.String("key", ev.Key().String()),
		slog.String("direction", string(ev.Direction)),
		slog.Float64("spread_pct", ev.SpreadPct),
		slog.Int("delivered", delivered),
		slog.Int("targets", len(s.targets)),
	)

	if delivered == 0 && len(s.targets) > 0 {
		return fmt.Errorf("telegram: alert %s: no target accepted delivery", ev.Key())
	}
	return nil
}

// SendText implements Sender.
func (s *TelegramSender) SendText(ctx context.Context, text string) error {
	delivered := 0
	for _, target := range s.targets {
		if err := s.client.SendMessage(ctx, target, text, ""); err != nil {
			s.logger.WarnContext(ctx, "text delivery failed",
				slog.String("target", target.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		delivered++
	}
	if delivered == 0 && len(s.targets) > 0 {
		return fmt.Errorf("telegram: no target accepted delivery")
	}
	return nil
}

// Name implements Sender.
func (s *TelegramSender) Name() string {
	return "telegram"
}
