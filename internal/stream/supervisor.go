package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akavalov/fairwatch/internal/domain"
)

// Handler is invoked for every inbound message matching a subscribed
// topic. Handlers run on the single delivery goroutine of the supervisor,
// so per-venue arrival order is preserved.
type Handler func(ctx context.Context, msg Message)

// Config holds supervision tuning shared by all venue supervisors.
type Config struct {
	// PollInterval is how often connection health is checked.
	PollInterval time.Duration
	// MaxConsecutiveFailures before backing off to Cooloff.
	MaxConsecutiveFailures int
	// Cooloff is the extended wait after repeated reconnect failures, so a
	// venue that is down is not hammered in a hot loop.
	Cooloff time.Duration
	// ReconnectBase and ReconnectMax bound the exponential backoff between
	// reconnect attempts.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 5
	}
	if c.Cooloff <= 0 {
		c.Cooloff = 60 * time.Second
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax < c.ReconnectBase {
		c.ReconnectMax = 60 * time.Second
	}
	return c
}

// Supervisor keeps exactly one logical streaming subscription alive per
// venue and hands every inbound message to its handler in arrival order.
// ConnectionState is owned exclusively by the supervisor; other components
// read it through State().
type Supervisor struct {
	venue     string
	transport Transport
	cfg       Config
	logger    *slog.Logger

	state atomic.Int32

	mu     sync.Mutex
	topics []string // subscription order is preserved for re-issue
	subs   map[string]Handler

	running atomic.Bool
}

// NewSupervisor creates a supervisor for one venue transport.
func NewSupervisor(venue string, transport Transport, cfg Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		venue:     venue,
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(slog.String("component", "supervisor"), slog.String("venue", venue)),
		subs:      make(map[string]Handler),
	}
}

// Venue returns the venue this supervisor owns.
func (s *Supervisor) Venue() string { return s.venue }

// State returns the current connection state.
func (s *Supervisor) State() domain.ConnectionState {
	return domain.ConnectionState(s.state.Load())
}

func (s *Supervisor) setState(st domain.ConnectionState) {
	old := domain.ConnectionState(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Debug("connection state changed",
			slog.String("from", old.String()),
			slog.String("to", st.String()),
		)
	}
}

// Connect establishes the transport and performs the venue handshake.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.setState(domain.StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		s.setState(domain.StateDisconnected)
		return fmt.Errorf("stream: %s connect: %w", s.venue, err)
	}
	s.setState(domain.StateConnected)
	return nil
}

// Subscribe sends a subscription request for topic and registers handler
// for every matching inbound message. The subscription is re-issued
// automatically after every reconnect.
func (s *Supervisor) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if !s.transport.Connected() {
		return fmt.Errorf("stream: %s subscribe %s: %w", s.venue, topic, domain.ErrNotConnected)
	}
	if err := s.transport.Subscribe(ctx, topic); err != nil {
		return fmt.Errorf("stream: %s subscribe %s: %w: %w", s.venue, topic, domain.ErrSubscribe, err)
	}
	s.mu.Lock()
	if _, exists := s.subs[topic]; !exists {
		s.topics = append(s.topics, topic)
	}
	s.subs[topic] = handler
	s.mu.Unlock()
	s.logger.Info("subscribed", slog.String("topic", topic))
	return nil
}

// Run starts the delivery and monitoring loops and blocks until ctx is
// cancelled. Both loops are joined and the transport is closed before Run
// returns, so a restart never races with a still-draining goroutine.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("stream: %s: supervisor already running", s.venue)
	}
	defer s.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.deliveryLoop(ctx) })
	g.Go(func() error { return s.monitorLoop(ctx) })

	err := g.Wait()
	_ = s.transport.Close()
	s.setState(domain.StateDisconnected)
	s.logger.Info("supervisor stopped")
	return err
}

// deliveryLoop is the single consumer of the transport handoff channel.
func (s *Supervisor) deliveryLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.transport.Messages():
			if !ok {
				return nil
			}
			s.mu.Lock()
			handler := s.subs[msg.Topic]
			s.mu.Unlock()
			if handler == nil {
				s.logger.Debug("message for unsubscribed topic dropped", slog.String("topic", msg.Topic))
				continue
			}
			handler(ctx, msg)
		}
	}
}

// monitorLoop polls connection health and drives recovery. After
// MaxConsecutiveFailures failed reconnects it waits out the cool-off
// interval and resets the counter; any successful reconnect also resets it.
func (s *Supervisor) monitorLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if s.transport.Connected() {
			continue
		}

		s.logger.Warn("transport disconnected, attempting to reconnect",
			slog.Int("consecutive_failures", consecutiveFailures),
		)

		if s.Reconnect(ctx) {
			consecutiveFailures = 0
			s.logger.Info("reconnected")
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		consecutiveFailures++
		if consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
			s.logger.Error("reconnect failed repeatedly, backing off",
				slog.Int("failures", consecutiveFailures),
				slog.Duration("cooloff", s.cfg.Cooloff),
			)
			s.setState(domain.StateBackoff)
			if !sleepCtx(ctx, s.cfg.Cooloff) {
				return ctx.Err()
			}
			consecutiveFailures = 0
		}
	}
}

// Reconnect re-establishes the transport with exponential backoff and
// re-issues every previously active subscription before reporting success.
// A reopened connection without its subscriptions would silently drop data.
func (s *Supervisor) Reconnect(ctx context.Context) bool {
	s.setState(domain.StateReconnecting)

	delay := s.cfg.ReconnectBase
	for attempt := 0; attempt < s.cfg.MaxConsecutiveFailures; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, delay) {
				s.setState(domain.StateDisconnected)
				return false
			}
			delay *= 2
			if delay > s.cfg.ReconnectMax {
				delay = s.cfg.ReconnectMax
			}
		}

		if err := s.transport.Connect(ctx); err != nil {
			s.logger.Warn("reconnect attempt failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.resubscribe(ctx); err != nil {
			// The connection is up but wrongly subscribed; the next Connect
			// attempt tears it down and starts clean.
			s.logger.Warn("resubscribe after reconnect failed", slog.String("error", err.Error()))
			continue
		}

		s.setState(domain.StateConnected)
		return true
	}

	s.setState(domain.StateDisconnected)
	return false
}

// resubscribe re-issues all active subscriptions in their original order.
func (s *Supervisor) resubscribe(ctx context.Context) error {
	s.mu.Lock()
	topics := make([]string, len(s.topics))
	copy(topics, s.topics)
	s.mu.Unlock()

	for _, topic := range topics {
		if err := s.transport.Subscribe(ctx, topic); err != nil {
			return fmt.Errorf("stream: %s resubscribe %s: %w: %w", s.venue, topic, domain.ErrSubscribe, err)
		}
	}
	return nil
}

// sleepCtx waits for d or until ctx is cancelled; it reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
