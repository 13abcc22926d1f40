package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akavalov/fairwatch/internal/bot"
	"github.com/akavalov/fairwatch/internal/pipeline"
	"github.com/akavalov/fairwatch/internal/render"
	"github.com/akavalov/fairwatch/internal/stream"
)

// shutdownTimeout bounds the graceful stop of the supervisor set.
const shutdownTimeout = 10 * time.Second

// SetOnceSymbol sets the symbol the once mode aggregates. Defaults to
// BTC_USDT when unset.
func (a *App) SetOnceSymbol(symbol string) {
	a.onceSymbol = symbol
}

// MonitorMode runs the streaming supervisors with the alert pipeline and,
// when enabled, the Telegram command router. It blocks until the context
// is cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Int("venues", len(deps.Venues)),
		slog.Float64("threshold_pct", a.cfg.Alerts.ThresholdPct),
	)

	ctrl := newMonitorController(ctx, a, deps)
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("app: start monitoring: %w", err)
	}

	deps.Notifier.Broadcast(ctx, "fairwatch monitoring started")

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Telegram.Commands && deps.Telegram != nil {
		router := a.newRouter(deps, ctrl)
		g.Go(func() error { return router.Run(gctx) })
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return gctx.Err()
		})
	}

	err := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = ctrl.Stop(stopCtx)
	deps.Notifier.Broadcast(stopCtx, "fairwatch monitoring stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// BotMode runs only the command router: on-demand lookups without live
// monitoring.
func (a *App) BotMode(ctx context.Context, deps *Dependencies) error {
	if deps.Telegram == nil {
		return errors.New("app: bot mode requires a telegram bot token")
	}
	a.logger.InfoContext(ctx, "starting bot mode")

	router := a.newRouter(deps, nil)
	err := router.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// OnceMode performs a single aggregation and prints it to stdout. Used as
// a connectivity and configuration diagnostic.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	symbol := a.onceSymbol
	if symbol == "" {
		symbol = "BTC_USDT"
	}
	a.logger.InfoContext(ctx, "running single aggregation", slog.String("symbol", symbol))

	view := deps.Coordinator.Aggregate(ctx, symbol)
	fmt.Fprintln(os.Stdout, render.AggregatePlain(view))
	return nil
}

// newRouter builds the Telegram command router over the wired deps.
func (a *App) newRouter(deps *Dependencies, ctrl bot.MonitorControl) *bot.Router {
	var history bot.AlertHistory
	if deps.AlertStore != nil {
		history = deps.AlertStore
	}
	return bot.New(deps.Telegram, deps.Connectors, deps.Coordinator, ctrl, history,
		a.cfg.Alerts.ThresholdPct, a.cfg.Telegram.PollTimeout.Duration, a.logger)
}

// buildSupervisors creates fresh transports, pipelines, and supervisors
// for every venue and brings the subscriptions up. Transports are
// single-use, so this runs on every monitor start.
func (a *App) buildSupervisors(ctx context.Context, deps *Dependencies) ([]*stream.Supervisor, error) {
	var recorder pipeline.Recorder
	if deps.AlertStore != nil {
		recorder = deps.AlertStore
	}

	supCfg := stream.Config{
		PollInterval:           a.cfg.Monitor.PollInterval.Duration,
		MaxConsecutiveFailures: a.cfg.Monitor.MaxConsecutiveFailures,
		Cooloff:                a.cfg.Monitor.Cooloff.Duration,
		ReconnectBase:          a.cfg.Monitor.ReconnectBase.Duration,
		ReconnectMax:           a.cfg.Monitor.ReconnectMax.Duration,
	}

	var (
		supervisors []*stream.Supervisor
		transports  []stream.Transport
	)
	teardown := func() {
		for _, t := range transports {
			_ = t.Close()
		}
	}

	for _, v := range deps.Venues {
		transport := v.NewTransport(a.logger)
		transports = append(transports, transport)
		sup := stream.NewSupervisor(v.Name, transport, supCfg, a.logger)

		enricher := pipeline.NewEnricher(v.Connector, a.cfg.Alerts.EnrichTimeout.Duration, a.logger)
		p := pipeline.New(v.Name, v.Normalizer, a.cfg.Alerts.ThresholdPct,
			deps.Tracker, enricher, deps.Notifier, recorder, a.logger)

		if err := sup.Connect(ctx); err != nil {
			teardown()
			return nil, err
		}
		if err := sup.Subscribe(ctx, v.Topic, p.Handler()); err != nil {
			teardown()
			return nil, err
		}
		supervisors = append(supervisors, sup)
	}
	return supervisors, nil
}

// monitorController starts and stops the supervisor set. It implements
// bot.MonitorControl so operators can toggle monitoring from chat.
type monitorController struct {
	app     *App
	deps    *Dependencies
	baseCtx context.Context

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newMonitorController(baseCtx context.Context, app *App, deps *Dependencies) *monitorController {
	return &monitorController{app: app, deps: deps, baseCtx: baseCtx}
}

// Running implements bot.MonitorControl.
func (m *monitorController) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Start implements bot.MonitorControl. Each start builds fresh transports
// and supervisors; the set runs until Stop or base context cancellation.
func (m *monitorController) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("app: monitoring already running")
	}

	runCtx, cancel := context.WithCancel(m.baseCtx)
	supervisors, err := m.app.buildSupervisors(ctx, m.deps)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)

		g, gctx := errgroup.WithContext(runCtx)
		for _, sup := range supervisors {
			sup := sup
			g.Go(func() error { return sup.Run(gctx) })
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			m.app.logger.Error("supervisor group exited", slog.String("error", err.Error()))
		}

		m.mu.Lock()
		if m.done == done {
			m.cancel = nil
			m.done = nil
		}
		m.mu.Unlock()
	}()

	return nil
}

// Stop implements bot.MonitorControl. It cancels the running set and
// waits for the supervisors to finish, bounded by ctx.
func (m *monitorController) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("app: stop monitoring: %w", ctx.Err())
	}
}
