package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in, cmd, arg string
	}{
		{"/gate BTC", "/gate", "BTC"},
		{"/cex@fairwatch_bot eth", "/cex", "eth"},
		{"/monitor start", "/monitor", "start"},
		{"  /help  ", "/help", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		cmd, arg := splitCommand(c.in)
		assert.Equal(t, c.cmd, cmd, "input %q", c.in)
		assert.Equal(t, c.arg, arg, "input %q", c.in)
	}
}

func TestUsageText(t *testing.T) {
	assert.Contains(t, usageText, "/gate SYMBOL - ")
	assert.Contains(t, usageText, "/monitor start|stop|status - ")
	assert.NotContains(t, usageText, "—")
}

type fakeMonitor struct {
	running  bool
	startErr error
}

func (m *fakeMonitor) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func (m *fakeMonitor) Stop(context.Context) error {
	m.running = false
	return nil
}

func (m *fakeMonitor) Running() bool { return m.running }

func TestMonitorCommand(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("lifecycle", func(t *testing.T) {
		mon := &fakeMonitor{}
		r := New(nil, nil, nil, mon, nil, 5.0, 0, logger)

		assert.Equal(t, "Monitoring: stopped", r.monitorCommand(ctx, "status"))
		assert.Equal(t, "Monitoring started", r.monitorCommand(ctx, "start"))
		assert.Equal(t, "Monitoring already running", r.monitorCommand(ctx, "start"))
		assert.Equal(t, "Monitoring: running", r.monitorCommand(ctx, ""))
		assert.Equal(t, "Monitoring stopped", r.monitorCommand(ctx, "stop"))
		assert.Equal(t, "Monitoring is not running", r.monitorCommand(ctx, "stop"))
	})

	t.Run("start failure surfaces error", func(t *testing.T) {
		mon := &fakeMonitor{startErr: errors.New("ws dial failed")}
		r := New(nil, nil, nil, mon, nil, 5.0, 0, logger)
		assert.Contains(t, r.monitorCommand(ctx, "start"), "ws dial failed")
	})

	t.Run("unavailable without control", func(t *testing.T) {
		r := New(nil, nil, nil, nil, nil, 5.0, 0, logger)
		assert.Equal(t, "Monitoring is not available in this mode", r.monitorCommand(ctx, "start"))
	})
}
