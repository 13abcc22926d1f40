package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akavalov/fairwatch/internal/domain"
)

// fakeTransport is a scriptable in-memory transport.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	connectErrs  []error // consumed per Connect call, nil entries succeed
	subscribeErr error
	subscribed   []string
	connects     int

	out chan Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{out: make(chan Message, 16)}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Subscribe(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Messages() <-chan Message { return f.out }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) drop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	return Config{
		PollInterval:           5 * time.Millisecond,
		MaxConsecutiveFailures: 3,
		Cooloff:                20 * time.Millisecond,
		ReconnectBase:          time.Millisecond,
		ReconnectMax:           4 * time.Millisecond,
	}
}

func TestSubscribeRequiresConnection(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("GATE", tr, fastConfig(), testLogger())

	err := sup.Subscribe(context.Background(), "futures.tickers", func(context.Context, Message) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSubscribeWrapsTransportFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.subscribeErr = errors.New("channel rejected")
	sup := NewSupervisor("GATE", tr, fastConfig(), testLogger())

	ctx := context.Background()
	require.NoError(t, sup.Connect(ctx))

	err := sup.Subscribe(ctx, "futures.tickers", func(context.Context, Message) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubscribe)
}

func TestDeliveryPreservesOrder(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("GATE", tr, fastConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sup.Connect(ctx))
	assert.Equal(t, domain.StateConnected, sup.State())

	var mu sync.Mutex
	var got []string
	require.NoError(t, sup.Subscribe(ctx, "futures.tickers", func(_ context.Context, msg Message) {
		mu.Lock()
		got = append(got, string(msg.Payload))
		mu.Unlock()
	}))

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	for _, payload := range []string{"a", "b", "c", "d"} {
		tr.out <- Message{Venue: "GATE", Topic: "futures.tickers", Payload: []byte(payload)}
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	mu.Unlock()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, domain.StateDisconnected, sup.State())
}

func TestUnsubscribedTopicDropped(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("GATE", tr, fastConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sup.Connect(ctx))

	var calls int
	require.NoError(t, sup.Subscribe(ctx, "futures.tickers", func(context.Context, Message) {
		calls++
	}))

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	tr.out <- Message{Venue: "GATE", Topic: "futures.candlesticks", Payload: []byte("x")}

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, calls)
}

func TestReconnectResubscribesInOrder(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("MEXC", tr, fastConfig(), testLogger())

	ctx := context.Background()
	require.NoError(t, sup.Connect(ctx))
	require.NoError(t, sup.Subscribe(ctx, "push.tickers", func(context.Context, Message) {}))
	require.NoError(t, sup.Subscribe(ctx, "push.depth", func(context.Context, Message) {}))

	tr.drop()
	require.True(t, sup.Reconnect(ctx))

	assert.Equal(t, domain.StateConnected, sup.State())
	// Initial two subscribes plus both re-issued after the reconnect.
	assert.Equal(t, []string{"push.tickers", "push.depth", "push.tickers", "push.depth"}, tr.subscriptions())
}

func TestReconnectRetriesWithBackoff(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErrs = []error{nil} // initial Connect
	sup := NewSupervisor("MEXC", tr, fastConfig(), testLogger())

	ctx := context.Background()
	require.NoError(t, sup.Connect(ctx))

	tr.drop()
	tr.mu.Lock()
	tr.connectErrs = []error{errors.New("refused"), errors.New("refused"), nil}
	tr.mu.Unlock()

	require.True(t, sup.Reconnect(ctx))
	assert.Equal(t, 4, tr.connects, "one initial connect plus three reconnect attempts")
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("MEXC", tr, fastConfig(), testLogger())

	ctx := context.Background()
	require.NoError(t, sup.Connect(ctx))

	tr.drop()
	refused := errors.New("refused")
	tr.mu.Lock()
	tr.connectErrs = []error{refused, refused, refused, refused}
	tr.mu.Unlock()

	assert.False(t, sup.Reconnect(ctx))
	assert.Equal(t, domain.StateDisconnected, sup.State())
}

func TestMonitorLoopCooloffAfterRepeatedFailures(t *testing.T) {
	tr := newFakeTransport()
	cfg := fastConfig()
	cfg.Cooloff = 100 * time.Millisecond
	sup := NewSupervisor("GATE", tr, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sup.Connect(ctx))
	require.NoError(t, sup.Subscribe(ctx, "futures.tickers", func(context.Context, Message) {}))

	// Three failed reconnect cycles of three attempts each drive the loop
	// into the cool-off; the attempt after it succeeds.
	refused := errors.New("refused")
	tr.mu.Lock()
	tr.connectErrs = []error{
		refused, refused, refused,
		refused, refused, refused,
		refused, refused, refused,
	}
	tr.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	tr.drop()

	require.Eventually(t, func() bool {
		return sup.State() == domain.StateBackoff
	}, time.Second, time.Millisecond)
	backoffAt := time.Now()

	require.Eventually(t, func() bool {
		return tr.Connected() && sup.State() == domain.StateConnected
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(backoffAt), cfg.Cooloff/2,
		"recovery must wait out the cool-off interval")
	assert.Contains(t, tr.subscriptions(), "futures.tickers")

	// The failure counter was reset: a fresh drop with a single failed
	// cycle recovers without another cool-off.
	tr.mu.Lock()
	tr.connectErrs = []error{refused, refused, refused}
	tr.mu.Unlock()
	tr.drop()
	droppedAt := time.Now()

	require.Eventually(t, func() bool {
		return tr.Connected() && sup.State() == domain.StateConnected
	}, time.Second, time.Millisecond)
	assert.Less(t, time.Since(droppedAt), cfg.Cooloff,
		"a reset counter must not trigger the cool-off again")

	cancel()
	<-done
}

func TestMonitorLoopRecoversDroppedConnection(t *testing.T) {
	tr := newFakeTransport()
	sup := NewSupervisor("GATE", tr, fastConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sup.Connect(ctx))
	require.NoError(t, sup.Subscribe(ctx, "futures.tickers", func(context.Context, Message) {}))

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	tr.drop()

	assert.Eventually(t, func() bool {
		return tr.Connected() && sup.State() == domain.StateConnected
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}
