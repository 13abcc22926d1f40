package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/stream"
)

const (
	wsWriteWait        = 10 * time.Second
	wsHandshakeTimeout = 15 * time.Second
)

// StreamClient is the MEXC contract streaming transport. Keepalive is an
// application-level {"method":"ping"} frame answered by a pong push; any
// inbound frame refreshes the read deadline.
type StreamClient struct {
	wsURL        string
	pingInterval time.Duration
	logger       *slog.Logger

	out chan stream.Message

	mu        sync.Mutex // guards conn and outbound writes
	conn      *websocket.Conn
	connected atomic.Bool
	closed    atomic.Bool
}

// NewStreamClient creates a MEXC streaming transport. buffer sizes the
// handoff channel between the read loop and the pipeline consumer.
func NewStreamClient(wsURL string, pingInterval time.Duration, buffer int, logger *slog.Logger) *StreamClient {
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	return &StreamClient{
		wsURL:        wsURL,
		pingInterval: pingInterval,
		logger:       logger.With(slog.String("component", "mexc_ws")),
		out:          make(chan stream.Message, buffer),
	}
}

// Connect dials the contract WS endpoint and starts the read and keepalive
// loops. Any previous connection is torn down first.
func (c *StreamClient) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("mexc/ws: %w", domain.ErrWSDisconnect)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.connected.Store(false)
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("mexc/ws: connect: %w", err)
	}

	c.conn = conn
	c.connected.Store(true)

	go c.readLoop(conn)
	go c.pingLoop(conn)

	return nil
}

// Subscribe sends a subscription request for topic. The ticker channel
// covers every contract and maps to the "sub.tickers" method.
func (c *StreamClient) Subscribe(ctx context.Context, topic string) error {
	method := topic
	if topic == TopicTickers {
		method = "sub.tickers"
	}
	if err := c.writeJSON(wsRequest{Method: method, Param: map[string]any{}}); err != nil {
		return fmt.Errorf("mexc/ws: subscribe %s: %w", topic, err)
	}
	return nil
}

// Connected implements stream.Transport.
func (c *StreamClient) Connected() bool {
	return c.connected.Load()
}

// Messages implements stream.Transport.
func (c *StreamClient) Messages() <-chan stream.Message {
	return c.out
}

// Close shuts the transport down permanently.
func (c *StreamClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected.Store(false)
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// writeJSON serializes writes across the ping loop and subscribe calls.
func (c *StreamClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return domain.ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames until the connection dies. It only marks the
// transport disconnected when conn is still the current connection, so a
// stale loop from before a reconnect cannot clobber the fresh state.
func (c *StreamClient) readLoop(conn *websocket.Conn) {
	readWait := 3 * c.pingInterval
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.dropConn(conn, err)
			return
		}
		c.handleFrame(raw)
	}
}

// pingLoop sends the venue keepalive frame on the configured interval.
func (c *StreamClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		current := c.conn == conn
		c.mu.Unlock()
		if !current {
			return
		}
		if err := c.writeJSON(wsRequest{Method: "ping"}); err != nil {
			c.dropConn(conn, err)
			return
		}
	}
}

// dropConn marks the connection lost if conn is still current.
func (c *StreamClient) dropConn(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.conn = nil
	c.connected.Store(false)
	_ = conn.Close()
	if !c.closed.Load() {
		c.logger.Warn("connection lost", slog.String("error", cause.Error()))
	}
}

// handleFrame filters control frames and forwards ticker pushes into the
// handoff channel. Malformed frames are logged and skipped; they are never
// fatal to the connection.
func (c *StreamClient) handleFrame(raw []byte) {
	var push wsPush
	if err := json.Unmarshal(raw, &push); err != nil {
		c.logger.Warn("malformed frame skipped", slog.String("error", err.Error()))
		return
	}

	switch push.Channel {
	case "pong", "clock":
		return
	case "rs.sub.tickers":
		c.logger.Debug("subscription confirmed")
		return
	case "rs.error":
		c.logger.Warn("subscription rejected", slog.String("frame", string(raw)))
		return
	case TopicTickers:
		msg := stream.Message{Venue: VenueName, Topic: push.Channel, Payload: raw}
		select {
		case c.out <- msg:
		default:
			c.logger.Warn("handoff buffer full, frame dropped", slog.String("channel", push.Channel))
		}
	default:
		c.logger.Debug("unhandled channel", slog.String("channel", push.Channel))
	}
}
