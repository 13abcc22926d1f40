// Package stream owns per-venue streaming connection supervision: the
// connect/subscribe/keepalive/reconnect state machine, health monitoring
// with bounded backoff, and the ordered handoff of inbound messages to the
// ticker pipeline.
package stream

import "context"

// Message is one inbound data frame from a venue transport, attributed to
// the subscription topic it belongs to. Payload is the raw frame; decoding
// is the pipeline's job.
type Message struct {
	Venue   string
	Topic   string
	Payload []byte
}

// Transport is the venue-specific streaming connection. Implementations
// run their own read and keepalive goroutines after Connect and publish
// data frames to the Messages channel; control frames (pongs, subscription
// acks) and malformed frames are filtered out inside the transport.
//
// Transports do not restore subscriptions themselves: after a reconnect
// the supervisor re-issues every active subscription before reporting the
// connection healthy.
type Transport interface {
	// Connect dials the venue and starts the read and keepalive loops.
	// Safe to call again after a connection loss.
	Connect(ctx context.Context) error
	// Subscribe sends a subscription request for topic on the live
	// connection. Fails with domain.ErrNotConnected when there is none.
	Subscribe(ctx context.Context, topic string) error
	// Connected reports whether the transport currently holds a live
	// connection.
	Connected() bool
	// Messages is the bounded handoff channel carrying inbound data
	// frames. The same channel persists across reconnects; it simply stops
	// receiving once the transport is closed.
	Messages() <-chan Message
	// Close tears the connection down and stops all transport goroutines.
	Close() error
}
