package domain

// ConnectionState is the lifecycle state of one venue's streaming
// connection. It is owned exclusively by that venue's stream supervisor;
// other components only ever read it.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateBackoff
)

// String returns the state name for logs and status output.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}
