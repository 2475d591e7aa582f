package stream

import (
	"encoding/json"
	"time"
)

// State is the lifecycle of one gateway connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Status is a read-only snapshot of a Manager's connection state.
type Status struct {
	State        State     `json:"state"`
	ConnectCount int       `json:"connect_count"`
	ErrorCount   int       `json:"error_count"`
	LastEvent    time.Time `json:"last_event"`
}

// Envelope is the tagged wire frame shared by both event channels. The
// Data payload is decoded by the subscriber that knows the Type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
