// Package heartbeat tracks backend and EDS liveness from the gateway's
// system-status event channel, independently of variable telemetry.
package heartbeat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scada-sync/internal/core/stream"
)

// Envelope types on the heartbeat channel.
const (
	EventHeartbeatStatus = "heartbeat_status"
	EventEDSStatus       = "eds_status"
)

// Discrete heartbeat_status event names emitted by the gateway.
const (
	EvConnectionEstablished     = "connection-established"
	EvHeartbeatAttempt          = "heartbeat-attempt"
	EvListenerRegistration      = "listener-registration"
	EvListenerRegistrationError = "listener-registration-error"
	EvEDSStatusCheck            = "eds-status-check"
	EvEDSStatusOffline          = "eds-status-offline"
	EvEDSStatusWarning          = "eds-status-warning"
	EvServiceStarted            = "service-started"
)

type effect int

const (
	effectSuccess effect = iota
	effectError
	effectOffline
)

// effects maps each event name to its state transition. Success events
// bump the success counter and mark the system online; error events bump
// the error counter; offline events additionally force online=false no
// matter what the counters say.
var effects = map[string]effect{
	EvConnectionEstablished:     effectSuccess,
	EvHeartbeatAttempt:          effectSuccess,
	EvListenerRegistration:      effectSuccess,
	EvEDSStatusCheck:            effectSuccess,
	EvServiceStarted:            effectSuccess,
	EvListenerRegistrationError: effectError,
	EvEDSStatusWarning:          effectError,
	EvEDSStatusOffline:          effectOffline,
}

// StatusEvent is one raw heartbeat_status frame.
type StatusEvent struct {
	Event     string    `json:"event"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EDSStatus is the structured status report from the field-device
// gateway. When it arrives it is authoritative over counter-derived
// state.
type EDSStatus struct {
	Online       bool    `json:"online"`
	Failures     int     `json:"failures"`
	ResponseTime float64 `json:"responseTime"`
	LastError    string  `json:"lastError,omitempty"`
	DeviceInfo   struct {
		Address  string `json:"address"`
		Firmware string `json:"firmware"`
	} `json:"deviceInfo"`
	Uptime    float64   `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorInfo is the last error surfaced on the channel, if any.
type ErrorInfo struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemStatus is the derived liveness view consumed by the UI.
type SystemStatus struct {
	Online        bool       `json:"online"`
	SuccessCount  int        `json:"success_count"`
	ErrorCount    int        `json:"error_count"`
	Failures      int        `json:"failures"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
	LastError     *ErrorInfo `json:"last_error,omitempty"`
	DeviceAddress string     `json:"device_address,omitempty"`
	Firmware      string     `json:"firmware,omitempty"`
}

// eventHistory bounds the ring buffer of raw events kept for operator
// inspection.
const eventHistory = 50

// Tracker folds heartbeat events into a SystemStatus snapshot and keeps
// the most recent raw events. It shares no state with the telemetry
// pipeline.
type Tracker struct {
	lg zerolog.Logger

	mu     sync.RWMutex
	status SystemStatus
	events []StatusEvent
}

func NewTracker(lg zerolog.Logger) *Tracker {
	return &Tracker{lg: lg.With().Str("component", "heartbeat").Logger()}
}

// HandleEnvelope is the stream subscription entry point.
func (t *Tracker) HandleEnvelope(env stream.Envelope) {
	switch env.Type {
	case EventHeartbeatStatus:
		var ev StatusEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			t.lg.Warn().Err(err).Msg("bad heartbeat payload")
			return
		}
		t.applyEvent(ev)
	case EventEDSStatus:
		var eds EDSStatus
		if err := json.Unmarshal(env.Data, &eds); err != nil {
			t.lg.Warn().Err(err).Msg("bad eds_status payload")
			return
		}
		t.applyEDS(eds)
	default:
		t.lg.Debug().Str("type", env.Type).Msg("ignoring envelope")
	}
}

func (t *Tracker) applyEvent(ev StatusEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record(ev)

	eff, known := effects[ev.Event]
	if !known {
		t.lg.Warn().Str("event", ev.Event).Msg("unrecognized heartbeat event")
		return
	}

	switch eff {
	case effectSuccess:
		t.status.SuccessCount++
		t.status.Online = true
		t.status.LastHeartbeat = ev.Timestamp
	case effectError:
		t.status.ErrorCount++
		t.status.LastError = &ErrorInfo{Message: errMessage(ev), Timestamp: ev.Timestamp}
	case effectOffline:
		t.status.ErrorCount++
		t.status.Online = false
		t.status.LastError = &ErrorInfo{Message: errMessage(ev), Timestamp: ev.Timestamp}
	}
}

// applyEDS installs the explicit gateway report over heuristic state.
func (t *Tracker) applyEDS(eds EDSStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Online = eds.Online
	t.status.Failures = eds.Failures
	t.status.DeviceAddress = eds.DeviceInfo.Address
	t.status.Firmware = eds.DeviceInfo.Firmware
	if !eds.Timestamp.IsZero() {
		t.status.LastHeartbeat = eds.Timestamp
	}
	if eds.LastError != "" {
		t.status.LastError = &ErrorInfo{Message: eds.LastError, Timestamp: eds.Timestamp}
	}
}

func (t *Tracker) record(ev StatusEvent) {
	t.events = append(t.events, ev)
	if len(t.events) > eventHistory {
		t.events = t.events[len(t.events)-eventHistory:]
	}
}

// Status returns the current liveness snapshot.
func (t *Tracker) Status() SystemStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Events returns a copy of the retained raw events, oldest first.
func (t *Tracker) Events() []StatusEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]StatusEvent, len(t.events))
	copy(out, t.events)
	return out
}

func errMessage(ev StatusEvent) string {
	if ev.Message != "" {
		return ev.Message
	}
	return ev.Event
}
