package telemetry

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"scada-sync/internal/core/catalog"
	"scada-sync/internal/core/stream"
)

// EventTelemetry is the envelope type carrying variable readings.
const EventTelemetry = "telemetry"

// Sink receives each freshly derived snapshot. Implementations must not
// block; they run on the stream's read goroutine.
type Sink interface {
	SnapshotUpdated(records []VariableRecord, devices []DeviceStatus)
}

// Hub ties the telemetry stream to the catalog: every inbound event is
// enriched and aggregated into a new snapshot that replaces the previous
// one atomically. Consumers read copies; the hub owns no transport.
type Hub struct {
	store *catalog.Store
	lg    zerolog.Logger
	sinks []Sink

	mu      sync.RWMutex
	records []VariableRecord
	devices []DeviceStatus
}

func NewHub(store *catalog.Store, lg zerolog.Logger, sinks ...Sink) *Hub {
	return &Hub{
		store: store,
		lg:    lg.With().Str("component", "hub").Logger(),
		sinks: sinks,
	}
}

// HandleEnvelope is the stream subscription entry point.
func (h *Hub) HandleEnvelope(env stream.Envelope) {
	if env.Type != EventTelemetry {
		h.lg.Debug().Str("type", env.Type).Msg("ignoring envelope")
		return
	}

	var ev RawEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		h.lg.Warn().Err(err).Msg("bad telemetry payload")
		return
	}

	cat := h.store.Current()
	records := Enrich(cat, ev)
	devices := AggregateDevices(records, cat)

	h.mu.Lock()
	h.records = records
	h.devices = devices
	h.mu.Unlock()

	for _, s := range h.sinks {
		s.SnapshotUpdated(records, devices)
	}
}

// Records returns a copy of the latest enriched variable records.
func (h *Hub) Records() []VariableRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]VariableRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Devices returns a copy of the latest per-device statuses.
func (h *Hub) Devices() []DeviceStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]DeviceStatus, len(h.devices))
	copy(out, h.devices)
	return out
}
