package heartbeat

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scada-sync/internal/core/stream"
)

func newTestTracker() *Tracker {
	return NewTracker(zerolog.New(os.Stdout))
}

func statusEnvelope(t *testing.T, ev StatusEvent) stream.Envelope {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return stream.Envelope{Type: EventHeartbeatStatus, Data: b}
}

func edsEnvelope(t *testing.T, eds EDSStatus) stream.Envelope {
	t.Helper()
	b, err := json.Marshal(eds)
	require.NoError(t, err)
	return stream.Envelope{Type: EventEDSStatus, Data: b}
}

func TestSuccessEventsSetOnline(t *testing.T) {
	tr := newTestTracker()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvServiceStarted, Timestamp: ts}))
	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvHeartbeatAttempt, Timestamp: ts.Add(time.Second)}))

	st := tr.Status()
	assert.True(t, st.Online)
	assert.Equal(t, 2, st.SuccessCount)
	assert.Equal(t, 0, st.ErrorCount)
	assert.Equal(t, ts.Add(time.Second), st.LastHeartbeat)
}

func TestErrorEventsIncrementCounter(t *testing.T) {
	tr := newTestTracker()
	ts := time.Now().UTC()

	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvConnectionEstablished, Timestamp: ts}))
	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{
		Event:     EvListenerRegistrationError,
		Message:   "registration rejected",
		Timestamp: ts,
	}))

	st := tr.Status()
	assert.True(t, st.Online) // an error alone does not flip the flag
	assert.Equal(t, 1, st.ErrorCount)
	require.NotNil(t, st.LastError)
	assert.Equal(t, "registration rejected", st.LastError.Message)
}

func TestOfflineEventForcesOffline(t *testing.T) {
	tr := newTestTracker()
	ts := time.Now().UTC()

	for i := 0; i < 5; i++ {
		tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvHeartbeatAttempt, Timestamp: ts}))
	}
	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvEDSStatusOffline, Timestamp: ts}))

	st := tr.Status()
	assert.False(t, st.Online)
	assert.Equal(t, 5, st.SuccessCount)
	assert.Equal(t, 1, st.ErrorCount)
}

// An explicit eds_status report overrides whatever the counters say.
func TestEDSStatusOverridesCounters(t *testing.T) {
	tr := newTestTracker()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: EvHeartbeatAttempt, Timestamp: ts}))
	}
	require.True(t, tr.Status().Online)

	eds := EDSStatus{
		Online:    false,
		Failures:  3,
		LastError: "device unreachable",
		Timestamp: ts.Add(time.Minute),
	}
	eds.DeviceInfo.Address = "10.0.0.7"
	eds.DeviceInfo.Firmware = "2.1.4"
	tr.HandleEnvelope(edsEnvelope(t, eds))

	st := tr.Status()
	assert.False(t, st.Online)
	assert.Equal(t, 3, st.Failures)
	assert.Equal(t, "10.0.0.7", st.DeviceAddress)
	assert.Equal(t, "2.1.4", st.Firmware)
	require.NotNil(t, st.LastError)
	assert.Equal(t, "device unreachable", st.LastError.Message)
	assert.Equal(t, ts.Add(time.Minute), st.LastHeartbeat)
}

func TestEventHistoryIsBounded(t *testing.T) {
	tr := newTestTracker()
	ts := time.Now().UTC()

	for i := 0; i < eventHistory+20; i++ {
		tr.HandleEnvelope(statusEnvelope(t, StatusEvent{
			Event:     EvHeartbeatAttempt,
			Message:   fmt.Sprintf("tick %d", i),
			Timestamp: ts,
		}))
	}

	events := tr.Events()
	require.Len(t, events, eventHistory)
	// Oldest entries dropped, most recent retained.
	assert.Equal(t, "tick 69", events[len(events)-1].Message)
	assert.Equal(t, "tick 20", events[0].Message)
}

func TestUnrecognizedEventIsRecordedNotCounted(t *testing.T) {
	tr := newTestTracker()

	tr.HandleEnvelope(statusEnvelope(t, StatusEvent{Event: "flux-capacitor", Timestamp: time.Now()}))

	st := tr.Status()
	assert.Zero(t, st.SuccessCount)
	assert.Zero(t, st.ErrorCount)
	assert.False(t, st.Online)
	assert.Len(t, tr.Events(), 1)
}
