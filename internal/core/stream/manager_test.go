package stream

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// wsServer runs a test gateway. handle is invoked per accepted
// connection; dials counts upgrades.
func wsServer(t *testing.T, dials *atomic.Int32, handle func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		if dials != nil {
			dials.Add(1)
		}
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[4:] // replace http with ws
}

func holdOpen(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newTestManager(t *testing.T, url string) *Manager {
	t.Helper()
	m := NewManager("test", url, 2*time.Second, 50*time.Millisecond, zerolog.New(os.Stdout))
	t.Cleanup(m.Disconnect)
	return m
}

func TestConnectAndDispatch(t *testing.T) {
	envelopes := make(chan Envelope, 10)

	url := wsServer(t, nil, func(conn *websocket.Conn) {
		defer conn.Close()
		err := conn.WriteJSON(Envelope{Type: "telemetry", Data: []byte(`{"variables":[]}`)})
		if err != nil {
			return
		}
		holdOpen(conn)
	})

	m := newTestManager(t, url)
	unsub := m.Subscribe(func(env Envelope) { envelopes <- env })
	defer unsub()

	m.Connect()

	require.Eventually(t, func() bool {
		return m.Status().State == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case env := <-envelopes:
		assert.Equal(t, "telemetry", env.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for envelope")
	}

	assert.Equal(t, 1, m.Status().ConnectCount)
	assert.False(t, m.Status().LastEvent.IsZero())
}

func TestConnectIsIdempotent(t *testing.T) {
	var dials atomic.Int32
	url := wsServer(t, &dials, holdOpen)

	m := newTestManager(t, url)
	m.Connect()
	require.Eventually(t, func() bool {
		return m.Status().State == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	m.Connect()
	m.Connect()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, 1, m.Status().ConnectCount)
}

func TestReconnectsAfterServerClose(t *testing.T) {
	var dials atomic.Int32
	url := wsServer(t, &dials, func(conn *websocket.Conn) {
		// Drop the first connection immediately; keep later ones open.
		if dials.Load() == 1 {
			conn.Close()
			return
		}
		holdOpen(conn)
	})

	m := newTestManager(t, url)
	m.Connect()

	require.Eventually(t, func() bool {
		return dials.Load() >= 2 && m.Status().State == StateConnected
	}, 3*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, m.Status().ConnectCount, 2)
}

func TestDisconnectStopsReconnectLoop(t *testing.T) {
	var dials atomic.Int32
	url := wsServer(t, &dials, holdOpen)

	m := newTestManager(t, url)
	m.Connect()
	require.Eventually(t, func() bool {
		return m.Status().State == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.Status().State)

	// Well past the reconnect delay: no orphaned timer may fire.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, StateDisconnected, m.Status().State)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	url := wsServer(t, nil, holdOpen)

	m := newTestManager(t, url)
	m.Connect()
	m.Disconnect()
	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.Status().State)
}

func TestDialFailureEntersErrorStateAndRetries(t *testing.T) {
	// A server that is immediately closed: every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := "ws" + srv.URL[4:]
	srv.Close()

	m := newTestManager(t, url)
	m.Connect()

	require.Eventually(t, func() bool {
		st := m.Status()
		return st.ErrorCount >= 2 && st.State == StateError
	}, 3*time.Second, 10*time.Millisecond)

	m.Disconnect()
	errs := m.Status().ErrorCount
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, errs, m.Status().ErrorCount)
}

func TestManualReconnect(t *testing.T) {
	var dials atomic.Int32
	url := wsServer(t, &dials, holdOpen)

	m := newTestManager(t, url)
	m.Connect()
	require.Eventually(t, func() bool {
		return m.Status().State == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	m.Reconnect()
	assert.Equal(t, StateDisconnected, m.Status().State)

	require.Eventually(t, func() bool {
		return dials.Load() == 2 && m.Status().State == StateConnected
	}, 3*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var delivered atomic.Int32

	send := make(chan struct{})
	url := wsServer(t, nil, func(conn *websocket.Conn) {
		defer conn.Close()
		for range send {
			if err := conn.WriteJSON(Envelope{Type: "telemetry"}); err != nil {
				return
			}
		}
	})

	m := newTestManager(t, url)
	unsub := m.Subscribe(func(Envelope) { delivered.Add(1) })

	m.Connect()
	require.Eventually(t, func() bool {
		return m.Status().State == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	send <- struct{}{}
	require.Eventually(t, func() bool {
		return delivered.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	unsub()
	send <- struct{}{}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), delivered.Load())
	close(send)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "error", StateError.String())

	b, err := StateConnected.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"connected"`, string(b))
}
