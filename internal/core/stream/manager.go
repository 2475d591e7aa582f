package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"scada-sync/pkg/rand"
)

// manualReconnectDelay is the pause between the teardown and redial of a
// user-initiated Reconnect.
const manualReconnectDelay = time.Second

// Handler receives every inbound envelope, in arrival order.
type Handler func(Envelope)

// Manager owns one live WebSocket connection to the gateway: it dials,
// reads, and redials after a fixed delay until Disconnect is called.
// Construct one per event channel; telemetry and heartbeat never share
// a Manager.
type Manager struct {
	name           string
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	lg             zerolog.Logger

	mu             sync.Mutex
	state          State
	connectCount   int
	errorCount     int
	lastEvent      time.Time
	conn           *websocket.Conn
	reconnectTimer *time.Timer
	wantRun        bool
	gen            int
	subs           map[string]Handler
}

func NewManager(name, url string, connectTimeout, reconnectDelay time.Duration, lg zerolog.Logger) *Manager {
	return &Manager{
		name:           name,
		url:            url,
		dialer:         &websocket.Dialer{HandshakeTimeout: connectTimeout},
		reconnectDelay: reconnectDelay,
		lg:             lg.With().Str("component", "stream").Str("channel", name).Logger(),
		subs:           make(map[string]Handler),
	}
}

// Subscribe registers a handler for inbound envelopes and returns its
// unsubscribe function. Handlers run on the read goroutine, one event
// at a time.
func (m *Manager) Subscribe(h Handler) func() {
	id := rand.ID8()

	m.mu.Lock()
	m.subs[id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:        m.state,
		ConnectCount: m.connectCount,
		ErrorCount:   m.errorCount,
		LastEvent:    m.lastEvent,
	}
}

// Connect dials the gateway. No-op when already connected or connecting.
// A dial failure records the error and schedules a single retry after
// the reconnect delay; it is never returned to the caller.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.wantRun = true
	m.cancelReconnectLocked()
	m.state = StateConnecting
	m.mu.Unlock()

	m.lg.Info().Str("url", m.url).Msg("dialing")
	conn, resp, err := m.dialer.Dial(m.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.wantRun || m.state != StateConnecting {
		// Disconnected while the dial was in flight.
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.state = StateError
		m.errorCount++
		m.lg.Warn().Err(err).Msg("dial failed")
		m.scheduleReconnectLocked()
		return
	}

	m.conn = conn
	m.state = StateConnected
	m.connectCount++
	m.gen++
	m.lg.Info().Msg("connected")

	go m.readPump(conn, m.gen)
}

// Disconnect cancels any pending reconnect, closes the connection, and
// forces the state to disconnected. Idempotent; this is the only way to
// stop the reconnect loop, and must be called on teardown.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wantRun = false
	m.cancelReconnectLocked()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
	m.lg.Info().Msg("disconnected")
}

// Reconnect tears the connection down and redials after a short pause.
// Used for operator-initiated recovery.
func (m *Manager) Reconnect() {
	m.Disconnect()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.wantRun = true
	m.reconnectTimer = time.AfterFunc(manualReconnectDelay, m.fireReconnect)
}

// readPump drains the connection until it breaks. gen ties the pump to
// the connection it was started for, so a pump outliving its connection
// cannot touch newer state.
func (m *Manager) readPump(conn *websocket.Conn, gen int) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			m.handleReadError(gen, err)
			return
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.lastEvent = time.Now()
		handlers := make([]Handler, 0, len(m.subs))
		for _, h := range m.subs {
			handlers = append(handlers, h)
		}
		m.mu.Unlock()

		for _, h := range handlers {
			h(env)
		}
	}
}

func (m *Manager) handleReadError(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || !m.wantRun {
		return
	}

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		m.errorCount++
	}
	m.lg.Warn().Err(err).Msg("connection lost")

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the retry timer unless one is already
// pending. At most one timer exists at any instant.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnectTimer != nil || !m.wantRun {
		return
	}
	m.lg.Info().Dur("delay", m.reconnectDelay).Msg("reconnect scheduled")
	m.reconnectTimer = time.AfterFunc(m.reconnectDelay, m.fireReconnect)
}

func (m *Manager) fireReconnect() {
	m.mu.Lock()
	m.reconnectTimer = nil
	want := m.wantRun
	m.mu.Unlock()

	if want {
		m.Connect()
	}
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}
