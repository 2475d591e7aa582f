// Simple JSON REST surface exposing the sync layer's snapshots to UI consumers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"scada-sync/internal/core/catalog"
	"scada-sync/internal/core/heartbeat"
	"scada-sync/internal/core/stream"
	"scada-sync/internal/core/telemetry"
)

type Handler struct {
	hub     *telemetry.Hub
	tracker *heartbeat.Tracker
	conn    *stream.Manager
	store   *catalog.Store
	lg      zerolog.Logger
}

func New(
	hub *telemetry.Hub,
	tracker *heartbeat.Tracker,
	conn *stream.Manager,
	store *catalog.Store,
	lg zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := &Handler{hub: hub, tracker: tracker, conn: conn, store: store, lg: lg}

	// --- API Routes ---
	r.Get("/variables", h.handleVariables)
	r.Get("/devices", h.handleDevices)
	r.Get("/connection", h.handleConnection)
	r.Get("/system", h.handleSystem)
	r.Get("/system/events", h.handleSystemEvents)
	r.Post("/reconnect", h.handleReconnect)
	r.Post("/metadata/refresh", h.handleRefresh)

	// --- Swagger Docs Route ---
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r
}

// handleVariables returns the latest enriched variable records.
// @Summary      Current variable snapshot
// @Description  Latest enriched variable records derived from the most recent telemetry event.
// @Tags         telemetry
// @Produce      json
// @Success      200  {array}  telemetry.VariableRecord
// @Router       /variables [get]
func (h *Handler) handleVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.hub.Records())
}

// handleDevices returns the latest per-device aggregate statuses.
// @Summary      Current device statuses
// @Description  One aggregate status per device, derived from its variable records.
// @Tags         telemetry
// @Produce      json
// @Success      200  {array}  telemetry.DeviceStatus
// @Router       /devices [get]
func (h *Handler) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.hub.Devices())
}

// handleConnection returns the telemetry connection state.
// @Summary      Telemetry connection state
// @Tags         connection
// @Produce      json
// @Success      200  {object}  stream.Status
// @Router       /connection [get]
func (h *Handler) handleConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.conn.Status())
}

// handleSystem returns the backend/EDS liveness snapshot.
// @Summary      System and EDS liveness
// @Tags         system
// @Produce      json
// @Success      200  {object}  heartbeat.SystemStatus
// @Router       /system [get]
func (h *Handler) handleSystem(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.tracker.Status())
}

// handleSystemEvents returns the retained raw heartbeat events.
// @Summary      Recent heartbeat events
// @Description  The most recent raw heartbeat events, oldest first, for operator inspection.
// @Tags         system
// @Produce      json
// @Success      200  {array}  heartbeat.StatusEvent
// @Router       /system/events [get]
func (h *Handler) handleSystemEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.tracker.Events())
}

// handleReconnect forces a telemetry reconnect.
// @Summary      Reconnect the telemetry stream
// @Description  Tears down the telemetry connection and redials after a short pause.
// @Tags         connection
// @Success      202  {string}  string "Accepted"
// @Router       /reconnect [post]
func (h *Handler) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	h.conn.Reconnect()
	w.WriteHeader(http.StatusAccepted)
}

// handleRefresh reloads the metadata catalog.
// @Summary      Refresh the metadata catalog
// @Description  Fetches devices and variables again. On failure the previous catalog stays in place.
// @Tags         catalog
// @Success      204  {string}  string "No Content"
// @Failure      502  {string}  string "Bad Gateway"
// @Router       /metadata/refresh [post]
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		h.lg.Error().Err(err).Msg("metadata refresh")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
