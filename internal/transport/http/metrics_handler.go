package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// HubMetrics exposes the websocket hub counters.
type HubMetrics interface {
	GetHubMetrics() map[string]int64
}

// MetricsHandler serves the Prometheus scrape endpoint and the event feed
// counters.
type MetricsHandler struct {
	prometheus http.Handler
	hub        HubMetrics
}

// NewMetricsHandler creates a new metrics handler. Either argument may be
// nil when the matching feature is disabled.
func NewMetricsHandler(prometheus http.Handler, hub HubMetrics) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Prometheus)
	r.Get("/websocket", h.WebSocket)
	return r
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics are disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// WebSocket handles GET /metrics/websocket
func (h *MetricsHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		render.JSON(w, r, map[string]int64{})
		return
	}
	render.JSON(w, r, h.hub.GetHubMetrics())
}
