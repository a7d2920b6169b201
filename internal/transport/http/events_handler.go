package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gorilla "github.com/gorilla/websocket"

	apierrors "cptmerge/internal/errors"
	"cptmerge/internal/infrastructure"
	"cptmerge/internal/websocket"
	"cptmerge/pkg/contracts/domain"
)

// SessionLookup reports whether a session exists.
type SessionLookup interface {
	GetSession(ctx context.Context, sid string) (domain.Session, error)
}

// EventsHandler upgrades GET /sessions/{sid}/events to a websocket that
// receives the change events of that session.
type EventsHandler struct {
	hub          *websocket.Hub
	upgrader     *gorilla.Upgrader
	sessions     SessionLookup
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewEventsHandler creates the event feed handler
func NewEventsHandler(hub *websocket.Hub, upgrader *gorilla.Upgrader, sessions SessionLookup, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub:          hub,
		upgrader:     upgrader,
		sessions:     sessions,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "events")),
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := chi.URLParam(r, "sid")

	if _, err := h.sessions.GetSession(ctx, sid); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the response.
		h.logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("session_id", sid),
			slog.String("error", err.Error()))
		return
	}

	client := websocket.ServeWS(h.hub, websocket.WrapConn(conn), sid, infrastructure.GetTraceID(ctx), h.logger)
	h.logger.InfoContext(ctx, "WebSocket client subscribed",
		slog.String("session_id", sid),
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
