package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"cptmerge/internal/config"
	"cptmerge/internal/infrastructure"
	"cptmerge/pkg/contracts/events"
)

// broadcastQueue bounds the number of pending session events.
const broadcastQueue = 256

type envelope struct {
	sessionID string
	data      []byte
}

// Hub maintains the set of active clients, grouped by session, and
// delivers session events to the clients of that session only.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients by session ID
	sessions map[string]map[*Client]bool

	broadcast     chan envelope
	register      chan *Client
	unregister    chan *Client
	closeSessions chan []string

	// Mutex for thread-safe operations
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *Metrics

	// Keepalive settings handed to clients
	pingPeriod time.Duration
	pongWait   time.Duration

	// Control
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}

	return &Hub{
		clients:       make(map[*Client]bool),
		sessions:      make(map[string]map[*Client]bool),
		broadcast:     make(chan envelope, broadcastQueue),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		closeSessions: make(chan []string),
		logger:        logger.With(slog.String("component", "websocket.hub")),
		metrics:       NewMetrics(),
		pingPeriod:    pingPeriod,
		pongWait:      pongWait,
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start starts the hub loop
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.sessions[client.sessionID] == nil {
				h.sessions[client.sessionID] = make(map[*Client]bool)
			}
			h.sessions[client.sessionID][client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.RecordConnection()

			ctx := client.context()
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("session_id", client.sessionID),
				slog.String("remote_addr", client.remoteAddr))

			connMsg := events.NewMessage(events.MessageTypeConnect, client.sessionID, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			})
			connMsg.TraceID = client.traceID
			if data, err := json.Marshal(connMsg); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				h.removeLocked(client)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case ids := <-h.closeSessions:
			h.mu.Lock()
			closed := 0
			for _, id := range ids {
				for client := range h.sessions[id] {
					h.removeLocked(client)
					closed++
				}
			}
			h.mu.Unlock()
			if closed > 0 {
				h.logger.Info("Closed clients of expired sessions",
					slog.Int("sessions", len(ids)),
					slog.Int("clients", closed))
			}

		case env := <-h.broadcast:
			h.mu.Lock()
			targets := h.sessions[env.sessionID]
			sent, dropped := 0, 0
			for client := range targets {
				select {
				case client.send <- env.data:
					sent++
				default:
					// Client's send channel is full, close it
					h.removeLocked(client)
					dropped++
				}
			}
			h.mu.Unlock()

			for i := 0; i < sent; i++ {
				h.metrics.RecordSent(len(env.data))
			}
			h.logger.Debug("Session event delivered",
				slog.String("session_id", env.sessionID),
				slog.Int("clients", sent),
				slog.Int("message_size", len(env.data)))
			if dropped > 0 {
				h.logger.Warn("Client send buffer full, disconnecting",
					slog.String("session_id", env.sessionID),
					slog.Int("dropped", dropped))
			}
		}
	}
}

// removeLocked detaches a client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	if set := h.sessions[client.sessionID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.sessions, client.sessionID)
		}
	}
	close(client.send)
	h.metrics.RecordDisconnection(time.Since(client.connectedAt))
}

// BroadcastToSession queues msg for every client of the session. Messages
// are dropped when the queue is full or the hub is stopped.
func (h *Hub) BroadcastToSession(sessionID string, msg events.WebSocketMessage) {
	ctx := context.Background()
	if msg.TraceID != "" {
		ctx = infrastructure.WithTraceID(ctx, msg.TraceID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: data}:
	default:
		h.metrics.RecordDropped()
		h.logger.WarnContext(ctx, "Broadcast queue full, dropping message",
			slog.String("session_id", sessionID),
			slog.String("message_type", string(msg.Type)))
	}
}

// CloseSessions disconnects every client of the given sessions.
func (h *Hub) CloseSessions(ids []string) {
	select {
	case h.closeSessions <- ids:
	case <-h.quit:
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients following one session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Stop gracefully stops the hub and disconnects all clients
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]int64 {
	snap := h.metrics.Snapshot()
	snap["active_clients"] = int64(h.ClientCount())
	return snap
}
