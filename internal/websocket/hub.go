package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ptbxl/internal/infrastructure"
	"ptbxl/internal/operations"
)

// Message types
const (
	TypeConnection        = "connection"
	TypeOperationProgress = "operation:progress"
	TypeOperationStatus   = "operation:status"
	TypeOperationComplete = "operation:complete"
	TypeError             = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local status server; browsers on any origin may watch progress
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub; a nil logger falls back to slog.Default
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. It is a no-op when running.
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
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client registered",
				slog.String("client_id", client.id),
				slog.Int("active_clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client unregistered",
				slog.String("client_id", client.id),
				slog.Int("active_clients", count))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.messagesSent++
				default:
					// slow client; drop it rather than stall the others
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Dropped slow client", slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends the hub loop and closes every client
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection as a client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := newClient(h, conn, infrastructure.GetRunID(r.Context()), h.logger)
	welcome, _ := json.Marshal(map[string]interface{}{
		"type":      TypeConnection,
		"data":      map[string]interface{}{"client_id": client.id, "status": "connected"},
		"timestamp": time.Now().Format(time.RFC3339),
	})
	client.send <- welcome

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastJSON marshals message and sends it to every client
func (h *Hub) BroadcastJSON(message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.Any("message_type", message["type"]))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// Broadcast sends data under messageType
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastJSON(map[string]interface{}{
		"type":      messageType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastStep forwards a runner step event; it satisfies operations.Observer
func (h *Hub) BroadcastStep(ev operations.StepEvent) {
	h.Broadcast(TypeOperationProgress, ev)
}

// BroadcastStatus reports the overall state of an operation
func (h *Hub) BroadcastStatus(ctx context.Context, operationID string, status operations.OperationStatus, err error) {
	msgType := TypeOperationStatus
	switch status {
	case operations.OperationStatusCompleted, operations.OperationStatusFailed, operations.OperationStatusCancelled:
		msgType = TypeOperationComplete
	}

	data := map[string]interface{}{
		"operation_id": operationID,
		"status":       status,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	if runID := infrastructure.GetRunID(ctx); runID != "" {
		data["run_id"] = runID
	}
	h.Broadcast(msgType, data)
}

// Stats returns counters for the status endpoint
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
