package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"studio-portal/internal/workflow"
)

// Client is one browser tab watching a session.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string
	UserID    string
}

// Hub fans workflow events out to the clients watching each session.
type Hub struct {
	Clients    map[string]map[*Client]bool // sessionID -> clients
	Broadcast  chan workflow.Event
	Register   chan *Client
	Unregister chan *Client
	Mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{}
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Clients:    make(map[string]map[*Client]bool),
		Broadcast:  make(chan workflow.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Join registers client. It reports false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client. It is a no-op once the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for broadcast. It never blocks: when the queue is
// full the event is dropped, and clients catch up on their next reload.
func (h *Hub) Publish(evt workflow.Event) {
	select {
	case h.Broadcast <- evt:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			"session_id", evt.SessionID, "type", evt.Type)
	}
}

// Watchers returns how many clients follow sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.Mu.RLock()
	defer h.Mu.RUnlock()
	return len(h.Clients[sessionID])
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.Mu.Lock()
			for id, clients := range h.Clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.Clients, id)
			}
			h.Mu.Unlock()
			return

		case client := <-h.Register:
			h.Mu.Lock()
			if h.Clients[client.SessionID] == nil {
				h.Clients[client.SessionID] = make(map[*Client]bool)
			}
			h.Clients[client.SessionID][client] = true
			h.Mu.Unlock()

		case client := <-h.Unregister:
			h.Mu.Lock()
			h.remove(client)
			h.Mu.Unlock()

		case evt := <-h.Broadcast:
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to marshal event", "error", err)
				continue
			}
			h.Mu.Lock()
			for client := range h.Clients[evt.SessionID] {
				select {
				case client.Send <- payload:
				default:
					h.remove(client)
				}
			}
			h.Mu.Unlock()
		}
	}
}

// remove drops client and closes its send channel. Callers hold Mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.Clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.Clients, client.SessionID)
	}
}
