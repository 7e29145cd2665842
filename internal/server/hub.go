package server

import (
	"context"
	"sync"

	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/protocol"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by user ID; a user may hold several sessions
	clients map[string]map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound dispatches
	broadcast chan *BroadcastMessage

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Sequence number for dispatch messages
	sequence int64
	seqMu    sync.Mutex
}

// BroadcastMessage represents a message to be sent to a set of users
type BroadcastMessage struct {
	UserIDs []string
	Message *protocol.Message
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)

		case <-ctx.Done():
			return
		}
	}
}

// Register adds an authenticated client
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	client.registered = true
	if client.ready != nil {
		client.Send(client.ready)
	}

	logger.Info("Client registered: user=%s session=%s", client.UserID, client.SessionID)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.clients[client.UserID]; ok {
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(h.clients, client.UserID)
		}
	}

	// Close the client's send channel
	close(client.send)

	if client.registered {
		logger.Info("Client unregistered: user=%s session=%s", client.UserID, client.SessionID)
	}
}

// broadcastMessage sends a message to every session of the target users
func (h *Hub) broadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool, len(msg.UserIDs))
	for _, userID := range msg.UserIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true

		for client := range h.clients[userID] {
			select {
			case client.send <- msg.Message:
			default:
				// Client's buffer is full, skip
				logger.Warn("Client buffer full, dropping message: user=%s", client.UserID)
			}
		}
	}
}

// NextSequence returns the next sequence number for dispatch messages
func (h *Hub) NextSequence() int64 {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	h.sequence++
	return h.sequence
}

// IsOnline reports whether a user has at least one session
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUsers dispatches an event to the given users
func (h *Hub) SendToUsers(userIDs []string, eventType protocol.EventType, data any) error {
	msg, err := protocol.NewDispatch(eventType, h.NextSequence(), data)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{UserIDs: userIDs, Message: msg}:
	case <-h.done:
	}
	return nil
}
