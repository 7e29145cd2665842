package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer
	readWait = 2 * time.Duration(heartbeatInterval) * time.Millisecond

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Size of client send buffer
	sendBufferSize = 256

	// Heartbeat interval sent to client
	heartbeatInterval = 30000 // 30 seconds in milliseconds
)

// Client represents a connected WebSocket client
type Client struct {
	// The WebSocket connection
	conn *websocket.Conn

	// The hub this client is connected to
	hub *Hub

	// Buffered channel of outbound messages
	send chan *protocol.Message

	// User information (set after authentication)
	UserID    string
	User      *models.User
	SessionID string

	// Last sequence number acknowledged by the peer
	lastSeq int64
	seqMu   sync.Mutex

	// Connection state
	authenticated bool
	registered    bool // owned by the hub goroutine
	ready         *protocol.Message
	authMu        sync.RWMutex

	handlers *Handlers
}

// NewClient creates a new client instance
func NewClient(conn *websocket.Conn, hub *Hub, handlers *Handlers) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		send:     make(chan *protocol.Message, sendBufferSize),
		handlers: handlers,
	}
}

// ReadPump reads messages from the WebSocket connection until it fails
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error: %v", err)
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Failed to parse message: %v", err)
			c.close(protocol.CloseDecodeError, "invalid message format")
			return
		}

		c.handleMessage(&msg)
	}
}

// WritePump writes messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		data, err := json.Marshal(msg)
		if err != nil {
			logger.Error("Failed to marshal message: %v", err)
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("Failed to write message: %v", err)
			return
		}
	}

	// Hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendHello sends the initial HELLO message
func (c *Client) SendHello() {
	msg, err := protocol.NewMessage(protocol.OpHello, &protocol.HelloPayload{
		HeartbeatInterval: heartbeatInterval,
	})
	if err != nil {
		logger.Error("Failed to create hello message: %v", err)
		return
	}
	c.Send(msg)
}

// handleMessage processes an incoming message based on its opcode
func (c *Client) handleMessage(msg *protocol.Message) {
	switch msg.Op {
	case protocol.OpIdentify:
		c.handleIdentify(msg)

	case protocol.OpHeartbeat:
		c.handleHeartbeat(msg)

	default:
		logger.Debug("Unknown opcode: %s", msg.Op)
		c.close(protocol.CloseUnknownOpCode, "unknown operation")
	}
}

// handleIdentify processes the IDENTIFY message for authentication
func (c *Client) handleIdentify(msg *protocol.Message) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.authenticated {
		c.close(protocol.CloseAuthFailed, "already authenticated")
		return
	}

	var payload protocol.IdentifyPayload
	if err := msg.Decode(&payload); err != nil {
		c.sendInvalidSession("invalid identify payload")
		return
	}

	user, err := c.handlers.Authenticate(payload.Token)
	if err != nil {
		logger.Info("Authentication failed: %v", err)
		c.sendInvalidSession("authentication failed")
		return
	}

	c.UserID = user.ID
	c.User = user
	c.SessionID = uuid.New().String()
	c.authenticated = true

	ready, err := protocol.NewMessage(protocol.OpReady, &protocol.ReadyPayload{
		SessionID: c.SessionID,
		UserID:    user.ID,
	})
	if err != nil {
		logger.Error("Failed to create ready message: %v", err)
		return
	}
	c.ready = ready

	// The hub queues READY itself so it precedes every dispatch
	c.hub.Register(c)

	logger.Info("User authenticated: %s", user.ID)
}

// handleHeartbeat processes heartbeat messages
func (c *Client) handleHeartbeat(msg *protocol.Message) {
	var payload protocol.HeartbeatPayload
	if err := msg.Decode(&payload); err == nil && payload.LastSequence != nil {
		c.seqMu.Lock()
		c.lastSeq = *payload.LastSequence
		c.seqMu.Unlock()
	}

	ack, _ := protocol.NewMessage(protocol.OpHeartbeatAck, nil)
	c.Send(ack)
}

// sendInvalidSession rejects the session and closes the connection
func (c *Client) sendInvalidSession(reason string) {
	msg, _ := protocol.NewMessage(protocol.OpInvalidSession, &protocol.InvalidSessionPayload{Reason: reason})
	c.Send(msg)

	// Close connection after a short delay so the message is flushed
	go func() {
		time.Sleep(100 * time.Millisecond)
		c.conn.Close()
	}()
}

// close ends the connection with a close code
func (c *Client) close(code protocol.CloseCode, reason string) {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(int(code), reason),
		time.Now().Add(writeWait))
	c.conn.Close()
}

// Send queues a message for the client
func (c *Client) Send(msg *protocol.Message) {
	select {
	case c.send <- msg:
	default:
		logger.Warn("Client send buffer full, dropping message")
	}
}

// IsAuthenticated returns whether the client is authenticated
func (c *Client) IsAuthenticated() bool {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.authenticated
}

// LastSequence returns the last sequence number acknowledged by the peer
func (c *Client) LastSequence() int64 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	return c.lastSeq
}
