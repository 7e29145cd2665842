package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	maxMessageSize   = 512 * 1024
)

var errReconnect = errors.New("server requested reconnect")

// Connection is an identified gateway websocket
type Connection struct {
	conn *websocket.Conn

	sessionID         string
	heartbeatInterval time.Duration
	lastSeq           int64

	send      chan *protocol.Message
	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

// Dial connects to the gateway and completes the HELLO / IDENTIFY / READY
// handshake
func Dial(ctx context.Context, wsURL, token string) (*Connection, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Connection{
		conn: conn,
		send: make(chan *protocol.Message, 16),
		done: make(chan struct{}),
	}
	if err := c.handshake(token); err != nil {
		conn.Close()
		return nil, err
	}

	go c.writePump()
	go c.heartbeat()
	return c, nil
}

func (c *Connection) handshake(token string) error {
	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	hello, err := c.read()
	if err != nil {
		return fmt.Errorf("waiting for hello: %w", err)
	}
	if hello.Op != protocol.OpHello {
		return fmt.Errorf("expected HELLO, got %s", hello.Op)
	}
	var hp protocol.HelloPayload
	if err := hello.Decode(&hp); err != nil {
		return err
	}
	if hp.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval %d", hp.HeartbeatInterval)
	}
	c.heartbeatInterval = time.Duration(hp.HeartbeatInterval) * time.Millisecond

	identify, err := protocol.NewMessage(protocol.OpIdentify, protocol.IdentifyPayload{Token: token})
	if err != nil {
		return err
	}
	if err := c.write(identify); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	ready, err := c.read()
	if err != nil {
		return fmt.Errorf("waiting for ready: %w", err)
	}
	switch ready.Op {
	case protocol.OpReady:
	case protocol.OpInvalidSession:
		return ErrInvalidSession
	default:
		return fmt.Errorf("expected READY, got %s", ready.Op)
	}
	var rp protocol.ReadyPayload
	if err := ready.Decode(&rp); err != nil {
		return err
	}
	c.sessionID = rp.SessionID
	c.extendDeadline()
	return nil
}

// SessionID returns the id assigned by the READY message
func (c *Connection) SessionID() string {
	return c.sessionID
}

// Next blocks until the next dispatch arrives. Control messages are handled
// internally.
func (c *Connection) Next() (*protocol.Message, error) {
	for {
		msg, err := c.read()
		if err != nil {
			return nil, err
		}
		c.extendDeadline()

		if msg.Seq != nil {
			c.mu.Lock()
			c.lastSeq = *msg.Seq
			c.mu.Unlock()
		}

		switch msg.Op {
		case protocol.OpDispatch:
			return msg, nil
		case protocol.OpHeartbeatAck:
			// Connection is healthy
		case protocol.OpInvalidSession:
			return nil, ErrInvalidSession
		case protocol.OpReconnect:
			return nil, errReconnect
		default:
			logger.Debug("Gateway: ignoring %s", msg.Op)
		}
	}
}

// Close shuts the connection down
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	})
}

func (c *Connection) read() (*protocol.Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// write is only used before the write pump starts
func (c *Connection) write(msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// extendDeadline allows two missed heartbeats before reads time out
func (c *Connection) extendDeadline() {
	c.conn.SetReadDeadline(time.Now().Add(2*c.heartbeatInterval + writeTimeout))
}

func (c *Connection) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				logger.Debug("Gateway: write failed: %v", err)
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) heartbeat() {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.RLock()
			seq := c.lastSeq
			c.mu.RUnlock()

			msg, err := protocol.NewMessage(protocol.OpHeartbeat, protocol.HeartbeatPayload{LastSequence: &seq})
			if err != nil {
				continue
			}
			select {
			case c.send <- msg:
			default:
				logger.Debug("Gateway: send buffer full, skipping heartbeat")
			}
		case <-c.done:
			return
		}
	}
}
