// Package protocol defines the wire format shared by the client gateway and
// the development homeserver: the websocket envelope with its opcodes, and
// the JSON bodies of the HTTP API.
package protocol

import (
	"encoding/json"
	"fmt"
)

// OpCode represents the type of WebSocket message
type OpCode int

const (
	// Client -> Server operations
	OpIdentify  OpCode = 0 // Initial authentication
	OpHeartbeat OpCode = 1 // Keep-alive ping

	// Server -> Client operations
	OpDispatch       OpCode = 10 // Event dispatch
	OpHeartbeatAck   OpCode = 11 // Heartbeat acknowledgment
	OpHello          OpCode = 12 // Initial connection info
	OpReady          OpCode = 13 // Successful authentication
	OpInvalidSession OpCode = 14 // Authentication failed
	OpReconnect      OpCode = 15 // Server requests reconnection
)

func (op OpCode) String() string {
	switch op {
	case OpIdentify:
		return "IDENTIFY"
	case OpHeartbeat:
		return "HEARTBEAT"
	case OpDispatch:
		return "DISPATCH"
	case OpHeartbeatAck:
		return "HEARTBEAT_ACK"
	case OpHello:
		return "HELLO"
	case OpReady:
		return "READY"
	case OpInvalidSession:
		return "INVALID_SESSION"
	case OpReconnect:
		return "RECONNECT"
	default:
		return fmt.Sprintf("OP(%d)", int(op))
	}
}

// EventType represents the type of dispatched event
type EventType string

const (
	EventRoomMessage EventType = "ROOM_MESSAGE"
	EventRoomMember  EventType = "ROOM_MEMBER"
)

// Message represents a WebSocket message envelope
type Message struct {
	Op   OpCode          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"` // Sequence number for dispatches
	Type EventType       `json:"t,omitempty"` // Event type for dispatches
}

// NewMessage creates a new protocol message
func NewMessage(op OpCode, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Message{
		Op:   op,
		Data: rawData,
	}, nil
}

// NewDispatch creates a new dispatch message
func NewDispatch(eventType EventType, seq int64, data any) (*Message, error) {
	msg, err := NewMessage(OpDispatch, data)
	if err != nil {
		return nil, err
	}
	msg.Seq = &seq
	msg.Type = eventType
	return msg, nil
}

// Decode unmarshals the message payload into v
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: empty payload", m.Op)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", m.Op, err)
	}
	return nil
}

// --- Client -> Server Payloads ---

// IdentifyPayload is sent by the client to authenticate
type IdentifyPayload struct {
	Token string `json:"token"`
}

// HeartbeatPayload is sent to keep the connection alive
type HeartbeatPayload struct {
	LastSequence *int64 `json:"last_sequence"`
}

// --- Server -> Client Payloads ---

// HelloPayload is sent on initial connection
type HelloPayload struct {
	HeartbeatInterval int `json:"heartbeat_interval"` // Milliseconds
}

// ReadyPayload is sent after successful authentication
type ReadyPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// InvalidSessionPayload explains why a session was rejected
type InvalidSessionPayload struct {
	Reason string `json:"reason"`
}

// CloseCode represents WebSocket close codes
type CloseCode int

const (
	CloseNormal           CloseCode = 1000
	CloseGoingAway        CloseCode = 1001
	CloseUnknownError     CloseCode = 4000
	CloseUnknownOpCode    CloseCode = 4001
	CloseDecodeError      CloseCode = 4002
	CloseNotAuthenticated CloseCode = 4003
	CloseAuthFailed       CloseCode = 4004
	CloseSessionTimeout   CloseCode = 4009
)
