package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/models"
)

// Room event types
const (
	TypeRoomMessage = "m.room.message"
	TypeRoomMember  = "m.room.member"
)

// RoomEvent is a timeline event as stored by the homeserver and delivered in
// dispatches and history pages
type RoomEvent struct {
	EventID        string          `json:"event_id"`
	RoomID         string          `json:"room_id"`
	Type           string          `json:"type"`
	Sender         string          `json:"sender"`
	StateKey       *string         `json:"state_key,omitempty"`
	OriginServerTS int64           `json:"origin_server_ts"` // Milliseconds
	Content        json.RawMessage `json:"content"`
}

// MemberContent is the content of an m.room.member event
type MemberContent struct {
	Membership  models.Membership `json:"membership"`
	DisplayName string            `json:"displayname,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// NewMessageEvent builds an m.room.message event
func NewMessageEvent(eventID, roomID, sender string, ts int64, c content.MessageContent) (*RoomEvent, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &RoomEvent{
		EventID:        eventID,
		RoomID:         roomID,
		Type:           TypeRoomMessage,
		Sender:         sender,
		OriginServerTS: ts,
		Content:        raw,
	}, nil
}

// NewMemberEvent builds an m.room.member event about target
func NewMemberEvent(eventID, roomID, sender, target string, ts int64, c MemberContent) (*RoomEvent, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &RoomEvent{
		EventID:        eventID,
		RoomID:         roomID,
		Type:           TypeRoomMember,
		Sender:         sender,
		StateKey:       &target,
		OriginServerTS: ts,
		Content:        raw,
	}, nil
}

// Target returns the user a state event is about
func (e *RoomEvent) Target() string {
	if e.StateKey == nil {
		return ""
	}
	return *e.StateKey
}

// MessageContent decodes the content of an m.room.message event
func (e *RoomEvent) MessageContent() (content.MessageContent, error) {
	var c content.MessageContent
	if e.Type != TypeRoomMessage {
		return c, fmt.Errorf("event %s is %s, not a message", e.EventID, e.Type)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return c, fmt.Errorf("event %s: %w", e.EventID, err)
	}
	return c, nil
}

// MemberContent decodes the content of an m.room.member event
func (e *RoomEvent) MemberContent() (MemberContent, error) {
	var c MemberContent
	if e.Type != TypeRoomMember {
		return c, fmt.Errorf("event %s is %s, not a membership", e.EventID, e.Type)
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return c, fmt.Errorf("event %s: %w", e.EventID, err)
	}
	if !c.Membership.IsValid() {
		return c, fmt.Errorf("event %s: unknown membership %q", e.EventID, c.Membership)
	}
	return c, nil
}
