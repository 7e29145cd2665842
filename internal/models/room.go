package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Membership is the state of a user in a room
type Membership string

const (
	MembershipJoin   Membership = "join"
	MembershipLeave  Membership = "leave"
	MembershipInvite Membership = "invite"
	MembershipBan    Membership = "ban"
)

// IsValid reports whether m is a known membership state
func (m Membership) IsValid() bool {
	switch m {
	case MembershipJoin, MembershipLeave, MembershipInvite, MembershipBan:
		return true
	default:
		return false
	}
}

// Room represents a chat room on a homeserver
type Room struct {
	ID        string    `json:"room_id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRoom creates a room with a generated ID on the given server
func NewRoom(name, creatorID, serverName string) *Room {
	return &Room{
		ID:        "!" + shortID() + ":" + serverName,
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: time.Now(),
	}
}

// NewEventID generates an event ID for the given server
func NewEventID(serverName string) string {
	return "$" + shortID() + ":" + serverName
}

// shortID returns 18 URL-safe characters derived from a random UUID
func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:18]
}
