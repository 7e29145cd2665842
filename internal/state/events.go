package state

import (
	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/models"
)

// Event is one item delivered to the home loop. The set of implementations
// is closed; Reconciler.Handle switches over all of them.
type Event interface {
	event()
}

// MessageEvent is a room message as delivered by sync or history
type MessageEvent struct {
	RoomID         string
	EventID        string
	Sender         string
	OriginServerTS int64 // Milliseconds since the Unix epoch
	Content        content.MessageContent
}

// MembershipEvent reports a change to a user's membership in a room
type MembershipEvent struct {
	RoomID      string
	Sender      string
	Target      string
	DisplayName string
	Membership  models.Membership
}

// InviteEvent reports that Target was invited to RoomID by Sender
type InviteEvent struct {
	RoomID string
	Sender string
	Target string
}

// RoomLoadedEvent carries a room entry built in the background after the
// local user joined a room. Entry is nil when the room could not be loaded.
type RoomLoadedEvent struct {
	RoomID string
	Entry  *RoomEntry
}

func (MessageEvent) event()    {}
func (MembershipEvent) event() {}
func (InviteEvent) event()     {}
func (RoomLoadedEvent) event() {}

// QueueSize is the buffer size of each queue created by NewQueues
const QueueSize = 256

// Queues are the two channels background tasks use to reach the home loop.
// Messages carries room messages; Membership carries every other event.
type Queues struct {
	Messages   chan MessageEvent
	Membership chan Event
}

// NewQueues creates buffered queues
func NewQueues() Queues {
	return Queues{
		Messages:   make(chan MessageEvent, QueueSize),
		Membership: make(chan Event, QueueSize),
	}
}

// Drain removes at most one item from each queue without blocking and
// returns what it found, messages first.
func (q Queues) Drain() []Event {
	var out []Event
	select {
	case m := <-q.Messages:
		out = append(out, m)
	default:
	}
	select {
	case e := <-q.Membership:
		out = append(out, e)
	default:
	}
	return out
}
