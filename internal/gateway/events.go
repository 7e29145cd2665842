package gateway

import (
	"fmt"

	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/state"
)

// MessageEventFrom converts an m.room.message event
func MessageEventFrom(ev *protocol.RoomEvent) (state.MessageEvent, error) {
	c, err := ev.MessageContent()
	if err != nil {
		return state.MessageEvent{}, err
	}
	return state.MessageEvent{
		RoomID:         ev.RoomID,
		EventID:        ev.EventID,
		Sender:         ev.Sender,
		OriginServerTS: ev.OriginServerTS,
		Content:        c,
	}, nil
}

// MemberEventFrom converts an m.room.member event. Invitations become
// InviteEvents; every other membership becomes a MembershipEvent.
func MemberEventFrom(ev *protocol.RoomEvent) (state.Event, error) {
	c, err := ev.MemberContent()
	if err != nil {
		return nil, err
	}
	target := ev.Target()
	if target == "" {
		return nil, fmt.Errorf("event %s: membership without target", ev.EventID)
	}
	if c.Membership == models.MembershipInvite {
		return state.InviteEvent{RoomID: ev.RoomID, Sender: ev.Sender, Target: target}, nil
	}
	return state.MembershipEvent{
		RoomID:      ev.RoomID,
		Sender:      ev.Sender,
		Target:      target,
		DisplayName: c.DisplayName,
		Membership:  c.Membership,
	}, nil
}

// PendingInvites turns the invitations of an initial sync into events
func PendingInvites(resp *protocol.SyncResponse) []state.Event {
	events := make([]state.Event, 0, len(resp.Rooms.Invite))
	for _, inv := range resp.Rooms.Invite {
		events = append(events, state.InviteEvent{RoomID: inv.RoomID, Sender: inv.Inviter, Target: resp.UserID})
	}
	return events
}
