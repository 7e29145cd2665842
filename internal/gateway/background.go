package gateway

import (
	"context"

	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/state"
)

// RoomLoader builds room entries for newly joined rooms in the background
// and delivers them on the membership queue
type RoomLoader struct {
	ctx     context.Context
	session *Session
	conv    state.Converter
	queue   chan<- state.Event
}

// NewRoomLoader creates a loader whose goroutines stop with ctx
func NewRoomLoader(ctx context.Context, s *Session, conv state.Converter, q state.Queues) *RoomLoader {
	return &RoomLoader{ctx: ctx, session: s, conv: conv, queue: q.Membership}
}

// LoadRoom starts building the entry for roomID
func (l *RoomLoader) LoadRoom(roomID string) {
	go func() {
		room := l.session.Room(roomID)
		entry := state.NewRoomEntry(l.ctx, room, l.conv)
		if l.ctx.Err() != nil {
			return
		}
		select {
		case l.queue <- state.RoomLoadedEvent{RoomID: roomID, Entry: entry}:
		case <-l.ctx.Done():
		}
	}()
}

// InviteAcceptor joins rooms the user is invited to, retrying in the
// background
type InviteAcceptor struct {
	ctx     context.Context
	session *Session
	backoff Backoff
}

// NewInviteAcceptor creates an acceptor whose goroutines stop with ctx
func NewInviteAcceptor(ctx context.Context, s *Session, b Backoff) *InviteAcceptor {
	return &InviteAcceptor{ctx: ctx, session: s, backoff: b}
}

// AcceptInvite starts accepting the invitation to roomID. The resulting
// join arrives through sync like any other membership change.
func (a *InviteAcceptor) AcceptInvite(roomID string) {
	go func() {
		if err := a.session.AcceptInvitation(a.ctx, roomID, a.backoff); err != nil {
			if a.ctx.Err() == nil {
				logger.Warn("Could not accept invitation to %s: %v", roomID, err)
			}
			return
		}
		logger.Info("Accepted invitation to %s", roomID)
	}()
}
