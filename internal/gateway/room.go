package gateway

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/state"
)

// Room is a handle on a joined room
type Room struct {
	session *Session
	id      string
}

// ID returns the room ID
func (r *Room) ID() string {
	return r.id
}

// DisplayName fetches the room's name
func (r *Room) DisplayName(ctx context.Context) (string, error) {
	var resp protocol.RoomNameResponse
	if err := r.session.do(ctx, http.MethodGet, []string{"rooms", r.id, "name"}, nil, nil, &resp); err != nil {
		return "", fmt.Errorf("name of %s: %w", r.id, err)
	}
	return resp.Name, nil
}

// JoinedMembers fetches the room's joined members
func (r *Room) JoinedMembers(ctx context.Context) ([]models.Member, error) {
	var resp protocol.MembersResponse
	if err := r.session.do(ctx, http.MethodGet, []string{"rooms", r.id, "members"}, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("members of %s: %w", r.id, err)
	}
	members := make([]models.Member, 0, len(resp.Members))
	for _, m := range resp.Members {
		members = append(members, models.NewMember(m.DisplayName, m.UserID))
	}
	return members, nil
}

// HistoryReverse pages backwards through the room's messages, newest first,
// stopping after the session's backfill limit. Non-message events are
// skipped. A failed page is yielded as an error and ends the sequence.
func (r *Room) HistoryReverse(ctx context.Context) iter.Seq2[state.MessageEvent, error] {
	limit := r.session.BackfillLimit
	return func(yield func(state.MessageEvent, error) bool) {
		var (
			from    string
			fetched int
		)
		for {
			pageSize := historyPageSize
			if limit > 0 {
				pageSize = min(pageSize, limit-fetched)
			}
			if pageSize <= 0 {
				return
			}

			var page protocol.MessagesResponse
			err := r.session.do(ctx, http.MethodGet, []string{"rooms", r.id, "messages"}, pageQuery(from, pageSize), nil, &page)
			if err != nil {
				yield(state.MessageEvent{}, fmt.Errorf("history of %s: %w", r.id, err))
				return
			}

			for i := range page.Chunk {
				fetched++
				ev := &page.Chunk[i]
				if ev.Type != protocol.TypeRoomMessage {
					continue
				}
				msg, err := MessageEventFrom(ev)
				if err != nil {
					continue
				}
				if !yield(msg, nil) {
					return
				}
			}

			if page.End == "" || len(page.Chunk) == 0 {
				return
			}
			from = page.End
		}
	}
}
