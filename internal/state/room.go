package state

import (
	"context"
	"iter"
	"slices"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
)

// UnknownRoomName is used when a room's display name cannot be computed
const UnknownRoomName = "Unknown name"

// RoomSource is the protocol side of a joined room
type RoomSource interface {
	ID() string
	DisplayName(ctx context.Context) (string, error)
	JoinedMembers(ctx context.Context) ([]models.Member, error)
	// HistoryReverse yields the room's messages newest first. Iteration
	// stops at the first error.
	HistoryReverse(ctx context.Context) iter.Seq2[MessageEvent, error]
}

// RoomEntry is the client's view of one joined room
type RoomEntry struct {
	ID       string
	Name     string
	Messages *Timeline
	Members  *Roster

	// IDs of the backfilled events, kept until events that arrived while
	// the room was loading have been replayed
	backfilled map[string]struct{}
}

// NewEmptyRoomEntry creates an entry with no members or messages
func NewEmptyRoomEntry(id, name string) *RoomEntry {
	return &RoomEntry{
		ID:       id,
		Name:     name,
		Messages: NewTimeline(),
		Members:  NewRoster(),
	}
}

// NewRoomEntry builds an entry from src: display name, joined members and
// the backfilled history in chronological order. Failures degrade to the
// fallback name, an empty roster, or a truncated history.
func NewRoomEntry(ctx context.Context, src RoomSource, conv Converter) *RoomEntry {
	id := src.ID()

	name, err := src.DisplayName(ctx)
	if err != nil || name == "" {
		if err != nil {
			logger.Debug("Room %s: display name: %v", id, err)
		}
		name = UnknownRoomName
	}

	members, err := src.JoinedMembers(ctx)
	if err != nil {
		logger.Debug("Room %s: members: %v", id, err)
		members = nil
	}

	var history []models.Message
	backfilled := make(map[string]struct{})
	for ev, err := range src.HistoryReverse(ctx) {
		if err != nil {
			logger.Debug("Room %s: history stopped: %v", id, err)
			break
		}
		if msg, ok := conv.ToMessage(ev); ok {
			history = append(history, msg)
			if ev.EventID != "" {
				backfilled[ev.EventID] = struct{}{}
			}
		}
	}
	slices.Reverse(history)

	return &RoomEntry{
		ID:         id,
		Name:       name,
		Messages:   NewTimeline(history...),
		Members:    NewRoster(members...),
		backfilled: backfilled,
	}
}

// Converter turns message events into timeline entries
type Converter struct {
	renderer content.Renderer
}

// NewConverter creates a converter rendering bodies with r
func NewConverter(r content.Renderer) Converter {
	return Converter{renderer: r}
}

// ToMessage converts ev. It returns false when the timestamp cannot be
// resolved.
func (c Converter) ToMessage(ev MessageEvent) (models.Message, bool) {
	ts, ok := models.FormatTimestamp(ev.OriginServerTS)
	if !ok {
		return models.Message{}, false
	}
	return models.NewMessage(ts, ev.Sender, c.renderer.Render(ev.Content)), true
}
