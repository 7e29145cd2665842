package state

import (
	"context"
	"strings"

	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
)

// Messenger performs the user actions that reach the homeserver
type Messenger interface {
	SendMessage(ctx context.Context, roomID, text string) error
	KickUser(ctx context.Context, roomID, userID string) error
}

// Notifier shows a desktop notification
type Notifier interface {
	Notify(title, message string) error
}

// RoomLoader builds the entry for a newly joined room in the background
// and delivers it as a RoomLoadedEvent
type RoomLoader interface {
	LoadRoom(roomID string)
}

// RoomLoaderFunc adapts a function to RoomLoader
type RoomLoaderFunc func(roomID string)

func (f RoomLoaderFunc) LoadRoom(roomID string) { f(roomID) }

// InviteAcceptor accepts a room invitation in the background
type InviteAcceptor interface {
	AcceptInvite(roomID string)
}

// InviteAcceptorFunc adapts a function to InviteAcceptor
type InviteAcceptorFunc func(roomID string)

func (f InviteAcceptorFunc) AcceptInvite(roomID string) { f(roomID) }

// Deps are the collaborators of a Reconciler. Nil collaborators disable
// the features that use them.
type Deps struct {
	Messenger Messenger
	Converter Converter
	Notifier  Notifier
	Loader    RoomLoader
	Invites   InviteAcceptor
}

// Reconciler applies protocol events and user commands to the client state.
// It is not safe for concurrent use; everything runs on the home loop.
type Reconciler struct {
	self string
	deps Deps

	rooms   *Directory
	tab     Tab
	input   []rune
	// Rooms being loaded, with the events that arrived for them meanwhile
	pending map[string][]Event
}

// NewReconciler creates a reconciler for the local user selfID over rooms.
// A nil rooms starts with an empty directory.
func NewReconciler(selfID string, rooms *Directory, deps Deps) *Reconciler {
	if rooms == nil {
		rooms = NewDirectory()
	}
	return &Reconciler{
		self:    selfID,
		deps:    deps,
		rooms:   rooms,
		tab:     TabRoom,
		pending: make(map[string][]Event),
	}
}

// Self returns the local user ID
func (r *Reconciler) Self() string { return r.self }

// Rooms returns the room directory
func (r *Reconciler) Rooms() *Directory { return r.rooms }

// Tab returns the active tab
func (r *Reconciler) Tab() Tab { return r.tab }

// Input returns the unsent text
func (r *Reconciler) Input() string { return string(r.input) }

// CurrentRoom returns the selected room, or nil
func (r *Reconciler) CurrentRoom() *RoomEntry { return r.rooms.Current() }

// Handle dispatches ev to the matching handler
func (r *Reconciler) Handle(ev Event) {
	switch e := ev.(type) {
	case MessageEvent:
		r.OnMessage(e)
	case MembershipEvent:
		r.OnMembership(e)
	case InviteEvent:
		r.OnInvite(e)
	case RoomLoadedEvent:
		r.OnRoomLoaded(e)
	default:
		logger.Debug("Dropping unknown event %T", ev)
	}
}

// OnMessage appends a message to its room's timeline and notifies the user
// about messages from others.
func (r *Reconciler) OnMessage(ev MessageEvent) {
	msg, ok := r.deps.Converter.ToMessage(ev)
	if !ok {
		logger.Debug("Dropping message %s: no timestamp", ev.EventID)
		return
	}
	room := r.rooms.FindByID(ev.RoomID)
	if room == nil {
		if !r.holdForLoad(ev.RoomID, ev) {
			logger.Debug("Dropping message %s for unknown room %s", ev.EventID, ev.RoomID)
		}
		return
	}
	room.Messages.AppendMessage(msg)

	if ev.Sender != r.self && r.deps.Notifier != nil {
		if err := r.deps.Notifier.Notify(ev.Sender, msg.Body); err != nil {
			logger.Debug("Notification failed: %v", err)
		}
	}
}

// OnMembership updates the directory or a roster for a membership change
func (r *Reconciler) OnMembership(ev MembershipEvent) {
	room := r.rooms.FindByID(ev.RoomID)
	self := ev.Target == r.self
	if room == nil && !self && r.holdForLoad(ev.RoomID, ev) {
		return
	}

	switch ev.Membership {
	case models.MembershipJoin:
		switch {
		case room != nil:
			room.Members.Upsert(ev.DisplayName, ev.Target)
		case self:
			r.requestRoom(ev.RoomID)
		default:
			logger.Debug("Ignoring join of %s to unknown room %s", ev.Target, ev.RoomID)
		}

	case models.MembershipLeave, models.MembershipBan:
		switch {
		case self:
			delete(r.pending, ev.RoomID)
			removed, wasSelected := r.rooms.RemoveByID(ev.RoomID)
			if removed {
				logger.Info("Left room %s", ev.RoomID)
			}
			if wasSelected {
				r.tab = TabRoom
			}
		case room != nil:
			room.Members.RemoveByUserID(ev.Target)
		default:
			logger.Debug("Ignoring %s of %s in unknown room %s", ev.Membership, ev.Target, ev.RoomID)
		}

	default:
		logger.Debug("Ignoring %s membership for %s in %s", ev.Membership, ev.Target, ev.RoomID)
	}
}

func (r *Reconciler) requestRoom(roomID string) {
	if _, ok := r.pending[roomID]; ok {
		return
	}
	if r.deps.Loader == nil {
		logger.Warn("Joined room %s but no loader is configured", roomID)
		return
	}
	r.pending[roomID] = nil
	logger.Info("Joined room %s, loading", roomID)
	r.deps.Loader.LoadRoom(roomID)
}

// OnRoomLoaded adds a room built after a join and replays the events that
// arrived while it was loading, skipping messages already in its backfill.
// Rooms already present and rooms left while loading are ignored.
func (r *Reconciler) OnRoomLoaded(ev RoomLoadedEvent) {
	id := ev.RoomID
	if id == "" && ev.Entry != nil {
		id = ev.Entry.ID
	}
	deferred, ok := r.pending[id]
	if !ok {
		logger.Debug("Ignoring unrequested room %s", id)
		return
	}
	delete(r.pending, id)

	if ev.Entry == nil {
		logger.Warn("Could not load room %s, discarding %d events", id, len(deferred))
		return
	}
	if !r.rooms.Add(ev.Entry) {
		logger.Debug("Room %s already present", id)
	}

	for _, e := range deferred {
		if m, ok := e.(MessageEvent); ok {
			if _, seen := ev.Entry.backfilled[m.EventID]; seen {
				continue
			}
		}
		r.Handle(e)
	}
	ev.Entry.backfilled = nil
}

// holdForLoad holds ev until roomID finishes loading. It reports false when the
// room is not being loaded.
func (r *Reconciler) holdForLoad(roomID string, ev Event) bool {
	deferred, ok := r.pending[roomID]
	if !ok {
		return false
	}
	r.pending[roomID] = append(deferred, ev)
	return true
}

// OnInvite starts accepting invitations addressed to the local user
func (r *Reconciler) OnInvite(ev InviteEvent) {
	if ev.Target != r.self {
		return
	}
	if r.deps.Invites == nil {
		logger.Info("Invited to %s by %s, auto-accept disabled", ev.RoomID, ev.Sender)
		return
	}
	logger.Info("Invited to %s by %s, accepting", ev.RoomID, ev.Sender)
	r.deps.Invites.AcceptInvite(ev.RoomID)
}

// NextTab moves focus to the next pane
func (r *Reconciler) NextTab() {
	if r.tab == TabMembers {
		if room := r.rooms.Current(); room != nil {
			room.Members.Deselect()
		}
	}
	r.tab = r.tab.next(r.rooms.Current() != nil)
}

// Next moves the selection forward in the active pane
func (r *Reconciler) Next() {
	switch r.tab {
	case TabRoom:
		r.rooms.Next()
	case TabMessages:
		if room := r.rooms.Current(); room != nil {
			room.Messages.Next()
		}
	case TabMembers:
		if room := r.rooms.Current(); room != nil {
			room.Members.Next()
		}
	}
}

// Previous moves the selection backward in the active pane
func (r *Reconciler) Previous() {
	switch r.tab {
	case TabRoom:
		r.rooms.Previous()
	case TabMessages:
		if room := r.rooms.Current(); room != nil {
			room.Messages.Previous()
		}
	case TabMembers:
		if room := r.rooms.Current(); room != nil {
			room.Members.Previous()
		}
	}
}

// InsertRune appends ch to the input buffer
func (r *Reconciler) InsertRune(ch rune) {
	if r.tab != TabInput {
		return
	}
	r.input = append(r.input, ch)
}

// Backspace removes the last rune of the input buffer
func (r *Reconciler) Backspace() {
	if r.tab != TabInput || len(r.input) == 0 {
		return
	}
	r.input = r.input[:len(r.input)-1]
}

// SubmitInput sends the input buffer to the selected room and clears it
func (r *Reconciler) SubmitInput(ctx context.Context) {
	if r.tab != TabInput {
		return
	}
	text := string(r.input)
	r.input = r.input[:0]

	if strings.TrimSpace(text) == "" {
		return
	}
	room := r.rooms.Current()
	if room == nil {
		logger.Debug("Discarding input, no room selected")
		return
	}
	if r.deps.Messenger == nil {
		return
	}
	if err := r.deps.Messenger.SendMessage(ctx, room.ID, text); err != nil {
		logger.Warn("Failed to send message to %s: %v", room.ID, err)
	}
}

// KickSelected removes the selected member from the selected room
func (r *Reconciler) KickSelected(ctx context.Context) {
	if r.tab != TabMembers {
		return
	}
	room := r.rooms.Current()
	if room == nil {
		return
	}
	member, ok := room.Members.SelectedItem()
	if !ok || r.deps.Messenger == nil {
		return
	}
	if err := r.deps.Messenger.KickUser(ctx, room.ID, member.UserID); err != nil {
		logger.Warn("Failed to kick %s from %s: %v", member.UserID, room.ID, err)
	}
}
