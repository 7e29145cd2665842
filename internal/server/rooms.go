package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/pkg/crypto"
)

const minPasswordLength = 8

// RegisterUser creates an account on this server
func (h *Handlers) RegisterUser(localpart, password, displayName string) (*models.User, error) {
	localpart = strings.ToLower(strings.TrimSpace(localpart))
	if err := validateLocalpart(localpart); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, badRequest("Password must be at least %d characters", minPasswordLength)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.NewUser(localpart, h.serverName, strings.TrimSpace(displayName))
	user.PasswordHash = hash

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.db.GetUserByID(user.ID); err == nil {
		return nil, &apiError{http.StatusBadRequest, protocol.ErrCodeUserInUse, "User ID already taken"}
	}
	if err := h.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info("Registered %s", user.ID)
	return user, nil
}

func validateLocalpart(localpart string) error {
	if len(localpart) < 2 || len(localpart) > 32 {
		return badRequest("Username must be 2-32 characters")
	}
	for _, r := range localpart {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return badRequest("Username may only contain a-z, 0-9, '.', '_' and '-'")
		}
	}
	return nil
}

// CreateRoom creates a room, joins its creator and invites the given users
func (h *Handlers) CreateRoom(creatorID, name string, invite ...string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, badRequest("Room name must not be empty")
	}

	room := models.NewRoom(name, creatorID, h.serverName)

	h.mu.Lock()
	if err := h.db.CreateRoom(room); err != nil {
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	err := h.changeMembership(room.ID, creatorID, creatorID, models.MembershipJoin, "")
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, target := range invite {
		if err := h.InviteUser(room.ID, creatorID, target); err != nil {
			logger.Warn("Failed to invite %s to %s: %v", target, room.ID, err)
		}
	}
	logger.Info("%s created room %s (%s)", creatorID, room.ID, room.Name)
	return room, nil
}

// JoinRoom joins userID to a room. Rooms are public; joining twice is a
// no-op.
func (h *Handlers) JoinRoom(roomID, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.room(roomID); err != nil {
		return err
	}
	current, err := h.db.GetMembership(roomID, userID)
	if err != nil {
		return err
	}
	switch current {
	case models.MembershipJoin:
		return nil
	case models.MembershipBan:
		return forbidden("You are banned from %s", roomID)
	}
	return h.changeMembership(roomID, userID, userID, models.MembershipJoin, "")
}

// LeaveRoom removes userID from a room or rejects a pending invitation
func (h *Handlers) LeaveRoom(roomID, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.requireMembership(roomID, userID, models.MembershipJoin, models.MembershipInvite); err != nil {
		return err
	}
	return h.changeMembership(roomID, userID, userID, models.MembershipLeave, "")
}

// InviteUser invites targetID to a room inviterID has joined
func (h *Handlers) InviteUser(roomID, inviterID, targetID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.requireMembership(roomID, inviterID, models.MembershipJoin); err != nil {
		return err
	}
	if _, err := h.db.GetUserByID(targetID); err != nil {
		return notFound("Unknown user %s", targetID)
	}
	current, err := h.db.GetMembership(roomID, targetID)
	if err != nil {
		return err
	}
	switch current {
	case models.MembershipJoin:
		return forbidden("%s is already in the room", targetID)
	case models.MembershipBan:
		return forbidden("%s is banned from the room", targetID)
	case models.MembershipInvite:
		return nil
	}
	return h.changeMembership(roomID, inviterID, targetID, models.MembershipInvite, "")
}

// KickUser removes targetID from a room. Any joined member may kick.
func (h *Handlers) KickUser(roomID, kickerID, targetID, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.requireMembership(roomID, kickerID, models.MembershipJoin); err != nil {
		return err
	}
	current, err := h.db.GetMembership(roomID, targetID)
	if err != nil {
		return err
	}
	if current != models.MembershipJoin && current != models.MembershipInvite {
		return forbidden("%s is not in the room", targetID)
	}
	return h.changeMembership(roomID, kickerID, targetID, models.MembershipLeave, reason)
}

// SendMessage stores a message and dispatches it to the room. Repeating a
// transaction ID returns the original event.
func (h *Handlers) SendMessage(roomID, senderID, txnID string, c content.MessageContent) (string, error) {
	if c.MsgType == "" || c.Body == "" {
		return "", badRequest("Message needs a msgtype and a body")
	}
	if len(c.Body) > maxBodyLength {
		return "", badRequest("Message body too long (max %d bytes)", maxBodyLength)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.requireMembership(roomID, senderID, models.MembershipJoin); err != nil {
		return "", err
	}
	if txnID != "" {
		if ev, err := h.db.EventByTxn(senderID, txnID); err == nil {
			return ev.EventID, nil
		}
	}

	ev, err := protocol.NewMessageEvent(models.NewEventID(h.serverName), roomID, senderID, time.Now().UnixMilli(), c)
	if err != nil {
		return "", err
	}
	if err := h.db.InsertEvent(ev, txnID); err != nil {
		return "", fmt.Errorf("failed to store message: %w", err)
	}

	members, err := h.joinedIDs(roomID)
	if err != nil {
		return "", err
	}
	if err := h.hub.SendToUsers(members, protocol.EventRoomMessage, ev); err != nil {
		logger.Error("Failed to dispatch %s: %v", ev.EventID, err)
	}
	return ev.EventID, nil
}

// changeMembership records a membership change, stores its event and
// dispatches it to the room's joined members and the target. Callers hold
// h.mu.
func (h *Handlers) changeMembership(roomID, sender, target string, membership models.Membership, reason string) error {
	var displayName string
	if u, err := h.db.GetUserByID(target); err == nil {
		displayName = u.DisplayName
	}

	if err := h.db.SetMembership(roomID, target, membership, sender); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	ev, err := protocol.NewMemberEvent(models.NewEventID(h.serverName), roomID, sender, target, time.Now().UnixMilli(),
		protocol.MemberContent{Membership: membership, DisplayName: displayName, Reason: reason})
	if err != nil {
		return err
	}
	if err := h.db.InsertEvent(ev, ""); err != nil {
		return fmt.Errorf("failed to store membership event: %w", err)
	}

	recipients, err := h.joinedIDs(roomID)
	if err != nil {
		return err
	}
	recipients = append(recipients, target)
	if err := h.hub.SendToUsers(recipients, protocol.EventRoomMember, ev); err != nil {
		logger.Error("Failed to dispatch %s: %v", ev.EventID, err)
	}

	logger.Debug("%s: %s -> %s (by %s)", roomID, target, membership, sender)
	return nil
}

func (h *Handlers) room(roomID string) (*models.Room, error) {
	room, err := h.db.GetRoom(roomID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Unknown room %s", roomID)
	}
	return room, err
}

// requireMembership returns the room when userID holds one of allowed in it
func (h *Handlers) requireMembership(roomID, userID string, allowed ...models.Membership) (*models.Room, error) {
	room, err := h.room(roomID)
	if err != nil {
		return nil, err
	}
	current, err := h.db.GetMembership(roomID, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range allowed {
		if current == m {
			return room, nil
		}
	}
	return nil, forbidden("%s is not in room %s", userID, roomID)
}

func (h *Handlers) joinedIDs(roomID string) ([]string, error) {
	users, err := h.db.JoinedMembers(roomID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users)+1)
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
