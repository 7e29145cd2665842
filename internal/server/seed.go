package server

import (
	"errors"
	"fmt"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
)

// SeedPassword is the password of every demo account
const SeedPassword = "hearth-demo"

// ErrAlreadySeeded is returned by Seed when the database already has users
var ErrAlreadySeeded = errors.New("database already has users")

var seedUsers = []struct {
	localpart   string
	displayName string
}{
	{"alice", "Alice"},
	{"bob", "Bob"},
	{"carol", "Carol"},
}

// Seed creates demo users and rooms on an empty database. Alice and Bob
// share General with a little history; Carol is invited to it. Bob is
// invited to Alice's Random room.
func (h *Handlers) Seed() error {
	count, err := h.db.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadySeeded
	}

	ids := make(map[string]string, len(seedUsers))
	for _, u := range seedUsers {
		user, err := h.RegisterUser(u.localpart, SeedPassword, u.displayName)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", u.localpart, err)
		}
		ids[u.localpart] = user.ID
	}
	alice, bob, carol := ids["alice"], ids["bob"], ids["carol"]

	general, err := h.CreateRoom(alice, "General")
	if err != nil {
		return err
	}
	if err := h.JoinRoom(general.ID, bob); err != nil {
		return err
	}
	if err := h.InviteUser(general.ID, alice, carol); err != nil {
		return err
	}

	lines := []struct{ sender, body string }{
		{alice, "Welcome to the General room!"},
		{bob, "Hi Alice, glad to be here."},
		{alice, "Try pressing tab to move between panes."},
	}
	for i, line := range lines {
		if _, err := h.SendMessage(general.ID, line.sender, fmt.Sprintf("seed-%d", i), content.NewText(line.body)); err != nil {
			return err
		}
	}

	if _, err := h.CreateRoom(alice, "Random", bob); err != nil {
		return err
	}

	logger.Info("Seeded %d users (password %q) on %s", len(seedUsers), SeedPassword, h.serverName)
	return nil
}

// SeedUserIDs returns the IDs Seed creates on this server
func (h *Handlers) SeedUserIDs() []string {
	ids := make([]string, 0, len(seedUsers))
	for _, u := range seedUsers {
		ids = append(ids, models.UserID(u.localpart, h.serverName))
	}
	return ids
}
