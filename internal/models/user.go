package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is an account on a homeserver
type User struct {
	ID           string    `json:"user_id"`
	Localpart    string    `json:"localpart"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a new user on the given server
func NewUser(localpart, serverName, displayName string) *User {
	return &User{
		ID:          UserID(localpart, serverName),
		Localpart:   localpart,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
}

// GetDisplayName returns the display name if set, otherwise the user ID
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// UserID builds a fully qualified user ID (@localpart:server)
func UserID(localpart, serverName string) string {
	return "@" + localpart + ":" + serverName
}

// ParseUserID splits a fully qualified user ID into localpart and server name.
// A bare localpart is qualified with defaultServer.
func ParseUserID(id, defaultServer string) (localpart, serverName string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", errors.New("empty user id")
	}
	if !strings.HasPrefix(id, "@") {
		if strings.ContainsAny(id, ":@!") {
			return "", "", fmt.Errorf("malformed user id %q", id)
		}
		return strings.ToLower(id), defaultServer, nil
	}
	local, server, ok := strings.Cut(id[1:], ":")
	if !ok || local == "" || server == "" {
		return "", "", fmt.Errorf("malformed user id %q", id)
	}
	return strings.ToLower(local), server, nil
}
