package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes schema
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	wrapper := &DB{db}
	if err := wrapper.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return wrapper, nil
}

// initSchema creates the database tables if they don't exist
func (db *DB) initSchema() error {
	schema := `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		localpart TEXT NOT NULL UNIQUE,
		display_name TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	-- Sessions table for authentication
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		last_used_at DATETIME
	);

	-- Rooms table
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		creator_id TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL
	);

	-- Current membership of each user in each room
	CREATE TABLE IF NOT EXISTS memberships (
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		membership TEXT NOT NULL,
		sender TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (room_id, user_id)
	);

	-- Room timeline; seq orders events and backs pagination tokens
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		sender TEXT NOT NULL,
		state_key TEXT,
		origin_server_ts INTEGER NOT NULL,
		content TEXT NOT NULL,
		txn_id TEXT
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_events_room_seq ON events(room_id, seq DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_txn ON events(sender, txn_id) WHERE txn_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id, membership);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`

	_, err := db.Exec(schema)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// --- User Operations ---

// CreateUser inserts a new user into the database
func (db *DB) CreateUser(user *models.User) error {
	_, err := db.Exec(`
		INSERT INTO users (id, localpart, display_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Localpart, user.DisplayName, user.PasswordHash, user.CreatedAt)
	return err
}

// GetUserByID retrieves a user by their ID
func (db *DB) GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	var displayName sql.NullString

	err := db.QueryRow(`
		SELECT id, localpart, display_name, password_hash, created_at
		FROM users WHERE id = ?`, id).Scan(
		&user.ID, &user.Localpart, &displayName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if displayName.Valid {
		user.DisplayName = displayName.String
	}
	return user, nil
}

// CountUsers returns the number of registered users
func (db *DB) CountUsers() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// --- Session Operations ---

// CreateSession creates a new authentication session
func (db *DB) CreateSession(userID, tokenHash string, expiresAt time.Time) (string, error) {
	sessionID := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, userID, tokenHash, time.Now(), expiresAt)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// GetSessionByToken returns the user owning an unexpired session
func (db *DB) GetSessionByToken(tokenHash string) (string, error) {
	var userID string
	err := db.QueryRow(`
		SELECT user_id FROM sessions
		WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, time.Now()).Scan(&userID)
	if err != nil {
		return "", notFound(err)
	}

	// Update last used
	db.Exec(`UPDATE sessions SET last_used_at = ? WHERE token_hash = ?`, time.Now(), tokenHash)

	return userID, nil
}

// DeleteSession removes a session
func (db *DB) DeleteSession(tokenHash string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

// --- Room Operations ---

// CreateRoom inserts a new room
func (db *DB) CreateRoom(room *models.Room) error {
	_, err := db.Exec(`
		INSERT INTO rooms (id, name, creator_id, created_at)
		VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, room.CreatorID, room.CreatedAt)
	return err
}

// GetRoom retrieves a room by ID
func (db *DB) GetRoom(id string) (*models.Room, error) {
	room := &models.Room{}
	err := db.QueryRow(`
		SELECT id, name, creator_id, created_at FROM rooms WHERE id = ?`, id).Scan(
		&room.ID, &room.Name, &room.CreatorID, &room.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return room, nil
}

// --- Membership Operations ---

// SetMembership records userID's membership in roomID, changed by sender
func (db *DB) SetMembership(roomID, userID string, membership models.Membership, sender string) error {
	_, err := db.Exec(`
		INSERT INTO memberships (room_id, user_id, membership, sender, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			membership = excluded.membership,
			sender = excluded.sender,
			updated_at = excluded.updated_at`,
		roomID, userID, string(membership), sender, time.Now())
	return err
}

// GetMembership returns userID's membership in roomID. Users that never
// had one are reported as having left.
func (db *DB) GetMembership(roomID, userID string) (models.Membership, error) {
	var m string
	err := db.QueryRow(`
		SELECT membership FROM memberships WHERE room_id = ? AND user_id = ?`,
		roomID, userID).Scan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MembershipLeave, nil
	}
	if err != nil {
		return "", err
	}
	return models.Membership(m), nil
}

// JoinedMembers returns the users joined to a room ordered by join time
func (db *DB) JoinedMembers(roomID string) ([]*models.User, error) {
	rows, err := db.Query(`
		SELECT u.id, u.localpart, u.display_name, u.created_at
		FROM users u
		JOIN memberships m ON u.id = m.user_id
		WHERE m.room_id = ? AND m.membership = ?
		ORDER BY m.updated_at ASC, u.id ASC`, roomID, string(models.MembershipJoin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var displayName sql.NullString
		if err := rows.Scan(&user.ID, &user.Localpart, &displayName, &user.CreatedAt); err != nil {
			return nil, err
		}
		if displayName.Valid {
			user.DisplayName = displayName.String
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// JoinedRoomIDs returns the rooms userID has joined
func (db *DB) JoinedRoomIDs(userID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT room_id FROM memberships
		WHERE user_id = ? AND membership = ?
		ORDER BY updated_at ASC`, userID, string(models.MembershipJoin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PendingInvites returns the open invitations addressed to userID
func (db *DB) PendingInvites(userID string) ([]protocol.InvitedRoom, error) {
	rows, err := db.Query(`
		SELECT room_id, sender FROM memberships
		WHERE user_id = ? AND membership = ?
		ORDER BY updated_at ASC`, userID, string(models.MembershipInvite))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []protocol.InvitedRoom
	for rows.Next() {
		var inv protocol.InvitedRoom
		if err := rows.Scan(&inv.RoomID, &inv.Inviter); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// --- Event Operations ---

// InsertEvent appends an event to its room's timeline. A non-empty txnID
// makes the insert idempotent per sender.
func (db *DB) InsertEvent(ev *protocol.RoomEvent, txnID string) error {
	var stateKey, txn sql.NullString
	if ev.StateKey != nil {
		stateKey = sql.NullString{String: *ev.StateKey, Valid: true}
	}
	if txnID != "" {
		txn = sql.NullString{String: txnID, Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO events (event_id, room_id, type, sender, state_key, origin_server_ts, content, txn_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.RoomID, ev.Type, ev.Sender, stateKey, ev.OriginServerTS, string(ev.Content), txn)
	return err
}

// EventByTxn returns the event sender created with txnID
func (db *DB) EventByTxn(sender, txnID string) (*protocol.RoomEvent, error) {
	row := db.QueryRow(`
		SELECT seq, event_id, room_id, type, sender, state_key, origin_server_ts, content
		FROM events WHERE sender = ? AND txn_id = ?`, sender, txnID)
	ev, _, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return ev, nil
}

// RoomEvents returns up to limit events of a room, newest first, older than
// the pagination token from. An empty from starts at the newest event. The
// returned token continues the page and is empty when no events remain.
func (db *DB) RoomEvents(roomID, from string, limit int) ([]protocol.RoomEvent, string, error) {
	limit = max(limit, 1)
	before := int64(-1)
	if from != "" {
		seq, err := strconv.ParseInt(from, 10, 64)
		if err != nil || seq < 0 {
			return nil, "", fmt.Errorf("invalid pagination token %q", from)
		}
		before = seq
	}

	query := `
		SELECT seq, event_id, room_id, type, sender, state_key, origin_server_ts, content
		FROM events
		WHERE room_id = ?`
	args := []any{roomID}
	if before >= 0 {
		query += ` AND seq < ?`
		args = append(args, before)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var (
		events []protocol.RoomEvent
		seqs   []int64
	)
	for rows.Next() {
		ev, seq, err := scanEvent(rows)
		if err != nil {
			return nil, "", err
		}
		events = append(events, *ev)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if len(events) <= limit {
		return events, "", nil
	}
	return events[:limit], strconv.FormatInt(seqs[limit-1], 10), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*protocol.RoomEvent, int64, error) {
	ev := &protocol.RoomEvent{}
	var (
		seq      int64
		stateKey sql.NullString
		raw      string
	)
	err := s.Scan(&seq, &ev.EventID, &ev.RoomID, &ev.Type, &ev.Sender, &stateKey, &ev.OriginServerTS, &raw)
	if err != nil {
		return nil, 0, err
	}
	if stateKey.Valid {
		key := stateKey.String
		ev.StateKey = &key
	}
	ev.Content = []byte(raw)
	return ev, seq, nil
}
