// Package gateway is the client side of the homeserver protocol: login, the
// initial and continuous sync, room listings with paged history, and the
// user actions (send, kick, join) the terminal client performs.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/protocol"
)

const (
	requestTimeout  = 10 * time.Second
	historyPageSize = 50
	// DefaultBackfillLimit is the number of past events fetched per room
	DefaultBackfillLimit = 100
)

// Session is an authenticated connection to a homeserver
type Session struct {
	Homeserver *url.URL
	UserID     string

	// BackfillLimit caps the history fetched for each room; zero or less
	// fetches everything
	BackfillLimit int
	// Reconnect is the schedule SyncForever uses after a dropped connection
	Reconnect Backoff

	token  string
	client *http.Client
}

// ParseHomeserver validates a homeserver base address
func ParseHomeserver(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid homeserver URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid homeserver URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid homeserver URL %q: missing host", raw)
	}
	return u, nil
}

// NewSession creates a session from an existing access token
func NewSession(homeserver *url.URL, userID, token string) *Session {
	return &Session{
		Homeserver:    homeserver,
		UserID:        userID,
		BackfillLimit: DefaultBackfillLimit,
		Reconnect:     ReconnectBackoff(),
		token:         token,
		client:        &http.Client{Timeout: requestTimeout},
	}
}

// Login authenticates with a username (localpart or full user ID) and password
func Login(ctx context.Context, homeserver, username, password string) (*Session, error) {
	return authenticate(ctx, homeserver, "login", protocol.LoginRequest{
		User:     username,
		Password: password,
	})
}

// Register creates an account and returns a session for it
func Register(ctx context.Context, homeserver, username, password, displayName string) (*Session, error) {
	return authenticate(ctx, homeserver, "register", protocol.RegisterRequest{
		Username:    username,
		Password:    password,
		DisplayName: displayName,
	})
}

func authenticate(ctx context.Context, homeserver, endpoint string, body any) (*Session, error) {
	u, err := ParseHomeserver(homeserver)
	if err != nil {
		return nil, err
	}
	s := NewSession(u, "", "")

	var resp protocol.LoginResponse
	if err := s.do(ctx, http.MethodPost, []string{endpoint}, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.AccessToken == "" || resp.UserID == "" {
		return nil, fmt.Errorf("%s: homeserver returned no session", endpoint)
	}
	s.UserID = resp.UserID
	s.token = resp.AccessToken
	return s, nil
}

// Token returns the access token
func (s *Session) Token() string {
	return s.token
}

// Renderer returns a content renderer resolving media against the homeserver
func (s *Session) Renderer() content.Renderer {
	return content.NewRenderer(s.Homeserver)
}

// SyncOnce fetches the rooms the user has joined or been invited to
func (s *Session) SyncOnce(ctx context.Context) (*protocol.SyncResponse, error) {
	var resp protocol.SyncResponse
	if err := s.do(ctx, http.MethodGet, []string{"sync"}, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	if resp.UserID != "" {
		s.UserID = resp.UserID
	}
	return &resp, nil
}

// JoinedRooms returns a handle for every joined room
func (s *Session) JoinedRooms(ctx context.Context) ([]*Room, error) {
	resp, err := s.SyncOnce(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]*Room, 0, len(resp.Rooms.Join))
	for _, id := range resp.Rooms.Join {
		rooms = append(rooms, s.Room(id))
	}
	return rooms, nil
}

// Room returns a handle for roomID without contacting the homeserver
func (s *Session) Room(roomID string) *Room {
	return &Room{session: s, id: roomID}
}

// SendMessage posts a plain text message
func (s *Session) SendMessage(ctx context.Context, roomID, text string) error {
	if text == "" {
		return nil
	}
	txn := uuid.NewString()
	var resp protocol.SendResponse
	err := s.do(ctx, http.MethodPut, []string{"rooms", roomID, "send", txn}, nil, content.NewText(text), &resp)
	if err != nil {
		return fmt.Errorf("send to %s: %w", roomID, err)
	}
	return nil
}

// KickUser removes userID from roomID
func (s *Session) KickUser(ctx context.Context, roomID, userID string) error {
	req := protocol.KickRequest{UserID: userID}
	if err := s.do(ctx, http.MethodPost, []string{"rooms", roomID, "kick"}, nil, req, nil); err != nil {
		return fmt.Errorf("kick %s from %s: %w", userID, roomID, err)
	}
	return nil
}

// JoinRoom joins roomID, accepting a pending invitation
func (s *Session) JoinRoom(ctx context.Context, roomID string) error {
	if err := s.do(ctx, http.MethodPost, []string{"rooms", roomID, "join"}, nil, struct{}{}, nil); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	return nil
}

// LeaveRoom leaves roomID
func (s *Session) LeaveRoom(ctx context.Context, roomID string) error {
	if err := s.do(ctx, http.MethodPost, []string{"rooms", roomID, "leave"}, nil, struct{}{}, nil); err != nil {
		return fmt.Errorf("leave %s: %w", roomID, err)
	}
	return nil
}

// InviteUser invites userID to roomID
func (s *Session) InviteUser(ctx context.Context, roomID, userID string) error {
	req := protocol.InviteRequest{UserID: userID}
	if err := s.do(ctx, http.MethodPost, []string{"rooms", roomID, "invite"}, nil, req, nil); err != nil {
		return fmt.Errorf("invite %s to %s: %w", userID, roomID, err)
	}
	return nil
}

// CreateRoom creates a room and invites the given users
func (s *Session) CreateRoom(ctx context.Context, name string, invite ...string) (string, error) {
	var resp protocol.CreateRoomResponse
	req := protocol.CreateRoomRequest{Name: name, Invite: invite}
	if err := s.do(ctx, http.MethodPost, []string{"rooms"}, nil, req, &resp); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return resp.RoomID, nil
}

// AcceptInvitation joins roomID, retrying transient failures according to b.
// Rejections such as a revoked invitation end the attempt at once.
func (s *Session) AcceptInvitation(ctx context.Context, roomID string, b Backoff) error {
	return b.Retry(ctx, "accept invitation to "+roomID, func(ctx context.Context) error {
		err := s.JoinRoom(ctx, roomID)
		if err != nil && !isRetryable(err) {
			return Permanent(err)
		}
		return err
	})
}

// do performs an API request. Path segments are escaped individually and
// appended to /api. A nil out discards the response body.
func (s *Session) do(ctx context.Context, method string, segments []string, query url.Values, body, out any) error {
	u := s.endpoint(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to homeserver: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Status: resp.StatusCode}
		var apiErr protocol.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil {
			httpErr.ErrCode = apiErr.ErrCode
			httpErr.Message = apiErr.Error
		}
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (s *Session) endpoint(segments ...string) *url.URL {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, "api")
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return s.Homeserver.JoinPath(escaped...)
}

// wsURL returns the gateway websocket address
func (s *Session) wsURL() string {
	u := *s.Homeserver
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.JoinPath("ws").String()
}

func pageQuery(from string, limit int) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// isRetryable reports whether err may go away on its own: network failures,
// server errors and rate limits. Rejections of the request itself do not.
func isRetryable(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidSession) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 ||
			httpErr.Status == http.StatusTooManyRequests ||
			httpErr.Status == http.StatusRequestTimeout
	}
	return true
}
