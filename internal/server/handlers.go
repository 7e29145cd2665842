package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/models"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/pkg/crypto"
)

const (
	// SessionLifetime is how long an access token stays valid
	SessionLifetime = 30 * 24 * time.Hour

	defaultPageSize = 50
	maxPageSize     = 100
	maxBodyLength   = 4000
)

// Handlers serves the HTTP API and performs the room operations behind it
type Handlers struct {
	db         *database.DB
	hub        *Hub
	serverName string

	// Serializes state changes so membership and its events stay in step
	mu sync.Mutex
}

// NewHandlers creates a new Handlers instance
func NewHandlers(db *database.DB, hub *Hub, serverName string) *Handlers {
	return &Handlers{
		db:         db,
		hub:        hub,
		serverName: serverName,
	}
}

// ServerName returns the name user and room IDs are qualified with
func (h *Handlers) ServerName() string {
	return h.serverName
}

// Routes registers the API on mux
func (h *Handlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("GET /api/sync", h.auth(h.handleSync))
	mux.HandleFunc("POST /api/rooms", h.auth(h.handleCreateRoom))
	mux.HandleFunc("GET /api/rooms/{room}/name", h.auth(h.handleRoomName))
	mux.HandleFunc("GET /api/rooms/{room}/members", h.auth(h.handleMembers))
	mux.HandleFunc("GET /api/rooms/{room}/messages", h.auth(h.handleMessages))
	mux.HandleFunc("PUT /api/rooms/{room}/send/{txn}", h.auth(h.handleSend))
	mux.HandleFunc("POST /api/rooms/{room}/kick", h.auth(h.handleKick))
	mux.HandleFunc("POST /api/rooms/{room}/join", h.auth(h.handleJoin))
	mux.HandleFunc("POST /api/rooms/{room}/leave", h.auth(h.handleLeave))
	mux.HandleFunc("POST /api/rooms/{room}/invite", h.auth(h.handleInvite))
}

// Authenticate validates a token and returns the associated user
func (h *Handlers) Authenticate(token string) (*models.User, error) {
	userID, err := h.db.GetSessionByToken(crypto.HashToken(token))
	if err != nil {
		return nil, errors.New("invalid or expired token")
	}
	user, err := h.db.GetUserByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

// CreateAuthToken starts a session for userID and returns its token
func (h *Handlers) CreateAuthToken(userID string) (string, error) {
	token, err := crypto.NewAccessToken()
	if err != nil {
		return "", err
	}
	if _, err := h.db.CreateSession(userID, crypto.HashToken(token), time.Now().Add(SessionLifetime)); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// auth resolves the bearer token before calling next
func (h *Handlers) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, &apiError{http.StatusUnauthorized, protocol.ErrCodeMissingToken, "Missing access token"})
			return
		}
		user, err := h.Authenticate(token)
		if err != nil {
			writeError(w, &apiError{http.StatusUnauthorized, protocol.ErrCodeUnknownToken, "Unknown access token"})
			return
		}
		next(w, r, user)
	}
}

// handleHealth returns server health status
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.HealthResponse{Status: "ok", ServerName: h.serverName})
}

// handleRegister handles user registration
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req protocol.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.RegisterUser(req.Username, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondWithSession(w, user)
}

// handleLogin handles user login
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req protocol.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	invalid := &apiError{http.StatusForbidden, protocol.ErrCodeForbidden, "Invalid username or password"}
	localpart, server, err := models.ParseUserID(req.User, h.serverName)
	if err != nil || server != h.serverName {
		writeError(w, invalid)
		return
	}
	user, err := h.db.GetUserByID(models.UserID(localpart, server))
	if err != nil || !crypto.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, invalid)
		return
	}
	h.respondWithSession(w, user)
}

func (h *Handlers) respondWithSession(w http.ResponseWriter, user *models.User) {
	token, err := h.CreateAuthToken(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.LoginResponse{UserID: user.ID, AccessToken: token})
}

func (h *Handlers) handleSync(w http.ResponseWriter, r *http.Request, user *models.User) {
	joined, err := h.db.JoinedRoomIDs(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	invites, err := h.db.PendingInvites(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if joined == nil {
		joined = []string{}
	}
	if invites == nil {
		invites = []protocol.InvitedRoom{}
	}
	writeJSON(w, http.StatusOK, protocol.SyncResponse{
		UserID: user.ID,
		Rooms:  protocol.SyncRooms{Join: joined, Invite: invites},
	})
}

func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req protocol.CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	room, err := h.CreateRoom(user.ID, req.Name, req.Invite...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.CreateRoomResponse{RoomID: room.ID})
}

func (h *Handlers) handleRoomName(w http.ResponseWriter, r *http.Request, user *models.User) {
	room, err := h.requireMembership(r.PathValue("room"), user.ID, models.MembershipJoin, models.MembershipInvite)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.RoomNameResponse{Name: room.Name})
}

func (h *Handlers) handleMembers(w http.ResponseWriter, r *http.Request, user *models.User) {
	room, err := h.requireMembership(r.PathValue("room"), user.ID, models.MembershipJoin)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.db.JoinedMembers(room.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := protocol.MembersResponse{Members: make([]protocol.RoomMember, 0, len(users))}
	for _, u := range users {
		resp.Members = append(resp.Members, protocol.RoomMember{UserID: u.ID, DisplayName: u.DisplayName})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleMessages(w http.ResponseWriter, r *http.Request, user *models.User) {
	room, err := h.requireMembership(r.PathValue("room"), user.ID, models.MembershipJoin)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, &apiError{http.StatusBadRequest, protocol.ErrCodeInvalidParam, "limit must be a positive integer"})
			return
		}
		limit = min(n, maxPageSize)
	}

	events, end, err := h.db.RoomEvents(room.ID, r.URL.Query().Get("from"), limit)
	if err != nil {
		writeError(w, &apiError{http.StatusBadRequest, protocol.ErrCodeInvalidParam, err.Error()})
		return
	}
	if events == nil {
		events = []protocol.RoomEvent{}
	}
	writeJSON(w, http.StatusOK, protocol.MessagesResponse{Chunk: events, End: end})
}

func (h *Handlers) handleSend(w http.ResponseWriter, r *http.Request, user *models.User) {
	var c content.MessageContent
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, err)
		return
	}
	eventID, err := h.SendMessage(r.PathValue("room"), user.ID, r.PathValue("txn"), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SendResponse{EventID: eventID})
}

func (h *Handlers) handleKick(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req protocol.KickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.KickUser(r.PathValue("room"), user.ID, req.UserID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) handleJoin(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := h.JoinRoom(r.PathValue("room"), user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) handleLeave(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := h.LeaveRoom(r.PathValue("room"), user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) handleInvite(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req protocol.InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.InviteUser(r.PathValue("room"), user.ID, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// apiError is an error with an HTTP status and protocol error code
type apiError struct {
	Status  int
	ErrCode string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func forbidden(format string, args ...any) error {
	return &apiError{http.StatusForbidden, protocol.ErrCodeForbidden, fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &apiError{http.StatusNotFound, protocol.ErrCodeNotFound, fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) error {
	return &apiError{http.StatusBadRequest, protocol.ErrCodeInvalidParam, fmt.Sprintf(format, args...)}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(v); err != nil {
		return &apiError{http.StatusBadRequest, protocol.ErrCodeBadJSON, "Invalid request body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response: %v", err)
	}
}

// writeError answers with the error's status, or 500 for unexpected errors
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		logger.Error("Request failed: %v", err)
		apiErr = &apiError{http.StatusInternalServerError, protocol.ErrCodeUnknown, "Internal server error"}
	}
	writeJSON(w, apiErr.Status, protocol.ErrorResponse{ErrCode: apiErr.ErrCode, Error: apiErr.Message})
}
