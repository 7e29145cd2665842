package protocol

// Error codes returned in ErrorResponse
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeBadJSON       = "M_BAD_JSON"
	ErrCodeUserInUse     = "M_USER_IN_USE"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
)

// ErrorResponse is the body of every non-2xx HTTP response
type ErrorResponse struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// LoginResponse is returned by login and register
type LoginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// SyncResponse is the body of GET /api/sync
type SyncResponse struct {
	UserID string    `json:"user_id"`
	Rooms  SyncRooms `json:"rooms"`
}

// SyncRooms lists the rooms the user belongs to or is invited to
type SyncRooms struct {
	Join   []string      `json:"join"`
	Invite []InvitedRoom `json:"invite"`
}

// InvitedRoom is a pending invitation
type InvitedRoom struct {
	RoomID  string `json:"room_id"`
	Inviter string `json:"inviter"`
}

// RoomNameResponse is the body of GET /api/rooms/{room}/name
type RoomNameResponse struct {
	Name string `json:"name"`
}

// RoomMember is one entry of a member listing
type RoomMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// MembersResponse is the body of GET /api/rooms/{room}/members
type MembersResponse struct {
	Members []RoomMember `json:"members"`
}

// MessagesResponse is one page of history, newest first. An empty End means
// there is no older history.
type MessagesResponse struct {
	Chunk []RoomEvent `json:"chunk"`
	End   string      `json:"end,omitempty"`
}

// SendResponse is returned after sending an event
type SendResponse struct {
	EventID string `json:"event_id"`
}

// KickRequest is the body of POST /api/rooms/{room}/kick
type KickRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// InviteRequest is the body of POST /api/rooms/{room}/invite
type InviteRequest struct {
	UserID string `json:"user_id"`
}

// CreateRoomRequest is the body of POST /api/rooms
type CreateRoomRequest struct {
	Name   string   `json:"name"`
	Invite []string `json:"invite,omitempty"`
}

// CreateRoomResponse is returned after creating a room
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status     string `json:"status"`
	ServerName string `json:"server_name"`
}
