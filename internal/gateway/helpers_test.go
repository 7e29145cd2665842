package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/stretchr/testify/require"
)

const (
	testUser  = "@alice:hearth.local"
	testToken = "secret-token"
	testRoom  = "!general:hearth.local"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// fakeHomeserver answers the HTTP API from canned data
type fakeHomeserver struct {
	t       *testing.T
	srv     *httptest.Server
	history []protocol.RoomEvent // newest first
	failAt  int                  // fail the history page starting at this offset when > 0

	// gateway behaviour
	rejectIdentify bool
	dispatches     []*protocol.Message

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	f := &fakeHomeserver{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", f.login)
	mux.HandleFunc("GET /api/sync", f.auth(f.sync))
	mux.HandleFunc("GET /api/rooms/{room}/name", f.auth(f.name))
	mux.HandleFunc("GET /api/rooms/{room}/members", f.auth(f.members))
	mux.HandleFunc("GET /api/rooms/{room}/messages", f.auth(f.messages))
	mux.HandleFunc("PUT /api/rooms/{room}/send/{txn}", f.auth(f.ok(protocol.SendResponse{EventID: "$sent"})))
	mux.HandleFunc("POST /api/rooms/{room}/kick", f.auth(f.ok(struct{}{})))
	mux.HandleFunc("POST /api/rooms/{room}/join", f.auth(f.join))
	mux.HandleFunc("GET /api/health", f.ok(protocol.HealthResponse{Status: "ok", ServerName: "hearth.local"}))
	mux.HandleFunc("GET /ws", f.gateway)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHomeserver) URL() string { return f.srv.URL }

func (f *fakeHomeserver) record(r *http.Request) {
	var body []byte
	if r.Body != nil {
		var buf json.RawMessage
		if json.NewDecoder(r.Body).Decode(&buf) == nil {
			body = buf
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
}

func (f *fakeHomeserver) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

// countRequests reports how many recorded requests hit path
func (f *fakeHomeserver) countRequests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if req.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeHomeserver) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, protocol.ErrorResponse{ErrCode: protocol.ErrCodeUnknownToken, Error: "bad token"})
			return
		}
		next(w, r)
	}
}

func (f *fakeHomeserver) ok(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, v)
	}
}

func (f *fakeHomeserver) login(w http.ResponseWriter, r *http.Request) {
	var req protocol.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{ErrCode: protocol.ErrCodeBadJSON, Error: err.Error()})
		return
	}
	if req.User != "alice" || req.Password != "hunter2" {
		writeJSON(w, http.StatusForbidden, protocol.ErrorResponse{ErrCode: protocol.ErrCodeForbidden, Error: "Invalid username or password"})
		return
	}
	writeJSON(w, http.StatusOK, protocol.LoginResponse{UserID: testUser, AccessToken: testToken})
}

func (f *fakeHomeserver) sync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.SyncResponse{
		UserID: testUser,
		Rooms: protocol.SyncRooms{
			Join:   []string{testRoom, "!random:hearth.local"},
			Invite: []protocol.InvitedRoom{{RoomID: "!secret:hearth.local", Inviter: "@bob:hearth.local"}},
		},
	})
}

func (f *fakeHomeserver) name(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("room") != testRoom {
		writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{ErrCode: protocol.ErrCodeNotFound, Error: "no such room"})
		return
	}
	writeJSON(w, http.StatusOK, protocol.RoomNameResponse{Name: "General"})
}

func (f *fakeHomeserver) members(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.MembersResponse{Members: []protocol.RoomMember{
		{UserID: testUser, DisplayName: "Alice"},
		{UserID: "@bob:hearth.local"},
	}})
}

// join refuses !banned and !gone outright and fails the first attempt at
// !flaky with a gateway error
func (f *fakeHomeserver) join(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	switch room := r.PathValue("room"); {
	case room == "!banned:hearth.local":
		writeJSON(w, http.StatusForbidden, protocol.ErrorResponse{ErrCode: protocol.ErrCodeForbidden, Error: "You are not invited to this room"})
	case room == "!gone:hearth.local":
		writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{ErrCode: protocol.ErrCodeNotFound, Error: "no such room"})
	case room == "!flaky:hearth.local" && f.countRequests(r.URL.Path) == 1:
		writeJSON(w, http.StatusBadGateway, protocol.ErrorResponse{ErrCode: protocol.ErrCodeUnknown, Error: "upstream unavailable"})
	default:
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// messages pages through f.history using the offset as the token
func (f *fakeHomeserver) messages(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	from, _ := strconv.Atoi(r.URL.Query().Get("from"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if f.failAt > 0 && from >= f.failAt {
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse{ErrCode: protocol.ErrCodeUnknown, Error: "boom"})
		return
	}
	end := min(from+limit, len(f.history))
	resp := protocol.MessagesResponse{Chunk: f.history[from:end]}
	if end < len(f.history) {
		resp.End = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

var upgrader = websocket.Upgrader{}

func (f *fakeHomeserver) gateway(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	hello, _ := protocol.NewMessage(protocol.OpHello, protocol.HelloPayload{HeartbeatInterval: 1000})
	if conn.WriteJSON(hello) != nil {
		return
	}

	var identify protocol.Message
	if conn.ReadJSON(&identify) != nil {
		return
	}
	var ip protocol.IdentifyPayload
	identify.Decode(&ip)
	if f.rejectIdentify || ip.Token != testToken {
		invalid, _ := protocol.NewMessage(protocol.OpInvalidSession, protocol.InvalidSessionPayload{Reason: "bad token"})
		conn.WriteJSON(invalid)
		return
	}

	ready, _ := protocol.NewMessage(protocol.OpReady, protocol.ReadyPayload{SessionID: "s1", UserID: testUser})
	if conn.WriteJSON(ready) != nil {
		return
	}
	for _, d := range f.dispatches {
		if conn.WriteJSON(d) != nil {
			return
		}
	}
	// Keep the connection open until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func textRoomEvent(t *testing.T, id string, ts int64, body string) protocol.RoomEvent {
	t.Helper()
	ev, err := protocol.NewMessageEvent(id, testRoom, "@bob:hearth.local", ts, content.NewText(body))
	require.NoError(t, err)
	return *ev
}
