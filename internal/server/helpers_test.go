package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/stretchr/testify/require"
)

const testServerName = "hearth.local"

// newTestServer starts a homeserver on a fresh database
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := DefaultConfig()
	config.ServerName = testServerName
	s := NewWithDB(config, db)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

// newSeededServer starts a homeserver holding the demo data
func newSeededServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, ts := newTestServer(t)
	require.NoError(t, s.Handlers().Seed())
	return s, ts
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path string, body, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// login returns a client authenticated as localpart
func login(t *testing.T, ts *httptest.Server, localpart string) *apiClient {
	t.Helper()
	c := &apiClient{t: t, base: ts.URL}
	var resp protocol.LoginResponse
	status := c.do(http.MethodPost, "/api/login", protocol.LoginRequest{User: localpart, Password: SeedPassword}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.AccessToken)
	c.token = resp.AccessToken
	return c
}

// roomNamed finds a joined or invited room by name
func roomNamed(t *testing.T, c *apiClient, name string) string {
	t.Helper()
	var sync protocol.SyncResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/sync", nil, &sync))
	ids := append([]string{}, sync.Rooms.Join...)
	for _, inv := range sync.Rooms.Invite {
		ids = append(ids, inv.RoomID)
	}
	for _, id := range ids {
		var n protocol.RoomNameResponse
		if c.do(http.MethodGet, "/api/rooms/"+id+"/name", nil, &n) == http.StatusOK && n.Name == name {
			return id
		}
	}
	t.Fatalf("room %q not found", name)
	return ""
}
