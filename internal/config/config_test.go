package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
homeserver = "http://localhost:8008"
username = "alice"
backfill_limit = 25

[invites]
auto_accept = false
max_wait = "10m"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8008", cfg.Homeserver)
	require.Equal(t, "alice", cfg.Username)
	require.Equal(t, 25, cfg.BackfillLimit)
	require.False(t, cfg.Invites.AutoAccept)
	require.Equal(t, 10*time.Minute, cfg.Invites.MaxWait.Duration)
	// Unset keys keep their defaults
	require.Equal(t, "dracula", cfg.Theme)
	require.True(t, cfg.Notifications)
	require.Equal(t, 2*time.Second, cfg.Invites.InitialDelay.Duration)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "homeserver = "},
		{"bad duration", "[invites]\ninitial_delay = \"soon\"\n"},
		{"negative backfill", "backfill_limit = -1\n"},
		{"wrong type", "notifications = \"yes\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}

func TestFindOrder(t *testing.T) {
	work := t.TempDir()
	xdg := t.TempDir()
	t.Chdir(work)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	require.Equal(t, "", Find())

	xdgPath := filepath.Join(xdg, "hearth", "config.toml")
	require.NoError(t, Save(xdgPath, Default()))
	require.Equal(t, xdgPath, Find())

	require.NoError(t, os.WriteFile(LocalFilename, []byte("username = \"local\"\n"), 0o644))
	require.Equal(t, LocalFilename, Find())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Username)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Username = "bob"
	cfg.Invites.MaxWait = Duration{30 * time.Minute}

	require.NoError(t, Save(path, cfg))
	require.True(t, Exists(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
