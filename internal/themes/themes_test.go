package themes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedThemesParse(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	names := ListAvailableThemes()
	require.Contains(t, names, "dracula")
	require.Contains(t, names, "nord")

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			theme, err := GetTheme(name)
			require.NoError(t, err)
			require.NotEmpty(t, theme.Meta.Name)
			require.NotEmpty(t, theme.Semantic.PaneBorderActive)
			require.NotNil(t, theme.BuildStyles())
		})
	}
}

func TestGetThemeDefaultsAndErrors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	theme, err := GetTheme("")
	require.NoError(t, err)
	require.Equal(t, "Dracula", theme.Meta.Name)
	require.Equal(t, GetDefaultTheme().Semantic, theme.Semantic)

	_, err = GetTheme("no-such-theme")
	require.Error(t, err)
	require.Equal(t, "no-such-theme", GetThemeDisplayName("no-such-theme"))
	require.Equal(t, "Nord", GetThemeDisplayName("nord"))
}

func TestUserThemeOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := os.UserConfigDir()
	require.NoError(t, err)

	dir := filepath.Join(cfg, "hearth", "themes")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	custom := "[meta]\nname = \"Mine\"\n\n[semantic]\npane_border = \"#000000\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nord.toml"), []byte(custom), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.toml"), []byte(custom), 0o644))

	theme, err := GetTheme("nord")
	require.NoError(t, err)
	require.Equal(t, "Mine", theme.Meta.Name)

	names := ListAvailableThemes()
	require.Contains(t, names, "mine")
	count := 0
	for _, n := range names {
		if n == "nord" {
			count++
		}
	}
	require.Equal(t, 1, count)

	byPath, err := GetTheme(filepath.Join(dir, "mine.toml"))
	require.NoError(t, err)
	require.Equal(t, "#000000", byPath.Semantic.PaneBorder)
}
