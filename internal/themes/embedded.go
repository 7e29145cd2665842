package themes

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultName is the theme used when none is configured
const DefaultName = "dracula"

//go:embed themes/*.toml
var embeddedThemes embed.FS

// userThemesDir returns the directory holding user themes, or "" when the
// config directory cannot be determined
func userThemesDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hearth", "themes")
}

// GetTheme loads a theme by name. A name ending in .toml is read as a file
// path. Otherwise the lookup order is:
//  1. <user config dir>/hearth/themes/<name>.toml  (user override)
//  2. Embedded themes/<name>.toml                   (bundled)
//  3. GetDefaultTheme()                             (hardcoded Dracula fallback)
func GetTheme(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	if strings.HasSuffix(name, ".toml") {
		return LoadTheme(name)
	}

	// 1. Try user override directory
	if dir := userThemesDir(); dir != "" {
		if t, err := LoadTheme(filepath.Join(dir, name+".toml")); err == nil {
			return t, nil
		}
	}

	// 2. Try embedded themes
	data, err := embeddedThemes.ReadFile("themes/" + name + ".toml")
	if err == nil {
		var t Theme
		if err := toml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse embedded theme %q: %w", name, err)
		}
		return &t, nil
	}

	// 3. Fallback to hardcoded Dracula
	if name != DefaultName {
		return nil, fmt.Errorf("theme %q not found", name)
	}
	return GetDefaultTheme(), nil
}

// ListAvailableThemes returns theme names from embedded themes plus any user themes.
// The returned names can be passed directly to GetTheme().
func ListAvailableThemes() []string {
	seen := make(map[string]bool)
	var names []string

	collect := func(entries []fs.DirEntry) {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".toml")
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	// Embedded names first (deterministic order)
	entries, _ := fs.ReadDir(embeddedThemes, "themes")
	collect(entries)

	if dir := userThemesDir(); dir != "" {
		userEntries, _ := os.ReadDir(dir)
		collect(userEntries)
	}

	return names
}

// GetThemeDisplayName returns the human-readable name for a theme slug.
// If the theme can be loaded its Meta.Name is used; otherwise the slug is returned.
func GetThemeDisplayName(slug string) string {
	t, err := GetTheme(slug)
	if err == nil && t.Meta.Name != "" {
		return t.Meta.Name
	}
	return slug
}
