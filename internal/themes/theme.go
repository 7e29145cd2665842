package themes

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// Theme represents a complete color theme for Hearth
type Theme struct {
	Meta     ThemeMeta      `toml:"meta"`
	Colors   ThemeColors    `toml:"colors"`
	Semantic SemanticColors `toml:"semantic"`
}

// ThemeMeta contains metadata about the theme
type ThemeMeta struct {
	Name    string `toml:"name"`
	Author  string `toml:"author"`
	Variant string `toml:"variant"` // "dark" or "light"
}

// ThemeColors contains the base color palette
type ThemeColors struct {
	Background string `toml:"background"`
	Selection  string `toml:"selection"`
	Foreground string `toml:"foreground"`
	Comment    string `toml:"comment"`
	Red        string `toml:"red"`
	Orange     string `toml:"orange"`
	Yellow     string `toml:"yellow"`
	Green      string `toml:"green"`
	Cyan       string `toml:"cyan"`
	Purple     string `toml:"purple"`
	Pink       string `toml:"pink"`
}

// SemanticColors maps colors to specific UI purposes
type SemanticColors struct {
	PaneBorder       string `toml:"pane_border"`
	PaneBorderActive string `toml:"pane_border_active"`
	PaneTitle        string `toml:"pane_title"`

	ListFg         string `toml:"list_fg"`
	ListSelectedBg string `toml:"list_selected_bg"`
	ListSelectedFg string `toml:"list_selected_fg"`

	Timestamp   string `toml:"timestamp"`
	SenderSelf  string `toml:"sender_self"`
	SenderOther string `toml:"sender_other"`
	MessageFg   string `toml:"message_fg"`

	InputFg string `toml:"input_fg"`

	StatusBg   string `toml:"status_bg"`
	StatusFg   string `toml:"status_fg"`
	ModeFollow string `toml:"mode_follow"`
	ModeScroll string `toml:"mode_scroll"`

	Help  string `toml:"help"`
	Error string `toml:"error"`
}

// Styles contains pre-computed lipgloss styles for the theme
type Styles struct {
	// Panes
	Pane        lipgloss.Style
	PaneActive  lipgloss.Style
	Title       lipgloss.Style
	TitleActive lipgloss.Style

	// Lists
	Item     lipgloss.Style
	Selected lipgloss.Style

	// Messages
	Timestamp   lipgloss.Style
	SenderSelf  lipgloss.Style
	SenderOther lipgloss.Style
	Body        lipgloss.Style

	Input lipgloss.Style

	// Status line
	StatusBar  lipgloss.Style
	ModeFollow lipgloss.Style
	ModeScroll lipgloss.Style

	Help  lipgloss.Style
	Error lipgloss.Style
}

// LoadTheme loads a theme from a TOML file
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme Theme
	if err := toml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}

	return &theme, nil
}

// BuildStyles creates lipgloss styles from a theme
func (t *Theme) BuildStyles() *Styles {
	s := &Styles{}

	s.Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Semantic.PaneBorder))

	s.PaneActive = s.Pane.
		BorderForeground(lipgloss.Color(t.Semantic.PaneBorderActive))

	s.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.PaneTitle))

	s.TitleActive = s.Title.
		Foreground(lipgloss.Color(t.Semantic.PaneBorderActive)).
		Bold(true)

	s.Item = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.ListFg))

	s.Selected = lipgloss.NewStyle().
		Background(lipgloss.Color(t.Semantic.ListSelectedBg)).
		Foreground(lipgloss.Color(t.Semantic.ListSelectedFg)).
		Bold(true)

	s.Timestamp = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.Timestamp)).
		Faint(true)

	s.SenderSelf = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.SenderSelf)).
		Bold(true)

	s.SenderOther = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.SenderOther)).
		Bold(true)

	s.Body = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.MessageFg))

	s.Input = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.InputFg))

	s.StatusBar = lipgloss.NewStyle().
		Background(lipgloss.Color(t.Semantic.StatusBg)).
		Foreground(lipgloss.Color(t.Semantic.StatusFg)).
		Padding(0, 1)

	s.ModeFollow = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.ModeFollow)).
		Bold(true)

	s.ModeScroll = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.ModeScroll)).
		Bold(true)

	s.Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.Help))

	s.Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Semantic.Error))

	return s
}

// GetDefaultTheme returns the default Dracula theme
func GetDefaultTheme() *Theme {
	return &Theme{
		Meta: ThemeMeta{
			Name:    "Dracula",
			Author:  "Zeno Rocha",
			Variant: "dark",
		},
		Colors: ThemeColors{
			Background: "#282A36",
			Selection:  "#44475A",
			Foreground: "#F8F8F2",
			Comment:    "#6272A4",
			Red:        "#FF5555",
			Orange:     "#FFB86C",
			Yellow:     "#F1FA8C",
			Green:      "#50FA7B",
			Cyan:       "#8BE9FD",
			Purple:     "#BD93F9",
			Pink:       "#FF79C6",
		},
		Semantic: SemanticColors{
			PaneBorder:       "#6272A4",
			PaneBorderActive: "#BD93F9",
			PaneTitle:        "#F8F8F2",
			ListFg:           "#F8F8F2",
			ListSelectedBg:   "#44475A",
			ListSelectedFg:   "#F8F8F2",
			Timestamp:        "#6272A4",
			SenderSelf:       "#BD93F9",
			SenderOther:      "#8BE9FD",
			MessageFg:        "#F8F8F2",
			InputFg:          "#F8F8F2",
			StatusBg:         "#44475A",
			StatusFg:         "#F8F8F2",
			ModeFollow:       "#50FA7B",
			ModeScroll:       "#FFB86C",
			Help:             "#6272A4",
			Error:            "#FF5555",
		},
	}
}
