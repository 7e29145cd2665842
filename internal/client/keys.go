package client

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/hearth-chat/hearth/internal/state"
)

// keyMap holds the client's key bindings. Which of them are live depends on
// the active tab.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextTab   key.Binding
	Submit    key.Binding
	Backspace key.Binding
	Quit      key.Binding
	QuitQ     key.Binding
	Kick      key.Binding
	Copy      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Backspace: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "delete")),
		Quit:      key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		QuitQ:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Kick:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "kick")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	}
}

// helpFor returns the bindings shown in the help line for tab
func (k keyMap) helpFor(tab state.Tab) []key.Binding {
	switch tab {
	case state.TabInput:
		return []key.Binding{k.Submit, k.Backspace, k.NextTab, k.Quit}
	case state.TabMessages:
		return []key.Binding{k.Up, k.Down, k.Copy, k.NextTab, k.QuitQ}
	case state.TabMembers:
		return []key.Binding{k.Up, k.Down, k.Kick, k.NextTab, k.QuitQ}
	default:
		return []key.Binding{k.Up, k.Down, k.NextTab, k.QuitQ}
	}
}
