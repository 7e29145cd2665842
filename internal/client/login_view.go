package client

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hearth-chat/hearth/internal/themes"
)

// ErrLoginCancelled is returned when the user leaves the login prompt
var ErrLoginCancelled = errors.New("login cancelled")

// LoginForm prompts for the credentials that were not given on the
// command line
type LoginForm struct {
	homeserver string
	theme      *themes.Theme
	width      int
	height     int

	username  textinput.Model
	password  textinput.Model
	focus     int
	err       string
	done      bool
	cancelled bool
}

// NewLoginForm creates a login prompt. A non-empty username is prefilled
// and focus starts on the password.
func NewLoginForm(homeserver, username string, theme *themes.Theme) *LoginForm {
	if theme == nil {
		theme = themes.GetDefaultTheme()
	}
	f := &LoginForm{homeserver: homeserver, theme: theme}

	f.username = textinput.New()
	f.username.Placeholder = "alice"
	f.username.CharLimit = 255
	f.username.SetValue(username)

	f.password = textinput.New()
	f.password.Placeholder = "password"
	f.password.EchoMode = textinput.EchoPassword
	f.password.EchoCharacter = '•'

	if username == "" {
		f.username.Focus()
	} else {
		f.focus = 1
		f.password.Focus()
	}
	return f
}

// Credentials returns the entered username and password
func (f *LoginForm) Credentials() (string, string) {
	return strings.TrimSpace(f.username.Value()), f.password.Value()
}

// Cancelled reports whether the user left without submitting
func (f *LoginForm) Cancelled() bool {
	return f.cancelled
}

// Init starts the cursor blink
func (f *LoginForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (f *LoginForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.height = msg.Height
		return f, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			f.cancelled = true
			return f, tea.Quit
		case "tab", "shift+tab":
			f.cycleFocus()
			return f, nil
		case "enter":
			if f.focus == 0 {
				f.cycleFocus()
				return f, nil
			}
			return f, f.submit()
		}
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f *LoginForm) cycleFocus() {
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.password.Blur()
		f.username.Focus()
	} else {
		f.username.Blur()
		f.password.Focus()
	}
}

func (f *LoginForm) submit() tea.Cmd {
	username, password := f.Credentials()
	if username == "" {
		f.err = "Username is required"
		return nil
	}
	if password == "" {
		f.err = "Password is required"
		return nil
	}
	f.err = ""
	f.done = true
	return tea.Quit
}

// View renders the login dialog
func (f *LoginForm) View() string {
	if f.done || f.cancelled {
		return ""
	}
	dialogWidth := 56

	var content strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Colors.Purple)).
		Bold(true).
		Align(lipgloss.Center).
		Width(dialogWidth - 4)
	content.WriteString(titleStyle.Render("Sign in to " + f.homeserver))
	content.WriteString("\n\n")

	if f.err != "" {
		errStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(f.theme.Colors.Red)).
			Width(dialogWidth - 4).
			Align(lipgloss.Center)
		content.WriteString(errStyle.Render(f.err))
		content.WriteString("\n\n")
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Colors.Purple)).
		Bold(true)
	fieldStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Width(dialogWidth - 6)

	content.WriteString(labelStyle.Render("Username:"))
	content.WriteString("\n")
	content.WriteString(fieldStyle.Render(f.username.View()))
	content.WriteString("\n\n")
	content.WriteString(labelStyle.Render("Password:"))
	content.WriteString("\n")
	content.WriteString(fieldStyle.Render(f.password.View()))
	content.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(f.theme.Colors.Comment)).
		Italic(true).
		Width(dialogWidth - 4).
		Align(lipgloss.Center)
	content.WriteString(helpStyle.Render("[Tab] Next  [Enter] Sign in  [Esc] Quit"))

	dialog := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(f.theme.Colors.Purple)).
		Padding(1, 2).
		Width(dialogWidth).
		Render(content.String())

	if f.width == 0 || f.height == 0 {
		return dialog
	}
	return lipgloss.Place(f.width, f.height, lipgloss.Center, lipgloss.Center, dialog)
}

// PromptCredentials runs the login prompt in the terminal
func PromptCredentials(homeserver, username string, theme *themes.Theme) (string, string, error) {
	form := NewLoginForm(homeserver, username, theme)
	if _, err := tea.NewProgram(form, tea.WithAltScreen()).Run(); err != nil {
		return "", "", err
	}
	if form.Cancelled() {
		return "", "", ErrLoginCancelled
	}
	user, password := form.Credentials()
	return user, password, nil
}
