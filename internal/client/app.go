package client

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/state"
	"github.com/hearth-chat/hearth/internal/themes"
)

const (
	// TickInterval is how often the home loop drains the event queues
	TickInterval = 10 * time.Millisecond

	// DefaultActionTimeout bounds a single send or kick request
	DefaultActionTimeout = 10 * time.Second
)

// drainMsg triggers one pass over the event queues
type drainMsg time.Time

func drainTick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return drainMsg(t)
	})
}

// App is the home loop. It owns the Reconciler: background tasks only reach
// it through the queues, which are drained once per tick.
type App struct {
	ctx           context.Context
	rec           *state.Reconciler
	queues        state.Queues
	actionTimeout time.Duration

	// Window dimensions
	width  int
	height int

	// Theme
	theme  *themes.Theme
	styles *themes.Styles

	keys     keyMap
	help     help.Model
	messages viewport.Model

	// Status line feedback, cleared on the next key press
	status      string
	statusError bool
}

// NewApp creates the home loop model. ctx bounds every action the model
// issues on the user's behalf.
func NewApp(ctx context.Context, rec *state.Reconciler, q state.Queues, theme *themes.Theme) *App {
	if theme == nil {
		theme = themes.GetDefaultTheme()
	}
	a := &App{
		ctx:           ctx,
		rec:           rec,
		queues:        q,
		actionTimeout: DefaultActionTimeout,
		keys:          defaultKeyMap(),
		help:          help.New(),
		messages:      viewport.New(0, 0),
	}
	a.SetTheme(theme)
	return a
}

// SetTheme applies a theme to the model
func (a *App) SetTheme(theme *themes.Theme) {
	a.theme = theme
	a.styles = theme.BuildStyles()
	a.help.Styles.ShortKey = a.styles.Help.Bold(true)
	a.help.Styles.ShortDesc = a.styles.Help
	a.help.Styles.ShortSeparator = a.styles.Help
}

// Reconciler returns the state the model renders
func (a *App) Reconciler() *state.Reconciler {
	return a.rec
}

// Init starts the drain ticker
func (a *App) Init() tea.Cmd {
	return drainTick()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drainMsg:
		for _, ev := range a.queues.Drain() {
			a.rec.Handle(ev)
		}
		a.refresh()
		return a, drainTick()

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.refresh()
		return a, nil

	case tea.KeyMsg:
		cmd := a.handleKeyPress(msg)
		a.refresh()
		return a, cmd
	}

	return a, nil
}

// handleKeyPress routes a key press according to the active tab
func (a *App) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	a.status = ""
	a.statusError = false
	tab := a.rec.Tab()

	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.NextTab):
		a.rec.NextTab()
		return nil
	case key.Matches(msg, a.keys.Up):
		a.rec.Previous()
		return nil
	case key.Matches(msg, a.keys.Down):
		a.rec.Next()
		return nil
	}

	if tab == state.TabInput {
		switch {
		case key.Matches(msg, a.keys.Submit):
			ctx, cancel := context.WithTimeout(a.ctx, a.actionTimeout)
			defer cancel()
			a.rec.SubmitInput(ctx)
		case key.Matches(msg, a.keys.Backspace):
			a.rec.Backspace()
		case msg.Type == tea.KeySpace:
			a.rec.InsertRune(' ')
		case msg.Type == tea.KeyRunes:
			for _, r := range msg.Runes {
				a.rec.InsertRune(r)
			}
		}
		return nil
	}

	switch {
	case key.Matches(msg, a.keys.QuitQ):
		return tea.Quit
	case tab == state.TabMembers && key.Matches(msg, a.keys.Kick):
		ctx, cancel := context.WithTimeout(a.ctx, a.actionTimeout)
		defer cancel()
		a.rec.KickSelected(ctx)
	case tab == state.TabMessages && key.Matches(msg, a.keys.Copy):
		a.copySelected()
	}
	return nil
}

// copySelected puts the selected message body on the clipboard
func (a *App) copySelected() {
	room := a.rec.CurrentRoom()
	if room == nil {
		return
	}
	m, ok := room.Messages.SelectedItem()
	if !ok {
		return
	}
	if err := copyToClipboard(m.Body); err != nil {
		logger.Warn("clipboard copy failed: %v", err)
		a.status = "Copy failed"
		a.statusError = true
		return
	}
	a.status = "Copied message"
}

// View renders the current state
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}
	return a.renderMainView()
}
