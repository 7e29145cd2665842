package client

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hearth-chat/hearth/internal/state"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	inputHeight   = 3
	minPaneWidth  = 14
	maxRoomsWidth = 32
	minChatWidth  = 24
	selectMarker  = "> "
)

const welcomeText = `Welcome to Hearth

Use the arrow keys to pick a room in the Rooms pane.
Press Tab to cycle between Rooms, Messages, Input and Members.
In Input, type a message and press Enter to send it.
Press Esc or Ctrl+C to quit.`

// paneLayout holds the outer dimensions of every pane
type paneLayout struct {
	rooms, chat, members int
	body, messages       int
}

func (a *App) layout() paneLayout {
	l := paneLayout{body: a.height - 2}
	l.rooms = clamp(a.width*15/100, minPaneWidth, maxRoomsWidth)
	l.members = clamp(a.width*15/100, minPaneWidth, maxRoomsWidth)
	l.chat = a.width - l.rooms - l.members
	if l.chat < minChatWidth {
		l.members = 0
		l.chat = a.width - l.rooms
	}
	l.messages = l.body - inputHeight
	return l
}

// refresh resizes the message viewport and keeps the selected message in
// view, or the newest one while following.
func (a *App) refresh() {
	if a.width == 0 || a.height == 0 {
		return
	}
	l := a.layout()
	a.messages.Width = max(l.chat-2, 1)
	a.messages.Height = max(l.messages-3, 1)

	room := a.rec.CurrentRoom()
	if room == nil {
		a.messages.SetContent(welcomeText)
		a.messages.GotoTop()
		return
	}

	content, start, end := a.renderTimeline(room, a.messages.Width)
	a.messages.SetContent(content)
	if room.Messages.Mode() == state.Follow {
		a.messages.GotoBottom()
		return
	}
	if start < a.messages.YOffset {
		a.messages.SetYOffset(start)
	} else if end > a.messages.YOffset+a.messages.Height {
		a.messages.SetYOffset(end - a.messages.Height)
	}
}

// renderTimeline renders every message of room wrapped to width. It also
// returns the line span [start, end) of the selected message.
func (a *App) renderTimeline(room *state.RoomEntry, width int) (string, int, int) {
	selected, hasSelection := room.Messages.Selected()
	var blocks []string
	line, start, end := 0, 0, 0

	for i, m := range room.Messages.Items() {
		var block string
		if hasSelection && i == selected {
			plain := wrapText(m.Timestamp+" "+m.Sender+": "+m.Body, width)
			block = a.styles.Selected.Width(width).Render(plain)
		} else {
			sender := a.styles.SenderOther
			if m.Sender == a.rec.Self() {
				sender = a.styles.SenderSelf
			}
			block = wrapText(
				a.styles.Timestamp.Render(m.Timestamp)+" "+
					sender.Render(m.Sender)+": "+
					a.styles.Body.Render(m.Body), width)
		}

		height := strings.Count(block, "\n") + 1
		if hasSelection && i == selected {
			start, end = line, line+height
		}
		line += height
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n"), start, end
}

func wrapText(s string, width int) string {
	return wrap.String(wordwrap.String(s, width), width)
}

// renderMainView renders the full screen layout
func (a *App) renderMainView() string {
	l := a.layout()
	tab := a.rec.Tab()

	columns := []string{
		a.renderRooms(l.rooms, l.body, tab == state.TabRoom),
		lipgloss.JoinVertical(lipgloss.Left,
			a.renderMessages(l.chat, l.messages, tab == state.TabMessages),
			a.renderInput(l.chat, tab == state.TabInput),
		),
	}
	if l.members > 0 {
		columns = append(columns, a.renderMembers(l.members, l.body, tab == state.TabMembers))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
		a.renderStatusBar(),
		a.help.ShortHelpView(a.keys.helpFor(tab)),
	)
}

// pane draws a bordered box with a title line
func (a *App) pane(title, body string, width, height int, active bool) string {
	style, titleStyle := a.styles.Pane, a.styles.Title
	if active {
		style, titleStyle = a.styles.PaneActive, a.styles.TitleActive
	}
	inner := max(height-2, 1)
	return style.
		Width(max(width-2, 1)).
		Height(inner).
		MaxHeight(height).
		Render(titleStyle.Render(title) + "\n" + body)
}

func (a *App) renderRooms(width, height int, active bool) string {
	rooms := a.rec.Rooms()
	names := make([]string, 0, rooms.Len())
	for _, r := range rooms.Items() {
		names = append(names, r.Name)
	}
	selected, ok := rooms.Selected()
	body := a.renderList(names, selected, ok, width-2, height-3)
	return a.pane("Rooms", body, width, height, active)
}

func (a *App) renderMembers(width, height int, active bool) string {
	var names []string
	selected, ok := -1, false
	if room := a.rec.CurrentRoom(); room != nil {
		for _, m := range room.Members.Items() {
			names = append(names, m.DisplayName)
		}
		selected, ok = room.Members.Selected()
	}
	body := a.renderList(names, selected, ok, width-2, height-3)
	return a.pane("Members", body, width, height, active)
}

func (a *App) renderMessages(width, height int, active bool) string {
	title := "Messages"
	if room := a.rec.CurrentRoom(); room != nil {
		title = runewidth.Truncate(room.Name, max(width-4, 1), "…")
	}
	return a.pane(title, a.messages.View(), width, height, active)
}

func (a *App) renderInput(width int, active bool) string {
	inner := max(width-2, 1)
	text := a.rec.Input()
	if active {
		text += "▏"
	}
	text = tailFit(text, inner)
	style, border := a.styles.Input, a.styles.Pane
	if active {
		border = a.styles.PaneActive
	}
	return border.Width(inner).Render(style.Render(text))
}

// renderList renders names one per line, scrolled so the selected entry
// stays visible.
func (a *App) renderList(names []string, selected int, hasSelection bool, width, height int) string {
	if height < 1 || width < 1 {
		return ""
	}
	from, to := visibleWindow(len(names), selected, height)
	lines := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		if hasSelection && i == selected {
			name := runewidth.Truncate(selectMarker+names[i], width, "…")
			lines = append(lines, a.styles.Selected.Width(width).Render(name))
			continue
		}
		name := runewidth.Truncate(strings.Repeat(" ", len(selectMarker))+names[i], width, "…")
		lines = append(lines, a.styles.Item.Render(name))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderStatusBar() string {
	tab := a.rec.Tab()
	parts := []string{"● " + a.rec.Self(), tab.String()}

	if room := a.rec.CurrentRoom(); room != nil {
		mode := room.Messages.Mode()
		modeStyle := a.styles.ModeFollow
		if mode == state.Scroll {
			modeStyle = a.styles.ModeScroll
		}
		parts = append(parts, modeStyle.Render(mode.String()))
	}

	if a.status != "" {
		if a.statusError {
			parts = append(parts, a.styles.Error.Render(a.status))
		} else {
			parts = append(parts, a.status)
		}
	}

	return a.styles.StatusBar.Width(a.width).Render(strings.Join(parts, "  |  "))
}

// visibleWindow returns the [from, to) range of an n item list shown in
// height rows with selected kept in view.
func visibleWindow(n, selected, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	from := 0
	if selected >= height {
		from = selected - height + 1
	}
	return from, from + height
}

// tailFit trims s from the left until it fits in width cells
func tailFit(s string, width int) string {
	r := []rune(s)
	for len(r) > 0 && runewidth.StringWidth(string(r)) > width {
		r = r[1:]
	}
	return string(r)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
