package state

import "github.com/hearth-chat/hearth/internal/models"

// ViewMode controls whether a timeline follows new messages
type ViewMode int

const (
	// Follow keeps the newest message selected as messages arrive
	Follow ViewMode = iota
	// Scroll pins the user's selection until they return to the bottom
	Scroll
)

// String returns a human-readable name for the mode
func (m ViewMode) String() string {
	switch m {
	case Follow:
		return "Follow"
	case Scroll:
		return "Scroll"
	default:
		return "Unknown"
	}
}

// Timeline is a room's message list with follow/scroll behaviour
type Timeline struct {
	Scrollable[models.Message]
	mode ViewMode
}

// NewTimeline creates a timeline holding msgs in chronological order.
// It starts in Follow mode with the newest message selected.
func NewTimeline(msgs ...models.Message) *Timeline {
	t := &Timeline{mode: Follow}
	for _, m := range msgs {
		t.push(m)
	}
	if t.Len() > 0 {
		t.selectLast()
	}
	return t
}

// Mode returns the current view mode
func (t *Timeline) Mode() ViewMode {
	return t.mode
}

// Append adds a message at the end. In Follow mode the new message becomes
// the selection; in Scroll mode the selection does not move.
func (t *Timeline) Append(timestamp, sender, body string) {
	t.AppendMessage(models.NewMessage(timestamp, sender, body))
}

// AppendMessage is Append for an already built message
func (t *Timeline) AppendMessage(m models.Message) {
	t.push(m)
	if t.mode == Follow {
		t.selectLast()
	}
}

// Next moves toward newer messages. Landing on the newest message switches
// back to Follow mode.
func (t *Timeline) Next() {
	if t.Len() == 0 {
		return
	}
	t.Scrollable.Next()
	if i, _ := t.Selected(); i == t.Len()-1 {
		t.mode = Follow
	}
}

// Previous moves toward older messages and always switches to Scroll mode,
// including when the selection is already at the oldest message.
func (t *Timeline) Previous() {
	if t.Len() == 0 {
		return
	}
	t.Scrollable.Previous()
	t.mode = Scroll
}
