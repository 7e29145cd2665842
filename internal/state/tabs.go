package state

// Tab is the pane that currently receives navigation keys
type Tab int

const (
	TabRoom Tab = iota
	TabMessages
	TabInput
	TabMembers
)

// String returns the tab's label
func (t Tab) String() string {
	switch t {
	case TabRoom:
		return "Rooms"
	case TabMessages:
		return "Messages"
	case TabInput:
		return "Input"
	case TabMembers:
		return "Members"
	default:
		return "Unknown"
	}
}

// next returns the tab that follows t. Leaving Messages without a selected
// room goes back to Room, since Input and Members need one.
func (t Tab) next(roomSelected bool) Tab {
	switch t {
	case TabRoom:
		return TabMessages
	case TabMessages:
		if roomSelected {
			return TabInput
		}
		return TabRoom
	case TabInput:
		return TabMembers
	default:
		return TabRoom
	}
}
