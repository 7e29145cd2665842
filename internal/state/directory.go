package state

import "context"

// Directory is the list of joined rooms. Room IDs are unique.
type Directory struct {
	Scrollable[*RoomEntry]
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{}
}

// Add appends entry unless a room with the same ID is present. It reports
// whether the entry was added.
func (d *Directory) Add(entry *RoomEntry) bool {
	if entry == nil || d.FindByID(entry.ID) != nil {
		return false
	}
	d.push(entry)
	return true
}

// AddRoom builds an entry from src and adds it
func (d *Directory) AddRoom(ctx context.Context, src RoomSource, conv Converter) bool {
	if d.FindByID(src.ID()) != nil {
		return false
	}
	return d.Add(NewRoomEntry(ctx, src, conv))
}

// FindByID returns the room with id, or nil
func (d *Directory) FindByID(id string) *RoomEntry {
	if i := d.index(id); i >= 0 {
		return d.items[i]
	}
	return nil
}

// RemoveByID removes the room with id. wasSelected reports whether it was
// the selected room, in which case nothing is selected afterwards.
func (d *Directory) RemoveByID(id string) (removed, wasSelected bool) {
	i := d.index(id)
	if i < 0 {
		return false, false
	}
	return true, d.removeAt(i)
}

// Current returns the selected room, or nil
func (d *Directory) Current() *RoomEntry {
	entry, ok := d.SelectedItem()
	if !ok {
		return nil
	}
	return entry
}

func (d *Directory) index(id string) int {
	return d.indexFunc(func(e *RoomEntry) bool { return e.ID == id })
}
