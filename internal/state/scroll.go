// Package state holds the in-memory model behind the chat client: the room
// directory, per-room timelines and rosters, the tab cursor, and the
// reconciler that applies protocol events and keyboard commands to them.
package state

import "slices"

// Scrollable is an ordered list with an optional selected index.
// When a selection is present it is always a valid index; an empty list
// never has a selection.
type Scrollable[T any] struct {
	items    []T
	selected int
	hasSel   bool
}

// NewScrollable creates a list holding items, with nothing selected
func NewScrollable[T any](items ...T) *Scrollable[T] {
	return &Scrollable[T]{items: items}
}

// Len returns the number of items
func (s *Scrollable[T]) Len() int {
	return len(s.items)
}

// Items returns the items in order. Callers must not modify the slice.
func (s *Scrollable[T]) Items() []T {
	return s.items
}

// At returns the item at index i
func (s *Scrollable[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(s.items) {
		return zero, false
	}
	return s.items[i], true
}

// Selected returns the selected index, if any
func (s *Scrollable[T]) Selected() (int, bool) {
	return s.selected, s.hasSel
}

// SelectedItem returns the selected item, if any
func (s *Scrollable[T]) SelectedItem() (T, bool) {
	var zero T
	if !s.hasSel {
		return zero, false
	}
	return s.items[s.selected], true
}

// Select selects index i. Out of range indices are ignored.
func (s *Scrollable[T]) Select(i int) {
	if i < 0 || i >= len(s.items) {
		return
	}
	s.selected = i
	s.hasSel = true
}

// Deselect clears the selection
func (s *Scrollable[T]) Deselect() {
	s.selected = 0
	s.hasSel = false
}

// Next moves the selection one step forward, stopping at the last item
func (s *Scrollable[T]) Next() {
	if len(s.items) == 0 {
		return
	}
	if !s.hasSel {
		s.Select(0)
		return
	}
	s.Select(min(s.selected+1, len(s.items)-1))
}

// Previous moves the selection one step back, stopping at the first item
func (s *Scrollable[T]) Previous() {
	if len(s.items) == 0 {
		return
	}
	if !s.hasSel {
		s.Select(0)
		return
	}
	s.Select(max(s.selected-1, 0))
}

func (s *Scrollable[T]) push(item T) {
	s.items = append(s.items, item)
}

func (s *Scrollable[T]) selectLast() {
	s.Select(len(s.items) - 1)
}

// removeAt deletes the item at index i and keeps the selection pointing at
// the same item. It reports whether the removed item was the selected one,
// in which case the selection is cleared.
func (s *Scrollable[T]) removeAt(i int) (wasSelected bool) {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)

	if !s.hasSel {
		return false
	}
	switch {
	case s.selected == i:
		s.Deselect()
		return true
	case s.selected > i:
		s.selected--
	}
	return false
}

// indexFunc returns the index of the first item matching fn, or -1
func (s *Scrollable[T]) indexFunc(fn func(T) bool) int {
	for i, item := range s.items {
		if fn(item) {
			return i
		}
	}
	return -1
}
