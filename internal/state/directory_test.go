package state

import (
	"context"
	"testing"
)

func TestDirectoryAddRejectsDuplicates(t *testing.T) {
	d := NewDirectory()
	if !d.Add(NewEmptyRoomEntry("!a:x", "A")) {
		t.Fatal("first Add failed")
	}
	if d.Add(NewEmptyRoomEntry("!a:x", "A again")) {
		t.Fatal("duplicate Add succeeded")
	}
	if d.Add(nil) {
		t.Fatal("nil Add succeeded")
	}
	if d.Len() != 1 || d.FindByID("!a:x").Name != "A" {
		t.Fatalf("directory = %d rooms", d.Len())
	}
}

func TestDirectoryAddRoom(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()
	src := &fakeRoom{id: "!a:x", name: "A"}

	if !d.AddRoom(ctx, src, testConverter()) {
		t.Fatal("AddRoom failed")
	}
	if d.AddRoom(ctx, src, testConverter()) {
		t.Fatal("AddRoom accepted a duplicate")
	}
	if d.FindByID("!missing:x") != nil {
		t.Fatal("FindByID found a missing room")
	}
}

func TestDirectoryRemoveByID(t *testing.T) {
	tests := []struct {
		name        string
		sel         int
		remove      string
		removed     bool
		wasSelected bool
		current     string
	}{
		{"selected room", 0, "!a:x", true, true, ""},
		{"room before selection", 2, "!b:x", true, false, "!c:x"},
		{"room after selection", 0, "!c:x", true, false, "!a:x"},
		{"missing room", 1, "!z:x", false, false, "!b:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirectory()
			d.Add(NewEmptyRoomEntry("!a:x", "A"))
			d.Add(NewEmptyRoomEntry("!b:x", "B"))
			d.Add(NewEmptyRoomEntry("!c:x", "C"))
			d.Select(tt.sel)

			removed, wasSelected := d.RemoveByID(tt.remove)
			if removed != tt.removed || wasSelected != tt.wasSelected {
				t.Fatalf("RemoveByID() = %v, %v; want %v, %v", removed, wasSelected, tt.removed, tt.wasSelected)
			}
			cur := d.Current()
			switch {
			case tt.current == "" && cur != nil:
				t.Fatalf("Current() = %s, want nil", cur.ID)
			case tt.current != "" && (cur == nil || cur.ID != tt.current):
				t.Fatalf("Current() = %v, want %s", cur, tt.current)
			}
		})
	}
}
