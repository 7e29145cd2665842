package state

import "testing"

func TestScrollableNavigation(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		steps string // n = Next, p = Previous
		want  int
		ok    bool
	}{
		{"empty next", nil, "n", 0, false},
		{"empty previous", nil, "p", 0, false},
		{"unset next selects first", []string{"a", "b"}, "n", 0, true},
		{"unset previous selects first", []string{"a", "b"}, "p", 0, true},
		{"next stops at last", []string{"a", "b", "c"}, "nnnnnn", 2, true},
		{"previous stops at first", []string{"a", "b", "c"}, "nnnpppp", 0, true},
		{"mixed", []string{"a", "b", "c"}, "nnnp", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScrollable(tt.items...)
			for _, step := range tt.steps {
				if step == 'n' {
					s.Next()
				} else {
					s.Previous()
				}
			}
			got, ok := s.Selected()
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("Selected() = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestScrollableNextIdempotentAtEnd(t *testing.T) {
	s := NewScrollable(1, 2, 3, 4)
	s.Select(3)
	for range 5 {
		s.Next()
		if i, _ := s.Selected(); i != 3 {
			t.Fatalf("Selected() = %d after Next at end, want 3", i)
		}
	}
}

func TestScrollableSelectOutOfRange(t *testing.T) {
	s := NewScrollable("a")
	s.Select(5)
	if _, ok := s.Selected(); ok {
		t.Fatal("out of range Select should be ignored")
	}
	s.Select(0)
	s.Select(-1)
	if i, ok := s.Selected(); !ok || i != 0 {
		t.Fatalf("Selected() = %d, %v; want 0, true", i, ok)
	}
	s.Deselect()
	if _, ok := s.SelectedItem(); ok {
		t.Fatal("Deselect left a selection")
	}
}

func TestScrollableRemoveAt(t *testing.T) {
	tests := []struct {
		name        string
		selected    int
		remove      int
		wantSel     string
		wantHas     bool
		wasSelected bool
	}{
		{"remove selected", 1, 1, "", false, true},
		{"remove before selection", 2, 0, "c", true, false},
		{"remove after selection", 0, 2, "a", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScrollable("a", "b", "c")
			s.Select(tt.selected)
			if got := s.removeAt(tt.remove); got != tt.wasSelected {
				t.Errorf("removeAt() = %v, want %v", got, tt.wasSelected)
			}
			item, ok := s.SelectedItem()
			if ok != tt.wantHas || item != tt.wantSel {
				t.Errorf("SelectedItem() = %q, %v; want %q, %v", item, ok, tt.wantSel, tt.wantHas)
			}
			if s.Len() != 2 {
				t.Errorf("Len() = %d, want 2", s.Len())
			}
		})
	}
}
