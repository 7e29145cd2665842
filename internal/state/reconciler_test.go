package state

import (
	"context"
	"errors"
	"testing"

	"github.com/hearth-chat/hearth/internal/models"
)

type harness struct {
	r        *Reconciler
	msgr     *fakeMessenger
	notifier *fakeNotifier
	loads    []string
	invites  []string
}

func newHarness(rooms ...*RoomEntry) *harness {
	h := &harness{msgr: &fakeMessenger{}, notifier: &fakeNotifier{}}
	dir := NewDirectory()
	for _, room := range rooms {
		dir.Add(room)
	}
	h.r = NewReconciler(self, dir, Deps{
		Messenger: h.msgr,
		Converter: testConverter(),
		Notifier:  h.notifier,
		Loader:    RoomLoaderFunc(func(id string) { h.loads = append(h.loads, id) }),
		Invites:   InviteAcceptorFunc(func(id string) { h.invites = append(h.invites, id) }),
	})
	return h
}

func roomWithMembers(id string, userIDs ...string) *RoomEntry {
	e := NewEmptyRoomEntry(id, id)
	for _, u := range userIDs {
		e.Members.Upsert("", u)
	}
	return e
}

func TestNextTabCycle(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	h.r.Rooms().Select(0)

	want := []Tab{TabMessages, TabInput, TabMembers, TabRoom}
	for i, w := range want {
		h.r.NextTab()
		if h.r.Tab() != w {
			t.Fatalf("step %d: Tab() = %v, want %v", i, h.r.Tab(), w)
		}
	}
}

func TestNextTabWithoutRoomReturnsToRoom(t *testing.T) {
	h := newHarness()
	h.r.NextTab()
	if h.r.Tab() != TabMessages {
		t.Fatalf("Tab() = %v, want Messages", h.r.Tab())
	}
	h.r.NextTab()
	if h.r.Tab() != TabRoom {
		t.Fatalf("Tab() = %v, want Room", h.r.Tab())
	}
}

func TestNextTabLeavingMembersDeselects(t *testing.T) {
	room := roomWithMembers("!a:x", "@b:x", "@c:x")
	h := newHarness(room)
	h.r.Rooms().Select(0)
	for range 3 {
		h.r.NextTab()
	}
	h.r.Next()
	if _, ok := room.Members.Selected(); !ok {
		t.Fatal("Next in Members did not select")
	}
	h.r.NextTab()
	if _, ok := room.Members.Selected(); ok {
		t.Fatal("leaving Members kept the member selection")
	}
}

func TestOnMessage(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	room := h.r.Rooms().FindByID("!a:x")

	h.r.Handle(textEvent("!a:x", "@bob:x", "hi", 100))
	h.r.Handle(textEvent("!a:x", self, "mine", 101))
	h.r.Handle(textEvent("!a:x", "@bob:x", "no time", 0))
	h.r.Handle(textEvent("!unknown:x", "@bob:x", "lost", 102))

	if got := bodies(room.Messages); !equal(got, []string{"hi", "mine"}) {
		t.Fatalf("messages = %v", got)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0] != (notification{"@bob:x", "hi"}) {
		t.Fatalf("notifications = %+v", h.notifier.sent)
	}
}

func TestOnMessageIgnoresNotifierError(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	h.notifier.err = errors.New("no dbus")
	h.r.OnMessage(textEvent("!a:x", "@bob:x", "hi", 100))
	if h.r.Rooms().FindByID("!a:x").Messages.Len() != 1 {
		t.Fatal("message dropped after notifier error")
	}
}

func TestOnMembership(t *testing.T) {
	tests := []struct {
		name        string
		ev          MembershipEvent
		wantRooms   []string
		wantMembers []string // members of !a:x
		wantLoads   []string
	}{
		{
			name:        "other joins known room",
			ev:          MembershipEvent{RoomID: "!a:x", Target: "@new:x", Membership: models.MembershipJoin},
			wantRooms:   []string{"!a:x"},
			wantMembers: []string{"@b:x", "@new:x"},
		},
		{
			name:        "existing member joins again",
			ev:          MembershipEvent{RoomID: "!a:x", Target: "@b:x", Membership: models.MembershipJoin},
			wantRooms:   []string{"!a:x"},
			wantMembers: []string{"@b:x"},
		},
		{
			name:        "self joins unknown room",
			ev:          MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipJoin},
			wantRooms:   []string{"!a:x"},
			wantMembers: []string{"@b:x"},
			wantLoads:   []string{"!n:x"},
		},
		{
			name:        "other joins unknown room",
			ev:          MembershipEvent{RoomID: "!n:x", Target: "@z:x", Membership: models.MembershipJoin},
			wantRooms:   []string{"!a:x"},
			wantMembers: []string{"@b:x"},
		},
		{
			name:        "other leaves",
			ev:          MembershipEvent{RoomID: "!a:x", Target: "@b:x", Membership: models.MembershipLeave},
			wantRooms:   []string{"!a:x"},
			wantMembers: nil,
		},
		{
			name:        "other banned",
			ev:          MembershipEvent{RoomID: "!a:x", Target: "@b:x", Membership: models.MembershipBan},
			wantRooms:   []string{"!a:x"},
			wantMembers: nil,
		},
		{
			name:      "self leaves",
			ev:        MembershipEvent{RoomID: "!a:x", Target: self, Membership: models.MembershipLeave},
			wantRooms: nil,
		},
		{
			name:        "invite membership ignored",
			ev:          MembershipEvent{RoomID: "!a:x", Target: "@i:x", Membership: models.MembershipInvite},
			wantRooms:   []string{"!a:x"},
			wantMembers: []string{"@b:x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(roomWithMembers("!a:x", "@b:x"))
			h.r.Handle(tt.ev)

			var rooms []string
			for _, e := range h.r.Rooms().Items() {
				rooms = append(rooms, e.ID)
			}
			if !equal(rooms, tt.wantRooms) {
				t.Fatalf("rooms = %v, want %v", rooms, tt.wantRooms)
			}
			if room := h.r.Rooms().FindByID("!a:x"); room != nil {
				var members []string
				for _, m := range room.Members.Items() {
					members = append(members, m.UserID)
				}
				if !equal(members, tt.wantMembers) {
					t.Fatalf("members = %v, want %v", members, tt.wantMembers)
				}
			}
			if !equal(h.loads, tt.wantLoads) {
				t.Fatalf("loads = %v, want %v", h.loads, tt.wantLoads)
			}
		})
	}
}

func TestSelfLeaveOfSelectedRoomResetsTab(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!r1:x", "R1"), NewEmptyRoomEntry("!r2:x", "R2"))
	h.r.Rooms().Select(0)
	for range 3 {
		h.r.NextTab()
	}
	if h.r.Tab() != TabMembers {
		t.Fatalf("Tab() = %v, want Members", h.r.Tab())
	}

	h.r.Handle(MembershipEvent{RoomID: "!r1:x", Target: self, Membership: models.MembershipLeave})

	if h.r.Rooms().FindByID("!r1:x") != nil {
		t.Fatal("R1 still present")
	}
	if h.r.Tab() != TabRoom {
		t.Fatalf("Tab() = %v, want Room", h.r.Tab())
	}
	if h.r.CurrentRoom() != nil {
		t.Fatal("a room is still selected")
	}
}

func TestSelfLeaveOfOtherRoomKeepsTab(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!r1:x", "R1"), NewEmptyRoomEntry("!r2:x", "R2"))
	h.r.Rooms().Select(1)
	h.r.NextTab()

	h.r.Handle(MembershipEvent{RoomID: "!r1:x", Target: self, Membership: models.MembershipBan})

	if h.r.Tab() != TabMessages {
		t.Fatalf("Tab() = %v, want Messages", h.r.Tab())
	}
	if cur := h.r.CurrentRoom(); cur == nil || cur.ID != "!r2:x" {
		t.Fatalf("CurrentRoom() = %v, want !r2:x", cur)
	}
}

func TestRoomLoading(t *testing.T) {
	h := newHarness()
	join := MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipJoin}

	h.r.Handle(join)
	h.r.Handle(join)
	if !equal(h.loads, []string{"!n:x"}) {
		t.Fatalf("loads = %v, want one request", h.loads)
	}

	h.r.Handle(RoomLoadedEvent{RoomID: "!n:x", Entry: NewEmptyRoomEntry("!n:x", "New")})
	if h.r.Rooms().FindByID("!n:x") == nil {
		t.Fatal("loaded room not added")
	}

	// Already present: a repeated join is a roster no-op, not another load.
	h.r.Handle(join)
	if len(h.loads) != 1 {
		t.Fatalf("loads = %v after room present", h.loads)
	}

	// Unrequested results are dropped.
	h.r.Handle(RoomLoadedEvent{RoomID: "!other:x", Entry: NewEmptyRoomEntry("!other:x", "O")})
	if h.r.Rooms().Len() != 1 {
		t.Fatalf("rooms = %d, want 1", h.r.Rooms().Len())
	}
}

func TestRoomLoadFailureAllowsRetry(t *testing.T) {
	h := newHarness()
	join := MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipJoin}

	h.r.Handle(join)
	h.r.Handle(RoomLoadedEvent{RoomID: "!n:x"})
	h.r.Handle(join)

	if len(h.loads) != 2 {
		t.Fatalf("loads = %v, want a second request after failure", h.loads)
	}
}

func TestRoomLeftWhileLoading(t *testing.T) {
	h := newHarness()
	h.r.Handle(MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipJoin})
	h.r.Handle(MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipLeave})
	h.r.Handle(RoomLoadedEvent{RoomID: "!n:x", Entry: NewEmptyRoomEntry("!n:x", "New")})

	if h.r.Rooms().Len() != 0 {
		t.Fatal("room left while loading was added")
	}
}

func TestEventsDuringRoomLoadAreReplayed(t *testing.T) {
	h := newHarness()
	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: self, Membership: models.MembershipJoin})

	// m1 made it into the backfill as well; m2 arrived after the history fetch
	h.r.Handle(textEvent("!new:x", "@a:x", "m1", 100))
	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: "@bob:x", DisplayName: "Bob", Membership: models.MembershipJoin})
	h.r.Handle(textEvent("!new:x", "@a:x", "m2", 200))
	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: "@carol:x", Membership: models.MembershipLeave})

	src := &fakeRoom{
		id:      "!new:x",
		name:    "New",
		members: []models.Member{models.NewMember("Carol", "@carol:x")},
		history: []MessageEvent{
			textEvent("!new:x", "@a:x", "m1", 100),
			textEvent("!new:x", "@a:x", "m0", 50),
		},
	}
	h.r.Handle(RoomLoadedEvent{RoomID: "!new:x", Entry: NewRoomEntry(context.Background(), src, testConverter())})

	room := h.r.Rooms().FindByID("!new:x")
	if room == nil {
		t.Fatal("loaded room not added")
	}
	if got := bodies(room.Messages); !equal(got, []string{"m0", "m1", "m2"}) {
		t.Errorf("messages = %v, want [m0 m1 m2]", got)
	}
	if !room.Members.Contains("@bob:x") || room.Members.Contains("@carol:x") {
		t.Errorf("members = %v, want bob only", room.Members.Items())
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].message != "m2" {
		t.Errorf("notifications = %v, want one for m2", h.notifier.sent)
	}
}

func TestEventsDuringFailedLoadAreDiscarded(t *testing.T) {
	h := newHarness()
	join := MembershipEvent{RoomID: "!new:x", Target: self, Membership: models.MembershipJoin}

	h.r.Handle(join)
	h.r.Handle(textEvent("!new:x", "@a:x", "lost", 100))
	h.r.Handle(RoomLoadedEvent{RoomID: "!new:x"})

	h.r.Handle(join)
	h.r.Handle(RoomLoadedEvent{RoomID: "!new:x", Entry: NewEmptyRoomEntry("!new:x", "New")})

	room := h.r.Rooms().FindByID("!new:x")
	if room == nil {
		t.Fatal("room not added on retry")
	}
	if room.Messages.Len() != 0 {
		t.Errorf("messages = %v, want none", bodies(room.Messages))
	}
}

func TestEventsForRoomLeftWhileLoadingAreDiscarded(t *testing.T) {
	h := newHarness()
	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: self, Membership: models.MembershipJoin})
	h.r.Handle(textEvent("!new:x", "@a:x", "early", 100))
	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: self, Membership: models.MembershipLeave})
	h.r.Handle(textEvent("!new:x", "@a:x", "late", 200))

	h.r.Handle(MembershipEvent{RoomID: "!new:x", Target: self, Membership: models.MembershipJoin})
	h.r.Handle(RoomLoadedEvent{RoomID: "!new:x", Entry: NewEmptyRoomEntry("!new:x", "New")})

	room := h.r.Rooms().FindByID("!new:x")
	if room == nil {
		t.Fatal("room not added after rejoin")
	}
	if room.Messages.Len() != 0 {
		t.Errorf("messages = %v, want none", bodies(room.Messages))
	}
	if len(h.notifier.sent) != 0 {
		t.Errorf("notifications = %v, want none", h.notifier.sent)
	}
}

func TestOnInvite(t *testing.T) {
	h := newHarness()
	h.r.Handle(InviteEvent{RoomID: "!a:x", Sender: "@b:x", Target: "@other:x"})
	h.r.Handle(InviteEvent{RoomID: "!b:x", Sender: "@b:x", Target: self})

	if !equal(h.invites, []string{"!b:x"}) {
		t.Fatalf("invites = %v", h.invites)
	}
}

func TestNavigationRoutesToActiveTab(t *testing.T) {
	room := roomWithMembers("!a:x", "@b:x", "@c:x")
	room.Messages.Append("01/01/2024 00:00:00", "@b:x", "one")
	room.Messages.Append("01/01/2024 00:00:01", "@b:x", "two")
	h := newHarness(room, NewEmptyRoomEntry("!z:x", "Z"))

	h.r.Next()
	if cur := h.r.CurrentRoom(); cur == nil || cur.ID != "!a:x" {
		t.Fatalf("CurrentRoom() = %v", cur)
	}

	h.r.NextTab() // Messages
	h.r.Previous()
	if i, _ := room.Messages.Selected(); i != 0 || room.Messages.Mode() != Scroll {
		t.Fatalf("message selection %d mode %v", i, room.Messages.Mode())
	}
	if cur := h.r.CurrentRoom(); cur.ID != "!a:x" {
		t.Fatal("Previous in Messages moved the room selection")
	}

	h.r.NextTab() // Input
	h.r.Next()
	if _, ok := room.Members.Selected(); ok {
		t.Fatal("Next in Input touched the roster")
	}

	h.r.NextTab() // Members
	h.r.Next()
	h.r.Next()
	if i, _ := room.Members.Selected(); i != 1 {
		t.Fatalf("member selection = %d, want 1", i)
	}
}

func TestInputEditing(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	h.r.InsertRune('x')
	if h.r.Input() != "" {
		t.Fatal("InsertRune outside Input tab changed the buffer")
	}

	h.r.Rooms().Select(0)
	h.r.NextTab()
	h.r.NextTab()
	for _, ch := range "héllo" {
		h.r.InsertRune(ch)
	}
	h.r.Backspace()
	if h.r.Input() != "héll" {
		t.Fatalf("Input() = %q", h.r.Input())
	}
}

func TestSubmitInput(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	ctx := context.Background()
	h.r.Rooms().Select(0)
	h.r.NextTab()
	h.r.NextTab()

	h.r.SubmitInput(ctx)
	if len(h.msgr.sends) != 0 {
		t.Fatal("empty submit sent a message")
	}

	for _, ch := range "hello" {
		h.r.InsertRune(ch)
	}
	h.r.SubmitInput(ctx)
	if len(h.msgr.sends) != 1 || h.msgr.sends[0] != (sendCall{"!a:x", "hello"}) {
		t.Fatalf("sends = %+v", h.msgr.sends)
	}
	if h.r.Input() != "" {
		t.Fatal("buffer not cleared")
	}

	h.msgr.err = errors.New("offline")
	h.r.InsertRune('!')
	h.r.SubmitInput(ctx)
	if h.r.Input() != "" || len(h.msgr.sends) != 2 {
		t.Fatal("failed send should still clear the buffer")
	}
}

func TestSubmitInputOutsideInputTab(t *testing.T) {
	h := newHarness(NewEmptyRoomEntry("!a:x", "A"))
	h.r.Rooms().Select(0)
	h.r.SubmitInput(context.Background())
	if len(h.msgr.sends) != 0 {
		t.Fatal("submit outside Input tab sent a message")
	}
}

func TestKickSelected(t *testing.T) {
	room := roomWithMembers("!a:x", "@b:x", "@c:x")
	h := newHarness(room)
	ctx := context.Background()
	h.r.Rooms().Select(0)

	h.r.KickSelected(ctx)
	for range 3 {
		h.r.NextTab()
	}
	h.r.KickSelected(ctx)
	if len(h.msgr.kicks) != 0 {
		t.Fatal("kick without selection or outside Members")
	}

	h.r.Next()
	h.r.Next()
	h.r.KickSelected(ctx)
	if len(h.msgr.kicks) != 1 || h.msgr.kicks[0] != (kickCall{"!a:x", "@c:x"}) {
		t.Fatalf("kicks = %+v", h.msgr.kicks)
	}
}

func TestNilCollaborators(t *testing.T) {
	r := NewReconciler(self, nil, Deps{Converter: testConverter()})
	r.Rooms().Add(NewEmptyRoomEntry("!a:x", "A"))
	r.Rooms().Select(0)

	r.Handle(MembershipEvent{RoomID: "!n:x", Target: self, Membership: models.MembershipJoin})
	r.Handle(InviteEvent{RoomID: "!i:x", Target: self})
	r.Handle(textEvent("!a:x", "@b:x", "hi", 100))
	r.NextTab()
	r.NextTab()
	r.InsertRune('a')
	r.SubmitInput(context.Background())
	r.NextTab()
	r.KickSelected(context.Background())
}

func TestQueuesDrain(t *testing.T) {
	q := NewQueues()
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("Drain() on empty queues = %v", got)
	}

	q.Messages <- textEvent("!a:x", "@b:x", "one", 1)
	q.Messages <- textEvent("!a:x", "@b:x", "two", 2)
	q.Membership <- InviteEvent{RoomID: "!a:x"}

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d events, want 2", len(got))
	}
	if m, ok := got[0].(MessageEvent); !ok || m.Content.Body != "one" {
		t.Fatalf("first event = %#v", got[0])
	}
	if _, ok := got[1].(InviteEvent); !ok {
		t.Fatalf("second event = %#v", got[1])
	}
	if got := q.Drain(); len(got) != 1 {
		t.Fatalf("second Drain() = %d events, want 1", len(got))
	}
}
