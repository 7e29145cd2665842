package state

import (
	"context"
	"errors"
	"iter"
	"net/url"

	"github.com/hearth-chat/hearth/internal/content"
	"github.com/hearth-chat/hearth/internal/models"
)

const self = "@me:hearth.local"

func msg(body string) models.Message {
	return models.NewMessage("01/01/2024 00:00:00", "@someone:hearth.local", body)
}

func testConverter() Converter {
	u, _ := url.Parse("https://hearth.local")
	return NewConverter(content.NewRenderer(u))
}

// textEvent builds a message event at second ts
func textEvent(roomID, sender, body string, ts int64) MessageEvent {
	return MessageEvent{
		RoomID:         roomID,
		EventID:        "$" + body,
		Sender:         sender,
		OriginServerTS: ts * 1000,
		Content:        content.NewText(body),
	}
}

var errHistory = errors.New("history unavailable")

type fakeRoom struct {
	id         string
	name       string
	nameErr    error
	members    []models.Member
	membersErr error
	history    []MessageEvent // newest first
	failAfter  int            // yield an error after this many events when > 0
}

func (f *fakeRoom) ID() string { return f.id }

func (f *fakeRoom) DisplayName(context.Context) (string, error) {
	return f.name, f.nameErr
}

func (f *fakeRoom) JoinedMembers(context.Context) ([]models.Member, error) {
	return f.members, f.membersErr
}

func (f *fakeRoom) HistoryReverse(context.Context) iter.Seq2[MessageEvent, error] {
	return func(yield func(MessageEvent, error) bool) {
		for i, ev := range f.history {
			if f.failAfter > 0 && i == f.failAfter {
				yield(MessageEvent{}, errHistory)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

type sendCall struct {
	roomID, text string
}

type kickCall struct {
	roomID, userID string
}

type fakeMessenger struct {
	sends []sendCall
	kicks []kickCall
	err   error
}

func (f *fakeMessenger) SendMessage(_ context.Context, roomID, text string) error {
	f.sends = append(f.sends, sendCall{roomID, text})
	return f.err
}

func (f *fakeMessenger) KickUser(_ context.Context, roomID, userID string) error {
	f.kicks = append(f.kicks, kickCall{roomID, userID})
	return f.err
}

type notification struct {
	title, message string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) Notify(title, message string) error {
	f.sent = append(f.sent, notification{title, message})
	return f.err
}
