package models

import (
	"time"
)

// TimestampLayout is the display layout for message timestamps (DD/MM/YYYY HH:MM:SS)
const TimestampLayout = "02/01/2006 15:04:05"

// Message is a rendered chat message as shown in a room timeline.
// Values are immutable once created.
type Message struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// NewMessage creates a message from its display parts
func NewMessage(timestamp, sender, body string) Message {
	return Message{
		Timestamp: timestamp,
		Sender:    sender,
		Body:      body,
	}
}

// FormatTimestamp converts an origin server timestamp in milliseconds since
// the Unix epoch into the display layout. It reports false for timestamps
// that cannot be resolved (zero or negative).
func FormatTimestamp(originServerTS int64) (string, bool) {
	if originServerTS <= 0 {
		return "", false
	}
	return time.UnixMilli(originServerTS).UTC().Format(TimestampLayout), true
}
