// Package notification sends desktop notifications for incoming messages.
// It uses the beeep library, which works on macOS, Linux and Windows.
package notification

import (
	"github.com/gen2brain/beeep"
	"github.com/hearth-chat/hearth/internal/logger"
)

type notifyFunc func(title, message string, icon any) error

var notify notifyFunc = beeep.Notify

// SetNotifier replaces the function used to deliver notifications
func SetNotifier(fn func(title, message string, icon any) error) {
	notify = fn
}

// ResetNotifier restores delivery through beeep
func ResetNotifier() {
	notify = beeep.Notify
}

// Send shows a desktop notification
func Send(title, message string) error {
	logger.Debug("Notification: title=%q message=%q", title, message)
	// Empty icon lets beeep pick the platform default
	err := notify(title, message, "")
	if err != nil {
		logger.Debug("Notification failed: %v", err)
	}
	return err
}

// Desktop delivers notifications when enabled. The zero value is disabled.
type Desktop struct {
	Enabled bool
}

// New creates a Desktop notifier
func New(enabled bool) *Desktop {
	return &Desktop{Enabled: enabled}
}

// Notify sends a notification unless the notifier is disabled
func (d *Desktop) Notify(title, message string) error {
	if d == nil || !d.Enabled {
		return nil
	}
	return Send(title, message)
}
