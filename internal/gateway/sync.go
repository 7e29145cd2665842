package gateway

import (
	"context"

	"github.com/hearth-chat/hearth/internal/logger"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/internal/state"
)

// SyncForever streams room events into q until ctx is cancelled. Dropped
// connections are re-established on the session's Reconnect schedule; a
// rejected session ends the loop.
func (s *Session) SyncForever(ctx context.Context, q state.Queues) {
	attempt := 0
	for {
		err := s.syncConnection(ctx, q, func() { attempt = 0 })
		if ctx.Err() != nil {
			return
		}
		if !isRetryable(err) {
			logger.Error("Sync stopped: %v", err)
			return
		}

		delay := s.Reconnect.NextDelay(attempt)
		attempt++
		logger.Warn("Sync connection lost: %v, reconnecting in %s", err, delay)
		if sleep(ctx, delay) != nil {
			return
		}
	}
}

// syncConnection runs one gateway connection until it fails
func (s *Session) syncConnection(ctx context.Context, q state.Queues, onReady func()) error {
	conn, err := Dial(ctx, s.wsURL(), s.token)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("Gateway ready, session %s", conn.SessionID())
	onReady()

	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	for {
		msg, err := conn.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := deliver(ctx, q, msg); err != nil {
			return err
		}
	}
}

// deliver translates a dispatch and pushes it onto the matching queue.
// Malformed dispatches are dropped.
func deliver(ctx context.Context, q state.Queues, msg *protocol.Message) error {
	var ev protocol.RoomEvent
	if err := msg.Decode(&ev); err != nil {
		logger.Debug("Gateway: dropping %s: %v", msg.Type, err)
		return nil
	}

	switch msg.Type {
	case protocol.EventRoomMessage:
		m, err := MessageEventFrom(&ev)
		if err != nil {
			logger.Debug("Gateway: dropping message: %v", err)
			return nil
		}
		select {
		case q.Messages <- m:
		case <-ctx.Done():
			return ctx.Err()
		}

	case protocol.EventRoomMember:
		m, err := MemberEventFrom(&ev)
		if err != nil {
			logger.Debug("Gateway: dropping membership: %v", err)
			return nil
		}
		select {
		case q.Membership <- m:
		case <-ctx.Done():
			return ctx.Err()
		}

	default:
		logger.Debug("Gateway: ignoring dispatch %s", msg.Type)
	}
	return nil
}
