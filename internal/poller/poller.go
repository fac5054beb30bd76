package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/taskbot/internal/chat"
)

const presenceResetTimeout = 5 * time.Second

// ErrStartup is returned by Run when the bot cannot log in. The process
// should exit non-zero.
var ErrStartup = errors.New("poll loop startup failed")

type Handler interface {
	HandleMessage(ctx context.Context, msg chat.DirectMessage) error
}

// Loop periodically fetches direct messages and hands each new one to the
// handler, one at a time.
type Loop struct {
	client      chat.Client
	handler     Handler
	interval    time.Duration
	backoff     time.Duration
	isTransient func(error) bool

	// lastSeen holds the id of the last handled message per room. Only the
	// loop goroutine touches it.
	lastSeen map[string]string
}

func NewLoop(client chat.Client, handler Handler, interval, backoff time.Duration, isTransient func(error) bool) *Loop {
	return &Loop{
		client:      client,
		handler:     handler,
		interval:    interval,
		backoff:     backoff,
		isTransient: isTransient,
		lastSeen:    make(map[string]string),
	}
}

// Run logs in, announces presence and polls until ctx is cancelled. Presence
// is reset to offline on the way out.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.client.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}
	slog.Info("startup: chat login succeeded", "bot_user_id", l.client.BotUserID())

	if err := l.client.SetPresence(ctx, chat.PresenceOnline); err != nil {
		slog.Warn("failed to set presence", "error", err, "status", chat.PresenceOnline)
	}
	defer l.resetPresence()

	wait := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			slog.Info("poll loop stopped")
			return nil
		case <-time.After(wait):
		}
		wait = l.interval
		if !l.poll(ctx) {
			wait = l.backoff
		}
	}
}

// poll runs one cycle and reports whether it completed without a retryable
// failure.
func (l *Loop) poll(ctx context.Context) bool {
	messages, err := l.client.FetchUnreadDirectMessages(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		slog.Warn("failed to fetch direct messages", "error", err)
		if errors.Is(err, chat.ErrUnauthorized) {
			l.reauthenticate(ctx)
		}
		return false
	}

	healthy := true
	botID := l.client.BotUserID()
	for _, msg := range messages {
		if ctx.Err() != nil {
			return true
		}
		if msg.AuthorID == botID {
			continue
		}
		if l.lastSeen[msg.RoomID] == msg.MessageID {
			continue
		}
		if err := l.handler.HandleMessage(ctx, msg); err != nil {
			if l.isTransient(err) {
				slog.Warn("message will be retried", "error", err, "room_id", msg.RoomID, "message_id", msg.MessageID)
				healthy = false
				continue
			}
			slog.Error("failed to handle message", "error", err, "room_id", msg.RoomID, "message_id", msg.MessageID)
		}
		l.lastSeen[msg.RoomID] = msg.MessageID
	}
	return healthy
}

func (l *Loop) reauthenticate(ctx context.Context) {
	if err := l.client.Authenticate(ctx); err != nil {
		slog.Error("chat re-login failed", "error", err)
		return
	}
	slog.Info("chat re-login succeeded")
}

func (l *Loop) resetPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), presenceResetTimeout)
	defer cancel()
	if err := l.client.SetPresence(ctx, chat.PresenceOffline); err != nil {
		slog.Warn("failed to reset presence", "error", err, "status", chat.PresenceOffline)
	}
}
