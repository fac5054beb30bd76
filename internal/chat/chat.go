package chat

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks failures to reach the chat platform (network error,
	// timeout, server error). Callers treat it as transient.
	ErrUnavailable = errors.New("chat platform unavailable")
	// ErrUnauthorized is returned when the bot credentials are rejected.
	ErrUnauthorized = errors.New("chat platform rejected credentials")
)

type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Action is a selectable button. Pressing it injects Text into the room,
// unless URL is set, in which case the button opens the link instead.
type Action struct {
	Label string
	Text  string
	URL   string
}

type OutgoingMessage struct {
	RoomID  string
	Text    string
	Actions []Action
}

func (m OutgoingMessage) IsRich() bool {
	return len(m.Actions) > 0
}

// DirectMessage is the latest message of a direct-message room.
type DirectMessage struct {
	RoomID     string
	MessageID  string
	AuthorID   string
	AuthorName string
	Text       string
	SentAt     time.Time
}

type Sender interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) error
}

type Client interface {
	Sender
	Authenticate(ctx context.Context) error
	BotUserID() string
	SetPresence(ctx context.Context, status Presence) error
	FetchUnreadDirectMessages(ctx context.Context) ([]DirectMessage, error)
}
