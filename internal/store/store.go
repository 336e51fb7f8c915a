package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Collection string

const (
	Workouts  Collection = "workouts"
	BodyStats Collection = "body_stats"
)

type Order struct {
	Field string
	Desc  bool
}

// RecencyOrder sorts newest date first, entries sharing a date most recently created first.
var RecencyOrder = []Order{
	{Field: "date", Desc: true},
	{Field: "created_at", Desc: true},
}

type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	ExpiresAt    time.Time
}

type SessionEvent int

const (
	SignedIn SessionEvent = iota
	SignedOut
)

func (e SessionEvent) String() string {
	switch e {
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	default:
		return fmt.Sprintf("SessionEvent(%d)", int(e))
	}
}

type SessionListener func(ctx context.Context, event SessionEvent, session *Session)

// Store is the backing store contract: authentication plus the two collections.
// There is deliberately no delete operation.
type Store interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(listener SessionListener) (unsubscribe func())
	SignInWithPassword(ctx context.Context, identity, secret string) error
	SignOut(ctx context.Context) error

	SelectAll(ctx context.Context, collection Collection, orderBy ...Order) ([]json.RawMessage, error)
	Insert(ctx context.Context, collection Collection, row any) error
	UpdateByID(ctx context.Context, collection Collection, id string, patch any) error
}

// Error is a failure reported by the backing store. Message is shown to the user as is.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var ErrNotSignedIn = &Error{Op: "session", Status: 401, Message: "Not signed in."}

// MessageOf returns the store's own message when err carries one.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Message
	}
	return err.Error()
}
