package session

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps failures of the backing store.
var ErrStoreUnavailable = errors.New("session store unavailable")

type FlashKind string

const (
	FlashOK  FlashKind = "ok"
	FlashErr FlashKind = "err"
)

type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// State is everything the server remembers about one client.
type State struct {
	LoggedIn bool    `json:"logged_in"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

// AddFlash queues a message to be shown on the next rendered page.
func (s *State) AddFlash(kind FlashKind, msg string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: msg})
}

// PopFlashes returns queued messages and empties the queue.
func (s *State) PopFlashes() []Flash {
	out := s.Flashes
	s.Flashes = nil
	return out
}

// Store persists session state by session id. Loading an unknown id yields
// the zero State, not an error.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}
