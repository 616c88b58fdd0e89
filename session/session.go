// Package session tracks the signed-in identity and tells dependent collections to reload or
// reset when it changes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Identity is the signed-in user as reported by the authentication provider.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

var ErrInvalidIdentity = errors.New("identity must have an id")

// Listener is notified on every session change.
type Listener interface {
	Load(ctx context.Context, id Identity)
	Reset()
}

// Tracker holds the current identity. Listeners are called synchronously in registration order.
type Tracker struct {
	mu        sync.RWMutex
	current   *Identity
	listeners []Listener
}

func NewTracker(listeners ...Listener) *Tracker {
	return &Tracker{listeners: listeners}
}

// Subscribe registers a listener. If a user is already signed in the listener is loaded
// immediately.
func (t *Tracker) Subscribe(ctx context.Context, l Listener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	cur := t.current
	t.mu.Unlock()

	if cur != nil {
		l.Load(ctx, *cur)
	}
}

// Current returns the signed-in identity, if any.
func (t *Tracker) Current() (Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return Identity{}, false
	}
	return *t.current, true
}

// SignIn records the identity and reloads every listener.
func (t *Tracker) SignIn(ctx context.Context, id Identity) error {
	if id.ID == "" {
		return ErrInvalidIdentity
	}

	t.mu.Lock()
	t.current = &id
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	slog.Info("SESSION: Signed in", "user_id", id.ID, "listeners", len(listeners))
	for _, l := range listeners {
		l.Load(ctx, id)
	}
	return nil
}

// SignOut clears the identity and resets every listener without waiting for in-flight calls.
func (t *Tracker) SignOut() {
	t.mu.Lock()
	prev := t.current
	t.current = nil
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	if prev != nil {
		slog.Info("SESSION: Signed out", "user_id", prev.ID)
	}
	for _, l := range listeners {
		l.Reset()
	}
}
