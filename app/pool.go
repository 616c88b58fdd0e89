package app

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"pantrypal/inventory"
)

const DefaultPoolSize = 256

// Pool serves requests for many users from one process. Every user gets an App of their own,
// reloaded from the gateway at the start of each request, and one user's requests run one at a
// time. Least recently used Apps are dropped once the pool is full.
type Pool struct {
	deps Deps

	mu    sync.Mutex
	users *lru.Cache[string, *poolEntry]
}

type poolEntry struct {
	mu  sync.Mutex
	app *App
}

func NewPool(d Deps, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	users, err := lru.New[string, *poolEntry](size)
	if err != nil {
		return nil, err
	}
	return &Pool{deps: d, users: users}, nil
}

// Handle runs req against req.User's App after reloading both of the user's collections.
// A request without a user id fails with inventory.ErrNoSession.
func (p *Pool) Handle(ctx context.Context, req Request) (Response, error) {
	if req.User.ID == "" {
		return Response{}, inventory.ErrNoSession
	}

	e := p.entry(req.User.ID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.app.Session.SignIn(ctx, req.User); err != nil {
		return Response{}, err
	}
	return e.app.Handle(ctx, req)
}

// Len reports how many users currently hold an App.
func (p *Pool) Len() int { return p.users.Len() }

func (p *Pool) entry(userID string) *poolEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.users.Get(userID); ok {
		return e
	}
	e := &poolEntry{app: New(p.deps)}
	if evicted := p.users.Add(userID, e); evicted {
		slog.Debug("APP: Pool full, evicted least recently used user", "size", p.users.Len())
	}
	return e
}
