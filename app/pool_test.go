package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal"
	"pantrypal/gateway"
	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/suggest/mock"
)

var bob = session.Identity{ID: "bob", Email: "bob@example.com"}

// gatedGateway holds the first pantry read for one user until release is closed.
type gatedGateway struct {
	inventory.Gateway
	user    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGateway) Read(ctx context.Context, userID, collection string) ([]inventory.Item, error) {
	if userID == g.user && collection == pantrypal.CollectionPantries {
		g.once.Do(func() {
			close(g.started)
			<-g.release
		})
	}
	return g.Gateway.Read(ctx, userID, collection)
}

func newTestPool(t *testing.T, gw inventory.Gateway, size int) *Pool {
	t.Helper()
	p, err := NewPool(Deps{Gateway: gw, Generator: mock.NewGenerator()}, size)
	require.NoError(t, err)
	return p
}

func TestPool_InterleavedUsersStayIsolated(t *testing.T) {
	ctx := context.Background()
	docs := gateway.New(gateway.NewMemoryStore())
	gw := &gatedGateway{Gateway: docs, user: alice.ID, started: make(chan struct{}), release: make(chan struct{})}
	p := newTestPool(t, gw, 0)

	type result struct {
		resp Response
		err  error
	}
	aliceDone := make(chan result, 1)
	go func() {
		resp, err := p.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "pantry", Item: item("eggs", "Aldi", 12, 300)})
		aliceDone <- result{resp, err}
	}()

	select {
	case <-gw.started:
	case <-time.After(5 * time.Second):
		t.Fatal("alice's load never started")
	}

	// bob is served while alice's load is still in flight
	resp, err := p.Handle(ctx, Request{Action: ActionList, User: bob, Collection: "pantry"})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	close(gw.release)
	res := <-aliceDone
	require.NoError(t, res.err)
	assert.Equal(t, []inventory.Item{*item("eggs", "Aldi", 12, 300)}, res.resp.Items)

	resp, err = p.Handle(ctx, Request{Action: ActionList, User: bob, Collection: "pantry"})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	aliceStored, err := docs.Read(ctx, alice.ID, pantrypal.CollectionPantries)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{*item("eggs", "Aldi", 12, 300)}, aliceStored)
	bobStored, err := docs.Read(ctx, bob.ID, pantrypal.CollectionPantries)
	require.NoError(t, err)
	assert.Empty(t, bobStored)
	assert.Equal(t, 2, p.Len())
}

func TestPool_ReloadsEveryRequest(t *testing.T) {
	ctx := context.Background()
	docs := gateway.New(gateway.NewMemoryStore())
	p := newTestPool(t, docs, 0)

	_, err := p.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "cart", Item: item("milk", "Aldi", 1, 100)})
	require.NoError(t, err)

	// another session changes the stored cart between two requests
	require.NoError(t, docs.RemoveOne(ctx, alice.ID, pantrypal.CollectionCarts, *item("milk", "Aldi", 1, 100)))
	require.NoError(t, docs.MergeOne(ctx, alice.ID, pantrypal.CollectionCarts, *item("bread", "Lidl", 1, 250)))

	resp, err := p.Handle(ctx, Request{Action: ActionList, User: alice, Collection: "cart"})
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{*item("bread", "Lidl", 1, 250)}, resp.Items)

	resp, err = p.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "cart", Item: item("bread", "Lidl", 1, 250)})
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{*item("bread", "Lidl", 2, 500)}, resp.Items)
}

func TestPool_RequiresUser(t *testing.T) {
	p := newTestPool(t, gateway.New(gateway.NewMemoryStore()), 0)
	_, err := p.Handle(context.Background(), Request{Action: ActionList, Collection: "cart"})
	assert.ErrorIs(t, err, inventory.ErrNoSession)
	assert.Equal(t, 0, p.Len())
}

func TestPool_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, gateway.New(gateway.NewMemoryStore()), 1)

	_, err := p.Handle(ctx, Request{Action: ActionList, User: alice, Collection: "cart"})
	require.NoError(t, err)
	_, err = p.Handle(ctx, Request{Action: ActionList, User: bob, Collection: "cart"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}
