package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal/gateway"
	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/slack"
	"pantrypal/suggest/mock"
)

var alice = session.Identity{ID: "alice", Email: "alice@example.com"}

type captureDoer struct {
	bodies []string
}

func (c *captureDoer) Do(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	c.bodies = append(c.bodies, string(b))
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
}

func newTestApp(t *testing.T) (*App, *gateway.MemoryStore, *captureDoer) {
	t.Helper()
	store := gateway.NewMemoryStore()
	doer := &captureDoer{}
	a := New(Deps{
		Gateway:      gateway.New(store),
		Generator:    mock.NewGenerator(),
		Slack:        slack.NewClient("http://example.com/hook", doer),
		SlackChannel: "#groceries",
	})
	return a, store, doer
}

func item(name, store string, count int, cost inventory.Money) *inventory.Item {
	return &inventory.Item{Name: name, Store: store, Count: count, Cost: cost}
}

func TestHandle_RequiresSession(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, err := a.Handle(context.Background(), Request{Action: ActionAdd, Collection: "carts", Item: item("milk", "Aldi", 1, 100)})
	assert.ErrorIs(t, err, inventory.ErrNoSession)

	_, err = a.Handle(context.Background(), Request{Action: ActionList, Collection: "pantries"})
	assert.ErrorIs(t, err, inventory.ErrNoSession)
}

func TestHandle_PantryToCartToPantry(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	resp, err := a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "pantry", Item: item("eggs", "Costco", 12, 450)})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "applied", resp.Results[0].Outcome)
	assert.Equal(t, "eggs-Costco", resp.Results[0].Key)

	resp, err = a.Handle(ctx, Request{Action: ActionToCart, User: alice, Item: item("eggs", "Costco", 12, 450), Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
	assert.Empty(t, a.Pantry.Items())

	resp, err = a.Handle(ctx, Request{Action: ActionTotals, User: alice})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, inventory.Money(900), *resp.Total)

	_, err = a.Handle(ctx, Request{Action: ActionToPantry, User: alice, Items: a.Cart.Items()})
	require.NoError(t, err)
	assert.Empty(t, a.Cart.Items())
	assert.Equal(t, []inventory.Item{*item("eggs", "Costco", 2, 450)}, a.Pantry.Items())
}

func TestHandle_Validation(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestApp(t)

	_, err := a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "carts", Item: item("milk", "Aldi", 0, 100)})
	assert.ErrorIs(t, err, inventory.ErrInvalidItem)

	_, err = a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "carts"})
	assert.ErrorIs(t, err, ErrMissingItem)

	_, err = a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "wishlist", Item: item("a", "b", 1, 0)})
	assert.Error(t, err)

	_, err = a.Handle(ctx, Request{Action: "explode", User: alice})
	assert.ErrorIs(t, err, ErrUnknownAction)

	assert.Equal(t, 0, store.Puts())
}

func TestHandle_RemoteFailure(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestApp(t)
	require.NoError(t, a.SignIn(ctx, alice))

	store.SetPutErr(errors.New("offline"))
	resp, err := a.Handle(ctx, Request{Action: ActionAdd, Collection: "carts", Item: item("milk", "Aldi", 1, 100)})
	require.Error(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "remote_failed", resp.Results[0].Outcome)
	assert.Contains(t, resp.Results[0].Error, "offline")
	assert.Len(t, resp.Items, 1)
}

func TestHandle_Suggest(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	_, err := a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "pantries", Item: item("rice", "Aldi", 2, 199)})
	require.NoError(t, err)

	resp, err := a.Handle(ctx, Request{Action: ActionSuggest, User: alice, Kind: "recipe"})
	require.NoError(t, err)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Simple rice skillet", resp.Recipe.Name)

	resp, err = a.Handle(ctx, Request{Action: ActionSuggest, User: alice, Kind: "healthier", Items: []inventory.Item{*item("chips", "Lidl", 1, 0)}})
	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "Lidl", resp.Suggestions[0].Store)

	resp, err = a.Handle(ctx, Request{Action: ActionSuggest, User: alice, Kind: "shopping"})
	require.NoError(t, err)
	assert.True(t, resp.NoSuggestion)

	_, err = a.Handle(ctx, Request{Action: ActionSuggest, User: alice, Kind: "dessert"})
	assert.Error(t, err)
}

func TestHandle_Notify(t *testing.T) {
	ctx := context.Background()
	a, _, doer := newTestApp(t)

	_, err := a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "carts", Item: item("tea", "Lidl", 2, 300)})
	require.NoError(t, err)
	_, err = a.Handle(ctx, Request{Action: ActionNotify, User: alice})
	require.NoError(t, err)

	require.Len(t, doer.bodies, 1)
	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(doer.bodies[0]), &msg))
	assert.Equal(t, "#groceries", msg["channel"])
	assert.Contains(t, msg["text"], "*Total:* $6.00")

	noSlack := New(Deps{Gateway: gateway.New(gateway.NewMemoryStore()), Generator: mock.NewGenerator()})
	assert.ErrorIs(t, noSlack.NotifyShoppingList(ctx), ErrNotifyDisabled)
}

func TestSignIn_SwitchesUser(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	_, err := a.Handle(ctx, Request{Action: ActionAdd, User: alice, Collection: "carts", Item: item("tea", "Lidl", 1, 300)})
	require.NoError(t, err)

	bob := session.Identity{ID: "bob"}
	resp, err := a.Handle(ctx, Request{Action: ActionList, User: bob, Collection: "carts"})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	resp, err = a.Handle(ctx, Request{Action: ActionList, User: alice, Collection: "carts"})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	fx, err := LoadFixture(strings.NewReader(`
pantry:
  - {name: rice, store: Aldi, count: 2, cost: "1.99"}
  - {name: salt, store: Lidl, count: 0}
cart:
  - {name: milk, store: Aldi, count: 1, cost: 0.89}
`))
	require.NoError(t, err)

	assert.ErrorIs(t, a.Import(ctx, fx), inventory.ErrNoSession)

	require.NoError(t, a.SignIn(ctx, alice))
	require.NoError(t, a.Import(ctx, fx))

	assert.Equal(t, []inventory.Item{
		{Name: "rice", Store: "Aldi", Count: 2, Cost: 199},
		{Name: "salt", Store: "Lidl", Count: 0},
	}, a.Pantry.Items())
	assert.Equal(t, []inventory.Item{{Name: "milk", Store: "Aldi", Count: 1, Cost: 89}}, a.Cart.Items())
}

func TestFixture_Invalid(t *testing.T) {
	fx, err := LoadFixture(strings.NewReader("cart:\n  - {name: milk, store: Aldi, count: 0}\n"))
	require.NoError(t, err)
	_, _, err = fx.Items()
	assert.ErrorIs(t, err, inventory.ErrInvalidItem)

	fx, err = LoadFixture(strings.NewReader("pantry:\n  - {name: milk, store: Aldi, cost: cheap}\n"))
	require.NoError(t, err)
	_, _, err = fx.Items()
	assert.ErrorContains(t, err, "row 1")

	_, err = LoadFixture(strings.NewReader("pantry: [unterminated"))
	assert.Error(t, err)
}

func TestImport_MergesDuplicateRows(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestApp(t)
	require.NoError(t, a.SignIn(ctx, alice))

	fx, err := LoadFixture(strings.NewReader(`
pantry:
  - {name: rice, store: Aldi, count: 2, cost: "1.00"}
  - {name: rice, store: Aldi, count: 3, cost: "1.00"}
cart:
  - {name: milk, store: Aldi, count: 1, cost: "0.89"}
  - {name: milk, store: Lidl, count: 1, cost: "0.79"}
  - {name: milk, store: Aldi, count: 2, cost: "0.89"}
`))
	require.NoError(t, err)
	require.NoError(t, a.Import(ctx, fx))

	assert.Equal(t, []inventory.Item{{Name: "rice", Store: "Aldi", Count: 5, Cost: 100}}, a.Pantry.Items())
	assert.Equal(t, []inventory.Item{
		{Name: "milk", Store: "Aldi", Count: 3, Cost: 178},
		{Name: "milk", Store: "Lidl", Count: 1, Cost: 79},
	}, a.Cart.Items())

	// one delete clears the key both locally and in the store
	_, err = a.Pantry.Delete(ctx, inventory.Item{Name: "rice", Store: "Aldi"})
	require.NoError(t, err)
	assert.Empty(t, a.Pantry.Items())

	stored, err := gateway.New(store).Read(ctx, alice.ID, "pantries")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
