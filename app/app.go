// Package app assembles the collection managers, the transfer, the suggestion requestor and the
// notifier behind a single action dispatcher shared by the Lambda handler, the CLI and the
// HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pantrypal"
	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/slack"
	"pantrypal/suggest"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrMissingItem    = errors.New("item is required")
	ErrNotifyDisabled = errors.New("shopping list notifications are not configured")
)

type Deps struct {
	Gateway   inventory.Gateway
	Generator suggest.Generator
	Options   inventory.Options

	// Slack is optional; without it the notify action fails with ErrNotifyDisabled.
	Slack        *slack.Client
	SlackChannel string
}

type App struct {
	Session  *session.Tracker
	Pantry   *inventory.Manager
	Cart     *inventory.Manager
	Transfer *inventory.Transfer
	Suggest  *suggest.Requestor

	gateway      inventory.Gateway
	slack        *slack.Client
	slackChannel string
}

func New(d Deps) *App {
	pantry := inventory.NewPantry(d.Gateway, d.Options)
	cart := inventory.NewCart(d.Gateway, d.Options)
	return &App{
		Session:      session.NewTracker(pantry, cart),
		Pantry:       pantry,
		Cart:         cart,
		Transfer:     inventory.NewTransfer(pantry, cart),
		Suggest:      suggest.NewRequestor(d.Generator),
		gateway:      d.Gateway,
		slack:        d.Slack,
		slackChannel: d.SlackChannel,
	}
}

// Manager returns the manager for a collection name. Both the collection names and the
// singular forms are accepted.
func (a *App) Manager(collection string) (*inventory.Manager, error) {
	switch collection {
	case pantrypal.CollectionPantries, "pantry":
		return a.Pantry, nil
	case pantrypal.CollectionCarts, "cart":
		return a.Cart, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

// SignIn switches the session to id when it is not already the signed-in user.
func (a *App) SignIn(ctx context.Context, id session.Identity) error {
	if cur, ok := a.Session.Current(); ok && cur == id {
		return nil
	}
	return a.Session.SignIn(ctx, id)
}

// NotifyShoppingList posts the cart grouped by store.
func (a *App) NotifyShoppingList(ctx context.Context) error {
	if a.slack == nil {
		return ErrNotifyDisabled
	}
	if _, ok := a.Cart.Identity(); !ok {
		return inventory.ErrNoSession
	}
	return a.slack.PostShoppingList(ctx, a.slackChannel, inventory.GroupByStore(a.Cart.Items()))
}

// Import replaces the signed-in user's collections with the fixture's and reloads them.
// A collection missing from the fixture is left untouched.
func (a *App) Import(ctx context.Context, fx Fixture) error {
	id, ok := a.Session.Current()
	if !ok {
		return inventory.ErrNoSession
	}

	pantry, cart, err := fx.Items()
	if err != nil {
		return err
	}
	if pantry != nil {
		if err := a.gateway.WriteAll(ctx, id.ID, pantrypal.CollectionPantries, pantry); err != nil {
			return fmt.Errorf("import pantry: %w", err)
		}
	}
	if cart != nil {
		if err := a.gateway.WriteAll(ctx, id.ID, pantrypal.CollectionCarts, cart); err != nil {
			return fmt.Errorf("import cart: %w", err)
		}
	}
	slog.Info("APP: Fixture imported", "user_id", id.ID, "pantry", len(pantry), "cart", len(cart))

	a.Pantry.Load(ctx, id)
	a.Cart.Load(ctx, id)
	return nil
}
