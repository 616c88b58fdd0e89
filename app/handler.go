package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/suggest"
)

// Action names accepted by Handle.
const (
	ActionList      = "list"
	ActionAdd       = "add"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionDeleteAll = "delete_all"
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
	ActionToCart    = "to_cart"
	ActionToPantry  = "to_pantry"
	ActionTotals    = "totals"
	ActionSuggest   = "suggest"
	ActionNotify    = "notify"
)

// Request is one action against the signed-in user's collections. Items carries the
// selection for batch actions and suggestions.
type Request struct {
	Action     string           `json:"action"`
	User       session.Identity `json:"user"`
	Collection string           `json:"collection,omitempty"`
	Item       *inventory.Item  `json:"item,omitempty"`
	Items      []inventory.Item `json:"items,omitempty"`
	Quantity   int              `json:"quantity,omitempty"`
	Kind       string           `json:"kind,omitempty"`
}

type Response struct {
	Items        []inventory.Item `json:"items,omitempty"`
	Results      []ResultView     `json:"results,omitempty"`
	Groups       []GroupView      `json:"groups,omitempty"`
	Total        *inventory.Money `json:"total,omitempty"`
	Recipe       *suggest.Recipe  `json:"recipe,omitempty"`
	Suggestions  []inventory.Item `json:"suggestions,omitempty"`
	NoSuggestion bool             `json:"no_suggestion,omitempty"`
}

// ResultView is the wire form of an inventory.Result.
type ResultView struct {
	Op         inventory.Op    `json:"op"`
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Before     *inventory.Item `json:"before,omitempty"`
	After      *inventory.Item `json:"after,omitempty"`
	Outcome    string          `json:"outcome"`
	Error      string          `json:"error,omitempty"`
}

func NewResultView(r inventory.Result) ResultView {
	v := ResultView{
		Op:         r.Op,
		Collection: r.Collection,
		Key:        r.Key.String(),
		Before:     r.Before,
		After:      r.After,
		Outcome:    r.Outcome.String(),
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

type GroupView struct {
	Store string           `json:"store"`
	Items []inventory.Item `json:"items"`
	Total inventory.Money  `json:"total"`
}

// Handle signs in req.User when needed and runs the action. Remote write failures come back
// both in the results and as the returned error; the local change is kept either way.
func (a *App) Handle(ctx context.Context, req Request) (Response, error) {
	if req.User.ID != "" {
		if err := a.SignIn(ctx, req.User); err != nil {
			return Response{}, err
		}
	}
	slog.Info("APP: Handling action", "action", req.Action, "collection", req.Collection)

	switch req.Action {
	case ActionList:
		m, err := a.Manager(req.Collection)
		if err != nil {
			return Response{}, err
		}
		if _, ok := m.Identity(); !ok {
			return Response{}, inventory.ErrNoSession
		}
		return Response{Items: m.Items()}, nil

	case ActionAdd, ActionUpdate, ActionIncrement, ActionDecrement, ActionDelete:
		return a.mutateOne(ctx, req)

	case ActionDeleteAll:
		m, err := a.Manager(req.Collection)
		if err != nil {
			return Response{}, err
		}
		results, err := m.DeleteAll(ctx, req.Items)
		return Response{Results: views(results)}, err

	case ActionToCart:
		if req.Item == nil {
			return Response{}, ErrMissingItem
		}
		tr, err := a.Transfer.ToCart(ctx, *req.Item, req.Quantity)
		return Response{Results: transferViews(tr)}, err

	case ActionToPantry:
		trs, err := a.Transfer.ToPantry(ctx, req.Items)
		return Response{Results: transferViews(trs...)}, err

	case ActionTotals:
		if _, ok := a.Cart.Identity(); !ok {
			return Response{}, inventory.ErrNoSession
		}
		groups := inventory.GroupByStore(a.Cart.Items())
		total := inventory.GrandTotal(groups)
		resp := Response{Total: &total, Groups: make([]GroupView, 0, len(groups))}
		for _, g := range groups {
			resp.Groups = append(resp.Groups, GroupView{Store: g.Store, Items: g.Items, Total: g.Total})
		}
		return resp, nil

	case ActionSuggest:
		return a.suggest(ctx, req)

	case ActionNotify:
		return Response{}, a.NotifyShoppingList(ctx)

	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func (a *App) mutateOne(ctx context.Context, req Request) (Response, error) {
	m, err := a.Manager(req.Collection)
	if err != nil {
		return Response{}, err
	}
	if req.Item == nil {
		return Response{}, ErrMissingItem
	}
	item := *req.Item

	var res inventory.Result
	switch req.Action {
	case ActionAdd:
		if err := item.Validate(m.Policy().MinCount); err != nil {
			return Response{}, err
		}
		res, err = m.Add(ctx, item)
	case ActionUpdate:
		if err := item.Validate(0); err != nil {
			return Response{}, err
		}
		res, err = m.Update(ctx, item)
	case ActionIncrement:
		res, err = m.Increment(ctx, item)
	case ActionDecrement:
		res, err = m.Decrement(ctx, item)
	case ActionDelete:
		res, err = m.Delete(ctx, item)
	}
	if errors.Is(err, inventory.ErrNoSession) {
		return Response{}, err
	}
	return Response{Results: []ResultView{NewResultView(res)}, Items: m.Items()}, err
}

func (a *App) suggest(ctx context.Context, req Request) (Response, error) {
	kind, err := suggest.ParseKind(req.Kind)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	switch kind {
	case suggest.KindRecipe:
		if _, ok := a.Pantry.Identity(); !ok {
			return Response{}, inventory.ErrNoSession
		}
		items := req.Items
		if len(items) == 0 {
			items = a.Pantry.Items()
		}
		var recipe suggest.Recipe
		if recipe, err = a.Suggest.Recipe(ctx, items); err == nil {
			resp.Recipe = &recipe
		}
	case suggest.KindHealthier, suggest.KindShopping:
		keys := inventory.NewSelection()
		for _, it := range req.Items {
			if !keys.Has(it.Key()) {
				keys.Toggle(it.Key())
			}
		}
		if kind == suggest.KindHealthier {
			resp.Suggestions, err = a.Suggest.Alternatives(ctx, keys.Strings())
		} else {
			resp.Suggestions, err = a.Suggest.Complements(ctx, keys.Strings())
		}
	}

	if errors.Is(err, suggest.ErrNoSuggestion) {
		return Response{NoSuggestion: true}, nil
	}
	return resp, err
}

func views(results []inventory.Result) []ResultView {
	out := make([]ResultView, 0, len(results))
	for _, r := range results {
		out = append(out, NewResultView(r))
	}
	return out
}

func transferViews(trs ...inventory.TransferResult) []ResultView {
	out := make([]ResultView, 0, 2*len(trs))
	for _, tr := range trs {
		if tr.Added.Op != "" {
			out = append(out, NewResultView(tr.Added))
		}
		if tr.Removed.Op != "" {
			out = append(out, NewResultView(tr.Removed))
		}
	}
	return out
}
