package inventory

import (
	"context"
	"log/slog"
)

// Transfer moves items between a pantry and a cart manager. There is no compensation: if the
// second step fails the collections stay out of step and both results are returned.
type Transfer struct {
	pantry *Manager
	cart   *Manager
}

func NewTransfer(pantry, cart *Manager) *Transfer {
	return &Transfer{pantry: pantry, cart: cart}
}

// TransferResult pairs the add on the destination with the delete on the source.
type TransferResult struct {
	Added   Result
	Removed Result
}

// ToCart adds quantity units of item to the cart and then deletes the whole pantry entry,
// even when quantity is less than the pantry count. If the cart add fails the pantry entry is
// left alone.
func (t *Transfer) ToCart(ctx context.Context, item Item, quantity int) (TransferResult, error) {
	if quantity < 1 {
		return TransferResult{}, ErrInvalidQuantity
	}

	cartItem := Item{Name: item.Name, Store: item.Store, Cost: item.Cost, Count: quantity}

	var tr TransferResult
	var err error
	if tr.Added, err = t.cart.Add(ctx, cartItem); err != nil {
		slog.Error("TRANSFER: Cart add failed; pantry entry kept", "key", item.Key().String(), "error", err)
		return tr, err
	}
	if tr.Removed, err = t.pantry.Delete(ctx, item); err != nil {
		slog.Error("TRANSFER: Pantry delete failed after cart add", "key", item.Key().String(), "error", err)
		return tr, err
	}
	return tr, nil
}

// ToPantry moves each cart item, with its full count and cost, into the pantry and deletes it
// from the cart. It stops at the first failure.
func (t *Transfer) ToPantry(ctx context.Context, items []Item) ([]TransferResult, error) {
	results := make([]TransferResult, 0, len(items))
	for _, it := range items {
		var tr TransferResult
		var err error
		if tr.Added, err = t.pantry.Add(ctx, it); err != nil {
			return append(results, tr), err
		}
		if tr.Removed, err = t.cart.Delete(ctx, it); err != nil {
			return append(results, tr), err
		}
		results = append(results, tr)
	}
	return results, nil
}
