// Package gateway persists pantry and cart collections as one JSON document per user and
// collection, on top of a pluggable DocStore.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"pantrypal"
	"pantrypal/inventory"
)

var (
	// ErrNotFound is returned by a DocStore when the document does not exist.
	ErrNotFound = errors.New("document not found")

	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidUserID     = errors.New("invalid user id")
)

// DocStore reads and writes raw documents keyed by collection and user id.
type DocStore interface {
	Get(ctx context.Context, collection, userID string) ([]byte, error)
	Put(ctx context.Context, collection, userID string, doc []byte) error
}

// fields maps each collection to the array field its documents hold.
var fields = map[string]string{
	pantrypal.CollectionPantries: "pantry",
	pantrypal.CollectionCarts:    "cart",
}

// DocumentGateway implements inventory.Gateway. Every single-item operation re-reads the
// stored document so it merges against the remote view rather than the caller's. Writes from
// one process are serialized; there are no transactions across processes.
type DocumentGateway struct {
	store DocStore
	mu    sync.Mutex
}

var _ inventory.Gateway = (*DocumentGateway)(nil)

func New(store DocStore) *DocumentGateway {
	return &DocumentGateway{store: store}
}

// Read returns the stored collection, or an empty one when no document exists.
func (g *DocumentGateway) Read(ctx context.Context, userID, collection string) ([]inventory.Item, error) {
	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return nil, err
	}
	return doc.items, nil
}

// WriteAll replaces the stored collection.
func (g *DocumentGateway) WriteAll(ctx context.Context, userID, collection string, items []inventory.Item) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return err
	}
	doc.items = append(make([]inventory.Item, 0, len(items)), items...)
	return g.save(ctx, userID, collection, doc)
}

// MergeOne adds item's count to the stored entry with the same (name, store), or appends the
// item. Cost is never accumulated here. A missing document is created.
func (g *DocumentGateway) MergeOne(ctx context.Context, userID, collection string, item inventory.Item) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return err
	}

	merged := false
	for i := range doc.items {
		if inventory.MatchKey(doc.items[i], item) {
			doc.items[i].Count += item.Count
			merged = true
			break
		}
	}
	if !merged {
		doc.items = append(doc.items, item)
	}

	slog.Debug("GATEWAY: MergeOne", "collection", collection, "user_id", userID, "key", item.Key().String(), "merged", merged)
	return g.save(ctx, userID, collection, doc)
}

// ReplaceOne overwrites the first stored entry selected by match. Nothing is written when the
// document or the entry does not exist.
func (g *DocumentGateway) ReplaceOne(ctx context.Context, userID, collection string, item inventory.Item, match inventory.MatchFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return err
	}
	if !doc.exists {
		return nil
	}
	for i := range doc.items {
		if match(doc.items[i], item) {
			doc.items[i] = item
			return g.save(ctx, userID, collection, doc)
		}
	}
	return nil
}

// UpsertOne overwrites the first stored entry selected by match, or appends item when there
// is none. A missing document is created.
func (g *DocumentGateway) UpsertOne(ctx context.Context, userID, collection string, item inventory.Item, match inventory.MatchFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return err
	}

	replaced := false
	for i := range doc.items {
		if match(doc.items[i], item) {
			doc.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		doc.items = append(doc.items, item)
	}

	slog.Debug("GATEWAY: UpsertOne", "collection", collection, "user_id", userID, "key", item.Key().String(), "replaced", replaced)
	return g.save(ctx, userID, collection, doc)
}

// RemoveOne drops every stored entry with item's (name, store).
func (g *DocumentGateway) RemoveOne(ctx context.Context, userID, collection string, item inventory.Item) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, err := g.load(ctx, userID, collection)
	if err != nil {
		return err
	}
	if !doc.exists {
		return nil
	}

	kept := doc.items[:0]
	for _, it := range doc.items {
		if !inventory.MatchKey(it, item) {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(doc.items) {
		return nil
	}
	doc.items = kept
	return g.save(ctx, userID, collection, doc)
}

// document keeps unrelated top-level fields intact across rewrites.
type document struct {
	field  string
	exists bool
	raw    map[string]json.RawMessage
	items  []inventory.Item
}

func (g *DocumentGateway) load(ctx context.Context, userID, collection string) (*document, error) {
	field, ok := fields[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	doc := &document{field: field, raw: map[string]json.RawMessage{}, items: []inventory.Item{}}

	b, err := g.store.Get(ctx, collection, userID)
	if errors.Is(err, ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, userID, err)
	}
	doc.exists = true

	if err := json.Unmarshal(b, &doc.raw); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, userID, err)
	}
	if rawItems, ok := doc.raw[field]; ok && string(rawItems) != "null" {
		if err := json.Unmarshal(rawItems, &doc.items); err != nil {
			return nil, fmt.Errorf("decode %s/%s %s: %w", collection, userID, field, err)
		}
	}
	return doc, nil
}

func (g *DocumentGateway) save(ctx context.Context, userID, collection string, doc *document) error {
	rawItems, err := json.Marshal(doc.items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.field, err)
	}
	doc.raw[doc.field] = rawItems

	b, err := json.Marshal(doc.raw)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, userID, err)
	}
	if err := g.store.Put(ctx, collection, userID, b); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, userID, err)
	}
	return nil
}
