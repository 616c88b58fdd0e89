package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"pantrypal"
	"pantrypal/session"
)

// Gateway is the document store a Manager mirrors its collection to.
type Gateway interface {
	Read(ctx context.Context, userID, collection string) ([]Item, error)
	WriteAll(ctx context.Context, userID, collection string, items []Item) error
	MergeOne(ctx context.Context, userID, collection string, item Item) error
	ReplaceOne(ctx context.Context, userID, collection string, item Item, match MatchFunc) error
	UpsertOne(ctx context.Context, userID, collection string, item Item, match MatchFunc) error
	RemoveOne(ctx context.Context, userID, collection string, item Item) error
}

// Notifier receives every committed mutation.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
}

// Change is the notification payload for one mutation.
type Change struct {
	UserID     string `json:"user_id"`
	Collection string `json:"collection"`
	Op         Op     `json:"op"`
	Key        string `json:"key"`
	Item       *Item  `json:"item,omitempty"`
	Outcome    string `json:"outcome"`
}

type Options struct {
	Logger   pantrypal.MutationLogger
	Notifier Notifier
	Tracer   trace.Tracer
	Meter    metric.Meter
}

// Manager owns the in-memory collection for the signed-in user. Every mutation is applied
// locally first and then written to the gateway; a failed remote write does not roll back the
// local change.
type Manager struct {
	policy   Policy
	gateway  Gateway
	logger   pantrypal.MutationLogger
	notifier Notifier
	tracer   trace.Tracer

	mutations      metric.Int64Counter
	remoteFailures metric.Int64Counter

	mu         sync.Mutex
	identity   *session.Identity
	items      []Item
	generation uint64

	loading atomic.Int32
}

type remoteWrite func(ctx context.Context, userID string) error

// stageFunc computes the next collection and the staged result from the current one.
// It runs under the manager lock.
type stageFunc func(items []Item) ([]Item, Result, remoteWrite)

func NewManager(policy Policy, gw Gateway, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = pantrypal.NewNoOpMutationLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(pantrypal.TracerNameInventory)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(pantrypal.TracerNameInventory)
	}
	if policy.UpdateMatch == nil {
		policy.UpdateMatch = MatchKey
	}

	mutations, _ := opts.Meter.Int64Counter("inventory_mutations_total",
		metric.WithDescription("Total number of collection mutations by op and outcome"))
	remoteFailures, _ := opts.Meter.Int64Counter("inventory_remote_failures_total",
		metric.WithDescription("Total number of gateway writes that failed after a local mutation"))

	return &Manager{
		policy:         policy,
		gateway:        gw,
		logger:         opts.Logger,
		notifier:       opts.Notifier,
		tracer:         opts.Tracer,
		mutations:      mutations,
		remoteFailures: remoteFailures,
	}
}

func NewPantry(gw Gateway, opts Options) *Manager { return NewManager(PantryPolicy, gw, opts) }

func NewCart(gw Gateway, opts Options) *Manager { return NewManager(CartPolicy, gw, opts) }

func (m *Manager) Policy() Policy { return m.policy }

func (m *Manager) Collection() string { return m.policy.Collection }

// Items returns a copy of the collection in order.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(make([]Item, 0, len(m.items)), m.items...)
}

func (m *Manager) Find(k Key) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Key() == k {
			return it, true
		}
	}
	return Item{}, false
}

// Loading reports whether a gateway round trip is in flight.
func (m *Manager) Loading() bool { return m.loading.Load() > 0 }

func (m *Manager) Identity() (session.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return session.Identity{}, false
	}
	return *m.identity, true
}

// Load replaces the collection with the gateway copy for id. A failed read is logged and
// leaves the collection empty. A Reset or another Load issued while the read is in flight
// wins over this one.
func (m *Manager) Load(ctx context.Context, id session.Identity) {
	ctx, span := m.tracer.Start(ctx, "Manager.Load", trace.WithAttributes(
		attribute.String("collection", m.policy.Collection),
		attribute.String("user.id", id.ID),
	))
	defer span.End()

	m.mu.Lock()
	m.identity = &id
	m.items = nil
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.loading.Add(1)
	items, err := m.gateway.Read(ctx, id.ID, m.policy.Collection)
	m.loading.Add(-1)
	if err != nil {
		slog.Error("MANAGER: Failed to fetch collection", "collection", m.policy.Collection, "user_id", id.ID, "error", err)
		span.RecordError(err)
		items = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		slog.Info("MANAGER: Discarding stale fetch", "collection", m.policy.Collection, "user_id", id.ID)
		return
	}
	m.items = append([]Item(nil), items...)
	span.SetAttributes(attribute.Int("items", len(m.items)))
	slog.Info("MANAGER: Collection loaded", "collection", m.policy.Collection, "user_id", id.ID, "items", len(m.items))
}

// Reset forgets the identity and the collection.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = nil
	m.items = nil
	m.generation++
}

// Add merges item into the entry with the same (name, store) or appends it.
func (m *Manager) Add(ctx context.Context, item Item) (Result, error) {
	return m.mutate(ctx, OpAdd, item, func(items []Item) ([]Item, Result, remoteWrite) {
		idx := indexOf(items, item, MatchKey)
		if idx < 0 {
			return append(items, item),
				Result{Key: item.Key(), After: itemPtr(item), index: len(items)},
				m.mergeOne(item)
		}

		existing := items[idx]
		merged := existing
		merged.Count += item.Count
		if m.policy.AccumulateCost {
			merged.Cost += item.Cost
		}
		items[idx] = merged

		write := m.mergeOne(item)
		if m.policy.UpsertOnMergeHit {
			write = m.upsertOne(merged)
		}
		return items, Result{Key: item.Key(), Before: itemPtr(existing), After: itemPtr(merged), index: idx}, write
	})
}

// Update replaces the entry selected by the policy's UpdateMatch. A count of zero is kept;
// deciding what to do with an empty entry is up to the caller.
func (m *Manager) Update(ctx context.Context, item Item) (Result, error) {
	return m.mutate(ctx, OpUpdate, item, m.stageUpdate(item))
}

func (m *Manager) Increment(ctx context.Context, item Item) (Result, error) {
	item.Count++
	return m.mutate(ctx, OpIncrement, item, m.stageUpdate(item))
}

// Decrement does not guard against negative counts.
func (m *Manager) Decrement(ctx context.Context, item Item) (Result, error) {
	item.Count--
	return m.mutate(ctx, OpDecrement, item, m.stageUpdate(item))
}

// Delete removes the entry with item's (name, store). Deleting an absent key changes nothing
// locally but still issues the remote delete.
func (m *Manager) Delete(ctx context.Context, item Item) (Result, error) {
	return m.mutate(ctx, OpDelete, item, func(items []Item) ([]Item, Result, remoteWrite) {
		write := func(ctx context.Context, userID string) error {
			return m.gateway.RemoveOne(ctx, userID, m.policy.Collection, item)
		}
		idx := indexOf(items, item, MatchKey)
		if idx < 0 {
			return items, Result{Key: item.Key(), index: -1}, write
		}
		before := items[idx]
		items = append(items[:idx], items[idx+1:]...)
		return items, Result{Key: item.Key(), Before: itemPtr(before), index: idx}, write
	})
}

// DeleteAll deletes each item in turn. It stops at ErrNoSession and otherwise joins the
// remote failures.
func (m *Manager) DeleteAll(ctx context.Context, items []Item) ([]Result, error) {
	results := make([]Result, 0, len(items))
	var errs []error
	for _, it := range items {
		res, err := m.Delete(ctx, it)
		if errors.Is(err, ErrNoSession) {
			return results, err
		}
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// Revert undoes the local effect of res for its entry. It does not touch the gateway.
func (m *Manager) Revert(res Result) bool {
	if !res.Changed() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if res.After != nil {
		if idx := indexOf(m.items, *res.After, MatchKey); idx >= 0 {
			if res.Before != nil {
				m.items[idx] = *res.Before
			} else {
				m.items = append(m.items[:idx], m.items[idx+1:]...)
			}
			return true
		}
	}
	if res.Before == nil {
		return false
	}

	at := res.index
	if at < 0 || at > len(m.items) {
		at = len(m.items)
	}
	m.items = append(m.items, Item{})
	copy(m.items[at+1:], m.items[at:])
	m.items[at] = *res.Before
	return true
}

func (m *Manager) stageUpdate(item Item) stageFunc {
	match := m.policy.UpdateMatch
	return func(items []Item) ([]Item, Result, remoteWrite) {
		write := m.replaceOne(item, match)
		idx := indexOf(items, item, match)
		if idx < 0 {
			return items, Result{Key: item.Key(), index: -1}, write
		}
		before := items[idx]
		items[idx] = item
		return items, Result{Key: item.Key(), Before: itemPtr(before), After: itemPtr(item), index: idx}, write
	}
}

func (m *Manager) mergeOne(item Item) remoteWrite {
	return func(ctx context.Context, userID string) error {
		return m.gateway.MergeOne(ctx, userID, m.policy.Collection, item)
	}
}

func (m *Manager) replaceOne(item Item, match MatchFunc) remoteWrite {
	return func(ctx context.Context, userID string) error {
		return m.gateway.ReplaceOne(ctx, userID, m.policy.Collection, item, match)
	}
}

func (m *Manager) upsertOne(item Item) remoteWrite {
	return func(ctx context.Context, userID string) error {
		return m.gateway.UpsertOne(ctx, userID, m.policy.Collection, item, MatchKey)
	}
}

func (m *Manager) mutate(ctx context.Context, op Op, item Item, stage stageFunc) (Result, error) {
	ctx, span := m.tracer.Start(ctx, "Manager."+string(op), trace.WithAttributes(
		attribute.String("collection", m.policy.Collection),
		attribute.String("item.key", item.Key().String()),
	))
	defer span.End()

	m.mu.Lock()
	if m.identity == nil {
		m.mu.Unlock()
		span.SetStatus(codes.Error, ErrNoSession.Error())
		return Result{Op: op, Collection: m.policy.Collection, Key: item.Key(), index: -1}, ErrNoSession
	}
	userID := m.identity.ID
	next, res, write := stage(m.items)
	m.items = next
	m.mu.Unlock()

	res.Op = op
	res.Collection = m.policy.Collection
	res.Outcome = OutcomePending

	m.loading.Add(1)
	err := write(ctx, userID)
	m.loading.Add(-1)

	if err != nil {
		res.Outcome = OutcomeRemoteFailed
		res.Err = fmt.Errorf("%s %s %s: %w", m.policy.Collection, op, res.Key, err)
		slog.Error("MANAGER: Remote write failed; local change kept",
			"collection", m.policy.Collection, "op", op, "key", res.Key.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote write failed")
		m.remoteFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", m.policy.Collection),
			attribute.String("op", string(op)),
		))
	} else {
		res.Outcome = OutcomeApplied
	}

	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collection", m.policy.Collection),
		attribute.String("op", string(op)),
		attribute.String("outcome", res.Outcome.String()),
	))
	m.record(ctx, userID, res)

	return res, res.Err
}

func (m *Manager) record(ctx context.Context, userID string, res Result) {
	entry := pantrypal.NewMutationLog(userID, res.Collection, string(res.Op), res.Key.String())
	if res.Before != nil {
		entry.Before = *res.Before
	}
	if res.After != nil {
		entry.After = *res.After
	}
	entry.Outcome = res.Outcome.String()
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := m.logger.LogMutation(entry); err != nil {
		slog.Error("MANAGER: Failed to log mutation", "error", err, "op", res.Op)
	}

	if m.notifier == nil {
		return
	}
	change := Change{
		UserID:     userID,
		Collection: res.Collection,
		Op:         res.Op,
		Key:        res.Key.String(),
		Item:       res.After,
		Outcome:    res.Outcome.String(),
	}
	if err := m.notifier.Publish(ctx, change); err != nil {
		slog.Warn("MANAGER: Failed to publish change", "error", err, "op", res.Op, "key", change.Key)
	}
}

func indexOf(items []Item, target Item, match MatchFunc) int {
	for i, it := range items {
		if match(it, target) {
			return i
		}
	}
	return -1
}
