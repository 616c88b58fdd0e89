package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal"
	"pantrypal/inventory"
)

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	store := NewMemoryStore()
	g := Instrument(New(store), m)

	it := inventory.Item{Name: "salt", Store: "Lidl", Count: 1}
	require.NoError(t, g.MergeOne(ctx, "u1", pantrypal.CollectionCarts, it))
	require.NoError(t, g.ReplaceOne(ctx, "u1", pantrypal.CollectionCarts, it, inventory.MatchKey))
	require.NoError(t, g.UpsertOne(ctx, "u1", pantrypal.CollectionCarts, it, inventory.MatchKey))
	_, err = g.Read(ctx, "u1", pantrypal.CollectionCarts)
	require.NoError(t, err)

	store.SetPutErr(errors.New("disk full"))
	require.Error(t, g.RemoveOne(ctx, "u1", pantrypal.CollectionCarts, it))
	require.Error(t, g.WriteAll(ctx, "u1", pantrypal.CollectionCarts, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("merge_one", "carts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("replace_one", "carts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("upsert_one", "carts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("read", "carts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("remove_one", "carts", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("write_all", "carts", "error")))
	assert.Equal(t, 6, testutil.CollectAndCount(m.duration))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
