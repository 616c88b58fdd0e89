package gateway

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal"
	"pantrypal/inventory"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "pantrypal.db")

	st, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Get(ctx, pantrypal.CollectionCarts, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Put(ctx, pantrypal.CollectionCarts, "u1", []byte(`{"cart":[]}`)))
	require.NoError(t, st.Put(ctx, pantrypal.CollectionCarts, "u1", []byte(`{"cart":[1]}`)))

	got, err := st.Get(ctx, pantrypal.CollectionCarts, "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"cart":[1]}`, string(got))

	var rows int
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteStore_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pantrypal.db")

	st, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	g := New(st)
	require.NoError(t, g.MergeOne(ctx, "u1", pantrypal.CollectionPantries, inventory.Item{Name: "oats", Store: "Lidl", Count: 1, Cost: 299}))
	require.NoError(t, st.Close())

	st, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	items, err := New(st).Read(ctx, "u1", pantrypal.CollectionPantries)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{{Name: "oats", Store: "Lidl", Count: 1, Cost: 299}}, items)
}

func TestRebindDollar(t *testing.T) {
	assert.Equal(t,
		`SELECT payload FROM documents WHERE collection = $1 AND user_id = $2`,
		rebindDollar(selectDocument))
	assert.Equal(t, "no placeholders", rebindDollar("no placeholders"))
}
