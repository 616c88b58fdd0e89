package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal"
	"pantrypal/inventory"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewFileStore(root)

	_, err := fs.Get(ctx, pantrypal.CollectionPantries, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	data := []byte(`{"pantry":[]}`)
	require.NoError(t, fs.Put(ctx, pantrypal.CollectionPantries, "u1", data))

	onDisk, err := os.ReadFile(filepath.Join(root, "pantries", "u1.json"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	got, err := fs.Get(ctx, pantrypal.CollectionPantries, "u1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileStore_RejectsPathSegments(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		err := fs.Put(context.Background(), pantrypal.CollectionCarts, id, []byte(`{}`))
		assert.ErrorIs(t, err, ErrInvalidUserID, "id %q", id)
	}
}

func TestFileStore_WithGateway(t *testing.T) {
	ctx := context.Background()
	g := New(NewFileStore(t.TempDir()))

	require.NoError(t, g.MergeOne(ctx, "u1", pantrypal.CollectionCarts, inventory.Item{Name: "apples", Store: "Aldi", Count: 3, Cost: 120}))
	items, err := g.Read(ctx, "u1", pantrypal.CollectionCarts)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{{Name: "apples", Store: "Aldi", Count: 3, Cost: 120}}, items)
}
