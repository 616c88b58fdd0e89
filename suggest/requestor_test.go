package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrypal/inventory"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []Prompt
}

func (f *fakeGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.reply, f.err
}

func TestRequestor_Recipe(t *testing.T) {
	gen := &fakeGenerator{reply: `{"name":"Omelette","description":"d","servings":"1","prep-time":"5m","cook-time":"5m","ingredients":["eggs"],"instructions":["whisk"]}`}
	r := NewRequestor(gen)

	recipe, err := r.Recipe(context.Background(), []inventory.Item{{Name: "eggs", Count: 3, Store: "Aldi"}})
	require.NoError(t, err)
	assert.Equal(t, "Omelette", recipe.Name)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, KindRecipe, gen.prompts[0].Kind)
	assert.Contains(t, gen.prompts[0].User, "eggs - (Count 3)")
}

func TestRequestor_RecipeWithoutItems(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := NewRequestor(gen).Recipe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSuggestion)
	assert.Empty(t, gen.prompts)
}

func TestRequestor_Items(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: `[{"name":"Kale","cost":"2.00","count":1,"store":"Aldi"}]`}
	r := NewRequestor(gen)

	alts, err := r.Alternatives(ctx, []string{"chips-Aldi"})
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{{Name: "Kale", Count: 1, Cost: 200, Store: "Aldi"}}, alts)

	_, err = r.Complements(ctx, []string{"pasta-Lidl"})
	require.NoError(t, err)

	require.Len(t, gen.prompts, 2)
	assert.Equal(t, KindHealthier, gen.prompts[0].Kind)
	assert.Equal(t, KindShopping, gen.prompts[1].Kind)

	_, err = r.Complements(ctx, nil)
	assert.ErrorIs(t, err, ErrNoSuggestion)
	assert.Len(t, gen.prompts, 2)
}

func TestRequestor_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	_, err := NewRequestor(&fakeGenerator{err: boom}).Alternatives(ctx, []string{"a-b"})
	require.ErrorIs(t, err, boom)
	assert.True(t, IsGenerateError(err))
	assert.False(t, IsParseError(err))

	_, err = NewRequestor(&fakeGenerator{reply: "```json\n[{oops\n```"}).Alternatives(ctx, []string{"a-b"})
	assert.True(t, IsParseError(err))
	assert.False(t, IsGenerateError(err))

	_, err = NewRequestor(&fakeGenerator{reply: "null"}).Alternatives(ctx, []string{"a-b"})
	assert.ErrorIs(t, err, ErrNoSuggestion)
	assert.False(t, IsParseError(err))
}
