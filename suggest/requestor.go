package suggest

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pantrypal"
	"pantrypal/inventory"
)

// Requestor builds prompts from collection state, calls the generator and parses its reply.
// It never mutates a collection.
type Requestor struct {
	gen    Generator
	tracer trace.Tracer
}

func NewRequestor(gen Generator) *Requestor {
	return &Requestor{
		gen:    gen,
		tracer: otel.Tracer(pantrypal.TracerNameSuggest),
	}
}

// Recipe asks for a recipe built from items. An empty list yields ErrNoSuggestion without
// calling the generator.
func (r *Requestor) Recipe(ctx context.Context, items []inventory.Item) (Recipe, error) {
	if len(items) == 0 {
		return Recipe{}, ErrNoSuggestion
	}
	raw, err := r.generate(ctx, KindRecipe, RecipeDescriptors(items))
	if err != nil {
		return Recipe{}, err
	}
	recipe, err := ParseRecipe(raw)
	r.logOutcome(KindRecipe, err)
	return recipe, err
}

// Alternatives asks for up to MaxItems healthier replacements for the selected "name-store"
// keys.
func (r *Requestor) Alternatives(ctx context.Context, keys []string) ([]inventory.Item, error) {
	return r.items(ctx, KindHealthier, keys)
}

// Complements asks for up to MaxItems items that go with the selected "name-store" keys.
func (r *Requestor) Complements(ctx context.Context, keys []string) ([]inventory.Item, error) {
	return r.items(ctx, KindShopping, keys)
}

func (r *Requestor) items(ctx context.Context, kind Kind, keys []string) ([]inventory.Item, error) {
	if len(keys) == 0 {
		return nil, ErrNoSuggestion
	}
	raw, err := r.generate(ctx, kind, keys)
	if err != nil {
		return nil, err
	}
	items, err := ParseItems(kind, raw)
	r.logOutcome(kind, err)
	return items, err
}

func (r *Requestor) generate(ctx context.Context, kind Kind, descriptors []string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "Requestor.Generate", trace.WithAttributes(
		attribute.String("suggest.kind", string(kind)),
		attribute.Int("suggest.descriptors", len(descriptors)),
	))
	defer span.End()

	prompt, err := NewPrompt(kind, descriptors)
	if err != nil {
		return "", err
	}

	slog.Info("SUGGEST: Requesting suggestion", "kind", kind, "descriptors", len(descriptors))
	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		slog.Error("SUGGEST: Generator failed", "kind", kind, "error", err)
		return "", &GenerateError{Kind: kind, Err: err}
	}
	span.SetAttributes(attribute.Int("suggest.reply_len", len(raw)))
	return raw, nil
}

func (r *Requestor) logOutcome(kind Kind, err error) {
	switch {
	case err == nil:
		slog.Info("SUGGEST: Suggestion parsed", "kind", kind)
	case errors.Is(err, ErrNoSuggestion):
		slog.Info("SUGGEST: No suggestion available", "kind", kind)
	default:
		slog.Warn("SUGGEST: Unparseable reply", "kind", kind, "error", err)
	}
}
