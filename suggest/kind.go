// Package suggest asks a text generator for recipes, healthier alternatives and complementary
// shopping items, and turns its untrusted reply into typed values.
package suggest

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown suggestion kind")

// Kind selects the prompt and the shape of the expected answer.
type Kind string

const (
	KindRecipe    Kind = "recipe"
	KindHealthier Kind = "healthier"
	KindShopping  Kind = "shopping"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRecipe, KindHealthier, KindShopping:
		return k, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
