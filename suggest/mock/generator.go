package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"pantrypal/suggest"
)

// Generator is a deterministic stand-in for a real model. It answers null when the prompt
// lists no ingredients and otherwise echoes the first ingredient back in a canned reply,
// wrapped in a code fence the way real models tend to.
type Generator struct{}

var _ suggest.Generator = Generator{}

func NewGenerator() Generator { return Generator{} }

func (Generator) Generate(ctx context.Context, prompt suggest.Prompt) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "kind", prompt.Kind)

	first, store := firstIngredient(prompt.User)
	if first == "" {
		return "null", nil
	}

	var reply any
	switch prompt.Kind {
	case suggest.KindRecipe:
		reply = map[string]any{
			"name":         "Simple " + first + " skillet",
			"description":  "A quick one-pan dish built around " + first + ".",
			"servings":     "2",
			"prep-time":    "10 minutes",
			"cook-time":    "20 minutes",
			"ingredients":  []string{first, "olive oil", "salt", "pepper"},
			"instructions": []string{"Prep the " + first + ".", "Cook in a hot pan with oil.", "Season and serve."},
		}
	case suggest.KindHealthier:
		reply = []map[string]any{
			{"name": "whole grain " + first, "cost": "3.49", "count": 1, "store": store},
		}
	default:
		reply = []map[string]any{
			{"name": "fresh herbs", "cost": "1.99", "count": 1, "store": store},
			{"name": "lemons", "cost": "0.79", "count": 2, "store": store},
		}
	}

	b, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

// firstIngredient pulls the first descriptor out of the user message. Recipe descriptors look
// like "rice - (Count 2)", the others like "rice-Aldi".
func firstIngredient(user string) (name, store string) {
	_, list, ok := strings.Cut(user, ":")
	if !ok {
		return "", ""
	}
	first, _, _ := strings.Cut(list, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return "", ""
	}
	if n, _, ok := strings.Cut(first, " - ("); ok {
		return n, ""
	}
	if i := strings.LastIndex(first, "-"); i > 0 {
		return first[:i], first[i+1:]
	}
	return first, ""
}
