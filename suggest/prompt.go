package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrypal/inventory"
)

// MaxItems is the most alternatives or complements a reply may carry.
const MaxItems = 3

// Prompt is what a Generator sends to its model. System carries the role and the output
// contract, User the item descriptors.
type Prompt struct {
	Kind   Kind
	System string
	User   string
}

// Text flattens the prompt for generators without a separate system channel.
func (p Prompt) Text() string {
	return p.System + "\n\n" + p.User
}

var recipeSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"name":         {Type: "string"},
		"description":  {Type: "string"},
		"servings":     {Type: "string", Description: "Number of servings"},
		"prep-time":    {Type: "string", Description: "Preparation time"},
		"cook-time":    {Type: "string", Description: "Cooking time"},
		"ingredients":  {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		"instructions": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
	},
	Required: []string{"name", "description", "servings", "prep-time", "cook-time", "ingredients", "instructions"},
}

var minCount = 1.0

var itemListSchema = &jsonschema.Schema{
	Type: "array",
	Items: &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":  {Type: "string"},
			"cost":  {Type: "string", Description: "Unit cost with two decimals, e.g. 10.00"},
			"count": {Type: "integer", Minimum: &minCount},
			"store": {Type: "string", Description: "Store of the item provided"},
		},
		Required: []string{"name", "cost", "count", "store"},
	},
}

const (
	recipeInstructions = `You are a master chef. Provide a recipe using the following ingredients. You don't have to use all of them, but take their counts into account. Feel free to include common items like spices, water or butter. Reply with a single JSON object matching this schema and nothing else:`

	healthierInstructions = `You are a nutritionist. Provide up to %d healthier alternatives for the following ingredients, given in the form ingredient-store. If no valid ingredients are provided, reply with just the word null. Otherwise reply with a JSON array matching this schema and nothing else:`

	shoppingInstructions = `You are a chef. Suggest up to %d shopping items that complement the following ingredients, given in the form ingredient-store. If no valid ingredients are provided, reply with just the word null. Otherwise reply with a JSON array matching this schema and nothing else:`
)

// NewPrompt builds the prompt for kind over the given descriptors.
func NewPrompt(kind Kind, descriptors []string) (Prompt, error) {
	var instructions string
	var schema *jsonschema.Schema
	switch kind {
	case KindRecipe:
		instructions, schema = recipeInstructions, recipeSchema
	case KindHealthier:
		instructions, schema = fmt.Sprintf(healthierInstructions, MaxItems), itemListSchema
	case KindShopping:
		instructions, schema = fmt.Sprintf(shoppingInstructions, MaxItems), itemListSchema
	default:
		return Prompt{}, fmt.Errorf("unknown suggestion kind %q", kind)
	}

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to marshal %s schema: %w", kind, err)
	}

	return Prompt{
		Kind:   kind,
		System: instructions + "\n" + string(schemaJSON),
		User:   "Here are the ingredients: " + strings.Join(descriptors, ", "),
	}, nil
}

// RecipeDescriptors renders items as "name - (Count n)".
func RecipeDescriptors(items []inventory.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s - (Count %d)", it.Name, it.Count))
	}
	return out
}
