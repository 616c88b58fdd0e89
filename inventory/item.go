// Package inventory keeps a user's pantry and cart collections in memory and mirrors every
// mutation to a document gateway.
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Item is the unit entity of both collections.
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Cost  Money  `json:"cost"`
	Store string `json:"store"`
}

// Key identifies an item within one collection. Two items with the same name but different
// stores are distinct entries.
type Key struct {
	Name  string
	Store string
}

func (i Item) Key() Key { return Key{Name: i.Name, Store: i.Store} }

// String renders the key as "name-store", the token used by selections and prompts.
func (k Key) String() string { return k.Name + "-" + k.Store }

// Subtotal is count × cost.
func (i Item) Subtotal() Money { return i.Cost.Mul(i.Count) }

var ErrInvalidItem = errors.New("invalid item")

// ValidationError lists every field constraint an item violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidItem }

// Validate checks the constraints a form layer enforces before handing an item to a Manager.
// Managers never call it themselves.
func (i Item) Validate(minCount int) error {
	var problems []string
	if strings.TrimSpace(i.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(i.Store) == "" {
		problems = append(problems, "store is required")
	}
	if i.Count < minCount {
		problems = append(problems, fmt.Sprintf("count must be at least %d", minCount))
	}
	if i.Cost < 0 {
		problems = append(problems, "cost must not be negative")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
