package app

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"pantrypal/inventory"
)

// Fixture is a YAML seed file:
//
//	pantry:
//	  - {name: rice, store: Aldi, count: 2, cost: "1.99"}
//	cart:
//	  - {name: milk, store: Aldi, count: 1, cost: 0.89}
type Fixture struct {
	Pantry []FixtureItem `yaml:"pantry"`
	Cart   []FixtureItem `yaml:"cart"`
}

type FixtureItem struct {
	Name  string `yaml:"name"`
	Store string `yaml:"store"`
	Count int    `yaml:"count"`
	Cost  string `yaml:"cost"`
}

func LoadFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, nil
}

// Items converts and validates both lists. Rows sharing a (name, store) are merged the way the
// collection's Add merges them. A list absent from the file comes back nil.
func (fx Fixture) Items() (pantry, cart []inventory.Item, err error) {
	if pantry, err = convert(fx.Pantry, inventory.PantryPolicy); err != nil {
		return nil, nil, fmt.Errorf("pantry: %w", err)
	}
	if cart, err = convert(fx.Cart, inventory.CartPolicy); err != nil {
		return nil, nil, fmt.Errorf("cart: %w", err)
	}
	return pantry, cart, nil
}

func convert(rows []FixtureItem, policy inventory.Policy) ([]inventory.Item, error) {
	if rows == nil {
		return nil, nil
	}
	items := make([]inventory.Item, 0, len(rows))
	index := make(map[inventory.Key]int, len(rows))
	for i, r := range rows {
		var cost inventory.Money
		if r.Cost != "" {
			c, err := inventory.ParseMoney(r.Cost)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			cost = c
		}
		it := inventory.Item{Name: r.Name, Store: r.Store, Count: r.Count, Cost: cost}
		if err := it.Validate(policy.MinCount); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		at, ok := index[it.Key()]
		if !ok {
			index[it.Key()] = len(items)
			items = append(items, it)
			continue
		}
		items[at].Count += it.Count
		if policy.AccumulateCost {
			items[at].Cost += it.Cost
		}
	}
	return items, nil
}
