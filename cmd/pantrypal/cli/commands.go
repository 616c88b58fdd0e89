package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pantrypal"
	"pantrypal/app"
	"pantrypal/inventory"
)

type itemFlags struct {
	name  string
	store string
	count int
	cost  string
}

func (f *itemFlags) register(cmd *cobra.Command, withValues bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "Item name")
	cmd.Flags().StringVar(&f.store, "store", "", "Store the item is bought at")
	_ = cmd.MarkFlagRequired("name")
	if withValues {
		cmd.Flags().IntVar(&f.count, "count", 1, "Item count")
		cmd.Flags().StringVar(&f.cost, "cost", "0", "Unit cost, e.g. 3.49")
	}
}

func (f *itemFlags) item() (inventory.Item, error) {
	cost, err := inventory.ParseMoney(f.cost)
	if err != nil {
		return inventory.Item{}, err
	}
	return inventory.Item{Name: f.name, Store: f.store, Count: f.count, Cost: cost}, nil
}

// parseKey reads "name@store". The store part may be empty.
func parseKey(s string) inventory.Key {
	name, store, _ := strings.Cut(s, "@")
	return inventory.Key{Name: strings.TrimSpace(name), Store: strings.TrimSpace(store)}
}

// selectItems resolves keys against the loaded collection. No keys selects everything.
func selectItems(items []inventory.Item, keys []string) ([]inventory.Item, error) {
	if len(keys) == 0 {
		return items, nil
	}
	sel := inventory.NewSelection()
	for _, s := range keys {
		k := parseKey(s)
		if !sel.Has(k) {
			sel.Toggle(k)
		}
	}
	picked := sel.Filter(items)
	if len(picked) != sel.Len() {
		return nil, fmt.Errorf("selection %v does not match the loaded items", sel.Strings())
	}
	return picked, nil
}

func collectionCmd(e *env, use, collection string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage the %s", use),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, app.Request{Action: app.ActionList, Collection: collection})
		},
	})

	mutations := []struct {
		use, short, action string
		withValues         bool
	}{
		{"add", "Add an item", app.ActionAdd, true},
		{"update", "Replace an item", app.ActionUpdate, true},
		{"delete", "Delete an item", app.ActionDelete, false},
		{"inc", "Increase an item's count by one", app.ActionIncrement, false},
		{"dec", "Decrease an item's count by one", app.ActionDecrement, false},
	}
	for _, m := range mutations {
		flags := &itemFlags{}
		sub := &cobra.Command{
			Use:   m.use,
			Short: m.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				item, err := flags.item()
				if err != nil {
					return err
				}
				if m.action == app.ActionIncrement || m.action == app.ActionDecrement {
					item = lookup(e, collection, item)
				}
				return e.run(cmd, app.Request{Action: m.action, Collection: collection, Item: &item})
			},
		}
		flags.register(sub, m.withValues)
		cmd.AddCommand(sub)
	}

	var keys []string
	deleteAll := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete the selected items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(keys) == 0 {
				return fmt.Errorf("at least one --item is required")
			}
			m, err := e.app.Manager(collection)
			if err != nil {
				return err
			}
			items, err := selectItems(m.Items(), keys)
			if err != nil {
				return err
			}
			return e.run(cmd, app.Request{Action: app.ActionDeleteAll, Collection: collection, Items: items})
		},
	}
	deleteAll.Flags().StringSliceVar(&keys, "item", nil, "Item to delete as name@store (repeatable)")
	cmd.AddCommand(deleteAll)

	if collection == pantrypal.CollectionCarts {
		cmd.AddCommand(&cobra.Command{
			Use:   "totals",
			Short: "Show the cart grouped by store with totals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.run(cmd, app.Request{Action: app.ActionTotals})
			},
		})
	}
	return cmd
}

// lookup returns the loaded entry for item's key so count changes start from the stored
// count. Unknown keys are returned as given.
func lookup(e *env, collection string, item inventory.Item) inventory.Item {
	m, err := e.app.Manager(collection)
	if err != nil {
		return item
	}
	if found, ok := m.Find(item.Key()); ok {
		return found
	}
	return item
}

func transferCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move items between the pantry and the cart",
	}

	var (
		name, store string
		quantity    int
	)
	toCart := &cobra.Command{
		Use:   "to-cart",
		Short: "Move a pantry item into the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			item := lookup(e, pantrypal.CollectionPantries, inventory.Item{Name: name, Store: store})
			return e.run(cmd, app.Request{Action: app.ActionToCart, Item: &item, Quantity: quantity})
		},
	}
	toCart.Flags().StringVar(&name, "name", "", "Pantry item name")
	toCart.Flags().StringVar(&store, "store", "", "Pantry item store")
	toCart.Flags().IntVar(&quantity, "quantity", 1, "Count to put in the cart")
	_ = toCart.MarkFlagRequired("name")

	var keys []string
	toPantry := &cobra.Command{
		Use:   "to-pantry",
		Short: "Move cart items into the pantry (all items when none are selected)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := selectItems(e.app.Cart.Items(), keys)
			if err != nil {
				return err
			}
			return e.run(cmd, app.Request{Action: app.ActionToPantry, Items: items})
		},
	}
	toPantry.Flags().StringSliceVar(&keys, "item", nil, "Cart item as name@store (repeatable)")

	cmd.AddCommand(toCart, toPantry)
	return cmd
}

func suggestCmd(e *env) *cobra.Command {
	var keys []string
	cmd := &cobra.Command{
		Use:       "suggest {recipe|healthier|shopping}",
		Short:     "Ask the model for a recipe or for items to add to the cart",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"recipe", "healthier", "shopping"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := e.app.Cart.Items()
			if args[0] == "recipe" {
				source = e.app.Pantry.Items()
			}
			items, err := selectItems(source, keys)
			if err != nil {
				return err
			}
			return e.run(cmd, app.Request{Action: app.ActionSuggest, Kind: args[0], Items: items})
		},
	}
	cmd.Flags().StringSliceVar(&keys, "item", nil, "Item as name@store (repeatable); defaults to every item")
	return cmd
}

func importCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Replace both collections with the contents of a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fx, err := app.LoadFixture(f)
			if err != nil {
				return err
			}
			if err := e.app.Import(cmd.Context(), fx); err != nil {
				return err
			}
			return e.run(cmd, app.Request{Action: app.ActionTotals})
		},
	}
}

func notifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Post the cart as a shopping list to Slack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, app.Request{Action: app.ActionNotify})
		},
	}
}
