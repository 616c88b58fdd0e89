package inventory

import "pantrypal"

// MatchFunc reports whether an existing entry is the one a target item refers to.
type MatchFunc func(existing, target Item) bool

// MatchKey matches on the full (name, store) merge key.
func MatchKey(existing, target Item) bool { return existing.Key() == target.Key() }

// MatchName matches on name alone.
func MatchName(existing, target Item) bool { return existing.Name == target.Name }

// Policy captures the behavioral differences between the pantry and the cart.
type Policy struct {
	// Collection is the document store collection name.
	Collection string

	// AccumulateCost adds the incoming cost to the existing entry when Add merges.
	AccumulateCost bool

	// UpdateMatch selects the entry Update replaces, both locally and remotely.
	UpdateMatch MatchFunc

	// UpsertOnMergeHit writes the locally merged entry with UpsertOne when Add hits an
	// existing key, instead of asking the gateway to merge the raw item. The entry is
	// recreated remotely when the stored copy has lost it.
	UpsertOnMergeHit bool

	// MinCount is the smallest count a new item may carry.
	MinCount int
}

// PantryPolicy: Update matches by name only and Add never accumulates cost.
var PantryPolicy = Policy{
	Collection:     pantrypal.CollectionPantries,
	AccumulateCost: false,
	UpdateMatch:    MatchName,
	MinCount:       0,
}

var CartPolicy = Policy{
	Collection:        pantrypal.CollectionCarts,
	AccumulateCost:    true,
	UpdateMatch:       MatchKey,
	UpsertOnMergeHit:  true,
	MinCount:          1,
}
