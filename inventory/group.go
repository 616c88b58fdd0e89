package inventory

// StoreGroup is the cart's items for one store with their subtotal.
type StoreGroup struct {
	Store string
	Items []Item
	Total Money
}

// GroupByStore buckets items by store in first-seen order.
func GroupByStore(items []Item) []StoreGroup {
	groups := make([]StoreGroup, 0)
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.Store]
		if !ok {
			i = len(groups)
			index[it.Store] = i
			groups = append(groups, StoreGroup{Store: it.Store})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].Total += it.Subtotal()
	}
	return groups
}

// GrandTotal sums every group's total.
func GrandTotal(groups []StoreGroup) Money {
	var total Money
	for _, g := range groups {
		total += g.Total
	}
	return total
}
