package inventory

// Selection is a set of merge keys chosen for a batch operation. Keys are reported in the
// order they were selected.
type Selection struct {
	keys  map[Key]struct{}
	order []Key
}

func NewSelection(keys ...Key) *Selection {
	s := &Selection{keys: make(map[Key]struct{})}
	for _, k := range keys {
		if !s.Has(k) {
			s.add(k)
		}
	}
	return s
}

// Toggle adds k if absent and removes it if present. It returns whether k is now selected.
func (s *Selection) Toggle(k Key) bool {
	if s.Has(k) {
		delete(s.keys, k)
		for i, o := range s.order {
			if o == k {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.add(k)
	return true
}

func (s *Selection) Has(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

func (s *Selection) Len() int { return len(s.keys) }

func (s *Selection) Clear() {
	s.keys = make(map[Key]struct{})
	s.order = nil
}

func (s *Selection) Keys() []Key {
	return append([]Key(nil), s.order...)
}

// Strings renders the selected keys as "name-store" tokens.
func (s *Selection) Strings() []string {
	out := make([]string, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, k.String())
	}
	return out
}

// Filter returns the items whose key is selected, in collection order.
func (s *Selection) Filter(items []Item) []Item {
	out := make([]Item, 0, len(s.keys))
	for _, it := range items {
		if s.Has(it.Key()) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Selection) add(k Key) {
	if s.keys == nil {
		s.keys = make(map[Key]struct{})
	}
	s.keys[k] = struct{}{}
	s.order = append(s.order, k)
}
