package feed

type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

// Run picks the items that become frames. Feed order is trusted as given
// (newest first) and never re-sorted.
//
//   - at least maxItems items: the first maxItems, in order
//   - fewer, repetition allowed: cycle from the start until maxItems entries
//   - fewer, repetition disallowed: every available item
//
// Callers must reject empty feeds before selecting; an empty input yields an
// empty result.
func (s *Selector) Run(items []Item, maxItems int, allowRepetition bool) []Item {
	if maxItems <= 0 || len(items) == 0 {
		return []Item{}
	}

	if len(items) >= maxItems {
		selected := make([]Item, maxItems)
		copy(selected, items[:maxItems])
		return selected
	}

	if !allowRepetition {
		selected := make([]Item, len(items))
		copy(selected, items)
		return selected
	}

	selected := make([]Item, maxItems)
	for i := range selected {
		selected[i] = items[i%len(items)]
	}
	return selected
}
