package fetchxml

// NewFilter returns a filter in the indeterminate state described in §3:
// the marker used while the first AND/OR under it has not yet been seen.
func NewFilter() *Filter {
	return &Filter{Type: FilterIndeterminate}
}

// Add appends a child item (Condition or nested *Filter) directly, without
// touching Type. Callers that know the connective up front (e.g. a single
// comparison under a fresh filter) use this; AND/OR sequencing logic lives
// in the predicate package, which owns the §4.4 protocol.
func (f *Filter) Add(item Item) {
	f.Items = append(f.Items, item)
}

// Resolve finalizes an indeterminate filter to "and", per §4.5 step 2:
// "finalize to and if still indeterminate."
func (f *Filter) Resolve() {
	if f.Type == FilterIndeterminate {
		f.Type = FilterAnd
	}
}

// PruneEmptyFilters recursively removes filters that are empty after their
// children have themselves been pruned (§4.2 invariant), and reports
// whether f itself is now empty.
func PruneEmptyFilters(f *Filter) bool {
	kept := f.Items[:0]
	for _, it := range f.Items {
		if child, ok := it.(*Filter); ok {
			if PruneEmptyFilters(child) {
				continue
			}
		}
		kept = append(kept, it)
	}
	f.Items = kept
	return len(f.Items) == 0
}

// pruneContainerFilters walks a container's items, pruning and then
// removing any Filter that ended up empty.
func pruneContainerFilters(c AttributeContainer) {
	items := c.itemsSlice()
	kept := (*items)[:0]
	for _, it := range *items {
		if f, ok := it.(*Filter); ok {
			if PruneEmptyFilters(f) {
				continue
			}
		}
		if l, ok := it.(*LinkEntity); ok {
			pruneContainerFilters(l)
		}
		kept = append(kept, it)
	}
	*items = kept
}

// PruneEmpty walks the whole document, recursively removing empty filters
// from every entity/link-entity.
func (fx *Fetch) PruneEmpty() {
	if fx.Entity == nil {
		return
	}
	pruneContainerFilters(fx.Entity)
}
