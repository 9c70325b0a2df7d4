package fetchxml

import "sort"

// SortItems stably reorders a container's items into the fixed bucket
// order §4.2 requires — attributes, then filter, then link-entity, then
// order — to match the form readers the data platform's tooling expects.
// Relative order within a bucket is preserved (stable sort).
func SortItems(c AttributeContainer) {
	items := c.itemsSlice()
	sort.SliceStable(*items, func(i, j int) bool {
		return (*items)[i].itemOrder() < (*items)[j].itemOrder()
	})
}

// SortDocument walks the whole tree and stably sorts every container's
// items, recursing into link-entities.
func SortDocument(fx *Fetch) {
	if fx.Entity == nil {
		return
	}
	sortContainer(fx.Entity)
}

func sortContainer(c AttributeContainer) {
	SortItems(c)
	for _, it := range *c.itemsSlice() {
		if l, ok := it.(*LinkEntity); ok {
			sortContainer(l)
		}
	}
}
