package fetchxml

// AttributeContainer is implemented by Entity and LinkEntity: the node that
// owns an Items slice and is the authoritative home for attributes, orders,
// filters, and child link-entities rooted at one table (§3).
type AttributeContainer interface {
	itemsSlice() *[]Item
	containerName() string
}

func (e *Entity) itemsSlice() *[]Item  { return &e.Items }
func (e *Entity) containerName() string { return e.Name }

func (l *LinkEntity) itemsSlice() *[]Item  { return &l.Items }
func (l *LinkEntity) containerName() string { return l.Alias }

// EnsureAttribute adds a plain Attribute with the given name unless an
// alias-free Attribute of that name or <all-attributes/> is already
// present, returning whether one was. This is
// the "Add the attribute... unless already requested" rule used throughout
// scalar/predicate lowering (§4.3).
func EnsureAttribute(c AttributeContainer, name string) (alreadyPresent bool) {
	items := c.itemsSlice()
	for _, it := range *items {
		switch a := it.(type) {
		case *Attribute:
			if a.Name == name && a.Alias == "" {
				return true
			}
		case *AllAttributes:
			return true
		}
	}
	*items = append(*items, &Attribute{Name: name})
	return false
}

// HasAllAttributes reports whether the container already selects every
// readable attribute.
func HasAllAttributes(c AttributeContainer) bool {
	for _, it := range *c.itemsSlice() {
		if _, ok := it.(*AllAttributes); ok {
			return true
		}
	}
	return false
}

// EnsureAllAttributes adds the <all-attributes/> marker item unless it is
// already present.
func EnsureAllAttributes(c AttributeContainer) {
	if HasAllAttributes(c) {
		return
	}
	*c.itemsSlice() = append(*c.itemsSlice(), &AllAttributes{})
}

// AddAttribute appends an arbitrary, already-constructed Attribute (used for
// aggregates/date-grouped columns, which carry more than a bare name).
func AddAttribute(c AttributeContainer, a *Attribute) {
	*c.itemsSlice() = append(*c.itemsSlice(), a)
}

// FindAttributeByName looks for a previously declared plain Attribute item
// by logical name, used to discover whether an earlier clause already
// requested (and possibly aliased) the attribute a later clause needs.
func FindAttributeByName(c AttributeContainer, name string) (*Attribute, bool) {
	for _, it := range *c.itemsSlice() {
		if a, ok := it.(*Attribute); ok && a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// FindAttributeAlias looks for a previously declared Attribute alias within
// this container, used by single-part column resolution (§4.1: "every
// table's already-declared FetchXML attribute aliases").
func FindAttributeAlias(c AttributeContainer, alias string) (*Attribute, bool) {
	for _, it := range *c.itemsSlice() {
		if a, ok := it.(*Attribute); ok && a.Alias == alias {
			return a, true
		}
	}
	return nil, false
}

// AddOrder appends an Order item, reusing an existing one over the same
// attribute/alias if present (§4.5 ORDER BY: "reused if a sort already
// exists").
func AddOrder(c AttributeContainer, o *Order) (reused bool) {
	for _, it := range *c.itemsSlice() {
		if existing, ok := it.(*Order); ok {
			if existing.Attribute != "" && existing.Attribute == o.Attribute {
				return true
			}
			if existing.Alias != "" && existing.Alias == o.Alias {
				return true
			}
		}
	}
	*c.itemsSlice() = append(*c.itemsSlice(), o)
	return false
}

// HasOrder reports whether this container already carries at least one
// Order item.
func HasOrder(c AttributeContainer) bool {
	for _, it := range *c.itemsSlice() {
		if _, ok := it.(*Order); ok {
			return true
		}
	}
	return false
}

// RootFilter returns the container's top-level Filter, creating one of
// indeterminate type if none exists yet.
func RootFilter(c AttributeContainer) *Filter {
	for _, it := range *c.itemsSlice() {
		if f, ok := it.(*Filter); ok {
			return f
		}
	}
	f := &Filter{Type: FilterIndeterminate}
	*c.itemsSlice() = append(*c.itemsSlice(), f)
	return f
}

// AddLinkEntity appends a child LinkEntity.
func AddLinkEntity(c AttributeContainer, l *LinkEntity) {
	*c.itemsSlice() = append(*c.itemsSlice(), l)
}
