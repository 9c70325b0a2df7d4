// Package fetchxml implements the mutable document tree that mirrors the
// data platform's native FetchXML query dialect (spec.md §3, §4.2).
package fetchxml

// JoinType is the supported qualified-join kind for a LinkEntity.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinOuter JoinType = "outer"
)

// FilterType is and/or, or the transient indeterminate state a freshly
// opened filter starts in until its first child AND/OR is seen (§3).
type FilterType string

const (
	FilterAnd           FilterType = "and"
	FilterOr            FilterType = "or"
	FilterIndeterminate FilterType = "indeterminate"
)

// Item is any child of an Entity, LinkEntity, or Filter: Attribute,
// AllAttributes, Order, Filter, or LinkEntity.
type Item interface {
	itemOrder() int // fixed sort key, see sortItems
}

// Fetch is the document root.
type Fetch struct {
	Distinct      bool
	Top           *int
	Count         *int
	Page          *int
	NoLock        bool
	Aggregate     bool
	PagingCookie  string
	Entity        *Entity
}

// Entity is the root entity of the query.
type Entity struct {
	Name  string
	Items []Item
}

// LinkEntity is a joined, non-root entity table.
type LinkEntity struct {
	Name     string
	Alias    string
	From     string
	To       string
	LinkType JoinType
	Items    []Item
}

func (*LinkEntity) itemOrder() int { return 2 }

// Attribute is a single selected/grouped/aggregated column.
type Attribute struct {
	Name         string
	Alias        string
	Aggregate    string // "", "count", "countcolumn", "avg", "min", "max", "sum"
	Distinct     bool
	DateGrouping string // "", "year", "quarter", "month", "week", "day", "fiscalperiod", "fiscalyear"
	GroupBy      bool

	// AggregateSpecified/DateGroupingSpecified distinguish "not present"
	// from "present but false/empty" when serializing to XML (§6.3).
	AggregateSpecified    bool
	DateGroupingSpecified bool
}

func (*Attribute) itemOrder() int { return 0 }

// AllAttributes is the <all-attributes/> marker item.
type AllAttributes struct{}

func (*AllAttributes) itemOrder() int { return 0 }

// Order is an <order> item.
type Order struct {
	Attribute  string // plain attribute name
	Alias      string // aggregate alias, mutually exclusive with Attribute
	Descending bool
}

func (*Order) itemOrder() int { return 3 }

// Filter is a <filter> item; Type starts Indeterminate and resolves to And
// or Or as soon as the first logical connective under it is seen (§4.4).
type Filter struct {
	Type  FilterType
	Items []Item // Condition or nested *Filter
}

func (*Filter) itemOrder() int { return 1 }

// Condition is a leaf <condition> under a Filter.
type Condition struct {
	EntityName string // alias of the owning table, when not the root
	Attribute  string
	Operator   string
	Value      *string  // single literal parameter
	Values     []string // IN-list values
}

func (*Condition) itemOrder() int { return -1 } // conditions aren't top-level Items but satisfy the interface for reuse

// NewFetch builds an empty Fetch over the given root entity name.
func NewFetch(rootEntity string) *Fetch {
	return &Fetch{Entity: &Entity{Name: rootEntity}}
}
