// Package binder resolves the identifiers a parsed query refers to against
// the set of tables a FROM clause has brought into scope (§4.1). It knows
// nothing about FetchXML or the T-SQL grammar; it only maps identifier
// parts to a table and a typed attribute.
package binder

import (
	"strings"

	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/metadata"
)

// Table is one FROM-clause entry (root entity or link-entity) as seen by
// the binder. compiler.EntityTable implements this; the binder never
// depends on compiler's concrete arena type, only on this narrow view.
type Table interface {
	Alias() string
	EntityName() string
	Metadata() *metadata.EntityMetadata
	// ResolveAlias looks up a previously declared FetchXML attribute alias
	// (e.g. one assigned by an earlier SELECT element or GROUP BY/aggregate
	// rewrite) and returns the logical attribute name it was assigned to.
	ResolveAlias(alias string) (attributeName string, ok bool)
}

// ColumnBinding is the resolved form of a column reference: which table it
// came from (by arena index, never a pointer, per the arena/index design),
// which attribute it names, and that attribute's nullable domain type.
type ColumnBinding struct {
	TableIndex    int
	AttributeName string
	AttrType      dvtypes.AttrType
	ExplicitAlias string
}

// ShadowColumn is a calculated SELECT-list expression given an alias,
// visible to ORDER BY and HAVING by that alias even though it names no
// real attribute (§4.1 last bullet).
type ShadowColumn struct {
	Alias    string
	AttrType dvtypes.AttrType
}

// Scope is the set of tables and shadow (calculated) columns visible while
// binding one query block.
type Scope struct {
	Tables  []Table
	Shadows []ShadowColumn
}

// AddShadow registers a calculated SELECT-list column so later ORDER BY /
// HAVING references to its alias resolve without needing a real attribute.
func (s *Scope) AddShadow(alias string, t dvtypes.AttrType) {
	s.Shadows = append(s.Shadows, ShadowColumn{Alias: alias, AttrType: t})
}

func (s *Scope) findShadow(name string) (ShadowColumn, bool) {
	lower := strings.ToLower(name)
	for _, sh := range s.Shadows {
		if strings.ToLower(sh.Alias) == lower {
			return sh, true
		}
	}
	return ShadowColumn{}, false
}

// BindColumn resolves a one- or two-part identifier against the scope's
// tables, per §4.1:
//
//   - Two parts: the first part must match exactly one table's alias
//     (preferred) or entity name; failing that is AmbiguousTableError or
//     UnknownTableError. The second part is then resolved against that
//     table's attributes only.
//   - One part: every table's metadata attributes and every table's
//     already-declared FetchXML attribute alias are searched; exactly one
//     match is required, else AmbiguousAttributeError/UnknownAttributeError.
//     Shadow (calculated) columns are also searched for one-part names, and
//     take priority only when no real attribute matches, so ORDER BY/HAVING
//     can reach a SELECT-list alias.
func BindColumn(parts []string, scope *Scope) (ColumnBinding, error) {
	switch len(parts) {
	case 2:
		return bindTwoPart(parts[0], parts[1], scope)
	case 1:
		return bindOnePart(parts[0], scope)
	default:
		return ColumnBinding{}, &dvtypes.NotSupportedQueryFragmentError{
			Reason:   "column references must have one or two parts",
			Fragment: strings.Join(parts, "."),
		}
	}
}

func bindTwoPart(qualifier, attribute string, scope *Scope) (ColumnBinding, error) {
	idx, err := resolveTableQualifier(qualifier, scope)
	if err != nil {
		return ColumnBinding{}, err
	}
	table := scope.Tables[idx]
	attrType, err := resolveAttributeOnTable(table, attribute)
	if err != nil {
		return ColumnBinding{}, err
	}
	return ColumnBinding{TableIndex: idx, AttributeName: attribute, AttrType: attrType}, nil
}

func resolveTableQualifier(qualifier string, scope *Scope) (int, error) {
	lower := strings.ToLower(qualifier)

	aliasMatch := -1
	aliasCount := 0
	for i, t := range scope.Tables {
		if t.Alias() != "" && strings.ToLower(t.Alias()) == lower {
			aliasMatch = i
			aliasCount++
		}
	}
	if aliasCount == 1 {
		return aliasMatch, nil
	}
	if aliasCount > 1 {
		return 0, &dvtypes.AmbiguousTableError{Identifier: qualifier}
	}

	nameMatch := -1
	nameCount := 0
	for i, t := range scope.Tables {
		if strings.ToLower(t.EntityName()) == lower {
			nameMatch = i
			nameCount++
		}
	}
	if nameCount == 1 {
		return nameMatch, nil
	}
	if nameCount > 1 {
		return 0, &dvtypes.AmbiguousTableError{Identifier: qualifier}
	}
	return 0, &dvtypes.UnknownTableError{Identifier: qualifier}
}

func resolveAttributeOnTable(t Table, attribute string) (dvtypes.AttrType, error) {
	md := t.Metadata()
	attr, ok := md.Attribute(attribute)
	if !ok {
		return 0, &dvtypes.UnknownAttributeError{Identifier: attribute}
	}
	return dvtypes.AttrTypeForMetadata(attr.AttributeType)
}

func bindOnePart(name string, scope *Scope) (ColumnBinding, error) {
	type candidate struct {
		tableIndex int
		attrName   string
		attrType   dvtypes.AttrType
	}
	var matches []candidate
	for i, t := range scope.Tables {
		if attr, ok := t.Metadata().Attribute(name); ok {
			attrType, err := dvtypes.AttrTypeForMetadata(attr.AttributeType)
			if err != nil {
				return ColumnBinding{}, err
			}
			matches = append(matches, candidate{tableIndex: i, attrName: name, attrType: attrType})
			continue
		}
		if attrName, ok := t.ResolveAlias(name); ok {
			md := t.Metadata()
			attrType := dvtypes.AttrTypeString
			if attr, ok := md.Attribute(attrName); ok {
				if resolved, err := dvtypes.AttrTypeForMetadata(attr.AttributeType); err == nil {
					attrType = resolved
				}
			}
			matches = append(matches, candidate{tableIndex: i, attrName: attrName, attrType: attrType})
		}
	}

	if len(matches) == 1 {
		return ColumnBinding{TableIndex: matches[0].tableIndex, AttributeName: matches[0].attrName, AttrType: matches[0].attrType}, nil
	}
	if len(matches) > 1 {
		return ColumnBinding{}, &dvtypes.AmbiguousAttributeError{Identifier: name}
	}

	if shadow, ok := scope.findShadow(name); ok {
		return ColumnBinding{TableIndex: -1, AttributeName: name, AttrType: shadow.AttrType}, nil
	}

	return ColumnBinding{}, &dvtypes.UnknownAttributeError{Identifier: name}
}
