package compiler

import (
	"sort"
	"strings"

	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerSelect implements §4.5 step 4, returning the compiled query's output
// column names in SELECT-list order.
func (a *assembler) lowerSelect(elements []tsql.SelectElement) ([]string, error) {
	var columns []string
	var projected []ops.ProjectedColumn

	for _, el := range elements {
		if el.Star {
			cols, err := a.lowerStar(el.StarQualifier)
			if err != nil {
				return nil, err
			}
			columns = append(columns, cols...)
			continue
		}

		if col, ok := el.Expr.(*tsql.ColumnRef); ok {
			_, outName, err := a.lowerSelectColumn(col, el.Alias)
			if err != nil {
				return nil, err
			}
			columns = append(columns, outName)
			continue
		}

		name := el.Alias
		if name == "" {
			name = a.exprLow.NextExprAlias()
		}
		lowered, err := a.exprLow.LowerScalar(el.Expr)
		if err != nil {
			return nil, err
		}
		a.exprLow.Scope.AddShadow(name, lowered.Type())
		projected = append(projected, ops.ProjectedColumn{Name: name, Expr: lowered})
		columns = append(columns, name)
	}

	if len(projected) > 0 {
		a.pipeline = append(a.pipeline, &ops.Projection{Columns: projected})
		a.freeze()
	}

	return columns, nil
}

// lowerSelectColumn binds a bare or aliased column reference, requesting it
// on the wire and (for an aliased reference) assigning it a FetchXML alias
// so later clauses and the result row carry that name.
func (a *assembler) lowerSelectColumn(col *tsql.ColumnRef, alias string) (rowKey, outputName string, err error) {
	binding, err := binder.BindColumn(col.Parts, a.exprLow.Scope)
	if err != nil {
		return "", "", err
	}
	if binding.TableIndex < 0 {
		// Shadow (calculated) column referenced again in the SELECT list.
		return binding.AttributeName, binding.AttributeName, nil
	}
	table := a.arena.tables[binding.TableIndex]
	if alias == "" {
		key := table.RequestAttribute(binding.AttributeName)
		return key, key, nil
	}
	if existing, ok := fetchxml.FindAttributeByName(table.container, binding.AttributeName); ok {
		existing.Alias = alias
	} else {
		fetchxml.AddAttribute(table.container, &fetchxml.Attribute{Name: binding.AttributeName, Alias: alias})
	}
	return alias, alias, nil
}

// lowerStar expands "*" (qualifier == "") or "table.*" into <all-attributes/>
// plus the sorted list of that table's (or every table's) readable
// attribute names (§4.5 step 4).
func (a *assembler) lowerStar(qualifier string) ([]string, error) {
	if qualifier == "" {
		var names []string
		for _, t := range a.arena.tables {
			fetchxml.EnsureAllAttributes(t.container)
			names = append(names, readableAttributeNames(t)...)
		}
		sort.Strings(names)
		return names, nil
	}

	table, err := a.findTableByQualifier(qualifier)
	if err != nil {
		return nil, err
	}
	fetchxml.EnsureAllAttributes(table.container)
	names := readableAttributeNames(table)
	sort.Strings(names)
	return names, nil
}

func readableAttributeNames(t *EntityTable) []string {
	md := t.md
	names := make([]string, 0, len(md.Attributes))
	for _, attr := range md.Attributes {
		if attr.IsValidForRead {
			names = append(names, attr.LogicalName)
		}
	}
	return names
}

func (a *assembler) findTableByQualifier(qualifier string) (*EntityTable, error) {
	lower := strings.ToLower(qualifier)
	for _, t := range a.arena.tables {
		if t.alias != "" && strings.ToLower(t.alias) == lower {
			return t, nil
		}
	}
	for _, t := range a.arena.tables {
		if strings.ToLower(t.entityName) == lower {
			return t, nil
		}
	}
	return nil, &dvtypes.UnknownTableError{Identifier: qualifier}
}
