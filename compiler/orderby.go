package compiler

import (
	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerOrderBy implements §4.5 step 6.
func (a *assembler) lowerOrderBy(orderBy []tsql.OrderByElement, columns []string) error {
	if len(orderBy) == 0 {
		return nil
	}

	var nativePrefix []ops.SortKey
	var fallback []ops.SortKey
	stillNative := !a.fetchXMLFrozen

	for _, key := range orderBy {
		resolved, err := a.resolveOrderByTarget(key.Expr, columns)
		if err != nil {
			return err
		}

		if stillNative {
			if col, ok := resolved.(*tsql.ColumnRef); ok {
				ok, sortKey, err := a.tryNativeOrder(col, key.Descending)
				if err != nil {
					return err
				}
				if ok {
					nativePrefix = append(nativePrefix, sortKey)
					continue
				}
			}
			stillNative = false
		}

		selector, err := a.orderBySelector(resolved)
		if err != nil {
			return err
		}
		fallback = append(fallback, ops.SortKey{Selector: selector, Descending: key.Descending})
	}

	if len(fallback) == 0 {
		return nil
	}
	for i := range nativePrefix {
		nativePrefix[i].IsNativePrefix = true
	}
	a.pipeline = append(a.pipeline, &ops.Sort{Keys: append(nativePrefix, fallback...)})
	a.freeze()
	return nil
}

// resolveOrderByTarget resolves a 1-based integer literal ORDER BY item to
// the corresponding SELECT-list output column, leaving every other
// expression untouched.
func (a *assembler) resolveOrderByTarget(e tsql.ScalarExpr, columns []string) (tsql.ScalarExpr, error) {
	lit, ok := e.(*tsql.Literal)
	if !ok || lit.Kind != tsql.LiteralInt {
		return e, nil
	}
	idx, err := parseOrdinal(lit.Text)
	if err != nil || idx < 1 || idx > len(columns) {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "ORDER BY ordinal out of range", Fragment: lit.Text}
	}
	return &tsql.ColumnRef{Parts: []string{columns[idx-1]}}, nil
}

func parseOrdinal(text string) (int, error) {
	n := 0
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, &dvtypes.NotSupportedQueryFragmentError{Reason: "malformed ORDER BY ordinal", Fragment: text}
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// tryNativeOrder attempts to add a native <order> for col, applying the
// "later link-entity already sorted" and aggregate-alias rules of §4.5 step
// 6. ok=false (no error) means the caller must fall back to an in-memory
// Sort for this key and every key after it.
func (a *assembler) tryNativeOrder(col *tsql.ColumnRef, descending bool) (bool, ops.SortKey, error) {
	binding, err := binder.BindColumn(col.Parts, a.exprLow.Scope)
	if err != nil {
		return false, ops.SortKey{}, err
	}
	if binding.TableIndex < 0 {
		return false, ops.SortKey{}, nil // calculated field
	}
	table := a.arena.tables[binding.TableIndex]

	for i := binding.TableIndex + 1; i < len(a.arena.tables); i++ {
		if fetchxml.HasOrder(a.arena.tables[i].container) {
			return false, ops.SortKey{}, nil
		}
	}

	order := &fetchxml.Order{Attribute: binding.AttributeName, Descending: descending}
	if a.fetch.Aggregate {
		if attr, ok := fetchxml.FindAttributeByName(table.container, binding.AttributeName); ok && attr.Alias != "" {
			order.Attribute = ""
			order.Alias = attr.Alias
			if attr.Alias != attr.Name {
				fetchxml.EnsureAttribute(table.container, attr.Name)
			}
		}
	}
	fetchxml.AddOrder(table.container, order)

	rowKey := table.RequestAttribute(binding.AttributeName)
	return true, ops.SortKey{Selector: rowKeySelector(rowKey), Descending: descending}, nil
}

func (a *assembler) orderBySelector(e tsql.ScalarExpr) (func(dvtypes.Row) (any, error), error) {
	lowered, err := a.exprLow.LowerScalar(e)
	if err != nil {
		return nil, err
	}
	return exprSelector(lowered), nil
}
