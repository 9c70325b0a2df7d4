package compiler

import (
	"strconv"
	"strings"

	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// nativeDateGroupings is the subset of expr.CanonicalDatePart's output the
// FetchXML dategrouping attribute actually accepts (§4.5 step 3).
var nativeDateGroupings = map[string]bool{
	"year": true, "quarter": true, "month": true, "week": true, "day": true,
	"fiscalperiod": true, "fiscalyear": true,
}

func isAggregateFuncName(name string) bool {
	switch strings.ToLower(name) {
	case "count", "sum", "avg", "min", "max":
		return true
	}
	return false
}

// walkScalar visits every scalar node reachable from *slot. visit is called
// on each node and returns true if it fully handled the node (in which case
// its children are not visited), false to recurse normally.
func walkScalar(slot *tsql.ScalarExpr, visit func(*tsql.ScalarExpr) bool) {
	if slot == nil || *slot == nil {
		return
	}
	if visit(slot) {
		return
	}
	switch n := (*slot).(type) {
	case *tsql.UnaryExpr:
		walkScalar(&n.Operand, visit)
	case *tsql.BinaryExpr:
		walkScalar(&n.Left, visit)
		walkScalar(&n.Right, visit)
	case *tsql.FunctionCall:
		for i := range n.Args {
			walkScalar(&n.Args[i], visit)
		}
	case *tsql.SearchedCase:
		for i := range n.WhenClauses {
			walkBooleanForScalars(n.WhenClauses[i].Cond, visit)
			walkScalar(&n.WhenClauses[i].Result, visit)
		}
		if n.Else != nil {
			walkScalar(&n.Else, visit)
		}
	case *tsql.SimpleCase:
		walkScalar(&n.Input, visit)
		for i := range n.WhenClauses {
			walkScalar(&n.WhenClauses[i].Value, visit)
			walkScalar(&n.WhenClauses[i].Result, visit)
		}
		if n.Else != nil {
			walkScalar(&n.Else, visit)
		}
	}
}

// walkBooleanForScalars visits every scalar slot reachable from a boolean
// expression tree (used for HAVING, which may reference aggregates).
func walkBooleanForScalars(node tsql.BooleanExpr, visit func(*tsql.ScalarExpr) bool) {
	switch n := node.(type) {
	case *tsql.Comparison:
		walkScalar(&n.Left, visit)
		walkScalar(&n.Right, visit)
	case *tsql.LogicalExpr:
		walkBooleanForScalars(n.Left, visit)
		walkBooleanForScalars(n.Right, visit)
	case *tsql.NotExpr:
		walkBooleanForScalars(n.Operand, visit)
	case *tsql.ParenExpr:
		walkBooleanForScalars(n.Inner, visit)
	case *tsql.IsNullExpr:
		walkScalar(&n.Operand, visit)
	case *tsql.LikeExpr:
		walkScalar(&n.Operand, visit)
		walkScalar(&n.Pattern, visit)
	case *tsql.InExpr:
		walkScalar(&n.Operand, visit)
		for i := range n.Values {
			walkScalar(&n.Values[i], visit)
		}
	}
}

// aggOccurrence is one place an aggregate FunctionCall was found; slot lets
// the native path rewrite it in place once an alias has been assigned.
type aggOccurrence struct {
	slot        *tsql.ScalarExpr
	call        *tsql.FunctionCall
	selectAlias string // non-empty if this occurrence is a top-level, aliased SelectElement
}

func (a *assembler) collectAggregateOccurrences(spec *tsql.QuerySpecification) []*aggOccurrence {
	var occs []*aggOccurrence
	collect := func(selectAlias string) func(*tsql.ScalarExpr) bool {
		return func(slot *tsql.ScalarExpr) bool {
			call, ok := (*slot).(*tsql.FunctionCall)
			if !ok || !isAggregateFuncName(call.Name) {
				return false
			}
			occs = append(occs, &aggOccurrence{slot: slot, call: call, selectAlias: selectAlias})
			return true
		}
	}
	for i := range spec.SelectElements {
		el := &spec.SelectElements[i]
		if el.Star || el.Expr == nil {
			continue
		}
		walkScalar(&el.Expr, collect(el.Alias))
	}
	if spec.Having != nil {
		walkBooleanForScalars(spec.Having, collect(""))
	}
	for i := range spec.OrderBy {
		walkScalar(&spec.OrderBy[i].Expr, collect(""))
	}
	return occs
}

// groupKeyPlan is one validated, native-compatible GROUP BY key.
type groupKeyPlan struct {
	slot         *tsql.ScalarExpr
	table        *EntityTable
	tableIdx     int
	attrName     string
	dateGrouping string
}

// planGroupKeys validates every GROUP BY expression as either a plain
// column or DATEPART(part, column) with a recognised native date part,
// returning ok=false (no error) the first time it finds something that
// cannot be expressed natively, per §4.5 step 3.
func (a *assembler) planGroupKeys(spec *tsql.QuerySpecification) ([]groupKeyPlan, bool, error) {
	plans := make([]groupKeyPlan, 0, len(spec.GroupBy))
	for i := range spec.GroupBy {
		slot := &spec.GroupBy[i]
		var col *tsql.ColumnRef
		dateGrouping := ""
		switch n := (*slot).(type) {
		case *tsql.ColumnRef:
			col = n
		case *tsql.FunctionCall:
			if strings.ToLower(n.Name) != "datepart" || len(n.Args) != 1 {
				return nil, false, nil
			}
			c, ok := n.Args[0].(*tsql.ColumnRef)
			if !ok {
				return nil, false, nil
			}
			part, ok := expr.CanonicalDatePart(n.DatePart)
			if !ok || !nativeDateGroupings[part] {
				return nil, false, nil
			}
			col = c
			dateGrouping = part
		default:
			return nil, false, nil
		}
		binding, err := binder.BindColumn(col.Parts, a.exprLow.Scope)
		if err != nil {
			return nil, false, err
		}
		if binding.TableIndex < 0 {
			return nil, false, nil
		}
		plans = append(plans, groupKeyPlan{
			slot: slot, table: a.arena.tables[binding.TableIndex], tableIdx: binding.TableIndex,
			attrName: binding.AttributeName, dateGrouping: dateGrouping,
		})
	}
	return plans, true, nil
}

// aggPlan is one validated, native-compatible aggregate occurrence.
type aggPlan struct {
	occ      *aggOccurrence
	table    *EntityTable
	tableIdx int
	fnKind   string // "count", "countcolumn", "avg", "min", "max", "sum"
	distinct bool
	attrName string
}

func (a *assembler) planAggregates(occs []*aggOccurrence) ([]aggPlan, bool, error) {
	plans := make([]aggPlan, 0, len(occs))
	for _, occ := range occs {
		call := occ.call
		fn := strings.ToLower(call.Name)
		if fn == "count" && call.Star {
			plans = append(plans, aggPlan{occ: occ, table: a.arena.tables[0], tableIdx: 0, fnKind: "count", attrName: a.arena.tables[0].md.PrimaryIDAttribute})
			continue
		}
		if len(call.Args) != 1 {
			return nil, false, nil
		}
		col, ok := call.Args[0].(*tsql.ColumnRef)
		if !ok {
			return nil, false, nil
		}
		binding, err := binder.BindColumn(col.Parts, a.exprLow.Scope)
		if err != nil {
			return nil, false, err
		}
		if binding.TableIndex < 0 {
			return nil, false, nil
		}
		kind := fn
		if fn == "count" {
			kind = "countcolumn"
		}
		plans = append(plans, aggPlan{
			occ: occ, table: a.arena.tables[binding.TableIndex], tableIdx: binding.TableIndex,
			fnKind: kind, distinct: call.Distinct, attrName: binding.AttributeName,
		})
	}
	return plans, true, nil
}

func aggregateAliasBase(table *EntityTable, attrName string) string {
	base := attrName + "_aggregate"
	if table.alias != "" && table.tableAliasDiffersFromRoot() {
		base = lowerName(table.alias) + "_" + base
	}
	return base
}

// tableAliasDiffersFromRoot reports whether this table is a joined
// link-entity rather than the query's root table.
func (t *EntityTable) tableAliasDiffersFromRoot() bool {
	_, isLink := t.container.(*fetchxml.LinkEntity)
	return isLink
}

// lowerGroupByAndAggregates implements §4.5 step 3.
func (a *assembler) lowerGroupByAndAggregates(spec *tsql.QuerySpecification) error {
	occs := a.collectAggregateOccurrences(spec)
	if len(spec.GroupBy) == 0 && len(occs) == 0 {
		return nil
	}

	expressionPath := a.fetchXMLFrozen || a.opts.ForceAggregateExpression
	if !expressionPath {
		groupPlans, groupsOK, err := a.planGroupKeys(spec)
		if err != nil {
			return err
		}
		var aggPlans []aggPlan
		aggsOK := true
		if groupsOK {
			aggPlans, aggsOK, err = a.planAggregates(occs)
			if err != nil {
				return err
			}
		}
		if groupsOK && aggsOK {
			a.applyNativeGroupBy(groupPlans, aggPlans)
			return nil
		}
	}

	return a.applyExpressionGroupBy(spec, occs)
}

// applyNativeGroupBy commits a fully-validated native plan: Attribute items
// with group-by/aggregate markers, deduplicated, with generated aliases
// rewritten back into the AST.
func (a *assembler) applyNativeGroupBy(groupPlans []groupKeyPlan, aggPlans []aggPlan) {
	seen := make(map[string]bool)
	for _, g := range groupPlans {
		key := g.table.alias + "|" + g.attrName + "|" + g.dateGrouping
		if seen[key] {
			continue
		}
		seen[key] = true
		if existing, ok := fetchxml.FindAttributeByName(g.table.container, g.attrName); ok {
			existing.GroupBy = true
			if g.dateGrouping != "" {
				existing.DateGrouping = g.dateGrouping
				existing.DateGroupingSpecified = true
			}
		} else {
			attr := &fetchxml.Attribute{Name: g.attrName, GroupBy: true}
			if g.dateGrouping != "" {
				attr.DateGrouping = g.dateGrouping
				attr.DateGroupingSpecified = true
			}
			fetchxml.AddAttribute(g.table.container, attr)
		}
		*g.slot = &tsql.ColumnRef{Parts: []string{g.attrName}}
	}

	aliasOf := make(map[string]string)
	counts := make(map[string]int)
	for i := range aggPlans {
		ap := &aggPlans[i]
		dedupKey := ap.table.alias + "|" + ap.attrName + "|" + ap.fnKind + "|" + boolKey(ap.distinct)
		alias, reused := aliasOf[dedupKey]
		if !reused {
			if ap.occ.selectAlias != "" {
				alias = ap.occ.selectAlias
			} else {
				base := aggregateAliasBase(ap.table, ap.attrName)
				counts[base]++
				if counts[base] == 1 {
					alias = base
				} else {
					alias = base + "_" + strconv.Itoa(counts[base])
				}
			}
			aliasOf[dedupKey] = alias
			attr := &fetchxml.Attribute{
				Name: ap.attrName, Alias: alias, Aggregate: ap.fnKind,
				Distinct: ap.distinct, AggregateSpecified: true,
			}
			fetchxml.AddAttribute(ap.table.container, attr)
		}
		*ap.occ.slot = &tsql.ColumnRef{Parts: []string{alias}}
	}

	a.fetch.Aggregate = true
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// applyExpressionGroupBy builds the post-processing Grouping/Aggregate
// operators (§4.5 step 3, expression path). It adds every referenced
// column as a plain attribute, sorts by the leading run of plain-column
// grouping keys natively (a FetchXML <order> each) and by every later key
// with an in-memory Sort, and appends an Aggregate operator.
func (a *assembler) applyExpressionGroupBy(spec *tsql.QuerySpecification, occs []*aggOccurrence) error {
	var groupings []ops.Grouping
	var nativeSortKeys []ops.SortKey

	for i, g := range spec.GroupBy {
		name := "grp" + strconv.Itoa(i+1)
		lowered, err := a.exprLow.LowerScalar(g)
		if err != nil {
			return err
		}
		groupings = append(groupings, ops.Grouping{Name: name, Selector: exprSelector(lowered)})
		a.exprLow.Scope.AddShadow(name, lowered.Type())
		if col, ok := g.(*tsql.ColumnRef); ok && len(nativeSortKeys) == i {
			binding, err := binder.BindColumn(col.Parts, a.exprLow.Scope)
			if err == nil && binding.TableIndex >= 0 {
				table := a.arena.tables[binding.TableIndex]
				rowKey := table.RequestAttribute(binding.AttributeName)
				fetchxml.AddOrder(table.container, &fetchxml.Order{Attribute: binding.AttributeName})
				nativeSortKeys = append(nativeSortKeys, ops.SortKey{Selector: rowKeySelector(rowKey)})
			}
		}
		spec.GroupBy[i] = &tsql.ColumnRef{Parts: []string{name}}
	}

	var aggregates []ops.AggregateFunc
	for i, occ := range occs {
		name := occ.selectAlias
		if name == "" {
			name = "agg" + strconv.Itoa(i+1)
		}
		fn, operand, attrType, err := a.lowerAggregateFunc(occ.call)
		if err != nil {
			return err
		}
		aggregates = append(aggregates, ops.AggregateFunc{Name: name, Kind: fn, Operand: operand, AttrType: attrType})
		a.exprLow.Scope.AddShadow(name, attrType)
		*occ.slot = &tsql.ColumnRef{Parts: []string{name}}
	}

	if len(nativeSortKeys) > 0 {
		for i := range nativeSortKeys {
			nativeSortKeys[i].IsNativePrefix = true
		}
		a.pipeline = append(a.pipeline, &ops.Sort{Keys: nativeSortKeys})
	}
	if len(nativeSortKeys) < len(groupings) {
		var residual []ops.SortKey
		for _, g := range groupings[len(nativeSortKeys):] {
			residual = append(residual, ops.SortKey{Selector: g.Selector})
		}
		a.pipeline = append(a.pipeline, &ops.Sort{Keys: residual})
	}

	a.pipeline = append(a.pipeline, &ops.Aggregate{Groupings: groupings, Aggregates: aggregates})
	a.freeze()
	return nil
}

func (a *assembler) lowerAggregateFunc(call *tsql.FunctionCall) (ops.AggFuncKind, expr.Expr, dvtypes.AttrType, error) {
	fn := strings.ToLower(call.Name)
	if fn == "count" && call.Star {
		return ops.AggCount, nil, dvtypes.AttrTypeInt, nil
	}
	if len(call.Args) != 1 {
		return 0, nil, 0, &dvtypes.NotSupportedQueryFragmentError{Reason: "aggregate function expects exactly one argument", Fragment: call.Name}
	}
	operand, err := a.exprLow.LowerScalar(call.Args[0])
	if err != nil {
		return 0, nil, 0, err
	}
	switch fn {
	case "count":
		if call.Distinct {
			return ops.AggCountColumnDistinct, operand, dvtypes.AttrTypeInt, nil
		}
		return ops.AggCountColumn, operand, dvtypes.AttrTypeInt, nil
	case "sum":
		return ops.AggSum, operand, operand.Type(), nil
	case "avg":
		return ops.AggAverage, operand, dvtypes.AttrTypeDecimal, nil
	case "min":
		return ops.AggMin, operand, operand.Type(), nil
	case "max":
		return ops.AggMax, operand, operand.Type(), nil
	}
	return 0, nil, 0, &dvtypes.NotSupportedQueryFragmentError{Reason: "unknown aggregate function", Fragment: call.Name}
}

func exprSelector(e expr.Expr) func(dvtypes.Row) (any, error) {
	return func(row dvtypes.Row) (any, error) { return e.Eval(row) }
}

func rowKeySelector(rowKey string) func(dvtypes.Row) (any, error) {
	return func(row dvtypes.Row) (any, error) { return row[rowKey], nil }
}
