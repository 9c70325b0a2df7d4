// Package predicate lowers boolean AST nodes into either a FetchXML
// <filter>/<condition> tree or an in-memory row predicate (§4.4). It is
// the one package allowed to use the internal postProcessingRequired
// control signal; every other package only sees its effect (a fallback
// predicate, or a fatal error at the points §7 says it must become one).
package predicate

import (
	"strings"

	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/tsql"
)

// postProcessingRequired is raised internally when a fragment cannot be
// lowered to FetchXML and must instead become (or extend) an in-memory
// predicate. It is caught by the nearest AND context per §4.4/§7 and must
// never be returned from an exported function of this package.
type postProcessingRequired struct {
	reason, fragment string
}

func (p *postProcessingRequired) Error() string {
	return "post-processing required: " + p.reason
}

// IsPostProcessingRequired lets the compiler package detect the signal at
// the specific points (e.g. a JOIN's residual ON filter) where it must be
// turned into a fatal RewriteAsWhereError rather than silently absorbed.
func IsPostProcessingRequired(err error) bool {
	_, ok := err.(*postProcessingRequired)
	return ok
}

// RowPredicate is a lowered boolean expression ready to run over a row.
type RowPredicate func(row dvtypes.Row) (bool, error)

// Lowerer lowers boolean AST into FetchXML filters and/or row predicates.
type Lowerer struct {
	Scope *binder.Scope
	Expr  *expr.Lowerer
}

// comparisonOperators maps a T-SQL comparison operator to its FetchXML
// operator name for the direct (column on the left) orientation.
var comparisonOperators = map[string]string{
	"=": "eq", "<>": "ne", ">": "gt", ">=": "ge", "<": "lt", "<=": "le",
}

// mirroredOperator is used when the column appears on the right of a
// direction-sensitive operator (§4.4: ">", ">=", "<", "<=" are mirrored).
var mirroredOperator = map[string]string{
	">": "<", ">=": "<=", "<": ">", "<=": ">=",
}

// sugarFunctions maps a function-call-as-value name to its FetchXML
// operator and expected argument count (§Glossary "Function library").
var sugarFunctions = map[string]struct {
	operator string
	argc     int
}{
	"lastxdays": {"last-x-days", 1}, "nextxdays": {"next-x-days", 1},
	"lastxhours": {"last-x-hours", 1}, "nextxhours": {"next-x-hours", 1},
	"olderthanxdays": {"olderthan-x-days", 1},
	"equserid":       {"eq-userid", 0}, "neuserid": {"ne-userid", 0},
	"today": {"today", 0}, "yesterday": {"yesterday", 0}, "tomorrow": {"tomorrow", 0},
	"thisweek": {"this-week", 0}, "thismonth": {"this-month", 0}, "thisyear": {"this-year", 0},
}

// LowerWhere lowers a WHERE/HAVING-style condition into container's root
// filter, returning the conjunctive tail of row predicates that could not
// be expressed in FetchXML (§4.5 step 2: "Fallbacks accumulate into a
// conjunctive expression predicate"). The returned slice is empty when the
// whole condition lowered natively.
func (lw *Lowerer) LowerWhere(cond tsql.BooleanExpr, container fetchxml.AttributeContainer) ([]RowPredicate, error) {
	root := fetchxml.RootFilter(container)
	fallback, err := lw.lowerNode(cond, container, root, fetchxml.FilterAnd)
	if err != nil {
		return nil, err
	}
	root.Resolve()
	return fallback, nil
}

// lowerNode lowers node into target (whose effective type is parentOp),
// returning any fallback predicates lifted out of an AND context.
func (lw *Lowerer) lowerNode(node tsql.BooleanExpr, container fetchxml.AttributeContainer, target *fetchxml.Filter, parentOp fetchxml.FilterType) ([]RowPredicate, error) {
	if logical, ok := node.(*tsql.LogicalExpr); ok {
		return lw.lowerLogical(logical, container, target, parentOp)
	}
	if paren, ok := node.(*tsql.ParenExpr); ok {
		nested := fetchxml.NewFilter()
		fallback, err := lw.lowerNode(paren.Inner, container, nested, fetchxml.FilterIndeterminate)
		if err != nil {
			if IsPostProcessingRequired(err) && parentOp == fetchxml.FilterAnd {
				p, perr := lw.Expr.LowerBooleanAsPredicate(paren)
				if perr != nil {
					return nil, perr
				}
				return []RowPredicate{p}, nil
			}
			return nil, err
		}
		nested.Resolve()
		target.Add(nested)
		return fallback, nil
	}

	cond, err := lw.lowerLeaf(node, container)
	if err != nil {
		if IsPostProcessingRequired(err) {
			if parentOp != fetchxml.FilterAnd {
				return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "cannot fall back to an expression predicate under OR", Fragment: ""}
			}
			p, perr := lw.Expr.LowerBooleanAsPredicate(node)
			if perr != nil {
				return nil, perr
			}
			return []RowPredicate{p}, nil
		}
		return nil, err
	}
	target.Add(cond)
	return nil, nil
}

func (lw *Lowerer) lowerLogical(n *tsql.LogicalExpr, container fetchxml.AttributeContainer, target *fetchxml.Filter, parentOp fetchxml.FilterType) ([]RowPredicate, error) {
	op := fetchxml.FilterAnd
	if n.Op == "OR" {
		op = fetchxml.FilterOr
	}

	var effective *fetchxml.Filter
	if target.Type == fetchxml.FilterIndeterminate {
		target.Type = op
		effective = target
	} else if target.Type == op {
		effective = target
	} else {
		effective = fetchxml.NewFilter()
		effective.Type = op
		target.Add(effective)
	}

	var fallback []RowPredicate
	for _, child := range []tsql.BooleanExpr{n.Left, n.Right} {
		f, err := lw.lowerNode(child, container, effective, op)
		if err != nil {
			return nil, err
		}
		fallback = append(fallback, f...)
	}
	return fallback, nil
}

// lowerLeaf lowers a single non-logical boolean node directly to a
// FetchXML condition, or returns postProcessingRequired if it cannot be.
func (lw *Lowerer) lowerLeaf(node tsql.BooleanExpr, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	switch n := node.(type) {
	case *tsql.Comparison:
		return lw.lowerComparison(n, container)
	case *tsql.IsNullExpr:
		return lw.lowerIsNull(n, container)
	case *tsql.LikeExpr:
		return lw.lowerLike(n, container)
	case *tsql.InExpr:
		return lw.lowerIn(n, container)
	case *tsql.NotExpr:
		return nil, &postProcessingRequired{reason: "NOT cannot be lowered to a single FetchXML condition", fragment: ""}
	default:
		return nil, &postProcessingRequired{reason: "fragment has no direct FetchXML form", fragment: ""}
	}
}

// columnAndRest recognizes "<column> <rest>" vs "<rest> <column>", since
// §4.4 allows a commutative swap whenever exactly one side is a column.
func (lw *Lowerer) columnAndRest(left, right tsql.ScalarExpr) (*tsql.ColumnRef, tsql.ScalarExpr, bool, error) {
	lc, lok := left.(*tsql.ColumnRef)
	rc, rok := right.(*tsql.ColumnRef)
	if lok && rok {
		return nil, nil, false, &postProcessingRequired{reason: "column-to-column comparison is not permitted in WHERE", fragment: ""}
	}
	if lok {
		return lc, right, false, nil
	}
	if rok {
		return rc, left, true, nil
	}
	return nil, nil, false, &postProcessingRequired{reason: "comparison has no column operand", fragment: ""}
}

func (lw *Lowerer) lowerComparison(n *tsql.Comparison, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	col, rest, swapped, err := lw.columnAndRest(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	binding, attrName, rowKey, err := lw.resolveConditionColumn(col, container)
	if err != nil {
		return nil, err
	}
	_ = binding

	op := n.Op
	if swapped {
		if mirrored, ok := mirroredOperator[op]; ok {
			op = mirrored
		}
	}

	if op == "=" {
		if call, ok := rest.(*tsql.FunctionCall); ok {
			return lw.lowerFunctionSugar(call, attrName, container)
		}
	}

	fetchOp, ok := comparisonOperators[op]
	if !ok {
		return nil, &postProcessingRequired{reason: "unsupported comparison operator for FetchXML", fragment: op}
	}
	lit, ok := rest.(*tsql.Literal)
	if !ok {
		return nil, &postProcessingRequired{reason: "comparison value is not a literal", fragment: ""}
	}
	value, err := literalToConditionValue(lit)
	if err != nil {
		return nil, err
	}
	_ = rowKey
	return &fetchxml.Condition{Attribute: attrName, Operator: fetchOp, Value: &value}, nil
}

func (lw *Lowerer) lowerFunctionSugar(call *tsql.FunctionCall, attrName string, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	sugar, ok := sugarFunctions[strings.ToLower(call.Name)]
	if !ok {
		return nil, &postProcessingRequired{reason: "function is not a recognised FetchXML operator", fragment: call.Name}
	}
	if len(call.Args) != sugar.argc {
		return nil, &postProcessingRequired{reason: "unexpected argument count for operator function", fragment: call.Name}
	}
	cond := &fetchxml.Condition{Attribute: attrName, Operator: sugar.operator}
	if sugar.argc == 1 {
		lit, ok := call.Args[0].(*tsql.Literal)
		if !ok {
			return nil, &postProcessingRequired{reason: "operator function argument must be a literal", fragment: call.Name}
		}
		value, err := literalToConditionValue(lit)
		if err != nil {
			return nil, err
		}
		cond.Value = &value
	}
	return cond, nil
}

func (lw *Lowerer) lowerIsNull(n *tsql.IsNullExpr, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	col, ok := n.Operand.(*tsql.ColumnRef)
	if !ok {
		return nil, &postProcessingRequired{reason: "IS NULL left side is not a column", fragment: ""}
	}
	_, attrName, _, err := lw.resolveConditionColumn(col, container)
	if err != nil {
		return nil, err
	}
	op := "null"
	if n.Not {
		op = "not-null"
	}
	return &fetchxml.Condition{Attribute: attrName, Operator: op}, nil
}

func (lw *Lowerer) lowerLike(n *tsql.LikeExpr, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	col, ok := n.Operand.(*tsql.ColumnRef)
	if !ok {
		return nil, &postProcessingRequired{reason: "LIKE left side is not a column", fragment: ""}
	}
	lit, ok := n.Pattern.(*tsql.Literal)
	if !ok || lit.Kind != tsql.LiteralString {
		return nil, &postProcessingRequired{reason: "LIKE right side is not a string literal", fragment: ""}
	}
	_, attrName, _, err := lw.resolveConditionColumn(col, container)
	if err != nil {
		return nil, err
	}
	op := "like"
	if n.Not {
		op = "not-like"
	}
	return &fetchxml.Condition{Attribute: attrName, Operator: op, Value: &lit.Text}, nil
}

func (lw *Lowerer) lowerIn(n *tsql.InExpr, container fetchxml.AttributeContainer) (*fetchxml.Condition, error) {
	col, ok := n.Operand.(*tsql.ColumnRef)
	if !ok {
		return nil, &postProcessingRequired{reason: "IN left side is not a column", fragment: ""}
	}
	_, attrName, _, err := lw.resolveConditionColumn(col, container)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(n.Values))
	for _, v := range n.Values {
		lit, ok := v.(*tsql.Literal)
		if !ok {
			return nil, &postProcessingRequired{reason: "IN list element is not a literal", fragment: ""}
		}
		value, err := literalToConditionValue(lit)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	op := "in"
	if n.Not {
		op = "not-in"
	}
	return &fetchxml.Condition{Attribute: attrName, Operator: op, Values: values}, nil
}

// resolveConditionColumn binds col and ensures the attribute is requested
// on its owning table, returning the attribute's logical name (FetchXML
// conditions always address the logical name, never an alias).
func (lw *Lowerer) resolveConditionColumn(col *tsql.ColumnRef, container fetchxml.AttributeContainer) (binder.ColumnBinding, string, string, error) {
	binding, err := binder.BindColumn(col.Parts, lw.Scope)
	if err != nil {
		return binder.ColumnBinding{}, "", "", err
	}
	if binding.TableIndex < 0 {
		return binder.ColumnBinding{}, "", "", &postProcessingRequired{reason: "calculated columns cannot be used in a FetchXML condition", fragment: binding.AttributeName}
	}
	adder := lw.Expr.Tables.ColumnAdder(binding.TableIndex)
	rowKey := adder.RequestAttribute(binding.AttributeName)
	return binding, binding.AttributeName, rowKey, nil
}

func literalToConditionValue(lit *tsql.Literal) (string, error) {
	switch lit.Kind {
	case tsql.LiteralString, tsql.LiteralInt, tsql.LiteralFloat:
		return lit.Text, nil
	case tsql.LiteralBool:
		if lit.Bool {
			return "1", nil
		}
		return "0", nil
	default:
		return "", &postProcessingRequired{reason: "NULL is not a valid condition literal", fragment: ""}
	}
}

// JoinSplit is the (join-key, residual) decomposition of a qualified
// join's ON clause (§4.5 step 1).
type JoinSplit struct {
	OuterAttribute string // attribute on the already-present side
	NewAttribute   string // attribute on the newly introduced side
	Residual       tsql.BooleanExpr
}

// SplitJoinCondition walks an ON clause looking for exactly one
// column-to-column comparison to use as the join key; everything else is
// the residual filter. Finding a second join-key comparison, or mixing a
// join-key comparison with OR, is an error.
func SplitJoinCondition(on tsql.BooleanExpr, outerTableIndex, newTableIndex int, scope *binder.Scope) (JoinSplit, error) {
	var split JoinSplit
	found := false

	var walk func(node tsql.BooleanExpr, underOr bool) (tsql.BooleanExpr, error)
	walk = func(node tsql.BooleanExpr, underOr bool) (tsql.BooleanExpr, error) {
		switch n := node.(type) {
		case *tsql.LogicalExpr:
			isOr := n.Op == "OR"
			left, err := walk(n.Left, underOr || isOr)
			if err != nil {
				return nil, err
			}
			right, err := walk(n.Right, underOr || isOr)
			if err != nil {
				return nil, err
			}
			if left == nil {
				return right, nil
			}
			if right == nil {
				return left, nil
			}
			return &tsql.LogicalExpr{Op: n.Op, Left: left, Right: right}, nil
		case *tsql.ParenExpr:
			inner, err := walk(n.Inner, underOr)
			if err != nil {
				return nil, err
			}
			if inner == nil {
				return nil, nil
			}
			return &tsql.ParenExpr{Inner: inner}, nil
		case *tsql.Comparison:
			lc, lok := n.Left.(*tsql.ColumnRef)
			rc, rok := n.Right.(*tsql.ColumnRef)
			if n.Op == "=" && lok && rok {
				if found {
					return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "a JOIN's ON clause may designate at most one join key", Fragment: ""}
				}
				if underOr {
					return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "a join-key comparison cannot be combined with OR", Fragment: ""}
				}
				lb, err := binder.BindColumn(lc.Parts, scope)
				if err != nil {
					return nil, err
				}
				rb, err := binder.BindColumn(rc.Parts, scope)
				if err != nil {
					return nil, err
				}
				outerAttr, newAttr, err := assignJoinSides(lb, rb, outerTableIndex, newTableIndex)
				if err != nil {
					return nil, err
				}
				split.OuterAttribute, split.NewAttribute = outerAttr, newAttr
				found = true
				return nil, nil
			}
			return node, nil
		default:
			return node, nil
		}
	}

	residual, err := walk(on, false)
	if err != nil {
		return JoinSplit{}, err
	}
	if !found {
		return JoinSplit{}, &dvtypes.NotSupportedQueryFragmentError{Reason: "a JOIN's ON clause must designate exactly one join key", Fragment: ""}
	}
	split.Residual = residual
	return split, nil
}

func assignJoinSides(lb, rb binder.ColumnBinding, outerTableIndex, newTableIndex int) (outerAttr, newAttr string, err error) {
	switch {
	case lb.TableIndex == outerTableIndex && rb.TableIndex == newTableIndex:
		return lb.AttributeName, rb.AttributeName, nil
	case rb.TableIndex == outerTableIndex && lb.TableIndex == newTableIndex:
		return rb.AttributeName, lb.AttributeName, nil
	default:
		return "", "", &dvtypes.NotSupportedQueryFragmentError{Reason: "join key must compare the joined table to an already-introduced table", Fragment: ""}
	}
}
