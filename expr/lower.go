package expr

import (
	"strconv"
	"strings"

	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/tsql"
)

// Tables resolves a binder.ColumnBinding's table index back to the
// ColumnAdder that owns that table's FetchXML attribute set, and reports
// which row key a given table+attribute pair is stored under.
type Tables interface {
	ColumnAdder(tableIndex int) ColumnAdder
	RowKey(tableIndex int, attributeName string) string
}

// Lowerer turns tsql scalar/boolean AST nodes into expr.Expr trees,
// resolving column references through a binder.Scope (§4.3).
type Lowerer struct {
	Scope  *binder.Scope
	Tables Tables

	exprCounter int
}

// NextExprAlias returns the auto-generated output alias for the next
// unaliased calculated column in a SELECT list ("ExprN", per §4.5 step 4).
func (lw *Lowerer) NextExprAlias() string {
	lw.exprCounter++
	return "Expr" + strconv.Itoa(lw.exprCounter)
}

// LowerScalar lowers one scalar AST node to an expr.Expr.
func (lw *Lowerer) LowerScalar(node tsql.ScalarExpr) (Expr, error) {
	switch n := node.(type) {
	case *tsql.ColumnRef:
		return lw.lowerColumn(n)
	case *tsql.Literal:
		return lowerLiteral(n)
	case *tsql.UnaryExpr:
		operand, err := lw.LowerScalar(n.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: n.Op, Operand: operand}, nil
	case *tsql.BinaryExpr:
		left, err := lw.LowerScalar(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := lw.LowerScalar(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: n.Op, Left: left, Right: right}, nil
	case *tsql.SearchedCase:
		return lw.lowerSearchedCase(n)
	case *tsql.SimpleCase:
		return lw.lowerSimpleCase(n)
	case *tsql.FunctionCall:
		return lw.lowerFunctionCall(n)
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported scalar expression", Fragment: ""}
	}
}

func (lw *Lowerer) lowerColumn(n *tsql.ColumnRef) (Expr, error) {
	binding, err := binder.BindColumn(n.Parts, lw.Scope)
	if err != nil {
		return nil, err
	}
	if binding.TableIndex < 0 {
		// Shadow (calculated) column: its row key is simply its alias.
		return &ColumnExpr{RowKey: binding.AttributeName, AttrType: binding.AttrType}, nil
	}
	adder := lw.Tables.ColumnAdder(binding.TableIndex)
	rowKey := adder.RequestAttribute(binding.AttributeName)
	return &ColumnExpr{RowKey: rowKey, AttrType: binding.AttrType}, nil
}

func lowerLiteral(n *tsql.Literal) (Expr, error) {
	switch n.Kind {
	case tsql.LiteralNull:
		return &LiteralExpr{Value: nil, AttrType: dvtypes.AttrTypeString}, nil
	case tsql.LiteralInt:
		v, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: v, AttrType: dvtypes.AttrTypeInt}, nil
	case tsql.LiteralFloat:
		v, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: v, AttrType: dvtypes.AttrTypeFloat}, nil
	case tsql.LiteralString:
		return &LiteralExpr{Value: n.Text, AttrType: dvtypes.AttrTypeString}, nil
	case tsql.LiteralBool:
		return &LiteralExpr{Value: n.Bool, AttrType: dvtypes.AttrTypeBool}, nil
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unknown literal kind", Fragment: ""}
	}
}

// LowerBooleanAsPredicate lowers a boolean AST node into a row predicate
// function, applying §4.4's expression-predicate rules (three-valued
// logic collapsed to false, case-insensitive string equality). This path
// is used for HAVING, CASE-WHEN tests, and the WHERE fallback tail.
func (lw *Lowerer) LowerBooleanAsPredicate(node tsql.BooleanExpr) (func(row dvtypes.Row) (bool, error), error) {
	switch n := node.(type) {
	case *tsql.Comparison:
		return lw.lowerComparisonPredicate(n)
	case *tsql.LogicalExpr:
		left, err := lw.LowerBooleanAsPredicate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := lw.LowerBooleanAsPredicate(n.Right)
		if err != nil {
			return nil, err
		}
		if n.Op == "AND" {
			return func(row dvtypes.Row) (bool, error) {
				l, err := left(row)
				if err != nil || !l {
					return false, err
				}
				return right(row)
			}, nil
		}
		return func(row dvtypes.Row) (bool, error) {
			l, err := left(row)
			if err != nil {
				return false, err
			}
			r, err := right(row)
			if err != nil {
				return false, err
			}
			return l || r, nil
		}, nil
	case *tsql.NotExpr:
		inner, err := lw.LowerBooleanAsPredicate(n.Operand)
		if err != nil {
			return nil, err
		}
		return func(row dvtypes.Row) (bool, error) {
			v, err := inner(row)
			if err != nil {
				return false, err
			}
			return !v, nil
		}, nil
	case *tsql.ParenExpr:
		return lw.LowerBooleanAsPredicate(n.Inner)
	case *tsql.IsNullExpr:
		operand, err := lw.LowerScalar(n.Operand)
		if err != nil {
			return nil, err
		}
		return func(row dvtypes.Row) (bool, error) {
			v, err := operand.Eval(row)
			if err != nil {
				return false, err
			}
			isNull := v == nil
			if n.Not {
				return !isNull, nil
			}
			return isNull, nil
		}, nil
	case *tsql.LikeExpr:
		return lw.lowerLikePredicate(n)
	case *tsql.InExpr:
		return lw.lowerInPredicate(n)
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported boolean expression", Fragment: ""}
	}
}

func (lw *Lowerer) lowerComparisonPredicate(n *tsql.Comparison) (func(row dvtypes.Row) (bool, error), error) {
	left, err := lw.LowerScalar(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := lw.LowerScalar(n.Right)
	if err != nil {
		return nil, err
	}
	return func(row dvtypes.Row) (bool, error) {
		l, err := left.Eval(row)
		if err != nil {
			return false, err
		}
		r, err := right.Eval(row)
		if err != nil {
			return false, err
		}
		if l == nil || r == nil {
			return false, nil
		}
		return compare(n.Op, l, r)
	}, nil
}

func compare(op string, l, r any) (bool, error) {
	if op == "=" {
		return EqualsCaseInsensitive(l, r), nil
	}
	if op == "<>" {
		return !EqualsCaseInsensitive(l, r), nil
	}
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		c := strings.Compare(strings.ToLower(ls), strings.ToLower(rs))
		return orderCompare(op, c), nil
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if ld, ok := l.(dvtypes.Decimal); ok {
		return orderCompare(op, ld.Cmp(toDecimal(r))), nil
	}
	if rd, ok := r.(dvtypes.Decimal); ok {
		return orderCompare(op, toDecimal(l).Cmp(rd)), nil
	}
	if lok && rok {
		switch {
		case lf < rf:
			return orderCompare(op, -1), nil
		case lf > rf:
			return orderCompare(op, 1), nil
		default:
			return orderCompare(op, 0), nil
		}
	}
	return false, &dvtypes.NotSupportedQueryFragmentError{Reason: "incomparable operand types", Fragment: op}
}

func orderCompare(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func (lw *Lowerer) lowerLikePredicate(n *tsql.LikeExpr) (func(row dvtypes.Row) (bool, error), error) {
	operand, err := lw.LowerScalar(n.Operand)
	if err != nil {
		return nil, err
	}
	pattern, err := lw.LowerScalar(n.Pattern)
	if err != nil {
		return nil, err
	}
	return func(row dvtypes.Row) (bool, error) {
		v, err := operand.Eval(row)
		if err != nil {
			return false, err
		}
		p, err := pattern.Eval(row)
		if err != nil {
			return false, err
		}
		if v == nil || p == nil {
			return false, nil
		}
		s, ok := v.(string)
		ps, pok := p.(string)
		if !ok || !pok {
			return false, &dvtypes.NotSupportedQueryFragmentError{Reason: "LIKE requires string operands", Fragment: ""}
		}
		matched := MatchLike(s, ps)
		if n.Not {
			return !matched, nil
		}
		return matched, nil
	}, nil
}

func (lw *Lowerer) lowerInPredicate(n *tsql.InExpr) (func(row dvtypes.Row) (bool, error), error) {
	operand, err := lw.LowerScalar(n.Operand)
	if err != nil {
		return nil, err
	}
	values := make([]Expr, len(n.Values))
	for i, v := range n.Values {
		lowered, err := lw.LowerScalar(v)
		if err != nil {
			return nil, err
		}
		values[i] = lowered
	}
	return func(row dvtypes.Row) (bool, error) {
		v, err := operand.Eval(row)
		if err != nil {
			return false, err
		}
		if v == nil {
			return false, nil
		}
		found := false
		for _, candidate := range values {
			cv, err := candidate.Eval(row)
			if err != nil {
				return false, err
			}
			if cv != nil && EqualsCaseInsensitive(v, cv) {
				found = true
				break
			}
		}
		if n.Not {
			return !found, nil
		}
		return found, nil
	}, nil
}

func (lw *Lowerer) lowerSearchedCase(n *tsql.SearchedCase) (Expr, error) {
	ce := &CaseExpr{}
	for _, w := range n.WhenClauses {
		cond, err := lw.LowerBooleanAsPredicate(w.Cond)
		if err != nil {
			return nil, err
		}
		result, err := lw.LowerScalar(w.Result)
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Result: result})
		ce.AttrType = result.Type()
	}
	if n.Else != nil {
		elseExpr, err := lw.LowerScalar(n.Else)
		if err != nil {
			return nil, err
		}
		ce.Else = elseExpr
	}
	return ce, nil
}

func (lw *Lowerer) lowerSimpleCase(n *tsql.SimpleCase) (Expr, error) {
	input, err := lw.LowerScalar(n.Input)
	if err != nil {
		return nil, err
	}
	ce := &CaseExpr{}
	for _, w := range n.WhenClauses {
		value, err := lw.LowerScalar(w.Value)
		if err != nil {
			return nil, err
		}
		result, err := lw.LowerScalar(w.Result)
		if err != nil {
			return nil, err
		}
		cond := func(row dvtypes.Row) (bool, error) {
			iv, err := input.Eval(row)
			if err != nil {
				return false, err
			}
			vv, err := value.Eval(row)
			if err != nil {
				return false, err
			}
			if iv == nil || vv == nil {
				return false, nil
			}
			return EqualsCaseInsensitive(iv, vv), nil
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Result: result})
		ce.AttrType = result.Type()
	}
	if n.Else != nil {
		elseExpr, err := lw.LowerScalar(n.Else)
		if err != nil {
			return nil, err
		}
		ce.Else = elseExpr
	}
	return ce, nil
}
