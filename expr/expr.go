// Package expr lowers a parsed scalar AST (tsql.ScalarExpr) into a typed
// expression tree that evaluates against a dvtypes.Row (§4.3). It is the
// only package that knows how to run a scalar expression over a row; the
// predicate and compiler packages build on top of it.
package expr

import (
	"strings"

	"github.com/hollowloop/dvsql/dvtypes"
)

// Expr is a lowered scalar expression: something that can be evaluated
// against a row and that knows its own result type.
type Expr interface {
	Eval(row dvtypes.Row) (any, error)
	Type() dvtypes.AttrType
}

// ColumnAdder is implemented by whatever owns the FetchXML attribute set
// for one table (compiler.EntityTable): Column lowering calls back into it
// so the referenced attribute gets requested on the wire, unless it is
// already covered by an explicit request or an all-attributes wildcard.
type ColumnAdder interface {
	RequestAttribute(name string) (rowKey string)
}

// ColumnExpr reads one attribute off the row. RowKey is the map key the
// row actually carries the value under (the FetchXML alias if one was
// assigned, else the attribute's logical name).
type ColumnExpr struct {
	RowKey   string
	AttrType dvtypes.AttrType
}

func (c *ColumnExpr) Type() dvtypes.AttrType { return c.AttrType }

func (c *ColumnExpr) Eval(row dvtypes.Row) (any, error) {
	v, ok := row[c.RowKey]
	if !ok {
		return nil, nil
	}
	return unwrap(v), nil
}

// unwrap normalizes an EntityReference value to *EntityReference; every
// other value is returned unchanged.
func unwrap(v any) any {
	switch t := v.(type) {
	case *dvtypes.EntityReference:
		return t
	case dvtypes.EntityReference:
		return &t
	default:
		return v
	}
}

// LiteralExpr is a constant value.
type LiteralExpr struct {
	Value    any
	AttrType dvtypes.AttrType
}

func (l *LiteralExpr) Type() dvtypes.AttrType  { return l.AttrType }
func (l *LiteralExpr) Eval(dvtypes.Row) (any, error) { return l.Value, nil }

// UnaryExpr negates, bitwise-nots, or no-ops its operand.
type UnaryExpr struct {
	Op      string // "-", "+", "~"
	Operand Expr
}

func (u *UnaryExpr) Type() dvtypes.AttrType { return u.Operand.Type() }

func (u *UnaryExpr) Eval(row dvtypes.Row) (any, error) {
	v, err := u.Operand.Eval(row)
	if err != nil || v == nil {
		return nil, err
	}
	switch u.Op {
	case "+":
		return v, nil
	case "-":
		return negate(v)
	case "~":
		return bitwiseNot(v)
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unknown unary operator", Fragment: u.Op}
}

func negate(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return -n, nil
	case float64:
		return -n, nil
	case dvtypes.Decimal:
		return n.Neg(), nil
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "cannot negate value", Fragment: ""}
}

func bitwiseNot(v any) (any, error) {
	n, ok := v.(int64)
	if !ok {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "bitwise not requires an integer", Fragment: ""}
	}
	return ^n, nil
}

// BinaryExpr is an arithmetic, bitwise, or string-concatenation operator.
// Per §4.3, null propagates: either operand null yields null regardless of
// operator, and the result is wrapped in whichever nullable domain the
// operands carry.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (b *BinaryExpr) Type() dvtypes.AttrType {
	if b.Op == "+" && (b.Left.Type() == dvtypes.AttrTypeString || b.Right.Type() == dvtypes.AttrTypeString) {
		return dvtypes.AttrTypeString
	}
	if b.Left.Type() == dvtypes.AttrTypeDecimal || b.Right.Type() == dvtypes.AttrTypeDecimal {
		return dvtypes.AttrTypeDecimal
	}
	if b.Left.Type() == dvtypes.AttrTypeFloat || b.Right.Type() == dvtypes.AttrTypeFloat {
		return dvtypes.AttrTypeFloat
	}
	return dvtypes.AttrTypeInt
}

func (b *BinaryExpr) Eval(row dvtypes.Row) (any, error) {
	l, err := b.Left.Eval(row)
	if err != nil {
		return nil, err
	}
	r, err := b.Right.Eval(row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	if b.Op == "+" {
		ls, lok := l.(string)
		rs, rok := r.(string)
		if lok || rok {
			if !lok || !rok {
				return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "cannot mix string and non-string in +", Fragment: ""}
			}
			return ls + rs, nil
		}
	}
	return arith(b.Op, l, r)
}

func arith(op string, l, r any) (any, error) {
	if ld, ok := l.(dvtypes.Decimal); ok {
		rd := toDecimal(r)
		return decimalArith(op, ld, rd)
	}
	if rd, ok := r.(dvtypes.Decimal); ok {
		ld := toDecimal(l)
		return decimalArith(op, ld, rd)
	}
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			if _, lIsFloat := l.(float64); lIsFloat {
				return floatArith(op, lf, rf)
			}
			if _, rIsFloat := r.(float64); rIsFloat {
				return floatArith(op, lf, rf)
			}
		}
	}
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if lok && rok {
		return intArith(op, li, ri)
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "incompatible operand types for arithmetic", Fragment: op}
}

func toDecimal(v any) dvtypes.Decimal {
	switch n := v.(type) {
	case dvtypes.Decimal:
		return n
	case int64:
		return dvtypes.NewDecimalFromInt(n)
	case float64:
		return dvtypes.NewDecimalFromFloat(n)
	}
	return dvtypes.NewDecimalFromInt(0)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func decimalArith(op string, l, r dvtypes.Decimal) (any, error) {
	switch op {
	case "+":
		return l.Add(r), nil
	case "-":
		return l.Sub(r), nil
	case "*":
		return l.Mul(r), nil
	case "/":
		return l.Div(r)
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported decimal operator", Fragment: op}
}

func floatArith(op string, l, r float64) (any, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported float operator", Fragment: op}
}

func intArith(op string, l, r int64) (any, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "division by zero", Fragment: ""}
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "division by zero", Fragment: ""}
		}
		return l % r, nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported integer operator", Fragment: op}
}

// CaseWhen is one branch of a lowered CASE expression: a predicate
// (already folded from either the searched condition or the simple-case
// equality test) plus its result.
type CaseWhen struct {
	Cond   func(row dvtypes.Row) (bool, error)
	Result Expr
}

// CaseExpr is the right-folded form of both CASE variants (§4.3): the
// first matching When wins; a missing Else evaluates as null.
type CaseExpr struct {
	Whens    []CaseWhen
	Else     Expr
	AttrType dvtypes.AttrType
}

func (c *CaseExpr) Type() dvtypes.AttrType { return c.AttrType }

func (c *CaseExpr) Eval(row dvtypes.Row) (any, error) {
	for _, w := range c.Whens {
		matched, err := w.Cond(row)
		if err != nil {
			return nil, err
		}
		if matched {
			return w.Result.Eval(row)
		}
	}
	if c.Else == nil {
		return nil, nil
	}
	return c.Else.Eval(row)
}

// EqualsCaseInsensitive implements §4.4's three-valued, case-insensitive
// string equality, shared between simple-CASE value tests and the
// expression predicate lowerer.
func EqualsCaseInsensitive(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(as, bs)
	}
	return valuesEqual(a, b)
}

func valuesEqual(a, b any) bool {
	aRef, aIsRef := asEntityReference(a)
	bRef, bIsRef := asEntityReference(b)
	if aIsRef || bIsRef {
		aGuid, aok := asGuid(a, aRef, aIsRef)
		bGuid, bok := asGuid(b, bRef, bIsRef)
		if aok && bok {
			return aGuid.Equal(bGuid)
		}
	}
	return a == b
}

func asEntityReference(v any) (*dvtypes.EntityReference, bool) {
	switch t := v.(type) {
	case *dvtypes.EntityReference:
		return t, true
	case dvtypes.EntityReference:
		return &t, true
	}
	return nil, false
}

func asGuid(v any, ref *dvtypes.EntityReference, isRef bool) (dvtypes.Guid, bool) {
	if isRef {
		return ref.ID, true
	}
	switch t := v.(type) {
	case dvtypes.Guid:
		return t, true
	case string:
		g, err := dvtypes.ParseGuid(t)
		if err != nil {
			return dvtypes.Guid{}, false
		}
		return g, true
	}
	return dvtypes.Guid{}, false
}
