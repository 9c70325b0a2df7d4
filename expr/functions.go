package expr

import (
	"strings"
	"time"

	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/tsql"
)

// datePartAliases maps the supported T-SQL date-part spellings, including
// their standard abbreviations, to a canonical name (§4.3/§Glossary).
var datePartAliases = map[string]string{
	"year": "year", "yyyy": "year", "yy": "year",
	"quarter": "quarter", "qq": "quarter", "q": "quarter",
	"month": "month", "mm": "month", "m": "month",
	"week": "week", "wk": "week", "ww": "week",
	"day": "day", "dd": "day", "d": "day",
	"hour": "hour", "hh": "hour",
	"minute": "minute", "mi": "minute", "n": "minute",
	"second": "second", "ss": "second", "s": "second",
	"fiscalperiod": "fiscalperiod",
	"fiscalyear":   "fiscalyear",
}

// CanonicalDatePart resolves a surface date-part spelling to its canonical
// name, reporting false for anything not in the recognised set.
func CanonicalDatePart(raw string) (string, bool) {
	canon, ok := datePartAliases[strings.ToLower(raw)]
	return canon, ok
}

// dateAddDuration adds n units of the given canonical date part to t.
func dateAddDuration(part string, n int, t time.Time) time.Time {
	switch part {
	case "year":
		return t.AddDate(n, 0, 0)
	case "quarter":
		return t.AddDate(0, 3*n, 0)
	case "month":
		return t.AddDate(0, n, 0)
	case "week":
		return t.AddDate(0, 0, 7*n)
	case "day":
		return t.AddDate(0, 0, n)
	case "hour":
		return t.Add(time.Duration(n) * time.Hour)
	case "minute":
		return t.Add(time.Duration(n) * time.Minute)
	case "second":
		return t.Add(time.Duration(n) * time.Second)
	default:
		return t
	}
}

func datePartValue(part string, t time.Time) int64 {
	switch part {
	case "year":
		return int64(t.Year())
	case "quarter":
		return int64((t.Month()-1)/3) + 1
	case "month":
		return int64(t.Month())
	case "week":
		_, week := t.ISOWeek()
		return int64(week)
	case "day":
		return int64(t.Day())
	case "hour":
		return int64(t.Hour())
	case "minute":
		return int64(t.Minute())
	case "second":
		return int64(t.Second())
	default:
		return 0
	}
}

// scalarFunctions is the fixed library §Glossary names: arithmetic/string
// helpers plus DATEADD/DATEDIFF/DATEPART. Predicate-only sugar functions
// (lastxdays, equserid, today, ...) are resolved by the predicate package
// against FetchXML operators, not here — evaluating them in-memory would
// require environment inputs (the caller's user id, "now") the scalar
// lowerer has no access to.
var scalarFunctions = map[string]bool{
	"left": true, "right": true, "substring": true, "trim": true, "len": true,
}

func (lw *Lowerer) lowerFunctionCall(n *tsql.FunctionCall) (Expr, error) {
	lowerName := strings.ToLower(n.Name)

	if lowerName == "dateadd" || lowerName == "datediff" || lowerName == "datepart" {
		part, ok := CanonicalDatePart(n.DatePart)
		if !ok {
			return nil, &dvtypes.UnknownFunctionError{Name: n.Name + "(" + n.DatePart + ")"}
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			lowered, err := lw.LowerScalar(a)
			if err != nil {
				return nil, err
			}
			args[i] = lowered
		}
		return &DatePartCallExpr{Kind: lowerName, Part: part, Args: args}, nil
	}

	if !scalarFunctions[lowerName] {
		return nil, &dvtypes.UnknownFunctionError{Name: n.Name}
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		lowered, err := lw.LowerScalar(a)
		if err != nil {
			return nil, err
		}
		args[i] = lowered
	}
	return &StringFuncExpr{Name: lowerName, Args: args}, nil
}

// DatePartCallExpr evaluates DATEADD/DATEDIFF/DATEPART. The date-part
// symbol is resolved at lowering time; it never participates in per-row
// evaluation (§4.3).
type DatePartCallExpr struct {
	Kind string // "dateadd", "datediff", "datepart"
	Part string
	Args []Expr
}

func (d *DatePartCallExpr) Type() dvtypes.AttrType {
	if d.Kind == "dateadd" {
		return dvtypes.AttrTypeDateTime
	}
	return dvtypes.AttrTypeInt
}

func (d *DatePartCallExpr) Eval(row dvtypes.Row) (any, error) {
	switch d.Kind {
	case "dateadd":
		if len(d.Args) != 2 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEADD requires 2 arguments", Fragment: ""}
		}
		nv, err := d.Args[0].Eval(row)
		if err != nil {
			return nil, err
		}
		dv, err := d.Args[1].Eval(row)
		if err != nil {
			return nil, err
		}
		if nv == nil || dv == nil {
			return nil, nil
		}
		n, ok := nv.(int64)
		t, tok := dv.(time.Time)
		if !ok || !tok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEADD requires (int, datetime)", Fragment: ""}
		}
		return dateAddDuration(d.Part, int(n), t), nil
	case "datediff":
		if len(d.Args) != 2 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEDIFF requires 2 arguments", Fragment: ""}
		}
		av, err := d.Args[0].Eval(row)
		if err != nil {
			return nil, err
		}
		bv, err := d.Args[1].Eval(row)
		if err != nil {
			return nil, err
		}
		if av == nil || bv == nil {
			return nil, nil
		}
		at, aok := av.(time.Time)
		bt, bok := bv.(time.Time)
		if !aok || !bok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEDIFF requires two datetimes", Fragment: ""}
		}
		return datePartDiff(d.Part, at, bt), nil
	case "datepart":
		if len(d.Args) != 1 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEPART requires 1 argument", Fragment: ""}
		}
		v, err := d.Args[0].Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		t, ok := v.(time.Time)
		if !ok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "DATEPART requires a datetime", Fragment: ""}
		}
		return datePartValue(d.Part, t), nil
	}
	return nil, &dvtypes.UnknownFunctionError{Name: d.Kind}
}

func datePartDiff(part string, a, b time.Time) int64 {
	switch part {
	case "second":
		return int64(b.Sub(a).Seconds())
	case "minute":
		return int64(b.Sub(a).Minutes())
	case "hour":
		return int64(b.Sub(a).Hours())
	case "day":
		return int64(b.Sub(a).Hours() / 24)
	case "week":
		return int64(b.Sub(a).Hours() / (24 * 7))
	case "month":
		years := b.Year() - a.Year()
		return int64(years*12 + int(b.Month()) - int(a.Month()))
	case "year":
		return int64(b.Year() - a.Year())
	default:
		return 0
	}
}

// StringFuncExpr evaluates LEFT/RIGHT/SUBSTRING/TRIM/LEN.
type StringFuncExpr struct {
	Name string
	Args []Expr
}

func (s *StringFuncExpr) Type() dvtypes.AttrType {
	if s.Name == "len" {
		return dvtypes.AttrTypeInt
	}
	return dvtypes.AttrTypeString
}

func (s *StringFuncExpr) Eval(row dvtypes.Row) (any, error) {
	vals := make([]any, len(s.Args))
	for i, a := range s.Args {
		v, err := a.Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		vals[i] = v
	}
	switch s.Name {
	case "left":
		str, n, err := stringAndInt(vals)
		if err != nil {
			return nil, err
		}
		if n >= len(str) {
			return str, nil
		}
		if n < 0 {
			n = 0
		}
		return str[:n], nil
	case "right":
		str, n, err := stringAndInt(vals)
		if err != nil {
			return nil, err
		}
		if n >= len(str) {
			return str, nil
		}
		if n < 0 {
			n = 0
		}
		return str[len(str)-n:], nil
	case "substring":
		if len(vals) != 3 {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "SUBSTRING requires 3 arguments", Fragment: ""}
		}
		str, ok := vals[0].(string)
		start, sok := vals[1].(int64)
		length, lok := vals[2].(int64)
		if !ok || !sok || !lok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "SUBSTRING requires (string, int, int)", Fragment: ""}
		}
		runes := []rune(str)
		from := int(start) - 1
		if from < 0 {
			from = 0
		}
		if from > len(runes) {
			from = len(runes)
		}
		to := from + int(length)
		if to > len(runes) {
			to = len(runes)
		}
		if to < from {
			to = from
		}
		return string(runes[from:to]), nil
	case "trim":
		str, ok := vals[0].(string)
		if !ok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "TRIM requires a string", Fragment: ""}
		}
		return strings.TrimSpace(str), nil
	case "len":
		str, ok := vals[0].(string)
		if !ok {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "LEN requires a string", Fragment: ""}
		}
		return int64(len([]rune(str))), nil
	}
	return nil, &dvtypes.UnknownFunctionError{Name: s.Name}
}

func stringAndInt(vals []any) (string, int, error) {
	if len(vals) != 2 {
		return "", 0, &dvtypes.NotSupportedQueryFragmentError{Reason: "function requires 2 arguments", Fragment: ""}
	}
	str, ok := vals[0].(string)
	n, nok := vals[1].(int64)
	if !ok || !nok {
		return "", 0, &dvtypes.NotSupportedQueryFragmentError{Reason: "function requires (string, int)", Fragment: ""}
	}
	return str, int(n), nil
}

// MatchLike implements SQL LIKE with % and _ wildcards and no ESCAPE
// support (§4.4), case-insensitively to match the rest of the compiler's
// string-comparison semantics.
func MatchLike(s, pattern string) bool {
	return matchLikeRunes([]rune(strings.ToLower(s)), []rune(strings.ToLower(pattern)))
}

func matchLikeRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	if p[0] == '%' {
		if matchLikeRunes(s, p[1:]) {
			return true
		}
		for i := range s {
			if matchLikeRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	}
	if len(s) == 0 {
		return false
	}
	if p[0] == '_' || p[0] == s[0] {
		return matchLikeRunes(s[1:], p[1:])
	}
	return false
}
