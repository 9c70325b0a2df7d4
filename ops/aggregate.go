package ops

import (
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
)

// Grouping is one GROUP BY key of the expression-path Aggregate operator:
// a selector plus the output column name it's emitted under.
type Grouping struct {
	Name     string
	Selector func(row dvtypes.Row) (any, error)
}

// AggFuncKind enumerates the aggregate functions §4.6 names.
type AggFuncKind int

const (
	AggAverage AggFuncKind = iota
	AggCount
	AggCountColumn
	AggCountColumnDistinct
	AggMax
	AggMin
	AggSum
)

// AggregateFunc is one aggregate output column.
type AggregateFunc struct {
	Name     string
	Kind     AggFuncKind
	Operand  expr.Expr // nil for AggCount (COUNT(*))
	AttrType dvtypes.AttrType
}

// Aggregate streams pre-sorted (by Groupings) rows, emitting one output
// row per contiguous run of equal grouping-key values (§4.6).
type Aggregate struct {
	Groupings  []Grouping
	Aggregates []AggregateFunc
}

func (*Aggregate) Kind() string { return "Aggregate" }

func (a *Aggregate) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	var out []dvtypes.Row
	i := 0
	for i < len(rows) {
		keys, err := a.groupKey(rows[i])
		if err != nil {
			return nil, err
		}
		j := i + 1
		for j < len(rows) {
			nextKeys, err := a.groupKey(rows[j])
			if err != nil {
				return nil, err
			}
			if !sameKey(keys, nextKeys) {
				break
			}
			j++
		}
		group := rows[i:j]
		row, err := a.buildOutputRow(keys, group)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
		i = j
	}
	return out, nil
}

func (a *Aggregate) groupKey(row dvtypes.Row) ([]any, error) {
	keys := make([]any, len(a.Groupings))
	for i, g := range a.Groupings {
		v, err := g.Selector(row)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

func sameKey(a, b []any) bool {
	for i := range a {
		if compareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

func (a *Aggregate) buildOutputRow(keys []any, group []dvtypes.Row) (dvtypes.Row, error) {
	row := make(dvtypes.Row, len(a.Groupings)+len(a.Aggregates))
	for i, g := range a.Groupings {
		row[g.Name] = keys[i]
	}
	for _, fn := range a.Aggregates {
		v, err := evalAggregate(fn, group)
		if err != nil {
			return nil, err
		}
		row[fn.Name] = v
	}
	return row, nil
}

func evalAggregate(fn AggregateFunc, group []dvtypes.Row) (any, error) {
	switch fn.Kind {
	case AggCount:
		return int64(len(group)), nil
	case AggCountColumn, AggCountColumnDistinct:
		return countColumn(fn, group)
	case AggSum:
		return sumColumn(fn, group)
	case AggAverage:
		return averageColumn(fn, group)
	case AggMin, AggMax:
		return minMaxColumn(fn, group)
	default:
		return nil, nil
	}
}

func countColumn(fn AggregateFunc, group []dvtypes.Row) (any, error) {
	if fn.Kind == AggCountColumnDistinct {
		seen := make(map[any]bool)
		for _, row := range group {
			v, err := fn.Operand.Eval(row)
			if err != nil {
				return nil, err
			}
			if v != nil {
				seen[v] = true
			}
		}
		return int64(len(seen)), nil
	}
	count := int64(0)
	for _, row := range group {
		v, err := fn.Operand.Eval(row)
		if err != nil {
			return nil, err
		}
		if v != nil {
			count++
		}
	}
	return count, nil
}

func sumColumn(fn AggregateFunc, group []dvtypes.Row) (any, error) {
	sum := dvtypes.NewDecimalFromInt(0)
	for _, row := range group {
		v, err := fn.Operand.Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		sum = sum.Add(asDecimal(v))
	}
	return decimalToOutputType(sum, fn.AttrType), nil
}

// averageColumn computes a decimal sum/count, per §4.6.
func averageColumn(fn AggregateFunc, group []dvtypes.Row) (any, error) {
	sum := dvtypes.NewDecimalFromInt(0)
	count := int64(0)
	for _, row := range group {
		v, err := fn.Operand.Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		sum = sum.Add(asDecimal(v))
		count++
	}
	if count == 0 {
		return nil, nil
	}
	avg, err := sum.Div(dvtypes.NewDecimalFromInt(count))
	if err != nil {
		return nil, err
	}
	return avg, nil
}

func minMaxColumn(fn AggregateFunc, group []dvtypes.Row) (any, error) {
	var best any
	for _, row := range group {
		v, err := fn.Operand.Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		c := compareValues(v, best)
		if (fn.Kind == AggMin && c < 0) || (fn.Kind == AggMax && c > 0) {
			best = v
		}
	}
	return best, nil
}

func asDecimal(v any) dvtypes.Decimal {
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

func decimalToOutputType(d dvtypes.Decimal, t dvtypes.AttrType) any {
	if t == dvtypes.AttrTypeInt {
		return int64(d.Float64())
	}
	return d
}
