// Package ops implements the post-processing operator pipeline (§4.6):
// the in-memory operators the query assembler appends whenever a clause
// cannot be expressed natively in FetchXML. Every operator consumes and
// produces a sequence of rows; we model that sequence as a plain
// []dvtypes.Row rather than a channel/iterator, since a compiled query's
// result set is already materialized page-by-page by the execution
// runtime before any operator runs.
package ops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
)

// Operator transforms one batch of rows into another.
type Operator interface {
	Apply(rows []dvtypes.Row) ([]dvtypes.Row, error)
	// Kind names the operator for pipeline-shape assertions/tests.
	Kind() string
}

// Where filters rows by a three-valued predicate, treating unknown (an
// evaluation error from a null comparison never reaches here — the
// predicate lowerer already collapses that to false) as exclusion.
type Where struct {
	Predicate func(row dvtypes.Row) (bool, error)
}

func (*Where) Kind() string { return "Where" }

func (w *Where) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	out := make([]dvtypes.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := w.Predicate(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Projection extends every row with computed columns; pre-existing
// columns pass through unchanged.
type Projection struct {
	Columns []ProjectedColumn
}

// ProjectedColumn is one computed output column of a Projection operator.
type ProjectedColumn struct {
	Name string
	Expr expr.Expr
}

func (*Projection) Kind() string { return "Projection" }

func (p *Projection) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	out := make([]dvtypes.Row, len(rows))
	for i, row := range rows {
		next := row.Clone()
		for _, col := range p.Columns {
			v, err := col.Expr.Eval(row)
			if err != nil {
				return nil, err
			}
			next[col.Name] = v
		}
		out[i] = next
	}
	return out, nil
}

// SortKey is one ORDER BY key. IsNativePrefix marks keys already satisfied
// by a native FetchXML <order>; the Sort operator only breaks ties within
// groups equal on the native prefix (§4.6).
type SortKey struct {
	Selector      func(row dvtypes.Row) (any, error)
	Descending    bool
	IsNativePrefix bool
}

// Sort stably reorders rows by Keys, honoring any native prefix.
type Sort struct {
	Keys []SortKey
}

func (*Sort) Kind() string { return "Sort" }

func (s *Sort) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	prefixLen := 0
	for _, k := range s.Keys {
		if k.IsNativePrefix {
			prefixLen++
		} else {
			break
		}
	}
	out := append([]dvtypes.Row(nil), rows...)

	var evalErr error
	less := func(i, j int) bool {
		for idx := prefixLen; idx < len(s.Keys); idx++ {
			k := s.Keys[idx]
			a, err := k.Selector(out[i])
			if err != nil {
				evalErr = err
				return false
			}
			b, err := k.Selector(out[j])
			if err != nil {
				evalErr = err
				return false
			}
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	}
	sort.SliceStable(out, less)
	return out, evalErr
}

func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case dvtypes.Decimal:
		return n.Float64(), true
	}
	return 0, false
}

// Distinct removes duplicate rows, keyed by the full row with
// case-insensitive string comparison (§4.6).
type Distinct struct{}

func (*Distinct) Kind() string { return "Distinct" }

func (*Distinct) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	seen := make(map[string]bool, len(rows))
	out := make([]dvtypes.Row, 0, len(rows))
	for _, row := range rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out, nil
}

func rowKey(row dvtypes.Row) string {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strings.ToLower(valueKey(row[name])))
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func valueKey(v any) string {
	if v == nil {
		return "\x00"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Top keeps at most N rows.
type Top struct {
	N int
}

func (*Top) Kind() string { return "Top" }

func (t *Top) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	if t.N >= len(rows) {
		return rows, nil
	}
	return rows[:t.N], nil
}

// Offset skips Skip rows and keeps at most Take (0 meaning unbounded).
type Offset struct {
	Skip, Take int
}

func (*Offset) Kind() string { return "Offset" }

func (o *Offset) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	if o.Skip >= len(rows) {
		return nil, nil
	}
	rows = rows[o.Skip:]
	if o.Take > 0 && o.Take < len(rows) {
		rows = rows[:o.Take]
	}
	return rows, nil
}

// Having filters post-aggregation rows by a three-valued predicate.
type Having struct {
	Predicate func(row dvtypes.Row) (bool, error)
}

func (*Having) Kind() string { return "Having" }

func (h *Having) Apply(rows []dvtypes.Row) ([]dvtypes.Row, error) {
	out := make([]dvtypes.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := h.Predicate(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}
