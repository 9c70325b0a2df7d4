package compiler

import (
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerWhere implements §4.5 step 2: lower into the root table's filter,
// accumulating any fallback fragments into a single conjunctive Where
// operator appended to the pipeline (which freezes the FetchXML form for
// every later step).
func (a *assembler) lowerWhere(where tsql.BooleanExpr) error {
	root := a.arena.tables[0]
	fallback, err := a.predLow.LowerWhere(where, root.container)
	if err != nil {
		return err
	}
	if len(fallback) == 0 {
		return nil
	}
	predicates := fallback
	a.pipeline = append(a.pipeline, &ops.Where{Predicate: func(row dvtypes.Row) (bool, error) {
		for _, p := range predicates {
			ok, err := p(row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}})
	a.freeze()
	return nil
}
