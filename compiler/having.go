package compiler

import (
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerHaving implements §4.5 step 7: HAVING has no native FetchXML form,
// so it always compiles to an expression predicate.
func (a *assembler) lowerHaving(having tsql.BooleanExpr) error {
	predicate, err := a.exprLow.LowerBooleanAsPredicate(having)
	if err != nil {
		return err
	}
	a.pipeline = append(a.pipeline, &ops.Having{Predicate: predicate})
	a.freeze()
	return nil
}
