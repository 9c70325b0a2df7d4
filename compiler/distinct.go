package compiler

import "github.com/hollowloop/dvsql/ops"

// lowerDistinct implements §4.5 step 5.
func (a *assembler) lowerDistinct(distinct bool) {
	if !distinct {
		return
	}
	if len(a.pipeline) == 0 {
		a.fetch.Distinct = true
		return
	}
	a.pipeline = append(a.pipeline, &ops.Distinct{})
}
