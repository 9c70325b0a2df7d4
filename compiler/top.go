package compiler

import (
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerTop implements §4.5 step 9.
func (a *assembler) lowerTop(top *tsql.TopSpec) error {
	if top == nil {
		return nil
	}
	if top.Percent || top.WithTies {
		return &dvtypes.NotSupportedQueryFragmentError{Reason: "TOP PERCENT and WITH TIES are not supported", Fragment: ""}
	}
	if len(a.pipeline) == 0 {
		n := top.Value
		a.fetch.Top = &n
		return nil
	}
	a.pipeline = append(a.pipeline, &ops.Top{N: top.Value})
	return nil
}
