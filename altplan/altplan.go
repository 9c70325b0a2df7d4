// Package altplan builds the aggregate alternative plan (§4.7): when the
// primary compile comes out as a native <fetch aggregate="true"> FetchXML,
// also compile the expression-path alternative so the runtime can fall back
// to it on AggregateQueryRecordLimitExceeded without the caller observing a
// switch in compiled shape. Grounded on the teacher's query/aggregation_query.go
// clone-and-rebuild pattern, generalized from "clone this query's builder
// state" to "recompile from the same AST with ForceAggregateExpression set".
package altplan

import (
	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

// Compile runs the primary compile and, when it resolves to a native
// aggregate plan, attaches a second expression-path compile of the same
// statement as CompiledQuery.AggregateAlternative. A failure to build the
// alternative is not fatal: the primary plan is still returned, just without
// a fallback.
func Compile(sel *tsql.SelectStatement, md metadata.Provider, opts compiler.Options) (*compiler.CompiledQuery, error) {
	primary, err := compiler.CompileSelect(sel, md, opts)
	if err != nil {
		return nil, err
	}
	if !primary.IsNativeAggregate || opts.ForceAggregateExpression {
		return primary, nil
	}

	altOpts := opts
	altOpts.ForceAggregateExpression = true
	alt, err := compiler.CompileSelect(sel, md, altOpts)
	if err == nil {
		primary.AggregateAlternative = alt
	}
	return primary, nil
}
