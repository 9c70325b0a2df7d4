// Package compiler is the query assembler (§4.5): it drives FROM/WHERE/
// GROUP BY/SELECT/DISTINCT/ORDER BY/HAVING/OFFSET/TOP lowering in the
// fixed order the spec requires, deciding at each step whether the clause
// can still be expressed natively in FetchXML or must drop into the
// post-processing pipeline.
package compiler

import (
	"fmt"
	"strings"

	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/ops"
	"github.com/hollowloop/dvsql/predicate"
	"github.com/hollowloop/dvsql/tsql"
)

// Options configures one compile call (§5: stateless except for the
// borrowed metadata reference, safe to call concurrently with distinct
// Options/table lists).
type Options struct {
	// QuotedIdentifiers allows "double-quoted" or [bracketed] identifiers
	// in addition to bare ones (both are already accepted by the lexer;
	// this only governs whether the front end should have rejected them).
	QuotedIdentifiers bool
	// TSQLEndpointAvailable records whether the caller can run raw SQL
	// against a T-SQL endpoint. The compiler does not read it: a query it
	// cannot lower fails with NotSupportedQueryFragmentError either way, and
	// CompiledQuery.SQL is never populated.
	TSQLEndpointAvailable bool
	// ForceAggregateExpression skips the native aggregate FetchXML path
	// even when it would otherwise apply (§4.7: used to build the
	// aggregate_alternative plan).
	ForceAggregateExpression bool
}

// CompiledQuery is the compiler's wire shape (§6.3).
type CompiledQuery struct {
	FetchXML             string
	SQL                  string
	Columns              []string
	Pipeline             []ops.Operator
	AggregateAlternative *CompiledQuery
	// IsNativeAggregate reports whether FetchXML carries a native <fetch
	// aggregate="true"> plan, so the altplan package knows whether a
	// second expression-path compile is worth building (§4.7).
	IsNativeAggregate bool
}

// EntityTable is one arena-allocated FROM-clause entry (root entity or
// link-entity). It implements binder.Table and expr.ColumnAdder without
// exposing a back-pointer to the arena; callers address it only by index
// (§9 Design Notes: arena/index, not back-pointers).
type EntityTable struct {
	alias      string
	entityName string
	md         *metadata.EntityMetadata
	container  fetchxml.AttributeContainer
}

func (t *EntityTable) Alias() string                       { return t.alias }
func (t *EntityTable) EntityName() string                  { return t.entityName }
func (t *EntityTable) Metadata() *metadata.EntityMetadata   { return t.md }
func (t *EntityTable) Container() fetchxml.AttributeContainer { return t.container }

// ResolveAlias implements binder.Table: a one-part identifier may match a
// previously declared FetchXML attribute alias (§4.1), e.g. a generated
// aggregate alias or a SELECT-list alias on a real table column.
func (t *EntityTable) ResolveAlias(alias string) (string, bool) {
	a, ok := fetchxml.FindAttributeAlias(t.container, alias)
	if !ok {
		return "", false
	}
	return a.Name, true
}

// RequestAttribute implements expr.ColumnAdder: ensure the attribute is on
// the wire, returning the row key evaluation should read it back under
// (its existing alias if the SELECT list already aliased it, else its
// logical name).
func (t *EntityTable) RequestAttribute(name string) string {
	if a, ok := fetchxml.FindAttributeByName(t.container, name); ok {
		if a.Alias != "" {
			return a.Alias
		}
		return name
	}
	if fetchxml.HasAllAttributes(t.container) {
		return name
	}
	fetchxml.EnsureAttribute(t.container, name)
	return name
}

// arena owns every EntityTable for one compile call and exposes the
// binder/expr collaborator interfaces over it by index.
type arena struct {
	tables []*EntityTable
}

func (a *arena) ColumnAdder(index int) expr.ColumnAdder { return a.tables[index] }

func (a *arena) RowKey(index int, attributeName string) string {
	return a.tables[index].RequestAttribute(attributeName)
}

func (a *arena) scope() *binder.Scope {
	s := &binder.Scope{Tables: make([]binder.Table, len(a.tables))}
	for i, t := range a.tables {
		s.Tables[i] = t
	}
	return s
}

// assembler carries the mutable state threaded through the ordered steps
// of §4.5.
type assembler struct {
	opts     Options
	metadata metadata.Provider
	arena    *arena
	fetch    *fetchxml.Fetch
	exprLow  *expr.Lowerer
	predLow  *predicate.Lowerer
	pipeline []ops.Operator
	// fetchXMLFrozen becomes true the first time a post-processing
	// operator is appended; once true, every later step must use its
	// expression path (§4.5 preamble).
	fetchXMLFrozen bool
	noLock         bool
}

func newAssembler(opts Options, md metadata.Provider) *assembler {
	a := &assembler{opts: opts, metadata: md, arena: &arena{}}
	scope := a.arena.scope()
	a.exprLow = &expr.Lowerer{Scope: scope, Tables: a.arena}
	a.predLow = &predicate.Lowerer{Scope: scope, Expr: a.exprLow}
	return a
}

func (a *assembler) refreshScope() {
	scope := a.arena.scope()
	a.exprLow.Scope = scope
	a.predLow.Scope = scope
}

func (a *assembler) freeze() { a.fetchXMLFrozen = true }

// Compile lowers a single parsed statement. UPDATE/DELETE/INSERT are
// handled by the dml package, which drives this assembler's SELECT path
// internally and post-processes the result (§4.8). Compile does not
// attach the §4.7 aggregate alternative plan — callers that want it
// should use the altplan package instead, which wraps CompileSelect.
func Compile(stmt tsql.Statement, md metadata.Provider, opts Options) (*CompiledQuery, error) {
	sel, ok := stmt.(*tsql.SelectStatement)
	if !ok {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "compiler.Compile only accepts SELECT; use the dml package for other statements", Fragment: ""}
	}
	return CompileSelect(sel, md, opts)
}

// CompileSelect assembles a SELECT statement into a CompiledQuery,
// driving the steps of §4.5 in order.
func CompileSelect(sel *tsql.SelectStatement, md metadata.Provider, opts Options) (*CompiledQuery, error) {
	spec := sel.Spec
	asm := newAssembler(opts, md)

	rootTable, err := asm.lowerFrom(spec.From)
	if err != nil {
		return nil, err
	}
	asm.fetch = fetchxml.NewFetch(rootTable.EntityName())
	asm.fetch.Entity = rootTable.container.(*fetchxml.Entity)
	asm.fetch.NoLock = asm.noLock

	if spec.Where != nil {
		if err := asm.lowerWhere(spec.Where); err != nil {
			return nil, err
		}
	}

	if err := asm.lowerGroupByAndAggregates(spec); err != nil {
		return nil, err
	}

	columns, err := asm.lowerSelect(spec.SelectElements)
	if err != nil {
		return nil, err
	}

	asm.lowerDistinct(spec.Distinct)

	if err := asm.lowerOrderBy(spec.OrderBy, columns); err != nil {
		return nil, err
	}

	if spec.Having != nil {
		if err := asm.lowerHaving(spec.Having); err != nil {
			return nil, err
		}
	}

	asm.lowerOffsetFetch(spec.Offset, spec.Fetch)
	if err := asm.lowerTop(spec.Top); err != nil {
		return nil, err
	}

	fetchxml.SortDocument(asm.fetch)
	asm.fetch.PruneEmpty()

	xmlText, err := fetchxml.Serialize(asm.fetch)
	if err != nil {
		return nil, err
	}

	cq := &CompiledQuery{
		FetchXML:          xmlText,
		Columns:           columns,
		Pipeline:          asm.pipeline,
		IsNativeAggregate: asm.fetch.Aggregate,
	}

	return cq, nil
}

func nextAvailableIndex(a *arena) int { return len(a.tables) }

func entityMetadataOrErr(md metadata.Provider, name string) (*metadata.EntityMetadata, error) {
	em, err := md.Get(name)
	if err != nil {
		return nil, &dvtypes.UnknownTableError{Identifier: name}
	}
	return em, nil
}

func fmtAlias(prefix string, n int) string {
	if n == 0 {
		return prefix
	}
	return fmt.Sprintf("%s_%d", prefix, n)
}

func lowerName(s string) string { return strings.ToLower(s) }
