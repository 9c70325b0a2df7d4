package dml

import (
	"github.com/hollowloop/dvsql/binder"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/metadata"
)

// targetTable is the single-table binder.Table/expr.ColumnAdder view DML
// statements need when lowering a SET/VALUES scalar expression that
// references the statement's own target columns (e.g. an UPDATE column
// target referencing another column by name). Unlike compiler.EntityTable
// it never mutates a FetchXML container: the attribute was already
// requested by the synthetic SELECT that drives the statement.
type targetTable struct {
	entityName string
	md         *metadata.EntityMetadata
}

func (t *targetTable) Alias() string                     { return "" }
func (t *targetTable) EntityName() string                { return t.entityName }
func (t *targetTable) Metadata() *metadata.EntityMetadata { return t.md }
func (t *targetTable) ResolveAlias(string) (string, bool) { return "", false }
func (t *targetTable) RequestAttribute(name string) string { return name }

type singleTableArena struct{ t *targetTable }

func (s *singleTableArena) ColumnAdder(int) expr.ColumnAdder { return s.t }
func (s *singleTableArena) RowKey(_ int, attributeName string) string { return attributeName }

// newRowLowerer builds an expr.Lowerer that resolves bare column references
// against the statement's single target table, for SET/VALUES expressions
// evaluated against the synthetic SELECT's result row.
func newRowLowerer(entityName string, md *metadata.EntityMetadata) *expr.Lowerer {
	t := &targetTable{entityName: entityName, md: md}
	scope := &binder.Scope{Tables: []binder.Table{t}}
	return &expr.Lowerer{Scope: scope, Tables: &singleTableArena{t: t}}
}

// newZeroArgLowerer builds an expr.Lowerer with no tables in scope, for
// INSERT VALUES cells that must compile as "zero-argument expressions"
// (§4.8): any column reference in such a cell is a compile error.
func newZeroArgLowerer() *expr.Lowerer {
	return &expr.Lowerer{Scope: &binder.Scope{}}
}
