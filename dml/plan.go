// Package dml compiles UPDATE/DELETE/INSERT statements by driving the
// compiler package's SELECT assembler internally and post-processing the
// result (§4.8).
package dml

import (
	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

// RowFunc computes one value from a row the driving SELECT produced.
type RowFunc func(row dvtypes.Row) (any, error)

// UpdatePlan is the compiled form of an UPDATE statement (§6.3).
type UpdatePlan struct {
	Select     *compiler.CompiledQuery
	EntityName string
	IDColumn   string
	Updates    map[string]RowFunc
}

// DeletePlan is the compiled form of a DELETE statement (§6.3).
type DeletePlan struct {
	Select     *compiler.CompiledQuery
	EntityName string
	IDColumns  []string
}

// InsertValuesPlan is the compiled form of "INSERT ... VALUES ..." (§6.3).
// Each row is a slice of zero-argument value producers, positionally
// matched to Columns.
type InsertValuesPlan struct {
	EntityName string
	Columns    []string
	Rows       [][]RowFunc
}

// InsertSelectPlan is the compiled form of "INSERT ... SELECT ..." (§6.3).
// SourceColumns[i] names the compiled SELECT's output column feeding
// Columns[i].
type InsertSelectPlan struct {
	EntityName    string
	Columns       []string
	SourceColumns []string
	Select        *compiler.CompiledQuery
}

// Compile lowers one UPDATE/DELETE/INSERT statement, dispatching by AST
// type. It returns one of *UpdatePlan, *DeletePlan, *InsertValuesPlan, or
// *InsertSelectPlan.
func Compile(stmt tsql.Statement, md metadata.Provider, opts compiler.Options) (any, error) {
	switch n := stmt.(type) {
	case *tsql.UpdateStatement:
		return CompileUpdate(n, md, opts)
	case *tsql.DeleteStatement:
		return CompileDelete(n, md, opts)
	case *tsql.InsertStatement:
		return CompileInsert(n, md, opts)
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "dml.Compile only accepts UPDATE/DELETE/INSERT", Fragment: ""}
	}
}

// collectColumnNames gathers every distinct column logical name referenced
// anywhere in a scalar expression tree.
func collectColumnNames(e tsql.ScalarExpr, seen map[string]bool, order *[]string) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *tsql.ColumnRef:
		name := n.Parts[len(n.Parts)-1]
		lower := normalizeKey(name)
		if !seen[lower] {
			seen[lower] = true
			*order = append(*order, name)
		}
	case *tsql.UnaryExpr:
		collectColumnNames(n.Operand, seen, order)
	case *tsql.BinaryExpr:
		collectColumnNames(n.Left, seen, order)
		collectColumnNames(n.Right, seen, order)
	case *tsql.FunctionCall:
		for _, a := range n.Args {
			collectColumnNames(a, seen, order)
		}
	case *tsql.SearchedCase:
		for _, w := range n.WhenClauses {
			collectColumnNames(w.Result, seen, order)
		}
		collectColumnNames(n.Else, seen, order)
	case *tsql.SimpleCase:
		collectColumnNames(n.Input, seen, order)
		for _, w := range n.WhenClauses {
			collectColumnNames(w.Value, seen, order)
			collectColumnNames(w.Result, seen, order)
		}
		collectColumnNames(n.Else, seen, order)
	}
}

func normalizeKey(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func selectElement(columnName string) tsql.SelectElement {
	return tsql.SelectElement{Expr: &tsql.ColumnRef{Parts: []string{columnName}}}
}

func entityMetadataOrErr(md metadata.Provider, name string) (*metadata.EntityMetadata, error) {
	em, err := md.Get(name)
	if err != nil {
		return nil, &dvtypes.UnknownTableError{Identifier: name}
	}
	return em, nil
}

func targetAttrType(em *metadata.EntityMetadata, column string) (dvtypes.AttrType, error) {
	attr, ok := em.Attribute(column)
	if !ok {
		return 0, &dvtypes.UnknownAttributeError{Identifier: column}
	}
	return dvtypes.AttrTypeForMetadata(attr.AttributeType)
}
