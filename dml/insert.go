package dml

import (
	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

// CompileInsert implements §4.8's INSERT rules for both VALUES and SELECT
// sources.
func CompileInsert(stmt *tsql.InsertStatement, md metadata.Provider, opts compiler.Options) (any, error) {
	em, err := entityMetadataOrErr(md, stmt.Table.Name)
	if err != nil {
		return nil, err
	}

	switch src := stmt.Source.(type) {
	case *tsql.InsertValuesSource:
		return compileInsertValues(stmt, em, src)
	case *tsql.InsertSelectSource:
		return compileInsertSelect(stmt, em, src, md, opts)
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unknown INSERT source", Fragment: ""}
	}
}

// compileInsertValues pre-converts literal cells to the target attribute's
// type; non-literal cells compile as zero-argument expressions (§4.8).
func compileInsertValues(stmt *tsql.InsertStatement, em *metadata.EntityMetadata, src *tsql.InsertValuesSource) (*InsertValuesPlan, error) {
	lw := newZeroArgLowerer()
	rows := make([][]RowFunc, len(src.Rows))
	for ri, row := range src.Rows {
		if len(row) != len(stmt.Columns) {
			return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "VALUES row does not match column count", Fragment: stmt.Table.Name}
		}
		cells := make([]RowFunc, len(row))
		for ci, cell := range row {
			fn, err := lowerInsertCell(lw, em, stmt.Columns[ci], cell)
			if err != nil {
				return nil, err
			}
			cells[ci] = fn
		}
		rows[ri] = cells
	}
	return &InsertValuesPlan{
		EntityName: em.LogicalName,
		Columns:    append([]string(nil), stmt.Columns...),
		Rows:       rows,
	}, nil
}

func lowerInsertCell(lw *expr.Lowerer, em *metadata.EntityMetadata, column string, cell tsql.ScalarExpr) (RowFunc, error) {
	if lit, ok := cell.(*tsql.Literal); ok {
		attrType, err := targetAttrType(em, column)
		if err != nil {
			return nil, err
		}
		value, err := convertLiteral(lit, attrType)
		if err != nil {
			return nil, err
		}
		return func(dvtypes.Row) (any, error) { return value, nil }, nil
	}
	e, err := lw.LowerScalar(cell)
	if err != nil {
		return nil, err
	}
	return func(row dvtypes.Row) (any, error) { return e.Eval(row) }, nil
}

// compileInsertSelect asserts the source SELECT's column count matches the
// target list and records the positional mapping (§4.8).
func compileInsertSelect(stmt *tsql.InsertStatement, em *metadata.EntityMetadata, src *tsql.InsertSelectSource, md metadata.Provider, opts compiler.Options) (*InsertSelectPlan, error) {
	sel, err := compiler.CompileSelect(src.Select, md, opts)
	if err != nil {
		return nil, err
	}
	if len(sel.Columns) != len(stmt.Columns) {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "INSERT SELECT column count does not match target column list", Fragment: stmt.Table.Name}
	}
	return &InsertSelectPlan{
		EntityName:    em.LogicalName,
		Columns:       append([]string(nil), stmt.Columns...),
		SourceColumns: append([]string(nil), sel.Columns...),
		Select:        sel,
	}, nil
}
