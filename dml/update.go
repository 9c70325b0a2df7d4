package dml

import (
	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/expr"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

// CompileUpdate implements §4.8's UPDATE rule: the driving SELECT is a
// distinct fetch of the target's primary id plus every attribute the SET
// list's expressions reference.
func CompileUpdate(stmt *tsql.UpdateStatement, md metadata.Provider, opts compiler.Options) (*UpdatePlan, error) {
	em, err := entityMetadataOrErr(md, stmt.Table.Name)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{normalizeKey(em.PrimaryIDAttribute): true}
	refs := []string{em.PrimaryIDAttribute}
	for _, set := range stmt.Set {
		collectColumnNames(set.Value, seen, &refs)
	}

	elements := make([]tsql.SelectElement, len(refs))
	for i, name := range refs {
		elements[i] = selectElement(name)
	}

	spec := &tsql.QuerySpecification{
		Distinct:       true,
		SelectElements: elements,
		From:           &stmt.Table,
		Where:          stmt.Where,
	}
	sel, err := compiler.CompileSelect(&tsql.SelectStatement{Spec: spec}, md, opts)
	if err != nil {
		return nil, err
	}

	lw := newRowLowerer(stmt.Table.Name, em)
	updates := make(map[string]RowFunc, len(stmt.Set))
	for _, set := range stmt.Set {
		fn, err := lowerSetValue(lw, em, set)
		if err != nil {
			return nil, err
		}
		updates[set.Column] = fn
	}

	return &UpdatePlan{
		Select:     sel,
		EntityName: em.LogicalName,
		IDColumn:   em.PrimaryIDAttribute,
		Updates:    updates,
	}, nil
}

func lowerSetValue(lw *expr.Lowerer, em *metadata.EntityMetadata, set tsql.SetClause) (RowFunc, error) {
	if lit, ok := set.Value.(*tsql.Literal); ok {
		attrType, err := targetAttrType(em, set.Column)
		if err != nil {
			return nil, err
		}
		value, err := convertLiteral(lit, attrType)
		if err != nil {
			return nil, err
		}
		return func(dvtypes.Row) (any, error) { return value, nil }, nil
	}
	e, err := lw.LowerScalar(set.Value)
	if err != nil {
		return nil, err
	}
	return func(row dvtypes.Row) (any, error) { return e.Eval(row) }, nil
}
