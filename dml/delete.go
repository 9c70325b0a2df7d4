package dml

import (
	"strings"

	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

// CompileDelete implements §4.8's DELETE rule: like UPDATE, but the driving
// SELECT only fetches the identifying column(s) DELETE needs — listmember's
// compound key, an intersect entity's two many-to-many attributes, or the
// target's primary id.
func CompileDelete(stmt *tsql.DeleteStatement, md metadata.Provider, opts compiler.Options) (*DeletePlan, error) {
	em, err := entityMetadataOrErr(md, stmt.Table.Name)
	if err != nil {
		return nil, err
	}

	idColumns, err := deleteIDColumns(em)
	if err != nil {
		return nil, err
	}

	elements := make([]tsql.SelectElement, len(idColumns))
	for i, name := range idColumns {
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

	return &DeletePlan{
		Select:     sel,
		EntityName: em.LogicalName,
		IDColumns:  idColumns,
	}, nil
}

func deleteIDColumns(em *metadata.EntityMetadata) ([]string, error) {
	if strings.ToLower(em.LogicalName) == "listmember" {
		return []string{"listid", "entityid"}, nil
	}
	if em.IsIntersect {
		rel, err := em.SoleManyToMany()
		if err != nil {
			return nil, err
		}
		return []string{rel.Entity1IntersectAttribute, rel.Entity2IntersectAttribute}, nil
	}
	return []string{em.PrimaryIDAttribute}, nil
}
