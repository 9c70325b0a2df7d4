package compiler

import (
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/fetchxml"
	"github.com/hollowloop/dvsql/predicate"
	"github.com/hollowloop/dvsql/tsql"
)

// lowerFrom lowers the FROM clause (§4.5 step 1): exactly one root table
// reference, with zero or more qualified joins layered onto it. Returns
// the root EntityTable.
func (a *assembler) lowerFrom(from tsql.TableReference) (*EntityTable, error) {
	if from == nil {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "SELECT requires a FROM clause", Fragment: ""}
	}
	if _, err := a.lowerTableChain(from); err != nil {
		return nil, err
	}
	return a.arena.tables[0], nil
}

// lowerTableChain recursively lowers a TableReference tree left-to-right:
// the leftmost NamedTableReference becomes the root, and each QualifiedJoin
// layers a new LinkEntity onto the table its left operand produced last
// (the root for the first join, the previous join's table after that). The
// ON clause's join key must compare the new table with that table; a key
// against any other earlier table is rejected.
func (a *assembler) lowerTableChain(ref tsql.TableReference) (*EntityTable, error) {
	switch n := ref.(type) {
	case *tsql.NamedTableReference:
		return a.addRootTable(n)
	case *tsql.QualifiedJoin:
		outer, err := a.lowerTableChain(n.Left)
		if err != nil {
			return nil, err
		}
		return a.addJoinedTable(outer, n)
	default:
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported table reference", Fragment: ""}
	}
}

func (a *assembler) addRootTable(n *tsql.NamedTableReference) (*EntityTable, error) {
	noLock, err := validateHints(n.Hints)
	if err != nil {
		return nil, err
	}
	if noLock {
		a.noLock = true
	}
	md, err := entityMetadataOrErr(a.metadata, n.Name)
	if err != nil {
		return nil, err
	}
	entity := &fetchxml.Entity{Name: n.Name}
	table := &EntityTable{alias: n.Alias, entityName: n.Name, md: md, container: entity}
	a.arena.tables = append(a.arena.tables, table)
	a.refreshScope()
	return table, nil
}

func (a *assembler) addJoinedTable(outer *EntityTable, join *tsql.QualifiedJoin) (*EntityTable, error) {
	rightRef, ok := join.Right.(*tsql.NamedTableReference)
	if !ok {
		return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "JOIN right side must be a single table", Fragment: ""}
	}
	noLock, err := validateHints(rightRef.Hints)
	if err != nil {
		return nil, err
	}
	if noLock {
		a.noLock = true
	}
	md, err := entityMetadataOrErr(a.metadata, rightRef.Name)
	if err != nil {
		return nil, err
	}
	alias := rightRef.Alias
	if alias == "" {
		alias = rightRef.Name
	}
	link := &fetchxml.LinkEntity{Name: rightRef.Name, Alias: alias}
	if join.Kind == tsql.JoinLeftOuterKind {
		link.LinkType = fetchxml.JoinOuter
	} else {
		link.LinkType = fetchxml.JoinInner
	}

	newTable := &EntityTable{alias: rightRef.Alias, entityName: rightRef.Name, md: md, container: link}
	a.arena.tables = append(a.arena.tables, newTable)
	a.refreshScope()
	newIndex := len(a.arena.tables) - 1
	outerIndex := -1
	for i, t := range a.arena.tables {
		if t == outer {
			outerIndex = i
			break
		}
	}

	split, err := predicate.SplitJoinCondition(join.On, outerIndex, newIndex, a.arena.scope())
	if err != nil {
		return nil, err
	}
	link.From = split.OuterAttribute
	link.To = split.NewAttribute

	fetchxml.AddLinkEntity(outer.container, link)

	if split.Residual != nil {
		fallback, err := a.predLow.LowerWhere(split.Residual, link)
		if err != nil {
			if predicate.IsPostProcessingRequired(err) {
				return nil, &dvtypes.RewriteAsWhereError{Fragment: rightRef.Name}
			}
			return nil, err
		}
		if len(fallback) > 0 {
			return nil, &dvtypes.RewriteAsWhereError{Fragment: rightRef.Name}
		}
	}

	return newTable, nil
}

func validateHints(hints []string) (noLock bool, err error) {
	for _, h := range hints {
		if h != "NOLOCK" {
			return false, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported table hint", Fragment: h}
		}
		noLock = true
	}
	return noLock, nil
}
