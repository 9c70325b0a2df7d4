package altplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowloop/dvsql/compiler"
	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/metadata"
	"github.com/hollowloop/dvsql/tsql"
)

func accountProvider() *metadata.InMemoryProvider {
	return metadata.NewInMemoryProvider(&metadata.EntityMetadata{
		LogicalName:        "account",
		PrimaryIDAttribute: "accountid",
		Attributes: []metadata.AttributeMetadata{
			{LogicalName: "accountid", AttributeType: dvtypes.MetaUniqueID},
			{LogicalName: "name", AttributeType: dvtypes.MetaString},
			{LogicalName: "revenue", AttributeType: dvtypes.MetaMoney},
		},
	})
}

func parseSelect(t *testing.T, text string) *tsql.SelectStatement {
	t.Helper()
	stmt, err := tsql.ParseQuery(text)
	require.NoError(t, err)
	sel, ok := stmt.(*tsql.SelectStatement)
	require.True(t, ok)
	return sel
}

func TestCompileAttachesAlternativeForNativeAggregate(t *testing.T) {
	md := accountProvider()
	sel := parseSelect(t, "SELECT name, COUNT(accountid) FROM account GROUP BY name")

	cq, err := Compile(sel, md, compiler.Options{})
	require.NoError(t, err)
	require.True(t, cq.IsNativeAggregate)
	require.NotNil(t, cq.AggregateAlternative)
	assert.False(t, cq.AggregateAlternative.IsNativeAggregate)
	assert.NotEmpty(t, cq.AggregateAlternative.Pipeline)
}

func TestCompileSkipsAlternativeForNonAggregate(t *testing.T) {
	md := accountProvider()
	sel := parseSelect(t, "SELECT name FROM account")

	cq, err := Compile(sel, md, compiler.Options{})
	require.NoError(t, err)
	assert.False(t, cq.IsNativeAggregate)
	assert.Nil(t, cq.AggregateAlternative)
}

func TestCompileDoesNotRecurseWhenAlreadyForced(t *testing.T) {
	md := accountProvider()
	sel := parseSelect(t, "SELECT name, COUNT(accountid) FROM account GROUP BY name")

	cq, err := Compile(sel, md, compiler.Options{ForceAggregateExpression: true})
	require.NoError(t, err)
	assert.Nil(t, cq.AggregateAlternative)
}
