package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	d := mustSchema[Customer](t).Describe()

	assert.Equal(t, "Customer", d.Table)
	assert.Equal(t, "sales", d.Schema)
	assert.Equal(t, "ID", d.PrimaryKey)
	assert.Equal(t, "Version", d.RowVersion)
	require.Len(t, d.Indices, 2)
	assert.Equal(t, []string{"Addr_City"}, d.Indices[1].Columns)
	assert.Equal(t, []string{"Active"}, d.Indices[1].Include)

	byName := map[string]FieldDescription{}
	for _, f := range d.Fields {
		byName[f.Name] = f
	}

	assert.Equal(t, KindInline, byName["Address"].Kind)
	assert.Empty(t, byName["Address"].Column)
	require.Len(t, byName["Address"].Fields, 3)
	assert.Equal(t, "Addr_Street", byName["Address"].Fields[0].Column)

	assert.Equal(t, KindEager, byName["Country"].Kind)
	assert.Equal(t, "CountryID", byName["Country"].Column)
	assert.Equal(t, "int16", byName["Country"].DBType)
	assert.Equal(t, "setnull", byName["Country"].OnDelete)

	assert.Equal(t, KindReference, byName["Parent"].Kind)
	assert.Equal(t, KindColumn, byName["Name"].Kind)
	assert.Equal(t, 12, byName["Name"].Length)
}

func TestDescribe_Subquery(t *testing.T) {
	d := mustSchema[Order](t).Describe()
	require.Len(t, d.Fields, 4)
	assert.Equal(t, KindSubquery, d.Fields[2].Kind)
	assert.True(t, d.Fields[2].ReadOnly)
}
