package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/queryir"
)

func customerTable() *queryir.CreateTable {
	return &queryir.CreateTable{
		Table:       queryir.Table{Name: "Customer", Schema: "sales"},
		IfNotExists: true,
		Columns: []queryir.ColumnDef{
			{Name: "ID", Type: queryir.TypeInt64, PrimaryKey: true, AutoIncrement: true},
			{Name: "Name", Type: queryir.TypeString, Length: 40, NotNull: true},
			{Name: "Active", Type: queryir.TypeBit, NotNull: true, Default: queryir.Literal{Value: true}},
			{Name: "Balance", Type: queryir.TypeDecimal, Precision: 18, Scale: 2},
			{Name: "CountryID", Type: queryir.TypeInt32},
			{Name: "Raw", Definition: "TEXT COLLATE NOCASE"},
		},
		ForeignKeys: []queryir.ForeignKey{{
			Columns:    []string{"CountryID"},
			RefTable:   queryir.Table{Name: "Country", Schema: "sales"},
			RefColumns: []string{"ID"},
			OnDelete:   queryir.OnDeleteSetNull,
		}},
	}
}

func TestCompile_CreateTableGolden(t *testing.T) {
	testCases := []struct {
		name    string
		dialect Dialect
	}{
		{"create_table_sqlite", SQLite},
		{"create_table_postgres", Postgres},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := tc.dialect.Compile(customerTable())
			require.NoError(t, err)
			assert.Empty(t, stmt.Args, "DDL carries no parameters")

			newGoldie(t).Assert(t, tc.name, []byte(stmt.SQL+"\n"))
		})
	}
}

func TestCompile_CreateTableRejectsParamDefault(t *testing.T) {
	ct := customerTable()
	ct.Columns[1].Default = queryir.Param{Value: "x"}

	_, err := SQLite.Compile(ct)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default must be a literal")
}

func TestCompile_CreateIndex(t *testing.T) {
	idx := &queryir.CreateIndex{
		Name:        "IX_Customer_Name",
		Table:       queryir.Table{Name: "Customer"},
		Columns:     []string{"Name"},
		Include:     []string{"Active"},
		IfNotExists: true,
	}

	testCases := []struct {
		name    string
		dialect Dialect
		unique  bool
		want    string
	}{
		{
			name:    "sqlite appends covering columns",
			dialect: SQLite,
			want:    `CREATE INDEX IF NOT EXISTS "IX_Customer_Name" ON "Customer" ("Name", "Active")`,
		},
		{
			name:    "sqlite drops covering columns of unique index",
			dialect: SQLite,
			unique:  true,
			want:    `CREATE UNIQUE INDEX IF NOT EXISTS "IX_Customer_Name" ON "Customer" ("Name")`,
		},
		{
			name:    "postgres include",
			dialect: Postgres,
			unique:  true,
			want:    `CREATE UNIQUE INDEX IF NOT EXISTS "IX_Customer_Name" ON "Customer" ("Name") INCLUDE ("Active")`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := *idx
			c.Unique = tc.unique

			stmt, err := tc.dialect.Compile(&c)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stmt.SQL)
			assert.Equal(t, []string{"Active"}, idx.Include, "template must be left untouched")
		})
	}
}
