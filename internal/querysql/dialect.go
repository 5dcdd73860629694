package querysql

import (
	"strconv"
	"strings"

	"github.com/roach88/relmap/internal/queryir"
)

// KeyRetrieval is how a dialect hands back a database-assigned key after
// an INSERT.
type KeyRetrieval int

const (
	// KeyFromResult reads the key from the driver result (LastInsertId).
	KeyFromResult KeyRetrieval = iota
	// KeyReturning appends RETURNING to the INSERT and scans the key.
	KeyReturning
	// KeyQuery runs LastKeyQuery on the same connection after the INSERT.
	KeyQuery
)

func (k KeyRetrieval) String() string {
	switch k {
	case KeyFromResult:
		return "result"
	case KeyReturning:
		return "returning"
	case KeyQuery:
		return "query"
	}
	return "unknown"
}

// Dialect turns queryir commands into SQL text for one database family.
//
// A Dialect is a plain value; copy it and change fields to derive a
// variant (for example SQLite with KeyQuery retrieval).
type Dialect struct {
	// Name identifies the dialect in configuration and logs.
	Name string

	// Numbered selects "$1, $2" placeholders instead of "?".
	Numbered bool

	// Keys is the key retrieval capability.
	Keys KeyRetrieval

	// LastKeyQuery is run when Keys is KeyQuery.
	LastKeyQuery string

	// Schemas reports whether schema qualifiers are rendered.
	Schemas bool

	// Include reports whether CREATE INDEX supports INCLUDE.
	Include bool

	// NoLimit is the LIMIT operand used when only OFFSET is set.
	NoLimit string

	// Types maps abstract types to column type text.
	Types func(c queryir.ColumnDef) string

	// Identity is appended to an auto-increment primary key column.
	Identity string
}

// SQLite is the default dialect.
var SQLite = Dialect{
	Name:     "sqlite",
	Keys:     KeyFromResult,
	NoLimit:  "-1",
	Types:    sqliteType,
	Identity: "PRIMARY KEY AUTOINCREMENT",
}

// Postgres renders for PostgreSQL through lib/pq.
var Postgres = Dialect{
	Name:     "postgres",
	Numbered: true,
	Keys:     KeyReturning,
	Schemas:  true,
	Include:  true,
	NoLimit:  "ALL",
	Types:    postgresType,
	Identity: "GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
}

// Lookup returns the named dialect. Driver names are accepted as aliases.
func Lookup(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pq":
		return Postgres, true
	}
	return Dialect{}, false
}

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns the placeholder for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// TableName renders a qualified table name.
func (d Dialect) TableName(t queryir.Table) string {
	if t.Schema != "" && d.Schemas {
		return d.Quote(t.Schema) + "." + d.Quote(t.Name)
	}
	return d.Quote(t.Name)
}

func sqliteType(c queryir.ColumnDef) string {
	switch c.Type {
	case queryir.TypeBit:
		return "BOOLEAN"
	case queryir.TypeInt8, queryir.TypeInt16, queryir.TypeInt32, queryir.TypeInt64:
		return "INTEGER"
	case queryir.TypeFloat32, queryir.TypeFloat64:
		return "REAL"
	case queryir.TypeDecimal:
		return "TEXT"
	case queryir.TypeDateTime:
		return "DATETIME"
	case queryir.TypeGUID:
		return "TEXT"
	case queryir.TypeBinary:
		return "BLOB"
	case queryir.TypeString:
		if c.Length > 0 {
			return "VARCHAR(" + strconv.Itoa(c.Length) + ")"
		}
		return "TEXT"
	}
	return "BLOB"
}

func postgresType(c queryir.ColumnDef) string {
	switch c.Type {
	case queryir.TypeBit:
		return "BOOLEAN"
	case queryir.TypeInt8, queryir.TypeInt16:
		return "SMALLINT"
	case queryir.TypeInt32:
		return "INTEGER"
	case queryir.TypeInt64:
		return "BIGINT"
	case queryir.TypeFloat32:
		return "REAL"
	case queryir.TypeFloat64:
		return "DOUBLE PRECISION"
	case queryir.TypeDecimal:
		if c.Precision > 0 {
			return "NUMERIC(" + strconv.Itoa(c.Precision) + "," + strconv.Itoa(c.Scale) + ")"
		}
		return "NUMERIC"
	case queryir.TypeDateTime:
		return "TIMESTAMPTZ"
	case queryir.TypeGUID:
		return "UUID"
	case queryir.TypeBinary:
		return "BYTEA"
	case queryir.TypeString:
		if c.Length > 0 {
			return "VARCHAR(" + strconv.Itoa(c.Length) + ")"
		}
		return "TEXT"
	}
	return "BYTEA"
}
