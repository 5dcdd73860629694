package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/relmap/internal/schema"
)

type Region struct {
	ID   int64
	Name string `orm:"length=40;notnull"`
}

type Address struct {
	Street string
	City   string `orm:"length=30"`
}

type Shop struct {
	_ schema.IndexOn `orm:"fields=Name;unique"`
	_ schema.IndexOn `orm:"fields=Address.City;include=Open"`

	ID      int64
	Name    string `orm:"length=40;notnull"`
	Open    bool   `orm:"default=1"`
	Rank    int32  `orm:"default=5"`
	Address Address
	Region  *Region `orm:"fk=cascade"`
	Parent  schema.Ref[Shop]
}

// Grown is Shop with one more column; it maps to the same table.
type Grown struct {
	_ schema.Table `orm:"name=Shop"`

	ID    int64
	Name  string `orm:"length=40;notnull"`
	Extra string
}

type Report struct {
	_ schema.Table `orm:"query=SELECT 1 AS ID"`

	ID int64
}

type Loop struct {
	ID   int64
	Back schema.Ref[Pool]
}

type Pool struct {
	ID   int64
	Back schema.Ref[Loop]
}

// createTestStore opens a SQLite store in a temporary directory through
// the pure-Go driver.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), "sqlite", path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
