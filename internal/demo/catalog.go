// Package demo holds the mapped record types the relmap CLI describes,
// renders and migrates: a small bookshop.
package demo

import (
	"reflect"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/roach88/relmap/internal/schema"
)

// Publisher issues books.
type Publisher struct {
	ID      int64
	Name    string `orm:"length=80;notnull"`
	Country string `orm:"length=2;default=NL"`
}

// Author writes books.
type Author struct {
	ID   int64
	Name string `orm:"length=80;notnull;trim"`
	Born time.Time
}

// Edition is stored inline in Book as Edition_* columns.
type Edition struct {
	Year      int32
	Publisher *Publisher
}

// Book is the central record: eager author, inline edition, a review
// count computed per row and an optimistic concurrency token.
type Book struct {
	_ schema.IndexOn `orm:"fields=ISBN;unique"`
	_ schema.IndexOn `orm:"fields=Title;include=Price"`

	ID      int64
	ISBN    string      `orm:"length=13;notnull"`
	Key     uuid.UUID   `orm:"notnull"`
	Title   string      `orm:"length=120;notnull"`
	Price   apd.Decimal `orm:"precision=10,2"`
	InPrint bool        `orm:"default=true"`
	Author  *Author     `orm:"fk=cascade"`
	Edition Edition
	Version int64 `orm:"rowversion"`
	Reviews int64 `orm:"subquery"`
}

// Subqueries implements schema.SubqueryProvider.
func (Book) Subqueries() map[string]schema.SubqueryBuilder {
	return map[string]schema.SubqueryBuilder{
		"Reviews": schema.Aggregate{Func: "count", Of: reflect.TypeFor[Review](), Match: "Book"},
	}
}

// Review is a reader's rating of a book.
type Review struct {
	ID    int64
	Book  schema.Ref[Book] `orm:"fk=cascade"`
	Stars int16            `orm:"default=3;notnull"`
	Text  string
}

// Shelf is a read-only view over books in print.
type Shelf struct {
	_ schema.Table `orm:"query=SELECT ID, Title FROM Book WHERE InPrint"`

	ID    int64
	Title string
}

var catalog = map[string]reflect.Type{
	"Publisher": reflect.TypeFor[Publisher](),
	"Author":    reflect.TypeFor[Author](),
	"Book":      reflect.TypeFor[Book](),
	"Review":    reflect.TypeFor[Review](),
	"Shelf":     reflect.TypeFor[Shelf](),
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the record type registered under name.
func Lookup(name string) (reflect.Type, bool) {
	t, ok := catalog[name]
	return t, ok
}

// Types returns every record type, ordered by name.
func Types() []reflect.Type {
	names := Names()
	out := make([]reflect.Type, len(names))
	for i, name := range names {
		out[i] = catalog[name]
	}
	return out
}
