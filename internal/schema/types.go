package schema

import (
	"reflect"
	"strings"

	"github.com/roach88/relmap/internal/queryir"
)

// Table is the zero-size table marker. Declare it as a blank field:
//
//	type Customer struct {
//	    _ schema.Table `orm:"name=Customers;prefix=cu;schema=sales"`
//	    ID   int64
//	    Name string `orm:"length=40;notnull"`
//	}
type Table struct{}

// IndexOn is the zero-size index marker:
//
//	_ schema.IndexOn `orm:"fields=Name,Address.City;include=Active;unique"`
type IndexOn struct{}

var (
	tableMarkerType = reflect.TypeFor[Table]()
	indexMarkerType = reflect.TypeFor[IndexOn]()
)

// Schema is the relational shape of a record type. It is immutable once
// built and shared through the Registry.
type Schema struct {
	Type       reflect.Type
	Table      string
	SchemaName string
	Prefix     string
	Query      string
	Mapped     bool
	ManualKey  bool
	RowVersion *Field
	Fields     []*Field
	Indices    []*Index

	// InliningField is the parent field this schema is embedded through,
	// nil for top-level schemas.
	InliningField *Field

	primaryKey *Field
	pkErr      error
	byName     map[string]*Field
}

// PrimaryKey returns the key field. A schema without one fails here rather
// than at construction, so inline child shapes stay usable.
func (s *Schema) PrimaryKey() (*Field, error) {
	if s.pkErr != nil {
		return nil, s.pkErr
	}
	return s.primaryKey, nil
}

// Field returns the direct field with the given Go name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Lookup resolves a dotted Go field path through inline fields.
// "Address.City" resolves City inside the inline Address schema.
func (s *Schema) Lookup(path string) (*Field, bool) {
	cur := s
	parts := strings.Split(path, ".")
	for i, part := range parts {
		f, ok := cur.Field(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return f, true
		}
		if !f.IsInline {
			return nil, false
		}
		cur = f.InlineSchema
	}
	return nil, false
}

// Columns returns every persisted column in depth-first order, descending
// through inline fields. Eager and reference fields contribute their
// foreign-key column; subquery fields contribute nothing.
func (s *Schema) Columns() []*Field {
	var out []*Field
	for _, f := range s.Fields {
		switch {
		case f.IsInline:
			out = append(out, f.InlineSchema.Columns()...)
		case f.IsColumn:
			out = append(out, f)
		}
	}
	return out
}

// Field describes one mapped struct field.
type Field struct {
	// ID is the position of the field in its schema's Fields.
	ID int

	Name  string
	Path  string
	Type  reflect.Type
	Index []int

	IsPrimaryKey   bool
	AutoIncrement  bool
	IsColumn       bool
	IsFromDatabase bool
	IsReadOnly     bool
	IsRowVersion   bool

	DBName     string
	DBType     queryir.DataType
	Length     int
	Precision  int
	Scale      int
	Trim       bool
	Definition string
	Default    *string
	NotNull    bool
	Nullable   bool

	IsInline     bool
	InlineSchema *Schema
	InlinePrefix string

	IsEager     bool
	IsReference bool
	ForeignType reflect.Type

	IsForeignKey    bool
	CascadeOnDelete bool
	SetNullOnDelete bool

	Subquery SubqueryBuilder

	declaring FieldKey
}

// Key returns the field's position identity, used by traversals to detect
// paths that re-enter the same field.
func (f *Field) Key() FieldKey {
	return f.declaring
}

// HasDefault reports whether a default value is declared.
func (f *Field) HasDefault() bool {
	return f.Default != nil
}

// IsSubquery reports whether the field is backed by a scalar subquery.
func (f *Field) IsSubquery() bool {
	return f.Subquery != nil
}

// IsPlain reports whether the field is a directly selected column.
func (f *Field) IsPlain() bool {
	return f.IsColumn && !f.IsEager
}

// Index describes an index over a table.
type Index struct {
	Name    string
	Unique  bool
	Fields  []*Field
	Include []*Field
}

// FieldKey is a field position: the declaring struct type and the field's
// index within it.
type FieldKey struct {
	Owner reflect.Type
	Index int
}

// Ref is a reference-only foreign key: it holds the key of a T record
// without loading it. A zero ID is stored as NULL.
type Ref[T any] struct {
	ID int64
}

// RefTo returns a reference to the record with the given key.
func RefTo[T any](id int64) Ref[T] {
	return Ref[T]{ID: id}
}

// IsZero reports whether the reference is unset.
func (r Ref[T]) IsZero() bool {
	return r.ID == 0
}

func (Ref[T]) refTarget() reflect.Type {
	return reflect.TypeFor[T]()
}

type referent interface {
	refTarget() reflect.Type
}

var referentType = reflect.TypeFor[referent]()

// RefTarget returns the referenced record type when t is a Ref.
func RefTarget(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || !t.Implements(referentType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(referent).refTarget(), true
}

// KeyOf returns the key held by a Ref value.
func KeyOf(v reflect.Value) int64 {
	return v.Field(0).Int()
}
