// Package schema reflects Go record types into relational schemas.
//
// A record is a struct. Its mapping is declared with `orm` struct tags and
// zero-size marker fields:
//
//	type Customer struct {
//	    _ schema.Table   `orm:"prefix=cu;schema=sales"`
//	    _ schema.IndexOn `orm:"fields=Name;unique"`
//
//	    ID      int64
//	    Name    string              `orm:"length=40;notnull"`
//	    Address Address             `orm:"inline"`
//	    Country *Country            `orm:"fk=setnull"`
//	    Parent  schema.Ref[Customer]
//	}
//
// FIELD CATEGORIES:
//
//   - plain column: scalar Go types, time.Time, uuid.UUID, apd.Decimal,
//     []byte and the database/sql Null types
//   - inline: a struct value (or tagged pointer) whose fields share the
//     owner's table, with columns named <prefix>_<field>
//   - eager: a pointer to another record, stored as its key and loaded
//     through a LEFT JOIN
//   - reference: schema.Ref[T], stored as T's key and never joined
//   - subquery: a read-only value computed per row by a SubqueryBuilder
//
// EMBEDDING:
//
// Anonymous embedded structs are base levels. Levels are walked base
// first, so an outer field with the same name replaces the embedded
// descriptor while keeping its position.
//
// Schemas are immutable once built and cached by the Registry.
package schema
