// Package command provides the typed INSERT, UPDATE, DELETE and SELECT
// executors.
//
// An Engine ties together the schema registry, the marshal plan cache, a
// SQL dialect and an Executor. Per record type it assembles one template
// per command kind, caches it, and clones or binds it per call:
//
//	eng := command.New(db, command.WithDialect(querysql.SQLite))
//
//	n, err := command.NewInsert[Customer](eng).Exec(ctx, &c)
//
//	rows, err := command.NewSelect[Customer](eng).
//	    Where(predicate.Eq(predicate.Field("Address.City"), predicate.Const("Oslo"))).
//	    OrderBy("Name").
//	    All(ctx)
//
// COLUMN ORDER CONTRACT:
//
// The SELECT assembler walks a schema in the same three passes as the
// materializer (columns, eager joins, subqueries) and aliases each column
// by its field path. Template construction fails if the two orders ever
// disagree.
//
// NOTIFICATIONS:
//
// Records may implement BeforeInserter, AfterInserter and the update and
// delete equivalents; builders accept the same hooks as functions. A
// before hook returns Continue, Skip (omit this record) or Break (stop
// processing); neither Skip nor Break is an error.
//
// OPTIMISTIC CONCURRENCY:
//
// For schemas with a row version, UPDATE filters on the captured version
// and sets it to captured+1, writing the new value back to the record on
// success. Zero affected rows is then a ConcurrencyError. Without a row
// version zero affected rows is reported as a count, not an error.
package command
