// Package relmap maps annotated Go structs to relational tables.
//
// Record types describe their storage with `orm:"..."` struct tags. The
// engine reflects them once, generates per-type binders and materializers,
// compiles predicate expressions to SQL and runs INSERT, UPDATE, DELETE
// and SELECT commands through database/sql:
//
//	db, err := relmap.Open(ctx, "sqlite", "shop.db")
//	...
//	err = relmap.Insert(ctx, db, &Customer{Name: "Ada"})
//	adults, err := relmap.Query[Customer](db).
//		Where(predicate.Ge(predicate.Field("Age"), predicate.Const(18))).
//		All(ctx)
//
// The helpers in this package check that every record supplied was
// written; the builders in internal/command expose notifications, Where
// conditions and streaming readers without that check.
package relmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/roach88/relmap/internal/command"
	"github.com/roach88/relmap/internal/logging"
	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/schema"
	"github.com/roach88/relmap/internal/store"
)

// DB is a mapped database: a store plus the engine caching schemas, plans
// and statement templates for it. A DB from InTx shares the caches and
// runs on the transaction.
type DB struct {
	st  *store.Store
	eng *command.Engine
}

type options struct {
	log *logrus.Logger
}

// Option configures Open.
type Option func(*options)

// WithLogger routes store, schema and command logging to log.
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Open opens the database and prepares an engine in its dialect.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(ctx, driver, dsn, store.WithLogger(logging.Component(o.log, "store")))
	if err != nil {
		return nil, err
	}
	reg := schema.NewRegistry(schema.WithLogger(logging.Component(o.log, "schema")))
	eng := command.New(st,
		command.WithRegistry(reg),
		command.WithDialect(st.Dialect()),
		command.WithLogger(logging.Component(o.log, "command")),
	)
	return &DB{st: st, eng: eng}, nil
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.st.Close()
}

// Engine returns the command engine, for builders with notifications or
// Where conditions.
func (db *DB) Engine() *command.Engine {
	return db.eng
}

// Store returns the underlying store.
func (db *DB) Store() *store.Store {
	return db.st
}

// Migrate creates the tables of types that do not exist yet.
func (db *DB) Migrate(ctx context.Context, types ...reflect.Type) ([]store.TableState, error) {
	return db.st.Migrate(ctx, db.eng.Registry(), types...)
}

// InTx runs fn with a DB bound to one transaction, committing when fn
// returns nil.
func (db *DB) InTx(ctx context.Context, fn func(tx *DB) error) error {
	return db.st.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&DB{st: db.st, eng: db.eng.WithExecutor(tx)})
	})
}

// CardinalityError reports a write that affected a different number of
// rows than records were supplied.
type CardinalityError struct {
	// Op is "insert", "update" or "delete".
	Op string

	// Type is the record type.
	Type string

	// Want is the number of records supplied; Got the rows affected.
	Want, Got int64
}

// Error implements the error interface.
func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s %s: %d record(s) supplied, %d row(s) affected", e.Op, e.Type, e.Want, e.Got)
}

// IsCardinality returns true if err is or wraps a CardinalityError.
func IsCardinality(err error) bool {
	var ce *CardinalityError
	return errors.As(err, &ce)
}

func checkCount[T any](op string, records []*T, got int64, err error) error {
	if err != nil {
		return err
	}
	if want := int64(len(records)); got != want {
		return &CardinalityError{Op: op, Type: reflect.TypeFor[T]().String(), Want: want, Got: got}
	}
	return nil
}

// Insert writes records and assigns their database keys.
func Insert[T any](ctx context.Context, db *DB, records ...*T) error {
	n, err := command.NewInsert[T](db.eng).Exec(ctx, records...)
	return checkCount("insert", records, n, err)
}

// Update writes records by key, bumping row versions.
func Update[T any](ctx context.Context, db *DB, records ...*T) error {
	n, err := command.NewUpdate[T](db.eng).Exec(ctx, records...)
	return checkCount("update", records, n, err)
}

// Delete removes records by key.
func Delete[T any](ctx context.Context, db *DB, records ...*T) error {
	n, err := command.NewDelete[T](db.eng).Exec(ctx, records...)
	return checkCount("delete", records, n, err)
}

// Query starts a select over T.
func Query[T any](db *DB) *command.Select[T] {
	return command.NewSelect[T](db.eng)
}

// Get loads the record of T with primary key key. A missing record
// returns an error wrapping sql.ErrNoRows.
func Get[T any](ctx context.Context, db *DB, key any) (*T, error) {
	s, err := schema.For[T](db.eng.Registry())
	if err != nil {
		return nil, err
	}
	pk, err := s.PrimaryKey()
	if err != nil {
		return nil, err
	}

	rec, err := Query[T](db).
		Where(predicate.Eq(predicate.Field(pk.Name), predicate.Const(key))).
		First(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s %s=%v: %w", s.Table, pk.Name, key, err)
	}
	return rec, nil
}
