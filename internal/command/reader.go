package command

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
)

var errNoRow = errors.New("reader has no current row; call Next first")

// Reader streams materialized records of T from a query.
//
// Usage:
//
//	r, err := sel.Reader(ctx)
//	defer r.Close()
//	for r.Next() {
//	    rec, err := r.Current()
//	}
//	err = r.Err()
//
// Reads after Close or after Next reported the end fail with
// ErrReaderClosed.
type Reader[T any] struct {
	rows *sql.Rows
	plan *marshal.Plan
	conv marshal.Converter
	fac  marshal.Factory

	row     []any
	dest    []any
	current bool
	closed  bool
	err     error
}

func newReader[T any](rows *sql.Rows, plan *marshal.Plan, conv marshal.Converter, fac marshal.Factory) (*Reader[T], error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	if len(cols) != plan.Width() {
		rows.Close()
		return nil, fmt.Errorf("query returned %d columns, %s maps %d", len(cols), plan.Schema.Type, plan.Width())
	}

	r := &Reader[T]{
		rows: rows,
		plan: plan,
		conv: conv,
		fac:  fac,
		row:  make([]any, len(cols)),
		dest: make([]any, len(cols)),
	}
	for i := range r.row {
		r.dest[i] = &r.row[i]
	}
	return r, nil
}

// Next advances to the next row. It returns false at the end of the rows
// or on error, and closes the reader.
func (r *Reader[T]) Next() bool {
	if r.closed {
		return false
	}
	r.current = false
	if !r.rows.Next() {
		r.err = r.rows.Err()
		r.Close()
		return false
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		r.err = err
		r.Close()
		return false
	}
	r.current = true
	return true
}

// Current materializes the current row into a new record.
func (r *Reader[T]) Current() (*T, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	if !r.current {
		return nil, errNoRow
	}
	rec := r.fac.New(reflect.TypeFor[T]()).Interface().(*T)
	if err := r.plan.Materialize(rec, marshal.SliceCursor(r.row), r.conv, r.fac); err != nil {
		return nil, err
	}
	return rec, nil
}

// Err returns the error that ended iteration, if any.
func (r *Reader[T]) Err() error {
	return r.err
}

// Close releases the rows. It is safe to call more than once.
func (r *Reader[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.current = false
	return r.rows.Close()
}
