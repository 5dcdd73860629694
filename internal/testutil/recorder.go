package testutil

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrNoQueries is returned by a Recorder without an inner executor when
// asked to run a query.
var ErrNoQueries = errors.New("recorder has no database to query")

// Executor mirrors command.Executor so this package does not import the
// engine.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
}

// Recorder records every statement it is given.
//
// With an inner executor it delegates and records (a spy). Without one,
// ExecContext succeeds with Affected rows and keys from Keys, and
// QueryContext fails with ErrNoQueries.
type Recorder struct {
	Inner    Executor
	Affected int64
	Keys     Sequence

	mu    sync.Mutex
	calls []Call
}

// NewRecorder returns a standalone recorder reporting one affected row
// per statement.
func NewRecorder() *Recorder {
	return &Recorder{Affected: 1}
}

// Spy returns a recorder delegating to inner.
func Spy(inner Executor) *Recorder {
	return &Recorder{Inner: inner}
}

// ExecContext implements Executor.
func (r *Recorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.record(query, args)
	if r.Inner != nil {
		return r.Inner.ExecContext(ctx, query, args...)
	}
	return result{id: r.Keys.Next(), affected: r.Affected}, nil
}

// QueryContext implements Executor.
func (r *Recorder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	r.record(query, args)
	if r.Inner != nil {
		return r.Inner.QueryContext(ctx, query, args...)
	}
	return nil, ErrNoQueries
}

func (r *Recorder) record(query string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{SQL: query, Args: append([]any(nil), args...)})
}

// Calls returns a copy of the recorded statements.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// SQL returns the recorded statement texts.
func (r *Recorder) SQL() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.SQL
	}
	return out
}

// Reset forgets recorded statements and restarts the key sequence.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
	r.Keys.Reset()
}

type result struct {
	id       int64
	affected int64
}

func (r result) LastInsertId() (int64, error) { return r.id, nil }
func (r result) RowsAffected() (int64, error) { return r.affected, nil }
