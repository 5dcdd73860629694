package command

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/querysql"
)

// Select queries records of T with their eager records joined in.
//
// Builder methods never fail; the first error (an invalid schema or a
// predicate that does not compile) is kept and returned by the terminal
// call.
type Select[T any] struct {
	eng     *Engine
	tpl     *selectTemplate
	query   *queryir.Select
	ordered bool
	err     error
}

// NewSelect returns a select builder for T.
func NewSelect[T any](e *Engine) *Select[T] {
	s := &Select[T]{eng: e}
	tpl, err := e.selectTemplate(reflect.TypeFor[T]())
	if err != nil {
		s.err = err
		return s
	}
	s.tpl = tpl
	s.query = tpl.query.Clone()
	return s
}

// Clone returns an independent copy of the builder.
func (s *Select[T]) Clone() *Select[T] {
	c := *s
	if s.query != nil {
		c.query = s.query.Clone()
	}
	return &c
}

// Where ANDs a condition onto the filter. Paths may cross into eager
// records.
func (s *Select[T]) Where(p predicate.Expr) *Select[T] {
	if s.err != nil {
		return s
	}
	res, err := predicate.Compile(s.eng.sh.reg, s.tpl.plan.Schema, p, s.options())
	if err != nil {
		s.err = err
		return s
	}
	if res.IsConstant() && *res.Constant {
		return s
	}
	s.query.Where(res.Expr())
	return s
}

// OrderBy appends an ascending order term on a field path.
func (s *Select[T]) OrderBy(path string) *Select[T] {
	return s.OrderByExpr(predicate.Field(path), false)
}

// OrderByDesc appends a descending order term on a field path.
func (s *Select[T]) OrderByDesc(path string) *Select[T] {
	return s.OrderByExpr(predicate.Field(path), true)
}

// OrderByExpr appends an order term on any value expression.
func (s *Select[T]) OrderByExpr(e predicate.Expr, desc bool) *Select[T] {
	if s.err != nil {
		return s
	}
	v, err := predicate.Value(s.eng.sh.reg, s.tpl.plan.Schema, e, s.options())
	if err != nil {
		s.err = err
		return s
	}
	s.query.OrderBy = append(s.query.OrderBy, queryir.Order{Expr: v, Desc: desc})
	s.ordered = true
	return s
}

// Limit caps the number of rows; zero removes the cap.
func (s *Select[T]) Limit(n int) *Select[T] {
	if s.query != nil {
		s.query.Limit = n
	}
	return s
}

// Offset skips rows.
func (s *Select[T]) Offset(n int) *Select[T] {
	if s.query != nil {
		s.query.Offset = n
	}
	return s
}

func (s *Select[T]) options() predicate.Options {
	return predicate.Options{Alias: s.tpl.alias, AllowJoins: true}
}

// Command returns the assembled query. Without an explicit order it is
// ordered by primary key.
func (s *Select[T]) Command() (*queryir.Select, error) {
	if s.err != nil {
		return nil, s.err
	}
	q := s.query.Clone()
	if !s.ordered {
		q.OrderBy = append(q.OrderBy, s.tpl.order...)
	}
	return q, nil
}

// SQL returns the rendered query.
func (s *Select[T]) SQL() (querysql.Statement, error) {
	q, err := s.Command()
	if err != nil {
		return querysql.Statement{}, err
	}
	return s.eng.sh.dialect.Compile(q)
}

// Reader runs the query and returns a forward-only reader. The caller
// must Close it.
func (s *Select[T]) Reader(ctx context.Context) (*Reader[T], error) {
	stmt, err := s.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.eng.querySQL(ctx, s.eng.exec, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, err
	}
	return newReader[T](rows, s.tpl.plan, s.eng.sh.conv, s.eng.sh.fac)
}

// All runs the query and materializes every row.
func (s *Select[T]) All(ctx context.Context) ([]*T, error) {
	r, err := s.Reader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []*T
	for r.Next() {
		rec, err := r.Current()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first row, or sql.ErrNoRows.
func (s *Select[T]) First(ctx context.Context) (*T, error) {
	r, err := s.Clone().Limit(1).Reader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if !r.Next() {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return r.Current()
}

// Count returns the number of rows the filter matches, ignoring order and
// paging.
func (s *Select[T]) Count(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	q := s.query.Clone()
	q.Columns = []queryir.SelectColumn{{Expr: queryir.Aggregate{Func: "COUNT"}, Alias: "count"}}
	q.OrderBy = nil
	q.Limit, q.Offset = 0, 0

	stmt, err := s.eng.sh.dialect.Compile(q)
	if err != nil {
		return 0, err
	}
	rows, err := s.eng.querySQL(ctx, s.eng.exec, stmt.SQL, stmt.Args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
