package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/querysql"
)

// Update writes records of T by primary key. With a row version the
// UPDATE also matches the version the record was read with, and a
// successful write advances it.
type Update[T any] struct {
	eng    *Engine
	hooks  hooks[T]
	filter queryir.Expr
	err    error
}

// NewUpdate returns an update builder for T.
func NewUpdate[T any](e *Engine) *Update[T] {
	return &Update[T]{eng: e}
}

// Clone returns an independent copy of the builder.
func (u *Update[T]) Clone() *Update[T] {
	return &Update[T]{eng: u.eng, hooks: u.hooks.clone(), filter: u.filter, err: u.err}
}

// Before registers a notification run before each record is written.
func (u *Update[T]) Before(fn func(ctx context.Context, rec *T) Action) *Update[T] {
	u.hooks.before = append(u.hooks.before, fn)
	return u
}

// After registers a notification run after each record is written.
func (u *Update[T]) After(fn func(ctx context.Context, rec *T)) *Update[T] {
	u.hooks.after = append(u.hooks.after, fn)
	return u
}

// Where adds a condition every updated row must also satisfy. Paths into
// joined records are rejected; compile errors surface from Exec.
func (u *Update[T]) Where(p predicate.Expr) *Update[T] {
	if u.err != nil {
		return u
	}
	filter, err := u.eng.writeFilter(reflect.TypeFor[T](), p)
	if err != nil {
		u.err = err
		return u
	}
	u.filter = queryir.Conjoin(u.filter, filter)
	return u
}

// SQL returns the statement with any Where conditions applied.
func (u *Update[T]) SQL() (querysql.Statement, error) {
	_, stmt, err := u.prepare()
	return stmt, err
}

func (u *Update[T]) prepare() (*updateTemplate, querysql.Statement, error) {
	if u.err != nil {
		return nil, querysql.Statement{}, u.err
	}
	tpl, err := u.eng.updateTemplate(reflect.TypeFor[T]())
	if err != nil {
		return nil, querysql.Statement{}, err
	}
	if u.filter == nil {
		return tpl, tpl.stmt, nil
	}
	q := tpl.query.Clone()
	q.Where(u.filter)
	stmt, err := u.eng.sh.dialect.Compile(q)
	if err != nil {
		return nil, querysql.Statement{}, err
	}
	return tpl, stmt, nil
}

// Exec updates records in order and returns the number of rows written.
// A versioned record matching no row fails with a ConcurrencyError.
func (u *Update[T]) Exec(ctx context.Context, records ...*T) (int64, error) {
	tpl, stmt, err := u.prepare()
	if err != nil {
		return 0, err
	}

	var (
		affected int64
		params   marshal.ParamList
	)
	for n, rec := range records {
		if rec == nil {
			return affected, fmt.Errorf("update record %d: nil", n)
		}
		switch u.hooks.runBefore(ctx, rec, beforeUpdate(ctx)) {
		case Skip:
			continue
		case Break:
			return affected, nil
		}

		rv := reflect.ValueOf(rec).Elem()
		params.Reset()
		if err := tpl.plan.Bind(&params, rec); err != nil {
			return affected, err
		}
		var captured int64
		if tpl.version != nil {
			captured = versionOf(rv, tpl.version)
			params.Add(tpl.version.DBName, captured+1)
			params.Add(versionSlot, captured)
		}
		args, err := stmt.Bind(params.Lookup)
		if err != nil {
			return affected, err
		}

		res, err := u.eng.execSQL(ctx, u.eng.exec, stmt.SQL, args)
		if err != nil {
			return affected, err
		}
		written, err := res.RowsAffected()
		if err != nil {
			return affected, err
		}
		if tpl.version != nil {
			if written == 0 {
				key, _ := params.Lookup(tpl.key.DBName)
				return affected, &ConcurrencyError{Op: "update", Table: tpl.plan.Schema.Table, Key: key, Version: captured}
			}
			setVersion(rv, tpl.version, captured+1)
		}
		affected += written
		u.hooks.runAfter(ctx, rec, afterUpdate(ctx))
	}
	return affected, nil
}

// writeFilter compiles a predicate for UPDATE and DELETE, whose columns
// are unqualified and which cannot join.
func (e *Engine) writeFilter(t reflect.Type, p predicate.Expr) (queryir.Expr, error) {
	s, err := e.sh.reg.Of(t)
	if err != nil {
		return nil, err
	}
	res, err := predicate.Compile(e.sh.reg, s, p, predicate.Options{})
	if err != nil {
		return nil, err
	}
	if res.IsConstant() && *res.Constant {
		return nil, nil
	}
	return res.Expr(), nil
}
