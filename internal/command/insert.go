package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/querysql"
)

// Insert writes records of T. Database-assigned keys are read back into
// each record before its after notification runs.
type Insert[T any] struct {
	eng   *Engine
	hooks hooks[T]
}

// NewInsert returns an insert builder for T.
func NewInsert[T any](e *Engine) *Insert[T] {
	return &Insert[T]{eng: e}
}

// Clone returns an independent copy of the builder.
func (i *Insert[T]) Clone() *Insert[T] {
	return &Insert[T]{eng: i.eng, hooks: i.hooks.clone()}
}

// Before registers a notification run before each record is written.
func (i *Insert[T]) Before(fn func(ctx context.Context, rec *T) Action) *Insert[T] {
	i.hooks.before = append(i.hooks.before, fn)
	return i
}

// After registers a notification run after each record is written.
func (i *Insert[T]) After(fn func(ctx context.Context, rec *T)) *Insert[T] {
	i.hooks.after = append(i.hooks.after, fn)
	return i
}

// SQL returns the statement template.
func (i *Insert[T]) SQL() (querysql.Statement, error) {
	tpl, err := i.eng.insertTemplate(reflect.TypeFor[T]())
	if err != nil {
		return querysql.Statement{}, err
	}
	return tpl.stmt, nil
}

// Exec inserts records in order and returns the number of rows written.
// A Break notification stops the loop without error.
func (i *Insert[T]) Exec(ctx context.Context, records ...*T) (int64, error) {
	tpl, err := i.eng.insertTemplate(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}

	var (
		affected int64
		params   marshal.ParamList
	)
	for n, rec := range records {
		if rec == nil {
			return affected, fmt.Errorf("insert record %d: nil", n)
		}
		switch i.hooks.runBefore(ctx, rec, beforeInsert(ctx)) {
		case Skip:
			continue
		case Break:
			return affected, nil
		}

		params.Reset()
		if err := tpl.plan.Bind(&params, rec); err != nil {
			return affected, err
		}
		args, err := tpl.stmt.Bind(params.Lookup)
		if err != nil {
			return affected, err
		}

		written, err := i.eng.insertOne(ctx, tpl, args, reflect.ValueOf(rec).Elem())
		if err != nil {
			return affected, err
		}
		affected += written
		i.hooks.runAfter(ctx, rec, afterInsert(ctx))
	}
	return affected, nil
}

func (e *Engine) insertOne(ctx context.Context, tpl *insertTemplate, args []any, rec reflect.Value) (int64, error) {
	if tpl.key == nil {
		res, err := e.execSQL(ctx, e.exec, tpl.stmt.SQL, args)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	switch e.sh.dialect.Keys {
	case querysql.KeyReturning:
		raw, err := e.scanKey(ctx, e.exec, tpl.stmt.SQL, args)
		if err != nil {
			return 0, err
		}
		return 1, setKey(rec, tpl.key, raw, e.sh.conv)

	case querysql.KeyQuery:
		ex := e.exec
		if c, ok := ex.(conner); ok {
			conn, err := c.Conn(ctx)
			if err != nil {
				return 0, err
			}
			defer conn.Close()
			ex = conn
		}
		res, err := e.execSQL(ctx, ex, tpl.stmt.SQL, args)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		raw, err := e.scanKey(ctx, ex, e.sh.dialect.LastKeyQuery, nil)
		if err != nil {
			return 0, err
		}
		return n, setKey(rec, tpl.key, raw, e.sh.conv)

	default:
		res, err := e.execSQL(ctx, e.exec, tpl.stmt.SQL, args)
		if err != nil {
			return 0, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		return n, setKey(rec, tpl.key, id, e.sh.conv)
	}
}

// scanKey runs a statement returning a single key value.
func (e *Engine) scanKey(ctx context.Context, ex Executor, stmt string, args []any) (any, error) {
	rows, err := e.querySQL(ctx, ex, stmt, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("insert returned no key")
	}
	var raw any
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}
	return raw, rows.Err()
}
