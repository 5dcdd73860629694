package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

// Delete removes records of T, either one by one by key (Exec) or every
// row matching a filter (ExecAll).
type Delete[T any] struct {
	eng    *Engine
	hooks  hooks[T]
	filter queryir.Expr
	err    error
}

// NewDelete returns a delete builder for T.
func NewDelete[T any](e *Engine) *Delete[T] {
	return &Delete[T]{eng: e}
}

// Clone returns an independent copy of the builder.
func (d *Delete[T]) Clone() *Delete[T] {
	return &Delete[T]{eng: d.eng, hooks: d.hooks.clone(), filter: d.filter, err: d.err}
}

// Before registers a notification run before each record is deleted.
func (d *Delete[T]) Before(fn func(ctx context.Context, rec *T) Action) *Delete[T] {
	d.hooks.before = append(d.hooks.before, fn)
	return d
}

// After registers a notification run after each record is deleted.
func (d *Delete[T]) After(fn func(ctx context.Context, rec *T)) *Delete[T] {
	d.hooks.after = append(d.hooks.after, fn)
	return d
}

// Where adds a condition. Per-record deletes must also satisfy it;
// ExecAll deletes exactly the rows it matches.
func (d *Delete[T]) Where(p predicate.Expr) *Delete[T] {
	if d.err != nil {
		return d
	}
	filter, err := d.eng.writeFilter(reflect.TypeFor[T](), p)
	if err != nil {
		d.err = err
		return d
	}
	if filter == nil {
		// A constant true condition still counts as a filter for ExecAll.
		filter = queryir.And{}
	}
	d.filter = queryir.Conjoin(d.filter, filter)
	return d
}

// SQL returns the per-record statement with any Where conditions applied.
func (d *Delete[T]) SQL() (querysql.Statement, error) {
	_, stmt, err := d.prepare()
	return stmt, err
}

func (d *Delete[T]) prepare() (*deleteTemplate, querysql.Statement, error) {
	if d.err != nil {
		return nil, querysql.Statement{}, d.err
	}
	tpl, err := d.eng.deleteTemplate(reflect.TypeFor[T]())
	if err != nil {
		return nil, querysql.Statement{}, err
	}
	if d.filter == nil {
		return tpl, tpl.stmt, nil
	}
	q := tpl.query.Clone()
	q.Where(d.filter)
	stmt, err := d.eng.sh.dialect.Compile(q)
	if err != nil {
		return nil, querysql.Statement{}, err
	}
	return tpl, stmt, nil
}

// Exec deletes records in order by key and returns the number of rows
// removed. A versioned record matching no row fails with a
// ConcurrencyError.
func (d *Delete[T]) Exec(ctx context.Context, records ...*T) (int64, error) {
	tpl, stmt, err := d.prepare()
	if err != nil {
		return 0, err
	}

	var (
		affected int64
		params   marshal.ParamList
	)
	for n, rec := range records {
		if rec == nil {
			return affected, fmt.Errorf("delete record %d: nil", n)
		}
		switch d.hooks.runBefore(ctx, rec, beforeDelete(ctx)) {
		case Skip:
			continue
		case Break:
			return affected, nil
		}

		rv := reflect.ValueOf(rec).Elem()
		key, err := keyValue(rv, tpl.key)
		if err != nil {
			return affected, fmt.Errorf("delete key %s: %w", tpl.key.Name, err)
		}
		params.Reset()
		params.Add(tpl.key.DBName, key)
		var captured int64
		if tpl.version != nil {
			captured = versionOf(rv, tpl.version)
			params.Add(versionSlot, captured)
		}
		args, err := stmt.Bind(params.Lookup)
		if err != nil {
			return affected, err
		}

		res, err := d.eng.execSQL(ctx, d.eng.exec, stmt.SQL, args)
		if err != nil {
			return affected, err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return affected, err
		}
		if removed == 0 && tpl.version != nil {
			return affected, &ConcurrencyError{Op: "delete", Table: tpl.plan.Schema.Table, Key: key, Version: captured}
		}
		affected += removed
		d.hooks.runAfter(ctx, rec, afterDelete(ctx))
	}
	return affected, nil
}

// ExecAll deletes every row matching the Where conditions and returns the
// number removed. Notifications do not run.
func (d *Delete[T]) ExecAll(ctx context.Context) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.filter == nil {
		return 0, ErrNoFilter
	}
	s, err := d.eng.sh.reg.Of(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	stmt, err := d.eng.sh.dialect.Compile(&queryir.Delete{Table: schema.RelationOf(s, ""), Filter: d.filter})
	if err != nil {
		return 0, err
	}
	res, err := d.eng.execSQL(ctx, d.eng.exec, stmt.SQL, stmt.Args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
