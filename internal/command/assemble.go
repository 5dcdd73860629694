package command

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

// selectTemplate is the cached SELECT of a record type: every column,
// join and subquery, without filter, order or paging.
type selectTemplate struct {
	plan  *marshal.Plan
	query *queryir.Select
	alias string
	order []queryir.Order
}

func (e *Engine) selectTemplate(t reflect.Type) (*selectTemplate, error) {
	tpl, err := e.template(t, "select", func(p *marshal.Plan) (any, error) {
		return assembleSelect(e.sh.reg, p)
	})
	if err != nil {
		return nil, err
	}
	return tpl.(*selectTemplate), nil
}

func assembleSelect(reg *schema.Registry, plan *marshal.Plan) (*selectTemplate, error) {
	s := plan.Schema
	pk, err := s.PrimaryKey()
	if err != nil {
		return nil, err
	}

	alias := schema.RootAlias(s)
	a := &assembler{
		reg: reg,
		sel: &queryir.Select{From: schema.RelationOf(s, alias)},
	}
	if err := a.record(s, alias, ""); err != nil {
		return nil, err
	}

	aliases := make([]string, len(a.sel.Columns))
	for i, c := range a.sel.Columns {
		aliases[i] = c.Alias
	}
	if !slices.Equal(aliases, plan.Paths()) {
		return nil, fmt.Errorf("select columns %v disagree with materializer order %v", aliases, plan.Paths())
	}

	return &selectTemplate{
		plan:  plan,
		query: a.sel,
		alias: alias,
		order: []queryir.Order{{Expr: queryir.Column{Table: alias, Name: pk.DBName}}},
	}, nil
}

// assembler emits SELECT columns in materializer order: plain and inline
// columns, then eager joins (each recursing into the joined record), then
// subqueries.
type assembler struct {
	reg   *schema.Registry
	sel   *queryir.Select
	stack []schema.FieldKey
}

func (a *assembler) record(s *schema.Schema, alias, prefix string) error {
	a.columns(s.Fields, alias, prefix)
	if err := a.joins(s.Fields, alias, prefix); err != nil {
		return err
	}
	return a.subqueries(s, s.Fields, alias, prefix)
}

func (a *assembler) columns(fields []*schema.Field, alias, prefix string) {
	for _, f := range fields {
		switch {
		case f.IsInline:
			a.columns(f.InlineSchema.Fields, alias, prefix)
		case f.IsEager || f.IsSubquery():
		default:
			a.sel.Columns = append(a.sel.Columns, queryir.SelectColumn{
				Expr:  queryir.Column{Table: alias, Name: f.DBName},
				Alias: fieldPath(prefix, f),
			})
		}
	}
}

func (a *assembler) joins(fields []*schema.Field, alias, prefix string) error {
	for _, f := range fields {
		switch {
		case f.IsInline:
			if err := a.joins(f.InlineSchema.Fields, alias, prefix); err != nil {
				return err
			}
		case f.IsEager:
			if err := a.join(f, alias, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *assembler) join(f *schema.Field, alias, prefix string) error {
	if slices.Contains(a.stack, f.Key()) {
		return schema.NewCycleError(f.ForeignType.String(), []string{fieldPath(prefix, f)})
	}
	a.stack = append(a.stack, f.Key())
	defer func() { a.stack = a.stack[:len(a.stack)-1] }()

	joined, err := a.reg.Foreign(f)
	if err != nil {
		return fmt.Errorf("join %s: %w", f.Path, err)
	}
	pk, err := joined.PrimaryKey()
	if err != nil {
		return fmt.Errorf("join %s: %w", f.Path, err)
	}

	ja := schema.JoinAlias(alias, f)
	a.sel.Joins = append(a.sel.Joins, queryir.Join{
		Kind:  queryir.LeftJoin,
		Table: schema.RelationOf(joined, ja),
		On: queryir.Compare{
			Op:    queryir.OpEq,
			Left:  queryir.Column{Table: ja, Name: pk.DBName},
			Right: queryir.Column{Table: alias, Name: f.DBName},
		},
	})
	return a.record(joined, ja, fieldPath(prefix, f))
}

// subqueries is the third pass. owner is the relation the fields belong
// to, also for fields of inline children.
func (a *assembler) subqueries(owner *schema.Schema, fields []*schema.Field, alias, prefix string) error {
	for _, f := range fields {
		switch {
		case f.IsInline:
			if err := a.subqueries(owner, f.InlineSchema.Fields, alias, prefix); err != nil {
				return err
			}
		case f.IsSubquery():
			e, err := f.Subquery.BuildSubquery(schema.SubqueryContext{Registry: a.reg, Owner: owner, Alias: alias})
			if err != nil {
				return fmt.Errorf("subquery %s: %w", f.Path, err)
			}
			a.sel.Columns = append(a.sel.Columns, queryir.SelectColumn{Expr: e, Alias: fieldPath(prefix, f)})
		}
	}
	return nil
}

func fieldPath(prefix string, f *schema.Field) string {
	if prefix == "" {
		return f.Path
	}
	return prefix + "." + f.Path
}
