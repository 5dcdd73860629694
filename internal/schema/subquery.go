package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/relmap/internal/queryir"
)

// SubqueryContext is handed to a SubqueryBuilder while a SELECT is
// assembled.
type SubqueryContext struct {
	// Registry resolves related record schemas.
	Registry *Registry

	// Owner is the schema of the relation the field belongs to.
	Owner *Schema

	// Alias is the alias of that relation in the outer query.
	Alias string
}

// SubqueryBuilder produces the per-row scalar expression of a subquery
// field.
type SubqueryBuilder interface {
	BuildSubquery(ctx SubqueryContext) (queryir.Expr, error)
}

// SubqueryFunc adapts a function to SubqueryBuilder.
type SubqueryFunc func(ctx SubqueryContext) (queryir.Expr, error)

// BuildSubquery calls fn.
func (fn SubqueryFunc) BuildSubquery(ctx SubqueryContext) (queryir.Expr, error) {
	return fn(ctx)
}

// SubqueryProvider is implemented by records declaring subquery fields.
// The map is keyed by Go field name.
type SubqueryProvider interface {
	Subqueries() map[string]SubqueryBuilder
}

var subqueryProviderType = reflect.TypeFor[SubqueryProvider]()

// Aggregate is a pre-built aggregate subquery over the child records of
// the owner: FUNC(child.Column) WHERE child.Match = owner.key.
type Aggregate struct {
	// Func is COUNT, SUM, MIN, MAX or AVG.
	Func string

	// Of is the child record type.
	Of reflect.Type

	// Column is the aggregated Go field path; empty counts rows.
	Column string

	// Match is the Go field of the child holding the owner's key.
	Match string
}

// BuildSubquery implements SubqueryBuilder.
func (a Aggregate) BuildSubquery(ctx SubqueryContext) (queryir.Expr, error) {
	child, err := ctx.Registry.Of(a.Of)
	if err != nil {
		return nil, fmt.Errorf("aggregate over %s: %w", a.Of, err)
	}
	pk, err := ctx.Owner.PrimaryKey()
	if err != nil {
		return nil, err
	}

	match, ok := child.Lookup(a.Match)
	if !ok || !match.IsColumn {
		return nil, fmt.Errorf("aggregate over %s: unknown match field %q", child.Table, a.Match)
	}

	alias := ctx.Alias + "_" + RootAlias(child)

	var arg queryir.Expr
	if a.Column != "" {
		f, ok := child.Lookup(a.Column)
		if !ok || !f.IsColumn {
			return nil, fmt.Errorf("aggregate over %s: unknown column %q", child.Table, a.Column)
		}
		arg = queryir.Column{Table: alias, Name: f.DBName}
	}

	return queryir.Subquery{Select: &queryir.Select{
		From:    RelationOf(child, alias),
		Columns: []queryir.SelectColumn{{Expr: queryir.Aggregate{Func: strings.ToUpper(a.Func), Arg: arg}}},
		Filter: queryir.Compare{
			Op:    queryir.OpEq,
			Left:  queryir.Column{Table: alias, Name: match.DBName},
			Right: queryir.Column{Table: ctx.Alias, Name: pk.DBName},
		},
	}}, nil
}
