package command

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/schema"
	"github.com/roach88/relmap/internal/testutil"
)

type Country struct {
	ID   int64
	Code string `orm:"length=2;notnull"`
	Name string
}

type Address struct {
	Street string
	City   string
}

type Customer struct {
	ID      int64
	Name    string `orm:"length=12"`
	Active  bool
	Born    time.Time
	Key     uuid.UUID
	Balance apd.Decimal `orm:"precision=18,2"`
	Address Address
	Country *Country
	Parent  schema.Ref[Customer] `orm:"fk=none"`
	Version int64                `orm:"rowversion"`
	Orders  int64                `orm:"subquery"`
}

func (Customer) Subqueries() map[string]schema.SubqueryBuilder {
	return map[string]schema.SubqueryBuilder{
		"Orders": schema.Aggregate{Func: "count", Of: reflect.TypeFor[Purchase](), Match: "Customer"},
	}
}

type Purchase struct {
	ID       int64
	Customer schema.Ref[Customer]
	Amount   int64
}

// Note records its notifications.
type Note struct {
	ID   int64
	Text string

	seen []string
}

func (n *Note) BeforeInsert(ctx context.Context) Action {
	n.seen = append(n.seen, "before insert")
	switch n.Text {
	case "skip":
		return Skip
	case "stop":
		return Break
	}
	return Continue
}

func (n *Note) AfterInsert(ctx context.Context) {
	n.seen = append(n.seen, "after insert")
}

func (n *Note) BeforeDelete(ctx context.Context) Action {
	n.seen = append(n.seen, "before delete")
	return Continue
}

func (n *Note) AfterDelete(ctx context.Context) {
	n.seen = append(n.seen, "after delete")
}

// Code has a caller-supplied key.
type Code struct {
	_    schema.Table `orm:"manualkey"`
	ID   int64
	Text string
}

var born = time.Date(1990, 5, 17, 10, 30, 0, 0, time.UTC)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// newEngine returns an engine over a fresh SQLite database holding every
// fixture table.
func newEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	reg := schema.NewRegistry()
	st := testutil.NewStore(t, reg,
		reflect.TypeFor[Customer](),
		reflect.TypeFor[Purchase](),
		reflect.TypeFor[Note](),
		reflect.TypeFor[Code](),
	)
	return New(st, append([]EngineOption{WithRegistry(reg), WithDialect(st.Dialect())}, opts...)...)
}

func newCustomer(name string, country *Country) *Customer {
	c := &Customer{
		Name:    name,
		Active:  true,
		Born:    born,
		Key:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Address: Address{Street: "Main 1", City: "Utrecht"},
		Country: country,
	}
	c.Balance.SetFinite(1250, -2)
	return c
}

// seed inserts a country and the named customers.
func seed(t *testing.T, e *Engine, names ...string) (*Country, []*Customer) {
	t.Helper()
	ctx := context.Background()

	nl := &Country{Code: "NL", Name: "Netherlands"}
	_, err := NewInsert[Country](e).Exec(ctx, nl)
	require.NoError(t, err)

	out := make([]*Customer, len(names))
	for i, name := range names {
		out[i] = newCustomer(name, nl)
	}
	n, err := NewInsert[Customer](e).Exec(ctx, out...)
	require.NoError(t, err)
	require.Equal(t, int64(len(names)), n)
	return nl, out
}

func byID(id int64) predicate.Expr {
	return predicate.Eq(predicate.Field("ID"), predicate.Const(id))
}
