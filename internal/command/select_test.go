package command

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/predicate"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

func TestSelect_ColumnsMatchMaterializer(t *testing.T) {
	e := New(nil)

	q, err := NewSelect[Customer](e).Command()
	require.NoError(t, err)

	plan, err := marshal.NewCache(e.Registry(), nil).Plan(reflect.TypeFor[Customer]())
	require.NoError(t, err)

	aliases := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		aliases[i] = c.Alias
	}
	assert.Equal(t, plan.Paths(), aliases)
	assert.Equal(t, []string{
		"ID", "Name", "Active", "Born", "Key", "Balance",
		"Address.Street", "Address.City", "Parent", "Version",
		"Country.ID", "Country.Code", "Country.Name",
		"Orders",
	}, aliases)
}

func TestSelect_Golden(t *testing.T) {
	for _, d := range []querysql.Dialect{querysql.SQLite, querysql.Postgres} {
		t.Run(d.Name, func(t *testing.T) {
			e := New(nil, WithDialect(d))
			stmt, err := NewSelect[Customer](e).
				Where(predicate.Eq(predicate.Field("Name"), predicate.Const("Ada"))).
				Limit(10).
				SQL()
			require.NoError(t, err)
			assert.Equal(t, []any{"Ada"}, stmt.Args)
			newGoldie(t).Assert(t, "select_"+d.Name, []byte(stmt.SQL+"\n"))
		})
	}
}

func TestSelect_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	nl, customers := seed(t, e, "Ada", "Grace")
	ada := customers[0]

	grace := customers[1]
	grace.Parent = schema.RefTo[Customer](ada.ID)
	_, err := NewUpdate[Customer](e).Exec(ctx, grace)
	require.NoError(t, err)

	_, err = NewInsert[Purchase](e).Exec(ctx,
		&Purchase{Customer: schema.RefTo[Customer](ada.ID), Amount: 5},
		&Purchase{Customer: schema.RefTo[Customer](ada.ID), Amount: 7},
	)
	require.NoError(t, err)

	got, err := NewSelect[Customer](e).Where(byID(ada.ID)).First(ctx)
	require.NoError(t, err)

	assert.Equal(t, ada.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.True(t, got.Active)
	assert.True(t, born.Equal(got.Born), "born = %v", got.Born)
	assert.Equal(t, ada.Key, got.Key)
	assert.Equal(t, "12.50", got.Balance.String())
	assert.Equal(t, Address{Street: "Main 1", City: "Utrecht"}, got.Address)
	require.NotNil(t, got.Country)
	assert.Equal(t, *nl, *got.Country)
	assert.True(t, got.Parent.IsZero())
	assert.Equal(t, int64(2), got.Orders)

	got, err = NewSelect[Customer](e).Where(byID(grace.ID)).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.Parent.ID)
	assert.Equal(t, int64(0), got.Orders)
}

func TestSelect_EagerAbsent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	lone := newCustomer("Lone", nil)
	_, err := NewInsert[Customer](e).Exec(ctx, lone)
	require.NoError(t, err)

	got, err := NewSelect[Customer](e).Where(byID(lone.ID)).First(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.Country)
}

func TestSelect_WhereThroughJoin(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	_, _ = seed(t, e, "Ada", "Grace")

	lone := newCustomer("Lone", nil)
	_, err := NewInsert[Customer](e).Exec(ctx, lone)
	require.NoError(t, err)

	got, err := NewSelect[Customer](e).
		Where(predicate.Eq(predicate.Field("Country.Code"), predicate.Const("NL"))).
		OrderByDesc("Name").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Grace", got[0].Name)
	assert.Equal(t, "Ada", got[1].Name)

	n, err := NewSelect[Customer](e).
		Where(predicate.Eq(predicate.Field("Country"), predicate.Const(nil))).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSelect_ConstantPredicates(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	_, _ = seed(t, e, "Ada", "Grace")

	all, err := NewSelect[Customer](e).Where(predicate.Const(true)).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := NewSelect[Customer](e).Where(predicate.Const(false)).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	stmt, err := NewSelect[Customer](e).Where(predicate.Const(false)).SQL()
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE 1 = 0")
}

func TestSelect_PagingAndDefaultOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	_, customers := seed(t, e, "A", "B", "C", "D")

	page, err := NewSelect[Customer](e).Offset(1).Limit(2).All(ctx)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, customers[1].ID, page[0].ID)
	assert.Equal(t, customers[2].ID, page[1].ID)

	tail, err := NewSelect[Customer](e).Offset(3).All(ctx)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "D", tail[0].Name)
}

func TestSelect_CloneIsIndependent(t *testing.T) {
	e := New(nil)
	base := NewSelect[Customer](e)
	narrowed := base.Clone().Where(byID(1)).Limit(1)

	q1, err := base.Command()
	require.NoError(t, err)
	q2, err := narrowed.Command()
	require.NoError(t, err)

	assert.Nil(t, q1.Filter)
	assert.Equal(t, 0, q1.Limit)
	assert.NotNil(t, q2.Filter)
	assert.Equal(t, 1, q2.Limit)
}

func TestSelect_DeferredErrors(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	_, err := NewSelect[Customer](e).Where(predicate.Field("Nope")).All(ctx)
	require.Error(t, err)
	assert.True(t, predicate.HasCode(err, predicate.ErrCodeUnknownPath))

	_, err = NewSelect[Customer](e).OrderBy("Nope").SQL()
	assert.True(t, predicate.HasCode(err, predicate.ErrCodeUnknownPath))

	type noKey struct{ Name string }
	_, err = NewSelect[noKey](e).Where(predicate.Const(true)).Limit(3).All(ctx)
	assert.True(t, schema.HasCode(err, schema.ErrCodeMissingPrimaryKey))
}

func TestSelect_FirstNoRows(t *testing.T) {
	e := newEngine(t)

	_, err := NewSelect[Customer](e).Where(byID(42)).First(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReader_Lifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	_, _ = seed(t, e, "Ada", "Grace")

	r, err := NewSelect[Customer](e).Reader(ctx)
	require.NoError(t, err)

	_, err = r.Current()
	assert.ErrorIs(t, err, errNoRow)

	var names []string
	for r.Next() {
		c, err := r.Current()
		require.NoError(t, err)
		names = append(names, c.Name)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []string{"Ada", "Grace"}, names)

	// Exhausted: reads are rejected and Close stays harmless.
	assert.False(t, r.Next())
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrReaderClosed)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestReader_CloseEarly(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	_, _ = seed(t, e, "Ada", "Grace")

	r, err := NewSelect[Customer](e).Reader(ctx)
	require.NoError(t, err)
	require.True(t, r.Next())
	require.NoError(t, r.Close())

	assert.False(t, r.Next())
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrReaderClosed)

	// The connection is released: another query runs.
	n, err := NewSelect[Customer](e).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEngine_SharesTemplates(t *testing.T) {
	e := New(nil)
	other := e.WithExecutor(nil)

	_, err := NewSelect[Customer](e).SQL()
	require.NoError(t, err)

	e.sh.mu.RLock()
	n := len(e.sh.templates)
	e.sh.mu.RUnlock()
	assert.Equal(t, 1, n)

	_, err = NewSelect[Customer](other).SQL()
	require.NoError(t, err)
	other.sh.mu.RLock()
	assert.Len(t, other.sh.templates, 1)
	other.sh.mu.RUnlock()
	assert.Same(t, e.Registry(), other.Registry())
}
