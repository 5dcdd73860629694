package predicate

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

type Country struct {
	ID   int64
	Name string
}

type Address struct {
	Street string
	City   string
}

type Purchase struct {
	ID       int64
	Customer schema.Ref[Customer]
	Amount   int64
}

type Customer struct {
	ID      int64
	Name    string
	Age     int32
	Active  bool
	Address Address
	Country *Country
	Parent  schema.Ref[Customer]
	Orders  int64 `orm:"subquery"`
}

func (Customer) Subqueries() map[string]schema.SubqueryBuilder {
	return map[string]schema.SubqueryBuilder{
		"Orders": schema.Aggregate{Func: "count", Of: reflect.TypeFor[Purchase](), Match: "Customer"},
	}
}

func col(table, name string) queryir.Column {
	return queryir.Column{Table: table, Name: name}
}

func param(v any) queryir.Param {
	return queryir.Param{Value: v}
}

func compileWith(t *testing.T, e Expr, opts Options) (Result, error) {
	t.Helper()
	reg := schema.NewRegistry()
	s, err := schema.For[Customer](reg)
	require.NoError(t, err)
	return Compile(reg, s, e, opts)
}

// selectFilter compiles e the way a SELECT does and requires a filter.
func selectFilter(t *testing.T, e Expr) queryir.Expr {
	t.Helper()
	res, err := compileWith(t, e, Options{Alias: "cus", AllowJoins: true})
	require.NoError(t, err)
	require.False(t, res.IsConstant(), "expected a filter")
	return res.Filter
}

func constant(t *testing.T, e Expr) bool {
	t.Helper()
	res, err := compileWith(t, e, Options{Alias: "cus", AllowJoins: true})
	require.NoError(t, err)
	require.True(t, res.IsConstant(), "expected a constant")
	assert.Nil(t, res.Filter)
	return *res.Constant
}

func TestShortCircuitOr(t *testing.T) {
	assert.True(t, constant(t, Or(Const(true), Eq(Field("Age"), Const(1)))))
	assert.True(t, constant(t, Or(Eq(Field("Age"), Const(1)), Const(true))))
}

func TestShortCircuitAnd(t *testing.T) {
	assert.False(t, constant(t, And(Const(false), Eq(Field("Age"), Const(1)))))
	assert.False(t, constant(t, And(Eq(Field("Age"), Const(1)), Const(false))))
}

func TestShortCircuitSkipsRightSide(t *testing.T) {
	// The right side names no real field; it is never compiled.
	assert.False(t, constant(t, And(Const(false), Eq(Field("Missing"), Const(1)))))
	assert.True(t, constant(t, Or(Const(true), Field("Missing"))))
}

func TestNeutralLocalYieldsOtherSide(t *testing.T) {
	want := queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Age"), Right: param(int64(1))}

	assert.Equal(t, want, selectFilter(t, And(Const(true), Eq(Field("Age"), Const(1)))))
	assert.Equal(t, want, selectFilter(t, And(Eq(Field("Age"), Const(1)), Const(true))))
	assert.Equal(t, want, selectFilter(t, Or(Const(false), Eq(Field("Age"), Const(1)))))
	assert.Equal(t, want, selectFilter(t, Or(Eq(Field("Age"), Const(1)), Const(false))))
}

func TestJunctionsFlatten(t *testing.T) {
	a := Eq(Field("Age"), Const(1))
	b := Eq(Field("Name"), Const("x"))
	c := Field("Active")

	and, ok := selectFilter(t, And(a, b, c)).(queryir.And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 3)

	or, ok := selectFilter(t, Or(a, b, c)).(queryir.Or)
	require.True(t, ok)
	assert.Len(t, or.Predicates, 3)
}

func TestUnknownPath(t *testing.T) {
	_, err := compileWith(t, Eq(Field("Nmae"), Const("x")), Options{Alias: "cus"})
	require.Error(t, err)
	assert.True(t, IsCompile(err))
	assert.True(t, HasCode(err, ErrCodeUnknownPath))

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Nmae", ce.Path)

	_, err = compileWith(t, Eq(Field("Name.Length"), Const(1)), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeUnknownPath))
}

func TestInlineIsTransparent(t *testing.T) {
	got := selectFilter(t, Eq(Field("Address.City"), Const("Oslo")))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Address_City"), Right: param("Oslo")}, got)
}

func TestEagerPaths(t *testing.T) {
	got := selectFilter(t, Eq(Field("Country.Name"), Const("Norway")))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus_countryid", "Name"), Right: param("Norway")}, got)

	// The joined key reads the foreign-key column.
	got = selectFilter(t, Eq(Field("Country.ID"), Const(4)))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "CountryID"), Right: param(int64(4))}, got)
}

func TestJoinsRejectedWithoutAllowJoins(t *testing.T) {
	_, err := compileWith(t, Eq(Field("Country.Name"), Const("Norway")), Options{})
	assert.True(t, HasCode(err, ErrCodeJoinNotAllowed))

	res, err := compileWith(t, Eq(Field("Country.ID"), Const(4)), Options{})
	require.NoError(t, err)
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("", "CountryID"), Right: param(int64(4))}, res.Filter)
}

func TestNilComparisons(t *testing.T) {
	assert.Equal(t, queryir.IsNull{X: col("cus", "CountryID")}, selectFilter(t, Eq(Field("Country"), Const(nil))))
	assert.Equal(t, queryir.IsNull{X: col("cus", "CountryID"), Negated: true}, selectFilter(t, Ne(Const(nil), Field("Country"))))

	_, err := compileWith(t, Gt(Field("Country"), Const(nil)), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeTypeMismatch))
}

func TestRecordAndReferenceKeys(t *testing.T) {
	got := selectFilter(t, Eq(Field("Country"), Const(&Country{ID: 5})))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "CountryID"), Right: param(int64(5))}, got)

	got = selectFilter(t, Eq(Field("Parent"), Const(schema.RefTo[Customer](3))))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "ParentID"), Right: param(int64(3))}, got)

	got = selectFilter(t, Eq(Field("Parent"), Const(schema.Ref[Customer]{})))
	assert.Equal(t, queryir.IsNull{X: col("cus", "ParentID")}, got)

	got = selectFilter(t, Eq(Field("Parent.ID"), Const(3)))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "ParentID"), Right: param(int64(3))}, got)
}

func TestBareBooleanColumn(t *testing.T) {
	isActive := queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Active"), Right: queryir.Literal{Value: true}}

	assert.Equal(t, isActive, selectFilter(t, Field("Active")))
	assert.Equal(t, queryir.Not{X: isActive}, selectFilter(t, Not(Field("Active"))))
	assert.Equal(t, queryir.Conjoin(isActive, queryir.Compare{Op: queryir.OpGt, Left: col("cus", "Age"), Right: param(int64(18))}),
		selectFilter(t, And(Field("Active"), Gt(Field("Age"), Const(18)))))
}

func TestNonBooleanPredicates(t *testing.T) {
	_, err := compileWith(t, Field("Age"), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeTypeMismatch))

	_, err = compileWith(t, Const(1), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeTypeMismatch))

	_, err = compileWith(t, Add(Field("Age"), Const(1)), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeTypeMismatch))
}

func TestLocalFolding(t *testing.T) {
	got := selectFilter(t, Eq(Field("Age"), Add(Const(40), Const(2))))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Age"), Right: param(int64(42))}, got)

	got = selectFilter(t, Eq(Field("Age"), Neg(Const(int32(3)))))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Age"), Right: param(int64(-3))}, got)

	assert.True(t, constant(t, Gt(Mul(Const(3), Const(2.5)), Const(7))))
	assert.True(t, constant(t, Not(Eq(Const("a"), Const("b")))))
	assert.True(t, constant(t, Lt(Const(int8(-1)), Const(uint(1)))))
}

func TestVarReadAtCompileTime(t *testing.T) {
	limit := 10
	e := Gt(Field("Age"), Var(&limit))
	limit = 20

	got := selectFilter(t, e)
	assert.Equal(t, queryir.Compare{Op: queryir.OpGt, Left: col("cus", "Age"), Right: param(int64(20))}, got)

	_, err := compileWith(t, Gt(Field("Age"), Var(limit)), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeUnsupported))
}

func TestRemoteArithmetic(t *testing.T) {
	got := selectFilter(t, Gt(Add(Field("Age"), Const(1)), Const(30)))
	assert.Equal(t, queryir.Compare{
		Op:    queryir.OpGt,
		Left:  queryir.Arith{Op: queryir.OpAdd, Left: col("cus", "Age"), Right: param(int64(1))},
		Right: param(int64(30)),
	}, got)

	got = selectFilter(t, Lt(Neg(Field("Age")), Const(0)))
	assert.Equal(t, queryir.Compare{Op: queryir.OpLt, Left: queryir.Negate{X: col("cus", "Age")}, Right: param(int64(0))}, got)
}

func TestLocalCalls(t *testing.T) {
	got := selectFilter(t, Eq(Field("Name"), Call(strings.ToUpper, Const("ada"))))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Name"), Right: param("ADA")}, got)

	born := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, constant(t, Eq(Method(Const(born), "Year"), Const(1990))))

	_, err := compileWith(t, Eq(Call(strings.ToUpper, Field("Name")), Const("ADA")), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeRemoteOperand))

	_, err = compileWith(t, Eq(Method(Field("Name"), "Len"), Const(3)), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeRemoteOperand))

	_, err = compileWith(t, Eq(Call(strings.ToUpper), Const("x")), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeLocalEvaluation))
}

func TestLocalMember(t *testing.T) {
	home := &Address{City: "Oslo"}
	got := selectFilter(t, Eq(Field("Address.City"), Member(Var(&home), "City")))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Address_City"), Right: param("Oslo")}, got)

	home = nil
	_, err := compileWith(t, Eq(Field("Address.City"), Member(Var(&home), "City")), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeLocalEvaluation))
}

func TestMembership(t *testing.T) {
	got := selectFilter(t, In(Field("Age"), Const([]int{1, 2})))
	assert.Equal(t, queryir.In{X: col("cus", "Age"), Values: []queryir.Expr{param(int64(1)), param(int64(2))}}, got)

	got = selectFilter(t, In(Field("Name"), Const(map[string]bool{"b": true, "a": true})))
	assert.Equal(t, queryir.In{X: col("cus", "Name"), Values: []queryir.Expr{param("a"), param("b")}}, got)

	got = selectFilter(t, In(Field("Country"), Const([]*Country{{ID: 1}, {ID: 2}})))
	assert.Equal(t, queryir.In{X: col("cus", "CountryID"), Values: []queryir.Expr{param(int64(1)), param(int64(2))}}, got)

	assert.False(t, constant(t, In(Field("Age"), Const([]int{}))))
	assert.True(t, constant(t, In(Const(2), Const([2]int{1, 2}))))
	assert.False(t, constant(t, In(Const("z"), Const([]string{"a"}))))

	_, err := compileWith(t, In(Const(1), Field("Age")), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeRemoteOperand))
}

func TestIndexAndConvert(t *testing.T) {
	got := selectFilter(t, Eq(Field("Name"), Index(Const([]string{"x", "y"}), Const(1))))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Name"), Right: param("y")}, got)

	_, err := compileWith(t, Eq(Field("Name"), Index(Const([]string{"x"}), Const(3))), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeLocalEvaluation))

	got = selectFilter(t, Eq(Field("Age"), Convert(Const(3.0), reflect.TypeFor[int32]())))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Age"), Right: param(int64(3))}, got)

	// Database operands pass through conversions.
	got = selectFilter(t, Eq(Convert(Field("Age"), reflect.TypeFor[int64]()), Const(3)))
	assert.Equal(t, queryir.Compare{Op: queryir.OpEq, Left: col("cus", "Age"), Right: param(int64(3))}, got)
}

func TestSubqueryField(t *testing.T) {
	got := selectFilter(t, Gt(Field("Orders"), Const(0)))
	cmp, ok := got.(queryir.Compare)
	require.True(t, ok)
	sub, ok := cmp.Left.(queryir.Subquery)
	require.True(t, ok)
	assert.Equal(t, "Purchase", sub.Select.From.Name)
	assert.Equal(t, queryir.Column{Table: "cus", Name: "ID"}, sub.Select.Filter.(queryir.Compare).Right)

	_, err := compileWith(t, Gt(Field("Orders"), Const(0)), Options{})
	assert.True(t, HasCode(err, ErrCodeUnsupported))
}

func TestResultExpr(t *testing.T) {
	yes, no := true, false
	assert.Equal(t, queryir.And{}, Result{Constant: &yes}.Expr())
	assert.Equal(t, queryir.Or{}, Result{Constant: &no}.Expr())

	f := queryir.IsNull{X: col("a", "b")}
	assert.Equal(t, f, Result{Filter: f}.Expr())
}

func TestCompareLocalValues(t *testing.T) {
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name string
		e    Expr
		want bool
	}{
		{"times", Lt(Const(early), Const(late)), true},
		{"strings", Ge(Const("b"), Const("a")), true},
		{"mixed widths", Eq(Const(int16(7)), Const(int64(7))), true},
		{"float and int", Gt(Const(1.5), Const(1)), true},
		{"negative vs unsigned", Gt(Const(-1), Const(uint8(0))), false},
		{"bools", Ne(Const(true), Const(false)), true},
		{"nil and nil", Eq(Const(nil), Const(nil)), true},
		{"nil pointer", Eq(Const((*Country)(nil)), Const(nil)), true},
		{"structs", Eq(Const(Address{City: "a"}), Const(Address{City: "a"})), true},
		{"string concat", Eq(Add(Const("ab"), Const("c")), Const("abc")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, constant(t, tt.e))
		})
	}
}

func TestLocalEvaluationErrors(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
	}{
		{"division by zero", Eq(Div(Const(1), Const(0)), Const(0))},
		{"order of bools", Lt(Const(true), Const(false))},
		{"mismatched types", Eq(Const("1"), Const(1))},
		{"negate string", Eq(Neg(Const("x")), Const("x"))},
		{"bad conversion", Eq(Convert(Const("x"), reflect.TypeFor[int]()), Const(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileWith(t, tt.e, Options{Alias: "cus"})
			assert.True(t, HasCode(err, ErrCodeLocalEvaluation), "got %v", err)
		})
	}
}

func TestValue(t *testing.T) {
	reg := schema.NewRegistry()
	s, err := schema.For[Customer](reg)
	require.NoError(t, err)

	got, err := Value(reg, s, Field("Country.Name"), Options{Alias: "cus", AllowJoins: true})
	require.NoError(t, err)
	assert.Equal(t, col("cus_countryid", "Name"), got)

	got, err = Value(reg, s, Add(Const(1), Const(2)), Options{})
	require.NoError(t, err)
	assert.Equal(t, param(int64(3)), got)

	_, err = Value(reg, s, Field("Address"), Options{Alias: "cus"})
	assert.True(t, HasCode(err, ErrCodeTypeMismatch))
}
