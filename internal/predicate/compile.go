package predicate

import (
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

// Options controls how field references are rendered.
type Options struct {
	// Alias qualifies the root relation's columns. Empty renders them
	// unqualified, as UPDATE and DELETE need.
	Alias string

	// AllowJoins permits paths into eager-joined records. Without it the
	// only eager hop allowed is to the joined key, which reads the
	// foreign-key column instead.
	AllowJoins bool
}

// Result is a compiled predicate: either a constant or a filter.
type Result struct {
	Constant *bool
	Filter   queryir.Expr
}

// IsConstant reports whether the predicate was fully evaluated locally.
func (r Result) IsConstant() bool {
	return r.Constant != nil
}

// Expr returns the filter, rendering a constant as an empty And (true) or
// an empty Or (false).
func (r Result) Expr() queryir.Expr {
	if r.Constant == nil {
		return r.Filter
	}
	if *r.Constant {
		return queryir.And{}
	}
	return queryir.Or{}
}

// Compile translates e, written against records of s, into a Result.
func Compile(reg *schema.Registry, s *schema.Schema, e Expr, opts Options) (Result, error) {
	c := &compiler{reg: reg, root: s, opts: opts}

	o, err := c.compile(e)
	if err != nil {
		return Result{}, err
	}
	if o.kind == kindLocal {
		b, err := truth(o.local)
		if err != nil {
			return Result{}, &CompileError{Code: ErrCodeTypeMismatch, Message: "constant predicate", Err: err}
		}
		return Result{Constant: &b}, nil
	}

	filter, err := c.predicate(o)
	if err != nil {
		return Result{}, err
	}
	return Result{Filter: filter}, nil
}

// Value compiles a scalar expression such as an ORDER BY term. Local
// results become parameters.
func Value(reg *schema.Registry, s *schema.Schema, e Expr, opts Options) (queryir.Expr, error) {
	c := &compiler{reg: reg, root: s, opts: opts}

	o, err := c.compile(e)
	if err != nil {
		return nil, err
	}
	return c.value(o)
}

type kind int

const (
	kindLocal kind = iota
	kindField
	kindRemote
)

// operand is the tagged outcome of compiling one node.
type operand struct {
	kind  kind
	local reflect.Value
	ref   fieldRef
	expr  queryir.Expr
}

func local(v reflect.Value) operand {
	return operand{kind: kindLocal, local: v}
}

func remote(e queryir.Expr) operand {
	return operand{kind: kindRemote, expr: e}
}

// fieldRef is a resolved path from the record parameter. field is nil
// when the path denotes a whole record.
type fieldRef struct {
	relation *schema.Schema
	scope    *schema.Schema
	alias    string
	path     string
	field    *schema.Field

	// key marks an eager or reference field read through its key member;
	// the foreign-key column is compared directly.
	key bool
}

type compiler struct {
	reg  *schema.Registry
	root *schema.Schema
	opts Options
}

func (c *compiler) compile(e Expr) (operand, error) {
	switch n := e.(type) {
	case nil:
		return operand{}, compileError(ErrCodeUnsupported, "", "nil expression")

	case paramNode:
		return operand{kind: kindField, ref: fieldRef{relation: c.root, scope: c.root, alias: c.opts.Alias}}, nil

	case memberNode:
		x, err := c.compile(n.x)
		if err != nil {
			return operand{}, err
		}
		switch x.kind {
		case kindField:
			return c.member(x.ref, n.name)
		case kindLocal:
			v, err := localMember(x.local, n.name)
			if err != nil {
				return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "member " + n.name, Err: err}
			}
			return local(v), nil
		}
		return operand{}, compileError(ErrCodeRemoteOperand, "", "member %s of a database expression", n.name)

	case constNode:
		return local(reflect.ValueOf(n.value)), nil

	case varNode:
		p := reflect.ValueOf(n.ptr)
		if p.Kind() != reflect.Pointer || p.IsNil() {
			return operand{}, compileError(ErrCodeUnsupported, "", "Var needs a non-nil pointer, got %T", n.ptr)
		}
		return local(p.Elem()), nil

	case callNode:
		fn := reflect.ValueOf(n.fn)
		if fn.Kind() != reflect.Func || fn.IsNil() {
			return operand{}, compileError(ErrCodeUnsupported, "", "Call needs a function, got %T", n.fn)
		}
		return c.call(fn, fmt.Sprintf("%T", n.fn), n.args)

	case methodNode:
		recv, err := c.compile(n.recv)
		if err != nil {
			return operand{}, err
		}
		if recv.kind != kindLocal {
			return operand{}, compileError(ErrCodeRemoteOperand, recv.ref.path, "method %s called on a database value", n.name)
		}
		m, err := method(recv.local, n.name)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "method " + n.name, Err: err}
		}
		return c.call(m, n.name, n.args)

	case binaryNode:
		return c.binary(n)

	case unaryNode:
		return c.unary(n)

	case convertNode:
		x, err := c.compile(n.x)
		if err != nil {
			return operand{}, err
		}
		if x.kind != kindLocal {
			return x, nil
		}
		v, err := convertLocal(x.local, n.to)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "conversion", Err: err}
		}
		return local(v), nil

	case inNode:
		return c.in(n)
	}
	return operand{}, compileError(ErrCodeUnsupported, "", "unknown expression node %T", e)
}

// member resolves name below a field reference.
func (c *compiler) member(r fieldRef, name string) (operand, error) {
	path := name
	if r.path != "" {
		path = r.path + "." + name
	}

	f := r.field
	switch {
	case f == nil:
		return c.lookup(r.relation, r.scope, r.alias, path, name)

	case r.key:
		return operand{}, compileError(ErrCodeUnknownPath, path, "key of %s has no members", r.path)

	case f.IsInline:
		return c.lookup(r.relation, f.InlineSchema, r.alias, path, name)

	case f.IsReference:
		if name != "ID" {
			return operand{}, compileError(ErrCodeUnknownPath, path, "reference %s only exposes ID", r.path)
		}
		r.path, r.key = path, true
		return operand{kind: kindField, ref: r}, nil

	case f.IsEager:
		joined, err := c.reg.Foreign(f)
		if err != nil {
			return operand{}, fmt.Errorf("resolve %s: %w", r.path, err)
		}
		pk, err := joined.PrimaryKey()
		if err != nil {
			return operand{}, fmt.Errorf("resolve %s: %w", r.path, err)
		}
		if name == pk.Name {
			r.path, r.key = path, true
			return operand{kind: kindField, ref: r}, nil
		}
		if !c.opts.AllowJoins {
			return operand{}, compileError(ErrCodeJoinNotAllowed, path, "joins are not available in this command")
		}
		return c.lookup(joined, joined, schema.JoinAlias(r.alias, f), path, name)
	}
	return operand{}, compileError(ErrCodeUnknownPath, path, "%s is not a record", r.path)
}

func (c *compiler) lookup(relation, scope *schema.Schema, alias, path, name string) (operand, error) {
	f, ok := scope.Field(name)
	if !ok {
		return operand{}, compileError(ErrCodeUnknownPath, path, "%s has no mapped field %s", scope.Type, name)
	}
	return operand{kind: kindField, ref: fieldRef{
		relation: relation,
		scope:    scope,
		alias:    alias,
		path:     path,
		field:    f,
	}}, nil
}

// column turns a field reference into its database expression.
func (c *compiler) column(r fieldRef) (queryir.Expr, error) {
	f := r.field
	switch {
	case f == nil:
		return nil, compileError(ErrCodeTypeMismatch, r.path, "a record cannot be used as a value")
	case f.IsInline:
		return nil, compileError(ErrCodeTypeMismatch, r.path, "an inline field cannot be used as a value")
	case f.IsSubquery():
		if r.alias == "" {
			return nil, compileError(ErrCodeUnsupported, r.path, "subquery fields need a qualified relation")
		}
		e, err := f.Subquery.BuildSubquery(schema.SubqueryContext{Registry: c.reg, Owner: r.relation, Alias: r.alias})
		if err != nil {
			return nil, fmt.Errorf("subquery %s: %w", r.path, err)
		}
		return e, nil
	}
	return queryir.Column{Table: r.alias, Name: f.DBName}, nil
}

// value turns any operand into a database expression. Locals become
// parameters.
func (c *compiler) value(o operand) (queryir.Expr, error) {
	switch o.kind {
	case kindRemote:
		return o.expr, nil
	case kindField:
		return c.column(o.ref)
	}
	if isNil(o.local) {
		return queryir.Param{}, nil
	}
	v, err := marshal.DriverValue(o.local.Interface())
	if err != nil {
		return nil, &CompileError{Code: ErrCodeTypeMismatch, Message: "parameter", Err: err}
	}
	return queryir.Param{Value: v}, nil
}

// predicate turns an operand into a boolean database expression. A bare
// boolean column becomes col = TRUE.
func (c *compiler) predicate(o operand) (queryir.Expr, error) {
	switch o.kind {
	case kindLocal:
		b, err := truth(o.local)
		if err != nil {
			return nil, &CompileError{Code: ErrCodeTypeMismatch, Message: "operand", Err: err}
		}
		if b {
			return queryir.And{}, nil
		}
		return queryir.Or{}, nil

	case kindField:
		f := o.ref.field
		if f == nil || o.ref.key || !isBoolType(f.Type) {
			return nil, compileError(ErrCodeTypeMismatch, o.ref.path, "field is not boolean")
		}
		col, err := c.column(o.ref)
		if err != nil {
			return nil, err
		}
		return queryir.Compare{Op: queryir.OpEq, Left: col, Right: queryir.Literal{Value: true}}, nil
	}

	switch o.expr.(type) {
	case queryir.Compare, queryir.And, queryir.Or, queryir.Not, queryir.In, queryir.IsNull:
		return o.expr, nil
	}
	return nil, compileError(ErrCodeTypeMismatch, "", "%T is not a boolean expression", o.expr)
}

func isBoolType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Bool
}

func (c *compiler) call(fn reflect.Value, name string, args []Expr) (operand, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		o, err := c.compile(a)
		if err != nil {
			return operand{}, err
		}
		if o.kind != kindLocal {
			return operand{}, compileError(ErrCodeRemoteOperand, o.ref.path, "database value passed to %s", name)
		}
		in[i] = o.local
	}

	v, err := callLocal(fn, in)
	if err != nil {
		return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "call " + name, Err: err}
	}
	return local(v), nil
}

func localMember(v reflect.Value, name string) (reflect.Value, error) {
	v = deref(v)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil %s", v.Type())
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%s has no members", v.Kind())
	}
	sf, ok := v.Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return reflect.Value{}, fmt.Errorf("%s has no exported field %s", v.Type(), name)
	}
	return v.FieldByIndex(sf.Index), nil
}

func method(recv reflect.Value, name string) (reflect.Value, error) {
	recv = deref(recv)
	if !recv.IsValid() {
		return reflect.Value{}, fmt.Errorf("method %s on nil", name)
	}
	if m := recv.MethodByName(name); m.IsValid() {
		return m, nil
	}
	if recv.Kind() != reflect.Pointer {
		p := reflect.New(recv.Type())
		p.Elem().Set(recv)
		if m := p.MethodByName(name); m.IsValid() {
			return m, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%s has no method %s", recv.Type(), name)
}
