package predicate

import (
	"reflect"

	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

var compareOps = map[binaryOp]queryir.CompareOp{
	opEq: queryir.OpEq,
	opNe: queryir.OpNe,
	opGt: queryir.OpGt,
	opGe: queryir.OpGe,
	opLt: queryir.OpLt,
	opLe: queryir.OpLe,
}

var arithOps = map[binaryOp]queryir.ArithOp{
	opAdd: queryir.OpAdd,
	opSub: queryir.OpSub,
	opMul: queryir.OpMul,
	opDiv: queryir.OpDiv,
}

func (c *compiler) binary(n binaryNode) (operand, error) {
	switch n.op {
	case opAnd:
		return c.junction(n, false)
	case opOr:
		return c.junction(n, true)
	}

	l, err := c.compile(n.l)
	if err != nil {
		return operand{}, err
	}
	r, err := c.compile(n.r)
	if err != nil {
		return operand{}, err
	}

	switch n.op {
	case opIndex:
		if l.kind != kindLocal || r.kind != kindLocal {
			return operand{}, compileError(ErrCodeRemoteOperand, l.ref.path, "indexing is only supported on local values")
		}
		v, err := indexLocal(l.local, r.local)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "index", Err: err}
		}
		return local(v), nil

	case opAdd, opSub, opMul, opDiv:
		if l.kind == kindLocal && r.kind == kindLocal {
			v, err := arithLocal(n.op, l.local, r.local)
			if err != nil {
				return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "arithmetic", Err: err}
			}
			return local(v), nil
		}
		lx, err := c.value(l)
		if err != nil {
			return operand{}, err
		}
		rx, err := c.value(r)
		if err != nil {
			return operand{}, err
		}
		return remote(queryir.Arith{Op: arithOps[n.op], Left: lx, Right: rx}), nil
	}

	return c.compare(n.op, l, r)
}

// junction compiles And (short == false) and Or (short == true). A local
// operand equal to short decides the result; the other local value yields
// the opposite operand unchanged. The right side is never compiled when
// the left decides.
func (c *compiler) junction(n binaryNode, short bool) (operand, error) {
	l, err := c.compile(n.l)
	if err != nil {
		return operand{}, err
	}
	if l.kind == kindLocal {
		b, err := truth(l.local)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeTypeMismatch, Message: "left of " + n.op.String(), Err: err}
		}
		if b == short {
			return local(reflect.ValueOf(short)), nil
		}
		return c.compile(n.r)
	}

	r, err := c.compile(n.r)
	if err != nil {
		return operand{}, err
	}
	if r.kind == kindLocal {
		b, err := truth(r.local)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeTypeMismatch, Message: "right of " + n.op.String(), Err: err}
		}
		if b == short {
			return local(reflect.ValueOf(short)), nil
		}
		return l, nil
	}

	lx, err := c.predicate(l)
	if err != nil {
		return operand{}, err
	}
	rx, err := c.predicate(r)
	if err != nil {
		return operand{}, err
	}
	if short {
		return remote(disjoin(lx, rx)), nil
	}
	return remote(queryir.Conjoin(lx, rx)), nil
}

func disjoin(l, r queryir.Expr) queryir.Expr {
	var preds []queryir.Expr
	for _, e := range []queryir.Expr{l, r} {
		if or, ok := e.(queryir.Or); ok {
			preds = append(preds, or.Predicates...)
			continue
		}
		preds = append(preds, e)
	}
	return queryir.Or{Predicates: preds}
}

func (c *compiler) compare(op binaryOp, l, r operand) (operand, error) {
	if l.kind == kindLocal && r.kind == kindLocal {
		b, err := compareLocal(op, l.local, r.local)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "comparison", Err: err}
		}
		return local(reflect.ValueOf(b)), nil
	}

	var err error
	if l.kind == kindField && r.kind == kindLocal {
		if r.local, err = c.keyed(l.ref, r.local); err != nil {
			return operand{}, err
		}
	}
	if r.kind == kindField && l.kind == kindLocal {
		if l.local, err = c.keyed(r.ref, l.local); err != nil {
			return operand{}, err
		}
	}

	// Comparisons against nil become IS [NOT] NULL.
	if l.kind == kindLocal && isNil(l.local) {
		l, r = r, l
	}
	if r.kind == kindLocal && isNil(r.local) {
		if op != opEq && op != opNe {
			return operand{}, compileError(ErrCodeTypeMismatch, l.ref.path, "%s against nil", op)
		}
		x, err := c.value(l)
		if err != nil {
			return operand{}, err
		}
		return remote(queryir.IsNull{X: x, Negated: op == opNe}), nil
	}

	lx, err := c.value(l)
	if err != nil {
		return operand{}, err
	}
	rx, err := c.value(r)
	if err != nil {
		return operand{}, err
	}
	return remote(queryir.Compare{Op: compareOps[op], Left: lx, Right: rx}), nil
}

// keyed maps a local record or reference compared with an eager or
// reference field to its key. A nil record or zero reference maps to nil.
func (c *compiler) keyed(r fieldRef, v reflect.Value) (reflect.Value, error) {
	f := r.field
	if f == nil || r.key || (!f.IsEager && !f.IsReference) {
		return v, nil
	}
	v = deref(v)
	if !v.IsValid() {
		return v, nil
	}

	if f.IsReference {
		if v.Type() != f.Type {
			return v, nil
		}
		if id := schema.KeyOf(v); id != 0 {
			return reflect.ValueOf(id), nil
		}
		return reflect.Value{}, nil
	}

	rec := v
	if rec.Kind() == reflect.Pointer {
		if rec.IsNil() {
			return reflect.Value{}, nil
		}
		rec = rec.Elem()
	}
	if rec.Type() != f.ForeignType {
		return v, nil
	}
	joined, err := c.reg.Foreign(f)
	if err != nil {
		return reflect.Value{}, err
	}
	pk, err := joined.PrimaryKey()
	if err != nil {
		return reflect.Value{}, err
	}
	key := rec.FieldByIndex(pk.Index)
	if key.IsZero() {
		return reflect.Value{}, nil
	}
	return key, nil
}

func (c *compiler) unary(n unaryNode) (operand, error) {
	x, err := c.compile(n.x)
	if err != nil {
		return operand{}, err
	}

	if n.op == opNot {
		if x.kind == kindLocal {
			b, err := truth(x.local)
			if err != nil {
				return operand{}, &CompileError{Code: ErrCodeTypeMismatch, Message: "operand of !", Err: err}
			}
			return local(reflect.ValueOf(!b)), nil
		}
		p, err := c.predicate(x)
		if err != nil {
			return operand{}, err
		}
		return remote(queryir.Not{X: p}), nil
	}

	if x.kind == kindLocal {
		v, err := negLocal(x.local)
		if err != nil {
			return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "negation", Err: err}
		}
		return local(v), nil
	}
	v, err := c.value(x)
	if err != nil {
		return operand{}, err
	}
	return remote(queryir.Negate{X: v}), nil
}

// in compiles membership against a local set. An empty set is false.
func (c *compiler) in(n inNode) (operand, error) {
	set, err := c.compile(n.set)
	if err != nil {
		return operand{}, err
	}
	if set.kind != kindLocal {
		return operand{}, compileError(ErrCodeRemoteOperand, set.ref.path, "membership set must be local")
	}
	elems, err := members(set.local)
	if err != nil {
		return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "membership set", Err: err}
	}

	x, err := c.compile(n.x)
	if err != nil {
		return operand{}, err
	}

	if x.kind == kindLocal {
		for _, e := range elems {
			eq, err := compareLocal(opEq, x.local, e)
			if err != nil {
				return operand{}, &CompileError{Code: ErrCodeLocalEvaluation, Message: "membership", Err: err}
			}
			if eq {
				return local(reflect.ValueOf(true)), nil
			}
		}
		return local(reflect.ValueOf(false)), nil
	}

	if len(elems) == 0 {
		return local(reflect.ValueOf(false)), nil
	}

	xe, err := c.value(x)
	if err != nil {
		return operand{}, err
	}
	values := make([]queryir.Expr, len(elems))
	for i, e := range elems {
		if x.kind == kindField {
			if e, err = c.keyed(x.ref, e); err != nil {
				return operand{}, err
			}
		}
		if values[i], err = c.value(local(e)); err != nil {
			return operand{}, err
		}
	}
	return remote(queryir.In{X: xe, Values: values}), nil
}
