package predicate

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"
)

var timeType = reflect.TypeFor[time.Time]()

type numClass int

const (
	notNumber numClass = iota
	signed
	unsigned
	float
)

func classify(v reflect.Value) numClass {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsigned
	case reflect.Float32, reflect.Float64:
		return float
	}
	return notNumber
}

// deref unwraps interfaces so operands are compared by dynamic value.
func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v
}

func isNil(v reflect.Value) bool {
	v = deref(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func truth(v reflect.Value) (bool, error) {
	v = deref(v)
	if !v.IsValid() || v.Kind() != reflect.Bool {
		return false, errors.New("predicate is not boolean")
	}
	return v.Bool(), nil
}

func asFloat(v reflect.Value) float64 {
	switch classify(v) {
	case signed:
		return float64(v.Int())
	case unsigned:
		return float64(v.Uint())
	}
	return v.Float()
}

// order compares two local values: numbers across widths, strings, times
// and booleans. ok is false when the values have no ordering.
func order(l, r reflect.Value) (int, bool) {
	lc, rc := classify(l), classify(r)
	switch {
	case lc != notNumber && rc != notNumber:
		switch {
		case lc == float || rc == float:
			return cmp.Compare(asFloat(l), asFloat(r)), true
		case lc == signed && rc == signed:
			return cmp.Compare(l.Int(), r.Int()), true
		case lc == unsigned && rc == unsigned:
			return cmp.Compare(l.Uint(), r.Uint()), true
		case lc == signed:
			if l.Int() < 0 {
				return -1, true
			}
			return cmp.Compare(uint64(l.Int()), r.Uint()), true
		default:
			if r.Int() < 0 {
				return 1, true
			}
			return cmp.Compare(l.Uint(), uint64(r.Int())), true
		}
	case l.Kind() == reflect.String && r.Kind() == reflect.String:
		return cmp.Compare(l.String(), r.String()), true
	case l.Type() == timeType && r.Type() == timeType:
		return l.Interface().(time.Time).Compare(r.Interface().(time.Time)), true
	}
	return 0, false
}

func compareLocal(op binaryOp, l, r reflect.Value) (bool, error) {
	l, r = deref(l), deref(r)

	if isNil(l) || isNil(r) {
		both := isNil(l) && isNil(r)
		switch op {
		case opEq:
			return both, nil
		case opNe:
			return !both, nil
		}
		return false, fmt.Errorf("cannot order nil with %s", op)
	}

	if c, ok := order(l, r); ok {
		switch op {
		case opEq:
			return c == 0, nil
		case opNe:
			return c != 0, nil
		case opGt:
			return c > 0, nil
		case opGe:
			return c >= 0, nil
		case opLt:
			return c < 0, nil
		case opLe:
			return c <= 0, nil
		}
	}

	if op != opEq && op != opNe {
		return false, fmt.Errorf("%s is not defined on %s and %s", op, l.Type(), r.Type())
	}
	if l.Type() != r.Type() || !l.Type().Comparable() {
		return false, fmt.Errorf("cannot compare %s with %s", l.Type(), r.Type())
	}
	eq := l.Interface() == r.Interface()
	if op == opEq {
		return eq, nil
	}
	return !eq, nil
}

// arithLocal applies op with host semantics. Operands of one type keep
// it, with Go's wrap-around on overflow; mixed operands widen to int64,
// uint64 or float64.
func arithLocal(op binaryOp, l, r reflect.Value) (reflect.Value, error) {
	l, r = deref(l), deref(r)
	if !l.IsValid() || !r.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s on nil", op)
	}

	if l.Kind() == reflect.String && r.Kind() == reflect.String && op == opAdd {
		out := reflect.New(l.Type()).Elem()
		out.SetString(l.String() + r.String())
		return out, nil
	}

	lc, rc := classify(l), classify(r)
	if lc == notNumber || rc == notNumber {
		return reflect.Value{}, fmt.Errorf("%s is not defined on %s and %s", op, l.Type(), r.Type())
	}

	var t reflect.Type
	switch {
	case l.Type() == r.Type():
		t = l.Type()
	case lc == float || rc == float:
		t = reflect.TypeFor[float64]()
	case lc == unsigned && rc == unsigned:
		t = reflect.TypeFor[uint64]()
	default:
		t = reflect.TypeFor[int64]()
	}
	out := reflect.New(t).Elem()

	switch classify(out) {
	case float:
		a, b := asFloat(l), asFloat(r)
		var res float64
		switch op {
		case opAdd:
			res = a + b
		case opSub:
			res = a - b
		case opMul:
			res = a * b
		case opDiv:
			res = a / b
		}
		out.SetFloat(res)
	case unsigned:
		a, b := l.Uint(), r.Uint()
		var res uint64
		switch op {
		case opAdd:
			res = a + b
		case opSub:
			res = a - b
		case opMul:
			res = a * b
		case opDiv:
			if b == 0 {
				return reflect.Value{}, errors.New("integer division by zero")
			}
			res = a / b
		}
		out.SetUint(res)
	default:
		a, b := asInt(l), asInt(r)
		var res int64
		switch op {
		case opAdd:
			res = a + b
		case opSub:
			res = a - b
		case opMul:
			res = a * b
		case opDiv:
			if b == 0 {
				return reflect.Value{}, errors.New("integer division by zero")
			}
			res = a / b
		}
		out.SetInt(res)
	}
	return out, nil
}

func asInt(v reflect.Value) int64 {
	if classify(v) == unsigned {
		return int64(v.Uint())
	}
	return v.Int()
}

func negLocal(v reflect.Value) (reflect.Value, error) {
	v = deref(v)
	if !v.IsValid() {
		return reflect.Value{}, errors.New("negation of nil")
	}
	out := reflect.New(v.Type()).Elem()
	switch classify(v) {
	case signed:
		out.SetInt(-v.Int())
	case unsigned:
		out.SetUint(-v.Uint())
	case float:
		out.SetFloat(-v.Float())
	default:
		return reflect.Value{}, fmt.Errorf("negation is not defined on %s", v.Type())
	}
	return out, nil
}

func indexLocal(x, i reflect.Value) (reflect.Value, error) {
	x, i = deref(x), deref(i)
	if !x.IsValid() || !i.IsValid() {
		return reflect.Value{}, errors.New("index of nil")
	}

	switch x.Kind() {
	case reflect.Map:
		if !i.Type().ConvertibleTo(x.Type().Key()) {
			return reflect.Value{}, fmt.Errorf("cannot index %s with %s", x.Type(), i.Type())
		}
		v := x.MapIndex(i.Convert(x.Type().Key()))
		if !v.IsValid() {
			return reflect.Zero(x.Type().Elem()), nil
		}
		return v, nil
	case reflect.Slice, reflect.Array, reflect.String:
		c := classify(i)
		if c != signed && c != unsigned {
			return reflect.Value{}, fmt.Errorf("index must be an integer, got %s", i.Type())
		}
		n := asInt(i)
		if n < 0 || n >= int64(x.Len()) {
			return reflect.Value{}, fmt.Errorf("index %d out of range [0:%d]", n, x.Len())
		}
		return x.Index(int(n)), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot index %s", x.Type())
}

// members returns the elements of a local set: slice and array elements or
// map keys.
func members(set reflect.Value) ([]reflect.Value, error) {
	set = deref(set)
	if !set.IsValid() {
		return nil, nil
	}
	switch set.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]reflect.Value, set.Len())
		for i := range out {
			out[i] = set.Index(i)
		}
		return out, nil
	case reflect.Map:
		keys := set.MapKeys()
		sortValues(keys)
		return keys, nil
	}
	return nil, fmt.Errorf("%s is not a slice, array or map", set.Type())
}

// sortValues orders map keys so generated parameter lists are stable.
func sortValues(vs []reflect.Value) {
	slices.SortFunc(vs, func(a, b reflect.Value) int {
		if c, ok := order(deref(a), deref(b)); ok {
			return c
		}
		return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
}

func convertLocal(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	v = deref(v)
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if !v.Type().ConvertibleTo(t) {
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Type(), t)
	}
	return v.Convert(t), nil
}

// callLocal invokes fn, converting arguments to the parameter types. A
// trailing non-nil error result fails the call.
func callLocal(fn reflect.Value, args []reflect.Value) (out reflect.Value, err error) {
	ft := fn.Type()
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return reflect.Value{}, fmt.Errorf("want at least %d arguments, got %d", n-1, len(args))
		}
	} else if len(args) != n {
		return reflect.Value{}, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	if ft.NumOut() == 0 {
		return reflect.Value{}, errors.New("function returns no value")
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := paramType(ft, i)
		a = deref(a)
		switch {
		case !a.IsValid():
			in[i] = reflect.Zero(pt)
		case a.Type().AssignableTo(pt):
			in[i] = a
		case a.Type().ConvertibleTo(pt):
			in[i] = a.Convert(pt)
		default:
			return reflect.Value{}, fmt.Errorf("argument %d: cannot use %s as %s", i, a.Type(), pt)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res := fn.Call(in)
	if last := res[len(res)-1]; len(res) > 1 && last.Type() == errorType && !last.IsNil() {
		return reflect.Value{}, last.Interface().(error)
	}
	return res[0], nil
}

var errorType = reflect.TypeFor[error]()

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}
