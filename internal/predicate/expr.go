package predicate

import (
	"reflect"
	"strings"
)

// Expr is a node of a predicate expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	predicateNode()
}

type binaryOp int

const (
	opEq binaryOp = iota
	opNe
	opGt
	opGe
	opLt
	opLe
	opAnd
	opOr
	opAdd
	opSub
	opMul
	opDiv
	opIndex
)

var binaryOpNames = [...]string{
	opEq: "==", opNe: "!=", opGt: ">", opGe: ">=", opLt: "<", opLe: "<=",
	opAnd: "&&", opOr: "||",
	opAdd: "+", opSub: "-", opMul: "*", opDiv: "/",
	opIndex: "[]",
}

func (op binaryOp) String() string {
	return binaryOpNames[op]
}

type unaryOp int

const (
	opNot unaryOp = iota
	opNeg
)

type paramNode struct{}

type memberNode struct {
	x    Expr
	name string
}

type constNode struct {
	value any
}

type varNode struct {
	ptr any
}

type callNode struct {
	fn   any
	args []Expr
}

type methodNode struct {
	recv Expr
	name string
	args []Expr
}

type binaryNode struct {
	op   binaryOp
	l, r Expr
}

type unaryNode struct {
	op unaryOp
	x  Expr
}

type convertNode struct {
	x  Expr
	to reflect.Type
}

type inNode struct {
	x, set Expr
}

func (paramNode) predicateNode()   {}
func (memberNode) predicateNode()  {}
func (constNode) predicateNode()   {}
func (varNode) predicateNode()     {}
func (callNode) predicateNode()    {}
func (methodNode) predicateNode()  {}
func (binaryNode) predicateNode()  {}
func (unaryNode) predicateNode()   {}
func (convertNode) predicateNode() {}
func (inNode) predicateNode()      {}

// Param is the record the predicate is written against.
func Param() Expr {
	return paramNode{}
}

// Field is a dotted member path on Param: Field("Address.City") is
// Member(Member(Param(), "Address"), "City").
func Field(path string) Expr {
	var e Expr = paramNode{}
	for _, name := range strings.Split(path, ".") {
		e = memberNode{x: e, name: name}
	}
	return e
}

// Member accesses a named member of x.
func Member(x Expr, name string) Expr {
	return memberNode{x: x, name: name}
}

// Const is a local constant.
func Const(v any) Expr {
	return constNode{value: v}
}

// Var reads the variable ptr points to when the predicate is compiled.
func Var(ptr any) Expr {
	return varNode{ptr: ptr}
}

// Call invokes the local function fn with args at compile time. Every
// argument must be local.
func Call(fn any, args ...Expr) Expr {
	return callNode{fn: fn, args: args}
}

// Method invokes the named method of a local receiver at compile time.
func Method(recv Expr, name string, args ...Expr) Expr {
	return methodNode{recv: recv, name: name, args: args}
}

// Eq compares l = r.
func Eq(l, r Expr) Expr { return binaryNode{op: opEq, l: l, r: r} }

// Ne compares l <> r.
func Ne(l, r Expr) Expr { return binaryNode{op: opNe, l: l, r: r} }

// Gt compares l > r.
func Gt(l, r Expr) Expr { return binaryNode{op: opGt, l: l, r: r} }

// Ge compares l >= r.
func Ge(l, r Expr) Expr { return binaryNode{op: opGe, l: l, r: r} }

// Lt compares l < r.
func Lt(l, r Expr) Expr { return binaryNode{op: opLt, l: l, r: r} }

// Le compares l <= r.
func Le(l, r Expr) Expr { return binaryNode{op: opLe, l: l, r: r} }

// Add is l + r.
func Add(l, r Expr) Expr { return binaryNode{op: opAdd, l: l, r: r} }

// Sub is l - r.
func Sub(l, r Expr) Expr { return binaryNode{op: opSub, l: l, r: r} }

// Mul is l * r.
func Mul(l, r Expr) Expr { return binaryNode{op: opMul, l: l, r: r} }

// Div is l / r.
func Div(l, r Expr) Expr { return binaryNode{op: opDiv, l: l, r: r} }

// Index is x[i] on a local slice, array, string or map.
func Index(x, i Expr) Expr {
	return binaryNode{op: opIndex, l: x, r: i}
}

// And folds preds left to right. No predicates is true.
func And(preds ...Expr) Expr {
	return fold(opAnd, true, preds)
}

// Or folds preds left to right. No predicates is false.
func Or(preds ...Expr) Expr {
	return fold(opOr, false, preds)
}

func fold(op binaryOp, empty bool, preds []Expr) Expr {
	if len(preds) == 0 {
		return Const(empty)
	}
	e := preds[0]
	for _, p := range preds[1:] {
		e = binaryNode{op: op, l: e, r: p}
	}
	return e
}

// Not is logical negation.
func Not(x Expr) Expr {
	return unaryNode{op: opNot, x: x}
}

// Neg is arithmetic negation.
func Neg(x Expr) Expr {
	return unaryNode{op: opNeg, x: x}
}

// Convert converts a local x to t. Database operands pass through.
func Convert(x Expr, t reflect.Type) Expr {
	return convertNode{x: x, to: t}
}

// In tests x for membership in the local slice, array or map set.
func In(x, set Expr) Expr {
	return inNode{x: x, set: set}
}
