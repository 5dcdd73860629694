// Package predicate compiles typed filter expressions over a record into
// queryir filters, evaluating every locally resolvable part at compile
// time.
//
// Go has no expression trees, so callers build the tree with constructors:
//
//	predicate.And(
//	    predicate.Eq(predicate.Field("Address.City"), predicate.Var(&city)),
//	    predicate.Gt(predicate.Field("Balance"), predicate.Const(100)),
//	)
//
// Each node compiles to one of three outcomes:
//
//   - a local value (constants, variables, host function and method calls)
//   - a field reference (a resolved path from the record parameter)
//   - a database expression
//
// Operators whose operands are all local are evaluated with host
// semantics. Otherwise locals become parameters and field references become
// columns. And and Or short-circuit at compile time: a local false on the
// left of And yields false without compiling the right side, and a local
// true on the left of Or yields true the same way.
//
// Paths pass through inline fields transparently. A path through an eager
// field continues on the joined record under its join alias, which must
// match the alias the SELECT assembler uses (schema.JoinAlias).
package predicate
