// Package queryir provides the abstract command representation that sits
// between the mapping engine and a concrete SQL dialect.
//
// The engine never produces SQL text. Schema-driven command assembly and the
// predicate compiler both emit queryir nodes; a dialect renderer
// (internal/querysql) turns those nodes into text plus positional arguments.
//
//	[schema + marshal + predicate] → [queryir] → [querysql dialect] → SQL
//
// NODE FAMILIES:
//
//   - Expr: scalar and boolean expressions (Column, Param, Literal,
//     Compare, And, Or, Not, Negate, Arith, In, IsNull, Aggregate, Subquery)
//   - Command: complete statements (Select, Insert, Update, Delete,
//     CreateTable, CreateIndex)
//
// SEALED INTERFACES:
//
// Expr and Command are sealed with marker methods; only this package
// implements them, so renderers can switch exhaustively:
//
//	switch e := expr.(type) {
//	case Column:
//	    // column reference
//	case Param:
//	    // bound parameter
//	default:
//	    // unsupported node
//	}
//
// IMMUTABILITY:
//
// Expr values are treated as immutable once built. Commands hold slices and
// expose Clone so a cached template can be branched per call without the
// branches observing each other's filters, columns or parameters.
//
// TEMPLATE PARAMETERS:
//
// A Param with a Name and no Value is a template slot. Renderers report the
// slot names in argument order so the caller can bind per-record values
// without re-rendering the statement.
package queryir
