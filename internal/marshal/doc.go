// Package marshal generates the per-type procedures that move values
// between records and positional rows.
//
// A Plan holds two procedures built once per record type:
//
//   - Materialize fills a record from a positional Cursor
//   - Bind extracts a record's column values into a ParamSink
//
// COLUMN ORDER:
//
// Materialize reads columns in three passes that the SELECT assembler
// mirrors exactly:
//
//  1. plain and inline columns, depth first, pre-order (eager and
//     subquery fields skipped)
//  2. eager joins in declaration order, each visiting the joined record
//     with all three passes
//  3. subquery fields in declaration order
//
// Paths returns that sequence. The two sides disagreeing would bind
// columns to the wrong fields.
//
// Plans are cached by type in a Cache; generation rejects inline and
// eager paths that re-enter the same field.
package marshal
