package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult contains the structural analysis of a command.
type ValidationResult struct {
	// Valid is true when no problems were found.
	Valid bool

	// Problems lists every structural defect, in traversal order.
	Problems []string
}

// Err returns nil for a valid result and an error joining every problem
// otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New("invalid command: " + strings.Join(r.Problems, "; "))
}

// Validate checks that a command is well formed before rendering.
//
// Rules:
//  1. Relations are named (or carry a backing query)
//  2. Select projects at least one column and every join has a condition
//  3. Insert has matching column and value lists (both empty renders
//     DEFAULT VALUES)
//  4. Update sets at least one column; Update and Delete always carry a
//     filter (use an empty And for an explicit whole-table statement)
//  5. Expression operands are never nil
//
// Validate is a pure function with no side effects.
func Validate(cmd Command) ValidationResult {
	v := &validator{
		problems: []string{},
	}
	v.validateCommand(cmd)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateCommand(cmd Command) {
	switch c := cmd.(type) {
	case nil:
		v.addProblem("nil command")
	case *Select:
		v.validateSelect(c)
	case *Insert:
		v.validateTable(c.Table)
		if len(c.Columns) != len(c.Values) {
			v.addProblem("insert into %s has %d columns but %d values", c.Table.Name, len(c.Columns), len(c.Values))
		}
		for i, val := range c.Values {
			v.validateExpr(val, fmt.Sprintf("insert value %d", i))
		}
	case *Update:
		v.validateTable(c.Table)
		if len(c.Set) == 0 {
			v.addProblem("update of %s sets no columns", c.Table.Name)
		}
		for _, a := range c.Set {
			if a.Column == "" {
				v.addProblem("update of %s has an unnamed assignment", c.Table.Name)
			}
			v.validateExpr(a.Value, "assignment "+a.Column)
		}
		if c.Filter == nil {
			v.addProblem("update of %s has no filter", c.Table.Name)
		} else {
			v.validateExpr(c.Filter, "update filter")
		}
	case *Delete:
		v.validateTable(c.Table)
		if c.Filter == nil {
			v.addProblem("delete from %s has no filter", c.Table.Name)
		} else {
			v.validateExpr(c.Filter, "delete filter")
		}
	case *CreateTable:
		v.validateTable(c.Table)
		if len(c.Columns) == 0 {
			v.addProblem("table %s has no columns", c.Table.Name)
		}
		seen := make(map[string]bool, len(c.Columns))
		for _, col := range c.Columns {
			if seen[col.Name] {
				v.addProblem("table %s declares column %s twice", c.Table.Name, col.Name)
			}
			seen[col.Name] = true
		}
		for _, fk := range c.ForeignKeys {
			if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
				v.addProblem("table %s has a malformed foreign key to %s", c.Table.Name, fk.RefTable.Name)
			}
		}
	case *CreateIndex:
		if c.Name == "" {
			v.addProblem("index on %s has no name", c.Table.Name)
		}
		if len(c.Columns) == 0 {
			v.addProblem("index %s has no columns", c.Name)
		}
	default:
		v.addProblem("unknown command type: %T", cmd)
	}
}

func (v *validator) validateTable(t Table) {
	if t.Name == "" && t.Query == "" {
		v.addProblem("relation has neither a name nor a backing query")
	}
}

func (v *validator) validateSelect(s *Select) {
	v.validateTable(s.From)
	if len(s.Columns) == 0 {
		v.addProblem("select from %s projects no columns", s.From.Name)
	}
	for _, col := range s.Columns {
		v.validateExpr(col.Expr, "column "+col.Alias)
	}
	for _, j := range s.Joins {
		v.validateTable(j.Table)
		if j.On == nil {
			v.addProblem("join of %s has no condition", j.Table.Name)
			continue
		}
		v.validateExpr(j.On, "join condition")
	}
	if s.Filter != nil {
		v.validateExpr(s.Filter, "filter")
	}
	for _, o := range s.OrderBy {
		v.validateExpr(o.Expr, "order term")
	}
	if s.Limit < 0 || s.Offset < 0 {
		v.addProblem("select from %s has a negative limit or offset", s.From.Name)
	}
}

// validateExpr recursively validates an expression node.
func (v *validator) validateExpr(e Expr, where string) {
	switch x := e.(type) {
	case nil:
		v.addProblem("nil expression in %s", where)
	case Column:
		if x.Name == "" {
			v.addProblem("unnamed column in %s", where)
		}
	case Param, Literal:
	case Compare:
		v.validateExpr(x.Left, where)
		v.validateExpr(x.Right, where)
	case And:
		for _, p := range x.Predicates {
			v.validateExpr(p, where)
		}
	case Or:
		for _, p := range x.Predicates {
			v.validateExpr(p, where)
		}
	case Not:
		v.validateExpr(x.X, where)
	case Negate:
		v.validateExpr(x.X, where)
	case Arith:
		v.validateExpr(x.Left, where)
		v.validateExpr(x.Right, where)
	case In:
		v.validateExpr(x.X, where)
		if len(x.Values) == 0 {
			v.addProblem("empty IN list in %s", where)
		}
		for _, val := range x.Values {
			v.validateExpr(val, where)
		}
	case IsNull:
		v.validateExpr(x.X, where)
	case Aggregate:
		if x.Func == "" {
			v.addProblem("aggregate without a function in %s", where)
		}
		if x.Arg != nil {
			v.validateExpr(x.Arg, where)
		}
	case Subquery:
		if x.Select == nil {
			v.addProblem("empty subquery in %s", where)
			return
		}
		v.validateSelect(x.Select)
	default:
		v.addProblem("unknown expression type %T in %s", e, where)
	}
}
