package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/relmap/internal/queryir"
)

// Statement is rendered SQL plus its positional arguments.
//
// Slots[i] is non-empty when argument i is a template slot; Args[i] is then
// nil until Bind supplies it.
type Statement struct {
	SQL   string
	Args  []any
	Slots []string
}

// Bind returns the argument list with every slot resolved through lookup.
// A slot lookup cannot resolve is an error.
func (s Statement) Bind(lookup func(name string) (any, bool)) ([]any, error) {
	args := make([]any, len(s.Args))
	copy(args, s.Args)
	for i, slot := range s.Slots {
		if slot == "" {
			continue
		}
		v, ok := lookup(slot)
		if !ok {
			return nil, fmt.Errorf("unbound parameter %q", slot)
		}
		args[i] = v
	}
	return args, nil
}

// Compile converts a queryir command to parameterized SQL.
//
// CRITICAL: user values are always parameterized, never interpolated. Only
// Literal nodes (engine-chosen constants) are rendered inline.
func (d Dialect) Compile(cmd queryir.Command) (Statement, error) {
	if result := queryir.Validate(cmd); !result.Valid {
		return Statement{}, result.Err()
	}

	c := &compiler{d: d}
	var err error
	switch q := cmd.(type) {
	case *queryir.Select:
		err = c.compileSelect(q)
	case *queryir.Insert:
		err = c.compileInsert(q)
	case *queryir.Update:
		err = c.compileUpdate(q)
	case *queryir.Delete:
		err = c.compileDelete(q)
	case *queryir.CreateTable:
		err = c.compileCreateTable(q)
	case *queryir.CreateIndex:
		c.compileCreateIndex(q)
	default:
		err = fmt.Errorf("unsupported command type: %T", cmd)
	}
	if err != nil {
		return Statement{}, err
	}

	return Statement{SQL: c.sb.String(), Args: c.args, Slots: c.slots}, nil
}

// compiler accumulates text and arguments for one statement.
type compiler struct {
	d     Dialect
	sb    strings.Builder
	args  []any
	slots []string
}

func (c *compiler) write(parts ...string) {
	for _, p := range parts {
		c.sb.WriteString(p)
	}
}

func (c *compiler) param(p queryir.Param) {
	c.args = append(c.args, p.Value)
	c.slots = append(c.slots, p.Name)
	c.write(c.d.Placeholder(len(c.args)))
}

func (c *compiler) relation(t queryir.Table) {
	if t.Query != "" {
		c.write("(", t.Query, ")")
	} else {
		c.write(c.d.TableName(t))
	}
	if t.Alias != "" {
		c.write(" AS ", c.d.Quote(t.Alias))
	}
}

func (c *compiler) compileSelect(s *queryir.Select) error {
	c.write("SELECT ")
	for i, col := range s.Columns {
		if i > 0 {
			c.write(", ")
		}
		if err := c.expr(col.Expr); err != nil {
			return fmt.Errorf("column %s: %w", col.Alias, err)
		}
		if col.Alias != "" {
			c.write(" AS ", c.d.Quote(col.Alias))
		}
	}

	c.write(" FROM ")
	c.relation(s.From)

	for _, j := range s.Joins {
		switch j.Kind {
		case queryir.InnerJoin:
			c.write(" INNER JOIN ")
		default:
			c.write(" LEFT JOIN ")
		}
		c.relation(j.Table)
		c.write(" ON ")
		if err := c.expr(j.On); err != nil {
			return fmt.Errorf("join %s: %w", j.Table.Alias, err)
		}
	}

	if err := c.where(s.Filter); err != nil {
		return err
	}

	if len(s.OrderBy) > 0 {
		c.write(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				c.write(", ")
			}
			if err := c.expr(o.Expr); err != nil {
				return fmt.Errorf("order by: %w", err)
			}
			if o.Desc {
				c.write(" DESC")
			} else {
				c.write(" ASC")
			}
		}
	}

	switch {
	case s.Limit > 0:
		c.write(" LIMIT ", strconv.Itoa(s.Limit))
	case s.Offset > 0:
		c.write(" LIMIT ", c.d.NoLimit)
	}
	if s.Offset > 0 {
		c.write(" OFFSET ", strconv.Itoa(s.Offset))
	}
	return nil
}

func (c *compiler) compileInsert(ins *queryir.Insert) error {
	c.write("INSERT INTO ", c.d.TableName(ins.Table))
	if len(ins.Columns) == 0 {
		c.write(" DEFAULT VALUES")
	} else {
		c.write(" (")
		for i, col := range ins.Columns {
			if i > 0 {
				c.write(", ")
			}
			c.write(c.d.Quote(col))
		}
		c.write(") VALUES (")
		for i, v := range ins.Values {
			if i > 0 {
				c.write(", ")
			}
			if err := c.expr(v); err != nil {
				return fmt.Errorf("insert value %s: %w", ins.Columns[i], err)
			}
		}
		c.write(")")
	}

	if len(ins.Returning) > 0 {
		if c.d.Keys != KeyReturning {
			return fmt.Errorf("dialect %s does not support RETURNING", c.d.Name)
		}
		c.write(" RETURNING ")
		for i, col := range ins.Returning {
			if i > 0 {
				c.write(", ")
			}
			c.write(c.d.Quote(col))
		}
	}
	return nil
}

func (c *compiler) compileUpdate(u *queryir.Update) error {
	c.write("UPDATE ", c.d.TableName(u.Table), " SET ")
	for i, a := range u.Set {
		if i > 0 {
			c.write(", ")
		}
		c.write(c.d.Quote(a.Column), " = ")
		if err := c.expr(a.Value); err != nil {
			return fmt.Errorf("assignment %s: %w", a.Column, err)
		}
	}
	return c.where(u.Filter)
}

func (c *compiler) compileDelete(del *queryir.Delete) error {
	c.write("DELETE FROM ", c.d.TableName(del.Table))
	return c.where(del.Filter)
}

// where renders a WHERE clause. An empty And (explicit whole-table filter)
// renders nothing.
func (c *compiler) where(filter queryir.Expr) error {
	if filter == nil {
		return nil
	}
	if and, ok := filter.(queryir.And); ok && len(and.Predicates) == 0 {
		return nil
	}
	c.write(" WHERE ")
	if err := c.expr(filter); err != nil {
		return fmt.Errorf("compile filter: %w", err)
	}
	return nil
}

// expr renders an expression node.
func (c *compiler) expr(e queryir.Expr) error {
	switch x := e.(type) {
	case queryir.Column:
		if x.Table != "" {
			c.write(c.d.Quote(x.Table), ".")
		}
		c.write(c.d.Quote(x.Name))
	case queryir.Param:
		c.param(x)
	case queryir.Literal:
		text, err := c.d.Literal(x.Value)
		if err != nil {
			return err
		}
		c.write(text)
	case queryir.Compare:
		if err := c.operand(x.Left); err != nil {
			return err
		}
		c.write(" ", string(x.Op), " ")
		return c.operand(x.Right)
	case queryir.And:
		return c.junction(x.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.junction(x.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		c.write("NOT (")
		if err := c.expr(x.X); err != nil {
			return err
		}
		c.write(")")
	case queryir.Negate:
		c.write("-")
		return c.operand(x.X)
	case queryir.Arith:
		c.write("(")
		if err := c.operand(x.Left); err != nil {
			return err
		}
		c.write(" ", string(x.Op), " ")
		if err := c.operand(x.Right); err != nil {
			return err
		}
		c.write(")")
	case queryir.In:
		if err := c.operand(x.X); err != nil {
			return err
		}
		c.write(" IN (")
		for i, v := range x.Values {
			if i > 0 {
				c.write(", ")
			}
			if err := c.expr(v); err != nil {
				return err
			}
		}
		c.write(")")
	case queryir.IsNull:
		if err := c.operand(x.X); err != nil {
			return err
		}
		if x.Negated {
			c.write(" IS NOT NULL")
		} else {
			c.write(" IS NULL")
		}
	case queryir.Aggregate:
		c.write(strings.ToUpper(x.Func), "(")
		if x.Arg == nil {
			c.write("*")
		} else if err := c.expr(x.Arg); err != nil {
			return err
		}
		c.write(")")
	case queryir.Subquery:
		c.write("(")
		if err := c.compileSelect(x.Select); err != nil {
			return fmt.Errorf("subquery: %w", err)
		}
		c.write(")")
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
	return nil
}

// operand renders an expression used inside a comparison, wrapping boolean
// connectives so precedence is explicit.
func (c *compiler) operand(e queryir.Expr) error {
	switch e.(type) {
	case queryir.And, queryir.Or, queryir.Compare, queryir.IsNull, queryir.In:
		c.write("(")
		if err := c.expr(e); err != nil {
			return err
		}
		c.write(")")
		return nil
	}
	return c.expr(e)
}

func (c *compiler) junction(preds []queryir.Expr, sep, empty string) error {
	if len(preds) == 0 {
		c.write(empty)
		return nil
	}
	for i, p := range preds {
		if i > 0 {
			c.write(sep)
		}
		_, and := p.(queryir.And)
		_, or := p.(queryir.Or)
		if and || or {
			c.write("(")
			if err := c.expr(p); err != nil {
				return err
			}
			c.write(")")
			continue
		}
		if err := c.expr(p); err != nil {
			return err
		}
	}
	return nil
}

// Literal renders an engine-chosen constant inline.
func (d Dialect) Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case time.Time:
		return "'" + val.Format(TimeLayout) + "'", nil
	default:
		return "", fmt.Errorf("unsupported literal type: %T", v)
	}
}

// TimeLayout is the text layout used for timestamp literals.
const TimeLayout = "2006-01-02 15:04:05.999999999-07:00"
