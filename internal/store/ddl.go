package store

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

// TableCommands builds the CREATE TABLE of s and one CREATE INDEX per
// declared index.
//
// Columns are NOT NULL only when declared so (or when they are the key or
// row version): children of a pointer inline may be absent as a group.
func TableCommands(reg *schema.Registry, s *schema.Schema) (*queryir.CreateTable, []*queryir.CreateIndex, error) {
	if s.Query != "" {
		return nil, nil, fmt.Errorf("%s is backed by a query and has no table", s.Type)
	}
	if _, err := s.PrimaryKey(); err != nil {
		return nil, nil, err
	}

	table := schema.RelationOf(s, "")
	ct := &queryir.CreateTable{Table: table, IfNotExists: true}
	for _, f := range s.Columns() {
		col, err := columnDef(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", s.Table, f.Path, err)
		}
		ct.Columns = append(ct.Columns, col)

		if !f.IsForeignKey {
			continue
		}
		fk, ok, err := foreignKey(reg, f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", s.Table, f.Path, err)
		}
		if ok {
			ct.ForeignKeys = append(ct.ForeignKeys, fk)
		}
	}

	indexes := make([]*queryir.CreateIndex, 0, len(s.Indices))
	for _, idx := range s.Indices {
		indexes = append(indexes, &queryir.CreateIndex{
			Name:        idx.Name,
			Table:       table,
			Unique:      idx.Unique,
			Columns:     columnNames(idx.Fields),
			Include:     columnNames(idx.Include),
			IfNotExists: true,
		})
	}
	return ct, indexes, nil
}

func columnDef(f *schema.Field) (queryir.ColumnDef, error) {
	col := queryir.ColumnDef{
		Name:          f.DBName,
		Type:          f.DBType,
		Length:        f.Length,
		Precision:     f.Precision,
		Scale:         f.Scale,
		Definition:    f.Definition,
		NotNull:       f.NotNull,
		PrimaryKey:    f.IsPrimaryKey,
		AutoIncrement: f.AutoIncrement,
	}
	if f.Default != nil {
		lit, err := defaultLiteral(f.DBType, *f.Default)
		if err != nil {
			return queryir.ColumnDef{}, err
		}
		col.Default = lit
	}
	return col, nil
}

// defaultLiteral converts declared default text to a literal of the
// column's type. Every type goes through the same parse, so "1" and
// "true" are both valid bit defaults.
func defaultLiteral(dt queryir.DataType, text string) (queryir.Literal, error) {
	switch {
	case strings.EqualFold(text, "null"):
		return queryir.Literal{}, nil
	case dt == queryir.TypeBit:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return queryir.Literal{}, fmt.Errorf("default %q is not a boolean", text)
		}
		return queryir.Literal{Value: b}, nil
	case dt.IsInteger():
		n, err := strconv.ParseInt(text, 10, dt.Width())
		if err != nil {
			return queryir.Literal{}, fmt.Errorf("default %q is not a %d-bit integer", text, dt.Width())
		}
		return queryir.Literal{Value: n}, nil
	case dt == queryir.TypeFloat32 || dt == queryir.TypeFloat64:
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return queryir.Literal{}, fmt.Errorf("default %q is not a number", text)
		}
		return queryir.Literal{Value: x}, nil
	}
	return queryir.Literal{Value: text}, nil
}

// foreignKey builds the constraint of an eager or reference column. A
// target backed by a query has no table to reference.
func foreignKey(reg *schema.Registry, f *schema.Field) (queryir.ForeignKey, bool, error) {
	target, err := reg.Foreign(f)
	if err != nil {
		return queryir.ForeignKey{}, false, err
	}
	if target.Query != "" {
		return queryir.ForeignKey{}, false, nil
	}
	pk, err := target.PrimaryKey()
	if err != nil {
		return queryir.ForeignKey{}, false, err
	}

	fk := queryir.ForeignKey{
		Columns:    []string{f.DBName},
		RefTable:   schema.RelationOf(target, ""),
		RefColumns: []string{pk.DBName},
	}
	switch {
	case f.CascadeOnDelete:
		fk.OnDelete = queryir.OnDeleteCascade
	case f.SetNullOnDelete:
		fk.OnDelete = queryir.OnDeleteSetNull
	}
	return fk, true, nil
}

func columnNames(fields []*schema.Field) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.DBName
	}
	return out
}

// DependencyOrder returns schemas ordered so that every table follows the
// tables its foreign keys reference. Referenced schemas missing from the
// input are added. Self references are ignored; a longer cycle is an
// error naming its path.
func DependencyOrder(reg *schema.Registry, schemas []*schema.Schema) ([]*schema.Schema, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*schema.Schema]int)
	var (
		out   []*schema.Schema
		stack []string
	)

	var visit func(s *schema.Schema) error
	visit = func(s *schema.Schema) error {
		switch state[s] {
		case done:
			return nil
		case visiting:
			start := slices.Index(stack, s.Table)
			path := append(slices.Clone(stack[start:]), s.Table)
			return fmt.Errorf("foreign keys form a cycle: %s", strings.Join(path, " -> "))
		}
		state[s] = visiting
		stack = append(stack, s.Table)

		for _, f := range s.Columns() {
			if !f.IsForeignKey {
				continue
			}
			target, err := reg.Foreign(f)
			if err != nil {
				return err
			}
			if target == s || target.Query != "" {
				continue
			}
			if err := visit(target); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[s] = done
		if s.Query == "" {
			out = append(out, s)
		}
		return nil
	}

	for _, s := range schemas {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Script renders the CREATE TABLE and CREATE INDEX statements for types,
// and the tables they reference, in dependency order. Query-backed types
// contribute nothing.
func Script(reg *schema.Registry, d querysql.Dialect, types ...reflect.Type) ([]string, error) {
	ordered, err := orderedSchemas(reg, types)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, sc := range ordered {
		ct, indexes, err := TableCommands(reg, sc)
		if err != nil {
			return nil, err
		}
		cmds := []queryir.Command{ct}
		for _, idx := range indexes {
			cmds = append(cmds, idx)
		}
		for _, cmd := range cmds {
			stmt, err := d.Compile(cmd)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sc.Table, err)
			}
			out = append(out, stmt.SQL)
		}
	}
	return out, nil
}

func orderedSchemas(reg *schema.Registry, types []reflect.Type) ([]*schema.Schema, error) {
	schemas := make([]*schema.Schema, 0, len(types))
	for _, t := range types {
		sc, err := reg.Of(t)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, sc)
	}
	return DependencyOrder(reg, schemas)
}
