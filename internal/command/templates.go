package command

import (
	"fmt"
	"reflect"

	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

// versionSlot names the parameter carrying the captured row version in
// UPDATE and DELETE filters. Column parameters are named by column, so
// the leading "$" keeps it apart from them.
const versionSlot = "$version"

type insertTemplate struct {
	plan *marshal.Plan
	stmt querysql.Statement

	// key is the database-assigned key to read back; nil when the caller
	// supplies keys.
	key *schema.Field
}

type updateTemplate struct {
	plan    *marshal.Plan
	query   *queryir.Update
	stmt    querysql.Statement
	key     *schema.Field
	version *schema.Field
}

type deleteTemplate struct {
	plan    *marshal.Plan
	query   *queryir.Delete
	stmt    querysql.Statement
	key     *schema.Field
	version *schema.Field
}

func (e *Engine) insertTemplate(t reflect.Type) (*insertTemplate, error) {
	tpl, err := e.template(t, "insert", func(p *marshal.Plan) (any, error) {
		return buildInsert(e.sh.dialect, p)
	})
	if err != nil {
		return nil, err
	}
	return tpl.(*insertTemplate), nil
}

func (e *Engine) updateTemplate(t reflect.Type) (*updateTemplate, error) {
	tpl, err := e.template(t, "update", func(p *marshal.Plan) (any, error) {
		return buildUpdate(e.sh.dialect, p)
	})
	if err != nil {
		return nil, err
	}
	return tpl.(*updateTemplate), nil
}

func (e *Engine) deleteTemplate(t reflect.Type) (*deleteTemplate, error) {
	tpl, err := e.template(t, "delete", func(p *marshal.Plan) (any, error) {
		return buildDelete(e.sh.dialect, p)
	})
	if err != nil {
		return nil, err
	}
	return tpl.(*deleteTemplate), nil
}

// buildInsert lists every bound column except a database-assigned key.
func buildInsert(d querysql.Dialect, p *marshal.Plan) (*insertTemplate, error) {
	s := p.Schema
	pk, err := s.PrimaryKey()
	if err != nil {
		return nil, err
	}

	ins := &queryir.Insert{Table: schema.RelationOf(s, "")}
	for _, f := range p.BoundFields() {
		if f.IsPrimaryKey && f.AutoIncrement {
			continue
		}
		ins.Columns = append(ins.Columns, f.DBName)
		ins.Values = append(ins.Values, queryir.Param{Name: f.DBName})
	}

	tpl := &insertTemplate{plan: p}
	if pk.AutoIncrement {
		tpl.key = pk
		if d.Keys == querysql.KeyReturning {
			ins.Returning = []string{pk.DBName}
		}
	}

	if tpl.stmt, err = d.Compile(ins); err != nil {
		return nil, err
	}
	return tpl, nil
}

// keyFilter matches one record by key, and by row version when the schema
// has one. Columns are unqualified.
func keyFilter(pk, version *schema.Field) queryir.Expr {
	var filter queryir.Expr = queryir.Compare{
		Op:    queryir.OpEq,
		Left:  queryir.Column{Name: pk.DBName},
		Right: queryir.Param{Name: pk.DBName},
	}
	if version != nil {
		filter = queryir.Conjoin(filter, queryir.Compare{
			Op:    queryir.OpEq,
			Left:  queryir.Column{Name: version.DBName},
			Right: queryir.Param{Name: versionSlot},
		})
	}
	return filter
}

// buildUpdate sets every bound column except the key.
func buildUpdate(d querysql.Dialect, p *marshal.Plan) (*updateTemplate, error) {
	s := p.Schema
	pk, err := s.PrimaryKey()
	if err != nil {
		return nil, err
	}

	upd := &queryir.Update{Table: schema.RelationOf(s, "")}
	for _, f := range p.BoundFields() {
		if f.IsPrimaryKey {
			continue
		}
		upd.Set = append(upd.Set, queryir.Assignment{Column: f.DBName, Value: queryir.Param{Name: f.DBName}})
	}
	if len(upd.Set) == 0 {
		return nil, fmt.Errorf("%s has no writable columns", s.Table)
	}
	upd.Filter = keyFilter(pk, s.RowVersion)

	stmt, err := d.Compile(upd)
	if err != nil {
		return nil, err
	}
	return &updateTemplate{plan: p, query: upd, stmt: stmt, key: pk, version: s.RowVersion}, nil
}

func buildDelete(d querysql.Dialect, p *marshal.Plan) (*deleteTemplate, error) {
	s := p.Schema
	pk, err := s.PrimaryKey()
	if err != nil {
		return nil, err
	}

	del := &queryir.Delete{Table: schema.RelationOf(s, ""), Filter: keyFilter(pk, s.RowVersion)}
	stmt, err := d.Compile(del)
	if err != nil {
		return nil, err
	}
	return &deleteTemplate{plan: p, query: del, stmt: stmt, key: pk, version: s.RowVersion}, nil
}

// versionOf reads an integer row version.
func versionOf(rec reflect.Value, f *schema.Field) int64 {
	v := rec.FieldByIndex(f.Index)
	if v.CanInt() {
		return v.Int()
	}
	return int64(v.Uint())
}

func setVersion(rec reflect.Value, f *schema.Field, n int64) {
	v := rec.FieldByIndex(f.Index)
	if v.CanInt() {
		v.SetInt(n)
		return
	}
	v.SetUint(uint64(n))
}

// keyValue returns the driver value of a record's primary key.
func keyValue(rec reflect.Value, pk *schema.Field) (any, error) {
	return marshal.DriverValue(rec.FieldByIndex(pk.Index).Interface())
}

// setKey writes a database-assigned key into the record.
func setKey(rec reflect.Value, pk *schema.Field, raw any, conv marshal.Converter) error {
	fv := rec.FieldByIndex(pk.Index)
	v, err := conv.Convert(raw, fv.Type())
	if err != nil {
		return fmt.Errorf("assign key %s: %w", pk.Name, err)
	}
	fv.Set(v)
	return nil
}
