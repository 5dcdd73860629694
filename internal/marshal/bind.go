package marshal

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

// bindStep emits one column value.
type bindStep func(rec reflect.Value, sink ParamSink) error

// binder generates bind steps for the columns of s in depth-first order:
// plain columns, foreign keys of eager and reference fields. Read-only
// fields are skipped except the primary key; subquery fields never bind.
func (g *generator) binder(p *Plan, s *schema.Schema, acc accessor) error {
	for _, f := range s.Fields {
		switch {
		case f.IsInline:
			if err := g.binder(p, f.InlineSchema, acc.into(f.Index)); err != nil {
				return err
			}
		case !f.IsColumn:
		case f.IsReadOnly && !f.IsPrimaryKey:
		default:
			step, err := g.bindField(f, acc.into(f.Index))
			if err != nil {
				return err
			}
			p.binds = append(p.binds, step)
			p.fields = append(p.fields, f)
		}
	}
	return nil
}

func (g *generator) bindField(f *schema.Field, acc accessor) (bindStep, error) {
	var value func(fv reflect.Value) (any, error)

	switch {
	case f.IsReference:
		value = func(fv reflect.Value) (any, error) {
			if id := schema.KeyOf(fv); id != 0 {
				return id, nil
			}
			return nil, nil
		}

	case f.IsEager:
		foreign, err := g.reg.Foreign(f)
		if err != nil {
			return nil, fmt.Errorf("eager field %s: %w", f.Path, err)
		}
		pk, err := foreign.PrimaryKey()
		if err != nil {
			return nil, fmt.Errorf("eager field %s: %w", f.Path, err)
		}
		value = func(fv reflect.Value) (any, error) {
			if fv.IsNil() {
				return nil, nil
			}
			key := fv.Elem().FieldByIndex(pk.Index)
			if key.IsZero() {
				return nil, nil
			}
			return DriverValue(key.Interface())
		}

	case f.Length > 0 && f.DBType == queryir.TypeString && reflectKind(f.Type) == reflect.String:
		limit, trim, path := f.Length, f.Trim, f.Path
		value = func(fv reflect.Value) (any, error) {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					return nil, nil
				}
				fv = fv.Elem()
			}
			s := fv.String()
			if utf8.RuneCountInString(s) <= limit {
				return s, nil
			}
			runes := []rune(s)
			if trim {
				return string(runes[:limit]), nil
			}
			return nil, newLengthError(path, limit, runes)
		}

	default:
		value = func(fv reflect.Value) (any, error) {
			return DriverValue(fv.Interface())
		}
	}

	name, path := f.DBName, f.Path
	return func(rec reflect.Value, sink ParamSink) error {
		fv, ok := acc.resolve(rec, nil)
		if !ok {
			// A nil inline container binds its columns as NULL.
			sink.Add(name, nil)
			return nil
		}
		v, err := value(fv)
		if err != nil {
			return fmt.Errorf("bind %s: %w", path, err)
		}
		sink.Add(name, v)
		return nil
	}, nil
}

func reflectKind(t reflect.Type) reflect.Kind {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind()
	}
	return t.Kind()
}
