package marshal

import (
	"fmt"
	"reflect"
)

// readStep fills part of a record from the current row.
type readStep func(rec reflect.Value, cur Cursor, e *env) error

// setter assigns a non-NULL raw value to a field.
type setter func(fv reflect.Value, raw any, conv Converter) error

// columnStep reads one plain or subquery column. NULL writes the zero
// value, which keeps absence for pointer, slice and Null types; a nil
// inline container is only allocated for a non-NULL value.
func columnStep(acc accessor, pos int, path string, set setter) readStep {
	return func(rec reflect.Value, cur Cursor, e *env) error {
		raw := cur.Value(pos)
		if raw == nil {
			if fv, ok := acc.resolve(rec, nil); ok {
				fv.SetZero()
			}
			return nil
		}
		fv, _ := acc.resolve(rec, e.fac)
		if err := set(fv, raw, e.conv); err != nil {
			return fmt.Errorf("materialize %s: %w", path, err)
		}
		return nil
	}
}

// referenceStep reads a foreign key into a schema.Ref. NULL is key 0.
func referenceStep(acc accessor, pos int, path string) readStep {
	return func(rec reflect.Value, cur Cursor, e *env) error {
		raw := cur.Value(pos)
		if raw == nil {
			if fv, ok := acc.resolve(rec, nil); ok {
				fv.SetZero()
			}
			return nil
		}
		id, err := toInt64(raw)
		if err != nil {
			return fmt.Errorf("materialize %s: %w", path, err)
		}
		fv, _ := acc.resolve(rec, e.fac)
		fv.Field(0).SetInt(id)
		return nil
	}
}

// eagerStep materializes a joined record. A NULL joined key means the join
// found no row and the field is left untouched.
func eagerStep(acc accessor, keyPos int, elem reflect.Type, nested []readStep) readStep {
	return func(rec reflect.Value, cur Cursor, e *env) error {
		if cur.Value(keyPos) == nil {
			return nil
		}
		fv, _ := acc.resolve(rec, e.fac)
		if fv.IsNil() {
			fv.Set(e.fac.New(elem))
		}
		child := fv.Elem()
		for _, step := range nested {
			if err := step(child, cur, e); err != nil {
				return err
			}
		}
		return nil
	}
}

// setterFor picks the direct setter for t. Types without a primitive
// mapping go through the Converter.
func setterFor(t reflect.Type) setter {
	if reflect.PointerTo(t).Implements(scannerType) || t == timeType {
		return convertSetter
	}

	switch t.Kind() {
	case reflect.Pointer:
		inner := setterFor(t.Elem())
		return func(fv reflect.Value, raw any, conv Converter) error {
			nv := reflect.New(t.Elem())
			if err := inner(nv.Elem(), raw, conv); err != nil {
				return err
			}
			fv.Set(nv)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(fv reflect.Value, raw any, conv Converter) error {
			if n, ok := raw.(int64); ok && !fv.OverflowInt(n) {
				fv.SetInt(n)
				return nil
			}
			return convertSetter(fv, raw, conv)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(fv reflect.Value, raw any, conv Converter) error {
			if n, ok := raw.(int64); ok && n >= 0 && !fv.OverflowUint(uint64(n)) {
				fv.SetUint(uint64(n))
				return nil
			}
			return convertSetter(fv, raw, conv)
		}
	case reflect.Float32, reflect.Float64:
		return func(fv reflect.Value, raw any, conv Converter) error {
			if f, ok := raw.(float64); ok {
				fv.SetFloat(f)
				return nil
			}
			return convertSetter(fv, raw, conv)
		}
	case reflect.Bool:
		return func(fv reflect.Value, raw any, conv Converter) error {
			switch v := raw.(type) {
			case bool:
				fv.SetBool(v)
				return nil
			case int64:
				fv.SetBool(v != 0)
				return nil
			}
			return convertSetter(fv, raw, conv)
		}
	case reflect.String:
		return func(fv reflect.Value, raw any, conv Converter) error {
			switch v := raw.(type) {
			case string:
				fv.SetString(v)
				return nil
			case []byte:
				fv.SetString(string(v))
				return nil
			}
			return convertSetter(fv, raw, conv)
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return func(fv reflect.Value, raw any, conv Converter) error {
				if b, ok := raw.([]byte); ok {
					fv.SetBytes(append([]byte(nil), b...))
					return nil
				}
				return convertSetter(fv, raw, conv)
			}
		}
	}
	return convertSetter
}

func convertSetter(fv reflect.Value, raw any, conv Converter) error {
	v, err := conv.Convert(raw, fv.Type())
	if err != nil {
		return err
	}
	fv.Set(v)
	return nil
}
