package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a canonical value.
//
// This is a sealed interface - only types in this package implement it.
type Value interface {
	value()
}

// String is a text value.
type String string

// Int is an integer value.
type Int int64

// Bool is a boolean value.
type Bool bool

// List is an ordered sequence of values.
type List []Value

// Object maps keys to values. Iterate with Keys for canonical order.
type Object map[string]Value

func (String) value() {}
func (Int) value()    {}
func (Bool) value()   {}
func (List) value()   {}
func (Object) value() {}

// Keys returns the object's keys in UTF-16 code unit order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code units, which differs from
// byte order for characters outside the Basic Multilingual Plane.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Parse decodes JSON into a Value.
//
// Numbers must be integers within int64 range. A null member of an object
// is treated as absent; null anywhere else is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse: trailing data after value")
	}
	return fromJSON(raw, "$")
}

func fromJSON(raw any, at string) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%s: null is not representable", at)
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s: %s is not an int64", at, v)
		}
		return Int(n), nil
	case []any:
		out := make(List, len(v))
		for i, elem := range v {
			val, err := fromJSON(elem, fmt.Sprintf("%s[%d]", at, i))
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(v))
		for k, elem := range v {
			if elem == nil {
				continue
			}
			val, err := fromJSON(elem, at+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: unsupported JSON value %T", at, raw)
}

// FromStruct converts v, anything encoding/json can marshal, to a Value.
func FromStruct(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return Parse(data)
}
