package marshal

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Converter turns a raw driver value into a value of type t. It handles
// every type the materializer has no direct setter for.
type Converter interface {
	Convert(src any, t reflect.Type) (reflect.Value, error)
}

// Factory allocates records and inline objects. New returns a pointer to
// a fresh value of t.
type Factory interface {
	New(t reflect.Type) reflect.Value
}

// DefaultFactory allocates with reflect.New.
type DefaultFactory struct{}

// New implements Factory.
func (DefaultFactory) New(t reflect.Type) reflect.Value {
	return reflect.New(t)
}

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// timeLayouts are tried in order when text is converted to time.Time.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DefaultConverter is a best-effort converter between driver values and
// Go types: sql.Scanner targets, numeric conversion, text to time.
type DefaultConverter struct{}

// Convert implements Converter.
func (DefaultConverter) Convert(src any, t reflect.Type) (reflect.Value, error) {
	dst := reflect.New(t)
	if src == nil {
		return dst.Elem(), nil
	}

	if scanner, ok := dst.Interface().(sql.Scanner); ok {
		if err := scanner.Scan(src); err != nil {
			return reflect.Value{}, fmt.Errorf("scan %T into %s: %w", src, t, err)
		}
		return dst.Elem(), nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(t) {
		dst.Elem().Set(sv)
		return dst.Elem(), nil
	}

	if t == timeType {
		tm, err := parseTime(src)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.Elem().Set(reflect.ValueOf(tm))
		return dst.Elem(), nil
	}

	out := dst.Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(src)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(src)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.String:
		switch v := src.(type) {
		case []byte:
			out.SetString(string(v))
		case string:
			out.SetString(v)
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", src, t)
		}
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", src, t)
		}
		switch v := src.(type) {
		case []byte:
			out.SetBytes(append([]byte(nil), v...))
		case string:
			out.SetBytes([]byte(v))
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", src, t)
		}
	default:
		if sv.Type().ConvertibleTo(t) {
			return sv.Convert(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", src, t)
	}
	return out, nil
}

func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("value %v is not integral", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot convert %T to an integer", src)
}

func toFloat64(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to a float", src)
}

func toBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("cannot convert %T to a bool", src)
}

func parseTime(src any) (time.Time, error) {
	var text string
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte:
		text = string(v)
	case string:
		text = v
	case int64:
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", src)
	}

	// time.Time.String output may carry a monotonic clock suffix.
	if i := strings.Index(text, " m="); i >= 0 {
		text = text[:i]
	}
	for _, layout := range timeLayouts {
		if tm, err := time.Parse(layout, text); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", text)
}

// DriverValue converts a Go value to a database/sql driver value.
func DriverValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if _, ok := v.(driver.Valuer); !ok {
			return DriverValue(rv.Elem().Interface())
		}
	}

	switch val := v.(type) {
	case driver.Valuer:
		return val.Value()
	case time.Time:
		return val, nil
	case []byte:
		return val, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("unsupported parameter type %T", v)
}
