package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Canonical returns the canonical JSON encoding of v.
//
// Rules:
//  1. Object keys sorted by UTF-16 code units
//  2. Strings (keys included) NFC-normalized
//  3. Only '"', '\\' and control characters are escaped; no HTML escaping
//  4. No whitespace between tokens
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch x := v.(type) {
	case String:
		encodeString(buf, string(x))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(x)))
	case List:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range x.normalizedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k.norm)
			buf.WriteByte(':')
			if err := encode(buf, x[k.raw]); err != nil {
				return fmt.Errorf("%q: %w", k.raw, err)
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("nil value")
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

type objectKey struct {
	raw  string
	norm string
}

// normalizedKeys sorts by the normalized form, which is what is written.
func (o Object) normalizedKeys() []objectKey {
	keys := make([]objectKey, 0, len(o))
	for _, k := range o.Keys() {
		keys = append(keys, objectKey{raw: k, norm: norm.NFC.String(k)})
	}
	slices.SortStableFunc(keys, func(a, b objectKey) int {
		return compareUTF16(a.norm, b.norm)
	})
	return keys
}

const hexDigits = "0123456789abcdef"

func encodeString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xf])
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
