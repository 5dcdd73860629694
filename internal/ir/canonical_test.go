package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative", Int(-7), "-7"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"list", List{Int(1), String("a"), Bool(false)}, `[1,"a",false]`},
		{"sorted keys", Object{"zebra": Int(1), "alpha": Int(2)}, `{"alpha":2,"zebra":1}`},
		{"nested", Object{"z": Object{"b": Int(1), "a": Int(2)}, "a": List{}}, `{"a":[],"z":{"a":2,"b":1}}`},
		{"no html escape", String("<a & b>"), `"<a & b>"`},
		{"escapes", String("q\"b\\n\n\t\x01"), `"q\"b\\n\n\t\u0001"`},
		{"line separator kept", String("a\u2028b"), "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before
	// U+FF5E in UTF-16 but after it in UTF-8.
	obj := Object{"～": Int(1), "\U0001F600": Int(2)}

	got, err := Canonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"～\":1}", string(got))
}

func TestCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := Canonical(Object{decomposed: String(decomposed)})
	require.NoError(t, err)
	b, err := Canonical(Object{composed: String(composed)})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestCanonical_RejectsNil(t *testing.T) {
	_, err := Canonical(List{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[0]")
}

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"b":[1,true,"x"],"a":{"n":-3},"gone":null}`))
	require.NoError(t, err)
	assert.Equal(t, Object{
		"a": Object{"n": Int(-3)},
		"b": List{Int(1), Bool(true), String("x")},
	}, v)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"float", `{"a":1.5}`, "$.a: 1.5 is not an int64"},
		{"null in list", `[1,null]`, "$[1]: null is not representable"},
		{"top-level null", `null`, "$: null is not representable"},
		{"overflow", `[99999999999999999999]`, "is not an int64"},
		{"syntax", `{`, "parse:"},
		{"trailing", `1 2`, "trailing data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromStruct(t *testing.T) {
	type column struct {
		Name    string  `json:"name"`
		Length  int     `json:"length,omitempty"`
		Default *string `json:"default"`
	}

	v, err := FromStruct([]column{{Name: "ID"}, {Name: "Name", Length: 12}})
	require.NoError(t, err)
	assert.Equal(t, List{
		Object{"name": String("ID")},
		Object{"name": String("Name"), "length": Int(12)},
	}, v)
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "a", "b"}, Object{"b": Int(0), "a": Int(0), "B": Int(0), "A": Int(0)}.Keys())
	assert.Empty(t, Object{}.Keys())
}
