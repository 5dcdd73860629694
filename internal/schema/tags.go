package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// TagKey is the struct tag key read by the reflector.
const TagKey = "orm"

// tagSet is a parsed `orm:"k=v;flag"` annotation. Flags map to "".
type tagSet map[string]string

var knownTags = map[string]bool{
	"-": true, "column": true, "name": true, "schema": true, "prefix": true,
	"manualkey": true, "query": true, "pk": true, "rowversion": true,
	"readonly": true, "length": true, "precision": true, "notnull": true,
	"trim": true, "default": true, "type": true, "fk": true, "eager": true,
	"inline": true, "subquery": true, "fields": true, "include": true,
	"unique": true,
}

// parseTag splits an annotation into its entries. Values may contain '='
// (defaults, raw definitions, backing queries); only the first '=' splits.
func parseTag(field reflect.StructField) (tagSet, error) {
	raw, ok := field.Tag.Lookup(TagKey)
	if !ok {
		return tagSet{}, nil
	}

	tags := make(tagSet)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !knownTags[key] {
			return nil, structural(ErrCodeInvalidTag, "", field.Name, "unknown tag key %q", key)
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}

func (t tagSet) has(key string) bool {
	_, ok := t[key]
	return ok
}

func (t tagSet) get(key string) string {
	return t[key]
}

// list returns a comma separated value as trimmed non-empty entries.
func (t tagSet) list(key string) []string {
	var out []string
	for _, v := range strings.Split(t[key], ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// number returns a non-negative integer value, 0 when the key is absent.
func (t tagSet) number(key string) (int, error) {
	v, ok := t[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, structural(ErrCodeInvalidTag, "", "", "%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
