package schema

import (
	"strings"
	"unicode"

	"github.com/roach88/relmap/internal/queryir"
)

// defaultTableName derives a table name from a Go type name. Generic
// instantiations are shortened to the declaring name followed by the
// argument names: "Page[example.com/demo.Customer]" becomes "PageCustomer".
func defaultTableName(typeName string) string {
	open := strings.IndexByte(typeName, '[')
	if open < 0 {
		return typeName
	}

	var b strings.Builder
	b.WriteString(typeName[:open])
	for _, part := range strings.FieldsFunc(typeName[open:], func(r rune) bool {
		return r == '[' || r == ']' || r == ','
	}) {
		part = strings.TrimSpace(part)
		if i := strings.LastIndexByte(part, '/'); i >= 0 {
			part = part[i+1:]
		}
		if i := strings.LastIndexByte(part, '.'); i >= 0 {
			part = part[i+1:]
		}
		b.WriteString(part)
	}
	return b.String()
}

// namePrefix takes the upper-case letters of name, collapsing each run of
// consecutive capitals to its first letter ("TableVAT" is "tv"). Results
// shorter than two characters fall back to the first three characters.
func namePrefix(name string) string {
	var b strings.Builder
	prevUpper := false
	for _, r := range name {
		upper := unicode.IsUpper(r)
		if upper && !prevUpper {
			b.WriteRune(unicode.ToLower(r))
		}
		prevUpper = upper
	}

	if b.Len() >= 2 {
		return b.String()
	}

	runes := []rune(name)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToLower(string(runes))
}

// RootAlias is the alias of a schema's own relation in a SELECT.
func RootAlias(s *Schema) string {
	if s.Prefix != "" {
		return s.Prefix
	}
	return strings.ToLower(s.Table)
}

// JoinAlias is the alias of the relation joined through an eager field.
func JoinAlias(parent string, f *Field) string {
	return parent + "_" + strings.ToLower(f.DBName)
}

// RelationOf returns the queryir relation for a schema under alias.
func RelationOf(s *Schema, alias string) queryir.Table {
	return queryir.Table{Name: s.Table, Schema: s.SchemaName, Alias: alias, Query: s.Query}
}

// foreignKeyName derives the column name of an eager or reference field:
// the field name with an "ID" suffix unless it already ends in one.
func foreignKeyName(name string) string {
	if strings.HasSuffix(name, "ID") || strings.HasSuffix(name, "Id") {
		return name
	}
	return name + "ID"
}
