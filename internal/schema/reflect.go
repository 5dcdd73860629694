package schema

import (
	"database/sql"
	"errors"
	"reflect"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/roach88/relmap/internal/queryir"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	uuidType    = reflect.TypeFor[uuid.UUID]()
	decimalType = reflect.TypeFor[apd.Decimal]()
	intType     = reflect.TypeFor[int]()

	nullTypes = map[reflect.Type]queryir.DataType{
		reflect.TypeFor[sql.NullBool]():    queryir.TypeBit,
		reflect.TypeFor[sql.NullByte]():    queryir.TypeInt8,
		reflect.TypeFor[sql.NullInt16]():   queryir.TypeInt16,
		reflect.TypeFor[sql.NullInt32]():   queryir.TypeInt32,
		reflect.TypeFor[sql.NullInt64]():   queryir.TypeInt64,
		reflect.TypeFor[sql.NullFloat64](): queryir.TypeFloat64,
		reflect.TypeFor[sql.NullString]():  queryir.TypeString,
		reflect.TypeFor[sql.NullTime]():    queryir.TypeDateTime,
	}
)

// IsScalar reports whether t maps to a single column without being
// treated as an inline struct.
func IsScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if _, ok := nullTypes[t]; ok {
		return true
	}
	return t == timeType || t == uuidType || t == decimalType
}

// InferType maps a Go type to its column type. nullable reports whether
// the Go type can represent an absent value.
func InferType(t reflect.Type) (dt queryir.DataType, nullable bool, ok bool) {
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	if dt, found := nullTypes[t]; found {
		return dt, true, true
	}

	switch t {
	case timeType:
		return queryir.TypeDateTime, nullable, true
	case uuidType:
		return queryir.TypeGUID, nullable, true
	case decimalType:
		return queryir.TypeDecimal, nullable, true
	}

	switch t.Kind() {
	case reflect.Bool:
		return queryir.TypeBit, nullable, true
	case reflect.Int:
		// Named types over int are enumerations.
		if t == intType {
			return queryir.TypeInt64, nullable, true
		}
		return queryir.TypeInt32, nullable, true
	case reflect.Int8, reflect.Uint8:
		return queryir.TypeInt8, nullable, true
	case reflect.Int16, reflect.Uint16:
		return queryir.TypeInt16, nullable, true
	case reflect.Int32, reflect.Uint32:
		return queryir.TypeInt32, nullable, true
	case reflect.Int64, reflect.Uint64, reflect.Uint:
		return queryir.TypeInt64, nullable, true
	case reflect.Float32:
		return queryir.TypeFloat32, nullable, true
	case reflect.Float64:
		return queryir.TypeFloat64, nullable, true
	case reflect.String:
		return queryir.TypeString, nullable, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return queryir.TypeBinary, true, true
		}
	}
	return queryir.TypeUnknown, false, false
}

// level is one step of an embedding chain: a struct type and its index
// path from the outermost struct.
type level struct {
	t     reflect.Type
	index []int
}

// levels returns the embedding chain of t, base levels first. Anonymous
// embedded structs are the base levels, in declaration order.
func levels(t reflect.Type, prefix []int) []level {
	var out []level
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if isLevel(sf) {
			out = append(out, levels(sf.Type, append(slices.Clone(prefix), i))...)
		}
	}
	return append(out, level{t: t, index: prefix})
}

func isLevel(sf reflect.StructField) bool {
	if !sf.Anonymous || sf.Type.Kind() != reflect.Struct {
		return false
	}
	if sf.Type == tableMarkerType || sf.Type == indexMarkerType || IsScalar(sf.Type) {
		return false
	}
	_, isRef := RefTarget(sf.Type)
	return !isRef && sf.Tag.Get(TagKey) != "-"
}

// builder builds one top-level schema, including its inline children.
type builder struct {
	root  reflect.Type
	stack []FieldKey
	names []string
}

func (b *builder) typeName() string {
	return b.root.String()
}

func (b *builder) fail(err error, path string) error {
	var se *StructuralError
	if errors.As(err, &se) {
		se.Type = b.typeName()
		if path != "" {
			se.Path = path
		}
	}
	return err
}

// build reflects t. parent and inlining are nil for a top-level schema.
func (b *builder) build(t reflect.Type, parent *Schema, inlining *Field, colPrefix, pathPrefix string) (*Schema, error) {
	s := &Schema{
		Type:          t,
		InliningField: inlining,
		byName:        make(map[string]*Field),
	}
	chain := levels(t, nil)

	// Pass 1: table-level markers, base first so derived levels override.
	if parent == nil {
		if err := b.applyTableMarkers(s, chain); err != nil {
			return nil, err
		}
	} else {
		s.Table = parent.Table
		s.SchemaName = parent.SchemaName
		s.Prefix = inlining.InlinePrefix
		if parent.Prefix != "" {
			s.Prefix = parent.Prefix + "_" + inlining.InlinePrefix
		}
	}

	// Pass 2: fields, base first; a hidden field keeps the base position.
	for _, lv := range chain {
		for i := 0; i < lv.t.NumField(); i++ {
			sf := lv.t.Field(i)
			if sf.Type == tableMarkerType || sf.Type == indexMarkerType || isLevel(sf) {
				continue
			}
			if sf.Anonymous && sf.Type.Kind() == reflect.Pointer {
				return nil, structural(ErrCodeInvalidField, b.typeName(), joinPath(pathPrefix, sf.Name),
					"embedded pointer structs are not supported")
			}
			if !sf.IsExported() {
				continue
			}

			tags, err := parseTag(sf)
			if err != nil {
				return nil, b.fail(err, joinPath(pathPrefix, sf.Name))
			}
			if tags.has("-") {
				continue
			}

			f, err := b.field(s, sf, tags, append(slices.Clone(lv.index), i), FieldKey{Owner: lv.t, Index: i}, colPrefix, pathPrefix)
			if err != nil {
				return nil, err
			}

			if existing, ok := s.byName[f.Name]; ok {
				f.ID = existing.ID
				s.Fields[existing.ID] = f
			} else {
				f.ID = len(s.Fields)
				s.Fields = append(s.Fields, f)
			}
			s.byName[f.Name] = f
		}
	}

	if parent != nil {
		for _, f := range s.Fields {
			if f.IsPrimaryKey || f.IsRowVersion {
				return nil, structural(ErrCodeInvalidField, b.typeName(), f.Name, "pk and rowversion are not allowed inside an inline field")
			}
		}
		s.pkErr = structural(ErrCodeMissingPrimaryKey, b.typeName(), "", "inline schemas have no primary key")
		return s, nil
	}

	if err := b.resolveKeys(s); err != nil {
		return nil, err
	}

	// Pass 3: index markers.
	for _, lv := range chain {
		for i := 0; i < lv.t.NumField(); i++ {
			sf := lv.t.Field(i)
			if sf.Type != indexMarkerType {
				continue
			}
			tags, err := parseTag(sf)
			if err != nil {
				return nil, b.fail(err, "")
			}
			idx, err := b.index(s, tags)
			if err != nil {
				return nil, err
			}
			replaced := false
			for j, existing := range s.Indices {
				if existing.Name == idx.Name {
					s.Indices[j] = idx
					replaced = true
					break
				}
			}
			if !replaced {
				s.Indices = append(s.Indices, idx)
			}
		}
	}

	return s, nil
}

func (b *builder) applyTableMarkers(s *Schema, chain []level) error {
	s.Table = defaultTableName(b.root.Name())
	prefix, hasPrefix := "", false

	for _, lv := range chain {
		for i := 0; i < lv.t.NumField(); i++ {
			sf := lv.t.Field(i)
			if sf.Type != tableMarkerType {
				continue
			}
			tags, err := parseTag(sf)
			if err != nil {
				return b.fail(err, "")
			}
			s.Mapped = true
			if v := tags.get("name"); v != "" {
				s.Table = v
			}
			if v := tags.get("schema"); v != "" {
				s.SchemaName = v
			}
			if tags.has("prefix") {
				prefix, hasPrefix = tags.get("prefix"), true
			}
			if tags.has("manualkey") {
				s.ManualKey = true
			}
			if v := tags.get("query"); v != "" {
				s.Query = v
			}
		}
	}

	s.Prefix = namePrefix(s.Table)
	if hasPrefix {
		s.Prefix = prefix
	}
	return nil
}

// field builds one descriptor. Resolution order: column shape, rename,
// foreign key, subquery, inline.
func (b *builder) field(s *Schema, sf reflect.StructField, tags tagSet, index []int, key FieldKey, colPrefix, pathPrefix string) (*Field, error) {
	path := joinPath(pathPrefix, sf.Name)
	f := &Field{
		Name:           sf.Name,
		Path:           path,
		Type:           sf.Type,
		Index:          index,
		IsFromDatabase: true,
		IsPrimaryKey:   tags.has("pk"),
		IsRowVersion:   tags.has("rowversion"),
		IsReadOnly:     tags.has("readonly"),
		NotNull:        tags.has("notnull"),
		Trim:           tags.has("trim"),
		Definition:     tags.get("type"),
		declaring:      key,
	}

	var err error
	if f.Length, err = tags.number("length"); err != nil {
		return nil, b.fail(err, path)
	}
	if prec := tags.list("precision"); len(prec) > 0 {
		p := tagSet{"p": prec[0]}
		if len(prec) > 1 {
			p["s"] = prec[1]
		}
		if f.Precision, err = p.number("p"); err != nil {
			return nil, b.fail(err, path)
		}
		if f.Scale, err = p.number("s"); err != nil {
			return nil, b.fail(err, path)
		}
	}
	if tags.has("default") {
		v := tags.get("default")
		f.Default = &v
	}

	own := sf.Name
	renamed := tags.get("name")
	if renamed != "" {
		own = renamed
	}

	target, isRef := RefTarget(sf.Type)
	elem := sf.Type
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
		if _, ok := RefTarget(elem); ok {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "reference fields are declared by value")
		}
	}
	structLike := elem.Kind() == reflect.Struct && !IsScalar(elem) && !isRef

	switch {
	case tags.has("inline") && tags.has("eager"):
		return nil, structural(ErrCodeInvalidField, b.typeName(), path, "field cannot be both inline and eager")

	case isRef, tags.has("eager") || (structLike && sf.Type.Kind() == reflect.Pointer && !tags.has("inline")):
		if isRef {
			f.IsReference = true
			f.ForeignType = target
		} else {
			if sf.Type.Kind() != reflect.Pointer || elem.Kind() != reflect.Struct {
				return nil, structural(ErrCodeInvalidField, b.typeName(), path, "eager field must be a pointer to a record")
			}
			f.IsEager = true
			f.ForeignType = elem
		}
		if renamed == "" {
			own = foreignKeyName(own)
		}
		f.IsColumn = true
		f.Nullable = true
		f.DBType = keyType(f.ForeignType)
		if err := applyForeignKey(f, tags); err != nil {
			return nil, b.fail(err, path)
		}

	case tags.has("subquery"):
		if tags.has("fk") {
			return nil, structural(ErrCodeInvalidTag, b.typeName(), path, "fk applies only to eager and reference fields")
		}
		provider, ok := reflect.New(s.Type).Interface().(SubqueryProvider)
		if !ok {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "%s does not implement SubqueryProvider", s.Type)
		}
		sq, ok := provider.Subqueries()[sf.Name]
		if !ok || sq == nil {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "no subquery builder for %s", sf.Name)
		}
		f.Subquery = sq
		f.IsReadOnly = true
		dt, nullable, ok := InferType(sf.Type)
		if !ok {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "unsupported subquery type %s", sf.Type)
		}
		f.DBType, f.Nullable = dt, nullable

	case tags.has("inline") || structLike:
		if tags.has("fk") {
			return nil, structural(ErrCodeInvalidTag, b.typeName(), path, "fk applies only to eager and reference fields")
		}
		if elem.Kind() != reflect.Struct {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "inline field must be a struct")
		}
		f.IsInline = true
		f.Nullable = sf.Type.Kind() == reflect.Pointer
		f.InlinePrefix = sf.Name
		if v := tags.get("inline"); v != "" {
			f.InlinePrefix = v
		}
		childCols := f.InlinePrefix
		if colPrefix != "" {
			childCols = colPrefix + "_" + f.InlinePrefix
		}
		f.DBName = childCols

		if slices.Contains(b.stack, key) {
			return nil, NewCycleError(b.typeName(), append(slices.Clone(b.names), sf.Name))
		}
		b.stack = append(b.stack, key)
		b.names = append(b.names, sf.Name)
		child, err := b.build(elem, s, f, childCols, path)
		b.stack = b.stack[:len(b.stack)-1]
		b.names = b.names[:len(b.names)-1]
		if err != nil {
			return nil, err
		}
		f.InlineSchema = child
		return f, nil

	default:
		if tags.has("fk") {
			return nil, structural(ErrCodeInvalidTag, b.typeName(), path, "fk applies only to eager and reference fields")
		}
		dt, nullable, ok := InferType(sf.Type)
		if !ok {
			return nil, structural(ErrCodeInvalidField, b.typeName(), path, "unsupported field type %s", sf.Type)
		}
		f.IsColumn = true
		f.DBType, f.Nullable = dt, nullable
	}

	f.DBName = own
	if colPrefix != "" {
		f.DBName = colPrefix + "_" + own
	}
	return f, nil
}

func applyForeignKey(f *Field, tags tagSet) error {
	f.IsForeignKey = true
	switch tags.get("fk") {
	case "":
	case "none":
		f.IsForeignKey = false
	case "cascade":
		f.CascadeOnDelete = true
	case "setnull":
		f.SetNullOnDelete = true
	default:
		return structural(ErrCodeInvalidTag, "", "", "fk must be cascade, setnull or none, got %q", tags.get("fk"))
	}
	return nil
}

// resolveKeys finds the primary key and row version of a top-level schema.
func (b *builder) resolveKeys(s *Schema) error {
	var tagged []*Field
	for _, f := range s.Fields {
		if f.IsPrimaryKey {
			tagged = append(tagged, f)
		}
	}
	if len(tagged) > 1 {
		return structural(ErrCodeDuplicatePrimaryKey, b.typeName(), tagged[1].Name,
			"primary key declared on both %s and %s", tagged[0].Name, tagged[1].Name)
	}

	pk := (*Field)(nil)
	if len(tagged) == 1 {
		pk = tagged[0]
	} else {
		for _, name := range []string{"ID", "Id"} {
			if f, ok := s.byName[name]; ok {
				pk = f
				break
			}
		}
	}

	if pk == nil {
		s.pkErr = structural(ErrCodeMissingPrimaryKey, b.typeName(), "", "no field tagged pk or named ID")
	} else {
		if !pk.IsPlain() || pk.IsReference {
			return structural(ErrCodeInvalidField, b.typeName(), pk.Name, "primary key must be a plain column")
		}
		pk.IsPrimaryKey = true
		pk.NotNull = true
		pk.AutoIncrement = pk.DBType.IsInteger() && !s.ManualKey
		s.primaryKey = pk
	}

	for _, f := range s.Fields {
		if !f.IsRowVersion {
			continue
		}
		if s.RowVersion != nil {
			return structural(ErrCodeInvalidField, b.typeName(), f.Name, "more than one row version field")
		}
		if !f.IsPlain() || !f.DBType.IsInteger() || f.Type.Kind() == reflect.Pointer {
			return structural(ErrCodeInvalidField, b.typeName(), f.Name, "row version must be a non-nullable integer column")
		}
		f.NotNull = true
		s.RowVersion = f
	}
	return nil
}

func (b *builder) index(s *Schema, tags tagSet) (*Index, error) {
	keys := tags.list("fields")
	if len(keys) == 0 {
		return nil, structural(ErrCodeInvalidTag, b.typeName(), "", "index marker needs fields=")
	}

	resolve := func(names []string) ([]*Field, error) {
		out := make([]*Field, 0, len(names))
		for _, name := range names {
			f, ok := s.Lookup(name)
			if !ok || !f.IsColumn {
				return nil, structural(ErrCodeUnknownIndexField, b.typeName(), name, "index names unknown field %q", name)
			}
			out = append(out, f)
		}
		return out, nil
	}

	idx := &Index{Unique: tags.has("unique")}
	var err error
	if idx.Fields, err = resolve(keys); err != nil {
		return nil, err
	}
	if idx.Include, err = resolve(tags.list("include")); err != nil {
		return nil, err
	}

	idx.Name = tags.get("name")
	if idx.Name == "" {
		idx.Name = "IX_" + s.Table
		if idx.Unique {
			idx.Name = "UX_" + s.Table
		}
		for _, f := range idx.Fields {
			idx.Name += "_" + f.DBName
		}
	}
	return idx, nil
}

// keyType returns the column type of t's primary key without building t,
// so self-referencing records never recurse. Unknown keys default to Int64;
// the target's own build reports the real error.
func keyType(t reflect.Type) queryir.DataType {
	var byName reflect.Type
	for _, lv := range levels(t, nil) {
		for i := 0; i < lv.t.NumField(); i++ {
			sf := lv.t.Field(i)
			if !sf.IsExported() || isLevel(sf) {
				continue
			}
			tags, err := parseTag(sf)
			if err != nil {
				continue
			}
			if tags.has("pk") {
				if dt, _, ok := InferType(sf.Type); ok {
					return dt
				}
			}
			if sf.Name == "ID" || sf.Name == "Id" {
				byName = sf.Type
			}
		}
	}
	if byName != nil {
		if dt, _, ok := InferType(byName); ok {
			return dt
		}
	}
	return queryir.TypeInt64
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
