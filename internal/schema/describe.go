package schema

// Description is a plain rendering of a Schema for output and
// fingerprinting.
type Description struct {
	Type       string             `json:"type" yaml:"type"`
	Table      string             `json:"table" yaml:"table"`
	Schema     string             `json:"schema,omitempty" yaml:"schema,omitempty"`
	Prefix     string             `json:"prefix" yaml:"prefix"`
	Query      string             `json:"query,omitempty" yaml:"query,omitempty"`
	ManualKey  bool               `json:"manual_key,omitempty" yaml:"manual_key,omitempty"`
	PrimaryKey string             `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	RowVersion string             `json:"row_version,omitempty" yaml:"row_version,omitempty"`
	Fields     []FieldDescription `json:"fields" yaml:"fields"`
	Indices    []IndexDescription `json:"indices,omitempty" yaml:"indices,omitempty"`
}

// FieldDescription describes one field.
type FieldDescription struct {
	Name      string             `json:"name" yaml:"name"`
	Kind      string             `json:"kind" yaml:"kind"`
	Column    string             `json:"column,omitempty" yaml:"column,omitempty"`
	DBType    string             `json:"db_type,omitempty" yaml:"db_type,omitempty"`
	Length    int                `json:"length,omitempty" yaml:"length,omitempty"`
	Precision int                `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     int                `json:"scale,omitempty" yaml:"scale,omitempty"`
	NotNull   bool               `json:"not_null,omitempty" yaml:"not_null,omitempty"`
	ReadOnly  bool               `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	Trim      bool               `json:"trim,omitempty" yaml:"trim,omitempty"`
	Default   *string            `json:"default,omitempty" yaml:"default,omitempty"`
	Refers    string             `json:"refers,omitempty" yaml:"refers,omitempty"`
	OnDelete  string             `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
	Fields    []FieldDescription `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IndexDescription describes one index.
type IndexDescription struct {
	Name    string   `json:"name" yaml:"name"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	Columns []string `json:"columns" yaml:"columns"`
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
}

// Field kinds reported by Describe.
const (
	KindColumn    = "column"
	KindInline    = "inline"
	KindEager     = "eager"
	KindReference = "reference"
	KindSubquery  = "subquery"
)

// Kind names the field's mapping category.
func (f *Field) Kind() string {
	switch {
	case f.IsInline:
		return KindInline
	case f.IsEager:
		return KindEager
	case f.IsReference:
		return KindReference
	case f.IsSubquery():
		return KindSubquery
	}
	return KindColumn
}

// Describe returns the plain description of s.
func (s *Schema) Describe() Description {
	d := Description{
		Type:      s.Type.String(),
		Table:     s.Table,
		Schema:    s.SchemaName,
		Prefix:    s.Prefix,
		Query:     s.Query,
		ManualKey: s.ManualKey,
		Fields:    describeFields(s.Fields),
	}
	if pk, err := s.PrimaryKey(); err == nil {
		d.PrimaryKey = pk.Name
	}
	if s.RowVersion != nil {
		d.RowVersion = s.RowVersion.Name
	}
	for _, idx := range s.Indices {
		d.Indices = append(d.Indices, IndexDescription{
			Name:    idx.Name,
			Unique:  idx.Unique,
			Columns: dbNames(idx.Fields),
			Include: dbNames(idx.Include),
		})
	}
	return d
}

func describeFields(fields []*Field) []FieldDescription {
	out := make([]FieldDescription, 0, len(fields))
	for _, f := range fields {
		fd := FieldDescription{
			Name:      f.Name,
			Kind:      f.Kind(),
			Precision: f.Precision,
			Scale:     f.Scale,
			Length:    f.Length,
			NotNull:   f.NotNull,
			ReadOnly:  f.IsReadOnly,
			Trim:      f.Trim,
			Default:   f.Default,
		}
		if f.IsColumn {
			fd.Column = f.DBName
		}
		if !f.IsInline {
			fd.DBType = f.DBType.String()
		}
		if f.ForeignType != nil {
			fd.Refers = f.ForeignType.String()
		}
		switch {
		case f.CascadeOnDelete:
			fd.OnDelete = "cascade"
		case f.SetNullOnDelete:
			fd.OnDelete = "setnull"
		}
		if f.IsInline {
			fd.Fields = describeFields(f.InlineSchema.Fields)
		}
		out = append(out, fd)
	}
	return out
}

func dbNames(fields []*Field) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.DBName
	}
	return out
}
