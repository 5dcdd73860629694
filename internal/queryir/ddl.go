package queryir

// DataType is the abstract storage type of a column.
// Dialects map each DataType to concrete column type text.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeBit
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeDateTime
	TypeGUID
	TypeBinary
	TypeString
)

var dataTypeNames = [...]string{
	TypeUnknown:  "unknown",
	TypeBit:      "bit",
	TypeInt8:     "int8",
	TypeInt16:    "int16",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeFloat32:  "float32",
	TypeFloat64:  "float64",
	TypeDecimal:  "decimal",
	TypeDateTime: "datetime",
	TypeGUID:     "guid",
	TypeBinary:   "binary",
	TypeString:   "string",
}

func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return dataTypeNames[TypeUnknown]
	}
	return dataTypeNames[t]
}

// IsInteger reports whether t is one of the integer widths.
func (t DataType) IsInteger() bool {
	return t >= TypeInt8 && t <= TypeInt64
}

// Width returns the bit width of integer types and 0 otherwise.
func (t DataType) Width() int {
	switch t {
	case TypeInt8:
		return 8
	case TypeInt16:
		return 16
	case TypeInt32:
		return 32
	case TypeInt64:
		return 64
	}
	return 0
}

// ColumnDef describes one column of a CreateTable.
// A non-empty Definition replaces the type, nullability and default text.
type ColumnDef struct {
	Name          string
	Type          DataType
	Length        int
	Precision     int
	Scale         int
	Definition    string
	NotNull       bool
	Default       Expr
	PrimaryKey    bool
	AutoIncrement bool
}

// Referential actions for ForeignKey.OnDelete.
const (
	OnDeleteNoAction = ""
	OnDeleteCascade  = "CASCADE"
	OnDeleteSetNull  = "SET NULL"
)

// ForeignKey is a table-level foreign key constraint.
type ForeignKey struct {
	Columns    []string
	RefTable   Table
	RefColumns []string
	OnDelete   string
}

// CreateTable represents a CREATE TABLE statement.
type CreateTable struct {
	Table       Table
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
	IfNotExists bool
}

func (*CreateTable) commandNode() {}

// CreateIndex represents a CREATE INDEX statement.
// Include lists covering columns; dialects without INCLUDE append them to
// the key columns.
type CreateIndex struct {
	Name        string
	Table       Table
	Unique      bool
	Columns     []string
	Include     []string
	IfNotExists bool
}

func (*CreateIndex) commandNode() {}
