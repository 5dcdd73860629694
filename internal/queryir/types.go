package queryir

// Expr is a scalar or boolean expression node.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Command is a complete statement.
//
// This is a sealed interface - only types in this package implement it.
type Command interface {
	commandNode() // Marker method - seals interface to this package
}

// CompareOp is a comparison operator.
type CompareOp string

// Comparison operators.
const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// ArithOp is an arithmetic operator.
type ArithOp string

// Arithmetic operators.
const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Table names a relation and the alias it is referenced by.
//
// When Query is set the relation is the parenthesised query text instead of
// the named table (custom backing query).
type Table struct {
	Name   string
	Schema string
	Alias  string
	Query  string
}

// Column references a column of an aliased relation.
// Table is the alias, not the table name. Empty Table renders unqualified.
type Column struct {
	Table string
	Name  string
}

func (Column) exprNode() {}

// Param is a bound parameter.
//
// A Param with a Name is a template slot; its Value is supplied per call.
// A Param without a Name carries its Value directly.
type Param struct {
	Name  string
	Value any
}

func (Param) exprNode() {}

// Literal is an inline constant: nil, bool, int64 or string.
// Literals are only produced for engine-chosen constants (TRUE/FALSE/NULL,
// defaults in DDL); user values always travel as Param.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Compare) exprNode() {}

// And is a conjunction. Empty Predicates means "always true".
type And struct {
	Predicates []Expr
}

func (And) exprNode() {}

// Or is a disjunction. Empty Predicates means "always false".
type Or struct {
	Predicates []Expr
}

func (Or) exprNode() {}

// Not negates a boolean expression.
type Not struct {
	X Expr
}

func (Not) exprNode() {}

// Negate is arithmetic negation.
type Negate struct {
	X Expr
}

func (Negate) exprNode() {}

// Arith is a binary arithmetic expression.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Arith) exprNode() {}

// In tests X for membership in Values.
type In struct {
	X      Expr
	Values []Expr
}

func (In) exprNode() {}

// IsNull tests X for NULL, or NOT NULL when Negated.
type IsNull struct {
	X       Expr
	Negated bool
}

func (IsNull) exprNode() {}

// Aggregate applies an aggregate function. A nil Arg renders as "*".
type Aggregate struct {
	Func string
	Arg  Expr
}

func (Aggregate) exprNode() {}

// Subquery is a scalar subquery.
type Subquery struct {
	Select *Select
}

func (Subquery) exprNode() {}

// SelectColumn is one projected expression.
type SelectColumn struct {
	Expr  Expr
	Alias string
}

// JoinKind selects the join flavour.
type JoinKind int

const (
	// LeftJoin keeps the outer row when no joined row matches.
	LeftJoin JoinKind = iota
	// InnerJoin drops the outer row when no joined row matches.
	InnerJoin
)

// Join attaches a relation to a Select.
type Join struct {
	Kind  JoinKind
	Table Table
	On    Expr
}

// Order is one ORDER BY term.
type Order struct {
	Expr Expr
	Desc bool
}

// Select represents a query.
//
// Semantics:
//
//	SELECT <columns> FROM <from> <joins> WHERE <filter>
//	ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// Limit and Offset of zero are omitted.
type Select struct {
	From    Table
	Columns []SelectColumn
	Joins   []Join
	Filter  Expr
	OrderBy []Order
	Limit   int
	Offset  int
}

func (*Select) commandNode() {}

// Where ANDs pred onto the current filter.
func (s *Select) Where(pred Expr) {
	s.Filter = Conjoin(s.Filter, pred)
}

// Clone returns an independent copy. Expression nodes are shared because
// they are immutable; the slices are not.
func (s *Select) Clone() *Select {
	c := *s
	c.Columns = append([]SelectColumn(nil), s.Columns...)
	c.Joins = append([]Join(nil), s.Joins...)
	c.OrderBy = append([]Order(nil), s.OrderBy...)
	return &c
}

// Insert represents an INSERT of a single row.
// Returning lists columns to hand back (dialects with RETURNING support).
type Insert struct {
	Table     Table
	Columns   []string
	Values    []Expr
	Returning []string
}

func (*Insert) commandNode() {}

// Clone returns an independent copy.
func (i *Insert) Clone() *Insert {
	c := *i
	c.Columns = append([]string(nil), i.Columns...)
	c.Values = append([]Expr(nil), i.Values...)
	c.Returning = append([]string(nil), i.Returning...)
	return &c
}

// Assignment is one SET term of an Update.
type Assignment struct {
	Column string
	Value  Expr
}

// Update represents an UPDATE.
type Update struct {
	Table  Table
	Set    []Assignment
	Filter Expr
}

func (*Update) commandNode() {}

// Where ANDs pred onto the current filter.
func (u *Update) Where(pred Expr) {
	u.Filter = Conjoin(u.Filter, pred)
}

// Clone returns an independent copy.
func (u *Update) Clone() *Update {
	c := *u
	c.Set = append([]Assignment(nil), u.Set...)
	return &c
}

// Delete represents a DELETE.
type Delete struct {
	Table  Table
	Filter Expr
}

func (*Delete) commandNode() {}

// Where ANDs pred onto the current filter.
func (d *Delete) Where(pred Expr) {
	d.Filter = Conjoin(d.Filter, pred)
}

// Clone returns an independent copy.
func (d *Delete) Clone() *Delete {
	c := *d
	return &c
}

// Conjoin combines two filters with AND, flattening nested conjunctions.
// A nil side is ignored.
func Conjoin(left, right Expr) Expr {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	var preds []Expr
	for _, e := range []Expr{left, right} {
		if and, ok := e.(And); ok {
			preds = append(preds, and.Predicates...)
			continue
		}
		preds = append(preds, e)
	}
	return And{Predicates: preds}
}
