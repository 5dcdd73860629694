package command

import (
	"reflect"

	"github.com/roach88/relmap/internal/querysql"
)

// Statements are the template statements of one record type, for
// inspection by tools that only hold a reflect.Type. Query-backed types
// have a Select only.
type Statements struct {
	Select querysql.Statement
	Insert *querysql.Statement
	Update *querysql.Statement
	Delete *querysql.Statement
}

// Statements renders the cached templates of t.
func (e *Engine) Statements(t reflect.Type) (Statements, error) {
	var out Statements

	sel, err := e.selectTemplate(t)
	if err != nil {
		return out, err
	}
	q := sel.query.Clone()
	q.OrderBy = append(q.OrderBy, sel.order...)
	if out.Select, err = e.sh.dialect.Compile(q); err != nil {
		return out, err
	}
	if sel.plan.Schema.Query != "" {
		return out, nil
	}

	ins, err := e.insertTemplate(t)
	if err != nil {
		return out, err
	}
	out.Insert = &ins.stmt

	upd, err := e.updateTemplate(t)
	if err != nil {
		return out, err
	}
	out.Update = &upd.stmt

	del, err := e.deleteTemplate(t)
	if err != nil {
		return out, err
	}
	out.Delete = &del.stmt
	return out, nil
}
