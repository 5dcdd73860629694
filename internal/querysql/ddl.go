package querysql

import (
	"fmt"

	"github.com/roach88/relmap/internal/queryir"
)

func (c *compiler) compileCreateTable(ct *queryir.CreateTable) error {
	c.write("CREATE TABLE ")
	if ct.IfNotExists {
		c.write("IF NOT EXISTS ")
	}
	c.write(c.d.TableName(ct.Table), " (")

	for i, col := range ct.Columns {
		if i > 0 {
			c.write(", ")
		}
		if err := c.columnDef(col); err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
	}

	for _, fk := range ct.ForeignKeys {
		c.write(", FOREIGN KEY (")
		c.identList(fk.Columns)
		c.write(") REFERENCES ", c.d.TableName(fk.RefTable), " (")
		c.identList(fk.RefColumns)
		c.write(")")
		if fk.OnDelete != queryir.OnDeleteNoAction {
			c.write(" ON DELETE ", fk.OnDelete)
		}
	}

	c.write(")")
	return nil
}

func (c *compiler) columnDef(col queryir.ColumnDef) error {
	c.write(c.d.Quote(col.Name), " ")
	if col.Definition != "" {
		c.write(col.Definition)
		return nil
	}

	c.write(c.d.Types(col))
	switch {
	case col.PrimaryKey && col.AutoIncrement:
		c.write(" ", c.d.Identity)
	case col.PrimaryKey:
		c.write(" PRIMARY KEY")
	case col.NotNull:
		c.write(" NOT NULL")
	}

	if col.Default != nil {
		lit, ok := col.Default.(queryir.Literal)
		if !ok {
			return fmt.Errorf("default must be a literal, got %T", col.Default)
		}
		text, err := c.d.Literal(lit.Value)
		if err != nil {
			return fmt.Errorf("default: %w", err)
		}
		c.write(" DEFAULT ", text)
	}
	return nil
}

// compileCreateIndex renders CREATE INDEX. Without INCLUDE support covering
// columns are appended to the key of a plain index and dropped from a
// unique one, where appending would weaken the constraint.
func (c *compiler) compileCreateIndex(ci *queryir.CreateIndex) {
	c.write("CREATE ")
	if ci.Unique {
		c.write("UNIQUE ")
	}
	c.write("INDEX ")
	if ci.IfNotExists {
		c.write("IF NOT EXISTS ")
	}
	c.write(c.d.Quote(ci.Name), " ON ", c.d.TableName(ci.Table), " (")

	cols := ci.Columns
	if !c.d.Include && !ci.Unique {
		cols = append(append([]string(nil), ci.Columns...), ci.Include...)
	}
	c.identList(cols)
	c.write(")")

	if c.d.Include && len(ci.Include) > 0 {
		c.write(" INCLUDE (")
		c.identList(ci.Include)
		c.write(")")
	}
}

func (c *compiler) identList(names []string) {
	for i, n := range names {
		if i > 0 {
			c.write(", ")
		}
		c.write(c.d.Quote(n))
	}
}
