package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relmap/internal/schema"
)

// descriptions is the describe payload.
type descriptions []schema.Description

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe [type...]",
		Short: "Show the mapped schema of catalog types",
		Long: `Show how each record type maps to the database: table, alias prefix,
key, row version, every field with its kind and column, and indexes.

Without arguments every catalog type is described.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, names []string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd, cfg)

	types, err := catalogTypes(formatter, names)
	if err != nil {
		return err
	}

	reg := schema.NewRegistry(schema.WithLogger(opts.logger(cmd, cfg).WithField("component", "schema")))
	out := make(descriptions, 0, len(types))
	for _, t := range types {
		s, err := reg.Of(t)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeSchema, "describe "+t.Name(), err)
		}
		formatter.VerboseLog("Described %s (%d fields)", t.Name(), len(s.Fields))
		out = append(out, s.Describe())
	}

	return formatter.Success(out)
}

func (d descriptions) Text() string {
	var b strings.Builder
	for i, desc := range d {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  table=%s prefix=%s", desc.Type, qualified(desc.Schema, desc.Table), desc.Prefix)
		if desc.PrimaryKey != "" {
			fmt.Fprintf(&b, " key=%s", desc.PrimaryKey)
		}
		if desc.RowVersion != "" {
			fmt.Fprintf(&b, " version=%s", desc.RowVersion)
		}
		if desc.ManualKey {
			b.WriteString(" manualkey")
		}
		b.WriteString("\n")
		if desc.Query != "" {
			fmt.Fprintf(&b, "  query: %s\n", desc.Query)
		}
		writeFields(&b, desc.Fields, "  ")
		for _, idx := range desc.Indices {
			kind := "index"
			if idx.Unique {
				kind = "unique"
			}
			fmt.Fprintf(&b, "  %s %s (%s)", kind, idx.Name, strings.Join(idx.Columns, ", "))
			if len(idx.Include) > 0 {
				fmt.Fprintf(&b, " include (%s)", strings.Join(idx.Include, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeFields(b *strings.Builder, fields []schema.FieldDescription, indent string) {
	for _, f := range fields {
		fmt.Fprintf(b, "%s%-12s %-10s", indent, f.Name, f.Kind)
		if f.Column != "" {
			fmt.Fprintf(b, " %s", f.Column)
		}
		if f.DBType != "" {
			fmt.Fprintf(b, " %s", f.DBType)
		}
		if f.Length > 0 {
			fmt.Fprintf(b, "(%d)", f.Length)
		}
		if f.Precision > 0 {
			fmt.Fprintf(b, "(%d,%d)", f.Precision, f.Scale)
		}
		if f.Refers != "" {
			fmt.Fprintf(b, " -> %s", f.Refers)
		}
		if f.NotNull {
			b.WriteString(" notnull")
		}
		if f.Default != nil {
			fmt.Fprintf(b, " default=%s", *f.Default)
		}
		b.WriteString("\n")
		writeFields(b, f.Fields, indent+"  ")
	}
}

func qualified(schemaName, table string) string {
	if schemaName == "" {
		return table
	}
	return schemaName + "." + table
}
