package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relmap/internal/command"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

// SQLOptions holds sql command flags.
type SQLOptions struct {
	Op string // "all" | "select" | "insert" | "update" | "delete"
}

var validOps = []string{"all", "select", "insert", "update", "delete"}

// StatementOutput is one rendered statement.
type StatementOutput struct {
	Type  string   `json:"type" yaml:"type"`
	Op    string   `json:"op" yaml:"op"`
	SQL   string   `json:"sql" yaml:"sql"`
	Slots []string `json:"slots,omitempty" yaml:"slots,omitempty"`
}

type statements []StatementOutput

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{}

	cmd := &cobra.Command{
		Use:   "sql [type...]",
		Short: "Render the statements issued for catalog types",
		Long: `Render the SELECT, INSERT, UPDATE and DELETE templates the mapping
engine prepares for each record type, in the configured dialect.

Slots name the column each positional parameter is bound from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "all", "statement kind (all|select|insert|update|delete)")

	return cmd
}

func runSQL(rootOpts *RootOptions, opts *SQLOptions, names []string, cmd *cobra.Command) error {
	cfg, err := rootOpts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := rootOpts.formatter(cmd, cfg)

	if !slices.Contains(validOps, opts.Op) {
		return formatter.Fail(ExitCommandError, ErrCodeConfig,
			fmt.Sprintf("invalid op %q: must be one of %v", opts.Op, validOps), nil)
	}
	dialect, err := cfg.SQLDialect()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "resolve dialect", err)
	}
	types, err := catalogTypes(formatter, names)
	if err != nil {
		return err
	}

	log := rootOpts.logger(cmd, cfg)
	eng := command.New(nil,
		command.WithDialect(dialect),
		command.WithRegistry(schema.NewRegistry(schema.WithLogger(log.WithField("component", "schema")))),
		command.WithLogger(log.WithField("component", "command")),
	)

	var out statements
	for _, t := range types {
		st, err := eng.Statements(t)
		if err != nil {
			code := ErrCodeRender
			if schema.IsStructural(err) {
				code = ErrCodeSchema
			}
			return formatter.Fail(ExitFailure, code, "render "+t.Name(), err)
		}
		for _, s := range []struct {
			op   string
			stmt *querysql.Statement
		}{
			{"select", &st.Select},
			{"insert", st.Insert},
			{"update", st.Update},
			{"delete", st.Delete},
		} {
			if s.stmt == nil || (opts.Op != "all" && opts.Op != s.op) {
				continue
			}
			out = append(out, StatementOutput{Type: t.Name(), Op: s.op, SQL: s.stmt.SQL, Slots: slots(s.stmt.Slots)})
		}
	}
	formatter.VerboseLog("Rendered %d statement(s) for dialect %s", len(out), dialect.Name)

	return formatter.Success(out)
}

// slots drops the names of arguments that are not template slots.
func slots(names []string) []string {
	if !slices.ContainsFunc(names, func(s string) bool { return s != "" }) {
		return nil
	}
	return names
}

func (s statements) Text() string {
	var b strings.Builder
	for _, st := range s {
		fmt.Fprintf(&b, "-- %s %s\n%s;\n", st.Type, st.Op, st.SQL)
	}
	return b.String()
}
