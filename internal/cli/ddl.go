package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relmap/internal/schema"
	"github.com/roach88/relmap/internal/store"
)

type script []string

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddl [type...]",
		Short: "Print CREATE statements for catalog types",
		Long: `Print the CREATE TABLE and CREATE INDEX statements migrate would run,
in foreign-key dependency order. Referenced tables are included;
query-backed types have no table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDDL(opts *RootOptions, names []string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd, cfg)

	dialect, err := cfg.SQLDialect()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "resolve dialect", err)
	}
	types, err := catalogTypes(formatter, names)
	if err != nil {
		return err
	}

	stmts, err := store.Script(schema.NewRegistry(), dialect, types...)
	if err != nil {
		code := ErrCodeRender
		if schema.IsStructural(err) {
			code = ErrCodeSchema
		}
		return formatter.Fail(ExitFailure, code, "render ddl", err)
	}

	return formatter.Success(script(stmts))
}

func (s script) Text() string {
	var b strings.Builder
	for _, stmt := range s {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}
