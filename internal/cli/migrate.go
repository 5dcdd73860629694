package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relmap/internal/schema"
	"github.com/roach88/relmap/internal/store"
)

type tableStates []store.TableState

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [type...]",
		Short: "Create missing tables for catalog types",
		Long: `Create the tables and indexes of the catalog types that do not exist yet
and record a fingerprint of each mapped shape.

A table whose recorded fingerprint differs from the declared shape is
reported as drift; nothing is created in that case.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runMigrate(opts *RootOptions, names []string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd, cfg)

	types, err := catalogTypes(formatter, names)
	if err != nil {
		return err
	}

	log := opts.logger(cmd, cfg)
	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Driver, cfg.DSN, store.WithLogger(log.WithField("component", "store")))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "open database", err)
	}
	defer st.Close()
	formatter.VerboseLog("Opened %s database %s", cfg.Driver, cfg.DSN)

	reg := schema.NewRegistry(schema.WithLogger(log.WithField("component", "schema")))
	states, err := st.Migrate(ctx, reg, types...)
	switch {
	case errors.Is(err, store.ErrSchemaDrift):
		return formatter.Fail(ExitFailure, ErrCodeDrift, "schema drift", err)
	case schema.IsStructural(err):
		return formatter.Fail(ExitFailure, ErrCodeSchema, "migrate", err)
	case err != nil:
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "migrate", err)
	}

	return formatter.Success(tableStates(states))
}

func (s tableStates) Text() string {
	var b strings.Builder
	for _, st := range s {
		verb := "exists "
		if st.Created {
			verb = "created"
		}
		fmt.Fprintf(&b, "%s %-12s seq=%d %.12s\n", verb, st.Table, st.Seq, st.Fingerprint)
	}
	return b.String()
}
