package cli

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/relmap/internal/config"
	"github.com/roach88/relmap/internal/demo"
	"github.com/roach88/relmap/internal/logging"
)

// RootOptions holds global flags for all commands. Empty values leave the
// config file, RELMAP_* environment and defaults in charge.
type RootOptions struct {
	ConfigFile string
	Driver     string
	DSN        string
	Dialect    string
	Verbose    bool
	Format     string // "text" | "json" | "yaml"

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the relmap CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relmap",
		Short: "relmap - reflection-driven object-relational mapping",
		Long: `Inspect and deploy the record types of the bookshop catalog.

Describes their mapped schemas, renders the SQL the mapping engine issues
for them, and creates their tables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := opts.settings(cmd)
			return err
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./relmap.{yaml,json,toml})")
	flags.StringVar(&opts.Driver, "driver", "", "database driver (sqlite|sqlite3|postgres)")
	flags.StringVar(&opts.DSN, "dsn", "", "data source name")
	flags.StringVar(&opts.Dialect, "dialect", "", "SQL dialect, derived from the driver when empty")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "", "output format (text|json|yaml)")

	// Add subcommands
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewDDLCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// settings resolves the configuration once per invocation: flags over
// environment over config file over defaults.
func (o *RootOptions) settings(cmd *cobra.Command) (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	v := config.New()
	for key, val := range map[string]string{
		config.KeyDriver:  o.Driver,
		config.KeyDSN:     o.DSN,
		config.KeyDialect: o.Dialect,
		config.KeyFormat:  o.Format,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	if o.Verbose {
		v.Set(config.KeyVerbose, true)
	}

	cfg, err := config.Load(v, o.ConfigFile, ".")
	if err != nil {
		f := &OutputFormatter{Format: textIfInvalid(o.Format), Writer: cmd.OutOrStdout()}
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "load configuration", err)
	}
	o.cfg = cfg
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command, cfg *config.Config) *OutputFormatter {
	return &OutputFormatter{
		Format:    cfg.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   cfg.Verbose,
	}
}

func (o *RootOptions) logger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	return logging.New(cfg.Verbose, cmd.ErrOrStderr())
}

// textIfInvalid keeps error output readable when the format itself is the
// problem.
func textIfInvalid(format string) string {
	if isValidFormat(format) {
		return format
	}
	return "text"
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// catalogTypes resolves catalog names; no names selects the whole catalog.
func catalogTypes(f *OutputFormatter, names []string) ([]reflect.Type, error) {
	if len(names) == 0 {
		return demo.Types(), nil
	}
	out := make([]reflect.Type, 0, len(names))
	for _, name := range names {
		t, ok := demo.Lookup(name)
		if !ok {
			return nil, f.Fail(ExitCommandError, ErrCodeUnknownType,
				fmt.Sprintf("unknown type %q (known: %v)", name, demo.Names()), nil)
		}
		out = append(out, t)
	}
	return out, nil
}
