// Package config loads CLI settings from defaults, an optional config file
// and RELMAP_* environment variables, and checks them against an embedded
// CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/roach88/relmap/internal/querysql"
)

// Config keys. They double as flag names and, upper-cased with the RELMAP_
// prefix, as environment variables.
const (
	KeyDriver  = "driver"
	KeyDSN     = "dsn"
	KeyDialect = "dialect"
	KeyVerbose = "verbose"
	KeyFormat  = "format"
)

const (
	fileName  = "relmap"
	envPrefix = "relmap"

	defaultDriver = "sqlite3"
	defaultDSN    = "relmap.db"
	defaultFormat = "text"
)

// ErrInvalid wraps every schema violation reported by Load.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.cue
var schemaSource string

// Config is the resolved CLI configuration.
type Config struct {
	Driver  string `mapstructure:"driver" json:"driver"`
	DSN     string `mapstructure:"dsn" json:"dsn"`
	Dialect string `mapstructure:"dialect" json:"dialect"`
	Verbose bool   `mapstructure:"verbose" json:"verbose"`
	Format  string `mapstructure:"format" json:"format"`
}

// New returns a viper instance carrying the defaults and the environment
// binding. Callers bind flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDriver, defaultDriver)
	v.SetDefault(KeyDSN, defaultDSN)
	v.SetDefault(KeyDialect, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyFormat, defaultFormat)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v and returns the validated
// configuration. With an empty path, relmap.yaml, relmap.json or
// relmap.toml in dir is used when present; a missing file is not an error.
func Load(v *viper.Viper, path, dir string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate unifies cfg with the #Config schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(cfg))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SQLDialect returns the configured dialect, derived from the driver when
// none is set.
func (c *Config) SQLDialect() (querysql.Dialect, error) {
	name := c.Dialect
	if name == "" {
		name = c.Driver
	}
	d, ok := querysql.Lookup(name)
	if !ok {
		return querysql.Dialect{}, fmt.Errorf("no SQL dialect for %q", name)
	}
	return d, nil
}
