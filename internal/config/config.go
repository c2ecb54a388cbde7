// Package config loads roster configuration from defaults, an optional YAML
// file, ROSTER_* environment variables and command-line flags, in increasing
// order of precedence, and validates the result against an embedded CUE
// schema.
package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/roach88/roster/internal/record"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to environment variable names: store.path is read
// from ROSTER_STORE_PATH.
const EnvPrefix = "ROSTER"

// Keys shared with flag bindings.
const (
	KeyStoreBackend  = "store.backend"
	KeyStorePath     = "store.path"
	KeyStoreColumns  = "store.columns"
	KeyAdminUsername = "admin.username"
	KeyAdminPassword = "admin.password"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
)

// Config is the resolved roster configuration.
type Config struct {
	Store StoreConfig `mapstructure:"store" json:"store"`
	Admin AdminConfig `mapstructure:"admin" json:"admin"`
	Log   LogConfig   `mapstructure:"log" json:"log"`
}

// StoreConfig selects the backend, its location and the two score columns.
type StoreConfig struct {
	Backend string   `mapstructure:"backend" json:"backend"`
	Path    string   `mapstructure:"path" json:"path"`
	Columns []string `mapstructure:"columns" json:"columns"`
}

// AdminConfig holds the single admin credential. An empty password disables
// authorization.
type AdminConfig struct {
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
}

// LogConfig sets the slog level and handler format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "csv",
			Path:    "stu.csv",
			Columns: []string{record.DefaultField1, record.DefaultField2},
		},
		Admin: AdminConfig{Username: "admin"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// NewViper returns a viper instance with defaults and environment binding
// in place. Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault(KeyStoreBackend, d.Store.Backend)
	v.SetDefault(KeyStorePath, d.Store.Path)
	v.SetDefault(KeyStoreColumns, d.Store.Columns)
	v.SetDefault(KeyAdminUsername, d.Admin.Username)
	v.SetDefault(KeyAdminPassword, d.Admin.Password)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
	return v
}

// Load reads file (when non-empty) into v, decodes and validates.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against the CUE schema, then the cross-field rules.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	val := schema.Unify(ctx.Encode(cfg))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Store.Backend != "memory" && cfg.Store.Path == "" {
		return fmt.Errorf("invalid config: store.path is required for the %s backend", cfg.Store.Backend)
	}
	if _, err := record.NewColumns(cfg.Store.Columns); err != nil {
		return fmt.Errorf("invalid config: store.columns: %w", err)
	}
	return nil
}

// Columns returns the configured header.
func (c *Config) Columns() record.Columns {
	cols, err := record.NewColumns(c.Store.Columns)
	if err != nil {
		return record.DefaultColumns()
	}
	return cols
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	for i, col := range c.Store.Columns {
		c.Store.Columns[i] = strings.TrimSpace(col)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}
