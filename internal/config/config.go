// Package config loads fieldreg settings from a YAML file, FIELDREG_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/tracing"
)

// EnvPrefix prefixes every environment variable, e.g. FIELDREG_DB or
// FIELDREG_IDENTITY_JWT_SECRET.
const EnvPrefix = "FIELDREG"

// LocalConfigFile is looked up in the working directory before the user
// config directory.
const LocalConfigFile = "fieldreg.yaml"

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config is the resolved configuration.
type Config struct {
	// DB is the path of the SQLite journal.
	DB string `mapstructure:"db"`

	// Principal is the caller used when no --as or --token is given.
	Principal string `mapstructure:"principal"`

	// Format is "text" or "json".
	Format string `mapstructure:"format"`

	Log      LogConfig      `mapstructure:"log"`
	Identity IdentityConfig `mapstructure:"identity"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// IdentityConfig configures signed identity tokens.
type IdentityConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DB:     "fieldreg.db",
		Format: "text",
		Log:    LogConfig{Level: "warn"},
		Identity: IdentityConfig{
			Issuer:   "fieldreg",
			TokenTTL: identity.DefaultTokenTTL,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Load resolves the configuration.
//
// path names an explicit config file and must exist. When empty, Load
// tries ./fieldreg.yaml and then $HOME/.config/fieldreg/config.yaml, and a
// missing file is not an error. Flags that were set on the command line
// override everything; flags left at their default do not.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	switch {
	case explicit:
		v.SetConfigFile(path)
	case fileExists(LocalConfigFile):
		v.SetConfigFile(LocalConfigFile)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "fieldreg"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("db", d.DB)
	v.SetDefault("principal", d.Principal)
	v.SetDefault("format", d.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("identity.jwt_secret", d.Identity.JWTSecret)
	v.SetDefault("identity.issuer", d.Identity.Issuer)
	v.SetDefault("identity.token_ttl", d.Identity.TokenTTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"db":     "db",
	"as":     "principal",
	"format": "format",
}

// bindFlags binds only the flags the user set, so a flag default never
// shadows the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	if f := flags.Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("log.level", "debug")
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, Formats)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.DB == "" {
		return fmt.Errorf("db path must not be empty")
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
