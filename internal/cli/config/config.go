package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigName is the base name of the configuration file
const ConfigName = "fluentmap"

// EnvPrefix prefixes environment overrides, e.g. FLUENTMAP_LOG_LEVEL
const EnvPrefix = "FLUENTMAP"

// Config represents the fluentmap configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls how commands print reports
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// DatabaseConfig selects the SQL dialect used for generated statements
type DatabaseConfig struct {
	Dialect string `mapstructure:"dialect"`
}

// Load loads the configuration from fluentmap.yml in the nearest directory
// containing one, falling back to defaults
func Load() (*Config, error) {
	dir, err := FindConfigDir()
	if err != nil && !errors.Is(err, ErrNoConfig) {
		return nil, err
	}
	v := newViper()
	if dir != "" {
		v.AddConfigPath(dir)
	}
	return read(v)
}

// LoadFile loads the configuration from an explicit file
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.color", true)
	v.SetDefault("database.dialect", "postgres")

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ErrNoConfig is returned by FindConfigDir when no directory up to the root
// holds a configuration file
var ErrNoConfig = errors.New("no fluentmap.yml found")

// FindConfigDir walks up from the working directory looking for
// fluentmap.yml or fluentmap.yaml
func FindConfigDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, ConfigName+ext)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfig
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	switch cfg.Output.Format {
	case "table", "yaml":
	default:
		return fmt.Errorf("output.format must be table or yaml, got: %s", cfg.Output.Format)
	}

	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	cfg.Database.Dialect = strings.ToLower(cfg.Database.Dialect)
	switch cfg.Database.Dialect {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.dialect must be postgres or sqlite, got: %s", cfg.Database.Dialect)
	}
	return nil
}
