// Package config loads palette-reducer settings from defaults, a YAML file,
// PALETTE_* environment variables and command-line flags, in increasing
// order of priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/palette-reducer/internal/quantize"
	"github.com/ironsheep/palette-reducer/internal/reducer"
	"github.com/ironsheep/palette-reducer/internal/storage"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. PALETTE_MAX_COLORS.
	EnvPrefix = "PALETTE"

	// DefaultFile is read from the working directory when no --config is given.
	DefaultFile = "palette-reducer"
)

// Config holds the main configuration for the application.
type Config struct {
	Folder       string   `mapstructure:"folder"`        // Directory to scan
	Files        []string `mapstructure:"files"`         // Explicit file list, overrides the scan
	MaxColors    int      `mapstructure:"max_colors"`    // Palette size cap
	Method       string   `mapstructure:"method"`        // mediancut or kmeans
	OutputDir    string   `mapstructure:"output_dir"`    // Alternate destination directory
	OutputSuffix string   `mapstructure:"output_suffix"` // Appended to the output stem
	SwatchDir    string   `mapstructure:"swatch_dir"`    // Palette swatch destination
	Verify       bool     `mapstructure:"verify"`        // Re-decode outputs
	Quality      bool     `mapstructure:"quality"`       // Report ΔE00 per file

	Log     Log     `mapstructure:"log"`
	Storage Storage `mapstructure:"storage"`
}

// Log holds logging configuration.
type Log struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Format string `mapstructure:"format"` // console or json
}

// Storage holds the optional upload target.
type Storage struct {
	Enabled bool `mapstructure:"enabled"`

	storage.Config `mapstructure:",squash"`
}

// flagKeys maps configuration keys to the flag names that override them.
var flagKeys = map[string]string{
	"folder":        "folder",
	"files":         "files",
	"max_colors":    "max-colors",
	"method":        "method",
	"output_dir":    "output-dir",
	"output_suffix": "output-suffix",
	"swatch_dir":    "swatch-dir",
	"verify":        "verify",
	"quality":       "quality",
	"log.level":     "log-level",
	"log.format":    "log-format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("folder", ".")
	v.SetDefault("files", []string{})
	v.SetDefault("max_colors", quantize.DefaultColors)
	v.SetDefault("method", string(quantize.MethodMedianCut))
	v.SetDefault("output_dir", "")
	v.SetDefault("output_suffix", "")
	v.SetDefault("swatch_dir", "")
	v.SetDefault("verify", true)
	v.SetDefault("quality", false)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "")
}

// Load builds the configuration.
//
// Parameters:
//   - path: YAML file to read. Empty means ./palette-reducer.yml (or .yaml)
//     when it exists.
//   - flags: Flag set whose changed flags override other sources. May be nil.
//
// Returns the validated configuration or an error describing the first
// problem found.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName(DefaultFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.MaxColors < 1 || c.MaxColors > quantize.MaxPaletteSize {
		return fmt.Errorf("max_colors must be between 1 and %d, got %d", quantize.MaxPaletteSize, c.MaxColors)
	}
	if _, err := quantize.ParseMethod(c.Method); err != nil {
		return fmt.Errorf("method: %w", err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}

// ReducerOptions returns the reducer settings of the configuration.
func (c *Config) ReducerOptions() reducer.Options {
	method, _ := quantize.ParseMethod(c.Method)
	return reducer.Options{
		MaxColors: c.MaxColors,
		Method:    method,
		Verify:    c.Verify,
		Quality:   c.Quality,
		SwatchDir: c.SwatchDir,
	}
}
