// Package config loads the settings of the savestategen command. Values come
// from built-in defaults, then SAVESTATE_* environment variables, then
// command-line flags that were explicitly set, each overriding the last.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/jhump/savestate/internal/logger"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SAVESTATE_"

type Config struct {
	// OutputDir is the root under which generated files are written, in a
	// sub-directory per package import path. When empty, files are written
	// next to the sources of the package they belong to.
	OutputDir    string    `koanf:"output_dir"`
	IncludeTests bool      `koanf:"include_tests"`
	Log          LogConfig `koanf:"log"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

func Default() *Config {
	return &Config{
		OutputDir:    "",
		IncludeTests: false,
		Log: LogConfig{
			Level:  string(logger.InfoLevel),
			JSON:   false,
			Source: false,
		},
	}
}

// LoggerConfig converts the log settings into a logger configuration.
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.LogLevel(c.Log.Level)
	cfg.JSON = c.Log.JSON
	cfg.AddSource = c.Log.Source
	return cfg
}

var envToPath = map[string]string{
	"SAVESTATE_OUTPUT_DIR":    "output_dir",
	"SAVESTATE_INCLUDE_TESTS": "include_tests",
	"SAVESTATE_LOG_LEVEL":     "log.level",
	"SAVESTATE_LOG_JSON":      "log.json",
	"SAVESTATE_LOG_SOURCE":    "log.source",
}

var flagToPath = map[string]string{
	"output-dir":    "output_dir",
	"include-tests": "include_tests",
	"log-level":     "log.level",
	"log-json":      "log.json",
	"log-source":    "log.source",
}

// Options control where Load reads from. The zero value reads the process
// environment and no flags.
type Options struct {
	Flags *pflag.FlagSet
	// Environ replaces os.Environ.
	Environ func() []string
}

// Load merges defaults, environment variables and flags into a Config.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envToPath[key], value
		},
		EnvironFunc: opts.Environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if opts.Flags != nil {
		p := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			path, ok := flagToPath[f.Name]
			if !ok {
				return "", nil
			}
			return path, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(c.Log.Level)
	switch logger.LogLevel(c.Log.Level) {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel, logger.DisabledLevel:
		return nil
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
}
