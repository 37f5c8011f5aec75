package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/savestate/internal/logger"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output-dir", "", "")
	fs.Bool("include-tests", false, "")
	fs.String("log-level", "info", "")
	fs.Bool("log-json", false, "")
	fs.Bool("log-source", false, "")
	fs.Bool("unrelated", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad(t *testing.T) {
	t.Run("Should return defaults when nothing is set", func(t *testing.T) {
		cfg, err := Load(Options{Environ: environ()})
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Should apply environment variables over defaults", func(t *testing.T) {
		cfg, err := Load(Options{Environ: environ(
			"SAVESTATE_OUTPUT_DIR=/tmp/gen",
			"SAVESTATE_INCLUDE_TESTS=true",
			"SAVESTATE_LOG_LEVEL=DEBUG",
			"SAVESTATE_UNKNOWN=ignored",
			"HOME=/root",
		)})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/gen", cfg.OutputDir)
		assert.True(t, cfg.IncludeTests)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Should apply explicitly set flags over environment variables", func(t *testing.T) {
		fs := newFlags(t, "--output-dir", "out", "--log-json")
		cfg, err := Load(Options{
			Flags:   fs,
			Environ: environ("SAVESTATE_OUTPUT_DIR=/tmp/gen", "SAVESTATE_LOG_LEVEL=warn"),
		})
		require.NoError(t, err)
		assert.Equal(t, "out", cfg.OutputDir)
		assert.True(t, cfg.Log.JSON)
		// the flag's default must not override the environment
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("Should reject unknown log levels", func(t *testing.T) {
		_, err := Load(Options{Environ: environ("SAVESTATE_LOG_LEVEL=verbose")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown log level "verbose"`)
	})
}

func TestConfig_LoggerConfig(t *testing.T) {
	t.Run("Should map log settings onto the logger configuration", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Level = "error"
		cfg.Log.JSON = true
		cfg.Log.Source = true

		lc := cfg.LoggerConfig()
		assert.Equal(t, logger.ErrorLevel, lc.Level)
		assert.True(t, lc.JSON)
		assert.True(t, lc.AddSource)
	})
}
