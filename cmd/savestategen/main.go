// Command savestategen generates store adapters for the struct fields of the
// given packages that are annotated with @savestate.SaveState.
//
//	savestategen [flags] <package> [<package> ...]
//
// Settings can also be given with SAVESTATE_* environment variables, such as
// SAVESTATE_OUTPUT_DIR and SAVESTATE_LOG_LEVEL. Flags win over the
// environment. The exit status is 1 when any error was reported.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jhump/savestate/internal/config"
	"github.com/jhump/savestate/internal/logger"
	"github.com/jhump/savestate/processor"
)

func init() {
	processor.RegisterProcessor("savestate", processor.SaveStateProcessor)
}

func main() {
	cmd := newRootCommand(os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, processor.ErrProcessingFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand(diagOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "savestategen <package> [<package> ...]",
		Short:         "Generate store adapters for @savestate.SaveState fields",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	def := config.Default()
	flags := cmd.Flags()
	flags.String("output-dir", def.OutputDir,
		"Root directory for generated files, organized by package path. Defaults to each package's source directory.")
	flags.Bool("include-tests", def.IncludeTests, "Also process test files")
	flags.String("log-level", def.Log.Level, "Log level: debug, info, warn, error or disabled")
	flags.Bool("log-json", def.Log.JSON, "Log in JSON format")
	flags.Bool("log-source", def.Log.Source, "Include source locations in log output")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{Flags: cmd.Flags()})
		if err != nil {
			return err
		}
		ctx := logger.ContextWithLogger(cmd.Context(), logger.NewLogger(cfg.LoggerConfig()))
		return run(ctx, cfg, args, afero.NewOsFs(), diagOut)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, pkgs []string, fs afero.Fs, diagOut io.Writer) error {
	log := logger.FromContext(ctx)
	if cfg.OutputDir != "" {
		info, err := fs.Stat(cfg.OutputDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("specified directory, %s, does not exist", cfg.OutputDir)
		} else if err != nil {
			return fmt.Errorf("failed to check specified directory, %s: %w", cfg.OutputDir, err)
		} else if !info.IsDir() {
			return fmt.Errorf("specified output, %s, is not a directory", cfg.OutputDir)
		}
	}

	importPkgs := map[string]bool{}
	for _, pkg := range pkgs {
		importPkgs[pkg] = cfg.IncludeTests
	}
	msgs := processor.NewMessager(nil)
	log.Debug("running processors", "processors", processor.RegisteredProcessorNames(), "packages", pkgs)
	pc := processor.Config{
		ImportPkgs:    importPkgs,
		Processors:    processor.AllRegisteredProcessors(),
		OutputFactory: processor.NewFileSystemOutput(fs, cfg.OutputDir),
		Logger:        log,
		Messager:      msgs,
	}
	err := pc.Execute()
	for _, d := range msgs.Diagnostics() {
		fmt.Fprintln(diagOut, d)
	}
	if err != nil {
		return err
	}
	log.Info("processing complete", "packages", len(pkgs))
	return nil
}
