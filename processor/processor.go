package processor

import (
	"errors"
	"fmt"
	goparser "go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/tools/go/loader"

	"github.com/jhump/savestate/internal/logger"
)

// ErrProcessingFailed is returned by Config.Execute when any processor
// reported an error diagnostic.
var ErrProcessingFailed = errors.New("annotation processing failed")

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a source file where the error
// was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Underlying returns the underlying error.
func (e *ErrorWithPosition) Underlying() error {
	return e.err
}

func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}

// Target identifies a generated file: the package it belongs to, the type it
// declares, and the owner type it was generated for.
type Target struct {
	PackagePath string
	PackageName string
	TypeName    string
	FileName    string
	// Owner is the qualified name of the owner type.
	Owner string
	// SourceDir is the directory holding the owner's sources, if known.
	SourceDir string
}

// Path returns the package path joined with the file name.
func (t Target) Path() string {
	return path.Join(t.PackagePath, t.FileName)
}

// OutputFactory is a function that creates a writer for the given target.
// The processor always closes the returned writer, whether or not writing
// succeeded.
type OutputFactory func(t Target) (io.WriteCloser, error)

// Processor is a function that acts on the annotated declarations of one
// package. It returns true if it claimed the annotations it handled, in which
// case processors after it are not run for that package. Problems with the
// sources are reported through the context's Messager; a returned error
// aborts all processing.
type Processor func(ctx *Context, output OutputFactory) (claimed bool, err error)

// DefaultOutputFactory returns the OutputFactory used when a Config names
// none. It writes to the operating system's file system.
func DefaultOutputFactory(rootDir string) OutputFactory {
	return NewFileSystemOutput(afero.NewOsFs(), rootDir)
}

// NewFileSystemOutput returns an OutputFactory that creates files in fs. If
// rootDir is not blank, the file for a target is <rootDir>/<package path>/<file>.
// Otherwise it is written into the directory that holds the owner's sources.
//
// Existing files are truncated.
func NewFileSystemOutput(fs afero.Fs, rootDir string) OutputFactory {
	return func(t Target) (io.WriteCloser, error) {
		dir, err := determineOutputDir(rootDir, t)
		if err != nil {
			return nil, err
		}
		if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create output directory %s: %w", dir, err)
		}
		return fs.OpenFile(filepath.Join(dir, t.FileName), os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

func determineOutputDir(root string, t Target) (string, error) {
	if root != "" {
		return filepath.Join(root, filepath.FromSlash(t.PackagePath)), nil
	}
	if DefaultIsStandard(t.PackagePath) {
		return "", fmt.Errorf("cannot generate output for package %q because it is in GOROOT", t.PackagePath)
	}
	if t.SourceDir == "" {
		return "", fmt.Errorf("could not determine output directory for package %q", t.PackagePath)
	}
	return t.SourceDir, nil
}

// Config represents the configuration for running one or more Processors.
// Callers should configure the exported fields and then call the Execute
// method to actually invoke the processors.
type Config struct {
	// Fset is the file set of any pre-parsed files in CreatePkgs. If nil, a
	// new one is used.
	Fset          *token.FileSet
	ImportPkgs    map[string]bool
	CreatePkgs    []loader.PkgSpec
	Processors    []Processor
	OutputFactory OutputFactory

	// Logger receives progress messages. Nil discards them.
	Logger logger.Logger
	// Messager collects diagnostics. If nil, a new one is used that logs to
	// Logger.
	Messager *Messager
	// IsStandard overrides DefaultIsStandard.
	IsStandard func(pkgPath string) bool
}

// Execute invokes the configured processors for the configured packages,
// one package at a time. It returns an error wrapping ErrProcessingFailed if
// any error diagnostic was reported, after every package has been processed.
func (cfg *Config) Execute() error {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	msgs := cfg.Messager
	if msgs == nil {
		msgs = NewMessager(log)
	}
	output := cfg.OutputFactory
	if output == nil {
		output = DefaultOutputFactory("")
	}
	isStandard := cfg.IsStandard
	if isStandard == nil {
		isStandard = DefaultIsStandard
	}

	processed := map[string]bool{}
	for p := range cfg.ImportPkgs {
		processed[p] = true
		processed[p+"_test"] = true
	}
	for _, spec := range cfg.CreatePkgs {
		processed[spec.Path] = true
	}
	conf := loader.Config{
		Fset:       cfg.Fset,
		ParserMode: goparser.ParseComments,
		// types declared inside of function bodies can be annotated too
		TypeCheckFuncBodies: func(p string) bool { return processed[p] },
		ImportPkgs:          cfg.ImportPkgs,
		CreatePkgs:          cfg.CreatePkgs,
	}
	prg, err := conf.Load()
	if err != nil {
		return err
	}
	for _, pkgInfo := range prg.InitialPackages() {
		ctx := newContext(pkgInfo, prg, msgs, log.With("package", pkgInfo.Pkg.Path()), isStandard)
		ctx.scan()
		ctx.Logger.Debug("scanned package", "declarations", len(ctx.decls))
		for i, proc := range cfg.Processors {
			claimed, err := proc(ctx, output)
			if err != nil {
				return err
			}
			if claimed {
				ctx.Logger.Debug("annotations claimed", "processor", i)
				break
			}
		}
	}
	if n := msgs.ErrorCount(); n > 0 {
		return fmt.Errorf("%w: %d %s", ErrProcessingFailed, n, plural(n, "error"))
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Context represents the environment for an annotation processor. It represents
// a single package (for which the processors were invoked).
type Context struct {
	// Package holds all information about the package being processed. It
	// provides access to the ASTs of files in the package as well as the
	// results of type analysis, to allow for introspection of package elements.
	Package *loader.PackageInfo

	// Program holds information about an entire program being processed, which
	// includes any packages that are being processed as well as their
	// dependencies. This also provides access to the token.FileSet, which can
	// be used to resolve details for source code locations.
	Program *loader.Program

	Messager   *Messager
	Logger     logger.Logger
	IsStandard func(pkgPath string) bool

	decls []*DeclarationInfo
}

func newContext(pkg *loader.PackageInfo, prg *loader.Program, msgs *Messager, log logger.Logger, isStandard func(string) bool) *Context {
	return &Context{
		Package:    pkg,
		Program:    prg,
		Messager:   msgs,
		Logger:     log,
		IsStandard: isStandard,
	}
}

// Declarations returns every element of the package annotated with
// @savestate.SaveState, in source order. Elements whose annotations could not
// be understood have already been reported and are not included.
func (c *Context) Declarations() []*DeclarationInfo {
	return c.decls
}

func (c *Context) position(pos token.Pos) token.Position {
	return c.Program.Fset.Position(pos)
}

func (c *Context) sourceDir(pos token.Pos) string {
	name := c.position(pos).Filename
	if name == "" || !strings.ContainsRune(name, filepath.Separator) && !strings.ContainsRune(name, '/') {
		return ""
	}
	return filepath.Dir(name)
}
