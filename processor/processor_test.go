package processor

import (
	"errors"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/loader"

	"github.com/jhump/savestate"
)

const fixtureFile = "/work/app/app.go"

func fixtureConfig(t *testing.T, src string, procs ...Processor) (*Config, afero.Fs) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, fixtureFile, src, goparser.ParseComments)
	require.NoError(t, err)
	fs := afero.NewMemMapFs()
	return &Config{
		Fset:          fset,
		CreatePkgs:    []loader.PkgSpec{{Path: "example.com/app", Files: []*ast.File{f}}},
		Processors:    procs,
		OutputFactory: NewFileSystemOutput(fs, "/out"),
		Messager:      NewMessager(nil),
	}, fs
}

func lineOf(t *testing.T, src, text string) int {
	t.Helper()
	i := strings.Index(src, text)
	require.GreaterOrEqual(t, i, 0, text)
	return strings.Count(src[:i], "\n") + 1
}

const widgetSource = `package app

type Shade int

const (
	Light Shade = iota
	Medium
	Dark
)

type Widget struct {
	// @savestate.SaveState{DefaultValue: "3"}
	Count int
	// @savestate.SaveState{DefaultValue: "Dark", MinSdk: savestate.Honeycomb}
	Shade Shade
	Note  string
}
`

func TestExecute(t *testing.T) {
	t.Run("Should write an adapter for each owner", func(t *testing.T) {
		cfg, fs := fixtureConfig(t, widgetSource, SaveStateProcessor)
		require.NoError(t, cfg.Execute())
		assert.Empty(t, cfg.Messager.Diagnostics())

		src, err := afero.ReadFile(fs, "/out/example.com/app/widget_storeadapter.go")
		require.NoError(t, err)
		out := string(src)
		assert.True(t, strings.HasPrefix(out, "// "+GeneratedHeader))
		assert.Contains(t, out, `target.Count = b.GetInt("Count", 3)`)
		assert.Contains(t, out, "if b.SdkAtLeast(savestate.Honeycomb) {")
		assert.Contains(t, out, `b.GetInt("Shade", 2)`)
		assert.NotContains(t, out, "Note")
	})

	t.Run("Should reject levels below the floor", func(t *testing.T) {
		src := `package app

type Widget struct {
	// @savestate.SaveState{MinSdk: 5}
	Count int
}
`
		cfg, fs := fixtureConfig(t, src, SaveStateProcessor)
		err := cfg.Execute()
		require.ErrorIs(t, err, ErrProcessingFailed)
		assert.EqualError(t, err, "annotation processing failed: 1 error")

		diags := cfg.Messager.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, "SaveState.MinSdk must be FROYO(8)+", diags[0].Message)
		assert.Equal(t, fixtureFile, diags[0].Pos.Filename)
		assert.Equal(t, lineOf(t, src, "Count int"), diags[0].Pos.Line)

		exists, err := afero.Exists(fs, "/out/example.com/app/widget_storeadapter.go")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should skip only owners with unsupported fields", func(t *testing.T) {
		src := `package app

type Namer interface{ Name() string }

type Widget struct {
	// @savestate.SaveState
	Count int
	// @savestate.SaveState
	Source Namer
}

type Gadget struct {
	// @savestate.SaveState
	Name string
}
`
		cfg, fs := fixtureConfig(t, src, SaveStateProcessor)
		require.ErrorIs(t, cfg.Execute(), ErrProcessingFailed)

		diags := cfg.Messager.Diagnostics()
		require.Len(t, diags, 1)
		assert.True(t, strings.HasPrefix(diags[0].Message, "@SaveState fields of type example.com/app.Namer are not supported: "))
		assert.True(t, strings.HasSuffix(diags[0].Message, "(example.com/app.Widget.Source)"))

		exists, err := afero.Exists(fs, "/out/example.com/app/widget_storeadapter.go")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = afero.Exists(fs, "/out/example.com/app/gadget_storeadapter.go")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Should reject annotated package variables", func(t *testing.T) {
		src := `package app

// @savestate.SaveState
var Version int
`
		cfg, _ := fixtureConfig(t, src, SaveStateProcessor)
		require.ErrorIs(t, cfg.Execute(), ErrProcessingFailed)
		assert.Equal(t, []string{
			"@SaveState fields must not be private or static. (example.com/app.Version)",
			"@SaveState fields may only be contained in classes. (example.com/app.Version)",
		}, messages(cfg.Messager))
	})

	t.Run("Should reject fields of types declared in functions", func(t *testing.T) {
		src := `package app

func render() int {
	type frame struct {
		// @savestate.SaveState
		Count int
	}
	return frame{}.Count
}
`
		cfg, _ := fixtureConfig(t, src, SaveStateProcessor)
		require.ErrorIs(t, cfg.Execute(), ErrProcessingFailed)
		assert.Equal(t, []string{
			"@SaveState fields may not be contained in private classes (example.com/app.render.frame.Count)",
		}, messages(cfg.Messager))
		assert.Equal(t, lineOf(t, src, "type frame"), cfg.Messager.Diagnostics()[0].Pos.Line)
	})

	t.Run("Should report malformed annotations where they are", func(t *testing.T) {
		src := `package app

type Widget struct {
	// @savestate.SaveState{DefaultValue "x"}
	Count int
	// @savestate.SaveState{Color: "red"}
	Label string
	// @savestate.SaveState
	// @savestate.SaveState
	Scale float64
}
`
		cfg, fs := fixtureConfig(t, src, SaveStateProcessor)
		err := cfg.Execute()
		require.ErrorIs(t, err, ErrProcessingFailed)
		assert.EqualError(t, err, "annotation processing failed: 3 errors")

		diags := cfg.Messager.Diagnostics()
		require.Len(t, diags, 3)
		assert.Equal(t, fixtureFile, diags[0].Pos.Filename)
		assert.Equal(t, lineOf(t, src, `{DefaultValue "x"}`), diags[0].Pos.Line)
		assert.Equal(t, "SaveState has no attribute Color", diags[1].Message)
		assert.Equal(t, lineOf(t, src, "Color"), diags[1].Pos.Line)
		assert.Equal(t, "@SaveState may appear only once on Scale", diags[2].Message)

		exists, err := afero.Exists(fs, "/out/example.com/app/widget_storeadapter.go")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should ignore annotations of other packages", func(t *testing.T) {
		src := `package app

type Widget struct {
	// @other.SaveState
	Count int
}
`
		cfg, fs := fixtureConfig(t, src, SaveStateProcessor)
		require.NoError(t, cfg.Execute())
		assert.Empty(t, cfg.Messager.Diagnostics())
		files, err := afero.Glob(fs, "/out/*/*/*")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestExecute_Processors(t *testing.T) {
	t.Run("Should stop at the processor that claims", func(t *testing.T) {
		var calls []string
		first := func(ctx *Context, _ OutputFactory) (bool, error) {
			calls = append(calls, "first")
			return true, nil
		}
		second := func(ctx *Context, _ OutputFactory) (bool, error) {
			calls = append(calls, "second")
			return false, nil
		}
		cfg, _ := fixtureConfig(t, widgetSource, first, second)
		require.NoError(t, cfg.Execute())
		assert.Equal(t, []string{"first"}, calls)
	})

	t.Run("Should run every processor when none claims", func(t *testing.T) {
		var calls int
		count := func(ctx *Context, _ OutputFactory) (bool, error) {
			calls++
			return false, nil
		}
		cfg, fs := fixtureConfig(t, widgetSource, SaveStateProcessor, count)
		require.NoError(t, cfg.Execute())
		assert.Equal(t, 1, calls)
		exists, err := afero.Exists(fs, "/out/example.com/app/widget_storeadapter.go")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Should abort on processor errors", func(t *testing.T) {
		boom := errors.New("boom")
		fail := func(ctx *Context, _ OutputFactory) (bool, error) {
			return false, boom
		}
		cfg, _ := fixtureConfig(t, widgetSource, fail)
		assert.ErrorIs(t, cfg.Execute(), boom)
	})

	t.Run("Should report output failures per owner", func(t *testing.T) {
		cfg, _ := fixtureConfig(t, widgetSource, SaveStateProcessor)
		cfg.OutputFactory = NewFileSystemOutput(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/out")
		require.ErrorIs(t, cfg.Execute(), ErrProcessingFailed)
		msgs := messages(cfg.Messager)
		require.Len(t, msgs, 1)
		assert.True(t, strings.HasPrefix(msgs[0], "unable to write store adapter for type example.com/app.Widget: "))
	})
}

func TestScan(t *testing.T) {
	src := `package app

type Shade int

const (
	// @savestate.SaveState
	Light Shade = iota
	Dark
)

type Widget struct {
	// @savestate.SaveState{DefaultValue: "untitled", MinSdk: savestate.Honeycomb}
	Label string
	// @savestate.SaveState{MinSdk: 11}
	_ int
	Inner struct {
		// @savestate.SaveState
		Depth int
	}
}

type Renderer interface {
	// @savestate.SaveState
	Render() error
}
`
	var decls []*DeclarationInfo
	capture := func(ctx *Context, _ OutputFactory) (bool, error) {
		decls = ctx.Declarations()
		return false, nil
	}
	cfg, _ := fixtureConfig(t, src, capture)
	require.NoError(t, cfg.Execute())
	require.Len(t, decls, 5)

	type summary struct {
		name  string
		kind  Kind
		mods  Modifiers
		owner string
	}
	var got []summary
	for _, d := range decls {
		got = append(got, summary{d.Name, d.Enclosing.Kind, d.Modifiers, d.Enclosing.Name})
	}
	assert.Equal(t, []summary{
		{"Light", KindEnum, Static, "Shade"},
		{"Label", KindClass, 0, "Widget"},
		{"_", KindClass, Private, "Widget"},
		{"Depth", KindAnonymous, 0, "Widget.Inner"},
		{"Render", KindInterface, 0, "Renderer"},
	}, got)

	label := decls[1]
	assert.Equal(t, "untitled", label.DefaultValue)
	assert.Equal(t, savestate.Honeycomb, label.MinSdk)
	assert.Equal(t, "/work/app", label.Enclosing.SourceDir)
	assert.Equal(t, "example.com/app.Widget.Label", label.QualifiedName())
	assert.Equal(t, lineOf(t, src, "Label string"), label.Pos.Line)

	assert.Equal(t, savestate.SdkVersion(11), decls[2].MinSdk)
	assert.Equal(t, savestate.MinSdkFloor, decls[3].MinSdk)
}

func TestRuntimeQualifier(t *testing.T) {
	cases := map[string]string{
		"package a": "savestate",
		`package a; import "github.com/jhump/savestate"`:    "savestate",
		`package a; import ss "github.com/jhump/savestate"`: "ss",
		`package a; import . "github.com/jhump/savestate"`:  "",
		`package a; import _ "github.com/jhump/savestate"`:  "savestate",
		`package a; import other "example.com/savestate"`:   "savestate",
	}
	for src, want := range cases {
		f, err := goparser.ParseFile(token.NewFileSet(), "a.go", src, goparser.ImportsOnly)
		require.NoError(t, err)
		assert.Equal(t, want, runtimeQualifier(f), src)
	}
}

func TestDetermineOutputDir(t *testing.T) {
	target := Target{PackagePath: "example.com/app", FileName: "w.go", SourceDir: "/src/app"}

	dir, err := determineOutputDir("/out", target)
	require.NoError(t, err)
	assert.Equal(t, "/out/example.com/app", dir)

	dir, err = determineOutputDir("", target)
	require.NoError(t, err)
	assert.Equal(t, "/src/app", dir)

	_, err = determineOutputDir("", Target{PackagePath: "example.com/app"})
	assert.ErrorContains(t, err, "could not determine output directory")

	_, err = determineOutputDir("", Target{PackagePath: "fmt", SourceDir: "/goroot/src/fmt"})
	assert.ErrorContains(t, err, "because it is in GOROOT")
}
