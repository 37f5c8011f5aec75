package processor

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifyFixture = `package app

type Shade int

const (
	Light Shade = iota
	Medium
	Dark
	Default = Medium
)

type Grams uint16

type Label string

type Point struct{ X, Y int32 }

func (p Point) MarshalBinary() ([]byte, error)     { return nil, nil }
func (p *Point) UnmarshalBinary(data []byte) error { return nil }

type Codec interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

type Stringer interface{ String() string }

type Box[T ~int, U Codec, V any, E interface{ Shade }] struct {
	A T
	B U
	C V
	D E
}

type Fields struct {
	Int      int
	Byte     byte
	Uintptr  uintptr
	Complex  complex128
	IntPtr   *int
	StrPtr   *string
	PtrPtr   **int
	Str      string
	Shade    Shade
	Grams    Grams
	Label    Label
	Ints     []int
	Names    [4]string
	Funcs    []func()
	Point    Point
	PointPtr *Point
	Codec    Codec
	Map      map[string]int
	Stringer Stringer
	Chan     chan int
}
`

func checkFixture(t *testing.T, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, "fixture.go", src, goparser.ParseComments)
	require.NoError(t, err)
	pkg, err := (&types.Config{}).Check("example.com/app", fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return pkg
}

func structFields(t *testing.T, pkg *types.Package, name string) map[string]*types.Var {
	t.Helper()
	obj := pkg.Scope().Lookup(name)
	require.NotNil(t, obj, name)
	st, ok := obj.Type().Underlying().(*types.Struct)
	require.True(t, ok, "%s is not a struct", name)
	fields := map[string]*types.Var{}
	for i := 0; i < st.NumFields(); i++ {
		fields[st.Field(i).Name()] = st.Field(i)
	}
	return fields
}

func TestClassify(t *testing.T) {
	pkg := checkFixture(t, classifyFixture)
	fields := structFields(t, pkg, "Fields")
	c := &Classifier{Pkg: pkg}
	classify := func(name string) *Classification {
		return c.Classify(fields[name].Type())
	}

	t.Run("Should map basic values to their accessor kind", func(t *testing.T) {
		cls := classify("Int")
		assert.Equal(t, Primitive, cls.Category)
		assert.Equal(t, types.Int, cls.Basic.Kind())

		cls = classify("Byte")
		assert.Equal(t, Primitive, cls.Category)
		assert.Equal(t, types.Uint8, cls.Basic.Kind())

		assert.Equal(t, Text, classify("Str").Category)
	})

	t.Run("Should reject basic kinds without accessors", func(t *testing.T) {
		for _, name := range []string{"Uintptr", "Complex", "Map", "Stringer", "Chan", "PtrPtr"} {
			cls := classify(name)
			assert.Equal(t, Unsupported, cls.Category, name)
			assert.NotEmpty(t, cls.Reason, name)
		}
		assert.Contains(t, classify("Map").Reason, "maps")
	})

	t.Run("Should box pointers to primitives and text", func(t *testing.T) {
		cls := classify("IntPtr")
		assert.Equal(t, Boxed, cls.Category)
		assert.Equal(t, types.Int, cls.Basic.Kind())
		assert.Equal(t, Primitive, cls.Elem.Category)

		cls = classify("StrPtr")
		assert.Equal(t, Boxed, cls.Category)
		assert.Equal(t, types.String, cls.Basic.Kind())
	})

	t.Run("Should treat named integers with constants as enums", func(t *testing.T) {
		cls := classify("Shade")
		require.Equal(t, Enum, cls.Category)
		var names []string
		for _, k := range cls.Constants {
			names = append(names, k.Name())
		}
		assert.Equal(t, []string{"Light", "Medium", "Dark"}, names)
	})

	t.Run("Should convert defined types without constants", func(t *testing.T) {
		cls := classify("Grams")
		assert.Equal(t, Primitive, cls.Category)
		assert.Equal(t, types.Uint16, cls.Basic.Kind())

		assert.Equal(t, Text, classify("Label").Category)
	})

	t.Run("Should classify slices and arrays by element", func(t *testing.T) {
		cls := classify("Ints")
		require.Equal(t, Array, cls.Category)
		assert.Equal(t, int64(-1), cls.Len)
		assert.Equal(t, Primitive, cls.Elem.Category)

		cls = classify("Names")
		require.Equal(t, Array, cls.Category)
		assert.Equal(t, int64(4), cls.Len)
		assert.Equal(t, Text, cls.Elem.Category)

		cls = classify("Funcs")
		assert.Equal(t, Unsupported, cls.Category)
		assert.Contains(t, cls.Reason, "element type")
	})

	t.Run("Should detect types that marshal themselves", func(t *testing.T) {
		cls := classify("Point")
		require.Equal(t, Structured, cls.Category)
		assert.True(t, cls.Indirect)
		assert.False(t, cls.Pointer)

		cls = classify("PointPtr")
		require.Equal(t, Structured, cls.Category)
		assert.True(t, cls.Pointer)

		cls = classify("Codec")
		require.Equal(t, Structured, cls.Category)
		assert.True(t, cls.Interface)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		for name := range fields {
			assert.Equal(t, classify(name).Category, classify(name).Category, name)
		}
	})
}

func TestClassifyBinding(t *testing.T) {
	pkg := checkFixture(t, classifyFixture)
	fields := structFields(t, pkg, "Box")
	c := &Classifier{Pkg: pkg}
	bind := func(name string) *Classification {
		return c.ClassifyBinding(NewFieldBinding(&DeclarationInfo{Name: name, Type: fields[name].Type()}))
	}

	t.Run("Should resolve a type parameter to its single type term", func(t *testing.T) {
		b := NewFieldBinding(&DeclarationInfo{Name: "A", Type: fields["A"].Type()})
		assert.True(t, types.Identical(types.Typ[types.Int], b.ResolvedType))
		assert.Equal(t, Primitive, bind("A").Category)
	})

	t.Run("Should allow structured interface bounds", func(t *testing.T) {
		cls := bind("B")
		assert.Equal(t, Structured, cls.Category)
		assert.True(t, cls.Interface)
	})

	t.Run("Should reject other bounds", func(t *testing.T) {
		assert.Equal(t, Unsupported, bind("C").Category)
		cls := bind("D")
		assert.Equal(t, Unsupported, cls.Category)
		assert.Contains(t, cls.Reason, "enum bound")
	})
}
