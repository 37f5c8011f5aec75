package processor

import (
	"bytes"
	"errors"
	"fmt"
	"go/types"
	"math"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/jhump/savestate"
)

const runtimePkg = "github.com/jhump/savestate"

// GeneratedHeader is the first line of every generated file.
const GeneratedHeader = "Code generated by savestategen. DO NOT EDIT."

// StoreAdapterGenerator renders the source of store adapters.
type StoreAdapterGenerator struct{}

// Generate returns the formatted source of the adapter for u. It either
// returns a complete file or an error describing every field that could not
// be rendered.
func (g *StoreAdapterGenerator) Generate(u *GenerationUnit) ([]byte, error) {
	if u.Failed {
		return nil, fmt.Errorf("%s has fields of unsupported types", u.QualifiedOwnerName)
	}
	fg := &fileGen{unit: u}
	f := jen.NewFilePathName(u.GeneratedPackage, u.PackageName)
	f.HeaderComment(GeneratedHeader)
	f.ImportName(runtimePkg, "savestate")

	save := &methodGen{file: fg, counters: map[string]int{}}
	restore := &methodGen{file: fg, counters: map[string]int{}}
	var saveBody, restoreBody []jen.Code
	var errs []error
	for _, field := range u.Fields {
		s, err := save.saveField(field)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", field.Name, err))
			continue
		}
		r, err := restore.restoreField(field)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", field.Name, err))
			continue
		}
		saveBody = append(saveBody, s...)
		restoreBody = append(restoreBody, r...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	saveBody = append(saveBody, jen.Return(jen.Nil()))
	restoreBody = append(restoreBody, jen.Return(jen.Nil()))

	f.Commentf("%s saves and restores the annotated fields of %s.", u.GeneratedClassName, u.OwnerName)
	f.Type().Id(u.GeneratedClassName).Add(fg.typeParamDecls()).Struct()
	f.Line()
	if !u.Generic() {
		f.Var().Id("_").Qual(runtimePkg, "StoreAdapter").Types(fg.ownerType()).Op("=").Id(u.GeneratedClassName).Values()
		f.Line()
		f.Func().Id("init").Params().Block(
			jen.Qual(runtimePkg, "Register").Types(fg.ownerType()).Call(jen.Id(u.GeneratedClassName).Values()),
		)
		f.Line()
	}
	f.Func().Params(fg.adapterType()).Id("Save").
		Params(jen.Id("source").Op("*").Add(fg.ownerType()), jen.Id("b").Qual(runtimePkg, "Bundle")).
		Error().Block(saveBody...)
	f.Line()
	f.Func().Params(fg.adapterType()).Id("Restore").
		Params(jen.Id("b").Qual(runtimePkg, "Bundle"), jen.Id("target").Op("*").Add(fg.ownerType())).
		Error().Block(restoreBody...)
	for _, ev := range fg.enums {
		f.Line()
		vals := make([]jen.Code, len(ev.cls.Constants))
		for i, k := range ev.cls.Constants {
			vals[i] = jen.Qual(k.Pkg().Path(), k.Name())
		}
		f.Var().Id(ev.name).Op("=").Index().Add(typeCode(ev.cls.Type)).Values(vals...)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", u.FileName, err)
	}
	return buf.Bytes(), nil
}

type enumVar struct {
	name string
	cls  *Classification
}

type fileGen struct {
	unit  *GenerationUnit
	enums []enumVar
}

func (fg *fileGen) typeParamDecls() jen.Code {
	if !fg.unit.Generic() {
		return jen.Null()
	}
	return jen.TypesFunc(func(g *jen.Group) {
		for i := 0; i < fg.unit.TypeParams.Len(); i++ {
			tp := fg.unit.TypeParams.At(i)
			g.Id(tp.Obj().Name()).Add(constraintCode(tp.Constraint()))
		}
	})
}

func (fg *fileGen) typeArgs(name string) *jen.Statement {
	s := jen.Id(name)
	if !fg.unit.Generic() {
		return s
	}
	args := make([]jen.Code, fg.unit.TypeParams.Len())
	for i := range args {
		args[i] = jen.Id(fg.unit.TypeParams.At(i).Obj().Name())
	}
	return s.Types(args...)
}

func (fg *fileGen) ownerType() *jen.Statement {
	return fg.typeArgs(fg.unit.OwnerName)
}

func (fg *fileGen) adapterType() *jen.Statement {
	return fg.typeArgs(fg.unit.GeneratedClassName)
}

// enumValues returns the name of the package-level slice holding the
// constants of an enumerated type, declaring it on first use.
func (fg *fileGen) enumValues(c *Classification) string {
	for _, ev := range fg.enums {
		if types.Identical(ev.cls.Type, c.Type) {
			return ev.name
		}
	}
	base := lowerFirst(fg.unit.GeneratedClassName) + typeName(c.Type) + "Values"
	name := base
	for i := 1; fg.hasEnumVar(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	fg.enums = append(fg.enums, enumVar{name: name, cls: c})
	return name
}

func (fg *fileGen) hasEnumVar(name string) bool {
	for _, ev := range fg.enums {
		if ev.name == name {
			return true
		}
	}
	return false
}

type methodGen struct {
	file     *fileGen
	counters map[string]int
}

func (m *methodGen) temp(prefix string) string {
	n := m.counters[prefix]
	m.counters[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

type access func() *jen.Statement

func (m *methodGen) saveField(f *FieldBinding) ([]jen.Code, error) {
	val := func() *jen.Statement { return jen.Id("source").Dot(f.Name) }
	key := func() jen.Code { return jen.Lit(f.Name) }
	stmts, err := m.save(f.Class, f.Type, val, "b", key)
	if err != nil {
		return nil, err
	}
	return gate(f, stmts), nil
}

func (m *methodGen) restoreField(f *FieldBinding) ([]jen.Code, error) {
	dst := func() *jen.Statement { return jen.Id("target").Dot(f.Name) }
	key := func() jen.Code { return jen.Lit(f.Name) }
	stmts, err := m.restore(f.Class, f.Type, dst, "b", key, f.DefaultValue)
	if err != nil {
		return nil, err
	}
	return gate(f, stmts), nil
}

func gate(f *FieldBinding, stmts []jen.Code) []jen.Code {
	if !f.Gated() {
		return stmts
	}
	return []jen.Code{jen.If(jen.Id("b").Dot("SdkAtLeast").Call(sdkCode(f.MinSdk))).Block(stmts...)}
}

func sdkCode(v savestate.SdkVersion) jen.Code {
	if name, ok := v.Ident(); ok {
		return jen.Qual(runtimePkg, name)
	}
	return jen.Qual(runtimePkg, "SdkVersion").Call(jen.Lit(int(v)))
}

func returnIfErr() jen.Code {
	return jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err()))
}

func (m *methodGen) save(c *Classification, typ types.Type, val access, bundle string, key func() jen.Code) ([]jen.Code, error) {
	b := func() *jen.Statement { return jen.Id(bundle) }
	switch c.Category {
	case Primitive, Text:
		return []jen.Code{
			b().Dot("Put"+accessor(c.Basic)).Call(key(), toBasic(c.Basic, typ, val())),
		}, nil

	case Boxed:
		return []jen.Code{
			jen.If(val().Op("!=").Nil()).Block(
				b().Dot("Put"+accessor(c.Basic)).Call(key(), toBasic(c.Basic, c.Elem.Type, jen.Op("*").Add(val()))),
			),
		}, nil

	case Enum:
		o := m.temp("o")
		return []jen.Code{
			jen.List(jen.Id(o), jen.Err()).Op(":=").Qual(runtimePkg, "Ordinal").Call(key(), jen.Id(m.file.enumValues(c)), val()),
			returnIfErr(),
			b().Dot("PutInt").Call(key(), jen.Id(o)),
		}, nil

	case Structured:
		var arg jen.Code = val()
		if c.Indirect {
			arg = jen.Op("&").Add(val())
		}
		put := jen.If(
			jen.Err().Op(":=").Add(b().Dot("PutParcelable").Call(key(), arg)),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err()))
		if _, isParam := typ.(*types.TypeParam); !isParam && (c.Pointer || c.Interface) {
			return []jen.Code{jen.If(val().Op("!=").Nil()).Block(put)}, nil
		}
		return []jen.Code{put}, nil

	case Array:
		s, i, k := m.temp("s"), m.temp("i"), m.temp("k")
		elem := func() *jen.Statement { return val().Index(jen.Id(i)) }
		elemKey := func() jen.Code { return jen.Id(k) }
		body, err := m.save(c.Elem, c.Elem.Type, elem, s, elemKey)
		if err != nil {
			return nil, err
		}
		loop := append([]jen.Code{jen.Id(k).Op(":=").Qual("strconv", "Itoa").Call(jen.Id(i))}, body...)
		stmts := []jen.Code{
			jen.Id(s).Op(":=").Add(b().Dot("NewBundle").Call()),
			jen.Id(s).Dot("PutInt").Call(jen.Lit("len"), jen.Len(val())),
			jen.For(jen.Id(i).Op(":=").Range().Add(val())).Block(loop...),
			b().Dot("PutBundle").Call(key(), jen.Id(s)),
		}
		if c.Len < 0 {
			return []jen.Code{jen.If(val().Op("!=").Nil()).Block(stmts...)}, nil
		}
		return stmts, nil
	}
	return nil, fmt.Errorf("cannot save %s: %s", c.Type, c.Reason)
}

func (m *methodGen) restore(c *Classification, typ types.Type, dst access, bundle string, key func() jen.Code, def string) ([]jen.Code, error) {
	b := func() *jen.Statement { return jen.Id(bundle) }
	guard := func(stmts ...jen.Code) []jen.Code {
		if def != "" {
			return stmts
		}
		return []jen.Code{jen.If(b().Dot("ContainsKey").Call(key())).Block(stmts...)}
	}
	switch c.Category {
	case Primitive, Text:
		lit, err := basicLiteral(c.Basic, def)
		if err != nil {
			return nil, err
		}
		get := b().Dot("Get"+accessor(c.Basic)).Call(key(), lit)
		return guard(dst().Op("=").Add(fromBasic(c.Basic, typ, get))), nil

	case Boxed:
		lit, err := basicLiteral(c.Basic, def)
		if err != nil {
			return nil, err
		}
		v := m.temp("v")
		get := b().Dot("Get"+accessor(c.Basic)).Call(key(), lit)
		return guard(
			jen.Id(v).Op(":=").Add(fromBasic(c.Basic, c.Elem.Type, get)),
			dst().Op("=").Op("&").Id(v),
		), nil

	case Enum:
		ordinal := 0
		if def != "" {
			var err error
			if ordinal, err = enumOrdinal(c, def); err != nil {
				return nil, err
			}
		}
		v := m.temp("v")
		get := b().Dot("GetInt").Call(key(), jen.Lit(ordinal))
		return guard(
			jen.List(jen.Id(v), jen.Err()).Op(":=").Qual(runtimePkg, "ValueOf").Call(key(), jen.Id(m.file.enumValues(c)), get),
			returnIfErr(),
			dst().Op("=").Id(v),
		), nil

	case Structured:
		if def != "" {
			return nil, fmt.Errorf("default value %q given for a field that marshals itself", def)
		}
		getInto := func(arg jen.Code) jen.Code {
			return jen.If(
				jen.Err().Op(":=").Add(b().Dot("GetParcelable").Call(key(), arg)),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err()))
		}
		if _, isParam := typ.(*types.TypeParam); isParam {
			return guard(getInto(dst())), nil
		}
		switch {
		case c.Interface:
			return []jen.Code{
				jen.If(dst().Op("!=").Nil().Op("&&").Add(b().Dot("ContainsKey").Call(key()))).Block(getInto(dst())),
			}, nil
		case c.Pointer:
			p := m.temp("p")
			return guard(
				jen.Id(p).Op(":=").New(typeCode(c.Type.(*types.Pointer).Elem())),
				getInto(jen.Id(p)),
				dst().Op("=").Id(p),
			), nil
		default:
			return guard(getInto(jen.Op("&").Add(dst()))), nil
		}

	case Array:
		if def != "" {
			return nil, fmt.Errorf("default value %q given for an array field", def)
		}
		s, i, k := m.temp("s"), m.temp("i"), m.temp("k")
		elem := func() *jen.Statement { return dst().Index(jen.Id(i)) }
		elemKey := func() jen.Code { return jen.Id(k) }
		body, err := m.restore(c.Elem, c.Elem.Type, elem, s, elemKey, "")
		if err != nil {
			return nil, err
		}
		loop := append([]jen.Code{jen.Id(k).Op(":=").Qual("strconv", "Itoa").Call(jen.Id(i))}, body...)
		var stmts []jen.Code
		if c.Len < 0 {
			n := m.temp("n")
			stmts = []jen.Code{
				jen.Id(n).Op(":=").Id(s).Dot("GetInt").Call(jen.Lit("len"), jen.Lit(0)),
				dst().Op("=").Make(typeCode(typ), jen.Id(n)),
				jen.For(jen.Id(i).Op(":=").Lit(0), jen.Id(i).Op("<").Id(n), jen.Id(i).Op("++")).Block(loop...),
			}
		} else {
			stmts = []jen.Code{jen.For(jen.Id(i).Op(":=").Range().Add(dst())).Block(loop...)}
		}
		return []jen.Code{
			jen.If(
				jen.Id(s).Op(":=").Add(b().Dot("GetBundle").Call(key())),
				jen.Id(s).Op("!=").Nil(),
			).Block(stmts...),
		}, nil
	}
	return nil, fmt.Errorf("cannot restore %s: %s", c.Type, c.Reason)
}

var accessors = map[types.BasicKind]string{
	types.Bool:    "Bool",
	types.Int:     "Int",
	types.Int8:    "Int8",
	types.Int16:   "Int16",
	types.Int32:   "Int32",
	types.Int64:   "Int64",
	types.Uint:    "Uint",
	types.Uint8:   "Uint8",
	types.Uint16:  "Uint16",
	types.Uint32:  "Uint32",
	types.Uint64:  "Uint64",
	types.Float32: "Float32",
	types.Float64: "Float64",
	types.String:  "String",
}

func accessor(b *types.Basic) string {
	return accessors[b.Kind()]
}

// toBasic converts a value of type typ to the accessor's type, if they
// differ.
func toBasic(b *types.Basic, typ types.Type, v jen.Code) jen.Code {
	if types.Identical(typ, b) {
		return v
	}
	return jen.Id(b.Name()).Call(v)
}

func fromBasic(b *types.Basic, typ types.Type, v jen.Code) jen.Code {
	if types.Identical(typ, b) {
		return v
	}
	return typeCode(typ).Call(v)
}

// basicLiteral parses a default value for the given kind. An empty default
// yields the zero value.
func basicLiteral(b *types.Basic, def string) (jen.Code, error) {
	kind := b.Kind()
	if def == "" {
		switch {
		case kind == types.Bool:
			return jen.Lit(false), nil
		case kind == types.String:
			return jen.Lit(""), nil
		default:
			return jen.Lit(0), nil
		}
	}
	switch kind {
	case types.Bool:
		v, err := strconv.ParseBool(def)
		if err != nil {
			return nil, fmt.Errorf("default value %q is not a bool", def)
		}
		return jen.Lit(v), nil
	case types.String:
		return jen.Lit(def), nil
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64:
		v, err := strconv.ParseInt(def, 0, bitSize(kind))
		if err != nil {
			return nil, fmt.Errorf("default value %q is not a valid %s", def, b.Name())
		}
		return jen.Lit(int(v)), nil
	case types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		v, err := strconv.ParseUint(def, 0, bitSize(kind))
		if err != nil {
			return nil, fmt.Errorf("default value %q is not a valid %s", def, b.Name())
		}
		if v > math.MaxInt64 {
			return jen.Lit(v), nil
		}
		return jen.Lit(int(v)), nil
	case types.Float32:
		v, err := strconv.ParseFloat(def, 32)
		if err != nil {
			return nil, fmt.Errorf("default value %q is not a valid float32", def)
		}
		return jen.Lit(float32(v)), nil
	case types.Float64:
		v, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return nil, fmt.Errorf("default value %q is not a valid float64", def)
		}
		return jen.Lit(v), nil
	}
	return nil, fmt.Errorf("no default values for %s", b.Name())
}

func bitSize(kind types.BasicKind) int {
	switch kind {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32:
		return 32
	default:
		return 64
	}
}

// enumOrdinal finds the constant named by def, which may be qualified by a
// package name.
func enumOrdinal(c *Classification, def string) (int, error) {
	name := def
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	for i, k := range c.Constants {
		if k.Name() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("default value %q is not a constant of %s", def, c.Type)
}

func typeName(t types.Type) string {
	if n, ok := types.Unalias(t).(*types.Named); ok {
		return n.Obj().Name()
	}
	return "Enum"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// typeCode renders a reference to t. Types of the generated file's own
// package are left unqualified by jennifer.
func typeCode(t types.Type) *jen.Statement {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		if t.Kind() == types.UnsafePointer {
			return jen.Qual("unsafe", "Pointer")
		}
		return jen.Id(t.Name())
	case *types.Named:
		obj := t.Obj()
		var s *jen.Statement
		if obj.Pkg() == nil {
			s = jen.Id(obj.Name())
		} else {
			s = jen.Qual(obj.Pkg().Path(), obj.Name())
		}
		if args := t.TypeArgs(); args != nil && args.Len() > 0 {
			codes := make([]jen.Code, args.Len())
			for i := range codes {
				codes[i] = typeCode(args.At(i))
			}
			s = s.Types(codes...)
		}
		return s
	case *types.TypeParam:
		return jen.Id(t.Obj().Name())
	case *types.Pointer:
		return jen.Op("*").Add(typeCode(t.Elem()))
	case *types.Slice:
		return jen.Index().Add(typeCode(t.Elem()))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(typeCode(t.Elem()))
	case *types.Map:
		return jen.Map(typeCode(t.Key())).Add(typeCode(t.Elem()))
	case *types.Chan:
		switch t.Dir() {
		case types.SendOnly:
			return jen.Chan().Op("<-").Add(typeCode(t.Elem()))
		case types.RecvOnly:
			return jen.Op("<-").Chan().Add(typeCode(t.Elem()))
		default:
			return jen.Chan().Add(typeCode(t.Elem()))
		}
	case *types.Signature:
		return jen.Func().Add(signatureCode(t))
	case *types.Struct:
		fields := make([]jen.Code, t.NumFields())
		for i := range fields {
			f := t.Field(i)
			if f.Embedded() {
				fields[i] = typeCode(f.Type())
			} else {
				fields[i] = jen.Id(f.Name()).Add(typeCode(f.Type()))
			}
		}
		return jen.Struct(fields...)
	case *types.Interface:
		return interfaceCode(t)
	case *types.Union:
		return unionCode(t)
	}
	return jen.Id(t.String())
}

func signatureCode(sig *types.Signature) *jen.Statement {
	params := make([]jen.Code, sig.Params().Len())
	for i := range params {
		p := sig.Params().At(i)
		var typ jen.Code = typeCode(p.Type())
		if sig.Variadic() && i == len(params)-1 {
			typ = jen.Op("...").Add(typeCode(p.Type().(*types.Slice).Elem()))
		}
		if p.Name() != "" {
			params[i] = jen.Id(p.Name()).Add(typ)
		} else {
			params[i] = typ
		}
	}
	results := make([]jen.Code, sig.Results().Len())
	for i := range results {
		r := sig.Results().At(i)
		if r.Name() != "" {
			results[i] = jen.Id(r.Name()).Add(typeCode(r.Type()))
		} else {
			results[i] = typeCode(r.Type())
		}
	}
	s := jen.Params(params...)
	switch len(results) {
	case 0:
	case 1:
		if sig.Results().At(0).Name() == "" {
			s = s.Add(results[0])
		} else {
			s = s.Params(results...)
		}
	default:
		s = s.Params(results...)
	}
	return s
}

func interfaceCode(t *types.Interface) *jen.Statement {
	if t.NumExplicitMethods() == 0 && t.NumEmbeddeds() == 0 {
		return jen.Any()
	}
	var elems []jen.Code
	for i := 0; i < t.NumEmbeddeds(); i++ {
		elems = append(elems, typeCode(t.EmbeddedType(i)))
	}
	for i := 0; i < t.NumExplicitMethods(); i++ {
		fn := t.ExplicitMethod(i)
		elems = append(elems, jen.Id(fn.Name()).Add(signatureCode(fn.Type().(*types.Signature))))
	}
	return jen.Interface(elems...)
}

func unionCode(u *types.Union) *jen.Statement {
	terms := make([]jen.Code, u.Len())
	for i := range terms {
		term := u.Term(i)
		if term.Tilde() {
			terms[i] = jen.Op("~").Add(typeCode(term.Type()))
		} else {
			terms[i] = typeCode(term.Type())
		}
	}
	return jen.Union(terms...)
}

// constraintCode renders a type parameter's constraint. Implicit interfaces,
// as in [T ~int], are written as their single element.
func constraintCode(t types.Type) *jen.Statement {
	if iface, ok := t.(*types.Interface); ok && iface.IsImplicit() && iface.NumEmbeddeds() == 1 {
		return typeCode(iface.EmbeddedType(0))
	}
	return typeCode(t)
}
