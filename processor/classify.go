package processor

import (
	"fmt"
	"go/types"
	"sort"
)

// Category selects the Bundle accessors used for a field.
type Category int

const (
	Unsupported Category = iota
	// Primitive is a boolean or numeric value, stored with the matching
	// typed accessor.
	Primitive
	// Boxed is a pointer to a primitive or text value. Nil is not stored.
	Boxed
	// Text is a string value.
	Text
	// Enum is a named integer type with declared constants, stored by
	// ordinal.
	Enum
	// Array is a slice or array of a supported element type, stored as a
	// nested bundle.
	Array
	// Structured is a value that marshals itself, stored as a parcelable.
	Structured
)

var categoryNames = [...]string{"unsupported", "primitive", "boxed", "text", "enum", "array", "structured"}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Classification is the outcome of classifying one type.
type Classification struct {
	Category Category
	// Type is the classified type.
	Type types.Type
	// Basic is the kind whose accessor pair stores Primitive, Text and Boxed
	// values. Conversions are needed when Type is not identical to it.
	Basic *types.Basic
	// Elem is the element of an Array or the pointee of a Boxed type.
	Elem *Classification
	// Len is the length of a fixed-size array, or -1 for a slice.
	Len int64
	// Constants are the declared values of an Enum, in declaration order.
	Constants []*types.Const
	// Pointer reports whether a Structured type is a pointer. Indirect
	// reports whether only the pointer to a Structured type marshals, so
	// values are passed by address. Interface reports whether the type is
	// an interface, which restore can only fill in, never allocate.
	Pointer, Indirect, Interface bool
	// Reason explains an Unsupported result.
	Reason string
}

// Supported reports whether the classified type can be saved and restored.
func (c *Classification) Supported() bool {
	return c.Category != Unsupported
}

var binaryCodec *types.Interface

func init() {
	byteSlice := types.NewSlice(types.Typ[types.Byte])
	errType := types.Universe.Lookup("error").Type()
	marshal := types.NewFunc(0, nil, "MarshalBinary", types.NewSignatureType(nil, nil, nil,
		nil, types.NewTuple(types.NewVar(0, nil, "", byteSlice), types.NewVar(0, nil, "", errType)), false))
	unmarshal := types.NewFunc(0, nil, "UnmarshalBinary", types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewVar(0, nil, "data", byteSlice)), types.NewTuple(types.NewVar(0, nil, "", errType)), false))
	binaryCodec = types.NewInterfaceType([]*types.Func{marshal, unmarshal}, nil).Complete()
}

// Classifier maps field types onto categories. Results depend only on the
// type and on the classifier's configuration.
type Classifier struct {
	// Pkg is the package that will hold generated code. Enum constants of
	// other packages must be exported to be usable.
	Pkg *types.Package
	// IsStandard reports whether a package path belongs to the standard
	// library. Named integer types from the standard library are never
	// treated as enums. Nil means DefaultIsStandard.
	IsStandard func(pkgPath string) bool
}

func (c *Classifier) isStandard(path string) bool {
	if c.IsStandard != nil {
		return c.IsStandard(path)
	}
	return DefaultIsStandard(path)
}

// ClassifyBinding classifies the resolved type of b. Fields declared with a
// type parameter are converted at every access, which is only possible for
// primitive and text bounds, or used through their methods, which is only
// possible for structured interface bounds.
func (c *Classifier) ClassifyBinding(b *FieldBinding) *Classification {
	cls := c.Classify(b.ResolvedType)
	if _, ok := b.Type.(*types.TypeParam); ok && cls.Supported() {
		switch {
		case cls.Category == Primitive, cls.Category == Text:
		case cls.Category == Structured && cls.Interface:
		default:
			return unsupported(b.ResolvedType, fmt.Sprintf("type parameter %s has a %s bound", b.Type, cls.Category))
		}
	}
	return cls
}

// Classify returns the category of t. A type parameter must already have
// been replaced by its bound.
func (c *Classifier) Classify(t types.Type) *Classification {
	if b, ok := primitiveBasic(t); ok {
		return &Classification{Category: Primitive, Type: t, Basic: b}
	}
	if ptr, ok := t.(*types.Pointer); ok {
		elem := c.Classify(ptr.Elem())
		if elem.Category == Primitive || elem.Category == Text {
			return &Classification{Category: Boxed, Type: t, Basic: elem.Basic, Elem: elem}
		}
	}
	if types.Identical(t, types.Typ[types.String]) {
		return &Classification{Category: Text, Type: t, Basic: types.Typ[types.String]}
	}
	if consts := c.enumConstants(t); len(consts) > 0 {
		return &Classification{Category: Enum, Type: t, Constants: consts}
	}
	switch u := t.Underlying().(type) {
	case *types.Slice:
		return c.classifyArray(t, u.Elem(), -1)
	case *types.Array:
		return c.classifyArray(t, u.Elem(), u.Len())
	}
	if cls := structured(t); cls != nil {
		return cls
	}
	if _, isParam := t.(*types.TypeParam); !isParam {
		if b, ok := primitiveBasic(t.Underlying()); ok {
			return &Classification{Category: Primitive, Type: t, Basic: b}
		}
		if types.Identical(t.Underlying(), types.Typ[types.String]) {
			return &Classification{Category: Text, Type: t, Basic: types.Typ[types.String]}
		}
	}
	return unsupported(t, "")
}

func unsupported(t types.Type, reason string) *Classification {
	if reason == "" {
		reason = fmt.Sprintf("no Bundle accessor can store %s", describeType(t))
	}
	return &Classification{Category: Unsupported, Type: t, Reason: reason}
}

func describeType(t types.Type) string {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return fmt.Sprintf("values of kind %s", u.Name())
	case *types.Map:
		return "maps"
	case *types.Chan:
		return "channels"
	case *types.Signature:
		return "functions"
	case *types.Interface:
		return "interfaces that do not marshal themselves"
	case *types.Struct:
		return "structs that do not marshal themselves"
	case *types.Pointer:
		return "pointers to " + describeType(u.Elem())
	default:
		return t.String()
	}
}

func primitiveBasic(t types.Type) (*types.Basic, bool) {
	b, ok := t.(*types.Basic)
	if !ok {
		return nil, false
	}
	switch b.Kind() {
	case types.Bool,
		types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64,
		types.Float32, types.Float64:
		return types.Typ[b.Kind()], true
	}
	return nil, false
}

func (c *Classifier) enumConstants(t types.Type) []*types.Const {
	named, ok := t.(*types.Named)
	if !ok || named.TypeParams().Len() > 0 {
		return nil
	}
	u, ok := named.Underlying().(*types.Basic)
	if !ok || u.Info()&types.IsInteger == 0 {
		return nil
	}
	obj := named.Obj()
	if obj.Pkg() == nil || c.isStandard(obj.Pkg().Path()) {
		return nil
	}
	local := c.Pkg == nil || c.Pkg.Path() == obj.Pkg().Path()
	scope := obj.Pkg().Scope()
	var consts []*types.Const
	for _, name := range scope.Names() {
		k, ok := scope.Lookup(name).(*types.Const)
		if !ok || !types.Identical(k.Type(), t) || k.Name() == "_" {
			continue
		}
		if !local && !k.Exported() {
			continue
		}
		consts = append(consts, k)
	}
	sort.SliceStable(consts, func(i, j int) bool {
		return consts[i].Pos() < consts[j].Pos()
	})
	// aliases of an earlier constant add no new ordinal
	deduped := consts[:0]
	for _, k := range consts {
		dup := false
		for _, prev := range deduped {
			if constantEqual(prev, k) {
				dup = true
				break
			}
		}
		if !dup {
			deduped = append(deduped, k)
		}
	}
	return deduped
}

func constantEqual(a, b *types.Const) bool {
	return a.Val().ExactString() == b.Val().ExactString()
}

func (c *Classifier) classifyArray(t, elem types.Type, n int64) *Classification {
	ec := c.Classify(elem)
	if !ec.Supported() {
		return unsupported(t, fmt.Sprintf("element type %s is not supported: %s", elem, ec.Reason))
	}
	return &Classification{Category: Array, Type: t, Elem: ec, Len: n}
}

func structured(t types.Type) *Classification {
	if _, ok := t.Underlying().(*types.Interface); ok {
		if types.Implements(t, binaryCodec) {
			return &Classification{Category: Structured, Type: t, Interface: true}
		}
		return nil
	}
	if types.Implements(t, binaryCodec) {
		_, isPtr := t.(*types.Pointer)
		return &Classification{Category: Structured, Type: t, Pointer: isPtr}
	}
	if _, isPtr := t.Underlying().(*types.Pointer); isPtr {
		return nil
	}
	if _, isParam := t.(*types.TypeParam); isParam {
		return nil
	}
	if types.Implements(types.NewPointer(t), binaryCodec) {
		return &Classification{Category: Structured, Type: t, Indirect: true}
	}
	return nil
}
