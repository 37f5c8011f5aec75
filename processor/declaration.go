package processor

import (
	"go/token"
	"go/types"
	"strings"

	"github.com/jhump/savestate"
)

// Kind is the kind of declaration that encloses an annotated element.
type Kind int

const (
	// KindClass is a named struct type declared at package level.
	KindClass Kind = iota
	// KindInterface is an interface type; its methods can carry annotations.
	KindInterface
	// KindEnum is a named integer type with declared constants.
	KindEnum
	// KindAnnotation is a struct type that is itself marked as an annotation.
	KindAnnotation
	// KindPackage encloses package-level variables and constants.
	KindPackage
	// KindAnonymous is a struct type literal, such as the type of a field.
	KindAnonymous
)

var kindNames = map[Kind]string{
	KindClass:      "class",
	KindInterface:  "interface",
	KindEnum:       "enum",
	KindAnnotation: "annotation",
	KindPackage:    "package",
	KindAnonymous:  "anonymous struct",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Modifiers is a set of declaration modifiers.
type Modifiers uint8

const (
	// Private elements cannot be referenced by generated code: blank fields
	// and types declared inside of function bodies.
	Private Modifiers = 1 << iota
	// Static elements belong to the package rather than to an instance:
	// package-level variables and constants.
	Static
)

// Has reports whether all modifiers in o are present in m.
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}

func (m Modifiers) String() string {
	var parts []string
	if m.Has(Private) {
		parts = append(parts, "private")
	}
	if m.Has(Static) {
		parts = append(parts, "static")
	}
	return strings.Join(parts, " ")
}

// Enclosing describes the declaration that directly contains an annotated
// element. For a struct field that is the struct type.
type Enclosing struct {
	Kind        Kind
	Modifiers   Modifiers
	PackagePath string
	PackageName string
	// Name is relative to the package. Types declared inside of function
	// bodies are qualified by the function, as in "render.frame".
	Name string
	// TypeParams are the type parameters of a generic owner.
	TypeParams *types.TypeParamList
	// SourceDir is the directory holding the declaration's source file.
	SourceDir string
	Pos       token.Position
}

// QualifiedName returns the package path and name, as in
// "example.com/app.Widget".
func (e *Enclosing) QualifiedName() string {
	if e.Name == "" {
		return e.PackagePath
	}
	return e.PackagePath + "." + e.Name
}

// DeclarationInfo is everything the processor needs to know about one
// annotated element. The scanner builds these from type-checked sources, but
// they can also be constructed directly.
type DeclarationInfo struct {
	Name      string
	Type      types.Type
	Modifiers Modifiers
	Enclosing *Enclosing

	// DefaultValue is the literal assigned on restore when the entry is
	// missing. Empty means no default.
	DefaultValue string
	// MinSdk is MinSdkFloor when the annotation does not name a level.
	MinSdk savestate.SdkVersion

	Pos token.Position
}

// QualifiedName returns the enclosing declaration's qualified name followed
// by the element's name.
func (d *DeclarationInfo) QualifiedName() string {
	return d.Enclosing.QualifiedName() + "." + d.Name
}
