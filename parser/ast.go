package parser

import (
	"fmt"
	"go/constant"
	"text/scanner"
)

// Identifier is a possibly-qualified name, such as the type of an annotation
// or a constant referenced as an element value.
type Identifier struct {
	// PackageAlias is the qualifier, if any. It is the name under which the
	// package is imported by the file containing the annotation.
	PackageAlias string
	Name         string
	Pos          scanner.Position
}

func (id Identifier) String() string {
	if id.PackageAlias == "" {
		return id.Name
	}
	return fmt.Sprintf("%s.%s", id.PackageAlias, id.Name)
}

// Value is the value of an annotation element. Exactly one of Literal and Ref
// is set.
type Value struct {
	// Literal is an int, float, string, or bool constant.
	Literal constant.Value
	// Ref is a reference to a named constant.
	Ref *Identifier
	Pos scanner.Position
}

func (v Value) String() string {
	if v.Ref != nil {
		return v.Ref.String()
	}
	return v.Literal.ExactString()
}

// Element is a single key and value inside of an annotation's braces.
type Element struct {
	Key    string
	KeyPos scanner.Position
	Value  Value
}

// Annotation is a single annotation, as it appears in a doc comment:
//
//	@savestate.SaveState{DefaultValue: "none", MinSdk: savestate.Honeycomb}
//
// An annotation written without braces has a nil Elements slice.
type Annotation struct {
	Type     Identifier
	Elements []Element
	pos      scanner.Position
}

// Pos returns the location of the annotation's '@' sign.
func (a Annotation) Pos() scanner.Position {
	return a.pos
}
