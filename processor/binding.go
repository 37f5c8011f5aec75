package processor

import (
	"go/token"
	"go/types"

	"github.com/jhump/savestate"
)

// FieldBinding is one annotated field of a generation unit. It is not
// modified after it is added to a unit.
type FieldBinding struct {
	Name string
	// Type is the declared type. ResolvedType is the same, except that a
	// type parameter is replaced by its bound.
	Type         types.Type
	ResolvedType types.Type
	DefaultValue string
	MinSdk       savestate.SdkVersion
	// Class is filled in by classification before the binding is added to
	// a unit.
	Class *Classification
	Pos   token.Position
}

// HasDefault reports whether a default literal was supplied.
func (b *FieldBinding) HasDefault() bool {
	return b.DefaultValue != ""
}

// Gated reports whether the field is only saved and restored on newer
// platforms.
func (b *FieldBinding) Gated() bool {
	return b.MinSdk > savestate.MinSdkFloor
}

// NewFieldBinding builds the binding for a declaration that passed
// validation.
func NewFieldBinding(d *DeclarationInfo) *FieldBinding {
	return &FieldBinding{
		Name:         d.Name,
		Type:         d.Type,
		ResolvedType: ResolveTypeParam(d.Type),
		DefaultValue: d.DefaultValue,
		MinSdk:       d.MinSdk,
		Pos:          d.Pos,
	}
}

// ResolveTypeParam returns the bound of a type parameter, or t itself if it
// is not one. When the constraint has a single type term, like ~int or
// interface{ Color }, the bound is that type. Otherwise it is the constraint
// interface.
func ResolveTypeParam(t types.Type) types.Type {
	tp, ok := t.(*types.TypeParam)
	if !ok {
		return t
	}
	constraint := tp.Constraint()
	iface, ok := constraint.Underlying().(*types.Interface)
	if !ok || iface.NumEmbeddeds() != 1 {
		return constraint
	}
	switch e := iface.EmbeddedType(0).(type) {
	case *types.Union:
		if e.Len() == 1 {
			return ResolveTypeParam(e.Term(0).Type())
		}
		return constraint
	default:
		if _, isIface := e.Underlying().(*types.Interface); isIface {
			return constraint
		}
		return ResolveTypeParam(e)
	}
}
