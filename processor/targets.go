package processor

import (
	"go/token"
	"go/types"
	"strings"
	"unicode"

	"github.com/jhump/savestate"
)

// GenerationUnit is everything needed to emit the adapter for one owner type.
type GenerationUnit struct {
	QualifiedOwnerName string
	GeneratedPackage   string
	PackageName        string
	GeneratedClassName string
	FileName           string
	// OwnerName is the owner's name relative to its package.
	OwnerName  string
	TypeParams *types.TypeParamList
	SourceDir  string
	Pos        token.Position
	// Fields are in the order they were added.
	Fields []*FieldBinding
	// Failed is set when a field could not be classified. Failed units are
	// never generated.
	Failed bool
}

// Generic reports whether the owner declares type parameters.
func (u *GenerationUnit) Generic() bool {
	return u.TypeParams != nil && u.TypeParams.Len() > 0
}

// Target returns the output location of the unit's adapter.
func (u *GenerationUnit) Target() Target {
	return Target{
		PackagePath: u.GeneratedPackage,
		PackageName: u.PackageName,
		TypeName:    u.GeneratedClassName,
		FileName:    u.FileName,
		Owner:       u.QualifiedOwnerName,
		SourceDir:   u.SourceDir,
	}
}

func (u *GenerationUnit) addField(b *FieldBinding) {
	u.Fields = append(u.Fields, b)
}

// TargetTable groups field bindings by owner. Iteration order is the order
// in which owners were first seen.
type TargetTable struct {
	units map[string]*GenerationUnit
	order []*GenerationUnit
}

func NewTargetTable() *TargetTable {
	return &TargetTable{units: map[string]*GenerationUnit{}}
}

// LookupOrCreate returns the unit for owner, creating it on first use.
func (t *TargetTable) LookupOrCreate(owner *Enclosing) *GenerationUnit {
	key := owner.QualifiedName()
	if u := t.units[key]; u != nil {
		return u
	}
	flat := FlattenName(owner.QualifiedName(), owner.PackagePath)
	u := &GenerationUnit{
		QualifiedOwnerName: key,
		GeneratedPackage:   owner.PackagePath,
		PackageName:        owner.PackageName,
		GeneratedClassName: flat + savestate.StoreAdapterSuffix,
		FileName:           SnakeCase(flat) + "_storeadapter.go",
		OwnerName:          owner.Name,
		TypeParams:         owner.TypeParams,
		SourceDir:          owner.SourceDir,
		Pos:                owner.Pos,
	}
	t.units[key] = u
	t.order = append(t.order, u)
	return u
}

// Units returns all units in insertion order.
func (t *TargetTable) Units() []*GenerationUnit {
	return append([]*GenerationUnit(nil), t.order...)
}

func (t *TargetTable) Len() int {
	return len(t.order)
}

// FlattenName strips the package path prefix from a qualified type name and
// joins what remains with NestedSeparator. FlattenName("a/b.Outer.Inner",
// "a/b") is "Outer_Inner".
func FlattenName(qualified, pkgPath string) string {
	name := qualified
	if pkgPath != "" && strings.HasPrefix(name, pkgPath+".") {
		name = name[len(pkgPath)+1:]
	}
	return strings.ReplaceAll(name, ".", savestate.NestedSeparator)
}

// SnakeCase converts a Go identifier to lower snake case, keeping acronyms
// together: "HTTPServer_Conf" becomes "http_server_conf".
func SnakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if r == '_' {
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "_") {
				sb.WriteByte('_')
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "_") {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
