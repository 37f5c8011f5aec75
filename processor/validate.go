package processor

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhump/savestate"
)

// DefaultIsStandard reports whether the package with the given import path
// is part of the standard library, which is the case when its directory
// exists under GOROOT/src.
func DefaultIsStandard(pkgPath string) bool {
	if pkgPath == "" || build.Default.GOROOT == "" {
		return false
	}
	first := pkgPath
	if i := strings.IndexByte(first, '/'); i >= 0 {
		first = first[:i]
	}
	if strings.Contains(first, ".") {
		// standard library paths never have a domain
		return false
	}
	info, err := os.Stat(filepath.Join(build.Default.GOROOT, "src", filepath.FromSlash(pkgPath)))
	return err == nil && info.IsDir()
}

// Validator checks that an annotated declaration can receive generated code.
type Validator struct {
	// IsStandard reports whether a package path belongs to the standard
	// library. Nil means DefaultIsStandard.
	IsStandard func(pkgPath string) bool
}

// Validate reports every rule d violates to m and returns true only if d
// violated none. A declaration that fails is excluded from generation.
func (v *Validator) Validate(d *DeclarationInfo, m *Messager) bool {
	ok := true
	if !v.HasAllNeededValues(d) {
		m.Errorf(d.Pos, "@SaveState requires other information for the given element")
		ok = false
	}
	if d.MinSdk < savestate.MinSdkFloor {
		m.Errorf(d.Pos, "SaveState.MinSdk must be %v+", savestate.MinSdkFloor)
		ok = false
	}
	enc := d.Enclosing
	if d.Modifiers.Has(Private) || d.Modifiers.Has(Static) {
		m.Errorf(d.Pos, "@SaveState fields must not be private or static. (%s.%s)", enc.QualifiedName(), d.Name)
		ok = false
	}
	if enc.Kind != KindClass {
		m.Errorf(enc.Pos, "@SaveState fields may only be contained in classes. (%s.%s)", enc.QualifiedName(), d.Name)
		ok = false
	}
	if enc.Modifiers.Has(Private) {
		m.Errorf(enc.Pos, "@SaveState fields may not be contained in private classes (%s.%s)", enc.QualifiedName(), d.Name)
		ok = false
	}
	return v.checkPackage(d, m) && ok
}

// HasAllNeededValues is an extension point for checks that need the
// declaration and its type together. No such checks exist yet.
func (v *Validator) HasAllNeededValues(d *DeclarationInfo) bool {
	return true
}

func (v *Validator) checkPackage(d *DeclarationInfo, m *Messager) bool {
	qualified := d.Enclosing.QualifiedName()
	for _, prefix := range savestate.PlatformPrefixes {
		if strings.HasPrefix(qualified, prefix) {
			m.Errorf(d.Pos, "@SaveState-annotated class incorrectly in Go platform package. (%s)", qualified)
			return false
		}
	}
	isStandard := v.IsStandard
	if isStandard == nil {
		isStandard = DefaultIsStandard
	}
	if isStandard(d.Enclosing.PackagePath) {
		m.Errorf(d.Pos, "@SaveState-annotated class incorrectly in Go standard library package. (%s)", qualified)
		return false
	}
	return true
}
