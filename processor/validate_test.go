package processor

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/savestate"
)

func widgetDecl() *DeclarationInfo {
	return &DeclarationInfo{
		Name: "Count",
		Type: types.Typ[types.Int],
		Enclosing: &Enclosing{
			Kind:        KindClass,
			PackagePath: "example.com/app",
			PackageName: "app",
			Name:        "Widget",
			Pos:         token.Position{Filename: "app.go", Line: 3, Column: 6},
		},
		MinSdk: savestate.Froyo,
		Pos:    token.Position{Filename: "app.go", Line: 5, Column: 2},
	}
}

func messages(m *Messager) []string {
	var msgs []string
	for _, d := range m.Diagnostics() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestValidator(t *testing.T) {
	v := &Validator{IsStandard: func(p string) bool { return p == "net/http" }}

	t.Run("Should accept a field of a top-level struct", func(t *testing.T) {
		m := NewMessager(nil)
		assert.True(t, v.Validate(widgetDecl(), m))
		assert.Empty(t, m.Diagnostics())
	})

	t.Run("Should enforce the platform floor", func(t *testing.T) {
		for _, level := range []savestate.SdkVersion{savestate.Froyo, savestate.Gingerbread, savestate.UpsideDownCake} {
			d := widgetDecl()
			d.MinSdk = level
			assert.True(t, v.Validate(d, NewMessager(nil)), level.String())
		}

		d := widgetDecl()
		d.MinSdk = savestate.Eclair
		m := NewMessager(nil)
		assert.False(t, v.Validate(d, m))
		assert.Equal(t, []string{"SaveState.MinSdk must be FROYO(8)+"}, messages(m))
		assert.Equal(t, d.Pos, m.Diagnostics()[0].Pos)
	})

	t.Run("Should reject private and static fields", func(t *testing.T) {
		for _, mods := range []Modifiers{Private, Static, Private | Static} {
			d := widgetDecl()
			d.Modifiers = mods
			m := NewMessager(nil)
			assert.False(t, v.Validate(d, m))
			assert.Equal(t, []string{
				"@SaveState fields must not be private or static. (example.com/app.Widget.Count)",
			}, messages(m))
		}
	})

	t.Run("Should report every violated rule", func(t *testing.T) {
		d := widgetDecl()
		d.Modifiers = Static
		d.Enclosing.Kind = KindInterface
		d.Enclosing.Modifiers = Private
		m := NewMessager(nil)
		assert.False(t, v.Validate(d, m))
		assert.Equal(t, []string{
			"@SaveState fields must not be private or static. (example.com/app.Widget.Count)",
			"@SaveState fields may only be contained in classes. (example.com/app.Widget.Count)",
			"@SaveState fields may not be contained in private classes (example.com/app.Widget.Count)",
		}, messages(m))
		diags := m.Diagnostics()
		assert.Equal(t, d.Pos, diags[0].Pos)
		assert.Equal(t, d.Enclosing.Pos, diags[1].Pos)
		assert.Equal(t, d.Enclosing.Pos, diags[2].Pos)
	})

	t.Run("Should only allow classes as owners", func(t *testing.T) {
		for _, kind := range []Kind{KindInterface, KindEnum, KindAnnotation, KindPackage, KindAnonymous} {
			d := widgetDecl()
			d.Enclosing.Kind = kind
			m := NewMessager(nil)
			assert.False(t, v.Validate(d, m), kind.String())
			assert.Len(t, m.Diagnostics(), 1, kind.String())
		}
	})

	t.Run("Should reject owners in platform packages", func(t *testing.T) {
		for _, path := range []string{"golang.org/x/net/html", "github.com/jhump/savestate"} {
			d := widgetDecl()
			d.Enclosing.PackagePath = path
			m := NewMessager(nil)
			assert.False(t, v.Validate(d, m))
			assert.Equal(t, []string{
				"@SaveState-annotated class incorrectly in Go platform package. (" + path + ".Widget)",
			}, messages(m))
		}
	})

	t.Run("Should reject owners in the standard library", func(t *testing.T) {
		d := widgetDecl()
		d.Enclosing.PackagePath = "net/http"
		m := NewMessager(nil)
		assert.False(t, v.Validate(d, m))
		assert.Equal(t, []string{
			"@SaveState-annotated class incorrectly in Go standard library package. (net/http.Widget)",
		}, messages(m))
	})

	t.Run("Should combine the floor with other rules", func(t *testing.T) {
		d := widgetDecl()
		d.MinSdk = savestate.Donut
		d.Modifiers = Private
		m := NewMessager(nil)
		assert.False(t, v.Validate(d, m))
		require.Len(t, m.Diagnostics(), 2)
		assert.Equal(t, 2, m.ErrorCount())
	})
}

func TestDefaultIsStandard(t *testing.T) {
	t.Run("Should find standard library packages under GOROOT", func(t *testing.T) {
		assert.True(t, DefaultIsStandard("fmt"))
		assert.True(t, DefaultIsStandard("net/http"))
	})

	t.Run("Should not match other packages", func(t *testing.T) {
		assert.False(t, DefaultIsStandard("example.com/app"))
		assert.False(t, DefaultIsStandard("github.com/jhump/savestate"))
		assert.False(t, DefaultIsStandard("no/such/package"))
		assert.False(t, DefaultIsStandard(""))
	})
}
