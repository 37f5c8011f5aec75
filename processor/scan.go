package processor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/jhump/savestate"
	"github.com/jhump/savestate/parser"
)

const saveStateName = "SaveState"

// scan records every SaveState-annotated element of the package. Problems
// with annotations are reported to the context's Messager.
func (c *Context) scan() {
	for _, file := range c.Package.Files {
		s := &fileScanner{ctx: c, file: file, qualifier: runtimeQualifier(file)}
		s.scanFile()
	}
}

// runtimeQualifier returns the name by which file refers to the savestate
// package. It is "savestate" when the file does not import it and empty when
// the file dot-imports it.
func runtimeQualifier(file *ast.File) string {
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != runtimePkg {
			continue
		}
		if imp.Name == nil || imp.Name.Name == "_" {
			return "savestate"
		}
		if imp.Name.Name == "." {
			return ""
		}
		return imp.Name.Name
	}
	return "savestate"
}

type fileScanner struct {
	ctx       *Context
	file      *ast.File
	qualifier string
}

func (s *fileScanner) scanFile() {
	for _, decl := range s.file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch spec := spec.(type) {
				case *ast.TypeSpec:
					doc := spec.Doc
					if doc == nil || len(doc.List) == 0 {
						doc = decl.Doc
					}
					s.scanType(spec, doc, 0, "")
				case *ast.ValueSpec:
					doc := spec.Doc
					if doc == nil || len(doc.List) == 0 {
						doc = decl.Doc
					}
					s.scanValues(spec, doc, decl.Tok)
				}
			}
		case *ast.FuncDecl:
			if decl.Body != nil {
				s.scanFuncBody(funcName(decl), decl.Body)
			}
		}
	}
}

func funcName(decl *ast.FuncDecl) string {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return decl.Name.Name
	}
	recv := decl.Recv.List[0].Type
	if star, ok := recv.(*ast.StarExpr); ok {
		recv = star.X
	}
	switch r := recv.(type) {
	case *ast.IndexExpr:
		recv = r.X
	case *ast.IndexListExpr:
		recv = r.X
	}
	if id, ok := recv.(*ast.Ident); ok {
		return id.Name + "." + decl.Name.Name
	}
	return decl.Name.Name
}

// scanFuncBody looks for struct types declared inside of a function. Their
// fields cannot be reached by generated code.
func (s *fileScanner) scanFuncBody(fn string, body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		if spec, ok := n.(*ast.TypeSpec); ok {
			s.scanType(spec, spec.Doc, Private, fn+".")
			return false
		}
		return true
	})
}

func (s *fileScanner) scanType(spec *ast.TypeSpec, doc *ast.CommentGroup, mods Modifiers, prefix string) {
	obj, ok := s.ctx.Package.Defs[spec.Name].(*types.TypeName)
	if !ok {
		return
	}
	enc := &Enclosing{
		Modifiers:   mods,
		PackagePath: s.ctx.Package.Pkg.Path(),
		PackageName: s.ctx.Package.Pkg.Name(),
		Name:        prefix + spec.Name.Name,
		SourceDir:   s.ctx.sourceDir(spec.Pos()),
		Pos:         s.ctx.position(spec.Name.Pos()),
	}
	if named, ok := obj.Type().(*types.Named); ok {
		enc.TypeParams = named.TypeParams()
	}
	switch t := spec.Type.(type) {
	case *ast.StructType:
		enc.Kind = KindClass
		if s.isAnnotationType(doc) {
			enc.Kind = KindAnnotation
		}
		s.scanFields(t, enc)
	case *ast.InterfaceType:
		enc.Kind = KindInterface
		if t.Methods == nil {
			return
		}
		for _, m := range t.Methods.List {
			for _, name := range m.Names {
				if obj := s.ctx.Package.Defs[name]; obj != nil {
					s.declaration(name, obj.Type(), 0, enc, m.Doc)
				}
			}
		}
	}
}

// isAnnotationType reports whether a struct type is itself marked as an
// annotation, as in "@annogo.Annotation". Malformed annotations on types are
// not ours to report.
func (s *fileScanner) isAnnotationType(doc *ast.CommentGroup) bool {
	buf, _ := s.extractAnnotations(doc)
	if buf == nil {
		return false
	}
	annos, err := parser.ParseAnnotations("", buf)
	if err != nil {
		return false
	}
	for _, a := range annos {
		if a.Type.Name == "Annotation" {
			return true
		}
	}
	return false
}

func (s *fileScanner) scanFields(st *ast.StructType, enc *Enclosing) {
	if st.Fields == nil {
		return
	}
	for _, fld := range st.Fields.List {
		names := fld.Names
		if names == nil {
			if id := embeddedIdent(fld.Type); id != nil {
				names = []*ast.Ident{id}
			}
		}
		for _, name := range names {
			obj := s.ctx.Package.Defs[name]
			if obj == nil {
				continue
			}
			var mods Modifiers
			if name.Name == "_" {
				mods |= Private
			}
			s.declaration(name, obj.Type(), mods, enc, fld.Doc)
			if nested, ok := fld.Type.(*ast.StructType); ok {
				inner := *enc
				inner.Kind = KindAnonymous
				inner.Name = enc.Name + "." + name.Name
				inner.TypeParams = nil
				inner.Pos = s.ctx.position(nested.Pos())
				s.scanFields(nested, &inner)
			}
		}
	}
}

func embeddedIdent(expr ast.Expr) *ast.Ident {
	switch e := expr.(type) {
	case *ast.Ident:
		return e
	case *ast.StarExpr:
		return embeddedIdent(e.X)
	case *ast.SelectorExpr:
		return e.Sel
	case *ast.IndexExpr:
		return embeddedIdent(e.X)
	case *ast.IndexListExpr:
		return embeddedIdent(e.X)
	}
	return nil
}

// scanValues handles package-level variables and constants. Constants of an
// enumerated type are enclosed by that type; everything else by the package.
func (s *fileScanner) scanValues(spec *ast.ValueSpec, doc *ast.CommentGroup, tok token.Token) {
	pkg := s.ctx.Package.Pkg
	for _, name := range spec.Names {
		obj := s.ctx.Package.Defs[name]
		if obj == nil {
			continue
		}
		enc := &Enclosing{
			Kind:        KindPackage,
			PackagePath: pkg.Path(),
			PackageName: pkg.Name(),
			SourceDir:   s.ctx.sourceDir(spec.Pos()),
			Pos:         s.ctx.position(s.file.Name.Pos()),
		}
		if tok == token.CONST {
			if named, ok := obj.Type().(*types.Named); ok && named.Obj().Pkg() == pkg {
				if _, isBasic := named.Underlying().(*types.Basic); isBasic {
					enc.Kind = KindEnum
					enc.Name = named.Obj().Name()
					enc.Pos = s.ctx.position(named.Obj().Pos())
				}
			}
		}
		s.declaration(name, obj.Type(), Static, enc, doc)
	}
}

// declaration parses the SaveState annotation in doc, if any, and records
// the element.
func (s *fileScanner) declaration(id *ast.Ident, typ types.Type, mods Modifiers, enc *Enclosing, doc *ast.CommentGroup) {
	buf, adjuster := s.extractAnnotations(doc)
	if buf == nil {
		return
	}
	annos, err := parser.ParseAnnotations(s.ctx.position(id.Pos()).Filename, buf)
	if err != nil {
		perr := err.(*parser.ParseError)
		s.ctx.Messager.Error(NewErrorWithPosition(adjuster.adjustPosition(perr.Pos()), perr.Underlying()))
		return
	}
	var found *parser.Annotation
	for i := range annos {
		a := &annos[i]
		if a.Type.Name != saveStateName || a.Type.PackageAlias != s.qualifier {
			continue
		}
		if found != nil {
			s.ctx.Messager.Errorf(adjuster.adjustPosition(a.Pos()), "@SaveState may appear only once on %s", id.Name)
			return
		}
		found = a
	}
	if found == nil {
		return
	}
	d := &DeclarationInfo{
		Name:      id.Name,
		Type:      typ,
		Modifiers: mods,
		Enclosing: enc,
		MinSdk:    savestate.MinSdkFloor,
		Pos:       s.ctx.position(id.Pos()),
	}
	if !s.convertElements(found, d, adjuster) {
		return
	}
	s.ctx.decls = append(s.ctx.decls, d)
}

func (s *fileScanner) convertElements(a *parser.Annotation, d *DeclarationInfo, adjuster posAdjuster) bool {
	ok := true
	seen := map[string]bool{}
	for _, el := range a.Elements {
		keyPos := adjuster.adjustPosition(el.KeyPos)
		valPos := adjuster.adjustPosition(el.Value.Pos)
		if seen[el.Key] {
			s.ctx.Messager.Errorf(keyPos, "SaveState.%s given more than once", el.Key)
			ok = false
			continue
		}
		seen[el.Key] = true
		switch el.Key {
		case "DefaultValue":
			lit := el.Value.Literal
			if lit == nil || lit.Kind() != constant.String {
				s.ctx.Messager.Errorf(valPos, "SaveState.DefaultValue must be a string, got %v", el.Value)
				ok = false
				continue
			}
			d.DefaultValue = constant.StringVal(lit)
		case "MinSdk":
			v, err := s.sdkVersion(el.Value)
			if err != nil {
				s.ctx.Messager.Error(NewErrorWithPosition(valPos, err))
				ok = false
				continue
			}
			d.MinSdk = v
		default:
			s.ctx.Messager.Errorf(keyPos, "SaveState has no attribute %s", el.Key)
			ok = false
		}
	}
	return ok
}

func (s *fileScanner) sdkVersion(v parser.Value) (savestate.SdkVersion, error) {
	if ref := v.Ref; ref != nil {
		if ref.PackageAlias != s.qualifier {
			return 0, fmt.Errorf("SaveState.MinSdk must name a platform level of package %s, got %v", runtimePkg, ref)
		}
		level, ok := savestate.SdkVersionByName(ref.Name)
		if !ok {
			return 0, fmt.Errorf("unknown platform level %v", ref)
		}
		return level, nil
	}
	if v.Literal == nil || v.Literal.Kind() != constant.Int {
		return 0, fmt.Errorf("SaveState.MinSdk must be an integer or a platform level, got %v", v)
	}
	n, exact := constant.Int64Val(v.Literal)
	if !exact || n != int64(int(n)) {
		return 0, fmt.Errorf("SaveState.MinSdk %v is out of range", v)
	}
	return savestate.SdkVersion(n), nil
}

// extractAnnotations returns the portion of doc that holds annotations, which
// starts at the first line whose first non-space character is '@'. The
// adjuster maps positions in the returned buffer back to the source file.
func (s *fileScanner) extractAnnotations(doc *ast.CommentGroup) (*bytes.Buffer, posAdjuster) {
	if doc == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	var adjuster posAdjuster
	found := false
	prevSingleLine := false
	var pos token.Position
	for _, l := range doc.List {
		txt := l.Text
		singleLine := false
		if strings.HasPrefix(txt, "/*") {
			txt = txt[2:]
			txt = strings.TrimSuffix(txt, "*/")
		} else if strings.HasPrefix(txt, "//") {
			singleLine = true
			txt = txt[2:]
		}

		if singleLine != prevSingleLine {
			found = false
			buf.Reset()
			prevSingleLine = singleLine
			adjuster = nil
		}

		pos = s.ctx.position(l.Slash)
		// skip past opening "//" or "/*"
		pos.Offset += 2
		pos.Column += 2

		for _, line := range strings.Split(txt, "\n") {
			trimmed := strings.TrimSpace(line)
			if !found && trimmed != "" && trimmed[0] == '@' {
				found = true
			}
			if found {
				adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}

		pos = s.ctx.position(l.End())
	}
	if !found {
		return nil, nil
	}
	adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
	return &buf, adjuster
}

type posAdj struct {
	outOffset int
	inPos     token.Position
}

type posAdjuster []posAdj

func (a posAdjuster) adjustPosition(pos scanner.Position) token.Position {
	if pos.Line < 1 || pos.Line > len(a) {
		return token.Position{}
	}
	el := a[pos.Line-1]
	var tok token.Position
	tok.Filename = el.inPos.Filename
	tok.Line = el.inPos.Line
	tok.Column = el.inPos.Column + pos.Column - 1
	tok.Offset = el.inPos.Offset + (pos.Offset - el.outOffset)
	return tok
}
