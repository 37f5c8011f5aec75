// Package parser parses the annotations found in doc comments. The input is
// the annotation block of a comment: everything from the first line that
// starts with '@' to the end of the comment.
//
// Each annotation is an '@' followed by a possibly-qualified type name and an
// optional body in braces. The body holds key-value elements separated by
// commas, with an optional trailing comma. Newlines end an annotation unless
// they appear inside of braces.
//
//	@savestate.SaveState
//	@savestate.SaveState{
//	    DefaultValue: "none",
//	    MinSdk:       savestate.Honeycomb,
//	}
//
// Element values are int and float literals (optionally negated), string
// literals (interpreted or raw), true and false, and possibly-qualified
// identifiers that name constants.
package parser

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"io"
	"text/scanner"
)

const _ERROR = -100

type lexToken struct {
	r    rune
	text string
	pos  scanner.Position
}

type annoLex struct {
	s      scanner.Scanner
	err    error
	errPos scanner.Position
	// inside of braces, newlines are just whitespace
	depth int
}

func newLexer(filename string, r io.Reader) *annoLex {
	var l annoLex
	l.s.Init(r)
	l.s.Filename = filename
	l.s.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanChars |
		scanner.ScanStrings | scanner.ScanRawStrings
	l.s.Whitespace = 0
	l.s.Error = func(s *scanner.Scanner, msg string) {
		if l.err == nil {
			l.err = errors.New(msg)
			l.errPos = s.Pos()
		}
	}
	return &l
}

func (l *annoLex) lex() lexToken {
	for {
		// we handle whitespace ourselves so that we can easily know the
		// *start* position for a token
		pos := l.s.Pos()
		r := l.s.Scan()
		if l.err != nil {
			return lexToken{r: _ERROR, pos: l.errPos}
		}
		switch r {
		case ' ', '\t', '\r':
			continue
		case '\n':
			if l.depth > 0 {
				continue
			}
		}
		return lexToken{r: r, text: l.s.TokenText(), pos: pos}
	}
}

// ParseError describes a syntax error in an annotation block.
type ParseError struct {
	err error
	pos scanner.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.pos.Line, e.pos.Column, e.err)
}

// Underlying returns the error without position information.
func (e *ParseError) Underlying() error {
	return e.err
}

// Pos returns the location of the offending token, relative to the start of
// the parsed input.
func (e *ParseError) Pos() scanner.Position {
	return e.pos
}

// ParseAnnotations parses all annotations in the given input. A non-nil error
// is always a *ParseError.
func ParseAnnotations(filename string, r io.Reader) ([]Annotation, error) {
	p := annoParser{l: newLexer(filename, r)}
	annos, err := p.parse()
	if err != nil {
		return nil, err
	}
	return annos, nil
}

type annoParser struct {
	l      *annoLex
	ahead  lexToken
	peeked bool
}

func (p *annoParser) peek() lexToken {
	if !p.peeked {
		p.ahead = p.l.lex()
		p.peeked = true
	}
	return p.ahead
}

func (p *annoParser) next() lexToken {
	t := p.peek()
	p.peeked = false
	return t
}

func (p *annoParser) parse() ([]Annotation, error) {
	var res []Annotation
	for {
		t := p.peek()
		switch t.r {
		case scanner.EOF:
			return res, nil
		case '\n':
			p.next()
		case '@':
			a, err := p.parseAnnotation()
			if err != nil {
				return nil, err
			}
			res = append(res, a)
			if t := p.peek(); t.r != '\n' && t.r != '@' && t.r != scanner.EOF {
				return nil, p.unexpected(t, "end-of-line")
			}
		default:
			return nil, p.unexpected(t, `"@"`)
		}
	}
}

func (p *annoParser) parseAnnotation() (Annotation, error) {
	at := p.next()
	id, err := p.parseIdentifier()
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{Type: id, pos: at.pos}
	if p.peek().r != '{' {
		return a, nil
	}
	p.next()
	p.l.depth++
	a.Elements = []Element{}
	for {
		if p.peek().r == '}' {
			p.next()
			p.l.depth--
			return a, nil
		}
		key := p.next()
		if key.r != scanner.Ident {
			return Annotation{}, p.unexpected(key, `identifier or "}"`)
		}
		if colon := p.next(); colon.r != ':' {
			return Annotation{}, p.unexpected(colon, `":"`)
		}
		v, err := p.parseValue()
		if err != nil {
			return Annotation{}, err
		}
		a.Elements = append(a.Elements, Element{Key: key.text, KeyPos: key.pos, Value: v})

		switch t := p.next(); t.r {
		case ',':
		case '}':
			p.l.depth--
			return a, nil
		default:
			return Annotation{}, p.unexpected(t, `"," or "}"`)
		}
	}
}

func (p *annoParser) parseIdentifier() (Identifier, error) {
	t := p.next()
	if t.r != scanner.Ident {
		return Identifier{}, p.unexpected(t, "identifier")
	}
	id := Identifier{Name: t.text, Pos: t.pos}
	if p.peek().r != '.' {
		return id, nil
	}
	p.next()
	n := p.next()
	if n.r != scanner.Ident {
		return Identifier{}, p.unexpected(n, "identifier")
	}
	id.PackageAlias = id.Name
	id.Name = n.text
	return id, nil
}

func (p *annoParser) parseValue() (Value, error) {
	t := p.peek()
	switch t.r {
	case '-':
		p.next()
		n := p.next()
		if n.r != scanner.Int && n.r != scanner.Float {
			return Value{}, p.unexpected(n, "numeric literal")
		}
		v, err := literal(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Literal: constant.UnaryOp(token.SUB, v, 0), Pos: t.pos}, nil
	case scanner.Int, scanner.Float, scanner.String, scanner.RawString:
		p.next()
		v, err := literal(t)
		if err != nil {
			return Value{}, err
		}
		return Value{Literal: v, Pos: t.pos}, nil
	case scanner.Ident:
		switch t.text {
		case "true", "false":
			p.next()
			return Value{Literal: constant.MakeBool(t.text == "true"), Pos: t.pos}, nil
		}
		id, err := p.parseIdentifier()
		if err != nil {
			return Value{}, err
		}
		return Value{Ref: &id, Pos: t.pos}, nil
	default:
		return Value{}, p.unexpected(p.next(), "value")
	}
}

func literal(t lexToken) (constant.Value, error) {
	var kind token.Token
	switch t.r {
	case scanner.Int:
		kind = token.INT
	case scanner.Float:
		kind = token.FLOAT
	default:
		kind = token.STRING
	}
	v := constant.MakeFromLiteral(t.text, kind, 0)
	if v.Kind() == constant.Unknown {
		return nil, &ParseError{err: fmt.Errorf("invalid literal %s", t.text), pos: t.pos}
	}
	return v, nil
}

func (p *annoParser) unexpected(t lexToken, expecting string) error {
	if t.r == _ERROR {
		return &ParseError{err: p.l.err, pos: t.pos}
	}
	return &ParseError{
		err: fmt.Errorf("syntax error: unexpected %s, expecting %s", describe(t), expecting),
		pos: t.pos,
	}
}

func describe(t lexToken) string {
	switch t.r {
	case scanner.EOF:
		return "end of input"
	case '\n':
		return "end-of-line"
	case scanner.Ident:
		return fmt.Sprintf("identifier %q", t.text)
	case scanner.Int:
		return "int literal"
	case scanner.Float:
		return "float literal"
	case scanner.Char:
		return "rune literal"
	case scanner.String:
		return "string literal"
	case scanner.RawString:
		return "raw string literal"
	default:
		return fmt.Sprintf("%q", t.text)
	}
}
