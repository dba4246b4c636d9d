package universe

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"vire/internal/types"
)

// SyntaxError reports a malformed type expression. Col is 1-based and
// counted in runes from the start of the expression.
type SyntaxError struct {
	Col int
	Msg string
	Err error // set when a path failed to resolve
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("col %d: %s", e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Resolver maps a non-primitive path to the nominal type it names.
type Resolver func(path string) (types.TypeID, error)

var primitives = map[string]types.Type{
	"bool":  {Kind: types.KindBool},
	"i8":    types.MakeInt(types.Width8),
	"i16":   types.MakeInt(types.Width16),
	"i32":   types.MakeInt(types.Width32),
	"i64":   types.MakeInt(types.Width64),
	"i128":  types.MakeInt(types.Width128),
	"isize": types.MakeInt(types.WidthAny),
	"int":   types.MakeInt(types.WidthAny),
	"u8":    types.MakeUint(types.Width8),
	"u16":   types.MakeUint(types.Width16),
	"u32":   types.MakeUint(types.Width32),
	"u64":   types.MakeUint(types.Width64),
	"u128":  types.MakeUint(types.Width128),
	"usize": types.MakeUint(types.WidthAny),
	"uint":  types.MakeUint(types.WidthAny),
	"f32":   types.MakeFloat(types.Width32),
	"f64":   types.MakeFloat(types.Width64),
	"str":   {Kind: types.KindString},
}

// IsPrimitive reports whether name is a built-in type name.
func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// ParseType interns the type written as text.
//
//	T := "!" | "&" ["mut"] T | "*" ("const" | "mut") T
//	   | "(" ")" | "(" T "," ")" | "(" T ")" | "(" T {"," T} [","] ")"
//	   | "fn" "(" [T {"," T}] ")" ["->" T] | "dyn" Path | "$" Ident | Path
//
// Paths are NFC-normalized before they reach resolve.
func ParseType(in *types.Interner, text string, resolve Resolver) (types.TypeID, error) {
	p := &exprParser{src: norm.NFC.String(text), in: in, resolve: resolve}
	id, err := p.typ()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if !p.eof() {
		return types.NoTypeID, p.errorf("unexpected %q after type", p.rest())
	}
	return id, nil
}

type exprParser struct {
	src     string
	off     int
	in      *types.Interner
	resolve Resolver
	depth   int
}

const maxNesting = 256

func (p *exprParser) typ() (types.TypeID, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return types.NoTypeID, p.errorf("type nested too deeply")
	}

	p.skipSpace()
	if p.eof() {
		return types.NoTypeID, p.errorf("expected a type")
	}
	switch p.src[p.off] {
	case '!':
		p.off++
		return p.in.Intern(types.Type{Kind: types.KindNever}), nil
	case '&':
		p.off++
		mutable := p.keyword("mut")
		elem, err := p.typ()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.in.Intern(types.MakeReference(elem, mutable)), nil
	case '*':
		p.off++
		var mutable bool
		switch {
		case p.keyword("mut"):
			mutable = true
		case p.keyword("const"):
		default:
			return types.NoTypeID, p.errorf("raw pointer needs `const` or `mut`")
		}
		elem, err := p.typ()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.in.Intern(types.MakePointer(elem, mutable)), nil
	case '(':
		return p.tuple()
	case '$':
		p.off++
		name := p.ident()
		if name == "" {
			return types.NoTypeID, p.errorf("expected a generic parameter name after `$`")
		}
		return p.in.GenericParam(name), nil
	}

	start := p.off
	path, err := p.path()
	if err != nil {
		return types.NoTypeID, err
	}
	switch path {
	case "fn":
		return p.fn()
	case "dyn":
		trait, err := p.path()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.in.Dyn(trait), nil
	}
	if t, ok := primitives[path]; ok {
		return p.in.Intern(t), nil
	}
	if p.resolve == nil {
		p.off = start
		return types.NoTypeID, p.errorf("unknown type %q", path)
	}
	id, err := p.resolve(path)
	if err != nil {
		p.off = start
		serr := p.errorf("%v", err)
		serr.Err = err
		return types.NoTypeID, serr
	}
	return id, nil
}

func (p *exprParser) tuple() (types.TypeID, error) {
	p.off++ // (
	p.skipSpace()
	if p.consume(")") {
		return p.in.Builtins().Unit, nil
	}
	elems, trailing, err := p.list()
	if err != nil {
		return types.NoTypeID, err
	}
	if len(elems) == 1 && !trailing {
		return elems[0], nil
	}
	return p.in.RegisterTuple(elems), nil
}

func (p *exprParser) fn() (types.TypeID, error) {
	p.skipSpace()
	if !p.consume("(") {
		return types.NoTypeID, p.errorf("expected `(` after fn")
	}
	var params []types.TypeID
	p.skipSpace()
	if !p.consume(")") {
		var err error
		if params, _, err = p.list(); err != nil {
			return types.NoTypeID, err
		}
	}
	result := types.NoTypeID
	p.skipSpace()
	if p.consume("->") {
		var err error
		if result, err = p.typ(); err != nil {
			return types.NoTypeID, err
		}
	}
	return p.in.Fn(params, result), nil
}

// list parses `T {, T} [,] )` and reports whether a trailing comma was seen.
func (p *exprParser) list() ([]types.TypeID, bool, error) {
	var out []types.TypeID
	for {
		t, err := p.typ()
		if err != nil {
			return nil, false, err
		}
		out = append(out, t)
		p.skipSpace()
		if p.consume(")") {
			return out, false, nil
		}
		if !p.consume(",") {
			return nil, false, p.errorf("expected `,` or `)`")
		}
		p.skipSpace()
		if p.consume(")") {
			return out, true, nil
		}
	}
}

func (p *exprParser) path() (string, error) {
	p.skipSpace()
	var segs []string
	for {
		seg := p.ident()
		if seg == "" {
			if p.eof() {
				return "", p.errorf("expected a type")
			}
			return "", p.errorf("unexpected %q", p.rest())
		}
		segs = append(segs, seg)
		if !p.consume("::") {
			return strings.Join(segs, "::"), nil
		}
	}
}

// keyword consumes word if it appears next as a whole identifier.
func (p *exprParser) keyword(word string) bool {
	p.skipSpace()
	save := p.off
	if p.ident() == word {
		return true
	}
	p.off = save
	return false
}

func (p *exprParser) ident() string {
	start := p.off
	for p.off < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.off:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.off += size
	}
	return p.src[start:p.off]
}

func (p *exprParser) consume(tok string) bool {
	if strings.HasPrefix(p.src[p.off:], tok) {
		p.off += len(tok)
		return true
	}
	return false
}

func (p *exprParser) skipSpace() {
	for p.off < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.off:])
		if !unicode.IsSpace(r) {
			return
		}
		p.off += size
	}
}

func (p *exprParser) eof() bool { return p.off >= len(p.src) }

func (p *exprParser) rest() string {
	r := p.src[p.off:]
	if utf8.RuneCountInString(r) > 16 {
		rs := []rune(r)
		return string(rs[:16]) + "..."
	}
	return r
}

func (p *exprParser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Col: utf8.RuneCountInString(p.src[:p.off]) + 1,
		Msg: fmt.Sprintf(format, args...),
	}
}
