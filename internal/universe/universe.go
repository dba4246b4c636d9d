// Package universe loads the set of types to encode from a YAML document.
package universe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"vire/internal/source"
	"vire/internal/types"
)

// Error is a problem in a universe document.
type Error struct {
	Pos source.Pos
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Universe is a loaded document: every declared nominal type registered in
// one interner, plus the resolved roots.
//
// Resolve may intern new types, so it must not run concurrently with encoding.
type Universe struct {
	File  string
	Types *types.Interner
	Roots []types.TypeID
	Decls []Decl

	ids map[string]types.TypeID
}

// Load reads and parses the universe at path.
func Load(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading universe %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes data; file is only used for positions.
func Parse(file string, data []byte) (*Universe, error) {
	data, _ = source.Normalize(data)
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return Build(file, &f)
}

// Build registers the declarations of f in a fresh interner.
func Build(file string, f *File) (*Universe, error) {
	l := &loader{
		file:  file,
		in:    types.NewInterner(),
		decls: f.Types,
		byKey: make(map[string]int, len(f.Types)),
	}
	if err := l.index(); err != nil {
		return nil, err
	}
	l.ids = make([]types.TypeID, len(l.decls))
	l.state = make([]regState, len(l.decls))
	for i := range l.decls {
		if _, err := l.register(i); err != nil {
			return nil, err
		}
	}
	for i := range l.decls {
		if err := l.define(i); err != nil {
			return nil, err
		}
	}

	u := &Universe{
		File:  file,
		Types: l.in,
		Decls: l.decls,
		ids:   make(map[string]types.TypeID, len(l.decls)),
	}
	for key, i := range l.byKey {
		u.ids[key] = l.ids[i]
	}
	for _, r := range f.Roots {
		id, err := l.parse(r)
		if err != nil {
			return nil, err
		}
		u.Roots = append(u.Roots, id)
	}
	return u, nil
}

// Lookup returns the nominal type declared under key.
func (u *Universe) Lookup(key string) (types.TypeID, bool) {
	id, ok := u.ids[norm.NFC.String(key)]
	return id, ok
}

// Resolve interns a type expression over the declared types.
func (u *Universe) Resolve(expr string) (types.TypeID, error) {
	id, err := ParseType(u.Types, expr, func(path string) (types.TypeID, error) {
		if id, ok := u.ids[path]; ok {
			return id, nil
		}
		return types.NoTypeID, fmt.Errorf("unknown type %q", path)
	})
	if err != nil {
		return types.NoTypeID, fmt.Errorf("type %q: %w", expr, err)
	}
	return id, nil
}

type regState uint8

const (
	unregistered regState = iota
	registering
	registered
)

type loader struct {
	file  string
	in    *types.Interner
	decls []Decl
	byKey map[string]int
	ids   []types.TypeID
	state []regState
}

func (l *loader) pos(line, col int) source.Pos {
	return source.Pos{File: l.file, Line: line, Col: col}
}

func (l *loader) errorf(line int, format string, args ...any) *Error {
	return &Error{Pos: l.pos(line, 0), Msg: fmt.Sprintf(format, args...)}
}

func (l *loader) index() error {
	for i := range l.decls {
		d := &l.decls[i]
		normalizeDecl(d)
		if d.Name == "" {
			return l.errorf(d.Line, "types[%d]: name is required", i)
		}
		key := d.Key()
		if IsPrimitive(key) || key == "fn" || key == "dyn" {
			return l.errorf(d.Line, "types[%d]: %q is reserved", i, key)
		}
		if !isPath(key) {
			return l.errorf(d.Line, "types[%d]: %q is not a valid type path", i, key)
		}
		if prev, dup := l.byKey[key]; dup {
			return l.errorf(d.Line, "types[%d]: %q is already declared at line %d", i, key, l.decls[prev].Line)
		}
		if len(d.Fields) > 0 && len(d.Variants) > 0 {
			return l.errorf(d.Line, "types[%d] (%s): fields and variants are mutually exclusive", i, key)
		}
		for vi, v := range d.Variants {
			if v.Name == "" {
				return l.errorf(v.Line, "types[%d].variants[%d]: name is required", i, vi)
			}
			if err := l.checkFields(d, v.Fields, v.Line); err != nil {
				return err
			}
		}
		if err := l.checkFields(d, d.Fields, d.Line); err != nil {
			return err
		}
		l.byKey[key] = i
	}
	return nil
}

// normalizeDecl brings every name of d to NFC so that keys compare equal no
// matter how the document spelled them. Type expressions are normalized by
// ParseType.
func normalizeDecl(d *Decl) {
	d.Name = norm.NFC.String(d.Name)
	d.ID = norm.NFC.String(d.ID)
	normalizeFields(d.Fields)
	for i := range d.Variants {
		v := &d.Variants[i]
		v.Name = norm.NFC.String(v.Name)
		normalizeFields(v.Fields)
	}
}

func normalizeFields(fields []FieldDecl) {
	for i := range fields {
		fields[i].Name = norm.NFC.String(fields[i].Name)
	}
}

func isPath(s string) bool {
	for _, seg := range strings.Split(s, "::") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

func (l *loader) checkFields(d *Decl, fields []FieldDecl, line int) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return l.errorf(line, "%s: field name is required", d.Key())
		}
		if f.Type.Text == "" {
			return l.errorf(line, "%s: field %q has no type", d.Key(), f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return l.errorf(f.Type.Line, "%s: duplicate field %q", d.Key(), f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// register allocates the TypeID of decls[i]. Arguments are resolved first,
// registering the declarations they mention on demand.
func (l *loader) register(i int) (types.TypeID, error) {
	d := &l.decls[i]
	switch l.state[i] {
	case registered:
		return l.ids[i], nil
	case registering:
		return types.NoTypeID, l.errorf(d.Line, "type arguments of %q refer back to it", d.Key())
	}
	l.state[i] = registering

	args := make([]types.TypeID, len(d.Args))
	for ai, a := range d.Args {
		id, err := l.parse(a)
		if err != nil {
			return types.NoTypeID, err
		}
		args[ai] = id
	}
	name := l.in.Strings.Intern(d.Name)
	if prev, ok := l.in.FindNominalInstance(name, args); ok {
		return types.NoTypeID, l.errorf(d.Line, "%s duplicates the declaration of %s",
			d.Key(), l.in.Describe(prev))
	}
	if len(args) == 0 {
		args = nil
	}
	id := l.in.RegisterNominalInstance(name, l.pos(d.Line, 0), args)
	l.ids[i] = id
	l.state[i] = registered
	return id, nil
}

// define resolves the fields of decls[i]. A declaration without fields or
// variants is a struct with no fields.
func (l *loader) define(i int) error {
	d := &l.decls[i]
	id := l.ids[i]
	if len(d.Variants) == 0 {
		fields, err := l.fields(d.Fields)
		if err != nil {
			return err
		}
		l.in.SetStructFields(id, fields)
		return nil
	}
	variants := make([]types.Variant, len(d.Variants))
	for vi, v := range d.Variants {
		fields, err := l.fields(v.Fields)
		if err != nil {
			return err
		}
		disc := int64(vi)
		if v.Discriminant != nil {
			disc = *v.Discriminant
		}
		variants[vi] = types.Variant{
			Name:         l.in.Strings.Intern(v.Name),
			Discriminant: disc,
			Fields:       fields,
		}
	}
	l.in.SetNominalVariants(id, variants)
	return nil
}

func (l *loader) fields(decls []FieldDecl) ([]types.Field, error) {
	out := make([]types.Field, len(decls))
	for i, f := range decls {
		t, err := l.parse(f.Type)
		if err != nil {
			return nil, err
		}
		out[i] = types.Field{Name: l.in.Strings.Intern(f.Name), Type: t}
	}
	return out, nil
}

func (l *loader) parse(e Expr) (types.TypeID, error) {
	id, err := ParseType(l.in, e.Text, l.resolve)
	if err == nil {
		return id, nil
	}
	var uerr *Error
	if errors.As(err, &uerr) {
		return types.NoTypeID, uerr
	}
	return types.NoTypeID, &Error{Pos: l.pos(e.Line, e.Col), Msg: fmt.Sprintf("in %q", e.Text), Err: err}
}

func (l *loader) resolve(path string) (types.TypeID, error) {
	i, ok := l.byKey[path]
	if !ok {
		return types.NoTypeID, fmt.Errorf("unknown type %q", path)
	}
	return l.register(i)
}
