package vir

import (
	"io"
	"strings"
)

// Predicate is a named, parameterized assertion. A nil Body declares an
// abstract predicate.
type Predicate struct {
	Name string
	Args []LocalVar
	Body Expr
}

func NewPredicate(name string, args []LocalVar, body Expr) Predicate {
	return Predicate{Name: name, Args: args, Body: body}
}

func (p Predicate) String() string {
	var b strings.Builder
	_, _ = NewPrinter(&b).Predicate(p)
	return b.String()
}

// Printer writes IR declarations in the backend's textual syntax. Top-level
// conjunctions are laid out one conjunct per line so diffs between runs stay
// readable.
type Printer struct {
	w      io.Writer
	Indent string
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, Indent: "  "}
}

// Field writes a field declaration followed by a newline.
func (pr *Printer) Field(f Field) (int, error) {
	return io.WriteString(pr.w, f.String()+"\n")
}

// Predicate writes a predicate definition followed by a newline.
func (pr *Printer) Predicate(p Predicate) (int, error) {
	var b strings.Builder
	b.WriteString("predicate ")
	b.WriteString(p.Name)
	b.WriteByte('(')
	for i, a := range p.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	if p.Body == nil {
		b.WriteByte('\n')
		return io.WriteString(pr.w, b.String())
	}
	b.WriteString(" {\n")
	conj := Conjuncts(p.Body)
	if len(conj) == 0 {
		conj = []Expr{True()}
	}
	for i, c := range conj {
		b.WriteString(pr.Indent)
		b.WriteString(c.String())
		if i < len(conj)-1 {
			b.WriteString(" &&")
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return io.WriteString(pr.w, b.String())
}
