package vir

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the sort of a field or local variable.
type Type uint8

const (
	TypeBool Type = iota + 1
	TypeInt
	TypeRef
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeRef:
		return "Ref"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// Field is a heap field declaration.
type Field struct {
	Name string
	Type Type
}

func NewField(name string, typ Type) Field {
	return Field{Name: name, Type: typ}
}

func (f Field) String() string {
	return "field " + f.Name + ": " + f.Type.String()
}

// LocalVar is a formal parameter or local variable.
type LocalVar struct {
	Name string
	Type Type
}

func NewLocalVar(name string, typ Type) LocalVar {
	return LocalVar{Name: name, Type: typ}
}

func (v LocalVar) String() string {
	return v.Name + ": " + v.Type.String()
}

// Place is an abstract heap location: a local variable followed by a chain of
// field dereferences.
type Place struct {
	Base   LocalVar
	Fields []Field
}

// PlaceFrom starts a place at a local variable.
func PlaceFrom(v LocalVar) Place {
	return Place{Base: v}
}

// Access extends the place by one field. The receiver is left unchanged.
func (p Place) Access(f Field) Place {
	fields := make([]Field, len(p.Fields), len(p.Fields)+1)
	copy(fields, p.Fields)
	return Place{Base: p.Base, Fields: append(fields, f)}
}

// Type is the sort of the value stored at the place.
func (p Place) Type() Type {
	if len(p.Fields) == 0 {
		return p.Base.Type
	}
	return p.Fields[len(p.Fields)-1].Type
}

// Equal reports structural equality.
func (p Place) Equal(o Place) bool {
	return p.Base == o.Base && slices.Equal(p.Fields, o.Fields)
}

func (p Place) String() string {
	var b strings.Builder
	b.WriteString(p.Base.Name)
	for _, f := range p.Fields {
		b.WriteByte('.')
		b.WriteString(f.Name)
	}
	return b.String()
}

// Perm is a fractional permission amount Num/Den.
type Perm struct {
	Num uint32
	Den uint32
}

// FullPerm is the write permission.
func FullPerm() Perm { return Perm{Num: 1, Den: 1} }

// NoPerm is the empty permission.
func NoPerm() Perm { return Perm{Num: 0, Den: 1} }

// FracPerm builds num/den; den must be positive.
func FracPerm(num, den uint32) Perm {
	if den == 0 {
		panic("vir: zero permission denominator")
	}
	return Perm{Num: num, Den: den}
}

// IsFull reports whether the amount equals the write permission.
func (p Perm) IsFull() bool {
	return p.Den != 0 && p.Num == p.Den
}

func (p Perm) String() string {
	switch {
	case p.IsFull():
		return "write"
	case p.Num == 0:
		return "none"
	default:
		return fmt.Sprintf("%d/%d", p.Num, p.Den)
	}
}
