package vir

import (
	"strconv"
	"strings"
)

// Expr is an assertion or value expression. The set of implementations is
// closed; every node type lives in this file.
type Expr interface {
	String() string
	isExpr()
}

// BoolConst is a boolean literal.
type BoolConst struct{ Value bool }

// IntConst is an integer literal.
type IntConst struct{ Value int64 }

// PlaceExpr reads the value stored at a place.
type PlaceExpr struct{ Place Place }

// BinOpKind enumerates binary operators.
type BinOpKind uint8

const (
	OpAnd BinOpKind = iota + 1
	OpLeCmp
)

func (k BinOpKind) String() string {
	switch k {
	case OpAnd:
		return "&&"
	case OpLeCmp:
		return "<="
	default:
		return "?"
	}
}

// BinOp applies a binary operator.
type BinOp struct {
	Op    BinOpKind
	Left  Expr
	Right Expr
}

// FieldAccessPredicate is acc(place, perm) on a field location.
type FieldAccessPredicate struct {
	Place Place
	Perm  Perm
}

// PredicateAccess is an application name(args...).
type PredicateAccess struct {
	Name string
	Args []Expr
}

// PredicateAccessPredicate is acc(name(args...), perm).
type PredicateAccessPredicate struct {
	Access PredicateAccess
	Perm   Perm
}

func (BoolConst) isExpr()                {}
func (IntConst) isExpr()                 {}
func (PlaceExpr) isExpr()                {}
func (BinOp) isExpr()                    {}
func (FieldAccessPredicate) isExpr()     {}
func (PredicateAccess) isExpr()          {}
func (PredicateAccessPredicate) isExpr() {}

// Constructors ---------------------------------------------------------------

func True() Expr { return BoolConst{Value: true} }

func Int(v int64) Expr { return IntConst{Value: v} }

func Loc(p Place) Expr { return PlaceExpr{Place: p} }

func And(l, r Expr) Expr { return BinOp{Op: OpAnd, Left: l, Right: r} }

func LeCmp(l, r Expr) Expr { return BinOp{Op: OpLeCmp, Left: l, Right: r} }

func FieldAcc(p Place, perm Perm) Expr {
	return FieldAccessPredicate{Place: p, Perm: perm}
}

func PredAcc(name string, perm Perm, args ...Expr) Expr {
	return PredicateAccessPredicate{
		Access: PredicateAccess{Name: name, Args: args},
		Perm:   perm,
	}
}

// Conjoin folds exprs into a left-nested conjunction. An empty sequence
// yields the trivially true assertion.
func Conjoin(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return True()
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = And(acc, e)
	}
	return acc
}

// Conjuncts flattens nested conjunctions in left-to-right order. The literal
// true contributes nothing.
func Conjuncts(e Expr) []Expr {
	var out []Expr
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case BinOp:
			if x.Op == OpAnd {
				walk(x.Left)
				walk(x.Right)
				return
			}
		case BoolConst:
			if x.Value {
				return
			}
		}
		out = append(out, e)
	}
	walk(e)
	return out
}

// PredicateRefs lists predicate names applied anywhere inside e, in order of
// appearance, duplicates included.
func PredicateRefs(e Expr) []string {
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case BinOp:
			walk(x.Left)
			walk(x.Right)
		case PredicateAccess:
			out = append(out, x.Name)
			for _, a := range x.Args {
				walk(a)
			}
		case PredicateAccessPredicate:
			walk(x.Access)
		}
	}
	walk(e)
	return out
}

// Printing -------------------------------------------------------------------

func (c BoolConst) String() string { return strconv.FormatBool(c.Value) }

func (c IntConst) String() string { return strconv.FormatInt(c.Value, 10) }

func (p PlaceExpr) String() string { return p.Place.String() }

func (b BinOp) String() string {
	s := b.Left.String() + " " + b.Op.String() + " " + b.Right.String()
	if b.Op == OpAnd {
		return "(" + s + ")"
	}
	return s
}

func (a FieldAccessPredicate) String() string {
	return "acc(" + a.Place.String() + ", " + a.Perm.String() + ")"
}

func (a PredicateAccess) String() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.String()
	}
	return a.Name + "(" + strings.Join(args, ", ") + ")"
}

func (a PredicateAccessPredicate) String() string {
	return "acc(" + a.Access.String() + ", " + a.Perm.String() + ")"
}
