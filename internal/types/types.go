package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all kinds a resolved type can have.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindNever
	KindPointer
	KindReference
	KindTuple
	KindNominal
	KindGenericParam
	KindFn
	KindDyn

	kindCount
)

// Kinds lists every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindInvalid + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNever:
		return "never"
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindTuple:
		return "tuple"
	case KindNominal:
		return "nominal"
	case KindGenericParam:
		return "generic"
	case KindFn:
		return "fn"
	case KindDyn:
		return "dyn"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width128 Width = 128
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointee for pointers/references, result for fn
	Width   Width  // for numeric primitives
	Mutable bool   // for pointers and references
	Payload uint32 // side-table slot (tuple, nominal) or StringID (generic, dyn)
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width (WidthAny for isize).
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes *const T or *mut T.
func MakePointer(elem TypeID, mutable bool) Type {
	return Type{Kind: KindPointer, Elem: elem, Mutable: mutable}
}

// MakeReference describes &T or &mut T depending on the mutable flag.
func MakeReference(elem TypeID, mutable bool) Type {
	return Type{Kind: KindReference, Elem: elem, Mutable: mutable}
}

// IsIndirection reports whether values of the kind store a location.
func (k Kind) IsIndirection() bool {
	return k == KindPointer || k == KindReference
}
