package encoder

import "vire/internal/types"

// family groups kinds that share one encoding. Every derivation switches on
// the family, never on the raw kind, so a new kind is only encodable once
// classify knows about it.
type family uint8

const (
	familyScalar family = iota + 1
	familyIndirection
	familyTuple
	familyNominal
	familyUnsupported
)

func (f family) String() string {
	switch f {
	case familyScalar:
		return "scalar"
	case familyIndirection:
		return "indirection"
	case familyTuple:
		return "tuple"
	case familyNominal:
		return "nominal"
	case familyUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

func classify(k types.Kind) (family, bool) {
	switch k {
	case types.KindBool, types.KindInt, types.KindUint:
		return familyScalar, true
	case types.KindPointer, types.KindReference:
		return familyIndirection, true
	case types.KindTuple:
		return familyTuple, true
	case types.KindNominal:
		return familyNominal, true
	case types.KindFloat, types.KindString, types.KindNever,
		types.KindGenericParam, types.KindFn, types.KindDyn:
		return familyUnsupported, true
	default:
		return 0, false
	}
}
