package types

import (
	"fmt"

	"fortio.org/safecast"

	"vire/internal/source"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Bool TypeID
	Int  TypeID
	Uint TypeID
	Unit TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
//
// Building the interner is single-threaded. Once built it is only read, and
// concurrent readers are safe.
type Interner struct {
	Strings *source.Interner

	types      []Type
	index      map[typeKey]TypeID
	builtins   Builtins
	tuples     []TupleInfo
	tupleIndex map[string]uint32
	nominals   []NominalInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	return NewInternerWithStrings(source.NewInterner())
}

// NewInternerWithStrings shares an existing identifier interner.
func NewInternerWithStrings(strs *source.Interner) *Interner {
	in := &Interner{
		Strings:    strs,
		index:      make(map[typeKey]TypeID, 64),
		tupleIndex: make(map[string]uint32, 16),
	}
	in.tuples = append(in.tuples, TupleInfo{})       // reserve 0 as invalid sentinel
	in.nominals = append(in.nominals, NominalInfo{}) // reserve 0 as invalid sentinel
	in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Unit = in.RegisterTuple(nil)
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Len reports the number of interned types, the invalid sentinel included.
func (in *Interner) Len() int {
	return len(in.types)
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// GenericParam describes an unresolved generic parameter named name.
func (in *Interner) GenericParam(name string) TypeID {
	return in.Intern(Type{Kind: KindGenericParam, Payload: uint32(in.Strings.Intern(name))})
}

// Dyn describes a trait object for the named trait.
func (in *Interner) Dyn(trait string) TypeID {
	return in.Intern(Type{Kind: KindDyn, Payload: uint32(in.Strings.Intern(trait))})
}

// Fn describes a function or closure type.
func (in *Interner) Fn(params []TypeID, result TypeID) TypeID {
	slot := in.tupleSlot(params)
	return in.Intern(Type{Kind: KindFn, Elem: result, Payload: slot})
}

// FnParams returns the parameter types for a fn TypeID.
func (in *Interner) FnParams(id TypeID) ([]TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return cloneTypeArgs(in.tuples[tt.Payload].Elems), true
}

type typeKey Type
