package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"vire/internal/source"
)

// Field describes a single named field of a variant.
type Field struct {
	Name source.StringID
	Type TypeID
}

// Variant describes one constructor of a nominal type. Discriminant is the
// canonical tag value the type-resolution step assigned to the variant.
type Variant struct {
	Name         source.StringID
	Discriminant int64
	Fields       []Field
}

// NominalInfo stores metadata for a monomorphized algebraic type. A single
// variant makes it a plain product (struct); several make it a tagged union.
type NominalInfo struct {
	Name     source.StringID
	Decl     source.Pos
	TypeArgs []TypeID
	Variants []Variant
}

// IsEnum reports whether the type needs a discriminant.
func (info *NominalInfo) IsEnum() bool {
	return info != nil && len(info.Variants) > 1
}

// RegisterNominal allocates a nominal type slot and returns its TypeID.
// Nominal types are identified by registration, never by structure.
func (in *Interner) RegisterNominal(name source.StringID, decl source.Pos) TypeID {
	return in.RegisterNominalInstance(name, decl, nil)
}

// RegisterNominalInstance allocates a nominal instantiation with concrete type
// arguments. Arguments must already be interned, so an instantiation can
// never list itself among its own arguments.
func (in *Interner) RegisterNominalInstance(name source.StringID, decl source.Pos, args []TypeID) TypeID {
	slot := in.appendNominalInfo(NominalInfo{Name: name, Decl: decl, TypeArgs: args})
	return in.internRaw(Type{Kind: KindNominal, Payload: slot})
}

// SetNominalVariants stores the resolved variants for the nominal type.
func (in *Interner) SetNominalVariants(typeID TypeID, variants []Variant) {
	info := in.nominalInfo(typeID)
	if info == nil {
		return
	}
	info.Variants = cloneVariants(variants)
}

// SetStructFields is shorthand for a single-variant nominal whose variant
// shares the type's name.
func (in *Interner) SetStructFields(typeID TypeID, fields []Field) {
	info := in.nominalInfo(typeID)
	if info == nil {
		return
	}
	info.Variants = []Variant{{Name: info.Name, Fields: slices.Clone(fields)}}
}

// NominalInfo returns metadata for the provided nominal TypeID.
func (in *Interner) NominalInfo(typeID TypeID) (*NominalInfo, bool) {
	info := in.nominalInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// FindNominalInstance returns a nominal TypeID whose name and type arguments match args.
func (in *Interner) FindNominalInstance(name source.StringID, args []TypeID) (TypeID, bool) {
	if in == nil || name == source.NoStringID {
		return NoTypeID, false
	}
	for id := TypeID(1); int(id) < len(in.types); id++ {
		if in.types[id].Kind != KindNominal {
			continue
		}
		info := in.nominalInfo(id)
		if info == nil || info.Name != name {
			continue
		}
		if slices.Equal(info.TypeArgs, args) {
			return id, true
		}
	}
	return NoTypeID, false
}

func (in *Interner) nominalInfo(typeID TypeID) *NominalInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindNominal {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return nil
	}
	return &in.nominals[tt.Payload]
}

func (in *Interner) appendNominalInfo(info NominalInfo) uint32 {
	if in.nominals == nil {
		in.nominals = append(in.nominals, NominalInfo{})
	}
	in.nominals = append(in.nominals, NominalInfo{
		Name:     info.Name,
		Decl:     info.Decl,
		TypeArgs: cloneTypeArgs(info.TypeArgs),
		Variants: cloneVariants(info.Variants),
	})
	slot, err := safecast.Conv[uint32](len(in.nominals) - 1)
	if err != nil {
		panic(fmt.Errorf("nominal info overflow: %w", err))
	}
	return slot
}

func cloneVariants(variants []Variant) []Variant {
	if len(variants) == 0 {
		return nil
	}
	out := make([]Variant, len(variants))
	copy(out, variants)
	for i := range out {
		out[i].Fields = slices.Clone(out[i].Fields)
	}
	return out
}
