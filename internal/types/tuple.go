package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// RegisterTuple creates or finds an existing tuple type with the given elements.
func (in *Interner) RegisterTuple(elems []TypeID) TypeID {
	slot := in.tupleSlot(elems)
	return in.Intern(Type{Kind: KindTuple, Payload: slot})
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (*TupleInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return &in.tuples[tt.Payload], true
}

// TupleElems returns a copy of the tuple's element types.
func (in *Interner) TupleElems(id TypeID) []TypeID {
	info, ok := in.TupleInfo(id)
	if !ok {
		return nil
	}
	return cloneTypeArgs(info.Elems)
}

// tupleSlot returns the side-table slot for an element list, sharing slots
// between equal lists so that structurally equal tuples intern to one TypeID.
func (in *Interner) tupleSlot(elems []TypeID) uint32 {
	key := tupleKey(elems)
	if slot, ok := in.tupleIndex[key]; ok {
		return slot
	}
	in.tuples = append(in.tuples, TupleInfo{Elems: cloneTypeArgs(elems)})
	slot, err := safecast.Conv[uint32](len(in.tuples) - 1)
	if err != nil {
		panic(fmt.Errorf("tuple info overflow: %w", err))
	}
	in.tupleIndex[key] = slot
	return slot
}

func tupleKey(elems []TypeID) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(elems)))
	for _, e := range elems {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(e), 10))
	}
	return b.String()
}

func cloneTypeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	out := make([]TypeID, len(args))
	copy(out, args)
	return out
}
