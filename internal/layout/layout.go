package layout

import (
	"sync"

	"vire/internal/types"
)

// TypeLayout is the abstract heap layout of a type: how many field slots a
// value occupies and which component types it stores by value.
type TypeLayout struct {
	Slots int

	// Types held by value (tuple elements, variant fields). Indirections are
	// leaves and never appear here as a path to their pointee.
	Inline []types.TypeID
}

// LayoutEngine computes layouts and rejects types that contain themselves
// without passing through a pointer or reference.
type LayoutEngine struct {
	Types *types.Interner

	mu    sync.Mutex
	cache *cache
}

// New creates a LayoutEngine over the given interner.
func New(typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Types: typesIn,
		cache: newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		index: make(map[types.TypeID]int, 32),
	}
}

// LayoutOf computes and caches the layout of a type. It is safe for
// concurrent use.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

// Check reports whether t has a finite by-value layout.
func (e *LayoutEngine) Check(t types.TypeID) error {
	_, err := e.LayoutOf(t)
	return err
}

// SlotCount returns the number of heap field slots of t.
func (e *LayoutEngine) SlotCount(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Slots, err
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &LayoutError{
			Kind:       LayoutErrRecursiveUnsized,
			Type:       t,
			Cycle:      cycle,
			CycleNames: e.describeAll(cycle),
		}
		e.cache.put(t, &cacheEntry{Err: err})
		return TypeLayout{}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	layout, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: layout, Err: err})
	return layout, err
}

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrInvalidType, Type: id}
	}

	switch tt.Kind {
	case types.KindBool, types.KindInt, types.KindUint,
		types.KindPointer, types.KindReference:
		return TypeLayout{Slots: 1}, nil

	case types.KindTuple:
		elems := e.Types.TupleElems(id)
		return e.inlineLayout(len(elems), elems, state)

	case types.KindNominal:
		info, ok := e.Types.NominalInfo(id)
		if !ok {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrInvalidType, Type: id}
		}
		slots := 0
		if info.IsEnum() {
			slots++ // discriminant
		}
		var inline []types.TypeID
		for _, v := range info.Variants {
			for _, f := range v.Fields {
				inline = append(inline, f.Type)
			}
		}
		return e.inlineLayout(slots+len(inline), inline, state)

	default:
		// Kinds without a heap encoding occupy nothing here; rejecting them
		// is the encoder's job.
		return TypeLayout{}, nil
	}
}

func (e *LayoutEngine) inlineLayout(slots int, inline []types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	for _, child := range inline {
		if _, err := e.layoutOf(child, state); err != nil {
			return TypeLayout{}, err
		}
	}
	return TypeLayout{Slots: slots, Inline: inline}, nil
}

func (e *LayoutEngine) describeAll(ids []types.TypeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.Types.Describe(id)
	}
	return out
}
