package encoder

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"vire/internal/types"
	"vire/internal/vir"
)

const (
	opValueField     = "value_field"
	opValueFieldName = "value_field_name"
	opFields         = "fields"
	opPredicateName  = "predicate_use_name"
	opPredicateDef   = "predicate_def"
	opDependencies   = "dependencies"
	opCheckLayout    = "check_layout"
)

// Registry memoizes everything derived from a type, keyed by TypeID. The
// interner already maps structurally equal types to one TypeID, so each
// distinct type is encoded once. Several TypeIDs that only differ in erased
// details (`u8` and `usize`, `&T` and `*const T`) derive one shared name and
// one predicate.
//
// The registry is append-only and safe for concurrent use. Concurrent
// requests for the same entry wait for the first one and share its result.
// Name and field derivation never needs a nested predicate body, which is what
// keeps derivation for recursive types finite.
type Registry struct {
	ctx *Context

	mu          sync.RWMutex
	valueFields map[types.TypeID]vir.Field
	names       map[types.TypeID]string
	nameOwners  map[string]types.TypeID
	fields      map[types.TypeID][]vir.Field
	preds       map[types.TypeID]vir.Predicate
	defs        map[string]vir.Predicate
	refFields   map[string]vir.Field

	group singleflight.Group
}

func newRegistry(ctx *Context) *Registry {
	return &Registry{
		ctx:         ctx,
		valueFields: make(map[types.TypeID]vir.Field, 16),
		names:       make(map[types.TypeID]string, 64),
		nameOwners:  make(map[string]types.TypeID, 64),
		fields:      make(map[types.TypeID][]vir.Field, 64),
		preds:       make(map[types.TypeID]vir.Predicate, 64),
		defs:        make(map[string]vir.Predicate, 64),
		refFields:   make(map[string]vir.Field, 64),
	}
}

// ValueField returns the scalar payload field of a scalar or pointer type.
func (r *Registry) ValueField(id types.TypeID) (vir.Field, error) {
	return memo(r, r.valueFields, opValueField, id, func() (vir.Field, error) {
		return NewTypeEncoder(r.ctx, id).ValueField()
	})
}

// ValueFieldName returns the name of ValueField(id).
func (r *Registry) ValueFieldName(id types.TypeID) (string, error) {
	f, err := r.ValueField(id)
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

// PredicateName returns the name of the access predicate of id. Types share a
// name only when they differ in erased details alone; any other clash is
// reported as an internal consistency error.
func (r *Registry) PredicateName(id types.TypeID) (string, error) {
	return memo(r, r.names, opPredicateName, id, func() (string, error) {
		name, err := NewTypeEncoder(r.ctx, id).PredicateUseName()
		if err != nil {
			return "", err
		}
		if err := r.claimName(name, id); err != nil {
			return "", err
		}
		return name, nil
	})
}

// Fields returns the ordered heap fields of id.
func (r *Registry) Fields(id types.TypeID) ([]vir.Field, error) {
	fields, err := memo(r, r.fields, opFields, id, func() ([]vir.Field, error) {
		return NewTypeEncoder(r.ctx, id).Fields()
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(fields), nil
}

// PredicateDef returns the access predicate definition of id.
func (r *Registry) PredicateDef(id types.TypeID) (vir.Predicate, error) {
	pred, err := memo(r, r.preds, opPredicateDef, id, func() (vir.Predicate, error) {
		return NewTypeEncoder(r.ctx, id).PredicateDef()
	})
	if err != nil {
		return vir.Predicate{}, err
	}
	r.mu.Lock()
	if _, ok := r.defs[pred.Name]; !ok {
		r.defs[pred.Name] = pred
	}
	r.mu.Unlock()
	pred.Args = slices.Clone(pred.Args)
	return pred, nil
}

// RefField returns the structural field called name. Structural fields hold
// a heap reference to the slot's own object.
func (r *Registry) RefField(name string) vir.Field {
	r.mu.RLock()
	f, ok := r.refFields[name]
	r.mu.RUnlock()
	if ok {
		return f
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.refFields[name]; ok {
		return f
	}
	f = vir.NewField(name, vir.TypeRef)
	r.refFields[name] = f
	return f
}

// DiscriminantField returns the integer tag field of multi-variant types.
func (r *Registry) DiscriminantField() vir.Field {
	return vir.NewField(discriminantField, vir.TypeInt)
}

// Predicate looks up an already derived definition by name.
func (r *Registry) Predicate(name string) (vir.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pred, ok := r.defs[name]
	return pred, ok
}

// Predicates returns every derived definition sorted by name. Types sharing
// a name contribute one definition.
func (r *Registry) Predicates() []vir.Predicate {
	r.mu.RLock()
	out := make([]vir.Predicate, 0, len(r.defs))
	for _, p := range r.defs {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports how many distinct predicate definitions have been derived.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// claimName records that id is encoded under name. Types that only differ in
// what the encoding erases (integer width, mutability, pointer versus
// reference) legitimately share a name; any other pair is a clash.
func (r *Registry) claimName(name string, id types.TypeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, taken := r.nameOwners[name]
	if !taken {
		r.nameOwners[name] = id
		return nil
	}
	in := r.ctx.types
	if owner == id || erasedEqual(in, owner, id) {
		return nil
	}
	return &Error{
		Kind:   KindInternalConsistency,
		Op:     opPredicateName,
		Type:   id,
		Desc:   in.Describe(id),
		Detail: fmt.Sprintf("predicate name %q is already used by `%s`", name, in.Describe(owner)),
	}
}

// erasedEqual reports whether a and b encode identically. Nominal types are
// identified by registration, so two registrations of the same identity with
// the very same arguments are different types even though their names match.
func erasedEqual(in *types.Interner, a, b types.TypeID) bool {
	if a == b {
		return true
	}
	ta, okA := in.Lookup(a)
	tb, okB := in.Lookup(b)
	if !okA || !okB {
		return false
	}
	famA, okA := classify(ta.Kind)
	famB, okB := classify(tb.Kind)
	if !okA || !okB || famA != famB {
		return false
	}
	switch famA {
	case familyScalar:
		return ta.Kind == tb.Kind
	case familyIndirection:
		return erasedEqual(in, ta.Elem, tb.Elem)
	case familyTuple:
		return erasedEqualAll(in, in.TupleElems(a), in.TupleElems(b))
	case familyNominal:
		ia, okA := in.NominalInfo(a)
		ib, okB := in.NominalInfo(b)
		if !okA || !okB || ia.Name != ib.Name {
			return false
		}
		if slices.Equal(ia.TypeArgs, ib.TypeArgs) {
			return false
		}
		return erasedEqualAll(in, ia.TypeArgs, ib.TypeArgs)
	}
	return false
}

func erasedEqualAll(in *types.Interner, as, bs []types.TypeID) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !erasedEqual(in, as[i], bs[i]) {
			return false
		}
	}
	return true
}

// memo returns table[id], computing it at most once across goroutines. Only
// successful results are stored; failures are shared with concurrent callers
// and recomputed (and fail again) on the next request.
func memo[V any](r *Registry, table map[types.TypeID]V, op string, id types.TypeID, compute func() (V, error)) (V, error) {
	r.mu.RLock()
	v, ok := table[id]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	key := op + ":" + strconv.FormatUint(uint64(id), 10)
	res, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		v, ok := table[id]
		r.mu.RUnlock()
		if ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if prev, ok := table[id]; ok {
			v = prev
		} else {
			table[id] = v
		}
		r.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
