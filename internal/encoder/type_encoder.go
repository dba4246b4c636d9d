package encoder

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vire/internal/layout"
	"vire/internal/types"
	"vire/internal/vir"
)

// TypeEncoder derives the encoding artifacts of one type. It is created per
// call, holds no state of its own, and resolves every nested type through the
// context's Registry.
type TypeEncoder struct {
	ctx *Context
	id  types.TypeID
}

// NewTypeEncoder pairs ctx with the type id.
func NewTypeEncoder(ctx *Context, id types.TypeID) *TypeEncoder {
	return &TypeEncoder{ctx: ctx, id: id}
}

// slot is one structural field of a tuple, struct or enum together with the
// type stored behind it.
type slot struct {
	field vir.Field
	typ   types.TypeID
}

// ValueField returns the field that stores the payload of a scalar or
// indirection directly on its heap location.
func (te *TypeEncoder) ValueField() (vir.Field, error) {
	te.debug("encode value field")
	return te.valueField(opValueField)
}

// ValueFieldName returns the name of ValueField.
func (te *TypeEncoder) ValueFieldName() (string, error) {
	te.debug("encode value field name")
	f, err := te.valueField(opValueFieldName)
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

func (te *TypeEncoder) valueField(op string) (vir.Field, error) {
	tt, fam, err := te.lookup(op)
	if err != nil {
		return vir.Field{}, err
	}
	switch fam {
	case familyScalar:
		if tt.Kind == types.KindBool {
			return boolValueField, nil
		}
		return intValueField, nil
	case familyIndirection:
		return refValueField, nil
	case familyTuple, familyNominal:
		return vir.Field{}, te.unsupported(op, "%s types have no single value field", fam)
	case familyUnsupported:
		return vir.Field{}, te.unsupported(op, "")
	}
	return vir.Field{}, te.unhandled(op, fam)
}

// Fields returns the heap fields a value of the type is laid out in.
func (te *TypeEncoder) Fields() ([]vir.Field, error) {
	te.debug("encode fields")
	_, fam, err := te.lookup(opFields)
	if err != nil {
		return nil, err
	}
	reg := te.ctx.reg
	switch fam {
	case familyScalar, familyIndirection:
		f, err := reg.ValueField(te.id)
		if err != nil {
			return nil, te.nested(err)
		}
		return []vir.Field{f}, nil
	case familyTuple:
		return slotFields(nil, te.tupleSlots()), nil
	case familyNominal:
		info, err := te.nominal(opFields)
		if err != nil {
			return nil, err
		}
		slots, err := te.nominalSlots(opFields, info)
		if err != nil {
			return nil, err
		}
		var head []vir.Field
		if info.IsEnum() {
			head = append(head, reg.DiscriminantField())
		}
		return slotFields(head, slots), nil
	case familyUnsupported:
		return nil, te.unsupported(opFields, "")
	}
	return nil, te.unhandled(opFields, fam)
}

// CheckLayout reports a type that contains itself by value, and so has no
// finite heap layout, as an unsupported type.
func (te *TypeEncoder) CheckLayout() error {
	if err := te.ctx.Layout().Check(te.id); err != nil {
		return te.recursive(opCheckLayout, err)
	}
	return nil
}

// PredicateUseName returns the name other predicates use to refer to the
// type's access predicate.
func (te *TypeEncoder) PredicateUseName() (string, error) {
	te.debug("encode type predicate name")
	tt, fam, err := te.lookup(opPredicateName)
	if err != nil {
		return "", err
	}
	reg := te.ctx.reg
	switch fam {
	case familyScalar:
		switch tt.Kind {
		case types.KindBool:
			return "bool", nil
		case types.KindInt:
			return "int", nil
		default:
			return "uint", nil
		}
	case familyIndirection:
		elem, err := reg.PredicateName(tt.Elem)
		if err != nil {
			return "", te.nested(err)
		}
		return "ref$" + elem, nil
	case familyTuple:
		elems := te.ctx.types.TupleElems(te.id)
		names := make([]string, len(elems))
		for i, e := range elems {
			if names[i], err = reg.PredicateName(e); err != nil {
				return "", te.nested(err)
			}
		}
		return tupleName(names), nil
	case familyNominal:
		info, err := te.nominal(opPredicateName)
		if err != nil {
			return "", err
		}
		ident, ok := te.ctx.types.Strings.Lookup(info.Name)
		if !ok || ident == "" {
			return "", te.inconsistent(opPredicateName, "nominal type has no identity name")
		}
		args := make([]string, len(info.TypeArgs))
		for i, a := range info.TypeArgs {
			if args[i], err = reg.PredicateName(a); err != nil {
				return "", te.nested(err)
			}
		}
		return instanceName(nominalName(ident), args), nil
	case familyUnsupported:
		return "", te.unsupported(opPredicateName, "")
	}
	return "", te.unhandled(opPredicateName, fam)
}

// PredicateDef builds the access predicate of the type: permission to every
// field of its layout and, for structural fields, to the predicate of the type
// stored behind the field.
func (te *TypeEncoder) PredicateDef() (vir.Predicate, error) {
	te.debug("encode type predicate")
	tt, fam, err := te.lookup(opPredicateDef)
	if err != nil {
		return vir.Predicate{}, err
	}
	if fam == familyUnsupported {
		return vir.Predicate{}, te.unsupported(opPredicateDef, "")
	}
	if err := te.ctx.layout.Check(te.id); err != nil {
		return vir.Predicate{}, te.recursive(opPredicateDef, err)
	}

	reg := te.ctx.reg
	name, err := reg.PredicateName(te.id)
	if err != nil {
		return vir.Predicate{}, te.nested(err)
	}
	self := vir.NewLocalVar("self", vir.TypeRef)

	var perms []vir.Expr
	switch fam {
	case familyScalar:
		vf, err := reg.ValueField(te.id)
		if err != nil {
			return vir.Predicate{}, te.nested(err)
		}
		perms = []vir.Expr{vir.FieldAcc(vir.PlaceFrom(self).Access(vf), vir.FullPerm())}

	case familyIndirection:
		vf, err := reg.ValueField(te.id)
		if err != nil {
			return vir.Predicate{}, te.nested(err)
		}
		if perms, err = te.ownSlots(self, []slot{{field: vf, typ: tt.Elem}}); err != nil {
			return vir.Predicate{}, err
		}

	case familyTuple:
		if perms, err = te.ownSlots(self, te.tupleSlots()); err != nil {
			return vir.Predicate{}, err
		}

	case familyNominal:
		info, err := te.nominal(opPredicateDef)
		if err != nil {
			return vir.Predicate{}, err
		}
		slots, err := te.nominalSlots(opPredicateDef, info)
		if err != nil {
			return vir.Predicate{}, err
		}
		if info.IsEnum() {
			upper, err := safecast.Conv[int64](len(info.Variants) - 1)
			if err != nil {
				return vir.Predicate{}, te.inconsistent(opPredicateDef, "variant count: %v", err)
			}
			disc := vir.PlaceFrom(self).Access(reg.DiscriminantField())
			perms = append(perms,
				vir.FieldAcc(disc, vir.FullPerm()),
				vir.And(
					vir.LeCmp(vir.Int(0), vir.Loc(disc)),
					vir.LeCmp(vir.Loc(disc), vir.Int(upper)),
				),
			)
		}
		owned, err := te.ownSlots(self, slots)
		if err != nil {
			return vir.Predicate{}, err
		}
		perms = append(perms, owned...)

	default:
		return vir.Predicate{}, te.unhandled(opPredicateDef, fam)
	}

	return vir.NewPredicate(name, []vir.LocalVar{self}, vir.Conjoin(perms...)), nil
}

// Dependencies lists the types whose predicates the type's predicate refers
// to, in first-use order without duplicates.
func (te *TypeEncoder) Dependencies() ([]types.TypeID, error) {
	tt, fam, err := te.lookup(opDependencies)
	if err != nil {
		return nil, err
	}
	var deps []types.TypeID
	switch fam {
	case familyScalar:
		return nil, nil
	case familyIndirection:
		return []types.TypeID{tt.Elem}, nil
	case familyTuple:
		deps = te.ctx.types.TupleElems(te.id)
	case familyNominal:
		info, err := te.nominal(opDependencies)
		if err != nil {
			return nil, err
		}
		for _, v := range info.Variants {
			for _, f := range v.Fields {
				deps = append(deps, f.Type)
			}
		}
	case familyUnsupported:
		return nil, te.unsupported(opDependencies, "")
	default:
		return nil, te.unhandled(opDependencies, fam)
	}
	seen := make(map[types.TypeID]struct{}, len(deps))
	out := deps[:0]
	for _, d := range deps {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// ownSlots emits, for every slot, access to the field and access to the
// predicate of the slot's type at the location the field points to.
func (te *TypeEncoder) ownSlots(self vir.LocalVar, slots []slot) ([]vir.Expr, error) {
	out := make([]vir.Expr, 0, 2*len(slots))
	for _, s := range slots {
		pred, err := te.ctx.reg.PredicateName(s.typ)
		if err != nil {
			return nil, te.nested(err)
		}
		loc := vir.PlaceFrom(self).Access(s.field)
		out = append(out,
			vir.FieldAcc(loc, vir.FullPerm()),
			vir.PredAcc(pred, vir.FullPerm(), vir.Loc(loc)),
		)
	}
	return out, nil
}

func (te *TypeEncoder) tupleSlots() []slot {
	elems := te.ctx.types.TupleElems(te.id)
	out := make([]slot, len(elems))
	for i, e := range elems {
		out[i] = slot{field: te.ctx.reg.RefField(tupleFieldName(i)), typ: e}
	}
	return out
}

// nominalSlots lays out every field of every variant. All variants get
// storage at once; the discriminant, if any, is not part of the result.
func (te *TypeEncoder) nominalSlots(op string, info *types.NominalInfo) ([]slot, error) {
	strs := te.ctx.types.Strings
	enum := info.IsEnum()
	seen := make(map[string]struct{})
	var out []slot
	for vi, v := range info.Variants {
		want, err := safecast.Conv[int64](vi)
		if err != nil {
			return nil, te.inconsistent(op, "variant index %d: %v", vi, err)
		}
		if v.Discriminant != want {
			return nil, te.inconsistent(op, "variant %q has discriminant %d but declaration index %d",
				strs.MustLookup(v.Name), v.Discriminant, vi)
		}
		for _, f := range v.Fields {
			fieldIdent := strs.MustLookup(f.Name)
			var name string
			if enum {
				name = enumFieldName(vi, fieldIdent)
			} else {
				name = structFieldName(fieldIdent)
			}
			if _, dup := seen[name]; dup {
				return nil, te.inconsistent(op, "duplicate field %q", name)
			}
			seen[name] = struct{}{}
			out = append(out, slot{field: te.ctx.reg.RefField(name), typ: f.Type})
		}
	}
	return out, nil
}

func slotFields(head []vir.Field, slots []slot) []vir.Field {
	out := make([]vir.Field, 0, len(head)+len(slots))
	out = append(out, head...)
	for _, s := range slots {
		out = append(out, s.field)
	}
	return out
}

func (te *TypeEncoder) lookup(op string) (types.Type, family, error) {
	tt, ok := te.ctx.types.Lookup(te.id)
	if !ok {
		return types.Type{}, 0, &Error{
			Kind:   KindInternalConsistency,
			Op:     op,
			Type:   te.id,
			Detail: fmt.Sprintf("unknown type#%d", te.id),
		}
	}
	fam, ok := classify(tt.Kind)
	if !ok {
		return tt, 0, te.inconsistent(op, "kind %s has no encoding family", tt.Kind)
	}
	return tt, fam, nil
}

func (te *TypeEncoder) nominal(op string) (*types.NominalInfo, error) {
	info, ok := te.ctx.types.NominalInfo(te.id)
	if !ok {
		return nil, te.inconsistent(op, "missing nominal metadata")
	}
	return info, nil
}

// Errors ---------------------------------------------------------------------

func (te *TypeEncoder) describe() string {
	return te.ctx.types.Describe(te.id)
}

func (te *TypeEncoder) unsupported(op, format string, args ...any) *Error {
	e := &Error{Kind: KindUnsupportedType, Op: op, Type: te.id, Desc: te.describe()}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

func (te *TypeEncoder) inconsistent(op, format string, args ...any) *Error {
	return &Error{
		Kind:   KindInternalConsistency,
		Op:     op,
		Type:   te.id,
		Desc:   te.describe(),
		Detail: fmt.Sprintf(format, args...),
	}
}

func (te *TypeEncoder) unhandled(op string, fam family) *Error {
	return te.inconsistent(op, "no encoding for %s family", fam)
}

func (te *TypeEncoder) recursive(op string, err error) *Error {
	var lerr *layout.LayoutError
	if errors.As(err, &lerr) && lerr.Kind == layout.LayoutErrRecursiveUnsized {
		e := te.unsupported(op, "type contains itself without a pointer or reference")
		e.Cause = err
		return e
	}
	e := te.inconsistent(op, "layout")
	e.Cause = err
	return e
}

// nested records the current type as context on an error raised for one of
// its components.
func (te *TypeEncoder) nested(err error) error {
	var e *Error
	if !errors.As(err, &e) || e.Type == te.id {
		return err
	}
	return e.within(te.describe())
}

func (te *TypeEncoder) debug(msg string) {
	if ce := te.ctx.log.Check(zapcore.DebugLevel, msg); ce != nil {
		tt, _ := te.ctx.types.Lookup(te.id)
		ce.Write(
			zap.Uint32("type_id", uint32(te.id)),
			zap.String("type", te.describe()),
			zap.Stringer("kind", tt.Kind),
		)
	}
}
