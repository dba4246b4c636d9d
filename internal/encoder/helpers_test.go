package encoder_test

import (
	"testing"

	"vire/internal/encoder"
	"vire/internal/source"
	"vire/internal/types"
	"vire/internal/vir"
)

type field struct {
	name string
	typ  types.TypeID
}

type variant struct {
	name   string
	fields []field
}

type fixture struct {
	t  *testing.T
	in *types.Interner
	b  types.Builtins
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in := types.NewInterner()
	return &fixture{t: t, in: in, b: in.Builtins()}
}

func (f *fixture) ctx() *encoder.Context {
	return encoder.NewContext(f.in)
}

func (f *fixture) ref(elem types.TypeID) types.TypeID {
	return f.in.Intern(types.MakeReference(elem, false))
}

func (f *fixture) ptr(elem types.TypeID) types.TypeID {
	return f.in.Intern(types.MakePointer(elem, true))
}

func (f *fixture) tuple(elems ...types.TypeID) types.TypeID {
	return f.in.RegisterTuple(elems)
}

func (f *fixture) declare(name string) types.TypeID {
	return f.in.RegisterNominal(f.in.Strings.Intern(name), source.Pos{})
}

func (f *fixture) setFields(id types.TypeID, fields ...field) {
	f.in.SetStructFields(id, f.fields(fields))
}

func (f *fixture) setVariants(id types.TypeID, variants ...variant) {
	out := make([]types.Variant, len(variants))
	for i, v := range variants {
		out[i] = types.Variant{
			Name:         f.in.Strings.Intern(v.name),
			Discriminant: int64(i),
			Fields:       f.fields(v.fields),
		}
	}
	f.in.SetNominalVariants(id, out)
}

func (f *fixture) strct(name string, fields ...field) types.TypeID {
	id := f.declare(name)
	f.setFields(id, fields...)
	return id
}

func (f *fixture) enum(name string, variants ...variant) types.TypeID {
	id := f.declare(name)
	f.setVariants(id, variants...)
	return id
}

func (f *fixture) fields(fields []field) []types.Field {
	out := make([]types.Field, len(fields))
	for i, fl := range fields {
		out[i] = types.Field{Name: f.in.Strings.Intern(fl.name), Type: fl.typ}
	}
	return out
}

func fieldNames(fields []vir.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func conjunctStrings(e vir.Expr) []string {
	conj := vir.Conjuncts(e)
	out := make([]string, len(conj))
	for i, c := range conj {
		out[i] = c.String()
	}
	return out
}

func assertStrings(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d entries %q, want %d %q", what, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s[%d]: got %q want %q", what, i, got[i], want[i])
		}
	}
}

func mustDef(t *testing.T, ctx *encoder.Context, id types.TypeID) vir.Predicate {
	t.Helper()
	p, err := ctx.Registry().PredicateDef(id)
	if err != nil {
		t.Fatalf("predicate_def(%s): %v", ctx.Types().Describe(id), err)
	}
	return p
}

func mustName(t *testing.T, ctx *encoder.Context, id types.TypeID) string {
	t.Helper()
	n, err := ctx.Registry().PredicateName(id)
	if err != nil {
		t.Fatalf("predicate_use_name(%s): %v", ctx.Types().Describe(id), err)
	}
	return n
}

func mustFields(t *testing.T, ctx *encoder.Context, id types.TypeID) []vir.Field {
	t.Helper()
	fs, err := ctx.Registry().Fields(id)
	if err != nil {
		t.Fatalf("fields(%s): %v", ctx.Types().Describe(id), err)
	}
	return fs
}
