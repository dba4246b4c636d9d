package encoder_test

import (
	"errors"
	"strings"
	"testing"

	"vire/internal/encoder"
	"vire/internal/layout"
	"vire/internal/source"
	"vire/internal/types"
)

func TestUnsupportedKinds(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	unsupported := []types.TypeID{
		f.in.Intern(types.MakeFloat(types.Width64)),
		f.in.Intern(types.Type{Kind: types.KindString}),
		f.in.Intern(types.Type{Kind: types.KindNever}),
		f.in.GenericParam("T"),
		f.in.Dyn("Display"),
		f.in.Fn([]types.TypeID{f.b.Int}, f.b.Bool),
	}
	for _, id := range unsupported {
		desc := f.in.Describe(id)
		if _, err := ctx.Registry().PredicateDef(id); !errors.Is(err, encoder.ErrUnsupportedType) {
			t.Fatalf("%s: predicate_def error %v, want unsupported", desc, err)
		}
		if _, err := ctx.Registry().PredicateName(id); !errors.Is(err, encoder.ErrUnsupportedType) {
			t.Fatalf("%s: predicate_use_name error %v, want unsupported", desc, err)
		}
		if _, err := ctx.Registry().Fields(id); !errors.Is(err, encoder.ErrUnsupportedType) {
			t.Fatalf("%s: fields error %v, want unsupported", desc, err)
		}
		_, err := ctx.Registry().ValueField(id)
		if !errors.Is(err, encoder.ErrUnsupportedType) {
			t.Fatalf("%s: value_field error %v, want unsupported", desc, err)
		}
		if !strings.Contains(err.Error(), desc) {
			t.Fatalf("error %q does not mention %q", err, desc)
		}
	}
	if ctx.Registry().Len() != 0 {
		t.Fatalf("failed derivations must not be cached")
	}
}

func TestUnsupportedComponentCarriesContext(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	dyn := f.in.Dyn("Display")
	pair := f.tuple(f.b.Bool, dyn)
	holder := f.strct("Holder", field{"p", f.ref(pair)})

	_, err := ctx.Registry().PredicateDef(holder)
	if !errors.Is(err, encoder.ErrUnsupportedType) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	var e *encoder.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *encoder.Error, got %T", err)
	}
	if e.Type != dyn {
		t.Fatalf("error must name the innermost unsupported type, got %s", f.in.Describe(e.Type))
	}
	if len(e.Within) == 0 {
		t.Fatalf("expected enclosing type context")
	}
	if last := e.Within[len(e.Within)-1]; last != "Holder" {
		t.Fatalf("outermost context = %q, want Holder (all: %q)", last, e.Within)
	}
	if errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("unsupported must not match internal consistency")
	}
}

func TestValueFieldOfCompoundTypes(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	for _, id := range []types.TypeID{f.tuple(f.b.Bool), f.strct("S"), f.b.Unit} {
		if _, err := ctx.Registry().ValueFieldName(id); !errors.Is(err, encoder.ErrUnsupportedType) {
			t.Fatalf("%s: expected unsupported, got %v", f.in.Describe(id), err)
		}
	}
}

func TestByValueRecursionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	s := f.declare("Loop")
	f.setFields(s, field{"inner", f.tuple(f.b.Bool, s)})

	_, err := ctx.Registry().PredicateDef(s)
	if !errors.Is(err, encoder.ErrUnsupportedType) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != layout.LayoutErrRecursiveUnsized {
		t.Fatalf("expected a recursive layout cause, got %v", err)
	}

	err = ctx.Encoder(s).CheckLayout()
	if !errors.Is(err, encoder.ErrUnsupportedType) || !errors.As(err, &lerr) {
		t.Fatalf("layout check: expected unsupported with a layout cause, got %v", err)
	}
	if err := ctx.Encoder(f.ref(s)).CheckLayout(); err != nil {
		t.Fatalf("a reference to a recursive type has a layout: %v", err)
	}
}

func TestDiscriminantMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	e := f.declare("Bad")
	f.in.SetNominalVariants(e, []types.Variant{
		{Name: f.in.Strings.Intern("A"), Discriminant: 0},
		{Name: f.in.Strings.Intern("B"), Discriminant: 7},
	})
	_, err := ctx.Registry().PredicateDef(e)
	if !errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("expected internal consistency, got %v", err)
	}
	if !strings.Contains(err.Error(), `"B"`) {
		t.Fatalf("error should name the variant: %v", err)
	}
}

func TestDuplicateVariantFields(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	s := f.strct("Twice", field{"a", f.b.Bool}, field{"a", f.b.Int})
	if _, err := ctx.Registry().Fields(s); !errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("expected internal consistency, got %v", err)
	}
}

func TestPredicateNameCollision(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	a := f.strct("Dup")
	b := f.strct("Dup")
	if a == b {
		t.Fatalf("separately registered nominals must be distinct types")
	}
	if _, err := ctx.Registry().PredicateName(a); err != nil {
		t.Fatal(err)
	}
	_, err := ctx.Registry().PredicateName(b)
	if !errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("expected a name clash, got %v", err)
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Fatalf("unexpected message: %v", err)
	}

	wrap := f.in.Strings.Intern("Wrap")
	wa := f.in.RegisterNominalInstance(wrap, source.Pos{}, []types.TypeID{a})
	wb := f.in.RegisterNominalInstance(wrap, source.Pos{}, []types.TypeID{b})
	if _, err := ctx.Registry().PredicateName(wa); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Registry().PredicateName(wb); !errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("instances over clashing arguments: got %v", err)
	}
}

func TestUnknownTypeID(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx()
	bogus := types.TypeID(f.in.Len() + 100)
	if _, err := ctx.Registry().Fields(bogus); !errors.Is(err, encoder.ErrInternalConsistency) {
		t.Fatalf("expected internal consistency, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &encoder.Error{
		Kind:   encoder.KindUnsupportedType,
		Op:     "fields",
		Desc:   "dyn Display",
		Within: []string{"(bool, dyn Display)", "Holder"},
	}
	want := "unsupported type `dyn Display` (within `(bool, dyn Display)` in `Holder`) in fields"
	if got := err.Error(); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}
