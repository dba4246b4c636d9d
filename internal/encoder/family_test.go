package encoder

import (
	"testing"

	"vire/internal/types"
)

func TestEveryKindClassified(t *testing.T) {
	for _, k := range types.Kinds() {
		if k == types.KindInvalid {
			if _, ok := classify(k); ok {
				t.Fatalf("invalid kind must not be classified")
			}
			continue
		}
		fam, ok := classify(k)
		if !ok {
			t.Fatalf("kind %s has no family", k)
		}
		if fam.String() == "unknown" {
			t.Fatalf("kind %s maps to an unnamed family", k)
		}
	}
}

func TestNominalName(t *testing.T) {
	cases := map[string]string{
		"Option":              "adt1$Option",
		"std::option::Option": "adt3$std$option$Option",
		"a$b":                 "adt1$a_u24_b",
		"naïve":               "adt1$na_uEF_ve",
		"x-y::z":              "adt2$x_u2D_y$z",
		"my_type":             "adt1$my_type",
		"_uE9_":               "adt1$_u5F_uE9_",
		"é":                   "adt1$_uE9_",
	}
	for in, want := range cases {
		if got := nominalName(in); got != want {
			t.Fatalf("nominalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNominalNamesKeepSegmentBoundaries(t *testing.T) {
	pairs := [][2][]string{
		{{"m::A", "B"}, {"m", "A::B"}},
		{{"a::b"}, {"a", "b"}},
		{{"_uE9_"}, {"é"}},
		{{"x_u"}, {"x_u5F_"}},
	}
	for _, p := range pairs {
		left := make([]string, len(p[0]))
		for i, s := range p[0] {
			left[i] = nominalName(s)
		}
		right := make([]string, len(p[1]))
		for i, s := range p[1] {
			right[i] = nominalName(s)
		}
		if l, r := tupleName(left), tupleName(right); l == r {
			t.Fatalf("%q and %q both encode as %q", p[0], p[1], l)
		}
	}
}

func TestStructuralNames(t *testing.T) {
	if got := tupleName([]string{"bool", "ref$int"}); got != "tuple2$bool$ref$int" {
		t.Fatalf("tupleName: %q", got)
	}
	if got := instanceName("Pair", []string{"int", "bool"}); got != "Pair$targs2$int$bool" {
		t.Fatalf("instanceName: %q", got)
	}
	if got := instanceName("Plain", nil); got != "Plain" {
		t.Fatalf("instanceName without args: %q", got)
	}
	if got := enumFieldName(3, "x"); got != "enum_3_x" {
		t.Fatalf("enumFieldName: %q", got)
	}
}
