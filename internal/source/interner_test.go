package source

import "testing"

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("Node")
	b := in.Intern("Node")
	if a != b {
		t.Fatalf("expected same ID, got %d and %d", a, b)
	}
	if a == NoStringID {
		t.Fatalf("non-empty string must not map to NoStringID")
	}
	if got := in.MustLookup(a); got != "Node" {
		t.Fatalf("lookup: got %q", got)
	}
	if in.Intern("") != NoStringID {
		t.Fatalf("empty string must map to NoStringID")
	}
}

func TestInternerNormalizesToNFC(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC and NFD spellings must share an ID: %d vs %d", composed, decomposed)
	}
	if in.Len() != 2 {
		t.Fatalf("expected 2 entries (including empty), got %d", in.Len())
	}
}

func TestInternerLookupInvalid(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatalf("lookup of unknown ID must fail")
	}
}

func TestNormalizeContent(t *testing.T) {
	in := []byte("\xEF\xBB\xBFa\r\nb\rc\n")
	out, changed := Normalize(in)
	if !changed {
		t.Fatalf("expected a change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("got %q", out)
	}
	same, changed := Normalize([]byte("plain\n"))
	if changed || string(same) != "plain\n" {
		t.Fatalf("plain content must be untouched, got %q changed=%v", same, changed)
	}
}

func TestPosString(t *testing.T) {
	cases := []struct {
		pos  Pos
		want string
	}{
		{Pos{}, "-"},
		{Pos{File: "u.yaml"}, "u.yaml"},
		{Pos{File: "u.yaml", Line: 3}, "u.yaml:3"},
		{Pos{File: "u.yaml", Line: 3, Col: 7}, "u.yaml:3:7"},
	}
	for _, tc := range cases {
		if got := tc.pos.String(); got != tc.want {
			t.Fatalf("%+v: got %q want %q", tc.pos, got, tc.want)
		}
	}
}
