package universe_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vire/internal/types"
	"vire/internal/universe"
)

const sample = `
types:
  - name: list::Node
    id: Node
    fields:
      - {name: value, type: usize}
      - {name: next, type: "*const Node"}
  - name: std::option::Option
    id: OptionNode
    args: ["&Node"]
    variants:
      - name: None
      - name: Some
        fields: [{name: "0", type: "&Node"}]
  - name: Unit
roots:
  - Node
  - "(bool, OptionNode,)"
`

func TestParseSample(t *testing.T) {
	u, err := universe.Parse("sample.yaml", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	in := u.Types
	if len(u.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(u.Roots))
	}
	if got := in.Describe(u.Roots[0]); got != "list::Node" {
		t.Fatalf("root 0 = %s", got)
	}
	if got := in.Describe(u.Roots[1]); got != "(bool, std::option::Option<&list::Node>)" {
		t.Fatalf("root 1 = %s", got)
	}

	opt, ok := u.Lookup("OptionNode")
	if !ok {
		t.Fatalf("OptionNode not declared")
	}
	info, _ := in.NominalInfo(opt)
	if !info.IsEnum() || len(info.Variants) != 2 || info.Variants[1].Discriminant != 1 {
		t.Fatalf("unexpected variants %+v", info.Variants)
	}
	if info.Decl.Line != 8 || info.Decl.File != "sample.yaml" {
		t.Fatalf("unexpected declaration position %s", info.Decl)
	}

	unit, _ := u.Lookup("Unit")
	uinfo, _ := in.NominalInfo(unit)
	if len(uinfo.Variants) != 1 || len(uinfo.Variants[0].Fields) != 0 {
		t.Fatalf("a bare declaration is a field-less struct, got %+v", uinfo.Variants)
	}
}

func TestResolve(t *testing.T) {
	u, err := universe.Parse("sample.yaml", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		"bool":                 "bool",
		"int":                  "isize",
		"u8":                   "u8",
		"&mut Node":            "&mut list::Node",
		"*mut *const u64":      "*mut *const u64",
		"()":                   "()",
		"(bool)":               "bool",
		"(bool,)":              "(bool,)",
		"( i32 , &Node , )":    "(i32, &list::Node)",
		"fn(isize) -> bool":    "fn(isize) -> bool",
		"fn()":                 "fn()",
		"dyn core::fmt::Debug": "dyn core::fmt::Debug",
		"$T":                   "$T",
		"!":                    "!",
		"f64":                  "f64",
		"str":                  "str",
	}
	for expr, want := range cases {
		id, err := u.Resolve(expr)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", expr, err)
		}
		if got := u.Types.Describe(id); got != want {
			t.Fatalf("Resolve(%q) = %s, want %s", expr, got, want)
		}
	}
	a, _ := u.Resolve("(bool, &Node)")
	b, _ := u.Resolve("(bool,&Node)")
	if a != b {
		t.Fatalf("structurally equal types must intern to one id")
	}
}

func TestResolveErrors(t *testing.T) {
	u, err := universe.Parse("sample.yaml", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	for expr, want := range map[string]string{
		"":             "expected a type",
		"Missing":      `unknown type "Missing"`,
		"*Node":        "raw pointer needs",
		"(bool":        "expected `,` or `)`",
		"bool bool":    "after type",
		"$":            "generic parameter name",
		"fn bool":      "expected `(` after fn",
		"&(bool, %)":   "unexpected",
		"&mut":         "expected a type",
		"Node::":       "expected a type",
		"(bool,, int)": "unexpected",
	} {
		_, err := u.Resolve(expr)
		if err == nil {
			t.Fatalf("Resolve(%q) succeeded", expr)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("Resolve(%q): %v, want it to mention %q", expr, err, want)
		}
		var serr *universe.SyntaxError
		if !errors.As(err, &serr) || serr.Col < 1 {
			t.Fatalf("Resolve(%q): expected a positioned syntax error, got %v", expr, err)
		}
	}
}

func TestSelfReferenceThroughFieldsIsAllowed(t *testing.T) {
	doc := `
types:
  - name: A
    fields: [{name: b, type: "&B"}]
  - name: B
    fields: [{name: a, type: "(A, bool)"}]
`
	u, err := universe.Parse("rec.yaml", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Roots) != 0 {
		t.Fatalf("no roots declared")
	}
}

func TestLoaderErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "types:\n  - id: X\n", "rec.yaml:2: types[0]: name is required"},
		{"reserved", "types:\n  - name: bool\n", `"bool" is reserved`},
		{"bad id", "types:\n  - name: X\n    id: \"&X\"\n", "not a valid type path"},
		{"duplicate key", "types:\n  - name: X\n  - name: X\n", "already declared at line 2"},
		{"both shapes", "types:\n  - name: X\n    fields: [{name: a, type: bool}]\n    variants: [{name: V}]\n", "mutually exclusive"},
		{"unnamed variant", "types:\n  - name: X\n    variants: [{fields: []}]\n", "variants[0]: name is required"},
		{"duplicate field", "types:\n  - name: X\n    fields: [{name: a, type: bool}, {name: a, type: int}]\n", `duplicate field "a"`},
		{"untyped field", "types:\n  - name: X\n    fields: [{name: a}]\n", "has no type"},
		{"unknown field type", "types:\n  - name: X\n    fields: [{name: a, type: Y}]\n", `rec.yaml:3:30: in "Y"`},
		{"cyclic args", "types:\n  - {name: W, id: A, args: [B]}\n  - {name: W, id: B, args: [\"&A\"]}\n", "refer back to it"},
		{"duplicate instance", "types:\n  - {name: W, id: A, args: [bool]}\n  - {name: W, id: B, args: [bool]}\n", "duplicates the declaration of W<bool>"},
		{"unknown key", "types:\n  - name: X\n    feilds: []\n", "feilds"},
		{"bad root", "roots: [\"&\"]\n", "expected a type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := universe.Parse("rec.yaml", []byte(tc.doc))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestExplicitDiscriminantsAreKept(t *testing.T) {
	doc := `
types:
  - name: E
    variants:
      - {name: A}
      - {name: B, discriminant: 5}
`
	u, err := universe.Parse("e.yaml", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := u.Lookup("E")
	info, _ := u.Types.NominalInfo(id)
	if info.Variants[1].Discriminant != 5 {
		t.Fatalf("discriminant = %d", info.Variants[1].Discriminant)
	}
}

func TestEmptyDocument(t *testing.T) {
	u, err := universe.Parse("empty.yaml", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Decls) != 0 || len(u.Roots) != 0 {
		t.Fatalf("expected an empty universe")
	}
}

func TestLoadNormalizesInput(t *testing.T) {
	const (
		nfc = "Caf\u00e9"
		nfd = "Cafe\u0301"
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "u.yaml")
	body := "\ufefftypes:\r\n" +
		"  - name: " + nfd + "\r\n" +
		"  - name: Menu\r\n" +
		"    fields: [{name: " + nfd + ", type: \"&" + nfc + "\"}]\r\n" +
		"roots: [\"" + nfc + "\", \"(" + nfd + ", Menu)\"]\r\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	u, err := universe.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Roots) != 2 || u.Types.Describe(u.Roots[0]) != nfc {
		t.Fatalf("roots = %v", u.Roots)
	}
	if got := u.Types.Describe(u.Roots[1]); got != "("+nfc+", Menu)" {
		t.Fatalf("tuple root = %q", got)
	}
	if u.Decls[0].Name != nfc || u.Decls[1].Fields[0].Name != nfc {
		t.Fatalf("declarations were not normalized: %+v", u.Decls)
	}
	a, okA := u.Lookup(nfc)
	b, okB := u.Lookup(nfd)
	if !okA || !okB || a != b || a != u.Roots[0] {
		t.Fatalf("lookup by either spelling must find the declaration")
	}
	if _, err := u.Resolve("&" + nfd); err != nil {
		t.Fatal(err)
	}
	if _, err := universe.Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("loading a missing file succeeded")
	}
}

func TestBuiltinIdentities(t *testing.T) {
	u, err := universe.Parse("x.yaml", []byte("roots: [bool, usize, ()]\n"))
	if err != nil {
		t.Fatal(err)
	}
	b := u.Types.Builtins()
	want := []types.TypeID{b.Bool, b.Uint, b.Unit}
	for i, id := range want {
		if u.Roots[i] != id {
			t.Fatalf("root %d = %s, want builtin %s", i, u.Types.Describe(u.Roots[i]), u.Types.Describe(id))
		}
	}
}
