package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vire/internal/encoder"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(append([]string{"--color", "off"}, args...), &out, &errOut)
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const boolProgram = "field val_bool: Bool\n\npredicate bool(self: Ref) {\n  acc(self.val_bool, write)\n}\n"

const listUniverse = `
types:
  - name: Node
    fields:
      - {name: value, type: usize}
      - {name: next, type: "&Node"}
roots: [Node]
`

func TestEncodeDocumentRoots(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", "roots: [bool]\n")
	out, _, err := run(t, "encode", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != boolProgram {
		t.Fatalf("got:\n%s\nwant:\n%s", out, boolProgram)
	}
}

func TestEncodeRootFlagAndOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", listUniverse)
	dest := filepath.Join(dir, "out.vpr")
	out, _, err := run(t, "encode", path, "--root", "(Node, bool)", "--output", dest, "--jobs", "3")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Fatalf("nothing should go to stdout with --output, got %q", out)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"field struct_next: Ref\n",
		"predicate tuple2$adt1$Node$bool(self: Ref) {\n",
		"predicate ref$adt1$Node(self: Ref) {\n",
		"  acc(adt1$Node(self.val_ref), write)\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output is missing %q:\n%s", want, text)
		}
	}
}

func TestEncodeFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "types.yaml", listUniverse)
	cfg := writeFile(t, dir, manifestName, `
[encode]
universe = "types.yaml"
roots = ["bool"]
`)
	out, _, err := run(t, "--config", cfg, "encode")
	if err != nil {
		t.Fatal(err)
	}
	if out != boolProgram {
		t.Fatalf("manifest roots were not used:\n%s", out)
	}
}

func TestEncodeCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", listUniverse)
	cacheDir := filepath.Join(dir, "cache")
	args := []string{"--log-level", "info", "encode", path, "--cache", "--cache-dir", cacheDir}

	first, firstLog, err := run(t, args...)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(firstLog, "cache hit") {
		t.Fatalf("cold cache reported a hit")
	}
	second, secondLog, err := run(t, args...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(secondLog, "cache hit") {
		t.Fatalf("warm cache missed; log:\n%s", secondLog)
	}
	if first != second {
		t.Fatalf("cached output differs:\n%s\n---\n%s", first, second)
	}
	entries, err := os.ReadDir(filepath.Join(cacheDir, "programs"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cache entry, got %v (%v)", entries, err)
	}
}

func TestEncodeUnsupportedRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", listUniverse)
	_, _, err := run(t, "encode", path, "--root", "(Node, dyn Any)")
	if !errors.Is(err, encoder.ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
}

func TestEncodeRecursiveRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", "types:\n  - name: Loop\n    fields: [{name: me, type: Loop}]\nroots: [Loop]\n")
	_, _, err := run(t, "encode", path)
	if !errors.Is(err, encoder.ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "root Loop: unsupported type `Loop` in check_layout") || !strings.Contains(msg, "recursive value type") {
		t.Fatalf("expected a recursive layout error, got %v", err)
	}
}

func TestEncodeNeedsUniverse(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), manifestName, "[log]\nlevel = \"error\"\n")
	_, _, err := run(t, "--config", cfg, "encode")
	if err == nil || !strings.Contains(err.Error(), "no universe given") {
		t.Fatalf("expected a missing universe error, got %v", err)
	}
}

func TestEncodeTimings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", "roots: [bool]\n")
	_, stderr, err := run(t, "--timings", "encode", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, phase := range []string{"timings:", "load", "check", "assemble", "print", "total"} {
		if !strings.Contains(stderr, phase) {
			t.Fatalf("timings are missing %q:\n%s", phase, stderr)
		}
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.yaml", listUniverse)
	out, _, err := run(t, "inspect", "-u", path, "(uint, uint)", "&Node", "--bodies")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "TYPE") {
		t.Fatalf("missing header:\n%s", out)
	}
	col := strings.Index(lines[0], "PREDICATE")
	if strings.Index(lines[1], "tuple2$uint$uint") != col || strings.Index(lines[2], "ref$adt1$Node") != col {
		t.Fatalf("columns are not aligned:\n%s", out)
	}
	if !strings.Contains(lines[1], "tuple_0, tuple_1") || !strings.Contains(lines[2], "val_ref") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
	if !strings.Contains(out, "predicate ref$adt1$Node(self: Ref) {") {
		t.Fatalf("--bodies did not print definitions:\n%s", out)
	}
}

func TestInspectWithoutUniverse(t *testing.T) {
	out, _, err := run(t, "inspect", "bool")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "val_bool") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, _, err := run(t, "inspect", "Node"); err == nil {
		t.Fatalf("unknown nominal resolved without a universe")
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tool": "vire"`) {
		t.Fatalf("unexpected json:\n%s", out)
	}
	out, _, err = run(t, "version")
	if err != nil || !strings.HasPrefix(out, "vire ") {
		t.Fatalf("unexpected pretty output %q (%v)", out, err)
	}
	if _, _, err := run(t, "version", "--format", "xml"); err == nil {
		t.Fatalf("xml format accepted")
	}
}

func TestBadColorFlag(t *testing.T) {
	if err := execute([]string{"--color", "sometimes", "version"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("invalid color mode accepted")
	}
}

func TestProfilingFlags(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")
	if _, _, err := run(t, "--cpu-profile", cpu, "--mem-profile", mem, "inspect", "bool"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{cpu, mem} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("profile not written: %v", err)
		}
	}
}
