package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := writeFile(t, root, manifestName, "")
	got, ok, err := findManifest(nested)
	if err != nil || !ok {
		t.Fatalf("manifest not found: %v", err)
	}
	if got != want {
		t.Fatalf("found %s, want %s", got, want)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, manifestName, `
[encode]
universe = "types/u.yaml"
roots = ["Node", "(bool,)"]
output = "out/program.vpr"
jobs = 4
cache = true

[log]
level = "debug"
format = "json"
`)
	m, err := loadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := m.Config
	if cfg.Encode.Jobs != 4 || !cfg.Encode.Cache || len(cfg.Encode.Roots) != 2 || cfg.Log.Format != "json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := m.resolve(cfg.Encode.Universe); got != filepath.Join(dir, "types", "u.yaml") {
		t.Fatalf("universe resolved to %s", got)
	}
	if got := m.resolve("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute paths must be kept, got %s", got)
	}
}

func TestManifestValidation(t *testing.T) {
	cases := map[string]string{
		"[encode]\nuniverse = \"\"\n": "[encode].universe is empty",
		"[encode]\njobs = -1\n":       "[encode].jobs must not be negative",
		"[encode]\nroots = [\"\"]\n":  "[encode].roots[0] is empty",
		"[log]\nlevel = \"chatty\"\n": "[log].level",
		"[log]\nformat = \"xml\"\n":   "[log].format",
		"[encode]\nunivers = \"x\"\n": "unknown key encode.univers",
		"[encode\n":                   "failed to parse TOML",
	}
	for body, want := range cases {
		path := writeFile(t, t.TempDir(), manifestName, body)
		_, err := loadManifest(path)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("manifest %q: error %v, want it to mention %q", body, err, want)
		}
	}
}
