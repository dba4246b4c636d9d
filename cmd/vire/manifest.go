package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const manifestName = "vire.toml"

type manifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Encode encodeConfig `toml:"encode"`
	Log    logConfig    `toml:"log"`
}

type encodeConfig struct {
	Universe string   `toml:"universe"`
	Roots    []string `toml:"roots"`
	Output   string   `toml:"output"`
	Jobs     int      `toml:"jobs"`
	Cache    bool     `toml:"cache"`
	CacheDir string   `toml:"cache_dir"`
}

type logConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// resolve makes a manifest-relative path absolute.
func (m *manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadManifest reads the manifest at path, or searches upwards from the
// working directory when path is empty. No manifest is not an error.
func loadManifest(path string) (*manifest, error) {
	if path == "" {
		found, ok, err := findManifest(".")
		if err != nil || !ok {
			return nil, err
		}
		path = found
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loadManifestConfig(abs)
	if err != nil {
		return nil, err
	}
	return &manifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

func loadManifestConfig(path string) (manifestConfig, error) {
	var cfg manifestConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return manifestConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return manifestConfig{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("encode", "universe") && strings.TrimSpace(cfg.Encode.Universe) == "" {
		return manifestConfig{}, fmt.Errorf("%s: [encode].universe is empty", path)
	}
	if meta.IsDefined("encode", "jobs") && cfg.Encode.Jobs < 0 {
		return manifestConfig{}, fmt.Errorf("%s: [encode].jobs must not be negative", path)
	}
	for i, r := range cfg.Encode.Roots {
		if strings.TrimSpace(r) == "" {
			return manifestConfig{}, fmt.Errorf("%s: [encode].roots[%d] is empty", path, i)
		}
	}
	if meta.IsDefined("log", "level") {
		if _, err := parseLevel(cfg.Log.Level); err != nil {
			return manifestConfig{}, fmt.Errorf("%s: [log].level: %w", path, err)
		}
	}
	if meta.IsDefined("log", "format") {
		if err := checkLogFormat(cfg.Log.Format); err != nil {
			return manifestConfig{}, fmt.Errorf("%s: [log].format: %w", path, err)
		}
	}
	return cfg, nil
}
