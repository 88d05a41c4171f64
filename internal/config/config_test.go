package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/relalias/internal/alias"
)

func writeProjectConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "")
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.Debug() {
		t.Fatalf("debug should default to false")
	}
	if len(c.Aliases()) != 0 {
		t.Fatalf("expected no aliases, got %v", c.Aliases())
	}
	if c.Project.Build.Format != "esm" || c.Project.Build.Platform != "browser" {
		t.Fatalf("unexpected build defaults: %+v", c.Project.Build)
	}
}

func TestInitDirWritesLoadableDefault(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, sub := range []string{"aliases", "logs", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(projectDir, Dir, sub)); err != nil {
			t.Fatalf("expected %s: %v", sub, err)
		}
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config must load: %v", err)
	}
	if want := filepath.Join(projectDir, "dist"); c.Build.Outdir != want {
		t.Fatalf("outdir = %s, want %s", c.Build.Outdir, want)
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "")
	writeProjectConfig(t, projectDir, `
version: 1
debug: true
aliases:
  ./example.js: /full/path/to/your/file.js
  ./../example:
    fromContext: specific/path
    alias: /full/path/to/your/module/index.js
build:
  entryPoints:
    - src/index.js
  outdir: out
  format: CJS
  platform: node
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if !c.Debug() {
		t.Fatalf("expected debug on")
	}
	aliases := c.Aliases()
	if len(aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(aliases))
	}
	if aliases["./../example"].Kind() != alias.KindContextual {
		t.Fatalf("expected contextual alias, got %v", aliases["./../example"])
	}
	if got := c.Build.EntryPoints; len(got) != 1 || got[0] != filepath.Join(projectDir, "src", "index.js") {
		t.Fatalf("entry points not resolved: %v", got)
	}
	if c.Project.Build.Format != "cjs" {
		t.Fatalf("format not normalized: %s", c.Project.Build.Format)
	}
}

func TestNewConfigRejectsNonRelativeAlias(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
aliases:
  absolute/path: /abs/x.js
`)
	_, err := NewConfig(projectDir)
	var cfgErr *alias.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
build:
  format: amd
`)
	if _, err := NewConfig(projectDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestDebugEnvOverride(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "true")
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if !c.Debug() {
		t.Fatalf("expected %s to force debug", DebugEnv)
	}
}

func TestSetAliasPersists(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "")
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if err := c.SetAlias("./a.js", alias.Contextual("src/special", "/abs/a.js")); err != nil {
		t.Fatalf("set alias: %v", err)
	}
	if err := c.SetAlias("lodash", alias.Direct("/abs/lodash.js")); err == nil {
		t.Fatalf("expected non-relative alias to be rejected")
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entry, ok := reloaded.Aliases()["./a.js"]
	if !ok || entry.FromContext() != "src/special" || entry.Path() != "/abs/a.js" {
		t.Fatalf("alias not persisted: %+v", reloaded.Aliases())
	}
	if err := reloaded.RemoveAlias("./a.js"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := reloaded.RemoveAlias("./a.js"); err == nil {
		t.Fatalf("removing a missing alias should fail")
	}
}

func TestNewConfigDuplicateAliasLastWins(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "")
	writeProjectConfig(t, projectDir, `
aliases:
  ./example.js: /first.js
  ./example.js: /second.js
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if got := c.Aliases()["./example.js"].Path(); got != "/second.js" {
		t.Fatalf("./example.js = %s, want /second.js", got)
	}
	if dups := c.DuplicateAliases(); len(dups) != 1 || dups[0] != "./example.js" {
		t.Fatalf("duplicates = %v", dups)
	}
}

func TestSetAliasKeepsUserSettings(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv(DebugEnv, "true")
	writeProjectConfig(t, projectDir, `
# team settings
version: 1
debug: false
aliases: {}
build:
  entryPoints:
    - src/index.js
  # relative to the project
  outdir: dist
`)
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if want := filepath.Join(projectDir, "dist"); c.Build.Outdir != want {
		t.Fatalf("runtime outdir = %s, want %s", c.Build.Outdir, want)
	}
	if err := c.SetAlias("./a.js", alias.Direct("/abs/a.js")); err != nil {
		t.Fatalf("set alias: %v", err)
	}
	data, err := os.ReadFile(c.ProjectConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	saved := string(data)
	for _, want := range []string{"outdir: dist", "- src/index.js", "debug: false", "# team settings", "# relative to the project", "./a.js: /abs/a.js"} {
		if !strings.Contains(saved, want) {
			t.Fatalf("saved config missing %q:\n%s", want, saved)
		}
	}
	if strings.Contains(saved, projectDir) {
		t.Fatalf("saved config contains machine paths:\n%s", saved)
	}
}
