package esbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/kingrea/relalias/internal/alias"
	"github.com/kingrea/relalias/internal/logbook"
)

type fixture struct {
	root string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/special/entry.js": "import { value } from \"./dep.js\";\nconsole.log(value);\n",
		"src/special/dep.js":   "export const value = \"original-special\";\n",
		"src/other/entry.js":   "import { value } from \"./dep.js\";\nimport { kind } from \"lodash-free\";\nconsole.log(value, kind);\n",
		"src/other/dep.js":     "export const value = \"original-other\";\n",
		"overrides/dep.js":     "export const value = \"aliased\";\n",
		"node_modules/lodash-free/index.js": "export const kind = \"package\";\n",
	}
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return fixture{root: root}
}

func (f fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f fixture) build(t *testing.T, r *alias.Resolver, entry string, opts ...Option) (Result, error) {
	t.Helper()
	return Build(BuildOptions{
		EntryPoints: []string{f.path(entry)},
		Outdir:      f.path("out"),
		WorkingDir:  f.root,
	}, r, opts...)
}

func bundleText(t *testing.T, result Result) string {
	t.Helper()
	if len(result.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(result.Outputs))
	}
	return string(result.Outputs[0].Contents)
}

func TestPluginReplacesMatchingContext(t *testing.T) {
	f := newFixture(t)
	r, err := alias.New(alias.Config{
		"./dep.js": alias.Contextual("src/special", f.path("overrides/dep.js")),
	})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	result, err := f.build(t, r, "src/special/entry.js")
	if err != nil {
		t.Fatalf("build special: %v", err)
	}
	if text := bundleText(t, result); !strings.Contains(text, "aliased") || strings.Contains(text, "original-special") {
		t.Fatalf("special bundle not aliased:\n%s", text)
	}

	result, err = f.build(t, r, "src/other/entry.js")
	if err != nil {
		t.Fatalf("build other: %v", err)
	}
	text := bundleText(t, result)
	if !strings.Contains(text, "original-other") || strings.Contains(text, "aliased") {
		t.Fatalf("other bundle should keep its dependency:\n%s", text)
	}
	if !strings.Contains(text, "package") {
		t.Fatalf("bare package import should resolve normally:\n%s", text)
	}
}

func TestPluginDirectAliasAndJournal(t *testing.T) {
	f := newFixture(t)
	r, err := alias.New(alias.Config{"./dep.js": alias.Direct("overrides/dep.js")})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	book, err := logbook.New(filepath.Join(f.root, "logs", "decisions.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	result, err := f.build(t, r, "src/other/entry.js", WithRoot(f.root), WithObserver(book))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if text := bundleText(t, result); !strings.Contains(text, "aliased") {
		t.Fatalf("direct alias not applied:\n%s", text)
	}
	lines, total := book.Tail(10)
	if total != 1 || !strings.Contains(lines[0], "replace ./dep.js -> "+f.path("overrides/dep.js")) {
		t.Fatalf("journal = %v", lines)
	}
	if result.Stats.Replaced != 1 {
		t.Fatalf("stats = %+v", result.Stats)
	}
}

func TestPluginPatternErrors(t *testing.T) {
	f := newFixture(t)
	r, err := alias.New(alias.Config{"./dep.js": alias.Contextual("src/(", f.path("overrides/dep.js"))})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	if _, err := f.build(t, r, "src/special/entry.js"); err == nil {
		t.Fatalf("expected invalid fromContext to fail the build")
	}
	result, err := f.build(t, r, "src/special/entry.js", WithSkipPatternErrors())
	if err != nil {
		t.Fatalf("skip mode build: %v", err)
	}
	if text := bundleText(t, result); !strings.Contains(text, "original-special") {
		t.Fatalf("skipped alias should leave dependency untouched:\n%s", text)
	}
}

func TestBuildValidatesOptions(t *testing.T) {
	r, err := alias.New(nil)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	if _, err := Build(BuildOptions{}, r); err == nil {
		t.Fatalf("expected missing entry points to fail")
	}
	if _, err := Build(BuildOptions{EntryPoints: []string{"x.js"}, Format: "amd"}, r); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
	if _, err := Build(BuildOptions{EntryPoints: []string{"x.js"}}, nil); err == nil {
		t.Fatalf("expected nil resolver to fail")
	}
}

func TestTentativePath(t *testing.T) {
	got := tentativePath(apiArgs("./dep.js", "/repo/src/special"))
	if got != "/repo/src/special/dep.js" {
		t.Fatalf("tentative path = %s", got)
	}
	if got := tentativePath(apiArgs("./dep.js", "")); got != "dep.js" {
		t.Fatalf("tentative path without dir = %s", got)
	}
}

func apiArgs(path, resolveDir string) api.OnResolveArgs {
	return api.OnResolveArgs{Path: path, ResolveDir: resolveDir, Namespace: "file"}
}
