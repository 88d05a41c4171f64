package host

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/kingrea/relalias/internal/alias"
	"github.com/kingrea/relalias/internal/logbook"
)

func newResolver(t *testing.T, cfg alias.Config) *alias.Resolver {
	t.Helper()
	r, err := alias.New(cfg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func TestDiscoverRewritesResource(t *testing.T) {
	r := newResolver(t, alias.Config{
		"./a.js": alias.Contextual("src/special", "/abs/a.js"),
		"./b.js": alias.Direct("/abs/b.js"),
	})
	c := NewCompilation()
	if err := c.Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	mods := []*Module{
		{RawRequest: "./a.js", Resource: "/src/special/a.js"},
		{RawRequest: "./a.js", Resource: "/src/other/a.js"},
		{RawRequest: "./b.js", Resource: "/src/b.js"},
		{RawRequest: "react", Resource: "/node_modules/react/index.js"},
	}
	if err := c.DiscoverAll(mods); err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := []string{"/abs/a.js", "/src/other/a.js", "/abs/b.js", "/node_modules/react/index.js"}
	for i, mod := range mods {
		if mod.Resource != want[i] {
			t.Fatalf("module %d resource = %s, want %s", i, mod.Resource, want[i])
		}
	}
	if mods[1].Aliased != "" || mods[0].Aliased != "/abs/a.js" {
		t.Fatalf("aliased markers wrong: %+v %+v", mods[0], mods[1])
	}
}

func TestFirstReplacingHookWins(t *testing.T) {
	c := NewCompilation()
	calls := 0
	never := HookFunc(func(alias.Request) (alias.Decision, error) {
		calls++
		return alias.NoMatch, nil
	})
	first := HookFunc(func(alias.Request) (alias.Decision, error) { return alias.Replace("/first.js"), nil })
	second := HookFunc(func(alias.Request) (alias.Decision, error) {
		t.Fatalf("second hook must not run after a replacement")
		return alias.NoMatch, nil
	})
	for _, hook := range []Hook{never, first, second} {
		if err := c.Register(hook); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	mod := &Module{RawRequest: "./x.js", Resource: "/src/x.js"}
	if err := c.Discover(mod); err != nil {
		t.Fatalf("discover: %v", err)
	}
	if mod.Resource != "/first.js" || calls != 1 {
		t.Fatalf("resource = %s, calls = %d", mod.Resource, calls)
	}
}

func TestRegisterRejectsNil(t *testing.T) {
	if err := NewCompilation().Register(nil); err == nil {
		t.Fatalf("expected nil hook to be rejected")
	}
}

func TestPatternErrorAbortsByDefault(t *testing.T) {
	r := newResolver(t, alias.Config{"./a.js": alias.Contextual("(", "/abs/a.js")})
	c := NewCompilation()
	_ = c.Register(r)
	err := c.Discover(&Module{RawRequest: "./a.js", Resource: "/src/a.js"})
	var patErr *alias.PatternError
	if !errors.As(err, &patErr) {
		t.Fatalf("expected pattern error, got %v", err)
	}
}

func TestPatternErrorSkipped(t *testing.T) {
	r := newResolver(t, alias.Config{"./a.js": alias.Contextual("(", "/abs/a.js")})
	book, err := logbook.New(filepath.Join(t.TempDir(), "decisions.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	c := NewCompilation(WithSkipPatternErrors(), WithObserver(book))
	_ = c.Register(r)
	mod := &Module{RawRequest: "./a.js", Resource: "/src/a.js"}
	if err := c.Discover(mod); err != nil {
		t.Fatalf("skip mode should not fail: %v", err)
	}
	if mod.Resource != "/src/a.js" {
		t.Fatalf("skipped module must keep its resource, got %s", mod.Resource)
	}
	if len(c.Skipped()) != 1 {
		t.Fatalf("expected one skipped error, got %v", c.Skipped())
	}
	if _, total := book.Tail(5); total != 1 {
		t.Fatalf("expected failure to be journaled, total = %d", total)
	}
}

func TestNonPatternErrorsAlwaysAbort(t *testing.T) {
	boom := errors.New("boom")
	c := NewCompilation(WithSkipPatternErrors())
	_ = c.Register(HookFunc(func(alias.Request) (alias.Decision, error) { return alias.NoMatch, boom }))
	if err := c.Discover(&Module{RawRequest: "./a.js"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
