// Package host models the bundler side of the alias contract: a compilation
// that discovers modules one at a time and lets registered hooks redirect
// them before they are loaded.
package host

import (
	"errors"
	"fmt"

	"github.com/kingrea/relalias/internal/alias"
)

// Module is the host-owned record for a discovered module. Hooks never touch
// it directly; the compilation applies their decisions.
type Module struct {
	// RawRequest is the import string as written in source.
	RawRequest string
	// Resource is the path the module will be loaded from.
	Resource string
	// Aliased records the hook-assigned path, empty when untouched.
	Aliased string
}

// Hook decides whether a discovered module should be redirected.
// *alias.Resolver satisfies it.
type Hook interface {
	Resolve(req alias.Request) (alias.Decision, error)
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(req alias.Request) (alias.Decision, error)

// Resolve calls f.
func (f HookFunc) Resolve(req alias.Request) (alias.Decision, error) {
	return f(req)
}

// Observer is told about every replacement and every hook failure.
type Observer interface {
	Replaced(raw, target, importer string)
	Failed(raw string, err error)
}

// Option customizes a Compilation.
type Option func(*Compilation)

// WithSkipPatternErrors treats a malformed fromContext as a non-match for
// the affected module instead of aborting discovery.
func WithSkipPatternErrors() Option {
	return func(c *Compilation) { c.skipPatternErrors = true }
}

// WithObserver reports decisions to o.
func WithObserver(o Observer) Option {
	return func(c *Compilation) { c.observer = o }
}

// Compilation runs registered hooks for each discovered module in
// registration order. The first hook that replaces wins. A Compilation is
// used by a single module-graph walk and is not safe for concurrent use.
type Compilation struct {
	hooks             []Hook
	observer          Observer
	skipPatternErrors bool
	skipped           []error
}

// NewCompilation returns a compilation with no hooks registered.
func NewCompilation(opts ...Option) *Compilation {
	c := &Compilation{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Register installs hook. Nil hooks are rejected.
func (c *Compilation) Register(hook Hook) error {
	if hook == nil {
		return fmt.Errorf("host: hook is required")
	}
	c.hooks = append(c.hooks, hook)
	return nil
}

// Discover offers mod to every hook and rewrites mod.Resource on the first
// replacement. Hook errors abort discovery unless they are pattern errors
// and the compilation skips them.
func (c *Compilation) Discover(mod *Module) error {
	if mod == nil {
		return fmt.Errorf("host: module is required")
	}
	req := alias.Request{RawRequest: mod.RawRequest, ResolvedPath: mod.Resource}
	for _, hook := range c.hooks {
		decision, err := hook.Resolve(req)
		if err != nil {
			c.fail(mod.RawRequest, err)
			var patErr *alias.PatternError
			if c.skipPatternErrors && errors.As(err, &patErr) {
				c.skipped = append(c.skipped, err)
				continue
			}
			return fmt.Errorf("host: discover %s: %w", mod.RawRequest, err)
		}
		if !decision.Matched() {
			continue
		}
		if c.observer != nil {
			c.observer.Replaced(mod.RawRequest, decision.Path, mod.Resource)
		}
		mod.Resource = decision.Path
		mod.Aliased = decision.Path
		return nil
	}
	return nil
}

// DiscoverAll runs Discover for each module in order and stops at the first
// error.
func (c *Compilation) DiscoverAll(mods []*Module) error {
	for _, mod := range mods {
		if err := c.Discover(mod); err != nil {
			return err
		}
	}
	return nil
}

// Skipped returns the pattern errors that were treated as non-matches.
func (c *Compilation) Skipped() []error {
	return append([]error(nil), c.skipped...)
}

func (c *Compilation) fail(raw string, err error) {
	if c.observer != nil {
		c.observer.Failed(raw, err)
	}
}
