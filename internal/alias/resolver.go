// Package alias decides whether a relative import request should be replaced
// by a configured absolute path.
//
// A Resolver is built once per build from an immutable Config and consulted
// once per discovered module. Requests that do not look relative are rejected
// before the mapping is touched, since they make up the bulk of a typical
// module graph.
package alias

import (
	"regexp"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PluginName prefixes diagnostics emitted by the resolver.
const PluginName = "relalias"

const patternCacheSize = 256

// relativeShape accepts anything containing a dot, optionally preceded by a
// loader prefix. It is a shape check, not path validation.
var relativeShape = regexp.MustCompile(`(!|\?)?\.`)

// IsRelative reports whether request has the shape of a relative import.
func IsRelative(request string) bool {
	return relativeShape.MatchString(request)
}

// Request is the host's view of one module being resolved.
type Request struct {
	// RawRequest is the import string exactly as written in source.
	RawRequest string
	// ResolvedPath is the path the host tentatively resolved the request to.
	ResolvedPath string
}

// Decision is the outcome of a lookup. The zero value means no match.
type Decision struct {
	Path    string
	matched bool
}

// NoMatch leaves the host's resolution untouched.
var NoMatch = Decision{}

// Replace instructs the host to use path for the module.
func Replace(path string) Decision {
	return Decision{Path: path, matched: true}
}

// Matched reports whether the decision replaces the module path.
func (d Decision) Matched() bool { return d.matched }

func (d Decision) String() string {
	if !d.matched {
		return "no match"
	}
	return "replace " + d.Path
}

// Logger receives debug diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

// Stats counts resolver activity since construction.
type Stats struct {
	Requests uint64
	Lookups  uint64
	Replaced uint64
}

// Option customizes Resolver construction.
type Option func(*Resolver)

// WithDebug enables diagnostics on the provided logger.
func WithDebug(logger Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.debug = true
			r.logger = logger
		}
	}
}

// Resolver matches raw import requests against an alias mapping. It is safe
// for concurrent use; the mapping is never modified after New returns.
type Resolver struct {
	aliases  Config
	debug    bool
	logger   Logger
	patterns *lru.Cache[string, *regexp.Regexp]

	requests atomic.Uint64
	lookups  atomic.Uint64
	replaced atomic.Uint64
}

// New validates cfg and returns a resolver that owns a private copy of it.
// A *ConfigurationError is returned for the first unusable key.
func New(cfg Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	patterns, err := lru.New[string, *regexp.Regexp](patternCacheSize)
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		aliases:  cfg.Clone(),
		patterns: patterns,
	}
	if r.aliases == nil {
		r.aliases = Config{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.debugf("%s instance in debug mode", PluginName)
	return r, nil
}

// Resolve decides whether req should be redirected. Unknown requests and
// contextual entries whose pattern does not match the resolved path yield
// NoMatch. A malformed fromContext yields a *PatternError.
func (r *Resolver) Resolve(req Request) (Decision, error) {
	r.requests.Add(1)
	if !IsRelative(req.RawRequest) {
		return NoMatch, nil
	}
	r.lookups.Add(1)
	entry, ok := r.aliases[req.RawRequest]
	if !ok {
		return NoMatch, nil
	}
	if entry.Kind() == KindContextual {
		pattern, err := r.compile(req.RawRequest, entry.FromContext())
		if err != nil {
			return NoMatch, err
		}
		if !pattern.MatchString(req.ResolvedPath) {
			r.debugf("alias skipped, context did not match: %s", req.RawRequest)
			return NoMatch, nil
		}
	}
	r.replaced.Add(1)
	r.debugf("alias will be overwritten: %s", req.RawRequest)
	return Replace(entry.Path()), nil
}

// ValidatePatterns compiles every contextual pattern up front and returns
// the first failure. Lookups do not require it.
func (r *Resolver) ValidatePatterns() error {
	for _, key := range r.aliases.Keys() {
		entry := r.aliases[key]
		if entry.Kind() != KindContextual {
			continue
		}
		if _, err := r.compile(key, entry.FromContext()); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the configured requests in sorted order.
func (r *Resolver) Keys() []string {
	return r.aliases.Keys()
}

// Entry returns the entry configured for key.
func (r *Resolver) Entry(key string) (Entry, bool) {
	entry, ok := r.aliases[key]
	return entry, ok
}

// Stats returns a snapshot of the activity counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Requests: r.requests.Load(),
		Lookups:  r.lookups.Load(),
		Replaced: r.replaced.Load(),
	}
}

func (r *Resolver) compile(key, source string) (*regexp.Regexp, error) {
	if pattern, ok := r.patterns.Get(source); ok {
		return pattern, nil
	}
	pattern, err := regexp.Compile(source)
	if err != nil {
		return nil, &PatternError{Key: key, Pattern: source, Err: err}
	}
	r.patterns.Add(source, pattern)
	return pattern, nil
}

func (r *Resolver) debugf(format string, args ...any) {
	if !r.debug || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
