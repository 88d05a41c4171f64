// Package esbuild plugs the alias resolver into esbuild's resolution
// pipeline.
package esbuild

import (
	"errors"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/kingrea/relalias/internal/alias"
	"github.com/kingrea/relalias/internal/host"
)

// resolveFilter is the esbuild-side equivalent of alias.IsRelative: a loader
// prefix is optional, so any request containing a dot qualifies.
const resolveFilter = `\.`

type pluginOptions struct {
	root              string
	skipPatternErrors bool
	observer          host.Observer
}

// Option customizes the plugin.
type Option func(*pluginOptions)

// WithRoot joins relative replacement paths onto root before handing them
// to esbuild, which requires absolute paths in the file namespace.
func WithRoot(root string) Option {
	return func(o *pluginOptions) { o.root = root }
}

// WithSkipPatternErrors treats a malformed fromContext as a non-match
// instead of failing the build.
func WithSkipPatternErrors() Option {
	return func(o *pluginOptions) { o.skipPatternErrors = true }
}

// WithObserver reports replacements and failures, typically to a logbook.
func WithObserver(observer host.Observer) Option {
	return func(o *pluginOptions) { o.observer = observer }
}

// Plugin returns an esbuild plugin that redirects configured relative
// requests. The tentative resolved path handed to the resolver is the
// request joined onto the importer's directory; nothing is read from disk.
func Plugin(r *alias.Resolver, opts ...Option) api.Plugin {
	var cfg pluginOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return api.Plugin{
		Name: alias.PluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: resolveFilter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Namespace != "" && args.Namespace != "file" {
					return api.OnResolveResult{}, nil
				}
				decision, err := r.Resolve(alias.Request{
					RawRequest:   args.Path,
					ResolvedPath: tentativePath(args),
				})
				if err != nil {
					if cfg.observer != nil {
						cfg.observer.Failed(args.Path, err)
					}
					var patErr *alias.PatternError
					if cfg.skipPatternErrors && errors.As(err, &patErr) {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{}, err
				}
				if !decision.Matched() {
					return api.OnResolveResult{}, nil
				}
				target := decision.Path
				if !filepath.IsAbs(target) && cfg.root != "" {
					target = filepath.Join(cfg.root, target)
				}
				if cfg.observer != nil {
					cfg.observer.Replaced(args.Path, target, args.Importer)
				}
				return api.OnResolveResult{Path: target, Namespace: "file"}, nil
			})
		},
	}
}

func tentativePath(args api.OnResolveArgs) string {
	if args.ResolveDir == "" || filepath.IsAbs(args.Path) {
		return filepath.Clean(args.Path)
	}
	return filepath.Join(args.ResolveDir, args.Path)
}
