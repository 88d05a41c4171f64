package esbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/kingrea/relalias/internal/alias"
)

// BuildOptions is the subset of esbuild options relalias exposes.
type BuildOptions struct {
	EntryPoints []string
	Outdir      string
	Format      string
	Platform    string
	Sourcemap   bool
	Minify      bool
	// Write controls whether outputs are written to Outdir or only returned.
	Write      bool
	WorkingDir string
}

// Output is one emitted file.
type Output struct {
	Path     string
	Contents []byte
}

// Result summarizes a bundle run.
type Result struct {
	Outputs  []Output
	Warnings []string
	Stats    alias.Stats
}

// Build bundles the entry points with the alias plugin installed. esbuild
// errors are joined into the returned error.
func Build(opts BuildOptions, r *alias.Resolver, pluginOpts ...Option) (Result, error) {
	if r == nil {
		return Result{}, fmt.Errorf("esbuild: resolver is required")
	}
	if len(opts.EntryPoints) == 0 {
		return Result{}, fmt.Errorf("esbuild: at least one entry point is required")
	}
	format, err := parseFormat(opts.Format)
	if err != nil {
		return Result{}, err
	}
	platform, err := parsePlatform(opts.Platform)
	if err != nil {
		return Result{}, err
	}
	buildOpts := api.BuildOptions{
		EntryPoints:       opts.EntryPoints,
		Bundle:            true,
		Write:             false,
		Outdir:            opts.Outdir,
		Format:            format,
		Platform:          platform,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		AbsWorkingDir:     opts.WorkingDir,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{Plugin(r, pluginOpts...)},
	}
	if opts.Sourcemap {
		buildOpts.Sourcemap = api.SourceMapLinked
	}
	built := api.Build(buildOpts)
	result := Result{Stats: r.Stats()}
	for _, msg := range built.Warnings {
		result.Warnings = append(result.Warnings, formatMessage(msg))
	}
	if len(built.Errors) > 0 {
		lines := make([]string, 0, len(built.Errors))
		for _, msg := range built.Errors {
			lines = append(lines, formatMessage(msg))
		}
		return result, fmt.Errorf("esbuild: build failed:\n%s", strings.Join(lines, "\n"))
	}
	for _, file := range built.OutputFiles {
		if opts.Write {
			if err := writeOutput(file); err != nil {
				return result, err
			}
		}
		result.Outputs = append(result.Outputs, Output{Path: file.Path, Contents: file.Contents})
	}
	return result, nil
}

// esbuild only reports OutputFiles when it does not write them itself, so
// outputs are always collected in memory and flushed here.
func writeOutput(file api.OutputFile) error {
	if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
		return fmt.Errorf("esbuild: ensure output dir: %w", err)
	}
	if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil {
		return fmt.Errorf("esbuild: write %s: %w", file.Path, err)
	}
	return nil
}

func parseFormat(value string) (api.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	default:
		return api.FormatDefault, fmt.Errorf("esbuild: unknown format %q", value)
	}
}

func parsePlatform(value string) (api.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	default:
		return api.PlatformBrowser, fmt.Errorf("esbuild: unknown platform %q", value)
	}
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
