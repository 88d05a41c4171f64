package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/relalias/internal/alias"
	"github.com/kingrea/relalias/internal/config"
	"github.com/kingrea/relalias/internal/esbuild"
	"github.com/kingrea/relalias/internal/host"
	"github.com/kingrea/relalias/internal/logbook"
	"github.com/kingrea/relalias/internal/logging"
	"github.com/kingrea/relalias/internal/tui"
	"github.com/kingrea/relalias/plugins"
)

// Options is the go-flags root: global flags plus one field per subcommand.
type Options struct {
	Project string `short:"p" long:"project" description:"project directory (defaults to the working directory)"`
	Debug   bool   `short:"d" long:"debug" description:"print alias diagnostics"`

	Init    InitCommand    `command:"init" description:"create the .relalias directory and default config"`
	Check   CheckCommand   `command:"check" description:"validate every alias source and list the merged aliases"`
	Resolve ResolveCommand `command:"resolve" description:"print the decision for a single request"`
	Add     AddCommand     `command:"add" description:"add or replace an alias in config.yaml"`
	Remove  RemoveCommand  `command:"remove" description:"remove an alias from config.yaml"`
	Build   BuildCommand   `command:"build" description:"bundle the configured entry points with esbuild"`
	Explore ExploreCommand `command:"explore" description:"try requests interactively"`
	Log     LogCommand     `command:"log" description:"show recent alias decisions"`

	out io.Writer
}

// NewOptions wires every subcommand back to the shared options.
func NewOptions(out io.Writer) *Options {
	o := &Options{out: out}
	o.Init.root = o
	o.Check.root = o
	o.Resolve.root = o
	o.Add.root = o
	o.Remove.root = o
	o.Build.root = o
	o.Explore.root = o
	o.Log.root = o
	return o
}

func (o *Options) projectDir() (string, error) {
	project := strings.TrimSpace(o.Project)
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		project = cwd
	}
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

func (o *Options) loadConfig() (*config.Config, error) {
	project, err := o.projectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.Debug {
		cfg.Project.Debug = true
	}
	return cfg, nil
}

// session bundles what most subcommands need: config, logger and resolver.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	resolver *alias.Resolver
}

func (s *session) Close() error {
	return s.logger.Close()
}

func (o *Options) openSession() (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewConsole(o.out, alias.PluginName)
	if cfg.Debug() {
		if logger, err = logging.New(o.out, cfg.ProjectDir, alias.PluginName); err != nil {
			return nil, err
		}
	}
	r, err := plugins.NewResolver(cfg, logger)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	return &session{cfg: cfg, logger: logger, resolver: r}, nil
}

// InitCommand creates the project skeleton.
type InitCommand struct {
	root *Options
}

func (c *InitCommand) Execute(_ []string) error {
	project, err := c.root.projectDir()
	if err != nil {
		return err
	}
	if err := config.InitDir(project); err != nil {
		return fmt.Errorf("init %s: %w", config.Dir, err)
	}
	fmt.Fprintf(c.root.out, "Initialized %s\n", filepath.Join(project, config.Dir))
	return nil
}

// CheckCommand validates configuration, including every fromContext pattern.
type CheckCommand struct {
	root *Options
}

func (c *CheckCommand) Execute(_ []string) error {
	s, err := c.root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.resolver.ValidatePatterns(); err != nil {
		return err
	}
	keys := s.resolver.Keys()
	for _, key := range keys {
		entry, _ := s.resolver.Entry(key)
		fmt.Fprintf(c.root.out, "%-10s %s -> %s\n", entry.Kind(), key, entry)
	}
	fmt.Fprintf(c.root.out, "%d aliases OK\n", len(keys))
	return nil
}

// ResolveCommand evaluates requests the way a bundler would, one decision
// per line, and journals replacements and failures.
type ResolveCommand struct {
	Requests          []string `short:"r" long:"request" required:"true" description:"raw import request, e.g. ./example.js (repeatable)"`
	Path              string   `long:"path" description:"path the bundler resolved the requests to"`
	SkipPatternErrors bool     `long:"skip-pattern-errors" description:"treat invalid fromContext patterns as non-matches"`

	root *Options
}

func (c *ResolveCommand) Execute(_ []string) error {
	s, err := c.root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	journal, err := logbook.New(s.cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	opts := []host.Option{host.WithObserver(journal)}
	if c.SkipPatternErrors {
		opts = append(opts, host.WithSkipPatternErrors())
	}
	compilation := host.NewCompilation(opts...)
	if err := compilation.Register(s.resolver); err != nil {
		return err
	}
	mods := make([]*host.Module, 0, len(c.Requests))
	for _, raw := range c.Requests {
		mods = append(mods, &host.Module{RawRequest: raw, Resource: c.Path})
	}
	if err := compilation.DiscoverAll(mods); err != nil {
		return err
	}
	for _, skipped := range compilation.Skipped() {
		fmt.Fprintf(c.root.out, "skipped: %v\n", skipped)
	}
	for _, mod := range mods {
		decision := alias.NoMatch
		if mod.Aliased != "" {
			decision = alias.Replace(mod.Aliased)
		}
		fmt.Fprintln(c.root.out, decision)
	}
	if err := journal.Err(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// AddCommand stores an alias in config.yaml.
type AddCommand struct {
	FromContext string `long:"from-context" description:"only replace when the resolved path matches this regular expression"`
	Args        struct {
		Request string `positional-arg-name:"request" description:"relative request to replace"`
		Alias   string `positional-arg-name:"alias" description:"absolute replacement path"`
	} `positional-args:"yes" required:"yes"`

	root *Options
}

func (c *AddCommand) Execute(_ []string) error {
	cfg, err := c.root.loadConfig()
	if err != nil {
		return err
	}
	entry := alias.Direct(c.Args.Alias)
	if c.FromContext != "" {
		entry = alias.Contextual(c.FromContext, c.Args.Alias)
		probe, err := alias.New(alias.Config{c.Args.Request: entry})
		if err != nil {
			return err
		}
		if err := probe.ValidatePatterns(); err != nil {
			return err
		}
	}
	if err := cfg.SetAlias(c.Args.Request, entry); err != nil {
		return err
	}
	fmt.Fprintf(c.root.out, "Added %s -> %s\n", c.Args.Request, entry)
	return nil
}

// RemoveCommand deletes an alias from config.yaml.
type RemoveCommand struct {
	Args struct {
		Request string `positional-arg-name:"request"`
	} `positional-args:"yes" required:"yes"`

	root *Options
}

func (c *RemoveCommand) Execute(_ []string) error {
	cfg, err := c.root.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RemoveAlias(c.Args.Request); err != nil {
		return err
	}
	fmt.Fprintf(c.root.out, "Removed %s\n", c.Args.Request)
	return nil
}

// BuildCommand bundles the project with the alias plugin installed.
type BuildCommand struct {
	Entries           []string `short:"e" long:"entry" description:"entry point (repeatable, overrides build.entryPoints)"`
	Outdir            string   `short:"o" long:"outdir" description:"output directory (overrides build.outdir)"`
	SkipPatternErrors bool     `long:"skip-pattern-errors" description:"treat invalid fromContext patterns as non-matches"`

	root *Options
}

func (c *BuildCommand) Execute(_ []string) error {
	s, err := c.root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	journal, err := logbook.New(s.cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	build := s.cfg.Build
	opts := esbuild.BuildOptions{
		EntryPoints: build.EntryPoints,
		Outdir:      build.Outdir,
		Format:      build.Format,
		Platform:    build.Platform,
		Sourcemap:   build.Sourcemap,
		Minify:      build.Minify,
		Write:       true,
		WorkingDir:  s.cfg.ProjectDir,
	}
	if len(c.Entries) > 0 {
		opts.EntryPoints = absolutePaths(s.cfg.ProjectDir, c.Entries)
	}
	if c.Outdir != "" {
		opts.Outdir = absolutePaths(s.cfg.ProjectDir, []string{c.Outdir})[0]
	}
	pluginOpts := []esbuild.Option{esbuild.WithRoot(s.cfg.ProjectDir), esbuild.WithObserver(journal)}
	if c.SkipPatternErrors {
		pluginOpts = append(pluginOpts, esbuild.WithSkipPatternErrors())
	}
	result, err := esbuild.Build(opts, s.resolver, pluginOpts...)
	for _, warning := range result.Warnings {
		fmt.Fprintf(c.root.out, "warning: %s\n", warning)
	}
	if err != nil {
		return err
	}
	if err := journal.Err(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	for _, out := range result.Outputs {
		fmt.Fprintf(c.root.out, "wrote %s\n", out.Path)
	}
	fmt.Fprintf(c.root.out, "%d requests, %d looked up, %d replaced\n",
		result.Stats.Requests, result.Stats.Lookups, result.Stats.Replaced)
	return nil
}

// ExploreCommand launches the interactive explorer.
type ExploreCommand struct {
	root *Options
}

func (c *ExploreCommand) Execute(_ []string) error {
	s, err := c.root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	p := tea.NewProgram(tui.NewExplorer(s.resolver), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run explorer: %w", err)
	}
	return nil
}

// LogCommand prints the tail of the decision journal.
type LogCommand struct {
	Lines int `short:"n" long:"lines" default:"20" description:"number of entries to show"`

	root *Options
}

func (c *LogCommand) Execute(_ []string) error {
	cfg, err := c.root.loadConfig()
	if err != nil {
		return err
	}
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	lines, total := journal.Tail(c.Lines)
	if total == 0 {
		fmt.Fprintln(c.root.out, "No decisions recorded yet.")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(c.root.out, line)
	}
	fmt.Fprintf(c.root.out, "(%d of %d entries)\n", len(lines), total)
	return nil
}

func absolutePaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			out = append(out, filepath.Clean(p))
			continue
		}
		out = append(out, filepath.Join(base, p))
	}
	return out
}
