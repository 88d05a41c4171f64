// internal/config/config.go
//
// This package handles configuration and the .relalias directory structure.
// Every project that uses relalias gets a .relalias/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/relalias/internal/alias"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".relalias"

	// DebugEnv forces debug diagnostics on when set to a true value.
	DebugEnv = "RELALIAS_DEBUG"

	defaultFormat   = "esm"
	defaultPlatform = "browser"
	defaultOutdir   = "dist"
)

const defaultProjectConfigYAML = `# relalias project configuration
version: 1

# Print diagnostics for every replaced request.
debug: false

# Relative requests to replace. Keys must look relative (contain a dot).
aliases: {}
  # simple relative overwrite
  # ./example.js: /full/path/to/your/file.js
  #
  # overwrite only when the resolved path matches fromContext
  # ./../example:
  #   fromContext: specific/path/you/want/to/overwrite
  #   alias: /full/path/to/your/module/index.js

build:
  entryPoints: []
  outdir: dist
  format: esm
  platform: browser
`

// BuildConfig captures how `relalias build` invokes the bundler.
type BuildConfig struct {
	EntryPoints []string `yaml:"entryPoints,omitempty"`
	Outdir      string   `yaml:"outdir,omitempty"`
	Format      string   `yaml:"format,omitempty"`
	Platform    string   `yaml:"platform,omitempty"`
	Sourcemap   bool     `yaml:"sourcemap,omitempty"`
	Minify      bool     `yaml:"minify,omitempty"`
}

// ProjectConfig models .relalias/config.yaml.
type ProjectConfig struct {
	Version int          `yaml:"version"`
	Debug   bool         `yaml:"debug"`
	Aliases alias.Config `yaml:"aliases"`
	Build   BuildConfig  `yaml:"build"`
}

// Config holds the runtime configuration for relalias.
type Config struct {
	// ProjectDir is the directory relalias operates on
	ProjectDir string

	// RelaliasDir is ProjectDir/.relalias
	RelaliasDir string

	// Project is config.yaml as written, with defaults applied.
	Project ProjectConfig

	// Build is Project.Build with paths resolved against ProjectDir.
	Build BuildConfig

	duplicateAliases []string
}

// InitDir creates the .relalias directory structure in the given project directory.
//
// Structure created:
// .relalias/
// ├── config.yaml
// ├── aliases/   <- extra *.yaml and *.go alias definition files
// └── logs/      <- diagnostics and the decision journal
func InitDir(projectDir string) error {
	dir := filepath.Join(projectDir, Dir)
	for _, sub := range []string{
		filepath.Join(dir, "aliases"),
		filepath.Join(dir, "logs"),
	} {
		if err := os.MkdirAll(sub, 0755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
// A missing config.yaml yields defaults.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:  projectDir,
		RelaliasDir: filepath.Join(projectDir, Dir),
		Project:     defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if forced, ok := debugFromEnv(); ok {
		cfg.Project.Debug = forced
	}
	cfg.Build = cfg.Project.Build.resolve(projectDir)
	return cfg, nil
}

// AliasesDir returns the directory scanned for extra alias definition files
func (c *Config) AliasesDir() string {
	return filepath.Join(c.RelaliasDir, "aliases")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.RelaliasDir, "logs")
}

// JournalPath returns the decision journal written during builds
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "decisions.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.RelaliasDir, "config.yaml")
}

// Debug reports whether diagnostics are enabled.
func (c *Config) Debug() bool {
	return c.Project.Debug
}

// Aliases returns a copy of the aliases declared in config.yaml.
func (c *Config) Aliases() alias.Config {
	return c.Project.Aliases.Clone()
}

// DuplicateAliases returns the requests config.yaml declares more than once.
// The last declaration is the one in Project.Aliases.
func (c *Config) DuplicateAliases() []string {
	return append([]string(nil), c.duplicateAliases...)
}

// SetAlias validates and stores a single alias, then persists config.yaml.
func (c *Config) SetAlias(key string, entry alias.Entry) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if err := (alias.Config{key: entry}).Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Project.Aliases == nil {
		c.Project.Aliases = alias.Config{}
	}
	c.Project.Aliases[key] = entry
	return c.saveProjectConfig()
}

// RemoveAlias deletes key from config.yaml. Missing keys are an error.
func (c *Config) RemoveAlias(key string) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if _, ok := c.Project.Aliases[key]; !ok {
		return fmt.Errorf("config: alias %s is not configured", key)
	}
	delete(c.Project.Aliases, key)
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	var parsed ProjectConfig
	if len(doc.Content) > 0 {
		if err := doc.Decode(&parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	var duplicates []string
	if node := mappingValue(&doc, "aliases"); node != nil {
		if _, duplicates, err = alias.DecodeConfig(node); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	c.duplicateAliases = duplicates
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Aliases: alias.Config{},
		Build: BuildConfig{
			Format:   defaultFormat,
			Platform: defaultPlatform,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Aliases == nil {
		pc.Aliases = alias.Config{}
	}
	if strings.TrimSpace(pc.Build.Format) == "" {
		pc.Build.Format = defaultFormat
	}
	if strings.TrimSpace(pc.Build.Platform) == "" {
		pc.Build.Platform = defaultPlatform
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Build.Format = strings.ToLower(strings.TrimSpace(pc.Build.Format))
	pc.Build.Platform = strings.ToLower(strings.TrimSpace(pc.Build.Platform))
}

// resolve returns a copy of b with entry points and outdir made absolute.
func (b BuildConfig) resolve(base string) BuildConfig {
	out := b
	out.EntryPoints = make([]string, 0, len(b.EntryPoints))
	for _, entry := range b.EntryPoints {
		if resolved := resolvePath(base, entry); resolved != "" {
			out.EntryPoints = append(out.EntryPoints, resolved)
		}
	}
	outdir := b.Outdir
	if strings.TrimSpace(outdir) == "" {
		outdir = defaultOutdir
	}
	out.Outdir = resolvePath(base, outdir)
	return out
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := pc.Aliases.Validate(); err != nil {
		return err
	}
	switch pc.Build.Format {
	case "esm", "cjs", "iife":
	default:
		return fmt.Errorf("build.format must be 'esm', 'cjs' or 'iife'")
	}
	switch pc.Build.Platform {
	case "browser", "node", "neutral":
	default:
		return fmt.Errorf("build.platform must be 'browser', 'node' or 'neutral'")
	}
	return nil
}

func debugFromEnv() (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(DebugEnv))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

// saveProjectConfig rewrites only the aliases block of config.yaml. Every
// other key, and the comments around them, are kept as the user wrote them.
func (c *Config) saveProjectConfig() error {
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.RelaliasDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure relalias dir: %w", err)
	}
	path := c.ProjectConfigPath()
	if err := ensureProjectConfig(path); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	existing, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	var aliases yaml.Node
	if err := aliases.Encode(c.Project.Aliases); err != nil {
		return fmt.Errorf("config: encode aliases: %w", err)
	}

	var data []byte
	if setMappingValue(&doc, "aliases", &aliases) {
		data, err = yaml.Marshal(&doc)
	} else {
		data, err = yaml.Marshal(c.Project)
	}
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	c.duplicateAliases = nil
	return nil
}

func documentMapping(doc *yaml.Node) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	root := documentMapping(doc)
	if root == nil {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	return nil
}

// setMappingValue replaces (or appends) key in the document's top-level
// mapping, carrying the old value's comments over. It reports false when the
// document has no top-level mapping.
func setMappingValue(doc *yaml.Node, key string, value *yaml.Node) bool {
	root := documentMapping(doc)
	if root == nil {
		return false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		old := root.Content[i+1]
		value.HeadComment = old.HeadComment
		value.LineComment = old.LineComment
		value.FootComment = old.FootComment
		root.Content[i+1] = value
		return true
	}
	root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	return true
}
