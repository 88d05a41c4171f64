package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/relalias/internal/alias"
)

// DefinitionFile pairs a parsed alias mapping with its on-disk source.
type DefinitionFile struct {
	Aliases alias.Config
	Path    string
	// Duplicates lists requests the file declares more than once.
	Duplicates []string
}

// ParseAliasesYAML decodes and validates a single alias mapping payload.
// The payload has the same shape as the aliases: block of config.yaml.
func ParseAliasesYAML(data []byte) (alias.Config, error) {
	aliases, _, err := parseAliases(data)
	return aliases, err
}

func parseAliases(data []byte) (alias.Config, []string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("plugin: alias payload is empty")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("plugin: decode aliases: %w", err)
	}
	aliases, duplicates, err := alias.DecodeConfig(&doc)
	if err != nil {
		return nil, nil, fmt.Errorf("plugin: decode aliases: %w", err)
	}
	if err := aliases.Validate(); err != nil {
		return nil, nil, err
	}
	return aliases, duplicates, nil
}

// LoadDefinitionFile reads a YAML file from disk and returns the parsed aliases.
func LoadDefinitionFile(path string) (DefinitionFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return DefinitionFile{}, fmt.Errorf("plugin: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	aliases, duplicates, err := parseAliases(data)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return DefinitionFile{Aliases: aliases, Path: filepath.Clean(path), Duplicates: duplicates}, nil
}

// LoadDefinitionDir scans a directory for *.yaml alias files and returns them
// in path order. Missing directories are treated as "no extra aliases".
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		def, err := LoadDefinitionFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, nil
	}
	sortDefinitionFiles(defs)
	return defs, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func sortDefinitionFiles(defs []DefinitionFile) {
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
}
