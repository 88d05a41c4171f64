package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const goDefinitionFuncName = "RelativeAliases"

// LoadGoDefinitionDir evaluates every .go file in dir and collects the alias
// mapping each one returns from RelativeAliases(). Computed aliases let a
// project derive replacement paths from the environment at build time.
func LoadGoDefinitionDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		def, err := loadGoDefinitionFile(filepath.Join(trimmed, entry.Name()))
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

func loadGoDefinitionFile(path string) (DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return DefinitionFile{}, fmt.Errorf("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(goDefinitionFuncName)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s must define %s() (map[string]any, error): %w", path, goDefinitionFuncName, err)
	}
	raw, err := invokeDefinitionFunc(fnValue)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: encode aliases: %w", path, err)
	}
	aliases, err := ParseAliasesYAML(payload)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return DefinitionFile{Aliases: aliases, Path: filepath.Clean(path)}, nil
}

func invokeDefinitionFunc(value reflect.Value) (map[string]any, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", goDefinitionFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDefinitionFuncName)
	}
	results := value.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return (map[string]any[, error])", goDefinitionFuncName)
	}
	if len(results) == 2 && !results[1].IsNil() {
		if e, ok := results[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("%s returned non-error second value", goDefinitionFuncName)
	}
	mapVal := results[0]
	if aliases, ok := mapVal.Interface().(map[string]any); ok {
		return aliases, nil
	}
	if mapVal.Kind() != reflect.Map || mapVal.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%s must return map[string]any", goDefinitionFuncName)
	}
	out := make(map[string]any, mapVal.Len())
	iter := mapVal.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}
