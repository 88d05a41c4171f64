package plugins

import (
	"github.com/kingrea/relalias/internal/alias"
	"github.com/kingrea/relalias/internal/config"
)

// LoadAliases merges the aliases declared in config.yaml with every YAML and
// Go definition file under .relalias/aliases. Sources are applied in order
// (config.yaml, then files by path) and the last write for a key wins;
// overridden keys are reported to logger when one is supplied.
func LoadAliases(cfg *config.Config, logger alias.Logger) (alias.Config, error) {
	merged := alias.Config{}
	if cfg == nil {
		return merged, nil
	}
	merged.Merge(cfg.Aliases())
	for _, key := range cfg.DuplicateAliases() {
		if logger != nil {
			logger.Printf("alias %s declared more than once in %s, last entry wins", key, cfg.ProjectConfigPath())
		}
	}
	defs, err := loadAllDefinitionFiles(cfg.AliasesDir())
	if err != nil {
		return nil, err
	}
	for _, file := range defs {
		for _, key := range file.Duplicates {
			if logger != nil {
				logger.Printf("alias %s declared more than once in %s, last entry wins", key, file.Path)
			}
		}
		for _, key := range merged.Merge(file.Aliases) {
			if logger != nil {
				logger.Printf("alias %s overridden by %s", key, file.Path)
			}
		}
	}
	return merged, nil
}

// NewResolver loads every alias source for cfg and builds the resolver.
// Debug diagnostics go to logger when the project enables debug mode.
func NewResolver(cfg *config.Config, logger alias.Logger) (*alias.Resolver, error) {
	var debugLogger alias.Logger
	if cfg != nil && cfg.Debug() {
		debugLogger = logger
	}
	aliases, err := LoadAliases(cfg, debugLogger)
	if err != nil {
		return nil, err
	}
	var opts []alias.Option
	if debugLogger != nil {
		opts = append(opts, alias.WithDebug(debugLogger))
	}
	return alias.New(aliases, opts...)
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	all := append(yamlDefs, goDefs...)
	sortDefinitionFiles(all)
	return all, nil
}
