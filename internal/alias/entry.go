package alias

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the two shapes an alias entry can take.
type Kind int

const (
	// KindDirect replaces the request regardless of where it was made from.
	KindDirect Kind = iota + 1
	// KindContextual replaces the request only when the resolved path
	// matches the entry's fromContext pattern.
	KindContextual
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindContextual:
		return "contextual"
	default:
		return "unknown"
	}
}

// Entry is the value side of an alias mapping. The shape is fixed when the
// entry is parsed so lookups never have to inspect raw configuration.
type Entry struct {
	kind        Kind
	path        string
	fromContext string
}

// Direct returns an entry that always replaces the request with path.
func Direct(path string) Entry {
	return Entry{kind: KindDirect, path: path}
}

// Contextual returns an entry that replaces the request with path when the
// resolved path of the module matches fromContext.
func Contextual(fromContext, path string) Entry {
	return Entry{kind: KindContextual, path: path, fromContext: fromContext}
}

// Kind reports the entry shape. The zero Entry reports 0.
func (e Entry) Kind() Kind { return e.kind }

// Path returns the absolute replacement path.
func (e Entry) Path() string { return e.path }

// FromContext returns the regular expression source for contextual entries.
func (e Entry) FromContext() string { return e.fromContext }

// IsZero reports whether the entry was never populated.
func (e Entry) IsZero() bool { return e.kind == 0 }

func (e Entry) String() string {
	if e.kind == KindContextual {
		return fmt.Sprintf("%s (fromContext %q)", e.path, e.fromContext)
	}
	return e.path
}

type contextualNode struct {
	FromContext string `yaml:"fromContext"`
	Alias       string `yaml:"alias"`
}

// UnmarshalYAML decodes either a plain string (direct alias) or a mapping
// with fromContext/alias keys (contextual alias).
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var path string
		if err := node.Decode(&path); err != nil {
			return fmt.Errorf("alias: decode direct entry: %w", err)
		}
		*e = Direct(path)
		return nil
	case yaml.MappingNode:
		var raw contextualNode
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("alias: decode contextual entry: %w", err)
		}
		*e = Contextual(raw.FromContext, raw.Alias)
		return nil
	default:
		return fmt.Errorf("alias: line %d: entry must be a path or a {fromContext, alias} mapping", node.Line)
	}
}

// MarshalYAML renders the entry in the same shape UnmarshalYAML accepts.
func (e Entry) MarshalYAML() (any, error) {
	if e.kind == KindContextual {
		return contextualNode{FromContext: e.fromContext, Alias: e.path}, nil
	}
	return e.path, nil
}

// Config maps raw relative import strings to their alias entries.
type Config map[string]Entry

// UnmarshalYAML decodes a mapping of requests to entries. A request listed
// more than once keeps its last entry.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	decoded, _, err := DecodeConfig(node)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// DecodeConfig decodes node like UnmarshalYAML and also returns the requests
// that were listed more than once, in the order their repeats appear.
func DecodeConfig(node *yaml.Node) (Config, []string, error) {
	if node == nil {
		return Config{}, nil, nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return Config{}, nil, nil
		}
		node = node.Content[0]
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	switch {
	case node.Kind == 0:
		return Config{}, nil, nil
	case node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null":
		return Config{}, nil, nil
	case node.Kind != yaml.MappingNode:
		return nil, nil, fmt.Errorf("alias: line %d: aliases must be a mapping of requests to entries", node.Line)
	}
	out := make(Config, len(node.Content)/2)
	var duplicates []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return nil, nil, fmt.Errorf("alias: line %d: decode request: %w", node.Content[i].Line, err)
		}
		var entry Entry
		if err := node.Content[i+1].Decode(&entry); err != nil {
			return nil, nil, err
		}
		if _, seen := out[key]; seen {
			duplicates = append(duplicates, key)
		}
		out[key] = entry
	}
	return out, duplicates, nil
}

// Keys returns the configured requests in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; entries are values so the copy is independent.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for key, entry := range c {
		out[key] = entry
	}
	return out
}

// Merge copies every entry of other into c. Existing keys are overwritten and
// returned so callers can report them.
func (c Config) Merge(other Config) []string {
	var overridden []string
	for _, key := range other.Keys() {
		if _, exists := c[key]; exists {
			overridden = append(overridden, key)
		}
		c[key] = other[key]
	}
	return overridden
}

// Validate checks every key against the relative-path shape and every entry
// for a usable replacement path. Keys are visited in sorted order so the
// reported key is stable.
func (c Config) Validate() error {
	for _, key := range c.Keys() {
		if !IsRelative(key) {
			return &ConfigurationError{Key: key, Reason: "is not a relative path"}
		}
		entry := c[key]
		if entry.IsZero() {
			return &ConfigurationError{Key: key, Reason: "has no alias entry"}
		}
		if strings.TrimSpace(entry.Path()) == "" {
			return &ConfigurationError{Key: key, Reason: "has an empty alias path"}
		}
	}
	return nil
}
