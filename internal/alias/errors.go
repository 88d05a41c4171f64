package alias

import "fmt"

// ConfigurationError reports an alias mapping that cannot be used. It is
// returned by New before any request is processed.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("alias: the given alias '%s' %s", e.Key, e.Reason)
}

// PatternError reports a fromContext value that is not a valid regular
// expression. It surfaces the first time the entry is consulted.
type PatternError struct {
	Key     string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("alias: %s: invalid fromContext %q: %v", e.Key, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }
