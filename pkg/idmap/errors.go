package idmap

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no identity matches the lookup key.
// A failed lookup is never cached.
var ErrNotFound = errors.New("identity not found")

// ConfigError reports an invalid schema configuration option. Line is
// zero when the option did not come from a file.
type ConfigError struct {
	Key    string
	Line   int
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("config: line %d: option %q: %s", e.Line, e.Key, e.Reason)
	}
	return fmt.Sprintf("config: option %q: %s", e.Key, e.Reason)
}

// ConnectionError reports a failure to establish or authenticate the
// backend session. It is only returned at construction time.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("idmap: connecting to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MissingAttributeError reports a directory entry that matched the
// lookup filter but lacks a required attribute.
type MissingAttributeError struct {
	Attr   string
	Filter string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("idmap: attribute %q missing from entry matching %s", e.Attr, e.Filter)
}

// InvalidAttributeError reports an attribute value that could not be
// parsed as a 32-bit unsigned identifier.
type InvalidAttributeError struct {
	Attr  string
	Value string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("idmap: attribute %q has invalid value %q", e.Attr, e.Value)
}

// OverflowError reports a value that exceeds a fixed bound, such as a
// synthesized search filter or a record string field.
type OverflowError struct {
	What  string
	Limit int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("idmap: %s exceeds %d bytes", e.What, e.Limit)
}
