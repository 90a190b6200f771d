// Package simerr gives the backtest engine two typed error categories
// to distinguish a fail-fast misconfiguration from a data-source
// failure mid-run. Neither comes with a partial result: the run returns
// the error alone.
package simerr

import "fmt"

// ConfigError means the run was rejected before a single snapshot was
// read. No trades, no equity curve, no partial report: Field names the
// offending Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// NewConfigError builds a ConfigError for field with the given reason.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// SourceError wraps a failure from a book.Source's Connect, Close, or
// Next call. It is terminal: the driver loop stops the run and returns
// no Result, only the error.
type SourceError struct {
	Op       string // "connect", "close", "next"
	Original error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source: %s: %v", e.Op, e.Original)
}

func (e *SourceError) Unwrap() error {
	return e.Original
}

// NewSourceError wraps err as a SourceError for the given operation.
// Returns nil if err is nil, so it is safe to use unconditionally:
//
//	if err := src.Connect(ctx); err != nil {
//	    return simerr.NewSourceError("connect", err)
//	}
func NewSourceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Op: op, Original: err}
}
