package cli

import "errors"

// Exit codes returned by the citelink binary
const (
	ExitSuccess          = 0 // Success
	ExitError            = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError      = 2 // Configuration error (unreadable config, invalid values)
	ExitNoReferences     = 3 // No references found; a header-only table was still written
	ExitDocumentFailures = 4 // One or more documents failed; the rest were written
)

// ErrNoReferences is returned when a run extracted zero references
var ErrNoReferences = errors.New("no references found")

// ErrDocumentFailures is returned when some documents of a batch failed
var ErrDocumentFailures = errors.New("one or more documents failed")

// ConfigError marks configuration problems
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "config: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, ErrNoReferences):
		return ExitNoReferences
	case errors.Is(err, ErrDocumentFailures):
		return ExitDocumentFailures
	}
	return ExitError
}
