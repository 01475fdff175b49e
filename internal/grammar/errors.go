package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLanguage indicates no grammar is registered for a language name.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrMissingQuery indicates a required query definition is absent for a language.
	ErrMissingQuery = errors.New("missing query definition")

	// ErrInvalidQuery indicates a query definition failed to compile against its grammar.
	ErrInvalidQuery = errors.New("invalid query definition")

	// ErrParseFailed indicates the parser returned no tree at all.
	ErrParseFailed = errors.New("parse failed")
)

// ConfigError reports a broken query configuration for a language. It is
// fatal for a run: every file of that language would fail the same way.
type ConfigError struct {
	Language string
	Query    QueryName
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("grammar config for %s (query %s): %v", e.Language, e.Query, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
