package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

var (
	// ErrUnknownLanguage indicates a language with no registered grammar
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoLanguages indicates every language was disabled
	ErrNoLanguages = errors.New("no languages enabled")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyStoragePath indicates a missing store location
	ErrEmptyStoragePath = errors.New("empty storage path")

	// ErrInvalidLogLevel indicates an unsupported log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateLanguages(cfg.Languages); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if cfg.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Engine.Workers))
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.path is required", ErrEmptyStoragePath))
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.Log.Level))
	}

	return joinErrors(errs)
}

func validateLanguages(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: at least one language required", ErrNoLanguages)
	}
	var errs []error
	for _, name := range names {
		if lang.ForName(name) == nil {
			errs = append(errs, fmt.Errorf("%w: %s (valid: %s)", ErrUnknownLanguage, name, strings.Join(lang.Names(), ", ")))
		}
	}
	return joinErrors(errs)
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error
	for _, patterns := range [][]string{cfg.Code, cfg.Ignore} {
		for _, p := range patterns {
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
			}
		}
	}
	return joinErrors(errs)
}

// validationError lists several problems while keeping each one reachable
// through errors.Is.
type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &validationError{errs: errs}
}
