package engine

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

var (
	// ErrUnsupportedLanguage indicates a file whose extension maps to no
	// enabled language. The file is skipped.
	ErrUnsupportedLanguage = grammar.ErrUnsupportedLanguage

	// ErrUndecodable indicates binary or non-UTF-8 content. The file is skipped.
	ErrUndecodable = signature.ErrUndecodable
)

// ReadError reports a file that could not be read. The file is skipped.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort a whole run. Only broken grammar
// configuration is fatal; every other per-file error skips that file.
func IsFatal(err error) bool {
	return grammar.IsConfigError(err)
}

// IsSkip reports whether err means the file was skipped rather than failed.
func IsSkip(err error) bool {
	var re *ReadError
	return errors.Is(err, ErrUnsupportedLanguage) || errors.Is(err, ErrUndecodable) || errors.As(err, &re)
}
