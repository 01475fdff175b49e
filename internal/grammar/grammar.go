package grammar

import (
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// bindings maps language names to the grammar entry points compiled into the binary.
var bindings = map[string]func() unsafe.Pointer{
	lang.Python:     python.Language,
	lang.JavaScript: javascript.Language,
	lang.TypeScript: typescript.LanguageTypescript,
	lang.TSX:        typescript.LanguageTSX,
}

func loadLanguage(name string) (*sitter.Language, error) {
	fn, ok := bindings[name]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}
	return sitter.NewLanguage(fn()), nil
}

// Supported reports whether a grammar is compiled in for name.
func Supported(name string) bool {
	_, ok := bindings[name]
	return ok && lang.ForName(name) != nil
}
