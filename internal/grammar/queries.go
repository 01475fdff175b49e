package grammar

import (
	"embed"
	"errors"
	"io/fs"
	"path"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

//go:embed queries/*/*.scm
var embeddedQueries embed.FS

// QueryName identifies one structural query in a language's query set.
type QueryName string

const (
	QueryModuleDocstring QueryName = "module_docstring"
	QueryGlobals         QueryName = "globals"
	QueryModuleFunctions QueryName = "module_functions"
	QueryModuleClasses   QueryName = "module_classes"
	QueryClassVars       QueryName = "class_vars"
	QueryClassMethods    QueryName = "class_methods"
	QueryNestedFunctions QueryName = "nested_functions"
	QueryNestedClasses   QueryName = "nested_classes"
	QueryFunctionCalls   QueryName = "function_calls"
	QueryLocalVars       QueryName = "local_vars"
	QueryImports         QueryName = "imports"
)

// requiredQueries must exist for every language; a missing one is a ConfigError.
var requiredQueries = []QueryName{
	QueryModuleDocstring,
	QueryGlobals,
	QueryModuleFunctions,
	QueryModuleClasses,
	QueryClassVars,
	QueryClassMethods,
	QueryNestedFunctions,
	QueryNestedClasses,
}

// optionalQueries silently disable their feature when absent.
var optionalQueries = []QueryName{
	QueryFunctionCalls,
	QueryLocalVars,
	QueryImports,
}

// QuerySet holds the compiled queries of one language. It is read-only once
// published by the cache and safe to share between goroutines; each caller
// runs its own QueryCursor.
type QuerySet struct {
	Language string
	queries  map[QueryName]*sitter.Query
}

// Get returns the compiled query, or nil when the language does not define it.
func (qs *QuerySet) Get(name QueryName) *sitter.Query {
	if qs == nil {
		return nil
	}
	return qs.queries[name]
}

// Has reports whether the query is defined.
func (qs *QuerySet) Has(name QueryName) bool {
	return qs.Get(name) != nil
}

func (qs *QuerySet) close() {
	for _, q := range qs.queries {
		q.Close()
	}
}

// compileQuerySet reads and compiles every query for one language from fsys.
// Partially compiled queries are released on failure.
func compileQuerySet(fsys fs.FS, language string, dir string, tsLang *sitter.Language) (*QuerySet, error) {
	qs := &QuerySet{Language: language, queries: make(map[QueryName]*sitter.Query)}

	load := func(name QueryName, required bool) error {
		src, err := fs.ReadFile(fsys, path.Join("queries", dir, string(name)+".scm"))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !required {
				return nil
			}
			if errors.Is(err, fs.ErrNotExist) {
				err = ErrMissingQuery
			}
			return &ConfigError{Language: language, Query: name, Err: err}
		}

		q, qerr := sitter.NewQuery(tsLang, string(src))
		if qerr != nil {
			return &ConfigError{Language: language, Query: name, Err: errors.Join(ErrInvalidQuery, qerr)}
		}
		qs.queries[name] = q
		return nil
	}

	for _, name := range requiredQueries {
		if err := load(name, true); err != nil {
			qs.close()
			return nil, err
		}
	}
	for _, name := range optionalQueries {
		if err := load(name, false); err != nil {
			qs.close()
			return nil, err
		}
	}

	return qs, nil
}
