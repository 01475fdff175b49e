// Package imports reads a file's import statements into the import list the
// binding resolver consumes, and drops imports that leave the codebase.
package imports

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Symbol is one imported name. Alias is "" when the import is not renamed.
type Symbol struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// LocalName is the name the symbol is bound to in the importing file.
func (s Symbol) LocalName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Import is one import statement: where it imports from and what it binds.
type Import struct {
	Source  string   `json:"source"`
	Symbols []Symbol `json:"imported_symbols"`
	Line    int      `json:"line"`
}

// Extract parses source and returns its imports.
func Extract(cache *grammar.Cache, language string, source []byte) ([]Import, error) {
	queries, err := cache.Queries(language)
	if err != nil {
		return nil, err
	}
	tree, err := cache.Parse(language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return FromTree(queries, language, tree.RootNode(), source), nil
}

// FromTree returns the imports captured by the language's imports query, in
// source order. A language without an imports query has none.
func FromTree(queries *grammar.QuerySet, language string, root *sitter.Node, source []byte) []Import {
	q := queries.Get(grammar.QueryImports)
	spec := lang.ForName(language)
	if q == nil || spec == nil {
		return nil
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var stmts []*sitter.Node
	seen := make(map[uint]bool)
	matches := cursor.Matches(q, root, source)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			node := c.Node
			if seen[node.StartByte()] {
				continue
			}
			seen[node.StartByte()] = true
			stmts = append(stmts, &node)
		}
	}
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].StartByte() < stmts[j].StartByte() })

	r := reader{source: source}
	var out []Import
	for _, stmt := range stmts {
		switch stmt.Kind() {
		case "import_statement":
			if spec.Name == lang.Python {
				out = append(out, r.pythonImport(stmt)...)
			} else if imp, ok := r.moduleImport(stmt); ok {
				out = append(out, imp)
			}
		case "import_from_statement":
			if imp, ok := r.pythonFromImport(stmt); ok {
				out = append(out, imp)
			}
		}
	}
	return out
}

type reader struct {
	source []byte
}

func (r reader) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(r.source[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

// symbol reads a dotted_name or aliased_import.
func (r reader) symbol(n *sitter.Node) (Symbol, bool) {
	switch n.Kind() {
	case "dotted_name", "identifier":
		return Symbol{Name: r.text(n)}, true
	case "aliased_import":
		return Symbol{
			Name:  r.text(n.ChildByFieldName("name")),
			Alias: r.text(n.ChildByFieldName("alias")),
		}, true
	}
	return Symbol{}, false
}

// pythonImport handles `import a.b, c as d`. Each module becomes its own
// import whose source is the module itself.
func (r reader) pythonImport(stmt *sitter.Node) []Import {
	var out []Import
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		sym, ok := r.symbol(stmt.NamedChild(i))
		if !ok || sym.Name == "" {
			continue
		}
		out = append(out, Import{Source: sym.Name, Symbols: []Symbol{sym}, Line: line(stmt)})
	}
	return out
}

// pythonFromImport handles `from x import a, b as c` including relative
// modules (`from ..x import y`) and wildcards.
func (r reader) pythonFromImport(stmt *sitter.Node) (Import, bool) {
	module := stmt.ChildByFieldName("module_name")
	if module == nil {
		return Import{}, false
	}
	imp := Import{Source: r.text(module), Line: line(stmt)}
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		c := stmt.NamedChild(i)
		if c.StartByte() == module.StartByte() && c.EndByte() == module.EndByte() {
			continue
		}
		if c.Kind() == "wildcard_import" {
			imp.Symbols = append(imp.Symbols, Symbol{Name: "*"})
			continue
		}
		if sym, ok := r.symbol(c); ok {
			imp.Symbols = append(imp.Symbols, sym)
		}
	}
	return imp, imp.Source != ""
}

// moduleImport handles ES module imports: default, namespace and named
// specifiers. Side-effect imports (`import './x'`) bind nothing and are kept
// with an empty symbol list.
func (r reader) moduleImport(stmt *sitter.Node) (Import, bool) {
	src := stmt.ChildByFieldName("source")
	if src == nil {
		return Import{}, false
	}
	imp := Import{Source: strings.Trim(r.text(src), "\"'`"), Line: line(stmt)}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		clause := stmt.NamedChild(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			part := clause.NamedChild(j)
			switch part.Kind() {
			case "identifier":
				imp.Symbols = append(imp.Symbols, Symbol{Name: r.text(part)})
			case "namespace_import":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					if id := part.NamedChild(k); id.Kind() == "identifier" {
						imp.Symbols = append(imp.Symbols, Symbol{Name: "*", Alias: r.text(id)})
					}
				}
			case "named_imports":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					spec := part.NamedChild(k)
					if spec.Kind() != "import_specifier" {
						continue
					}
					imp.Symbols = append(imp.Symbols, Symbol{
						Name:  strings.Trim(r.text(spec.ChildByFieldName("name")), "\"'"),
						Alias: r.text(spec.ChildByFieldName("alias")),
					})
				}
			}
		}
	}
	return imp, imp.Source != ""
}

// String renders an import for logs.
func (i Import) String() string {
	names := make([]string, 0, len(i.Symbols))
	for _, s := range i.Symbols {
		if s.Alias != "" {
			names = append(names, s.Name+" as "+s.Alias)
		} else {
			names = append(names, s.Name)
		}
	}
	return fmt.Sprintf("%s{%s}", i.Source, strings.Join(names, ", "))
}
