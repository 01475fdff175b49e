package imports

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Modules is the set of importable module names inside one codebase. Python
// files register dotted names (pkg.mod, plus every parent package), script
// files register slash paths without extension (src/util, and src for
// src/index.js).
type Modules struct {
	dotted map[string]bool
	paths  map[string]bool
}

// NewModules builds the set from file paths relative to the codebase root.
func NewModules(relPaths ...string) *Modules {
	m := &Modules{dotted: make(map[string]bool), paths: make(map[string]bool)}
	for _, p := range relPaths {
		m.Add(p)
	}
	return m
}

// Add registers one file.
func (m *Modules) Add(relPath string) {
	spec := lang.ForFile(relPath)
	if spec == nil {
		return
	}
	p := filepath.ToSlash(relPath)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, path.Ext(p))

	if spec.Name == lang.Python {
		parts := strings.Split(p, "/")
		if parts[len(parts)-1] == "__init__" {
			parts = parts[:len(parts)-1]
		}
		m.addDotted(parts)
		if len(parts) > 1 && parts[0] == "src" {
			m.addDotted(parts[1:])
		}
		return
	}

	m.paths[p] = true
	if path.Base(p) == "index" {
		m.paths[path.Dir(p)] = true
	}
}

func (m *Modules) addDotted(parts []string) {
	for i := 1; i <= len(parts); i++ {
		m.dotted[strings.Join(parts[:i], ".")] = true
	}
}

// HasDotted reports whether a Python module or package is in the codebase.
func (m *Modules) HasDotted(name string) bool {
	return m != nil && m.dotted[name]
}

// HasPath reports whether a script module path is in the codebase.
func (m *Modules) HasPath(p string) bool {
	return m != nil && m.paths[p]
}

// Len returns the number of registered names.
func (m *Modules) Len() int {
	if m == nil {
		return 0
	}
	return len(m.dotted) + len(m.paths)
}

// Filter resolves relative sources against fromPath (relative to the codebase
// root) and keeps only imports whose module is in mods. A nil mods keeps
// every import, still resolving relative sources.
func Filter(fromPath string, language string, imps []Import, mods *Modules) []Import {
	from := filepath.ToSlash(fromPath)
	var out []Import
	for _, imp := range imps {
		if language == lang.Python {
			imp.Source = resolvePython(from, imp.Source)
			if mods != nil && !mods.HasDotted(imp.Source) {
				continue
			}
		} else {
			imp.Source = resolveScript(from, imp.Source)
			if mods != nil && !mods.HasPath(imp.Source) {
				continue
			}
		}
		out = append(out, imp)
	}
	return out
}

// resolvePython turns `.x` / `..x` into an absolute dotted name relative to
// the package containing from. Absolute names are returned unchanged.
func resolvePython(from, source string) string {
	level := len(source) - len(strings.TrimLeft(source, "."))
	if level == 0 {
		return source
	}
	rest := source[level:]

	dir := path.Dir(from)
	var pkg []string
	if dir != "." && dir != "/" {
		pkg = strings.Split(dir, "/")
	}
	up := level - 1
	if up > len(pkg) {
		up = len(pkg)
	}
	pkg = pkg[:len(pkg)-up]
	if rest != "" {
		pkg = append(pkg, rest)
	}
	return strings.Join(pkg, ".")
}

var scriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// resolveScript joins a ./ or ../ specifier onto the directory of from and
// drops a source-file extension. Bare specifiers are returned unchanged.
func resolveScript(from, source string) string {
	if !strings.HasPrefix(source, "./") && !strings.HasPrefix(source, "../") {
		return source
	}
	p := path.Join(path.Dir(from), source)
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}
