// Package binding derives the per-file lookup tables used by call resolution:
// which local names hold instances of which class, and where imported
// symbols come from.
package binding

import (
	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/lang"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

// ImportEntry is the qualified origin of one imported name.
type ImportEntry struct {
	Path      string `json:"path"`
	ClassLike bool   `json:"class_like"`
}

// Bindings are the two lookup tables of one file. They are built fresh per
// file and never merged.
type Bindings struct {
	// Instantiations maps a bound name (h, self.repo, this.client) to the
	// class it was constructed from.
	Instantiations map[string]string `json:"instantiations"`
	// Imports maps a local import name to its origin. Aliases map to the
	// original symbol's path.
	Imports map[string]ImportEntry `json:"imports"`
}

// Build computes both tables from a signature and its resolved import list.
// It is pure: no I/O and no shared state.
func Build(sig *signature.StructuralSignature, imps []imports.Import) *Bindings {
	return &Bindings{
		Instantiations: Instantiations(sig),
		Imports:        ImportMap(imps),
	}
}

// ImportMap builds the import table. Capitalized symbols are class-like and
// map to "<source>.<symbol>"; anything else maps to its source.
func ImportMap(imps []imports.Import) map[string]ImportEntry {
	out := make(map[string]ImportEntry)
	for _, imp := range imps {
		for _, sym := range imp.Symbols {
			if sym.Name == "*" && sym.Alias == "" {
				continue
			}
			key := sym.LocalName()
			if _, ok := out[key]; ok {
				continue
			}
			entry := ImportEntry{Path: imp.Source}
			if isClassName(sym.Name) {
				entry = ImportEntry{Path: imp.Source + "." + sym.Name, ClassLike: true}
			}
			out[key] = entry
		}
	}
	return out
}

// Instantiations scans assignment signatures for `<target> = <ClassName>(...)`.
// Sources are read in priority order and the first binding of a name wins:
// globals, class vars, locals of constructor-like methods, all other locals.
func Instantiations(sig *signature.StructuralSignature) map[string]string {
	out := make(map[string]string)
	if sig == nil {
		return out
	}
	spec := lang.ForName(sig.Language)

	record := func(vars []signature.VariableInfo, receivers []string) {
		for _, v := range vars {
			for _, b := range parseAssignment(v.Signature) {
				keys := []string{b.target}
				if !isQualified(b.target) {
					for _, r := range receivers {
						keys = append(keys, r+"."+b.target)
					}
				}
				for _, k := range keys {
					if _, ok := out[k]; !ok {
						out[k] = b.class
					}
				}
			}
		}
	}

	var receivers []string
	isConstructor := func(string) bool { return false }
	if spec != nil {
		receivers = spec.SelfReceivers
		isConstructor = spec.IsConstructor
	}

	record(sig.GlobalVariables, nil)
	sig.WalkClasses(func(c *signature.ClassInfo) {
		record(c.Vars, receivers)
	})
	sig.WalkFunctions(func(f *signature.FunctionInfo, owner *signature.ClassInfo) {
		if owner != nil && isConstructor(f.Name) {
			record(f.LocalVariables, nil)
		}
	})
	sig.WalkFunctions(func(f *signature.FunctionInfo, owner *signature.ClassInfo) {
		if owner == nil || !isConstructor(f.Name) {
			record(f.LocalVariables, nil)
		}
	})
	return out
}
