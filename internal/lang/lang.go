package lang

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language names as used by the grammar cache and in stored signatures.
const (
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
	TSX        = "tsx"
)

// DocstringStyle selects where a declaration's documentation lives.
type DocstringStyle int

const (
	// DocFirstStatement reads a string literal that is the first statement of the body (PEP 257).
	DocFirstStatement DocstringStyle = iota
	// DocLeadingComment reads a /** ... */ block comment directly above the declaration.
	DocLeadingComment
)

// Spec defines the tree-sitter node kinds the extractor needs for a language.
type Spec struct {
	Name           string
	Extensions     []string
	QueryDir       string // directory under the embedded queries FS
	FunctionKinds  []string
	ClassKinds     []string
	ContainerKinds []string // every kind that opens a function or class body, incl. lambdas
	MethodKinds    []string
	WrapperKinds   []string // decorated_definition, export_statement
	// BoundFunctionKinds are anonymous function kinds that only count as
	// declarations when bound by a variable declarator (const f = () => {}).
	BoundFunctionKinds []string
	// MemberOnlyKinds only count as declarations directly inside a class body
	// (object-literal methods are not class members).
	MemberOnlyKinds  []string
	ClassBodyKinds   []string
	SelfReceivers    []string
	ConstructorNames []string
	Docstrings       DocstringStyle
	// HeaderFields are the field names whose end closes a declaration header.
	HeaderFields []string
	// HeaderKinds are unnamed-field children that also belong to the header (class_heritage).
	HeaderKinds []string
}

var registry = map[string]*Spec{}

// Register adds a language spec. It is called from init functions.
func Register(s *Spec) {
	registry[s.Name] = s
}

// ForName returns the spec for a language name, or nil.
func ForName(name string) *Spec {
	return registry[name]
}

// ForFile returns the spec matching the file's extension, or nil.
func ForFile(path string) *Spec {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range registry {
		for _, e := range s.Extensions {
			if e == ext {
				return s
			}
		}
	}
	return nil
}

// Names returns all registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsFunction reports whether kind is a declared function kind.
func (s *Spec) IsFunction(kind string) bool { return contains(s.FunctionKinds, kind) }

// IsClass reports whether kind is a class kind.
func (s *Spec) IsClass(kind string) bool { return contains(s.ClassKinds, kind) }

// IsContainer reports whether kind opens a function or class scope.
func (s *Spec) IsContainer(kind string) bool { return contains(s.ContainerKinds, kind) }

// IsMethod reports whether kind is a method kind.
func (s *Spec) IsMethod(kind string) bool { return contains(s.MethodKinds, kind) }

// IsWrapper reports whether kind wraps a declaration (decorators, export).
func (s *Spec) IsWrapper(kind string) bool { return contains(s.WrapperKinds, kind) }

// IsBoundFunction reports whether kind is an anonymous function kind.
func (s *Spec) IsBoundFunction(kind string) bool { return contains(s.BoundFunctionKinds, kind) }

// IsMemberOnly reports whether kind is only a declaration inside a class body.
func (s *Spec) IsMemberOnly(kind string) bool { return contains(s.MemberOnlyKinds, kind) }

// IsClassBody reports whether kind is a class body kind.
func (s *Spec) IsClassBody(kind string) bool { return contains(s.ClassBodyKinds, kind) }

// IsHeaderKind reports whether an unnamed child of this kind belongs to a declaration header.
func (s *Spec) IsHeaderKind(kind string) bool { return contains(s.HeaderKinds, kind) }

// IsSelfReceiver reports whether name is an implicit self reference (self, cls, this).
func (s *Spec) IsSelfReceiver(name string) bool { return contains(s.SelfReceivers, name) }

// IsConstructor reports whether a method name is constructor-like.
func (s *Spec) IsConstructor(name string) bool { return contains(s.ConstructorNames, name) }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
