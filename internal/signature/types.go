package signature

// Classification is the outcome of call resolution. The zero value means the
// call is unresolved (external library or dynamic target).
type Classification string

const (
	Unresolved       Classification = ""
	SameFile         Classification = "SAME_FILE"
	InternalCodebase Classification = "INTERNAL_CODEBASE"
)

// StructuralSignature is the hierarchical, source-ordered model of one file.
// It holds no references to the syntax tree or the source buffer.
type StructuralSignature struct {
	Language        string         `json:"language"`
	ModuleDocstring string         `json:"module_docstring,omitempty"`
	GlobalVariables []VariableInfo `json:"global_variables"`
	Functions       []FunctionInfo `json:"functions"`
	Classes         []ClassInfo    `json:"classes"`
	// HasErrors is set when the parser had to recover from syntax errors and
	// the signature may be partial.
	HasErrors bool `json:"has_errors,omitempty"`
}

// VariableInfo is the first assignment to a name within its scope.
type VariableInfo struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Signature string `json:"signature"`
}

// FunctionInfo describes a function or method and its immediate lexical children.
type FunctionInfo struct {
	Name            string         `json:"name"`
	StartLine       int            `json:"start_line"`
	EndLine         int            `json:"end_line"`
	Signature       string         `json:"signature"`
	Docstring       string         `json:"docstring,omitempty"`
	FunctionCalls   []CallSite     `json:"function_calls"`
	NestedFunctions []FunctionInfo `json:"nested_functions"`
	// LocalVariables are plain locals assigned directly in this scope.
	LocalVariables []VariableInfo `json:"local_variables,omitempty"`
}

// ClassInfo describes a class and its immediate lexical children.
type ClassInfo struct {
	Name          string         `json:"name"`
	StartLine     int            `json:"start_line"`
	EndLine       int            `json:"end_line"`
	Signature     string         `json:"signature"`
	Docstring     string         `json:"docstring,omitempty"`
	Vars          []VariableInfo `json:"vars"`
	Methods       []FunctionInfo `json:"methods"`
	NestedClasses []ClassInfo    `json:"nested_classes"`
}

// CallSite is one call expression captured from a function body.
type CallSite struct {
	Text   string `json:"text"`
	Callee string `json:"callee"`
	// Qualifier is the receiver prefix ("config.database", "self"). Empty
	// means none. Resolution may rewrite or clear it.
	Qualifier string `json:"qualifier,omitempty"`
	Line      int    `json:"line"`
	StartByte uint   `json:"start_byte"`
	EndByte   uint   `json:"end_byte"`

	Classification Classification `json:"classification,omitempty"`
	Target         string         `json:"target,omitempty"`
}

// Resolved reports whether resolution classified the call.
func (c *CallSite) Resolved() bool {
	return c.Classification != Unresolved
}

// ClassNames returns the names of every class in the file, nested classes included.
func (s *StructuralSignature) ClassNames() map[string]bool {
	names := make(map[string]bool)
	var walk func([]ClassInfo)
	walk = func(classes []ClassInfo) {
		for i := range classes {
			names[classes[i].Name] = true
			walk(classes[i].NestedClasses)
		}
	}
	walk(s.Classes)
	return names
}

// WalkFunctions calls fn for every function and method in the file, depth first,
// with a pointer into the signature so callers can annotate in place.
// owner is the class that declares a method, or nil.
func (s *StructuralSignature) WalkFunctions(fn func(f *FunctionInfo, owner *ClassInfo)) {
	var walkFns func(fns []FunctionInfo, owner *ClassInfo)
	walkFns = func(fns []FunctionInfo, owner *ClassInfo) {
		for i := range fns {
			fn(&fns[i], owner)
			walkFns(fns[i].NestedFunctions, owner)
		}
	}
	var walkClasses func(classes []ClassInfo)
	walkClasses = func(classes []ClassInfo) {
		for i := range classes {
			walkFns(classes[i].Methods, &classes[i])
			walkClasses(classes[i].NestedClasses)
		}
	}
	walkFns(s.Functions, nil)
	walkClasses(s.Classes)
}

// WalkClasses calls fn for every class in the file, depth first.
func (s *StructuralSignature) WalkClasses(fn func(c *ClassInfo)) {
	var walk func(classes []ClassInfo)
	walk = func(classes []ClassInfo) {
		for i := range classes {
			fn(&classes[i])
			walk(classes[i].NestedClasses)
		}
	}
	walk(s.Classes)
}
