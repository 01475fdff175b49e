package signature

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// assignment is one variable-introducing statement and the names it binds.
type assignment struct {
	stmt  *sitter.Node
	names []string
}

// varSet collects first assignments in source order.
type varSet struct {
	seen map[string]bool
	vars []VariableInfo
}

func newVarSet() *varSet {
	return &varSet{seen: make(map[string]bool), vars: []VariableInfo{}}
}

// add records the statement if it binds at least one name not seen before.
// Names already bound keep their first value.
func (vs *varSet) add(fx *fileExtraction, a assignment) {
	var fresh []string
	for _, n := range a.names {
		if n != "" && !vs.seen[n] {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return
	}
	for _, n := range a.names {
		vs.seen[n] = true
	}

	outer := fx.outer(a.stmt)
	vs.vars = append(vs.vars, VariableInfo{
		Name:      strings.Join(fresh, ", "),
		StartLine: line(outer.StartPosition()),
		EndLine:   line(outer.EndPosition()),
		Signature: fx.variableText(outer),
	})
}

// globals returns module-level first assignments. A statement qualifies only
// when no function or class lies on its ancestor chain.
func (fx *fileExtraction) globals(root *sitter.Node) []VariableInfo {
	vs := newVarSet()
	for _, stmt := range fx.capture(queryGlobals, root, "variable") {
		if !fx.scope.atModuleLevel(stmt) {
			continue
		}
		vs.add(fx, assignment{stmt: stmt, names: fx.plainTargets(stmt)})
	}
	return vs.vars
}

// classVars returns class-level assignments plus self/cls/this attribute
// assignments made directly in one of the class's own methods. Locals of a
// method and assignments inside functions nested in a method never qualify.
func (fx *fileExtraction) classVars(cls *sitter.Node) []VariableInfo {
	vs := newVarSet()
	for _, stmt := range fx.capture(queryClassVars, cls, "variable") {
		owner := fx.scope.nearestContainer(stmt)
		switch {
		case owner == nil:
			continue
		case sameNode(owner, cls):
			vs.add(fx, assignment{stmt: stmt, names: fx.memberTargets(stmt)})
		case fx.scope.isMethodOf(owner, cls):
			vs.add(fx, assignment{stmt: stmt, names: fx.selfTargets(stmt)})
		}
	}
	return vs.vars
}

// locals returns plain local variables assigned directly in fn.
func (fx *fileExtraction) locals(fn *sitter.Node) []VariableInfo {
	vs := newVarSet()
	for _, stmt := range fx.capture(queryLocalVars, fn, "variable") {
		if owner := fx.scope.nearestContainer(stmt); !sameNode(owner, fn) {
			continue
		}
		vs.add(fx, assignment{stmt: stmt, names: fx.plainTargets(stmt)})
	}
	if len(vs.vars) == 0 {
		return nil
	}
	return vs.vars
}

// variableText is the statement source, whitespace-normalized when the value
// is a dictionary or object literal.
func (fx *fileExtraction) variableText(stmt *sitter.Node) string {
	text := nodeText(stmt, fx.source)
	for _, v := range fx.assignedValues(stmt) {
		if k := v.Kind(); k == "dictionary" || k == "object" {
			return compact(text)
		}
	}
	return text
}

// assignedValues returns the right-hand sides of every assignment in stmt.
func (fx *fileExtraction) assignedValues(stmt *sitter.Node) []*sitter.Node {
	var values []*sitter.Node
	for _, a := range fx.assignmentsIn(stmt) {
		if v := a.ChildByFieldName("right"); v != nil {
			values = append(values, v)
		}
		if v := a.ChildByFieldName("value"); v != nil {
			values = append(values, v)
		}
	}
	return values
}

// assignmentsIn unwraps a statement into its assignment-like nodes:
// Python assignment chains (a = b = 1), JS declarators and assignment
// expressions, class field definitions.
func (fx *fileExtraction) assignmentsIn(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for stmt != nil && fx.spec.IsWrapper(stmt.Kind()) {
		stmt = stmt.ChildByFieldName("declaration")
	}
	if stmt == nil {
		return nil
	}
	switch stmt.Kind() {
	case "expression_statement":
		for i := uint(0); i < stmt.NamedChildCount(); i++ {
			c := stmt.NamedChild(i)
			for c != nil && (c.Kind() == "assignment" || c.Kind() == "assignment_expression") {
				out = append(out, c)
				c = c.ChildByFieldName("right")
			}
		}
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < stmt.NamedChildCount(); i++ {
			if c := stmt.NamedChild(i); c != nil && c.Kind() == "variable_declarator" {
				out = append(out, c)
			}
		}
	case "field_definition", "public_field_definition":
		out = append(out, stmt)
	}
	return out
}

// plainTargets returns the unqualified identifiers a statement binds. JS
// declarators whose value is a function are skipped; those are functions.
func (fx *fileExtraction) plainTargets(stmt *sitter.Node) []string {
	var names []string
	for _, a := range fx.assignmentsIn(stmt) {
		switch a.Kind() {
		case "variable_declarator":
			if v := a.ChildByFieldName("value"); v != nil && fx.spec.IsBoundFunction(v.Kind()) {
				continue
			}
			names = fx.patternNames(a.ChildByFieldName("name"), names)
		case "assignment", "assignment_expression":
			names = fx.patternNames(a.ChildByFieldName("left"), names)
		}
	}
	return names
}

// memberTargets returns the names bound by a class-level statement.
func (fx *fileExtraction) memberTargets(stmt *sitter.Node) []string {
	switch stmt.Kind() {
	case "field_definition":
		return []string{nodeText(stmt.ChildByFieldName("property"), fx.source)}
	case "public_field_definition":
		return []string{nodeText(stmt.ChildByFieldName("name"), fx.source)}
	}
	return fx.plainTargets(stmt)
}

// selfTargets returns the attribute names of self.x / cls.x / this.x targets.
func (fx *fileExtraction) selfTargets(stmt *sitter.Node) []string {
	var names []string
	for _, a := range fx.assignmentsIn(stmt) {
		left := a.ChildByFieldName("left")
		if left == nil {
			continue
		}
		for _, t := range fx.targetList(left) {
			if attr := fx.selfAttribute(t); attr != "" {
				names = append(names, attr)
			}
		}
	}
	return names
}

// targetList flattens tuple and list targets.
func (fx *fileExtraction) targetList(n *sitter.Node) []*sitter.Node {
	switch n.Kind() {
	case "pattern_list", "tuple_pattern", "list_pattern":
		var out []*sitter.Node
		for i := uint(0); i < n.NamedChildCount(); i++ {
			out = append(out, fx.targetList(n.NamedChild(i))...)
		}
		return out
	}
	return []*sitter.Node{n}
}

// selfAttribute returns "x" for self.x, cls.x or this.x, otherwise "".
func (fx *fileExtraction) selfAttribute(n *sitter.Node) string {
	var obj, attr *sitter.Node
	switch n.Kind() {
	case "attribute":
		obj, attr = n.ChildByFieldName("object"), n.ChildByFieldName("attribute")
	case "member_expression":
		obj, attr = n.ChildByFieldName("object"), n.ChildByFieldName("property")
	default:
		return ""
	}
	if obj == nil || attr == nil || !fx.spec.IsSelfReceiver(nodeText(obj, fx.source)) {
		return ""
	}
	return nodeText(attr, fx.source)
}

// patternNames appends every identifier bound by a target pattern. Attribute
// and subscript targets bind no plain name.
func (fx *fileExtraction) patternNames(n *sitter.Node, names []string) []string {
	if n == nil {
		return names
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return append(names, nodeText(n, fx.source))
	case "pattern_list", "tuple_pattern", "list_pattern", "array_pattern",
		"object_pattern", "list_splat_pattern", "rest_pattern":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			names = fx.patternNames(n.NamedChild(i), names)
		}
	case "pair_pattern":
		names = fx.patternNames(n.ChildByFieldName("value"), names)
	case "assignment_pattern", "object_assignment_pattern":
		names = fx.patternNames(n.ChildByFieldName("left"), names)
	}
	return names
}
