package signature

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// scope answers every "where does this node live" question by walking the
// ancestor chain. Nothing is tracked while descending, so there is no state
// to reset on the way back up.
type scope struct {
	spec *lang.Spec
}

// sameNode compares two nodes of the same tree by kind and byte range.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// isFunctionScope reports whether n is a function or method the extractor reports.
// Anonymous functions only count when bound by a declarator, and member-only
// kinds (JS method_definition) only count directly inside a class body.
func (s *scope) isFunctionScope(n *sitter.Node) bool {
	kind := n.Kind()
	if !s.spec.IsFunction(kind) {
		return false
	}
	if s.spec.IsBoundFunction(kind) {
		p := n.Parent()
		return p != nil && p.Kind() == "variable_declarator"
	}
	if s.spec.IsMemberOnly(kind) {
		p := n.Parent()
		return p != nil && s.spec.IsClassBody(p.Kind())
	}
	return true
}

func (s *scope) isClassScope(n *sitter.Node) bool {
	return s.spec.IsClass(n.Kind())
}

// atModuleLevel reports whether no container lies between n and the root.
func (s *scope) atModuleLevel(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if s.spec.IsContainer(p.Kind()) {
			return false
		}
	}
	return true
}

// nearestContainer returns the closest ancestor of n that opens a function or
// class body, or nil at module level.
func (s *scope) nearestContainer(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if s.spec.IsContainer(p.Kind()) {
			return p
		}
	}
	return nil
}

// isImmediateChild walks up from n through transparent blocks. It accepts when
// the walk lands on parent and rejects when any other container comes first:
// such a node belongs to a deeper scope and is picked up when that scope is
// processed.
func (s *scope) isImmediateChild(n, parent *sitter.Node) bool {
	if sameNode(n, parent) {
		return false
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if sameNode(p, parent) {
			return true
		}
		if s.spec.IsContainer(p.Kind()) {
			return false
		}
	}
	return false
}

// isMethodOf reports whether m is a method declared directly in class cls.
func (s *scope) isMethodOf(m, cls *sitter.Node) bool {
	return s.spec.IsMethod(m.Kind()) && s.isFunctionScope(m) && s.isImmediateChild(m, cls)
}

// withinAny reports whether offset falls inside one of the nodes' byte ranges.
func withinAny(offset uint, nodes []*sitter.Node) bool {
	for _, n := range nodes {
		if offset >= n.StartByte() && offset < n.EndByte() {
			return true
		}
	}
	return false
}
