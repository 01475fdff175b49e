package signature

import (
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// callSite builds a CallSite from a call node. Callee and qualifier come from
// the tree structure only; no text patterns are applied to call expressions.
func (fx *fileExtraction) callSite(call *sitter.Node) CallSite {
	site := CallSite{
		Text:      nodeText(call, fx.source),
		Line:      line(call.StartPosition()),
		StartByte: call.StartByte(),
		EndByte:   call.EndByte(),
	}

	target := call.ChildByFieldName("function")
	if target == nil {
		target = call.ChildByFieldName("constructor")
	}
	if target == nil {
		return site
	}

	switch target.Kind() {
	case "identifier":
		site.Callee = nodeText(target, fx.source)
	case "attribute":
		site.Callee = nodeText(target.ChildByFieldName("attribute"), fx.source)
		site.Qualifier = fx.receiver(target.ChildByFieldName("object"))
	case "member_expression":
		site.Callee = nodeText(target.ChildByFieldName("property"), fx.source)
		site.Qualifier = fx.receiver(target.ChildByFieldName("object"))
	default:
		site.Callee = compact(nodeText(target, fx.source))
	}
	return site
}

// receiver returns the statically known qualifier of a member access: a
// dotted chain of names, or the class of an inline constructor call such as
// B().run() / new B().run(). The return value of any other call has no
// known qualifier.
func (fx *fileExtraction) receiver(obj *sitter.Node) string {
	if obj == nil {
		return ""
	}
	switch obj.Kind() {
	case "call":
		fn := obj.ChildByFieldName("function")
		if fn != nil && fn.Kind() == "identifier" {
			if name := nodeText(fn, fx.source); isCapitalized(name) {
				return name
			}
		}
		return ""
	case "new_expression":
		ctor := obj.ChildByFieldName("constructor")
		if ctor != nil && ctor.Kind() == "identifier" {
			return nodeText(ctor, fx.source)
		}
		return ""
	case "parenthesized_expression":
		if obj.NamedChildCount() == 1 {
			return fx.receiver(obj.NamedChild(0))
		}
		return ""
	}
	return fx.dottedName(obj)
}

// dottedName renders identifier chains (a, a.b, this.a.b) and returns "" for
// anything else.
func (fx *fileExtraction) dottedName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier", "this", "super":
		return nodeText(n, fx.source)
	case "attribute":
		head := fx.dottedName(n.ChildByFieldName("object"))
		tail := n.ChildByFieldName("attribute")
		if head == "" || tail == nil {
			return ""
		}
		return head + "." + nodeText(tail, fx.source)
	case "member_expression":
		head := fx.dottedName(n.ChildByFieldName("object"))
		tail := n.ChildByFieldName("property")
		if head == "" || tail == nil || tail.Kind() != "property_identifier" {
			return ""
		}
		return head + "." + nodeText(tail, fx.source)
	}
	return ""
}

// directCalls captures every call under fn, then drops the ones that start
// inside an immediate nested function. Those are attributed to the nested
// function when it is processed.
func (fx *fileExtraction) directCalls(fn *sitter.Node, nested []*sitter.Node) []CallSite {
	calls := []CallSite{}
	for _, c := range fx.capture(queryFunctionCalls, fn, "call") {
		if withinAny(c.StartByte(), nested) {
			continue
		}
		calls = append(calls, fx.callSite(c))
	}
	return calls
}

func isCapitalized(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}
