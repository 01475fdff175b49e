package signature

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/lang"
)

// ErrUndecodable indicates binary or non-UTF-8 content that cannot be treated as source text.
var ErrUndecodable = errors.New("undecodable source")

const (
	queryModuleDocstring = grammar.QueryModuleDocstring
	queryGlobals         = grammar.QueryGlobals
	queryModuleFunctions = grammar.QueryModuleFunctions
	queryModuleClasses   = grammar.QueryModuleClasses
	queryClassVars       = grammar.QueryClassVars
	queryClassMethods    = grammar.QueryClassMethods
	queryNestedFunctions = grammar.QueryNestedFunctions
	queryNestedClasses   = grammar.QueryNestedClasses
	queryFunctionCalls   = grammar.QueryFunctionCalls
	queryLocalVars       = grammar.QueryLocalVars
)

// Extractor produces structural signatures. It is safe for concurrent use:
// every Extract call owns its tree, cursor and result.
type Extractor struct {
	cache *grammar.Cache
}

// NewExtractor creates an extractor backed by a shared grammar cache.
func NewExtractor(cache *grammar.Cache) *Extractor {
	return &Extractor{cache: cache}
}

// Extract parses source and builds its structural signature. Syntax errors do
// not fail extraction; the partial tree is walked and HasErrors is set.
func (e *Extractor) Extract(language string, source []byte) (*StructuralSignature, error) {
	if lang.ForName(language) == nil {
		return nil, fmt.Errorf("%w: %s", grammar.ErrUnsupportedLanguage, language)
	}
	if Undecodable(source) {
		return nil, ErrUndecodable
	}

	tree, err := e.cache.Parse(language, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return e.ExtractTree(language, tree.RootNode(), source)
}

// ExtractTree builds the signature from an already parsed tree, so callers
// that need the tree for other passes parse only once. source must be the
// bytes the tree was parsed from.
func (e *Extractor) ExtractTree(language string, root *sitter.Node, source []byte) (*StructuralSignature, error) {
	spec := lang.ForName(language)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", grammar.ErrUnsupportedLanguage, language)
	}
	queries, err := e.cache.Queries(language)
	if err != nil {
		return nil, err
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	fx := &fileExtraction{
		spec:    spec,
		scope:   scope{spec: spec},
		queries: queries,
		source:  source,
		cursor:  cursor,
	}
	return fx.extract(root), nil
}

// fileExtraction is the per-call state of one Extract.
type fileExtraction struct {
	spec    *lang.Spec
	scope   scope
	queries *grammar.QuerySet
	source  []byte
	cursor  *sitter.QueryCursor
}

func (fx *fileExtraction) extract(root *sitter.Node) *StructuralSignature {
	sig := &StructuralSignature{
		Language:        fx.spec.Name,
		ModuleDocstring: fx.moduleDocstring(root),
		GlobalVariables: fx.globals(root),
		Functions:       []FunctionInfo{},
		Classes:         []ClassInfo{},
		HasErrors:       root.HasError(),
	}
	for _, n := range fx.functionNodes(queryModuleFunctions, root) {
		sig.Functions = append(sig.Functions, fx.function(n))
	}
	for _, n := range fx.classNodes(queryModuleClasses, root) {
		sig.Classes = append(sig.Classes, fx.class(n))
	}
	return sig
}

// capture runs query over the subtree of scopeNode and returns the nodes bound
// to the named capture, deduplicated and in source order. A query the
// language does not define yields nothing.
func (fx *fileExtraction) capture(name grammar.QueryName, scopeNode *sitter.Node, captureName string) []*sitter.Node {
	q := fx.queries.Get(name)
	if q == nil {
		return nil
	}

	index := -1
	for i, n := range q.CaptureNames() {
		if n == captureName {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}

	type key struct {
		start, end uint
		kind       string
	}
	seen := make(map[key]bool)
	var nodes []*sitter.Node

	matches := fx.cursor.Matches(q, scopeNode, fx.source)
	for m := matches.Next(); m != nil; m = matches.Next() {
		for _, c := range m.Captures {
			if int(c.Index) != index {
				continue
			}
			node := c.Node
			k := key{node.StartByte(), node.EndByte(), node.Kind()}
			if seen[k] {
				continue
			}
			seen[k] = true
			nodes = append(nodes, &node)
		}
	}

	// outer nodes first when two start together: a.b().c() before a.b()
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].StartByte() != nodes[j].StartByte() {
			return nodes[i].StartByte() < nodes[j].StartByte()
		}
		return nodes[i].EndByte() > nodes[j].EndByte()
	})
	return nodes
}

// functionNodes returns the functions declared directly in scopeNode.
func (fx *fileExtraction) functionNodes(name grammar.QueryName, scopeNode *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, n := range fx.capture(name, scopeNode, "function") {
		if fx.scope.isFunctionScope(n) && fx.scope.isImmediateChild(n, scopeNode) {
			out = append(out, n)
		}
	}
	return out
}

// classNodes returns the classes declared directly in scopeNode.
func (fx *fileExtraction) classNodes(name grammar.QueryName, scopeNode *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, n := range fx.capture(name, scopeNode, "class") {
		if fx.scope.isClassScope(n) && fx.scope.isImmediateChild(n, scopeNode) {
			out = append(out, n)
		}
	}
	return out
}

func (fx *fileExtraction) function(n *sitter.Node) FunctionInfo {
	decl := fx.declaration(n)
	outer := fx.outer(decl)

	info := FunctionInfo{
		Name:            nodeText(decl.ChildByFieldName("name"), fx.source),
		StartLine:       line(outer.StartPosition()),
		EndLine:         line(outer.EndPosition()),
		Signature:       fx.header(outer, decl, n),
		Docstring:       fx.docstring(n, outer),
		NestedFunctions: []FunctionInfo{},
	}

	nested := fx.functionNodes(queryNestedFunctions, n)
	for _, c := range nested {
		info.NestedFunctions = append(info.NestedFunctions, fx.function(c))
	}
	info.FunctionCalls = fx.directCalls(n, nested)
	info.LocalVariables = fx.locals(n)
	return info
}

func (fx *fileExtraction) class(n *sitter.Node) ClassInfo {
	outer := fx.outer(n)

	info := ClassInfo{
		Name:          nodeText(n.ChildByFieldName("name"), fx.source),
		StartLine:     line(outer.StartPosition()),
		EndLine:       line(outer.EndPosition()),
		Signature:     fx.header(outer, n, n),
		Docstring:     fx.docstring(n, outer),
		Vars:          fx.classVars(n),
		Methods:       []FunctionInfo{},
		NestedClasses: []ClassInfo{},
	}

	for _, m := range fx.functionNodes(queryClassMethods, n) {
		if fx.spec.IsMethod(m.Kind()) {
			info.Methods = append(info.Methods, fx.function(m))
		}
	}
	for _, c := range fx.classNodes(queryNestedClasses, n) {
		info.NestedClasses = append(info.NestedClasses, fx.class(c))
	}
	return info
}

// declaration returns the node that names a function: the variable
// declarator for bound anonymous functions, the function itself otherwise.
func (fx *fileExtraction) declaration(n *sitter.Node) *sitter.Node {
	if fx.spec.IsBoundFunction(n.Kind()) {
		if p := n.Parent(); p != nil && p.Kind() == "variable_declarator" {
			return p
		}
	}
	return n
}

// outer widens a declaration to the statement that carries it, including
// decorators and export wrappers, so signatures keep those lines.
func (fx *fileExtraction) outer(decl *sitter.Node) *sitter.Node {
	out := decl
	if decl.Kind() == "variable_declarator" {
		if p := decl.Parent(); p != nil {
			out = p
		}
	}
	for p := out.Parent(); p != nil && fx.spec.IsWrapper(p.Kind()); p = p.Parent() {
		out = p
	}
	return out
}

// header returns the verbatim source from the start of outer through the end
// of the line that closes the declaration header (parameters, return type,
// inheritance list).
func (fx *fileExtraction) header(outer, decl, n *sitter.Node) string {
	end := n.StartByte()
	grow := func(c *sitter.Node) {
		if c != nil && c.EndByte() > end {
			end = c.EndByte()
		}
	}
	for _, node := range []*sitter.Node{decl, n} {
		for _, field := range fx.spec.HeaderFields {
			grow(node.ChildByFieldName(field))
		}
		if len(fx.spec.HeaderKinds) > 0 {
			for i := uint(0); i < node.ChildCount(); i++ {
				if c := node.Child(i); c != nil && fx.spec.IsHeaderKind(c.Kind()) {
					grow(c)
				}
			}
		}
	}
	if end == 0 || end < outer.StartByte() {
		end = outer.StartByte()
	}
	// the header line ends where the statement ends if that comes first
	stop := lineEnd(fx.source, end)
	if stop > outer.EndByte() {
		stop = outer.EndByte()
	}
	return strings.TrimRight(slice(fx.source, outer.StartByte(), stop), " \t\r")
}

// docstring returns the cleaned documentation of a function or class.
func (fx *fileExtraction) docstring(n, outer *sitter.Node) string {
	switch fx.spec.Docstrings {
	case lang.DocFirstStatement:
		body := n.ChildByFieldName("body")
		if body == nil {
			return ""
		}
		return fx.leadingString(body)
	case lang.DocLeadingComment:
		prev := outer.PrevNamedSibling()
		if prev == nil || prev.Kind() != "comment" {
			return ""
		}
		if line(prev.EndPosition())+1 < line(outer.StartPosition()) {
			return ""
		}
		text := nodeText(prev, fx.source)
		if !strings.HasPrefix(text, "/**") {
			return ""
		}
		return cleanCommentDocstring(text)
	}
	return ""
}

// leadingString returns the string literal that is the first statement of
// block, cleaned, or "" when the first statement is anything else.
func (fx *fileExtraction) leadingString(block *sitter.Node) string {
	for i := uint(0); i < block.NamedChildCount(); i++ {
		stmt := block.NamedChild(i)
		if stmt == nil || stmt.Kind() == "comment" {
			continue
		}
		if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return ""
		}
		str := stmt.NamedChild(0)
		if str == nil || str.Kind() != "string" {
			return ""
		}
		return cleanStringDocstring(nodeText(str, fx.source))
	}
	return ""
}

// moduleDocstring applies the language's docstring rule at file level.
func (fx *fileExtraction) moduleDocstring(root *sitter.Node) string {
	candidates := fx.capture(queryModuleDocstring, root, "docstring")
	if len(candidates) == 0 {
		return ""
	}

	switch fx.spec.Docstrings {
	case lang.DocFirstStatement:
		return fx.leadingString(root)
	case lang.DocLeadingComment:
		first := root.NamedChild(0)
		if first == nil || !sameNode(first, candidates[0]) {
			return ""
		}
		text := nodeText(first, fx.source)
		if !strings.HasPrefix(text, "/**") {
			return ""
		}
		// a comment glued to the first declaration documents that declaration
		if next := first.NextNamedSibling(); next != nil && line(next.StartPosition()) <= line(first.EndPosition())+1 {
			return ""
		}
		return cleanCommentDocstring(text)
	}
	return ""
}
