// Package resolve classifies call sites against a file's own classes and its
// binding tables. Resolution is heuristic and never fails: a call that
// matches no rule is left unresolved, which is the normal outcome for calls
// into third-party code.
package resolve

import (
	"github.com/mvp-joe/project-atlas/internal/binding"
	"github.com/mvp-joe/project-atlas/internal/lang"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

// Context is everything a rule may consult for one file.
type Context struct {
	// Classes holds every class declared in the file, nested classes included,
	// so calls from one class's methods resolve against any other class.
	Classes       map[string]bool
	Bindings      *binding.Bindings
	SelfReceivers []string
}

// NewContext builds the resolution context of one file.
func NewContext(sig *signature.StructuralSignature, b *binding.Bindings) *Context {
	ctx := &Context{
		Classes:  sig.ClassNames(),
		Bindings: b,
	}
	if ctx.Bindings == nil {
		ctx.Bindings = &binding.Bindings{}
	}
	if spec := lang.ForName(sig.Language); spec != nil {
		ctx.SelfReceivers = spec.SelfReceivers
	}
	return ctx
}

func (c *Context) isSelf(qualifier string) bool {
	for _, r := range c.SelfReceivers {
		if r == qualifier {
			return true
		}
	}
	return false
}

// outcome is what a matching rule decides: the classification and the
// rewritten qualifier.
type outcome struct {
	class     signature.Classification
	qualifier string
}

// rule is one step of the resolution table. match reports whether the rule
// applies to the call.
type rule struct {
	name  string
	match func(ctx *Context, call *signature.CallSite) (outcome, bool)
}

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{
		name: "self_reference",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			if call.Qualifier != "" && ctx.isSelf(call.Qualifier) {
				return outcome{signature.SameFile, ""}, true
			}
			return outcome{}, false
		},
	},
	{
		name: "same_file_class",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			if call.Qualifier != "" && ctx.Classes[call.Qualifier] {
				return outcome{signature.SameFile, call.Qualifier}, true
			}
			return outcome{}, false
		},
	},
	{
		name: "instance_of_same_file_class",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			cls, ok := ctx.Bindings.Instantiations[call.Qualifier]
			if call.Qualifier != "" && ok && ctx.Classes[cls] {
				return outcome{signature.SameFile, cls}, true
			}
			return outcome{}, false
		},
	},
	{
		name: "instance_of_imported_class",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			cls, ok := ctx.Bindings.Instantiations[call.Qualifier]
			if call.Qualifier == "" || !ok {
				return outcome{}, false
			}
			if imp, ok := ctx.Bindings.Imports[cls]; ok {
				return outcome{signature.InternalCodebase, imp.Path}, true
			}
			return outcome{}, false
		},
	},
	{
		name: "imported_function",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			if call.Qualifier != "" {
				return outcome{}, false
			}
			if imp, ok := ctx.Bindings.Imports[call.Callee]; ok && !imp.ClassLike {
				return outcome{signature.InternalCodebase, imp.Path}, true
			}
			return outcome{}, false
		},
	},
	{
		name: "imported_qualifier",
		match: func(ctx *Context, call *signature.CallSite) (outcome, bool) {
			if call.Qualifier == "" {
				return outcome{}, false
			}
			if imp, ok := ctx.Bindings.Imports[call.Qualifier]; ok {
				return outcome{signature.InternalCodebase, imp.Path}, true
			}
			return outcome{}, false
		},
	},
}

// Classify applies the rule table to one call site, annotating it in place.
// It returns the name of the matching rule, or "" when the call stays
// unresolved; an unresolved call keeps its qualifier and callee as captured.
func Classify(ctx *Context, call *signature.CallSite) string {
	for _, r := range rules {
		out, ok := r.match(ctx, call)
		if !ok {
			continue
		}
		call.Classification = out.class
		call.Qualifier = out.qualifier
		call.Target = call.Callee
		if out.qualifier != "" {
			call.Target = out.qualifier + "." + call.Callee
		}
		return r.name
	}
	call.Classification = signature.Unresolved
	call.Target = ""
	return ""
}

// Stats counts resolution outcomes for one file.
type Stats struct {
	Calls            int            `json:"calls"`
	SameFile         int            `json:"same_file"`
	InternalCodebase int            `json:"internal_codebase"`
	Unresolved       int            `json:"unresolved"`
	ByRule           map[string]int `json:"by_rule,omitempty"`
}

// Add folds other into s.
func (s *Stats) Add(other Stats) {
	s.Calls += other.Calls
	s.SameFile += other.SameFile
	s.InternalCodebase += other.InternalCodebase
	s.Unresolved += other.Unresolved
	for k, v := range other.ByRule {
		if s.ByRule == nil {
			s.ByRule = make(map[string]int)
		}
		s.ByRule[k] += v
	}
}

// Resolve classifies every call site of every function and method in sig,
// nested functions included.
func Resolve(sig *signature.StructuralSignature, b *binding.Bindings) Stats {
	ctx := NewContext(sig, b)
	stats := Stats{ByRule: make(map[string]int)}

	sig.WalkFunctions(func(f *signature.FunctionInfo, _ *signature.ClassInfo) {
		for i := range f.FunctionCalls {
			call := &f.FunctionCalls[i]
			name := Classify(ctx, call)
			stats.Calls++
			switch call.Classification {
			case signature.SameFile:
				stats.SameFile++
			case signature.InternalCodebase:
				stats.InternalCodebase++
			default:
				stats.Unresolved++
			}
			if name != "" {
				stats.ByRule[name]++
			}
		}
	})
	return stats
}
