package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-atlas/internal/binding"
	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/lang"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

// Test Plan for resolve:
// - Each rule in isolation, and precedence when several could match
// - self/cls/this always resolve to SAME_FILE with the qualifier cleared
// - Unmatched calls keep qualifier and callee exactly as captured
// - Calls chained on another call's return value fall through
// - End to end: B().run() across classes, imported class instances, JS this

func testContext() *Context {
	return &Context{
		Classes: map[string]bool{"Local": true, "Other": true},
		Bindings: &binding.Bindings{
			Instantiations: map[string]string{
				"mine":      "Local",
				"self.repo": "Other",
				"h":         "Helper",
				"ext":       "requests.Session",
			},
			Imports: map[string]binding.ImportEntry{
				"Helper": {Path: "pkg.mod.Helper", ClassLike: true},
				"run":    {Path: "pkg.tasks"},
				"Local":  {Path: "shadow.Local", ClassLike: true},
				"tools":  {Path: "pkg.tools"},
			},
		},
		SelfReceivers: []string{"self", "cls"},
	}
}

func TestClassify_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		call          signature.CallSite
		wantRule      string
		wantClass     signature.Classification
		wantQualifier string
		wantTarget    string
	}{
		{"self", signature.CallSite{Callee: "save", Qualifier: "self"}, "self_reference", signature.SameFile, "", "save"},
		{"cls", signature.CallSite{Callee: "create", Qualifier: "cls"}, "self_reference", signature.SameFile, "", "create"},
		{"class in file", signature.CallSite{Callee: "build", Qualifier: "Other"}, "same_file_class", signature.SameFile, "Other", "Other.build"},
		{"class in file beats import", signature.CallSite{Callee: "make", Qualifier: "Local"}, "same_file_class", signature.SameFile, "Local", "Local.make"},
		{"instance of file class", signature.CallSite{Callee: "go", Qualifier: "mine"}, "instance_of_same_file_class", signature.SameFile, "Local", "Local.go"},
		{"self attribute instance", signature.CallSite{Callee: "find", Qualifier: "self.repo"}, "instance_of_same_file_class", signature.SameFile, "Other", "Other.find"},
		{"instance of imported class", signature.CallSite{Callee: "do", Qualifier: "h"}, "instance_of_imported_class", signature.InternalCodebase, "pkg.mod.Helper", "pkg.mod.Helper.do"},
		{"imported function", signature.CallSite{Callee: "run"}, "imported_function", signature.InternalCodebase, "pkg.tasks", "pkg.tasks.run"},
		{"imported class called bare", signature.CallSite{Callee: "Helper"}, "", signature.Unresolved, "", ""},
		{"imported qualifier", signature.CallSite{Callee: "static", Qualifier: "Helper"}, "imported_qualifier", signature.InternalCodebase, "pkg.mod.Helper", "pkg.mod.Helper.static"},
		{"imported module", signature.CallSite{Callee: "fmt", Qualifier: "tools"}, "imported_qualifier", signature.InternalCodebase, "pkg.tools", "pkg.tools.fmt"},
		{"instance of unknown class", signature.CallSite{Callee: "get", Qualifier: "ext"}, "", signature.Unresolved, "ext", ""},
		{"external", signature.CallSite{Callee: "dumps", Qualifier: "json"}, "", signature.Unresolved, "json", ""},
		{"builtin", signature.CallSite{Callee: "print"}, "", signature.Unresolved, "", ""},
		{"this is not a python receiver", signature.CallSite{Callee: "x", Qualifier: "this"}, "", signature.Unresolved, "this", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			call := tt.call
			rule := Classify(testContext(), &call)
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.wantClass, call.Classification)
			assert.Equal(t, tt.wantQualifier, call.Qualifier)
			assert.Equal(t, tt.wantTarget, call.Target)
			assert.Equal(t, tt.call.Callee, call.Callee, "callee is never rewritten")
		})
	}
}

func TestClassify_SelfAlwaysSameFile(t *testing.T) {
	t.Parallel()

	// even when "self" is also bound or imported, rule order keeps it a self reference
	ctx := testContext()
	ctx.Bindings.Instantiations["self"] = "Helper"
	ctx.Bindings.Imports["self"] = binding.ImportEntry{Path: "weird"}

	call := signature.CallSite{Callee: "m", Qualifier: "self"}
	Classify(ctx, &call)
	assert.Equal(t, signature.SameFile, call.Classification)
	assert.Empty(t, call.Qualifier)
}

func TestClassify_EmptyBindings(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&signature.StructuralSignature{Language: lang.Python}, nil)
	call := signature.CallSite{Callee: "x", Qualifier: "y"}
	assert.Empty(t, Classify(ctx, &call))
	assert.False(t, call.Resolved())
}

type pipeline struct {
	cache *grammar.Cache
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	cache := grammar.NewCache()
	t.Cleanup(cache.Close)
	return &pipeline{cache: cache}
}

func (p *pipeline) run(t *testing.T, language, src string, imps []imports.Import) (*signature.StructuralSignature, Stats) {
	t.Helper()
	sig, err := signature.NewExtractor(p.cache).Extract(language, []byte(src))
	require.NoError(t, err)
	stats := Resolve(sig, binding.Build(sig, imps))
	return sig, stats
}

func findCall(t *testing.T, sig *signature.StructuralSignature, callee string) signature.CallSite {
	t.Helper()
	var found *signature.CallSite
	sig.WalkFunctions(func(f *signature.FunctionInfo, _ *signature.ClassInfo) {
		for i := range f.FunctionCalls {
			if f.FunctionCalls[i].Callee == callee && found == nil {
				found = &f.FunctionCalls[i]
			}
		}
	})
	require.NotNil(t, found, "no call to %s", callee)
	return *found
}

func TestResolve_CrossClassInFile(t *testing.T) {
	t.Parallel()
	p := newPipeline(t)

	src := "class A:\n    def m(self):\n        B().run()\n        B.make()\n        b = B()\n        b.stop()\n\nclass B:\n    def run(self):\n        pass\n"
	sig, stats := p.run(t, lang.Python, src, nil)

	run := findCall(t, sig, "run")
	assert.Equal(t, signature.SameFile, run.Classification)
	assert.Equal(t, "B", run.Qualifier)
	assert.Equal(t, "B.run", run.Target)

	mk := findCall(t, sig, "make")
	assert.Equal(t, signature.SameFile, mk.Classification)
	assert.Equal(t, "B", mk.Qualifier)

	stop := findCall(t, sig, "stop")
	assert.Equal(t, signature.SameFile, stop.Classification)
	assert.Equal(t, "B", stop.Qualifier)

	// B() itself has no qualifier and is not an import
	ctor := findCall(t, sig, "B")
	assert.False(t, ctor.Resolved())

	assert.Equal(t, 3, stats.SameFile)
	assert.Equal(t, stats.Calls, stats.SameFile+stats.InternalCodebase+stats.Unresolved)
}

func TestResolve_ImportedClassInstance(t *testing.T) {
	t.Parallel()
	p := newPipeline(t)

	src := "from pkg.mod import Helper\n\ndef main():\n    h = Helper()\n    h.do()\n"
	imps, err := imports.Extract(p.cache, lang.Python, []byte(src))
	require.NoError(t, err)

	sig, _ := p.run(t, lang.Python, src, imps)
	do := findCall(t, sig, "do")
	assert.Equal(t, signature.InternalCodebase, do.Classification)
	assert.Equal(t, "pkg.mod.Helper", do.Qualifier)
	assert.Equal(t, "pkg.mod.Helper.do", do.Target)
}

func TestResolve_ChainedCallFallsThrough(t *testing.T) {
	t.Parallel()
	p := newPipeline(t)

	src := "class Logger:\n    pass\n\ndef f(msg):\n    Logger.get_instance().log(msg)\n"
	sig, _ := p.run(t, lang.Python, src, nil)

	log := findCall(t, sig, "log")
	assert.False(t, log.Resolved())
	assert.Empty(t, log.Qualifier)

	get := findCall(t, sig, "get_instance")
	assert.Equal(t, signature.SameFile, get.Classification)
	assert.Equal(t, "Logger", get.Qualifier)
}

func TestResolve_JavaScriptThis(t *testing.T) {
	t.Parallel()
	p := newPipeline(t)

	src := `import { Client } from './client';
import { format } from './format';

class Service {
  constructor() {
    this.client = new Client();
  }

  send(msg) {
    this.validate(msg);
    this.client.post(format(msg));
    JSON.stringify(msg);
  }
}
`
	imps := []imports.Import{
		{Source: "src/client", Symbols: []imports.Symbol{{Name: "Client"}}},
		{Source: "src/format", Symbols: []imports.Symbol{{Name: "format"}}},
	}
	sig, stats := p.run(t, lang.JavaScript, src, imps)

	validate := findCall(t, sig, "validate")
	assert.Equal(t, signature.SameFile, validate.Classification)
	assert.Empty(t, validate.Qualifier)

	post := findCall(t, sig, "post")
	assert.Equal(t, signature.InternalCodebase, post.Classification)
	assert.Equal(t, "src/client.Client", post.Qualifier)

	format := findCall(t, sig, "format")
	assert.Equal(t, signature.InternalCodebase, format.Classification)
	assert.Equal(t, "src/format", format.Qualifier)

	stringify := findCall(t, sig, "stringify")
	assert.False(t, stringify.Resolved())
	assert.Equal(t, "JSON", stringify.Qualifier)

	assert.Equal(t, 1, stats.ByRule["self_reference"])
	assert.Equal(t, 1, stats.ByRule["instance_of_imported_class"])
	assert.Equal(t, 1, stats.ByRule["imported_function"])
}

func TestStats_Add(t *testing.T) {
	t.Parallel()

	var total Stats
	total.Add(Stats{Calls: 2, SameFile: 1, Unresolved: 1, ByRule: map[string]int{"self_reference": 1}})
	total.Add(Stats{Calls: 1, InternalCodebase: 1, ByRule: map[string]int{"imported_function": 1}})
	assert.Equal(t, Stats{
		Calls: 3, SameFile: 1, InternalCodebase: 1, Unresolved: 1,
		ByRule: map[string]int{"self_reference": 1, "imported_function": 1},
	}, total)
}
