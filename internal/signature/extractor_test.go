package signature

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Test Plan for Extractor:
// - Module docstring, globals, functions and classes of a Python file
// - First assignment wins for globals and class vars
// - Decorator lines are part of function signatures and line ranges
// - Nested functions hold only immediate children and their own calls
// - Class vars include self attributes from methods but not method locals
// - JavaScript: leading /** */ docs, bound arrow functions, fields, this.x
// - TypeScript abstract classes and typed signatures
// - Partial parses still yield a signature with HasErrors set
// - Binary input and unknown languages are rejected before parsing

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cache := grammar.NewCache()
	t.Cleanup(cache.Close)
	return NewExtractor(cache)
}

func extractFixture(t *testing.T, ex *Extractor, name string) *StructuralSignature {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	spec := lang.ForFile(name)
	require.NotNil(t, spec)
	sig, err := ex.Extract(spec.Name, src)
	require.NoError(t, err)
	return sig
}

func calleeNames(calls []CallSite) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Callee)
	}
	return names
}

func varNames(vars []VariableInfo) []string {
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	return names
}

func TestExtract_OuterInner(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	src := "def outer(a,b):\n def inner(x): return x*2\n result = inner(a)+inner(b)\n print(result)\n return result\n"
	sig, err := ex.Extract(lang.Python, []byte(src))
	require.NoError(t, err)

	require.Len(t, sig.Functions, 1)
	outer := sig.Functions[0]
	assert.Equal(t, "outer", outer.Name)
	assert.Equal(t, "def outer(a,b):", outer.Signature)
	assert.Equal(t, 1, outer.StartLine)
	assert.Equal(t, 5, outer.EndLine)

	require.Len(t, outer.NestedFunctions, 1)
	inner := outer.NestedFunctions[0]
	assert.Equal(t, "inner", inner.Name)
	assert.Empty(t, inner.FunctionCalls)
	assert.Empty(t, inner.NestedFunctions)

	texts := make([]string, 0, len(outer.FunctionCalls))
	for _, c := range outer.FunctionCalls {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"inner(a)", "inner(b)", "print(result)"}, texts)
	assert.Equal(t, []string{"result"}, varNames(outer.LocalVariables))
	assert.Empty(t, sig.GlobalVariables)
	assert.False(t, sig.HasErrors)
}

func TestExtract_PythonModule(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)
	sig := extractFixture(t, ex, "service.py")

	assert.Equal(t, lang.Python, sig.Language)
	assert.Equal(t, "Order service.\n\nHandles order placement.", sig.ModuleDocstring)

	t.Run("globals", func(t *testing.T) {
		require.Len(t, sig.GlobalVariables, 4)
		assert.Equal(t, []string{"DEFAULT_TIMEOUT", "CONFIG", "first, second", "logger"}, varNames(sig.GlobalVariables))

		timeout := sig.GlobalVariables[0]
		assert.Equal(t, "DEFAULT_TIMEOUT = 30", timeout.Signature)
		assert.Equal(t, 8, timeout.StartLine)

		config := sig.GlobalVariables[1]
		assert.Equal(t, `CONFIG = { "retries": 3, "backoff": 1.5, }`, config.Signature)
		assert.Equal(t, 9, config.StartLine)
		assert.Equal(t, 12, config.EndLine)
	})

	t.Run("decorated function", func(t *testing.T) {
		require.Len(t, sig.Functions, 1)
		fn := sig.Functions[0]
		assert.Equal(t, "place_order", fn.Name)
		assert.Equal(t, 18, fn.StartLine)
		assert.Equal(t, 34, fn.EndLine)
		assert.Equal(t, "@register(\"orders\")\ndef place_order(order_id,\n                quantity=1):", fn.Signature)
		assert.Equal(t, "Place an order.\n\nReturns the order id.", fn.Docstring)
		assert.Equal(t, []string{"validate", "info"}, calleeNames(fn.FunctionCalls))
		assert.Equal(t, "logger", fn.FunctionCalls[1].Qualifier)
		assert.Equal(t, []string{"total"}, varNames(fn.LocalVariables))

		require.Len(t, fn.NestedFunctions, 1)
		validate := fn.NestedFunctions[0]
		assert.Equal(t, "validate", validate.Name)
		assert.Equal(t, []string{"check"}, calleeNames(validate.FunctionCalls))

		require.Len(t, validate.NestedFunctions, 1)
		check := validate.NestedFunctions[0]
		assert.Equal(t, "check", check.Name)
		assert.Equal(t, []string{"bool"}, calleeNames(check.FunctionCalls))
		assert.Empty(t, check.NestedFunctions)
	})

	t.Run("classes", func(t *testing.T) {
		require.Len(t, sig.Classes, 2)

		repo := sig.Classes[0]
		assert.Equal(t, "Repository", repo.Name)
		assert.Equal(t, "class Repository:", repo.Signature)
		assert.Equal(t, "Stores orders.", repo.Docstring)
		assert.Equal(t, 37, repo.StartLine)
		assert.Equal(t, 60, repo.EndLine)

		assert.Equal(t, []string{"table", "db", "cache"}, varNames(repo.Vars))
		assert.Equal(t, `table = "orders"`, repo.Vars[0].Signature)
		assert.Equal(t, "self.cache = Helper()", repo.Vars[2].Signature)

		require.Len(t, repo.Methods, 3)
		assert.Equal(t, "__init__", repo.Methods[0].Name)
		assert.Equal(t, []string{"local_only"}, varNames(repo.Methods[0].LocalVariables))
		require.Len(t, repo.Methods[0].NestedFunctions, 1)
		assert.Equal(t, "hook", repo.Methods[0].NestedFunctions[0].Name)

		build := repo.Methods[1]
		assert.Equal(t, "build", build.Name)
		assert.Equal(t, 51, build.StartLine)
		assert.Equal(t, "@staticmethod\n    def build():", build.Signature)

		save := repo.Methods[2]
		require.Len(t, save.FunctionCalls, 2)
		assert.Equal(t, "insert", save.FunctionCalls[0].Callee)
		assert.Equal(t, "self.db", save.FunctionCalls[0].Qualifier)
		assert.Equal(t, "flush", save.FunctionCalls[1].Callee)
		assert.Equal(t, "self", save.FunctionCalls[1].Qualifier)

		require.Len(t, repo.NestedClasses, 1)
		meta := repo.NestedClasses[0]
		assert.Equal(t, "Meta", meta.Name)
		assert.Equal(t, []string{"ordering"}, varNames(meta.Vars))

		service := sig.Classes[1]
		assert.Equal(t, "class Service(Repository):", service.Signature)
		assert.Empty(t, service.Vars)
		require.Len(t, service.Methods, 1)
		run := service.Methods[0]
		assert.Equal(t, []string{"build", "Helper", "do", "log", "get_instance"}, calleeNames(run.FunctionCalls))
		assert.Equal(t, "Repository", run.FunctionCalls[0].Qualifier)
		assert.Equal(t, "helper", run.FunctionCalls[2].Qualifier)
		assert.Empty(t, run.FunctionCalls[3].Qualifier, "return value of a call has no static qualifier")
		assert.Equal(t, "Logger", run.FunctionCalls[4].Qualifier)
	})
}

func TestExtract_JavaScriptModule(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)
	sig := extractFixture(t, ex, "widget.js")

	assert.Equal(t, "Widget helpers.", sig.ModuleDocstring)

	assert.Equal(t, []string{"registry", "counter"}, varNames(sig.GlobalVariables))
	assert.Equal(t, "const registry = { a: 1, b: 2 };", sig.GlobalVariables[0].Signature)
	assert.Equal(t, "let counter = 0;", sig.GlobalVariables[1].Signature)

	require.Len(t, sig.Functions, 2)

	build := sig.Functions[0]
	assert.Equal(t, "buildWidget", build.Name)
	assert.Equal(t, 15, build.StartLine)
	assert.Equal(t, "export function buildWidget(name) {", build.Signature)
	assert.Equal(t, "Builds a widget.", build.Docstring)
	assert.Equal(t, []string{"Widget", "render"}, calleeNames(build.FunctionCalls))
	assert.Equal(t, "widget", build.FunctionCalls[1].Qualifier)
	assert.Equal(t, []string{"widget"}, varNames(build.LocalVariables))

	format := sig.Functions[1]
	assert.Equal(t, "format", format.Name)
	assert.Equal(t, 21, format.StartLine)
	assert.Equal(t, 26, format.EndLine)
	assert.Equal(t, "const format = (value) => {", format.Signature)
	assert.Empty(t, format.Docstring)
	assert.Equal(t, []string{"trim", "inner"}, calleeNames(format.FunctionCalls))
	assert.Nil(t, format.LocalVariables, "a declarator bound to a function is a function, not a local")

	require.Len(t, format.NestedFunctions, 1)
	inner := format.NestedFunctions[0]
	assert.Equal(t, "inner", inner.Name)
	assert.Equal(t, "const inner = function (x) {", inner.Signature)
	assert.Equal(t, []string{"String"}, calleeNames(inner.FunctionCalls))

	require.Len(t, sig.Classes, 1)
	widget := sig.Classes[0]
	assert.Equal(t, "Widget", widget.Name)
	assert.Equal(t, "class Widget extends Base {", widget.Signature)
	assert.Equal(t, []string{"kind", "name", "helper"}, varNames(widget.Vars))
	assert.Equal(t, 29, widget.Vars[0].StartLine)

	require.Len(t, widget.Methods, 2)
	ctor := widget.Methods[0]
	assert.Equal(t, "constructor", ctor.Name)
	assert.Equal(t, "constructor(name) {", ctor.Signature)
	assert.Equal(t, []string{"Helper"}, calleeNames(ctor.FunctionCalls))
	assert.Equal(t, []string{"temp"}, varNames(ctor.LocalVariables))

	render := widget.Methods[1]
	assert.Equal(t, []string{"draw", "format"}, calleeNames(render.FunctionCalls))
	assert.Equal(t, "this.helper", render.FunctionCalls[0].Qualifier)
	assert.Empty(t, render.NestedFunctions, "object literal methods are not declarations")
}

func TestExtract_TypeScript(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	src := `export abstract class Store<T> implements Reader {
  private items: T[] = [];

  abstract load(id: string): Promise<T>;

  add(item: T): void {
    this.items.push(item);
  }
}

export const total = (values: number[]): number => values.reduce((a, b) => a + b, 0);
`
	sig, err := ex.Extract(lang.TypeScript, []byte(src))
	require.NoError(t, err)

	require.Len(t, sig.Classes, 1)
	store := sig.Classes[0]
	assert.Equal(t, "Store", store.Name)
	assert.Equal(t, "export abstract class Store<T> implements Reader {", store.Signature)
	assert.Equal(t, []string{"items"}, varNames(store.Vars))
	require.Len(t, store.Methods, 1)
	assert.Equal(t, "add", store.Methods[0].Name)
	assert.Equal(t, "add(item: T): void {", store.Methods[0].Signature)
	assert.Equal(t, []string{"push"}, calleeNames(store.Methods[0].FunctionCalls))

	require.Len(t, sig.Functions, 1)
	total := sig.Functions[0]
	assert.Equal(t, "total", total.Name)
	assert.Equal(t, 11, total.StartLine)
	assert.Equal(t, []string{"reduce"}, calleeNames(total.FunctionCalls))
	assert.Empty(t, sig.GlobalVariables)
}

func TestExtract_PartialParse(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	src := "def good():\n    return helper()\n\ndef broken(:\n    pass\n\nclass Later:\n    x = 1\n"
	sig, err := ex.Extract(lang.Python, []byte(src))
	require.NoError(t, err)
	assert.True(t, sig.HasErrors)

	require.NotEmpty(t, sig.Functions)
	assert.Equal(t, "good", sig.Functions[0].Name)
	assert.Equal(t, []string{"helper"}, calleeNames(sig.Functions[0].FunctionCalls))
}

func TestExtract_Docstrings(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"triple quoted", "def f():\n    '''One line.'''\n", "One line."},
		{"raw prefix", "def f():\n    r\"\"\"Raw \\d.\"\"\"\n", `Raw \d.`},
		{"comment first", "def f():\n    # note\n    \"\"\"Doc.\"\"\"\n", "Doc."},
		{"not first statement", "def f():\n    x = 1\n    \"\"\"Late.\"\"\"\n", ""},
		{"none", "def f():\n    pass\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ex.Extract(lang.Python, []byte(tt.src))
			require.NoError(t, err)
			require.Len(t, sig.Functions, 1)
			assert.Equal(t, tt.want, sig.Functions[0].Docstring)
		})
	}
}

func TestExtract_JSDocRequiresAdjacency(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	src := "/** Detached. */\n\nfunction a() {}\n// plain\nfunction b() {}\n/** Attached. */\nfunction c() {}\n"
	sig, err := ex.Extract(lang.JavaScript, []byte(src))
	require.NoError(t, err)
	require.Len(t, sig.Functions, 3)

	assert.Empty(t, sig.Functions[0].Docstring)
	assert.Empty(t, sig.Functions[1].Docstring)
	assert.Equal(t, "Attached.", sig.Functions[2].Docstring)
	assert.Equal(t, "Detached.", sig.ModuleDocstring)
}

func TestExtract_Rejects(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	_, err := ex.Extract(lang.Python, []byte("x = 1\x00\x01\x02"))
	assert.ErrorIs(t, err, ErrUndecodable)

	_, err = ex.Extract("cobol", []byte("MOVE A TO B."))
	assert.ErrorIs(t, err, grammar.ErrUnsupportedLanguage)
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	ex := newTestExtractor(t)

	first := extractFixture(t, ex, "service.py")
	second := extractFixture(t, ex, "service.py")
	assert.Equal(t, first, second)
}
