package grammar

import (
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Test Plan for Cache:
// - Every registered language compiles its full embedded query set
// - Languages, query sets and parsers are cached and shared
// - Unknown languages fail with ErrUnsupportedLanguage
// - A missing required query is a ConfigError wrapping ErrMissingQuery
// - A query that does not compile is a ConfigError wrapping ErrInvalidQuery
// - A missing function_calls query disables call extraction instead of failing
// - Concurrent first use publishes exactly one query set
// - Parse recovers from syntax errors instead of failing

// queryFSWithout copies the embedded queries, dropping the named file of one directory.
func queryFSWithout(t *testing.T, dir string, drop QueryName) fstest.MapFS {
	t.Helper()
	out := fstest.MapFS{}
	err := fs.WalkDir(embeddedQueries, "queries", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if p == "queries/"+dir+"/"+string(drop)+".scm" {
			return nil
		}
		data, err := fs.ReadFile(embeddedQueries, p)
		if err != nil {
			return err
		}
		out[p] = &fstest.MapFile{Data: data}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestCache_AllLanguagesCompile(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	for _, name := range lang.Names() {
		qs, err := c.Queries(name)
		require.NoError(t, err, "language %s", name)

		for _, q := range requiredQueries {
			assert.True(t, qs.Has(q), "%s should define %s", name, q)
		}
		assert.True(t, qs.Has(QueryFunctionCalls), "%s should define function_calls", name)
		assert.True(t, qs.Has(QueryImports), "%s should define imports", name)
	}
}

func TestCache_SharedHandles(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	l1, err := c.Language(lang.Python)
	require.NoError(t, err)
	l2, err := c.Language(lang.Python)
	require.NoError(t, err)
	assert.Same(t, l1, l2)

	q1, err := c.Queries(lang.Python)
	require.NoError(t, err)
	q2, err := c.Queries(lang.Python)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
}

func TestCache_UnsupportedLanguage(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	_, err := c.Language("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = c.Queries("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.False(t, IsConfigError(err))

	_, _, err = c.AcquireParser("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestCache_MissingRequiredQuery(t *testing.T) {
	t.Parallel()

	c := NewCache(WithQueryFS(queryFSWithout(t, "python", QueryClassMethods)))
	defer c.Close()

	_, err := c.Queries(lang.Python)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.ErrorIs(t, err, ErrMissingQuery)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, lang.Python, ce.Language)
	assert.Equal(t, QueryClassMethods, ce.Query)
}

func TestCache_InvalidQuery(t *testing.T) {
	t.Parallel()

	fsys := queryFSWithout(t, "python", QueryGlobals)
	fsys["queries/python/globals.scm"] = &fstest.MapFile{Data: []byte("(no_such_node_kind) @x")}

	c := NewCache(WithQueryFS(fsys))
	defer c.Close()

	_, err := c.Queries(lang.Python)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCache_MissingOptionalCallsQuery(t *testing.T) {
	t.Parallel()

	c := NewCache(WithQueryFS(queryFSWithout(t, "python", QueryFunctionCalls)))
	defer c.Close()

	qs, err := c.Queries(lang.Python)
	require.NoError(t, err)
	assert.False(t, qs.Has(QueryFunctionCalls))
	assert.Nil(t, qs.Get(QueryFunctionCalls))
	assert.True(t, qs.Has(QueryGlobals))
}

func TestCache_ConcurrentPopulation(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	const workers = 16
	results := make([]*QuerySet, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qs, err := c.Queries(lang.TypeScript)
			if err == nil {
				results[i] = qs
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestCache_ParseRecoversFromErrors(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	tree, err := c.Parse(lang.Python, []byte("def broken(:\n    pass\n\nx = 1\n"))
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "module", root.Kind())
	assert.True(t, root.HasError())
}

func TestCache_AcquireParserRelease(t *testing.T) {
	t.Parallel()

	c := NewCache()
	defer c.Close()

	p, release, err := c.AcquireParser(lang.JavaScript)
	require.NoError(t, err)
	require.NotNil(t, p)

	tree := p.Parse([]byte("const a = 1;\n"), nil)
	require.NotNil(t, tree)
	assert.Equal(t, "program", tree.RootNode().Kind())
	tree.Close()
	release()
}

func TestWarm_SurfacesConfigErrors(t *testing.T) {
	t.Parallel()

	c := NewCache(WithQueryFS(queryFSWithout(t, "javascript", QueryModuleClasses)))
	defer c.Close()

	require.NoError(t, c.Warm(lang.Python))
	err := c.Warm(lang.Python, lang.JavaScript)
	assert.True(t, IsConfigError(err))
}
