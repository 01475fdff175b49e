package grammar

import (
	"fmt"
	"io/fs"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/project-atlas/internal/lang"
)

// Cache holds compiled grammars, parser pools and query sets keyed by
// language name. Entries are populated on first use and shared afterwards.
// Construct one per process and pass it to every extractor.
type Cache struct {
	queryFS fs.FS

	mu        sync.RWMutex
	languages map[string]*sitter.Language
	queries   map[string]*QuerySet
	pools     map[string]*sync.Pool

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithQueryFS replaces the embedded query definitions. The FS must contain
// queries/<dir>/<query>.scm files.
func WithQueryFS(fsys fs.FS) Option {
	return func(c *Cache) {
		c.queryFS = fsys
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		queryFS:   embeddedQueries,
		languages: make(map[string]*sitter.Language),
		queries:   make(map[string]*QuerySet),
		pools:     make(map[string]*sync.Pool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Language returns the compiled grammar for name.
func (c *Cache) Language(name string) (*sitter.Language, error) {
	c.mu.RLock()
	l, ok := c.languages[name]
	c.mu.RUnlock()
	if ok {
		return l, nil
	}

	v, err, _ := c.group.Do("lang:"+name, func() (any, error) {
		c.mu.RLock()
		l, ok := c.languages[name]
		c.mu.RUnlock()
		if ok {
			return l, nil
		}

		l, err := loadLanguage(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, name)
		}

		c.mu.Lock()
		c.languages[name] = l
		c.pools[name] = newParserPool(l)
		c.mu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sitter.Language), nil
}

// Queries returns the compiled query set for name. A missing required query
// or a compile failure yields a *ConfigError.
func (c *Cache) Queries(name string) (*QuerySet, error) {
	c.mu.RLock()
	qs, ok := c.queries[name]
	c.mu.RUnlock()
	if ok {
		return qs, nil
	}

	spec := lang.ForName(name)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, name)
	}

	tsLang, err := c.Language(name)
	if err != nil {
		return nil, err
	}

	v, err, _ := c.group.Do("queries:"+name, func() (any, error) {
		c.mu.RLock()
		qs, ok := c.queries[name]
		c.mu.RUnlock()
		if ok {
			return qs, nil
		}

		qs, err := compileQuerySet(c.queryFS, name, spec.QueryDir, tsLang)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.queries[name] = qs
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*QuerySet), nil
}

// AcquireParser returns a parser configured for name together with the
// function that hands it back. Parsers are not safe for concurrent use;
// never share one between goroutines.
func (c *Cache) AcquireParser(name string) (*sitter.Parser, func(), error) {
	if _, err := c.Language(name); err != nil {
		return nil, nil, err
	}

	c.mu.RLock()
	pool := c.pools[name]
	c.mu.RUnlock()

	p, _ := pool.Get().(*sitter.Parser)
	if p == nil {
		return nil, nil, fmt.Errorf("no parser available for %s", name)
	}
	return p, func() { pool.Put(p) }, nil
}

// Parse parses source with a pooled parser. The caller must Close the tree.
// Syntax errors do not fail the parse: tree-sitter recovers and the tree
// carries ERROR nodes instead.
func (c *Cache) Parse(name string, source []byte) (*sitter.Tree, error) {
	p, release, err := c.AcquireParser(name)
	if err != nil {
		return nil, err
	}
	tree := p.Parse(source, nil)
	release()

	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, name)
	}
	return tree, nil
}

// Warm populates grammars and queries for the given languages up front so
// that configuration errors surface before any file is processed.
func (c *Cache) Warm(names ...string) error {
	for _, name := range names {
		if _, err := c.Queries(name); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every compiled query. The cache must not be used afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, qs := range c.queries {
		qs.close()
	}
	c.queries = make(map[string]*QuerySet)
}

func newParserPool(l *sitter.Language) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			p := sitter.NewParser()
			if err := p.SetLanguage(l); err != nil {
				p.Close()
				return nil
			}
			return p
		},
	}
}
