// Package tmplcache memoises compiled templates by their exact source text for
// the lifetime of one build.
package tmplcache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Template is an executable compiled template.
type Template interface {
	Execute(data any) ([]byte, error)
}

// Compiler turns template source into a Template.
type Compiler interface {
	Compile(source string) (Template, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(source string) (Template, error)

func (f CompilerFunc) Compile(source string) (Template, error) { return f(source) }

// Stats counts cache lookups.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache maps source text to its compiled template. Entries are never evicted.
// Failed compiles are not cached.
type Cache struct {
	compiler Compiler

	mu      sync.RWMutex
	entries map[string]Template
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func New(compiler Compiler) *Cache {
	return &Cache{compiler: compiler, entries: make(map[string]Template)}
}

// Get returns the compiled template for source, compiling it on first use.
// Concurrent first requests for the same source share one compile.
func (c *Cache) Get(source string) (Template, error) {
	c.mu.RLock()
	tmpl, ok := c.entries[source]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return tmpl, nil
	}

	v, err, shared := c.group.Do(source, func() (any, error) {
		c.mu.RLock()
		existing, ok := c.entries[source]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}
		compiled, err := c.compiler.Compile(source)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[source] = compiled
		c.mu.Unlock()
		return compiled, nil
	})
	if shared {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if err != nil {
		return nil, err
	}
	return v.(Template), nil
}

// Len reports the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.Len()}
}
