package sql

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies a compiled statement template.
type CacheKey struct {
	Table     string
	Operation string
	// Columns lists the columns the statement touches, in order.
	Columns []string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Operation + ":" + strings.Join(k.Columns, ",")
}

// StmtCache caches compiled statement templates, typically built with
// Placeholder markers so one template serves every execution. It is safe
// for concurrent use. Concurrent misses on the same key compile once and
// share the result.
type StmtCache struct {
	stmts sync.Map // string => *Stmt
	group singleflight.Group
}

// NewStmtCache returns an empty cache.
func NewStmtCache() *StmtCache {
	return &StmtCache{}
}

// Get returns a copy of the statement cached under key, compiling it with
// build on a miss. Failed builds are not cached.
func (c *StmtCache) Get(key CacheKey, build func() (*Builder, error)) (*Stmt, error) {
	k := key.String()
	if s, ok := c.stmts.Load(k); ok {
		return s.(*Stmt).Clone(), nil
	}
	v, err, _ := c.group.Do(k, func() (any, error) {
		if s, ok := c.stmts.Load(k); ok {
			return s, nil
		}
		b, err := build()
		if err != nil {
			return nil, err
		}
		stmt, err := b.Compile()
		if err != nil {
			return nil, err
		}
		stmt = stmt.Clone()
		actual, _ := c.stmts.LoadOrStore(k, stmt)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stmt).Clone(), nil
}

// Len returns the number of cached statements.
func (c *StmtCache) Len() int {
	var n int
	c.stmts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
