package expression

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/sync/singleflight"
)

// CompileError reports an expression that failed to compile.
type CompileError struct {
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %v", e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Cache memoises compiled programs by source text.
//
// Safe for concurrent use. Concurrent misses on the same text share one
// compilation. Failed compilations are not cached.
type Cache struct {
	plans sync.Map // string -> *vm.Program
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Compile returns the program for src, compiling it on first use.
func (c *Cache) Compile(src string) (*vm.Program, error) {
	if p, ok := c.plans.Load(src); ok {
		c.hits.Add(1)
		return p.(*vm.Program), nil
	}

	v, err, _ := c.group.Do(src, func() (any, error) {
		if p, ok := c.plans.Load(src); ok {
			return p, nil
		}
		c.misses.Add(1)
		program, err := expr.Compile(src, compileOptions()...)
		if err != nil {
			return nil, &CompileError{Expr: src, Err: err}
		}
		actual, _ := c.plans.LoadOrStore(src, program)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vm.Program), nil
}

// Hits returns the number of lookups served from the cache.
func (c *Cache) Hits() uint64 {
	return c.hits.Load()
}

// Misses returns the number of compilations performed.
func (c *Cache) Misses() uint64 {
	return c.misses.Load()
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	n := 0
	c.plans.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func compileOptions() []expr.Option {
	return []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("productWithSku", productWithSku),
		expr.Function("productInCategory", productInCategory),
		expr.Function("lowestPricedProductInCategory", lowestPricedProductInCategory),
	}
}
