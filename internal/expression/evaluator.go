package expression

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
)

// Reserved scope names that expose each layer explicitly.
const (
	ScopeFacts    = "facts"
	ScopeBindings = "bindings"
)

// EvalError reports an expression that compiled but failed at runtime.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Evaluator runs expressions against facts and bindings.
type Evaluator struct {
	cache *Cache
}

// NewEvaluator creates an evaluator backed by cache.
// A nil cache gets a private one.
func NewEvaluator(cache *Cache) *Evaluator {
	if cache == nil {
		cache = NewCache()
	}
	return &Evaluator{cache: cache}
}

// Cache returns the program cache used by the evaluator.
func (e *Evaluator) Cache() *Cache {
	return e.cache
}

// Evaluate compiles src (through the cache) and runs it.
//
// The scope is facts overlaid by bindings: a binding shadows a fact of the
// same name. Both layers are also reachable as "facts" and "bindings".
// A nil result means undefined.
func (e *Evaluator) Evaluate(src string, facts, bindings map[string]any) (any, error) {
	program, err := e.cache.Compile(src)
	if err != nil {
		return nil, err
	}

	scope := make(map[string]any, len(facts)+len(bindings)+2)
	for k, v := range facts {
		scope[k] = v
	}
	for k, v := range bindings {
		scope[k] = v
	}
	scope[ScopeFacts] = facts
	scope[ScopeBindings] = bindings

	out, err := expr.Run(program, scope)
	if err != nil {
		if isUndefinedPath(err) {
			return nil, nil
		}
		return nil, &EvalError{Expr: src, Err: err}
	}
	return out, nil
}

// isUndefinedPath reports runtime failures caused by navigating through a
// missing value.
func isUndefinedPath(err error) bool {
	var fe *file.Error
	if !errors.As(err, &fe) {
		return false
	}
	msg := fe.Message
	switch {
	case strings.HasPrefix(msg, "cannot fetch ") && strings.HasSuffix(msg, " from <nil>"):
		return true
	case strings.HasPrefix(msg, "index out of range"):
		return true
	default:
		return false
	}
}

// Satisfied reports whether a guard value lets a promotion proceed.
//
// Only nil and the boolean false fail. Zero, the empty string, NaN and empty
// collections all pass.
func Satisfied(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
