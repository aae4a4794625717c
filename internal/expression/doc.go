// Package expression compiles and evaluates promotion rule expressions.
//
// Expressions are written in the expr language (github.com/expr-lang/expr).
// Compiled programs are memoised by source text in a Cache, which is the only
// state shared between concurrent engine runs. An Evaluator runs a program
// against a scope made of the facts view overlaid with the run's bindings.
//
// Helper functions available to every expression:
//
//	productWithSku(items, sku)                  first item whose sku matches
//	productInCategory(items, category)          first item carrying category
//	lowestPricedProductInCategory(items, cat)   cheapest item carrying cat
//
// Each helper returns nil when nothing matches. The language builtins
// (filter, map, find, sum, min, max, len, ...) are available as usual.
//
// A path through a missing value (nil.field, list[99]) evaluates to nil
// instead of failing, so guards over absent data simply do not match.
package expression
