package engine

import (
	"github.com/roach88/promotions/internal/ir"
)

// bindingDiscounts is the reserved binding that holds emitted discounts.
const bindingDiscounts = "discounts"

// Bindings is the per-run evaluation context layered over the facts.
//
// It starts as {discounts: []}. Each satisfied when clause writes its value
// under its key before the next clause evaluates. Keys written by earlier
// passes or earlier promotions stay visible until overwritten.
type Bindings struct {
	values    map[string]any
	discounts []ir.Discount
	view      []any
}

// NewBindings creates an empty binding context.
func NewBindings() *Bindings {
	view := []any{}
	return &Bindings{
		values: map[string]any{bindingDiscounts: view},
		view:   view,
	}
}

// Set binds key to value.
func (b *Bindings) Set(key string, value any) {
	b.values[key] = value
}

// Get returns the value bound to key.
func (b *Bindings) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Values returns the scope map handed to the evaluator.
// Callers must not modify it.
func (b *Bindings) Values() map[string]any {
	return b.values
}

// Emit appends a discount to the run's result list.
func (b *Bindings) Emit(d ir.Discount) {
	b.discounts = append(b.discounts, d)
	b.view = append(b.view, d.View())
	b.values[bindingDiscounts] = b.view
}

// Discounts returns the discounts emitted so far, in emission order.
func (b *Bindings) Discounts() []ir.Discount {
	return b.discounts
}
