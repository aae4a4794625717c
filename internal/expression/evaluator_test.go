package expression

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartView() map[string]any {
	items := []any{
		map[string]any{"id": "1", "sku": "A", "centAmount": 5000, "quantity": 2, "categories": []any{"shoes"}},
		map[string]any{"id": "2", "sku": "B", "centAmount": 3000, "quantity": 1, "categories": []any{"trainers"}},
		map[string]any{"id": "3", "sku": "C", "centAmount": 2500, "quantity": 4, "categories": []any{"trainers", "sale"}},
	}
	return map[string]any{
		"customer":  map[string]any{"customerGroup": "vip"},
		"items":     items,
		"products":  items,
		"discounts": []any{},
		"total":     int64(25000),
	}
}

func TestEvaluateLanguageFeatures(t *testing.T) {
	ev := NewEvaluator(nil)

	tests := []struct {
		name     string
		expr     string
		expected any
	}{
		{"path access", `items[0].sku`, "A"},
		{"comparison", `total > 10000`, true},
		{"filter", `len(filter(items, "trainers" in .categories))`, 2},
		{"projection sum", `sum(map(items, .centAmount * .quantity))`, 23000},
		{"extremum", `min(map(filter(items, "trainers" in .categories), .centAmount))`, 2500},
		{"customer attribute", `customer.customerGroup == "vip"`, true},
		{"float arithmetic", `items[1].centAmount * 0.1`, 300.0},
		{"explicit facts layer", `len(facts.items)`, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.expr, cartView(), map[string]any{})
			require.NoError(t, err)
			assert.EqualValues(t, tt.expected, got)
		})
	}
}

func TestEvaluateHelpers(t *testing.T) {
	ev := NewEvaluator(nil)
	facts := cartView()

	got, err := ev.Evaluate(`productWithSku(items, "B").id`, facts, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	got, err = ev.Evaluate(`productInCategory(items, "trainers").sku`, facts, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", got, "first item in category wins")

	got, err = ev.Evaluate(`lowestPricedProductInCategory(items, "trainers").sku`, facts, nil)
	require.NoError(t, err)
	assert.Equal(t, "C", got)

	got, err = ev.Evaluate(`productWithSku(products, "Z")`, facts, nil)
	require.NoError(t, err)
	assert.Nil(t, got, "no match is undefined")
}

func TestEvaluateMissingPathIsUndefined(t *testing.T) {
	ev := NewEvaluator(nil)

	tests := []string{
		`customer.segment`,
		`productWithSku(items, "Z").sku`,
		`items[10]`,
		`nothing.at.all`,
		`lowestPricedProductInCategory(missing, "x")`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			got, err := ev.Evaluate(src, cartView(), nil)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

// TestEvaluateBindingsShadowFacts tests that a binding hides a fact of the
// same name while both layers stay reachable explicitly.
func TestEvaluateBindingsShadowFacts(t *testing.T) {
	ev := NewEvaluator(nil)
	bindings := map[string]any{
		"total": 1,
		"base":  map[string]any{"sku": "A"},
	}

	got, err := ev.Evaluate(`total`, cartView(), bindings)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = ev.Evaluate(`facts.total`, cartView(), bindings)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), got)

	got, err = ev.Evaluate(`bindings.base.sku + "-" + items[1].sku`, cartView(), bindings)
	require.NoError(t, err)
	assert.Equal(t, "A-B", got)
}

func TestEvaluateCompileErrorIsFatal(t *testing.T) {
	ev := NewEvaluator(nil)

	_, err := ev.Evaluate(`items[0].`, cartView(), nil)
	require.Error(t, err)

	var ce *CompileError
	assert.True(t, errors.As(err, &ce))
}

func TestEvaluateRuntimeErrorIsFatal(t *testing.T) {
	ev := NewEvaluator(nil)

	_, err := ev.Evaluate(`customer.customerGroup * 2`, cartView(), nil)
	require.Error(t, err)

	var ee *EvalError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, `customer.customerGroup * 2`, ee.Expr)
}

func TestEvaluateHelperArgumentErrors(t *testing.T) {
	ev := NewEvaluator(nil)

	_, err := ev.Evaluate(`productWithSku(total, "A")`, cartView(), nil)
	assert.Error(t, err)

	_, err = ev.Evaluate(`productWithSku(items)`, cartView(), nil)
	assert.Error(t, err)
}

func TestEvaluateSharesCache(t *testing.T) {
	cache := NewCache()
	a := NewEvaluator(cache)
	b := NewEvaluator(cache)

	_, err := a.Evaluate(`total`, cartView(), nil)
	require.NoError(t, err)
	_, err = b.Evaluate(`total`, cartView(), nil)
	require.NoError(t, err)

	assert.Same(t, cache, b.Cache())
	assert.Equal(t, uint64(1), cache.Misses())
	assert.Equal(t, uint64(1), cache.Hits())
}

// TestSatisfied tests guard truthiness: only nil and false fail.
func TestSatisfied(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", 0, true},
		{"empty string", "", true},
		{"NaN", math.NaN(), true},
		{"empty object", map[string]any{}, true},
		{"empty list", []any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Satisfied(tt.value))
		})
	}
}

func TestNumberAndString(t *testing.T) {
	n, ok := Number(int64(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, n)

	_, ok = Number("7")
	assert.False(t, ok)

	assert.Equal(t, "7", String(7.0))
	assert.Equal(t, "7.5", String(7.5))
	assert.Equal(t, "12", String(12))
	assert.Equal(t, "abc", String("abc"))
	assert.Equal(t, "", String(nil))
}
