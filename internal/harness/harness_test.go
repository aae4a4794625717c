package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promotions/internal/engine"
	"github.com/roach88/promotions/internal/ir"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

// testFacts is a cart with two pairs of shoes and one pair of trainers.
func testFacts() ir.Facts {
	return ir.Facts{
		Items: []ir.Item{
			{ID: "a", SKU: "A", CentAmount: 5000, Quantity: 2, Categories: []string{"shoes"}},
			{ID: "b", SKU: "B", CentAmount: 3000, Quantity: 1, Categories: []string{"trainers"}},
		},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "One order discount",
		Promotions: []ir.Promotion{{
			ID:    "flat",
			Name:  "flat",
			Then:  ir.Actions{ir.CreateOrderDiscount{Discount: "100"}},
			Times: 1,
		}},
		Facts: testFacts(),
		Expect: &Expectation{Discounts: []ir.Discount{
			{PromotionID: "flat", Type: ir.DiscountTypeOrder, CentAmount: -100},
		}},
	}

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Items, 2)
}

// TestRun_FactsNotMutated tests that the scenario's own cart is left intact,
// so a scenario can be run repeatedly.
func TestRun_FactsNotMutated(t *testing.T) {
	scenario := &Scenario{
		Name:        "consume",
		Description: "Consumes every pair of shoes",
		Promotions: []ir.Promotion{{
			ID:   "per-shoe",
			Name: "per shoe",
			When: ir.When{{Key: "shoe", Expr: `productInCategory(items, "shoes")`}},
			Then: ir.Actions{
				ir.CreateLineDiscount{SKU: "shoe.sku", Discount: "500"},
				ir.TagAsUsed{Items: []ir.TagItem{{ProductID: "shoe.id", Quantity: "1"}}},
			},
		}},
		Facts: testFacts(),
		Assertions: []Assertion{
			{Type: AssertDiscountCount, Count: intPtr(2)},
			{Type: AssertItemRemoved, Item: "a"},
		},
	}

	for range 2 {
		result, err := Run(t.Context(), scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}
	assert.Equal(t, 2, scenario.Facts.Items[0].Quantity)
}

func TestRun_DiscountMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expects the wrong amount",
		Promotions: []ir.Promotion{{
			ID:    "flat",
			Name:  "flat",
			Then:  ir.Actions{ir.CreateOrderDiscount{Discount: "100"}},
			Times: 1,
		}},
		Facts: testFacts(),
		Expect: &Expectation{Discounts: []ir.Discount{
			{PromotionID: "flat", Type: ir.DiscountTypeOrder, CentAmount: -99},
		}},
	}

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "discounts mismatch")
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "not-found",
		Description: "Tags an item that is not in the cart",
		Promotions: []ir.Promotion{{
			ID:    "ghost",
			Name:  "ghost",
			Then:  ir.Actions{ir.TagAsUsed{Items: []ir.TagItem{{ProductID: `"zzz"`, Quantity: "1"}}}},
			Times: 1,
		}},
		Facts:  testFacts(),
		Expect: &Expectation{Error: string(engine.ErrCodeItemNotFound)},
	}

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "ITEM_NOT_FOUND", result.ErrorCode)
	assert.Contains(t, result.ErrorMessage, "zzz")
	assert.Empty(t, result.Discounts)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "Guard does not compile",
		Promotions: []ir.Promotion{{
			ID:   "broken",
			Name: "broken",
			When: ir.When{{Key: "bad", Expr: "1 +"}},
			Then: ir.Actions{},
		}},
		Facts:  testFacts(),
		Expect: &Expectation{},
	}

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "EXPRESSION_FAILED", result.ErrorCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "", got "EXPRESSION_FAILED"`)
}

func TestRun_PromotionFilter(t *testing.T) {
	scenario := &Scenario{
		Name:        "filter",
		Description: "Only the named promotion runs",
		Promotions: []ir.Promotion{
			{ID: "one", Name: "one", Times: 1, Then: ir.Actions{ir.CreateOrderDiscount{Discount: "1"}}},
			{ID: "two", Name: "two", Times: 1, Then: ir.Actions{ir.CreateOrderDiscount{Discount: "2"}}},
		},
		Facts:       testFacts(),
		PromotionID: "two",
		Assertions: []Assertion{
			{Type: AssertDiscountCount, Count: intPtr(1)},
			{Type: AssertDiscountTotal, Promotion: "two", CentAmount: floatPtr(-2)},
		},
	}

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SpecLoadError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`promotion: "p": { then: [] }`), 0644))

	scenario := &Scenario{
		Name:        "bad-spec",
		Description: "Spec file does not compile",
		Specs:       []string{bad},
		Expect:      &Expectation{},
	}

	_, err := Run(t.Context(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}
