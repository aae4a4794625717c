package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promotions/internal/ir"
)

func sampleResult() *Result {
	return &Result{
		Pass: true,
		Discounts: []ir.Discount{
			{PromotionID: "p1", Type: ir.DiscountTypeLine, SKU: "A", CentAmount: -500},
			{PromotionID: "p1", Type: ir.DiscountTypeLine, SKU: "A", CentAmount: -500},
			{PromotionID: "p2", Type: ir.DiscountTypeOrder, CentAmount: -150},
		},
		Items: []ir.Item{
			{ID: "b", SKU: "B", CentAmount: 3000, Quantity: 1},
		},
	}
}

func TestAssertDiscountCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertDiscountCount(r.Discounts, Assertion{Count: intPtr(3)}))
	assert.NoError(t, assertDiscountCount(r.Discounts, Assertion{Count: intPtr(2), Promotion: "p1"}))
	assert.NoError(t, assertDiscountCount(r.Discounts, Assertion{Count: intPtr(0), Promotion: "p9"}))

	err := assertDiscountCount(r.Discounts, Assertion{Count: intPtr(1), Promotion: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 discounts for promotion p1")
	assert.Contains(t, err.Error(), "Actual: 2 discounts")
}

func TestAssertDiscountTotal(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertDiscountTotal(r.Discounts, Assertion{CentAmount: floatPtr(-1150)}))
	assert.NoError(t, assertDiscountTotal(r.Discounts, Assertion{CentAmount: floatPtr(-150), Promotion: "p2"}))

	err := assertDiscountTotal(r.Discounts, Assertion{CentAmount: floatPtr(-1000)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total -1150")
}

func TestAssertItemQuantity(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertItemQuantity(r, Assertion{Item: "b", Quantity: intPtr(1)}))

	err := assertItemQuantity(r, Assertion{Item: "b", Quantity: intPtr(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity 1")

	err = assertItemQuantity(r, Assertion{Item: "a", Quantity: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item not in cart")
}

func TestAssertItemRemoved(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertItemRemoved(r, Assertion{Item: "a"}))

	err := assertItemRemoved(r, Assertion{Item: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still in cart with quantity 1")
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertDiscountCount, Count: intPtr(3)},
		{Type: AssertDiscountTotal, CentAmount: floatPtr(-1150)},
		{Type: AssertItemQuantity, Item: "b", Quantity: intPtr(1)},
		{Type: AssertItemRemoved, Item: "a"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertDiscountCount, Count: intPtr(3)},
		{Type: AssertItemRemoved, Item: "b"},
		{Type: AssertDiscountCount, Count: intPtr(4)},
	})
	assert.Len(t, errs, 2)
}

func TestEvaluateAssertions_Malformed(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: "trace_order"},
		{Type: AssertDiscountCount},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], `unknown assertion type "trace_order"`)
	assert.Contains(t, errs[1], "count is required")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertDiscountCount,
		Expected: "1 discounts",
		Actual:   "2 discounts",
		Discounts: []ir.Discount{
			{PromotionID: "p1", Type: ir.DiscountTypeLine, SKU: "A", CentAmount: -500},
			{PromotionID: "p2", Type: ir.DiscountTypeOrder, CentAmount: -150},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: discount_count")
	assert.Contains(t, msg, "Expected: 1 discounts")
	assert.Contains(t, msg, "Actual: 2 discounts")
	assert.Contains(t, msg, "[1] p1 lineDiscount sku=A -500")
	assert.Contains(t, msg, "[2] p2 orderDiscount -150")
}
