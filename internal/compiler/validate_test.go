package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

func validPromotion() ir.Promotion {
	return ir.Promotion{
		ID:   "shoes-10",
		Name: "10% off shoes",
		When: ir.When{
			{Key: "shoe", Expr: `productInCategory(items, "shoes")`},
		},
		Then: ir.Actions{
			ir.CreateLineDiscount{SKU: "shoe.sku", Discount: "shoe.centAmount * 0.1"},
			ir.TagAsUsed{Items: []ir.TagItem{{ProductID: "shoe.id", Quantity: "1"}}},
		},
		Times: 1,
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidatePromotionValid(t *testing.T) {
	errs := Validate(validPromotion(), expression.NewCache())
	assert.Empty(t, errs, "valid promotion should have no errors")
}

func TestValidatePromotionEmptyIDAndName(t *testing.T) {
	p := validPromotion()
	p.ID = ""
	p.Name = "  "

	errs := Validate(p, nil)
	assert.Equal(t, []string{ErrPromotionIDEmpty, ErrPromotionNameEmpty}, codes(errs))
}

func TestValidatePromotionNegativeTimes(t *testing.T) {
	p := validPromotion()
	p.Times = -1

	errs := Validate(p, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNegativeTimes, errs[0].Code)
	assert.Equal(t, "times", errs[0].Field)
}

func TestValidatePromotionBindingKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
		code string
	}{
		{"too short", "a", ErrInvalidBindingKey},
		{"punctuation", "my-key", ErrInvalidBindingKey},
		{"too long", "abcdefghijklmnopqrstuvwxyz012345", ErrInvalidBindingKey},
		{"reserved discounts", "discounts", ErrReservedBindingKey},
		{"reserved facts", "facts", ErrReservedBindingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPromotion()
			p.When = ir.When{{Key: tt.key, Expr: "true"}}

			errs := Validate(p, nil)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, "when[0].key", errs[0].Field)
		})
	}
}

func TestValidatePromotionDuplicateKey(t *testing.T) {
	p := validPromotion()
	p.When = ir.When{
		{Key: "shoe", Expr: "1"},
		{Key: "shoe", Expr: "2"},
	}

	errs := Validate(p, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateBindingKey, errs[0].Code)
	assert.Equal(t, "when[1].key", errs[0].Field)
}

func TestValidatePromotionUnknownAction(t *testing.T) {
	p := validPromotion()
	p.Then = append(p.Then, ir.UnknownAction{Name: "freeShipping"})

	errs := Validate(p, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownAction, errs[0].Code)
	assert.Equal(t, "then[2].action", errs[0].Field)
	assert.Contains(t, errs[0].Message, "freeShipping")
}

func TestValidatePromotionMissingOperands(t *testing.T) {
	p := validPromotion()
	p.When = ir.When{{Key: "shoe", Expr: " "}}
	p.Then = ir.Actions{
		ir.CreateLineDiscount{Discount: "1"},
		ir.CreateOrderDiscount{},
		ir.TagAsUsed{},
		ir.TagAsUsed{Items: []ir.TagItem{{ProductID: "shoe.id"}}},
	}

	errs := Validate(p, nil)
	fields := make([]string, len(errs))
	for i, e := range errs {
		assert.Equal(t, ErrMissingOperand, e.Code)
		fields[i] = e.Field
	}
	assert.Equal(t, []string{
		"when[0].expr",
		"then[0].sku",
		"then[1].discount",
		"then[2].items",
		"then[3].items[0].quantity",
	}, fields)
}

func TestValidatePromotionCompileErrors(t *testing.T) {
	cache := expression.NewCache()
	p := validPromotion()
	p.When = ir.When{{Key: "shoe", Expr: "items[0"}}
	p.Then = ir.Actions{ir.CreateOrderDiscount{Discount: "1 +"}}

	errs := Validate(p, cache)
	assert.Equal(t, []string{ErrExpressionCompile, ErrExpressionCompile}, codes(errs))
	assert.Equal(t, "when[0].expr", errs[0].Field)
	assert.Equal(t, "then[0].discount", errs[1].Field)
	assert.Zero(t, cache.Len(), "failed compilations are not cached")
}

func TestValidatePromotionWarmsCache(t *testing.T) {
	cache := expression.NewCache()

	errs := Validate(validPromotion(), cache)
	require.Empty(t, errs)
	assert.Equal(t, 5, cache.Len())
}

func TestValidateAll(t *testing.T) {
	a := validPromotion()
	b := validPromotion()
	b.Name = ""

	errs := ValidateAll([]ir.Promotion{a, b}, nil)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrDuplicatePromotion, errs[0].Code)
	assert.Equal(t, "promotions[1].id", errs[0].Field)
	assert.Contains(t, errs[0].Message, "promotions[0]")
	assert.Equal(t, ErrPromotionNameEmpty, errs[1].Code)
	assert.Equal(t, "promotions[1].name", errs[1].Field)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "when[0].key", Message: `invalid key "a"`, Code: ErrInvalidBindingKey}
	assert.Equal(t, `[E103] when[0].key: invalid key "a"`, err.Error())
}
