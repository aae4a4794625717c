package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/promotions/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string        // Assertion type for categorization
	Expected  string        // Human-readable expected outcome
	Actual    string        // Human-readable actual outcome
	Discounts []ir.Discount // Full discount list for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nDiscounts:\n")
	for i, d := range e.Discounts {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatDiscount(d))
	}

	return buf.String()
}

// assertDiscountCount checks the number of discounts, optionally for one
// promotion.
func assertDiscountCount(discounts []ir.Discount, assertion Assertion) error {
	count := 0
	for _, d := range discounts {
		if assertion.Promotion == "" || d.PromotionID == assertion.Promotion {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:      AssertDiscountCount,
			Expected:  fmt.Sprintf("%d discounts%s", *assertion.Count, forPromotion(assertion.Promotion)),
			Actual:    fmt.Sprintf("%d discounts", count),
			Discounts: discounts,
		}
	}
	return nil
}

// assertDiscountTotal checks the sum of centAmount, optionally for one
// promotion.
func assertDiscountTotal(discounts []ir.Discount, assertion Assertion) error {
	var total float64
	for _, d := range discounts {
		if assertion.Promotion == "" || d.PromotionID == assertion.Promotion {
			total += d.CentAmount
		}
	}

	if total != *assertion.CentAmount {
		return &AssertionError{
			Type:      AssertDiscountTotal,
			Expected:  fmt.Sprintf("total %v%s", *assertion.CentAmount, forPromotion(assertion.Promotion)),
			Actual:    fmt.Sprintf("total %v", total),
			Discounts: discounts,
		}
	}
	return nil
}

// assertItemQuantity checks the remaining quantity of a cart line.
func assertItemQuantity(result *Result, assertion Assertion) error {
	for _, it := range result.Items {
		if it.ID != assertion.Item {
			continue
		}
		if it.Quantity != *assertion.Quantity {
			return &AssertionError{
				Type:      AssertItemQuantity,
				Expected:  fmt.Sprintf("item %s quantity %d", assertion.Item, *assertion.Quantity),
				Actual:    fmt.Sprintf("quantity %d", it.Quantity),
				Discounts: result.Discounts,
			}
		}
		return nil
	}

	return &AssertionError{
		Type:      AssertItemQuantity,
		Expected:  fmt.Sprintf("item %s quantity %d", assertion.Item, *assertion.Quantity),
		Actual:    "item not in cart",
		Discounts: result.Discounts,
	}
}

// assertItemRemoved checks a cart line was consumed entirely.
func assertItemRemoved(result *Result, assertion Assertion) error {
	for _, it := range result.Items {
		if it.ID == assertion.Item {
			return &AssertionError{
				Type:      AssertItemRemoved,
				Expected:  fmt.Sprintf("item %s removed", assertion.Item),
				Actual:    fmt.Sprintf("still in cart with quantity %d", it.Quantity),
				Discounts: result.Discounts,
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			errors = append(errors, err.Error())
			continue
		}

		var err error
		switch assertion.Type {
		case AssertDiscountCount:
			err = assertDiscountCount(result.Discounts, assertion)
		case AssertDiscountTotal:
			err = assertDiscountTotal(result.Discounts, assertion)
		case AssertItemQuantity:
			err = assertItemQuantity(result, assertion)
		case AssertItemRemoved:
			err = assertItemRemoved(result, assertion)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func forPromotion(id string) string {
	if id == "" {
		return ""
	}
	return " for promotion " + id
}

func formatDiscount(d ir.Discount) string {
	if d.SKU != "" {
		return fmt.Sprintf("%s %s sku=%s %v", d.PromotionID, d.Type, d.SKU, d.CentAmount)
	}
	return fmt.Sprintf("%s %s %v", d.PromotionID, d.Type, d.CentAmount)
}

func formatDiscounts(ds []ir.Discount) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = formatDiscount(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
