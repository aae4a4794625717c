package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/promotions/internal/ir"
	"github.com/roach88/promotions/internal/testutil"
)

// createTestStore creates a new file-backed store with a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPromotion creates a one-pass order discount promotion.
func createTestPromotion(id string) ir.Promotion {
	return ir.Promotion{
		ID:   id,
		Name: "promotion " + id,
		When: ir.When{
			{Key: "shoe", Expr: `productInCategory(items, "shoes")`},
			{Key: "cheap", Expr: "shoe.centAmount < 10000"},
		},
		Then: ir.Actions{
			ir.CreateLineDiscount{SKU: "shoe.sku", Discount: "shoe.centAmount * 0.1"},
			ir.TagAsUsed{Items: []ir.TagItem{{ProductID: "shoe.id", Quantity: "1"}}},
		},
		Times: 1,
	}
}
