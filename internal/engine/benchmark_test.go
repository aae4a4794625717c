package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/roach88/promotions/internal/ir"
)

var benchCategories = []string{"shoes", "trainers", "socks", "shirts", "jackets", "hats", "bags", "belts"}

// randomPromotions builds "buy one in X, 10% off the cheapest in Y"
// promotions over random pairs of distinct categories.
func randomPromotions(r *rand.Rand, n int) []ir.Promotion {
	out := make([]ir.Promotion, n)
	for i := range out {
		bi := r.IntN(len(benchCategories))
		si := (bi + 1 + r.IntN(len(benchCategories)-1)) % len(benchCategories)
		base, second := benchCategories[bi], benchCategories[si]
		out[i] = ir.Promotion{
			ID:   fmt.Sprintf("promo-%d", i),
			Name: fmt.Sprintf("buy %s get 10%% off %s", base, second),
			When: ir.When{
				{Key: "base", Expr: fmt.Sprintf(`productInCategory(items, %q)`, base)},
				{Key: "second", Expr: fmt.Sprintf(`lowestPricedProductInCategory(items, %q)`, second)},
			},
			Then: ir.Actions{
				ir.CreateLineDiscount{SKU: "second.sku", Discount: "second.centAmount * 0.1"},
				ir.TagAsUsed{Items: []ir.TagItem{
					{ProductID: "base.id", Quantity: "1"},
					{ProductID: "second.id", Quantity: "1"},
				}},
			},
		}
	}
	return out
}

func randomCart(r *rand.Rand, lines int) *ir.Facts {
	f := &ir.Facts{Customer: map[string]any{"customerGroup": "regular"}}
	for i := range lines {
		f.Items = append(f.Items, ir.Item{
			ID:         fmt.Sprintf("line-%d", i),
			SKU:        fmt.Sprintf("SKU-%d", i),
			CentAmount: int64(100 + r.IntN(20000)),
			Quantity:   1 + r.IntN(5),
			Categories: []string{benchCategories[r.IntN(len(benchCategories))]},
		})
	}
	return f
}

func BenchmarkEngine_Run(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	e := New(StaticPromotions(randomPromotions(r, 100)))
	facts := randomCart(r, 200)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := e.Run(context.Background(), facts.Clone(), ""); err != nil {
			b.Fatal(err)
		}
	}
}
