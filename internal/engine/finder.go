package engine

import (
	"context"

	"github.com/roach88/promotions/internal/ir"
)

// PromotionFinder resolves the candidate promotions for a run.
//
// Implementations must exclude promotions whose Active flag is explicitly
// false and, when filter.ID is set, return only that promotion. The returned
// order is the order the engine processes promotions in, so it decides the
// outcome when promotions compete for the same items.
//
// Implemented by store.Store (SQLite) and StaticPromotions (in memory).
type PromotionFinder interface {
	Find(ctx context.Context, filter ir.PromotionFilter) ([]ir.Promotion, error)
}

// StaticPromotions is an in-memory PromotionFinder that keeps slice order.
type StaticPromotions []ir.Promotion

// Find returns the promotions matching filter in slice order.
func (s StaticPromotions) Find(_ context.Context, filter ir.PromotionFilter) ([]ir.Promotion, error) {
	var out []ir.Promotion
	for _, p := range s {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
