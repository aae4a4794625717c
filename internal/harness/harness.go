package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/promotions/internal/compiler"
	"github.com/roach88/promotions/internal/engine"
	"github.com/roach88/promotions/internal/ir"
	"github.com/roach88/promotions/internal/store"
	"github.com/roach88/promotions/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load promotions from spec files, then inline promotions, and store them
// 3. Run the engine once against a copy of the scenario's facts
// 4. Check the expectation and assertions
//
// A runtime error from the engine is an outcome, not a failure of Run;
// it is recorded on the result and compared with Expect.Error.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	promotions, err := loadPromotions(scenario)
	if err != nil {
		return nil, err
	}
	for _, p := range promotions {
		if _, err := st.SavePromotion(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to store promotion %s: %w", p.ID, err)
		}
	}

	eng := engine.New(st,
		engine.WithMaxPasses(scenario.MaxPasses),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
	)

	facts := scenario.Facts.Clone()
	discounts, runErr := eng.Run(ctx, facts, scenario.PromotionID)

	result := NewResult()
	if runErr != nil {
		var rerr *engine.RuntimeError
		if !errors.As(runErr, &rerr) {
			return nil, fmt.Errorf("run scenario %s: %w", scenario.Name, runErr)
		}
		result.ErrorCode = string(rerr.Code)
		result.ErrorMessage = rerr.Error()
	} else {
		result.Discounts = discounts
	}
	if facts.Items != nil {
		result.Items = facts.Items
	}

	for _, msg := range checkExpectation(result, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// loadPromotions returns spec file promotions followed by inline ones.
func loadPromotions(scenario *Scenario) ([]ir.Promotion, error) {
	var out []ir.Promotion
	for _, path := range scenario.Specs {
		ps, err := compiler.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		out = append(out, ps...)
	}
	return append(out, scenario.Promotions...), nil
}

// checkExpectation compares the outcome with an exact expectation.
func checkExpectation(result *Result, expect *Expectation) []string {
	if expect == nil {
		return nil
	}

	if expect.Error != "" || result.ErrorCode != "" {
		if expect.Error != result.ErrorCode {
			return []string{fmt.Sprintf("expected error %q, got %q (%s)",
				expect.Error, result.ErrorCode, result.ErrorMessage)}
		}
		return nil
	}

	if !slices.Equal(expect.Discounts, result.Discounts) {
		return []string{fmt.Sprintf("discounts mismatch:\n  expected: %s\n  actual:   %s",
			formatDiscounts(expect.Discounts), formatDiscounts(result.Discounts))}
	}
	return nil
}
