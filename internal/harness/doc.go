// Package harness provides conformance testing for promotion sets.
//
// A scenario stores promotions in a fresh in-memory store, runs the real
// engine once against a cart and checks the discounts returned and the cart
// left behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - ../specs/promotions.cue
//	promotions:
//	  - id: shoes-10
//	    name: 10% off shoes
//	    when: { shoe: 'productInCategory(items, "shoes")' }
//	    then:
//	      - { action: createLineDiscount, sku: shoe.sku, discount: shoe.centAmount * 0.1 }
//	facts:
//	  items:
//	    - { id: a, sku: A, centAmount: 5000, quantity: 1, categories: [shoes] }
//	promotion_id: shoes-10
//	expect:
//	  discounts:
//	    - { promotionId: shoes-10, type: lineDiscount, sku: A, centAmount: -500 }
//	assertions:
//	  - type: item_quantity
//	    item: a
//	    quantity: 1
//
// Promotions from specs are stored first, inline promotions after them.
// Storage order is evaluation order.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - discount_count: number of discounts, optionally for one promotion
//   - discount_total: sum of centAmount, optionally for one promotion
//   - item_quantity: remaining quantity of a cart line
//   - item_removed: the cart line was consumed entirely
//
// Set expect.error to a runtime error code (UNKNOWN_ACTION, ITEM_NOT_FOUND,
// EXPRESSION_FAILED) for scenarios where the run must fail.
//
// # Deterministic Testing
//
// The harness uses:
//   - Fixed run ids (from scenario.run_id, default "test-run")
//   - Deterministic clock for stored timestamps (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per run)
//
// Outcomes are written as canonical JSON for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/shoes_trainers.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
