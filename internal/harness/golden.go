package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/promotions/internal/ir"
)

// Snapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Discounts    []ir.Discount
	Items        []ir.Item
	ErrorCode    string
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. Cent amounts are whole numbers after rounding, so they are
// written as integers.
func (s *Snapshot) toCanonicalMap() map[string]any {
	discounts := make([]any, len(s.Discounts))
	for i, d := range s.Discounts {
		m := map[string]any{
			"promotionId": d.PromotionID,
			"type":        string(d.Type),
			"centAmount":  int64(d.CentAmount),
		}
		if d.SKU != "" {
			m["sku"] = d.SKU
		}
		discounts[i] = m
	}

	items := make([]any, len(s.Items))
	for i, it := range s.Items {
		categories := make([]any, len(it.Categories))
		for j, c := range it.Categories {
			categories[j] = c
		}
		items[i] = map[string]any{
			"id":         it.ID,
			"sku":        it.SKU,
			"centAmount": it.CentAmount,
			"quantity":   it.Quantity,
			"categories": categories,
		}
	}

	result := map[string]any{
		"scenario":  s.ScenarioName,
		"discounts": discounts,
		"items":     items,
	}
	if s.ErrorCode != "" {
		result["error"] = s.ErrorCode
	}
	return result
}

// NewSnapshot captures the outcome of a run under the scenario's name.
func NewSnapshot(scenarioName string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: scenarioName,
		Discounts:    result.Discounts,
		Items:        result.Items,
		ErrorCode:    result.ErrorCode,
	}
}

// MarshalCanonical writes the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
