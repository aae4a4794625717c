package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/promotions/internal/ir"
)

// Scenario defines a conformance test scenario.
// Scenarios store a set of promotions, run the engine once against a cart
// and check the discounts it returns and the cart it leaves behind.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists promotion files (.cue, .yaml, .yml, .json) to load.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs,omitempty"`

	// Promotions are inline definitions, stored after those from Specs.
	// Storage order is evaluation order.
	Promotions []ir.Promotion `yaml:"promotions,omitempty"`

	// Facts is the cart the engine runs against.
	Facts ir.Facts `yaml:"facts"`

	// PromotionID restricts the run to one promotion when set.
	PromotionID string `yaml:"promotion_id,omitempty"`

	// MaxPasses overrides the engine safety cap when positive.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// RunID is an optional fixed run identifier.
	// If empty, defaults to "test-run" for deterministic output.
	RunID string `yaml:"run_id,omitempty"`

	// Expect specifies the exact outcome of the run.
	Expect *Expectation `yaml:"expect,omitempty"`

	// Assertions check parts of the outcome.
	// Supported types: discount_count, discount_total, item_quantity, item_removed
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation is the exact outcome of a run.
type Expectation struct {
	// Discounts must equal the returned list, in order.
	// Ignored when Error is set.
	Discounts []ir.Discount `yaml:"discounts"`

	// Error is the expected runtime error code (e.g., "UNKNOWN_ACTION").
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates part of the outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "discount_count": number of discounts, optionally for one promotion
	// - "discount_total": sum of centAmount, optionally for one promotion
	// - "item_quantity": remaining quantity of a cart line
	// - "item_removed": cart line no longer present
	Type string `yaml:"type"`

	// Promotion narrows discount_count and discount_total to one promotion.
	Promotion string `yaml:"promotion,omitempty"`

	// Item is the cart line id (used by item_quantity, item_removed).
	Item string `yaml:"item,omitempty"`

	// Count is the expected number of discounts (used by discount_count).
	Count *int `yaml:"count,omitempty"`

	// CentAmount is the expected sum (used by discount_total).
	CentAmount *float64 `yaml:"cent_amount,omitempty"`

	// Quantity is the expected remaining quantity (used by item_quantity).
	Quantity *int `yaml:"quantity,omitempty"`
}

// Assertion type constants.
const (
	AssertDiscountCount = "discount_count"
	AssertDiscountTotal = "discount_total"
	AssertItemQuantity  = "item_quantity"
	AssertItemRemoved   = "item_removed"
)

// LoadScenario reads and parses a scenario YAML file.
// Spec paths are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 && len(s.Promotions) == 0 {
		return fmt.Errorf("specs or promotions is required")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, p := range s.Promotions {
		if p.ID == "" {
			return fmt.Errorf("promotions[%d]: id is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertDiscountCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertDiscountTotal:
		if a.CentAmount == nil {
			return fmt.Errorf("assertions[%d]: cent_amount is required for %s", index, a.Type)
		}
	case AssertItemQuantity:
		if a.Item == "" || a.Quantity == nil {
			return fmt.Errorf("assertions[%d]: item and quantity are required for %s", index, a.Type)
		}
	case AssertItemRemoved:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
