package harness

import "github.com/roach88/promotions/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expectation and every assertion match.
	Pass bool `json:"pass"`

	// Discounts is what the engine returned. Empty when the run failed.
	Discounts []ir.Discount `json:"discounts"`

	// Items is the cart left behind by the run.
	Items []ir.Item `json:"items"`

	// ErrorCode is the runtime error code of a failed run.
	ErrorCode string `json:"error_code,omitempty"`

	// ErrorMessage is the full runtime error text of a failed run.
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Discounts: []ir.Discount{},
		Items:     []ir.Item{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
