package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Promotion identity (E101-E102)
	ErrPromotionIDEmpty   = "E101" // id is required
	ErrPromotionNameEmpty = "E102" // name is required

	// When clause errors (E103-E105)
	ErrInvalidBindingKey   = "E103" // key does not match ^[a-zA-Z0-9]{2,30}$
	ErrDuplicateBindingKey = "E104" // key declared twice in one promotion
	ErrReservedBindingKey  = "E105" // key shadows a reserved binding

	// Then clause errors (E106-E107)
	ErrUnknownAction  = "E106" // action tag outside the registered set
	ErrMissingOperand = "E107" // blank expression or no tagAsUsed items

	// Limits and expressions (E108-E110)
	ErrNegativeTimes      = "E108" // times must be >= 0
	ErrExpressionCompile  = "E109" // expression does not compile
	ErrDuplicatePromotion = "E110" // promotion id repeated in one set
)

// bindingKeyPattern constrains when clause keys.
var bindingKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9]{2,30}$`)

// reservedKeys cannot be used as binding keys; they would shadow state the
// engine maintains or the scope roots every expression reads.
var reservedKeys = map[string]bool{
	"discounts": true,
	"facts":     true,
	"bindings":  true,
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled promotion.
// Returns all errors found (does not fail-fast).
//
// Expressions are compiled through cache, so a later engine run sharing the
// cache starts warm. A nil cache skips expression checks.
func Validate(p ir.Promotion, cache *expression.Cache) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "id is required and must be non-empty",
			Code:    ErrPromotionIDEmpty,
		})
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrPromotionNameEmpty,
		})
	}
	if p.Times < 0 {
		errs = append(errs, ValidationError{
			Field:   "times",
			Message: fmt.Sprintf("times must be zero (unlimited) or positive, got %d", p.Times),
			Code:    ErrNegativeTimes,
		})
	}

	errs = append(errs, validateWhen(p.When, cache)...)
	errs = append(errs, validateThen(p.Then, cache)...)
	return errs
}

// ValidateAll validates a set of promotions and reports repeated ids.
// Field paths are prefixed with the promotion's index.
func ValidateAll(ps []ir.Promotion, cache *expression.Cache) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int, len(ps))

	for i, p := range ps {
		prefix := fmt.Sprintf("promotions[%d]", i)
		if first, ok := seen[p.ID]; ok && p.ID != "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("duplicate promotion id %q (first at promotions[%d])", p.ID, first),
				Code:    ErrDuplicatePromotion,
			})
		} else {
			seen[p.ID] = i
		}

		for _, e := range Validate(p, cache) {
			e.Field = prefix + "." + e.Field
			errs = append(errs, e)
		}
	}
	return errs
}

func validateWhen(when ir.When, cache *expression.Cache) []ValidationError {
	var errs []ValidationError
	keys := make(map[string]bool, len(when))

	for i, clause := range when {
		field := fmt.Sprintf("when[%d]", i)

		switch {
		case reservedKeys[clause.Key]:
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key %q is reserved", clause.Key),
				Code:    ErrReservedBindingKey,
			})
		case !bindingKeyPattern.MatchString(clause.Key):
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("invalid key %q, must be 2-30 letters or digits", clause.Key),
				Code:    ErrInvalidBindingKey,
			})
		case keys[clause.Key]:
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("duplicate key %q", clause.Key),
				Code:    ErrDuplicateBindingKey,
			})
		}
		keys[clause.Key] = true

		errs = append(errs, validateExpr(field+".expr", clause.Expr, cache)...)
	}
	return errs
}

func validateThen(then ir.Actions, cache *expression.Cache) []ValidationError {
	var errs []ValidationError

	for i, action := range then {
		field := fmt.Sprintf("then[%d]", i)

		switch a := action.(type) {
		case ir.UnknownAction:
			msg := fmt.Sprintf("unknown action %q, must be one of %q, %q, %q", a.Name,
				ir.TagCreateLineDiscount, ir.TagCreateOrderDiscount, ir.TagTagAsUsed)
			errs = append(errs, ValidationError{
				Field:   field + ".action",
				Message: msg,
				Code:    ErrUnknownAction,
			})
			continue
		case ir.TagAsUsed:
			if len(a.Items) == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".items",
					Message: "tagAsUsed requires at least one item",
					Code:    ErrMissingOperand,
				})
			}
		}

		for _, fe := range ir.Expressions(action) {
			errs = append(errs, validateExpr(field+"."+fe.Field, fe.Expr, cache)...)
		}
	}
	return errs
}

// validateExpr checks one expression is present and compiles.
func validateExpr(field, src string, cache *expression.Cache) []ValidationError {
	if strings.TrimSpace(src) == "" {
		return []ValidationError{{
			Field:   field,
			Message: "expression is required",
			Code:    ErrMissingOperand,
		}}
	}
	if cache == nil {
		return nil
	}
	if _, err := cache.Compile(src); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrExpressionCompile,
		}}
	}
	return nil
}
