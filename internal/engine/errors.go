package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that aborted an engine run.
//
// Runtime errors include:
//   - Expression failure: a guard or action operand failed to compile or evaluate
//   - Unknown action: a then entry names an action the engine does not implement
//   - Item not found: tagAsUsed referenced an item missing from the facts
//   - Promotion lookup: the promotion finder failed
//
// Every runtime error is fatal to the run; no discounts are returned.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// PromotionID identifies the promotion being processed, if any.
	PromotionID string

	// Action is the tag of the action being executed, if any.
	Action string

	// Expr is the offending expression text, if any.
	Expr string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeExpressionFailed indicates an expression failed to compile or
	// evaluate, or produced a value of the wrong kind.
	ErrCodeExpressionFailed RuntimeErrorCode = "EXPRESSION_FAILED"

	// ErrCodeUnknownAction indicates a then entry with an unregistered tag.
	// This is a bad-request class error.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeItemNotFound indicates tagAsUsed could not resolve an item.
	ErrCodeItemNotFound RuntimeErrorCode = "ITEM_NOT_FOUND"

	// ErrCodePromotionLookup indicates the promotion finder failed.
	ErrCodePromotionLookup RuntimeErrorCode = "PROMOTION_LOOKUP"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PromotionID != "" {
		msg += fmt.Sprintf(" (promotion=%s", e.PromotionID)
		if e.Action != "" {
			msg += fmt.Sprintf(", action=%s", e.Action)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsExpressionError returns true if the run failed on an expression.
func IsExpressionError(err error) bool {
	return hasCode(err, ErrCodeExpressionFailed)
}

// IsUnknownActionError returns true if the run hit an unregistered action tag.
func IsUnknownActionError(err error) bool {
	return hasCode(err, ErrCodeUnknownAction)
}

// IsItemNotFoundError returns true if tagAsUsed could not find its item.
func IsItemNotFoundError(err error) bool {
	return hasCode(err, ErrCodeItemNotFound)
}

// IsPromotionLookupError returns true if the promotion finder failed.
func IsPromotionLookupError(err error) bool {
	return hasCode(err, ErrCodePromotionLookup)
}

// NewExpressionError creates a RuntimeError for a failed expression.
func NewExpressionError(promotionID, action, expr string, err error) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeExpressionFailed,
		Message:     fmt.Sprintf("expression %q failed", expr),
		PromotionID: promotionID,
		Action:      action,
		Expr:        expr,
		Err:         err,
	}
}

// NewUnknownActionError creates a RuntimeError for an unregistered tag.
func NewUnknownActionError(promotionID, tag string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeUnknownAction,
		Message:     fmt.Sprintf("action %q not found", tag),
		PromotionID: promotionID,
		Action:      tag,
	}
}

// NewItemNotFoundError creates a RuntimeError for an unresolved tagAsUsed item.
func NewItemNotFoundError(promotionID, expr, id string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeItemNotFound,
		Message:     fmt.Sprintf("product %s %q not found", expr, id),
		PromotionID: promotionID,
		Action:      "tagAsUsed",
		Expr:        expr,
	}
}
