package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/promotions/internal/ir"
)

// CompilePromotion parses a CUE value into a Promotion.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the promotion struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`promotion: "shoes-10": { ... }`)
//	p, err := CompilePromotion(v.LookupPath(cue.ParsePath(`promotion."shoes-10"`)))
//
// The id comes from the struct label. When clauses keep their declaration
// order; it is load-bearing because later clauses read earlier bindings.
func CompilePromotion(v cue.Value) (*ir.Promotion, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &ir.Promotion{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		p.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if p.Name, err = parseName(v); err != nil {
		return nil, err
	}
	if p.Times, err = parseTimes(v); err != nil {
		return nil, err
	}
	if p.Active, err = parseActive(v); err != nil {
		return nil, err
	}
	if p.When, err = parseWhen(v); err != nil {
		return nil, err
	}
	if p.Then, err = parseThen(v); err != nil {
		return nil, err
	}

	return p, nil
}

// parseName extracts the required display name.
func parseName(v cue.Value) (string, error) {
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return "", &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return "", &CompileError{
			Field:   "name",
			Message: "name must be a string",
			Pos:     nameVal.Pos(),
		}
	}
	return name, nil
}

// parseTimes extracts the optional pass limit. Absent means unlimited.
func parseTimes(v cue.Value) (int, error) {
	timesVal := v.LookupPath(cue.ParsePath("times"))
	if !timesVal.Exists() {
		return 0, nil
	}
	n, err := timesVal.Int64()
	if err != nil {
		return 0, &CompileError{
			Field:   "times",
			Message: "times must be an integer",
			Pos:     timesVal.Pos(),
		}
	}
	return int(n), nil
}

// parseActive extracts the optional active flag.
func parseActive(v cue.Value) (*bool, error) {
	activeVal := v.LookupPath(cue.ParsePath("active"))
	if !activeVal.Exists() {
		return nil, nil
	}
	b, err := activeVal.Bool()
	if err != nil {
		return nil, &CompileError{
			Field:   "active",
			Message: "active must be a boolean",
			Pos:     activeVal.Pos(),
		}
	}
	return ir.Bool(b), nil
}

// parseWhen extracts guard clauses in declaration order.
func parseWhen(v cue.Value) (ir.When, error) {
	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return ir.When{}, nil
	}

	iter, err := whenVal.Fields()
	if err != nil {
		return nil, &CompileError{
			Field:   "when",
			Message: "when must be a struct of key: expression pairs",
			Pos:     whenVal.Pos(),
		}
	}

	when := ir.When{}
	for iter.Next() {
		key := strings.Trim(iter.Selector().String(), `"`)
		src, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "when." + key,
				Message: "guard must be a string expression",
				Pos:     iter.Value().Pos(),
			}
		}
		when = append(when, ir.WhenClause{Key: key, Expr: src})
	}
	return when, nil
}

// parseThen extracts the action list. Unknown action tags compile to
// ir.UnknownAction so Validate can report them with the rest.
func parseThen(v cue.Value) (ir.Actions, error) {
	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return nil, &CompileError{
			Field:   "then",
			Message: "then list is required",
			Pos:     v.Pos(),
		}
	}
	if thenVal.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   "then",
			Message: "then must be a list of actions",
			Pos:     thenVal.Pos(),
		}
	}

	data, err := thenVal.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var actions ir.Actions
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, &CompileError{
			Field:   "then",
			Message: err.Error(),
			Pos:     thenVal.Pos(),
		}
	}
	return actions, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
