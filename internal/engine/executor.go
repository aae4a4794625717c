package engine

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/promotions/internal/expression"
	"github.com/roach88/promotions/internal/ir"
)

// executeThen runs the promotion's actions in declaration order.
//
// Each action sees the facts and bindings as left by the previous one. The
// first error aborts the pass; the caller aborts the run.
func (e *Engine) executeThen(st *runState, p ir.Promotion) error {
	for _, action := range p.Then {
		if err := e.executeAction(st, p.ID, action); err != nil {
			return err
		}
	}
	return nil
}

// executeAction dispatches on the closed set of action types.
func (e *Engine) executeAction(st *runState, promotionID string, action ir.Action) error {
	switch a := action.(type) {
	case ir.CreateLineDiscount:
		return e.createLineDiscount(st, promotionID, a)
	case ir.CreateOrderDiscount:
		return e.createOrderDiscount(st, promotionID, a)
	case ir.TagAsUsed:
		return e.tagAsUsed(st, promotionID, a)
	case ir.UnknownAction:
		return NewUnknownActionError(promotionID, a.Name)
	default:
		return NewUnknownActionError(promotionID, action.Tag())
	}
}

func (e *Engine) createLineDiscount(st *runState, promotionID string, a ir.CreateLineDiscount) error {
	sku, err := e.evalAction(st, promotionID, a.Tag(), a.SKU)
	if err != nil {
		return err
	}
	if sku == nil {
		return NewExpressionError(promotionID, a.Tag(), a.SKU, fmt.Errorf("sku is undefined"))
	}

	amount, err := e.evalDiscount(st, promotionID, a.Tag(), a.Discount)
	if err != nil {
		return err
	}

	e.emit(st, ir.Discount{
		PromotionID: promotionID,
		Type:        ir.DiscountTypeLine,
		SKU:         expression.String(sku),
		CentAmount:  amount,
	})
	return nil
}

func (e *Engine) createOrderDiscount(st *runState, promotionID string, a ir.CreateOrderDiscount) error {
	amount, err := e.evalDiscount(st, promotionID, a.Tag(), a.Discount)
	if err != nil {
		return err
	}

	e.emit(st, ir.Discount{
		PromotionID: promotionID,
		Type:        ir.DiscountTypeOrder,
		CentAmount:  amount,
	})
	return nil
}

// tagAsUsed consumes item quantities. Items whose quantity drops to zero or
// below are removed so later clauses and promotions cannot match them.
func (e *Engine) tagAsUsed(st *runState, promotionID string, a ir.TagAsUsed) error {
	for _, item := range a.Items {
		v, err := e.evalAction(st, promotionID, a.Tag(), item.ProductID)
		if err != nil {
			return err
		}
		id := expression.String(v)

		idx := -1
		if v != nil {
			idx = st.facts.IndexOf(id)
		}
		if idx < 0 {
			return NewItemNotFoundError(promotionID, item.ProductID, id)
		}

		q, err := e.evalAction(st, promotionID, a.Tag(), item.Quantity)
		if err != nil {
			return err
		}
		n, ok := expression.Number(q)
		if !ok || n != math.Trunc(n) {
			return NewExpressionError(promotionID, a.Tag(), item.Quantity,
				fmt.Errorf("quantity must be a whole number, got %v", q))
		}

		line := &st.facts.Items[idx]
		line.Quantity -= int(n)

		slog.Debug("item tagged as used",
			"run_id", st.id,
			"promotion", promotionID,
			"item", id,
			"used", int(n),
			"remaining", line.Quantity,
		)

		st.updateItem(idx)
		if line.Quantity <= 0 {
			st.facts.Items = slices.Delete(st.facts.Items, idx, idx+1)
			st.removeItem(idx)
		}
		st.invalidate()
	}
	return nil
}

func (e *Engine) evalAction(st *runState, promotionID, action, src string) (any, error) {
	v, err := e.evaluator.Evaluate(src, st.factsView(), st.bindings.Values())
	if err != nil {
		return nil, NewExpressionError(promotionID, action, src, err)
	}
	return v, nil
}

// evalDiscount evaluates a discount operand and converts it to a signed
// reduction.
func (e *Engine) evalDiscount(st *runState, promotionID, action, src string) (float64, error) {
	v, err := e.evalAction(st, promotionID, action, src)
	if err != nil {
		return 0, err
	}
	d, ok := expression.Number(v)
	if !ok {
		return 0, NewExpressionError(promotionID, action, src,
			fmt.Errorf("discount must be a number, got %T", v))
	}
	return CentAmount(d), nil
}

// CentAmount converts an evaluated discount into the emitted amount:
// round d*100 to an integer (ties away from zero), divide by 100, negate.
// Negative zero is normalised to zero.
func CentAmount(d float64) float64 {
	v := -math.Round(d*100) / 100
	if v == 0 {
		return 0
	}
	return v
}

// emit records d in the run bindings and appends it to facts.Discounts, so
// later clauses can read discounts through facts as well as bindings.
// Carts that arrive with discounts keep them ahead of the emitted ones.
func (e *Engine) emit(st *runState, d ir.Discount) {
	st.bindings.Emit(d)
	st.facts.Discounts = append(st.facts.Discounts, d)
	st.invalidate()
	e.metrics.observeDiscount(d.Type)

	slog.Debug("discount emitted",
		"run_id", st.id,
		"promotion", d.PromotionID,
		"type", d.Type,
		"sku", d.SKU,
		"cent_amount", d.CentAmount,
	)
}
