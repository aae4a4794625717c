// Package engine implements the promotion rule engine.
//
// A run takes a cart (ir.Facts) and an optional promotion ID, loads the
// candidate promotions from a PromotionFinder, and processes them one after
// another in the order the finder returns them.
//
// Per promotion the engine loops:
//
//  1. Evaluate the when clauses in order. Each satisfied value is bound
//     under its key; the first nil or false result ends the promotion.
//  2. Execute the then actions in order. createLineDiscount and
//     createOrderDiscount emit discounts; tagAsUsed consumes item quantity
//     and removes exhausted items.
//  3. Count the pass. Stop when the count reaches times, or the safety cap
//     (DefaultMaxPasses) when times is not set.
//
// Facts are a mutable scratch object: every mutation is visible to the next
// action, the next pass and the next promotion. Any error aborts the whole
// run and the caller receives no discounts.
//
// Guard truthiness is deliberately loose: 0, "", NaN and empty objects all
// satisfy a clause. Only nil (undefined) and false do not.
package engine
