// Package store provides SQLite-backed storage for promotion definitions.
//
// The promotions table keeps one row per promotion id:
//   - seq: insertion order, the order Find returns promotions in
//   - when_json / then_json: the guard and action lists as JSON
//   - active: NULL means active; only an explicit 0 deactivates
//   - version: incremented on every content change, used for optimistic updates
//   - content_hash: ir.PromotionHash of the stored definition
//   - created_at / updated_at: audit timestamps (RFC 3339, UTC)
//
// # Ordering
//
// The engine processes promotions in the order Find returns them, and that
// order decides which promotion wins when several compete for the same
// items. Find therefore always orders by seq, and SavePromotion never
// changes the seq of an existing id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
