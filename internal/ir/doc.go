// Package ir provides the data types shared by every promotion engine package.
//
// This package contains type definitions and their wire encodings only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - When clauses are an ordered list, never a map: later clauses read the
//     bindings produced by earlier ones
//   - Then entries are a closed sum type (see Action); an unrecognised wire
//     tag decodes to UnknownAction instead of failing the decode
//   - Facts are a mutable scratch object owned by exactly one engine run
//   - JSON tags use camelCase to match the cart and discount wire shapes
package ir
