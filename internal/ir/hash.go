package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with stored hashes.
const (
	DomainPromotion = "promotions/promotion/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PromotionHash computes the content hash of a promotion definition.
//
// Only the rule content takes part: name, when, then, times and active.
// ID, version and audit timestamps are excluded, so re-importing an
// unchanged definition yields the same hash.
func PromotionHash(p Promotion) (string, error) {
	when := make([]any, len(p.When))
	for i, c := range p.When {
		when[i] = []any{c.Key, c.Expr}
	}

	then := make([]any, len(p.Then))
	for i, a := range p.Then {
		entry := map[string]any{"action": a.Tag()}
		for _, fe := range Expressions(a) {
			entry[fe.Field] = fe.Expr
		}
		then[i] = entry
	}

	obj := map[string]any{
		"name":   p.Name,
		"when":   when,
		"then":   then,
		"times":  p.Times,
		"active": p.IsActive(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PromotionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPromotion, canonical), nil
}

// MustPromotionHash is like PromotionHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPromotionHash(p Promotion) string {
	h, err := PromotionHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
