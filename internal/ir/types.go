package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Promotion is a persisted rule definition.
//
// A promotion is immutable for the duration of one engine run. Records are
// owned by the persistence layer (internal/store) or a static promotion set.
type Promotion struct {
	ID   string  `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
	When When    `json:"when" yaml:"when"`
	Then Actions `json:"then" yaml:"then"`

	// Times caps the number of passes. Zero means "not set": the engine's
	// safety cap applies instead.
	Times int `json:"times,omitempty" yaml:"times,omitempty"`

	// Active is nil when the record does not say; nil counts as active.
	Active *bool `json:"active,omitempty" yaml:"active,omitempty"`

	Version   int       `json:"version" yaml:"version,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" yaml:"-"`
}

// IsActive reports whether the promotion takes part in engine runs.
// Only an explicit false deactivates a promotion.
func (p Promotion) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Bool returns a pointer to b, for populating Promotion.Active.
func Bool(b bool) *bool {
	return &b
}

// PromotionFilter selects the candidate promotions for one engine run.
//
// Inactive promotions (Active explicitly false) are always excluded. When ID
// is set only that promotion is returned.
type PromotionFilter struct {
	ID string
}

// Matches reports whether p passes the filter.
func (f PromotionFilter) Matches(p Promotion) bool {
	if !p.IsActive() {
		return false
	}
	return f.ID == "" || f.ID == p.ID
}

// WhenClause is one named guard expression.
type WhenClause struct {
	Key  string `json:"key"`
	Expr string `json:"expr"`
}

// When is the ordered guard of a promotion.
//
// On the wire it is a JSON/YAML object whose key order is significant, so it
// has hand-written codecs that preserve document order.
type When []WhenClause

// Keys returns the binding names in declaration order.
func (w When) Keys() []string {
	keys := make([]string, len(w))
	for i, c := range w {
		keys[i] = c.Key
	}
	return keys
}

// MarshalJSON writes the clauses as an object in declaration order.
func (w When) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Expr)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of expression strings, keeping key order.
func (w *When) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("when: %w", err)
	}
	if tok == nil {
		*w = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("when: expected object, got %v", tok)
	}

	clauses := When{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("when: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("when: expected key, got %v", keyTok)
		}
		var expr string
		if err := dec.Decode(&expr); err != nil {
			return fmt.Errorf("when.%s: expression must be a string: %w", key, err)
		}
		clauses = append(clauses, WhenClause{Key: key, Expr: expr})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("when: %w", err)
	}

	*w = clauses
	return nil
}

// UnmarshalYAML reads a mapping node, keeping key order.
func (w *When) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: when must be a mapping", node.Line)
	}
	clauses := make(When, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if valNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: when.%s must be an expression string", valNode.Line, keyNode.Value)
		}
		clauses = append(clauses, WhenClause{Key: keyNode.Value, Expr: valNode.Value})
	}
	*w = clauses
	return nil
}

// MarshalYAML writes the clauses as a mapping in declaration order.
func (w When) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range w {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Expr, Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// DiscountType distinguishes line-level from order-level discounts.
type DiscountType string

const (
	DiscountTypeLine  DiscountType = "lineDiscount"
	DiscountTypeOrder DiscountType = "orderDiscount"
)

// Discount is an emitted result record. Discounts are appended during action
// execution and never mutated afterwards.
type Discount struct {
	PromotionID string       `json:"promotionId" yaml:"promotionId"`
	Type        DiscountType `json:"type" yaml:"type"`
	SKU         string       `json:"sku,omitempty" yaml:"sku,omitempty"`

	// CentAmount is the signed reduction, always <= 0.
	CentAmount float64 `json:"centAmount" yaml:"centAmount"`
}
