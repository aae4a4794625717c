package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action tags understood by the engine.
const (
	TagCreateLineDiscount  = "createLineDiscount"
	TagCreateOrderDiscount = "createOrderDiscount"
	TagTagAsUsed           = "tagAsUsed"
)

// Action is one entry of a promotion's then list.
//
// The set of implementations is closed: CreateLineDiscount,
// CreateOrderDiscount, TagAsUsed and UnknownAction. Consumers switch on the
// concrete type.
type Action interface {
	// Tag returns the wire tag of the action.
	Tag() string

	isAction()
}

// CreateLineDiscount emits a line discount for the SKU expression's value.
type CreateLineDiscount struct {
	SKU      string
	Discount string
}

// CreateOrderDiscount emits an order-level discount.
type CreateOrderDiscount struct {
	Discount string
}

// TagItem names one item to consume and how many units.
type TagItem struct {
	ProductID string `json:"productId" yaml:"productId"`
	Quantity  string `json:"quantity" yaml:"quantity"`
}

// TagAsUsed consumes item quantities so they cannot match again.
type TagAsUsed struct {
	Items []TagItem
}

// UnknownAction preserves an entry whose tag the engine does not implement.
// Executing it fails the run with an unknown-action error.
type UnknownAction struct {
	Name string
}

func (CreateLineDiscount) Tag() string  { return TagCreateLineDiscount }
func (CreateOrderDiscount) Tag() string { return TagCreateOrderDiscount }
func (TagAsUsed) Tag() string           { return TagTagAsUsed }
func (a UnknownAction) Tag() string     { return a.Name }

func (CreateLineDiscount) isAction()  {}
func (CreateOrderDiscount) isAction() {}
func (TagAsUsed) isAction()           {}
func (UnknownAction) isAction()       {}

// actionRecord is the flat wire shape of an action.
//
// "products" is accepted as a legacy spelling of "items" on tagAsUsed.
type actionRecord struct {
	Action   string    `json:"action" yaml:"action"`
	SKU      string    `json:"sku,omitempty" yaml:"sku,omitempty"`
	Discount string    `json:"discount,omitempty" yaml:"discount,omitempty"`
	Items    []TagItem `json:"items,omitempty" yaml:"items,omitempty"`
	Products []TagItem `json:"products,omitempty" yaml:"products,omitempty"`
}

func (r actionRecord) action() Action {
	switch r.Action {
	case TagCreateLineDiscount:
		return CreateLineDiscount{SKU: r.SKU, Discount: r.Discount}
	case TagCreateOrderDiscount:
		return CreateOrderDiscount{Discount: r.Discount}
	case TagTagAsUsed:
		items := r.Items
		if len(items) == 0 {
			items = r.Products
		}
		return TagAsUsed{Items: items}
	default:
		return UnknownAction{Name: r.Action}
	}
}

func recordOf(a Action) actionRecord {
	switch a := a.(type) {
	case CreateLineDiscount:
		return actionRecord{Action: a.Tag(), SKU: a.SKU, Discount: a.Discount}
	case CreateOrderDiscount:
		return actionRecord{Action: a.Tag(), Discount: a.Discount}
	case TagAsUsed:
		return actionRecord{Action: a.Tag(), Items: a.Items}
	case UnknownAction:
		return actionRecord{Action: a.Name}
	default:
		return actionRecord{}
	}
}

// Actions is the ordered then list of a promotion.
type Actions []Action

// MarshalJSON writes each action as a flat tagged object.
func (as Actions) MarshalJSON() ([]byte, error) {
	records := make([]actionRecord, len(as))
	for i, a := range as {
		records[i] = recordOf(a)
	}
	return json.Marshal(records)
}

// UnmarshalJSON reads a list of tagged objects.
func (as *Actions) UnmarshalJSON(data []byte) error {
	var records []actionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("then: %w", err)
	}
	out := make(Actions, len(records))
	for i, r := range records {
		out[i] = r.action()
	}
	*as = out
	return nil
}

// MarshalYAML writes each action as a flat tagged mapping.
func (as Actions) MarshalYAML() (any, error) {
	records := make([]actionRecord, len(as))
	for i, a := range as {
		records[i] = recordOf(a)
	}
	return records, nil
}

// UnmarshalYAML reads a sequence of tagged mappings.
func (as *Actions) UnmarshalYAML(node *yaml.Node) error {
	var records []actionRecord
	if err := node.Decode(&records); err != nil {
		return err
	}
	out := make(Actions, len(records))
	for i, r := range records {
		out[i] = r.action()
	}
	*as = out
	return nil
}

// Expressions returns every expression string of the action keyed by a
// field path relative to the action ("sku", "items[0].quantity", ...).
func Expressions(a Action) []FieldExpr {
	switch a := a.(type) {
	case CreateLineDiscount:
		return []FieldExpr{{Field: "sku", Expr: a.SKU}, {Field: "discount", Expr: a.Discount}}
	case CreateOrderDiscount:
		return []FieldExpr{{Field: "discount", Expr: a.Discount}}
	case TagAsUsed:
		out := make([]FieldExpr, 0, 2*len(a.Items))
		for i, item := range a.Items {
			out = append(out,
				FieldExpr{Field: fmt.Sprintf("items[%d].productId", i), Expr: item.ProductID},
				FieldExpr{Field: fmt.Sprintf("items[%d].quantity", i), Expr: item.Quantity},
			)
		}
		return out
	default:
		return nil
	}
}

// FieldExpr pairs an expression with the field it came from.
type FieldExpr struct {
	Field string
	Expr  string
}

// IsBlank reports whether the expression has no content.
func (f FieldExpr) IsBlank() bool {
	return strings.TrimSpace(f.Expr) == ""
}
