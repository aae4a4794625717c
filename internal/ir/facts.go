package ir

import (
	"encoding/json"
	"slices"
)

// Item is one cart line entry.
type Item struct {
	ID         string   `json:"id" yaml:"id"`
	SKU        string   `json:"sku" yaml:"sku"`
	CentAmount int64    `json:"centAmount" yaml:"centAmount"`
	Quantity   int      `json:"quantity" yaml:"quantity"`
	Categories []string `json:"categories" yaml:"categories"`
}

// HasCategory reports whether the item carries the category tag.
func (i Item) HasCategory(category string) bool {
	return slices.Contains(i.Categories, category)
}

// Facts is the mutable evaluation subject of one engine run.
//
// Actions mutate Items in place (decrementing quantities, removing exhausted
// entries) and append to Discounts. A Facts value must never be shared
// between concurrent runs.
type Facts struct {
	Customer  map[string]any `json:"customer,omitempty" yaml:"customer,omitempty"`
	Items     []Item         `json:"items" yaml:"items"`
	Total     *int64         `json:"total,omitempty" yaml:"total,omitempty"`
	Discounts []Discount     `json:"discounts,omitempty" yaml:"discounts,omitempty"`
}

// factsWire accepts both "items" and the legacy "products" key.
type factsWire struct {
	Customer  map[string]any `json:"customer,omitempty"`
	Items     []Item         `json:"items"`
	Products  []Item         `json:"products,omitempty"`
	Total     *int64         `json:"total,omitempty"`
	Discounts []Discount     `json:"discounts,omitempty"`
}

// UnmarshalJSON decodes the cart shape, falling back to "products" when
// "items" is absent.
func (f *Facts) UnmarshalJSON(data []byte) error {
	var w factsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	items := w.Items
	if items == nil {
		items = w.Products
	}
	*f = Facts{
		Customer:  w.Customer,
		Items:     items,
		Total:     w.Total,
		Discounts: w.Discounts,
	}
	return nil
}

// IndexOf returns the position of the item with the given id, or -1.
func (f *Facts) IndexOf(id string) int {
	return slices.IndexFunc(f.Items, func(it Item) bool { return it.ID == id })
}

// ProductCount returns the total quantity across all lines.
func (f *Facts) ProductCount() int {
	n := 0
	for _, it := range f.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy, so a caller can keep the original cart while an
// engine run mutates the copy.
func (f *Facts) Clone() *Facts {
	out := &Facts{
		Customer:  f.Customer,
		Total:     f.Total,
		Items:     make([]Item, len(f.Items)),
		Discounts: slices.Clone(f.Discounts),
	}
	for i, it := range f.Items {
		it.Categories = slices.Clone(it.Categories)
		out.Items[i] = it
	}
	return out
}

// View renders the facts as the generic value tree the expression evaluator
// navigates. Items appear under both "items" and "products".
func (f *Facts) View() map[string]any {
	items := make([]any, len(f.Items))
	for i, it := range f.Items {
		items[i] = it.View()
	}
	discounts := make([]any, len(f.Discounts))
	for i, d := range f.Discounts {
		discounts[i] = d.View()
	}
	customer := map[string]any{}
	for k, v := range f.Customer {
		customer[k] = v
	}
	view := map[string]any{
		"customer":  customer,
		"items":     items,
		"products":  items,
		"discounts": discounts,
	}
	if f.Total != nil {
		view["total"] = *f.Total
	}
	return view
}

// View renders the item as a generic map.
func (i Item) View() map[string]any {
	categories := make([]any, len(i.Categories))
	for j, c := range i.Categories {
		categories[j] = c
	}
	return map[string]any{
		"id":         i.ID,
		"sku":        i.SKU,
		"centAmount": int(i.CentAmount),
		"quantity":   i.Quantity,
		"categories": categories,
	}
}

// View renders the discount as a generic map.
func (d Discount) View() map[string]any {
	v := map[string]any{
		"promotionId": d.PromotionID,
		"type":        string(d.Type),
		"centAmount":  d.CentAmount,
	}
	if d.SKU != "" {
		v["sku"] = d.SKU
	}
	return v
}
