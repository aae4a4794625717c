package expression

import (
	"fmt"
	"math"
	"slices"
)

func productWithSku(params ...any) (any, error) {
	items, key, err := listAndKey("productWithSku", params)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok && String(m["sku"]) == key {
			return m, nil
		}
	}
	return nil, nil
}

func productInCategory(params ...any) (any, error) {
	items, category, err := listAndKey("productInCategory", params)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok && inCategory(m, category) {
			return m, nil
		}
	}
	return nil, nil
}

func lowestPricedProductInCategory(params ...any) (any, error) {
	items, category, err := listAndKey("lowestPricedProductInCategory", params)
	if err != nil {
		return nil, err
	}
	var (
		best  map[string]any
		price = math.Inf(1)
	)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok || !inCategory(m, category) {
			continue
		}
		p, ok := Number(m["centAmount"])
		if !ok {
			continue
		}
		if p < price {
			best, price = m, p
		}
	}
	if best == nil {
		return nil, nil
	}
	return best, nil
}

// listAndKey validates the (items, key) argument pair shared by the helpers.
// A nil list is treated as empty.
func listAndKey(name string, params []any) ([]any, string, error) {
	if len(params) != 2 {
		return nil, "", fmt.Errorf("%s: expected 2 arguments, got %d", name, len(params))
	}
	var items []any
	switch v := params[0].(type) {
	case nil:
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
	default:
		return nil, "", fmt.Errorf("%s: items must be a list, got %T", name, params[0])
	}
	return items, String(params[1]), nil
}

func inCategory(item map[string]any, category string) bool {
	switch cs := item["categories"].(type) {
	case []any:
		return slices.ContainsFunc(cs, func(c any) bool { return String(c) == category })
	case []string:
		return slices.Contains(cs, category)
	default:
		return false
	}
}

// Number converts a numeric expression result to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String renders a scalar expression result as an identifier.
// Whole floats print without a fractional part, so 7.0 and 7 both give "7".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return fmt.Sprintf("%.0f", s)
		}
	}
	return fmt.Sprint(v)
}
