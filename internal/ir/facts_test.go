package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFacts() *Facts {
	return &Facts{
		Customer: map[string]any{"customerGroup": "vip"},
		Items: []Item{
			{ID: "1", SKU: "A", CentAmount: 5000, Quantity: 2, Categories: []string{"shoes"}},
			{ID: "2", SKU: "B", CentAmount: 3000, Quantity: 1, Categories: []string{"trainers"}},
		},
	}
}

func TestFactsJSONLegacyProducts(t *testing.T) {
	src := `{"customer": {"customerGroup": "vip"}, "products": [{"id": "1", "sku": "A", "centAmount": 100, "quantity": 1, "categories": ["x"]}], "total": 100}`

	var f Facts
	require.NoError(t, json.Unmarshal([]byte(src), &f))

	require.Len(t, f.Items, 1)
	assert.Equal(t, "A", f.Items[0].SKU)
	require.NotNil(t, f.Total)
	assert.Equal(t, int64(100), *f.Total)
}

func TestFactsJSONItemsWinOverProducts(t *testing.T) {
	src := `{"items": [{"id": "1"}], "products": [{"id": "2"}, {"id": "3"}]}`

	var f Facts
	require.NoError(t, json.Unmarshal([]byte(src), &f))
	require.Len(t, f.Items, 1)
	assert.Equal(t, "1", f.Items[0].ID)
}

func TestFactsIndexOf(t *testing.T) {
	f := sampleFacts()
	assert.Equal(t, 1, f.IndexOf("2"))
	assert.Equal(t, -1, f.IndexOf("missing"))
}

func TestFactsProductCount(t *testing.T) {
	assert.Equal(t, 3, sampleFacts().ProductCount())
}

func TestFactsCloneIsDeep(t *testing.T) {
	f := sampleFacts()
	c := f.Clone()

	c.Items[0].Quantity = 0
	c.Items[0].Categories[0] = "changed"
	c.Items = c.Items[:1]

	assert.Equal(t, 2, f.Items[0].Quantity)
	assert.Equal(t, "shoes", f.Items[0].Categories[0])
	assert.Len(t, f.Items, 2)
}

func TestFactsView(t *testing.T) {
	f := sampleFacts()
	total := int64(13000)
	f.Total = &total
	f.Discounts = []Discount{{PromotionID: "p", Type: DiscountTypeOrder, CentAmount: -5}}

	view := f.View()

	items, ok := view["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, view["items"], view["products"])

	first := items[0].(map[string]any)
	assert.Equal(t, "A", first["sku"])
	assert.Equal(t, 5000, first["centAmount"])
	assert.Equal(t, []any{"shoes"}, first["categories"])

	assert.Equal(t, int64(13000), view["total"])
	assert.Equal(t, "vip", view["customer"].(map[string]any)["customerGroup"])

	discounts := view["discounts"].([]any)
	require.Len(t, discounts, 1)
	_, hasSKU := discounts[0].(map[string]any)["sku"]
	assert.False(t, hasSKU, "order discounts carry no sku")
}

func TestFactsViewWithoutTotal(t *testing.T) {
	_, ok := sampleFacts().View()["total"]
	assert.False(t, ok)
}
