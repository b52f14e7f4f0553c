package catalog

import (
	"encoding/json"
	"testing"

	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestNormalize(t *testing.T) {
	t.Run("spanish keys", func(t *testing.T) {
		p := Normalize(record(t, `{
			"id": 12,
			"nombre": "Router AX3000",
			"descripcion": "Doble banda",
			"precio": "89.90",
			"categoria": "Redes",
			"categoria_id": 3,
			"image_url": "https://cdn/r.png",
			"stock": 4
		}`))

		assert.Equal(t, cart.ItemID("12"), p.ID)
		assert.Equal(t, "Router AX3000", p.Name)
		assert.Equal(t, "Doble banda", p.Description)
		assert.Equal(t, 89.90, p.Price)
		assert.Equal(t, "Redes", p.Category)
		assert.Equal(t, "3", p.CategoryID)
		assert.Equal(t, "https://cdn/r.png", p.Image)
		assert.Equal(t, map[string]json.RawMessage{"stock": json.RawMessage(`4`)}, p.Attributes)
	})

	t.Run("english keys with title fallback", func(t *testing.T) {
		p := Normalize(record(t, `{"id":"sku-1","title":"Cable","price":5,"category":"Accesorios","image":"c.png"}`))
		assert.Equal(t, cart.ItemID("sku-1"), p.ID)
		assert.Equal(t, "Cable", p.Name)
		assert.Equal(t, 5.0, p.Price)
		assert.Equal(t, "Accesorios", p.Category)
		assert.Nil(t, p.Attributes)
	})

	t.Run("nombre wins over name and title", func(t *testing.T) {
		p := Normalize(record(t, `{"id":1,"nombre":"A","name":"B","title":"C"}`))
		assert.Equal(t, "A", p.Name)
		assert.Nil(t, p.Attributes)
	})

	t.Run("null falls through to next key", func(t *testing.T) {
		p := Normalize(record(t, `{"id":1,"nombre":null,"name":"B"}`))
		assert.Equal(t, "B", p.Name)
	})

	t.Run("non numeric price is zero", func(t *testing.T) {
		p := Normalize(record(t, `{"id":1,"precio":"consultar"}`))
		assert.Equal(t, 0.0, p.Price)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		raw := record(t, `{"id":1,"nombre":"A","extra":true}`)
		_ = Normalize(raw)
		assert.Len(t, raw, 3)
	})
}

func TestNormalizeCategory(t *testing.T) {
	c := NormalizeCategory(record(t, `{"id":4,"Nombre":"Redes","imagen":"r.png"}`))
	assert.Equal(t, Category{ID: "4", Name: "Redes", Image: "r.png"}, c)
}

func TestProduct_CartItem(t *testing.T) {
	p := Product{
		ID:         "7",
		Name:       "Switch",
		Price:      25.5,
		Category:   "Redes",
		Image:      "s.png",
		Attributes: map[string]json.RawMessage{"stock": json.RawMessage(`2`)},
	}

	item := p.CartItem(3)
	assert.Equal(t, cart.ItemID("7"), item.ID)
	assert.Equal(t, "Switch", item.Name)
	assert.Equal(t, 25.5, item.UnitPrice)
	assert.Equal(t, 3, item.Quantity)

	var title string
	require.True(t, item.Attribute("title", &title))
	assert.Equal(t, "Switch", title)
	assert.JSONEq(t, `2`, string(item.Attributes["stock"]))
	assert.NotContains(t, item.Attributes, "description")

	item.Attributes["stock"][0] = '9'
	assert.JSONEq(t, `2`, string(p.Attributes["stock"]))
}

func TestFilter(t *testing.T) {
	products := []Product{
		{ID: "1", Name: "Router AX3000", Category: "Redes", CategoryID: "3"},
		{ID: "2", Name: "Cable HDMI", Category: "Accesorios", CategoryID: "5"},
		{ID: "3", Name: "Router Mesh", Category: "Redes", CategoryID: "3"},
	}

	ids := func(ps []Product) []cart.ItemID {
		out := make([]cart.ItemID, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		category string
		query    string
		want     []cart.ItemID
	}{
		{"everything", "", "", []cart.ItemID{"1", "2", "3"}},
		{"all keyword", "all", "", []cart.ItemID{"1", "2", "3"}},
		{"by category name", "redes", "", []cart.ItemID{"1", "3"}},
		{"by category id", "5", "", []cart.ItemID{"2"}},
		{"by query", "", "  ROUTER ", []cart.ItemID{"1", "3"}},
		{"category and query", "Redes", "mesh", []cart.ItemID{"3"}},
		{"no match", "Audio", "", []cart.ItemID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(products, tt.category, tt.query)))
		})
	}
}
