// Package catalog turns backend catalog records into products the storefront
// can list, filter and put in the cart.
package catalog

import (
	"encoding/json"
	"strings"

	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
)

// Product is a catalog entry with its fields coerced to canonical types
type Product struct {
	ID          cart.ItemID                `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Price       float64                    `json:"price"`
	Category    string                     `json:"category,omitempty"`
	CategoryID  string                     `json:"category_id,omitempty"`
	Image       string                     `json:"image,omitempty"`
	Attributes  map[string]json.RawMessage `json:"attributes,omitempty"`
}

// Category is a product category
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Candidate keys per field, in order of preference. The backend answers with
// Spanish keys; older payloads use English ones.
var (
	idKeys          = []string{"id", "ID", "_id"}
	nameKeys        = []string{"nombre", "name", "title"}
	priceKeys       = []string{"precio", "price"}
	descriptionKeys = []string{"descripcion", "description"}
	categoryKeys    = []string{"categoria", "category"}
	categoryIDKeys  = []string{"categoria_id", "category_id"}
	imageKeys       = []string{"imagen", "image_url", "image", "url_imagen"}

	categoryNameKeys = []string{"nombre", "Nombre", "name"}
)

// Normalize coerces a raw backend record into a Product. Unknown keys are
// kept in Attributes; a non-numeric price becomes zero.
func Normalize(raw map[string]json.RawMessage) Product {
	fields := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		fields[k] = v
	}

	var p Product
	if v, ok := take(fields, idKeys); ok {
		_ = p.ID.UnmarshalJSON(v)
	}
	if v, ok := take(fields, nameKeys); ok {
		p.Name = text(v)
	}
	if v, ok := take(fields, priceKeys); ok {
		p.Price = valueobject.ParseAmountFloat(v)
	}
	if v, ok := take(fields, descriptionKeys); ok {
		p.Description = text(v)
	}
	if v, ok := take(fields, categoryKeys); ok {
		p.Category = text(v)
	}
	if v, ok := take(fields, categoryIDKeys); ok {
		p.CategoryID = text(v)
	}
	if v, ok := take(fields, imageKeys); ok {
		p.Image = text(v)
	}

	// never let a leftover key shadow the cart's own fields
	delete(fields, "quantity")
	if len(fields) > 0 {
		p.Attributes = fields
	}
	return p
}

// NormalizeCategory coerces a raw backend record into a Category
func NormalizeCategory(raw map[string]json.RawMessage) Category {
	var c Category
	if v, ok := first(raw, idKeys); ok {
		c.ID = text(v)
	}
	if v, ok := first(raw, categoryNameKeys); ok {
		c.Name = text(v)
	}
	if v, ok := first(raw, imageKeys); ok {
		c.Image = text(v)
	}
	return c
}

// CartItem returns the product in the shape the cart stores
func (p Product) CartItem(qty int) cart.Item {
	attrs := make(map[string]json.RawMessage, len(p.Attributes)+4)
	for k, v := range p.Attributes {
		attrs[k] = append(json.RawMessage(nil), v...)
	}
	setText(attrs, "title", p.Name)
	setText(attrs, "description", p.Description)
	setText(attrs, "category", p.Category)
	setText(attrs, "image", p.Image)

	item := cart.Item{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  qty,
	}
	if len(attrs) > 0 {
		item.Attributes = attrs
	}
	return item
}

// Filter returns the products in category whose name contains query.
// An empty or "all" category matches every product; matching ignores case.
func Filter(products []Product, category, query string) []Product {
	category = strings.TrimSpace(category)
	query = strings.ToLower(strings.TrimSpace(query))
	anyCategory := category == "" || strings.EqualFold(category, "all")

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !anyCategory && !strings.EqualFold(p.Category, category) && !strings.EqualFold(p.CategoryID, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// take removes and returns the first present key
func take(fields map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	v, ok := first(fields, keys)
	for _, k := range keys {
		delete(fields, k)
	}
	return v, ok
}

func first(fields map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	s := strings.TrimSpace(string(v))
	return s == "" || s == "null"
}

// text reads a JSON string, or the literal text of any other JSON value
func text(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(v))
}

func setText(attrs map[string]json.RawMessage, key, value string) {
	if value == "" {
		return
	}
	if _, exists := attrs[key]; exists {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	attrs[key] = encoded
}
