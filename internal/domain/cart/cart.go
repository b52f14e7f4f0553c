package cart

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
)

// MaxQuantity is the largest quantity a single entry can hold. Larger
// quantities saturate at this value.
const MaxQuantity = math.MaxInt32

// Cart is an immutable, ordered collection of items with unique ids.
// Every transition returns a new Cart; the receiver is left untouched, which
// lets the Store hand snapshots to the persister without copying.
type Cart struct {
	items []Item
}

// New builds a cart from items, applying the same rules as Add so that
// duplicated ids merge and missing quantities default to one.
func New(items ...Item) Cart {
	c := Cart{}
	for _, item := range items {
		c = c.Add(item)
	}
	return c
}

// Len returns the number of distinct entries
func (c Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no entries
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a deep copy of the entries in display order
func (c Cart) Items() []Item {
	out := make([]Item, len(c.items))
	for i, item := range c.items {
		out[i] = item.Clone()
	}
	return out
}

// Find returns a copy of the entry with the given id
func (c Cart) Find(id ItemID) (Item, bool) {
	if idx := c.indexOf(id); idx >= 0 {
		return c.items[idx].Clone(), true
	}
	return Item{}, false
}

// Add merges item into the cart. The quantity added is item.Quantity, or 1
// when it is zero or negative. When the id is already present only the
// quantity accumulates; the existing entry keeps its name, price and
// attributes. Quantities saturate at MaxQuantity.
func (c Cart) Add(item Item) Cart {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	qty = ClampQuantity(qty)

	items := c.copyItems()
	if idx := c.indexOf(item.ID); idx >= 0 {
		items[idx].Quantity = addQuantity(items[idx].Quantity, qty)
		return Cart{items: items}
	}

	added := item.Clone()
	added.Quantity = qty
	return Cart{items: append(items, added)}
}

// Remove drops the entry with the given id. Unknown ids are a no-op.
func (c Cart) Remove(id ItemID) Cart {
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}
	items := make([]Item, 0, len(c.items)-1)
	items = append(items, c.items[:idx]...)
	items = append(items, c.items[idx+1:]...)
	return Cart{items: items}
}

// UpdateQuantity sets the quantity of an entry. A quantity of zero or less
// removes it. Unknown ids are a no-op. Quantities saturate at MaxQuantity.
func (c Cart) UpdateQuantity(id ItemID, qty int) Cart {
	if qty <= 0 {
		return c.Remove(id)
	}
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}
	items := c.copyItems()
	items[idx].Quantity = ClampQuantity(qty)
	return Cart{items: items}
}

// Subtract takes placed lines out of the cart. Each matching entry loses the
// placed quantity and is dropped once nothing is left. Entries that were
// not placed, and quantities added after placed was read, stay in the cart.
func (c Cart) Subtract(placed []Item) Cart {
	out := c
	for _, line := range placed {
		idx := out.indexOf(line.ID)
		if idx < 0 || line.Quantity <= 0 {
			continue
		}
		remaining := out.items[idx].Quantity - line.Quantity
		if remaining <= 0 {
			out = out.Remove(line.ID)
			continue
		}
		items := out.copyItems()
		items[idx].Quantity = remaining
		out = Cart{items: items}
	}
	return out
}

// ClampQuantity limits qty to MaxQuantity
func ClampQuantity(qty int) int {
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}

func addQuantity(a, b int) int {
	if b > MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// Clear returns an empty cart
func (c Cart) Clear() Cart {
	return Cart{}
}

// TotalItems returns the sum of quantities across entries
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the sum of unit price times quantity in currency
func (c Cart) TotalPrice(currency valueobject.Currency) valueobject.Money {
	sum := decimal.Zero
	for _, item := range c.items {
		sum = sum.Add(item.LineTotal())
	}
	total, err := valueobject.NewMoney(sum, currency)
	if err != nil {
		total, _ = valueobject.NewMoney(sum, valueobject.DefaultCurrency)
	}
	return total
}

// MarshalJSON writes the cart as a JSON array of items. An empty cart is
// written as [] rather than null.
func (c Cart) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.items)
}

// UnmarshalJSON reads a JSON array of items and normalizes it with New
func (c *Cart) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = New(items...)
	return nil
}

func (c Cart) indexOf(id ItemID) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// copyItems returns a shallow copy of the entries with room for one more.
// Attributes maps are shared, which is safe because no transition writes
// into them.
func (c Cart) copyItems() []Item {
	items := make([]Item, len(c.items), len(c.items)+1)
	copy(items, c.items)
	return items
}
