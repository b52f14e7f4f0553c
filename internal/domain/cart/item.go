package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
)

// JSON keys owned by Item. Every other key is kept in Attributes.
const (
	keyID       = "id"
	keyName     = "name"
	keyPrice    = "price"
	keyQuantity = "quantity"
)

var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// ItemID identifies a product inside a cart. Upstream ids arrive either as
// JSON numbers or strings; numeric ids are written back as numbers.
type ItemID string

// String implements fmt.Stringer
func (id ItemID) String() string {
	return string(id)
}

// MarshalJSON implements json.Marshaler
func (id ItemID) MarshalJSON() ([]byte, error) {
	if jsonNumberPattern.MatchString(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or a number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// Item is one distinct product held in the cart
type Item struct {
	ID        ItemID
	Name      string
	UnitPrice float64
	Quantity  int

	// Attributes holds every other product field verbatim (image, category,
	// description, ...). The cart never interprets them.
	Attributes map[string]json.RawMessage
}

// LineTotal returns UnitPrice * Quantity as an exact decimal.
// A non-finite UnitPrice counts as zero.
func (i Item) LineTotal() decimal.Decimal {
	return valueobject.ParseAmount(i.UnitPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Attribute decodes a preserved attribute into v. It returns false when the
// attribute is absent or does not decode into v.
func (i Item) Attribute(key string, v any) bool {
	raw, ok := i.Attributes[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	out := i
	if i.Attributes != nil {
		out.Attributes = make(map[string]json.RawMessage, len(i.Attributes))
		for k, v := range i.Attributes {
			out.Attributes[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// MarshalJSON writes the item as a flat JSON object: the canonical keys plus
// every preserved attribute.
func (i Item) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(i.Attributes)+4)
	for k, v := range i.Attributes {
		if json.Valid(v) {
			fields[k] = v
		}
	}

	id, err := i.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(i.Name)
	if err != nil {
		return nil, err
	}
	price := i.UnitPrice
	if math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}

	fields[keyID] = id
	fields[keyName] = name
	fields[keyPrice] = json.RawMessage(strconv.FormatFloat(price, 'f', -1, 64))
	fields[keyQuantity] = json.RawMessage(strconv.Itoa(i.Quantity))

	return json.Marshal(fields)
}

// UnmarshalJSON reads a flat JSON object. Prices and quantities are read
// leniently: numeric strings are accepted, anything else becomes zero.
func (i *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Item
	if raw, ok := fields[keyID]; ok {
		if err := out.ID.UnmarshalJSON(raw); err != nil {
			return err
		}
		delete(fields, keyID)
	}
	if raw, ok := fields[keyName]; ok {
		out.Name = decodeText(raw)
		delete(fields, keyName)
	}
	if raw, ok := fields[keyPrice]; ok {
		out.UnitPrice = valueobject.ParseAmountFloat(raw)
		delete(fields, keyPrice)
	}
	if raw, ok := fields[keyQuantity]; ok {
		out.Quantity = decodeQuantity(raw)
		delete(fields, keyQuantity)
	}
	if len(fields) > 0 {
		out.Attributes = fields
	}

	*i = out
	return nil
}

// decodeText returns a JSON string's value, or the raw JSON text for any
// other kind of value so nothing is silently dropped.
func decodeText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// decodeQuantity reads a lenient quantity, saturating at MaxQuantity.
// Negative values are returned as zero.
func decodeQuantity(raw json.RawMessage) int {
	return ParseQuantity(raw)
}

// ParseQuantity reads a quantity from any numeric-looking value, truncating
// fractions. Non-positive or unreadable values become zero and values above
// MaxQuantity saturate.
func ParseQuantity(v any) int {
	q := valueobject.ParseAmount(v).Truncate(0)
	if !q.IsPositive() {
		return 0
	}
	if q.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return MaxQuantity
	}
	return int(q.IntPart())
}
