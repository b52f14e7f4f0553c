// Package checkout turns the cart into an order and hands it to the channel
// that completes the purchase.
package checkout

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
)

// DefaultGreeting opens the order summary
const DefaultGreeting = "Hola! Quiero comprar:"

// Order is a snapshot of the cart at checkout
type Order struct {
	ID             uuid.UUID         `json:"id"`
	Items          []cart.Item       `json:"items"`
	TotalItems     int               `json:"total_items"`
	Total          valueobject.Money `json:"total"`
	FormattedTotal string            `json:"formatted_total"`
	Summary        string            `json:"summary"`
	Customer       *auth.User        `json:"customer,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// BuildSummary renders the human-readable order line:
// "<greeting> <name> (x<qty>), <name> (x<qty>). Total: <formatted total>"
func BuildSummary(greeting string, items []cart.Item, formattedTotal string) string {
	greeting = strings.TrimSpace(greeting)
	if greeting == "" {
		greeting = DefaultGreeting
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, itemLabel(item)+" (x"+strconv.Itoa(item.Quantity)+")")
	}

	var b strings.Builder
	b.WriteString(greeting)
	b.WriteByte(' ')
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(". Total: ")
	b.WriteString(formattedTotal)
	return b.String()
}

func itemLabel(item cart.Item) string {
	if name := strings.TrimSpace(item.Name); name != "" {
		return name
	}
	var title string
	if item.Attribute("title", &title) && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return item.ID.String()
}
