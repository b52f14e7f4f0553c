package dto

import (
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
)

// CartResponse is the cart with its aggregates
type CartResponse struct {
	Items          []cart.Item       `json:"items"`
	TotalItems     int               `json:"total_items"`
	Total          valueobject.Money `json:"total"`
	FormattedTotal string            `json:"formatted_total"`
}

// NewCartResponse converts a cart snapshot
func NewCartResponse(s cart.Snapshot) CartResponse {
	items := s.Items
	if items == nil {
		items = []cart.Item{}
	}
	return CartResponse{
		Items:          items,
		TotalItems:     s.TotalItems,
		Total:          s.TotalPrice,
		FormattedTotal: s.FormattedTotal,
	}
}

// UpdateQuantityRequest sets an item's quantity; zero or less removes it
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CurrencyResponse describes how prices are displayed
type CurrencyResponse struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}
