package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/catalog"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/interfaces/http/dto"
	"github.com/sifnet/storefront/internal/interfaces/http/middleware"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
)

// CartStore is the cart state the handler reads and mutates
type CartStore interface {
	AddItem(item cart.Item)
	RemoveItem(id cart.ItemID)
	UpdateQuantity(id cart.ItemID, qty int)
	Clear()
	Find(id cart.ItemID) (cart.Item, bool)
	Snapshot() cart.Snapshot
}

// ProductAdder adds catalog products to the cart by id
type ProductAdder interface {
	AddToCart(ctx context.Context, id cart.ItemID, qty int) (cart.Item, error)
}

// CartHandler serves the cart endpoints
type CartHandler struct {
	BaseHandler
	store   CartStore
	catalog ProductAdder
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(store CartStore, catalog ProductAdder) *CartHandler {
	return &CartHandler{store: store, catalog: catalog}
}

// Routes returns the cart route group
func (h *CartHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("cart", "/cart")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.POST("/items", h.AddItem)
	g.PUT("/items/:id", h.UpdateQuantity)
	g.DELETE("/items/:id", h.RemoveItem)
	return g
}

// Get returns the cart
// GET /cart
func (h *CartHandler) Get(c *gin.Context) {
	h.Success(c, dto.NewCartResponse(h.store.Snapshot()))
}

// AddItem adds an item to the cart. The body is either a full product
// ({"id","name","price","quantity",...} or any catalog spelling such as
// "nombre" and "precio") or a catalog reference ({"product_id","quantity"}).
// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body must be a JSON object")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
		return
	}
	qty := cart.ParseQuantity(fields["quantity"])

	if ref, ok := fields["product_id"]; ok && string(ref) != "null" {
		h.addProduct(c, ref, qty)
		return
	}

	item := catalog.Normalize(fields).CartItem(qty)
	if item.ID == "" {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", middleware.GetRequestID(c),
			[]dto.ValidationDetail{{Field: "id", Message: "This field is required"}}))
		return
	}

	h.store.AddItem(item)
	h.Created(c, dto.NewCartResponse(h.store.Snapshot()))
}

func (h *CartHandler) addProduct(c *gin.Context, ref json.RawMessage, qty int) {
	var id cart.ItemID
	if err := id.UnmarshalJSON(ref); err != nil || id == "" {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", middleware.GetRequestID(c),
			[]dto.ValidationDetail{{Field: "product_id", Message: "Invalid value"}}))
		return
	}
	if h.catalog == nil {
		h.NotFound(c, "Catalog is not available")
		return
	}

	if _, err := h.catalog.AddToCart(c.Request.Context(), id, qty); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewCartResponse(h.store.Snapshot()))
}

// UpdateQuantity sets an item's quantity; zero or less removes it
// PUT /cart/items/:id
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	id := cart.ItemID(c.Param("id"))
	if _, ok := h.store.Find(id); !ok {
		h.NotFound(c, "Item is not in the cart")
		return
	}

	h.store.UpdateQuantity(id, *req.Quantity)
	h.Success(c, dto.NewCartResponse(h.store.Snapshot()))
}

// RemoveItem removes an item; removing an absent item is not an error
// DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.store.RemoveItem(cart.ItemID(c.Param("id")))
	h.Success(c, dto.NewCartResponse(h.store.Snapshot()))
}

// Clear empties the cart
// DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	h.store.Clear()
	h.Success(c, dto.NewCartResponse(h.store.Snapshot()))
}
