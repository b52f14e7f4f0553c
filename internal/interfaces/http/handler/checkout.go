package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/checkout"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
)

// CheckoutHandler places orders
type CheckoutHandler struct {
	BaseHandler
	svc *checkout.Service
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// Routes returns the checkout route group
func (h *CheckoutHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("checkout", "/checkout")
	g.GET("/preview", h.Preview)
	g.POST("", h.Checkout)
	return g
}

// Preview shows the order the current cart would produce
// GET /checkout/preview
func (h *CheckoutHandler) Preview(c *gin.Context) {
	order, err := h.svc.Preview()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Checkout places the order and empties the cart
// POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	receipt, err := h.svc.Checkout(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}
