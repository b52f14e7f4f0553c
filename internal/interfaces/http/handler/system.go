package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/interfaces/http/dto"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
)

// HealthResponse reports that the service is up
type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// SystemHandler serves health and display settings
type SystemHandler struct {
	BaseHandler
	currency  dto.CurrencyResponse
	storage   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(currencyCode, currencySymbol, storageDriver string) *SystemHandler {
	return &SystemHandler{
		currency:  dto.CurrencyResponse{Code: currencyCode, Symbol: currencySymbol},
		storage:   storageDriver,
		startTime: time.Now(),
	}
}

// Routes returns the system route group
func (h *SystemHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("system", "")
	g.GET("/health", h.Health)
	g.GET("/currency", h.Currency)
	return g
}

// Health reports liveness
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Storage:   h.storage,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Currency returns the display currency
// GET /currency
func (h *SystemHandler) Currency(c *gin.Context) {
	h.Success(c, h.currency)
}
