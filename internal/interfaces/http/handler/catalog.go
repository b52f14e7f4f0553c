package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sifnet/storefront/internal/application/catalog"
	"github.com/sifnet/storefront/internal/domain/cart"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"github.com/sifnet/storefront/internal/interfaces/http/middleware"
	"github.com/sifnet/storefront/internal/interfaces/http/router"
)

// CatalogHandler serves product and category endpoints
type CatalogHandler struct {
	BaseHandler
	svc *catalog.Service
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Routes returns the catalog route group
func (h *CatalogHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("catalog", "")

	products := g.Group("products", "/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)

	g.Group("categories", "/categories").GET("", h.ListCategories)

	admin := g.Group("admin", "/admin")
	admin.Group("admin-products", "/products").
		POST("", h.CreateProduct).
		PUT("/:id", h.UpdateProduct).
		DELETE("/:id", h.DeleteProduct)
	admin.Group("admin-categories", "/categories").
		POST("", h.CreateCategory).
		PUT("/:id", h.UpdateCategory).
		DELETE("/:id", h.DeleteCategory)

	return g
}

// ListProducts lists the catalog, optionally narrowed by category and name
// GET /products?category=&q=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.svc.Search(c.Request.Context(), c.Query("category"), c.Query("q"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// GetProduct returns one product
// GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.svc.GetProduct(c.Request.Context(), cart.ItemID(c.Param("id")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ListCategories lists the product categories
// GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

// CreateProduct registers a product from a multipart or JSON body
// POST /admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	in, ok := h.bindProduct(c)
	if !ok {
		return
	}
	out, err := h.svc.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, out)
}

// UpdateProduct replaces a product
// PUT /admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	in, ok := h.bindProduct(c)
	if !ok {
		return
	}
	out, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// DeleteProduct removes a product
// DELETE /admin/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	out, err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// CreateCategory registers a category
// POST /admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	in, ok := h.bindCategory(c)
	if !ok {
		return
	}
	out, err := h.svc.CreateCategory(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, out)
}

// UpdateCategory replaces a category
// PUT /admin/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	in, ok := h.bindCategory(c)
	if !ok {
		return
	}
	out, err := h.svc.UpdateCategory(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// DeleteCategory removes a category
// DELETE /admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	out, err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

func (h *CatalogHandler) bindProduct(c *gin.Context) (catalog.ProductInput, bool) {
	var in catalog.ProductInput
	if err := c.ShouldBind(&in); err != nil {
		middleware.HandleBindError(c, err)
		return in, false
	}
	upload, err := formUpload(c, "url_imagen")
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded image")
		return in, false
	}
	in.Image = upload
	return in, true
}

func (h *CatalogHandler) bindCategory(c *gin.Context) (catalog.CategoryInput, bool) {
	var in catalog.CategoryInput
	if err := c.ShouldBind(&in); err != nil {
		middleware.HandleBindError(c, err)
		return in, false
	}
	upload, err := formUpload(c, "imagen")
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded image")
		return in, false
	}
	in.Image = upload
	return in, true
}

// formUpload reads an optional multipart file. Files over the size limit are
// read one byte past it so the service can reject them.
func formUpload(c *gin.Context, field string) (*remoteapi.Upload, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil
	}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, catalog.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	return &remoteapi.Upload{Filename: header.Filename, Data: data}, nil
}
