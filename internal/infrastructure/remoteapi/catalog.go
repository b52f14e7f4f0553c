package remoteapi

import (
	"context"
	"net/http"
	"net/url"
)

type productList struct {
	Products []Record `json:"products"`
}

type categoryList struct {
	Categories []Record `json:"categories"`
}

// ListProducts fetches the product catalog. A response without a products
// key yields an empty list.
func (c *Client) ListProducts(ctx context.Context) ([]Record, error) {
	var out productList
	if err := c.do(ctx, request{op: "list products", method: http.MethodGet, path: "/products/list"}, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		return []Record{}, nil
	}
	return out.Products, nil
}

// ListCategories fetches the product categories
func (c *Client) ListCategories(ctx context.Context) ([]Record, error) {
	var out categoryList
	if err := c.do(ctx, request{op: "list categories", method: http.MethodGet, path: "/categories/list"}, &out); err != nil {
		return nil, err
	}
	if out.Categories == nil {
		return []Record{}, nil
	}
	return out.Categories, nil
}

// CreateProduct registers a product
func (c *Client) CreateProduct(ctx context.Context, form ProductForm) (Record, error) {
	return c.submit(ctx, "create product", http.MethodPost, "/products/register", form.fields(), form.Image, productImageField)
}

// UpdateProduct replaces a product's fields
func (c *Client) UpdateProduct(ctx context.Context, id string, form ProductForm) (Record, error) {
	return c.submit(ctx, "update product", http.MethodPut, "/products/update/"+url.PathEscape(id), form.fields(), form.Image, productImageField)
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, request{op: "delete product", method: http.MethodDelete, path: "/products/delete/" + url.PathEscape(id)}, &out)
	return out, err
}

// CreateCategory registers a category
func (c *Client) CreateCategory(ctx context.Context, form CategoryForm) (Record, error) {
	return c.submit(ctx, "create category", http.MethodPost, "/categories/register", form.fields(), form.Image, categoryImageField)
}

// UpdateCategory replaces a category's fields
func (c *Client) UpdateCategory(ctx context.Context, id string, form CategoryForm) (Record, error) {
	form.ID = id
	return c.submit(ctx, "update category", http.MethodPut, "/categories/update/"+url.PathEscape(id), form.fields(), form.Image, categoryImageField)
}

// DeleteCategory removes a category
func (c *Client) DeleteCategory(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, request{op: "delete category", method: http.MethodDelete, path: "/categories/delete/" + url.PathEscape(id)}, &out)
	return out, err
}

func (c *Client) submit(ctx context.Context, op, method, path string, fields [][2]string, image *Upload, imageField string) (Record, error) {
	body, contentType, err := encodeForm(fields, image, imageField)
	if err != nil {
		return nil, err
	}
	var out Record
	err = c.do(ctx, request{op: op, method: method, path: path, body: body, contentType: contentType}, &out)
	return out, err
}
