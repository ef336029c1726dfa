package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type productsEnvelope struct {
	Products []Product `json:"products"`
}

type productEnvelope struct {
	Product *Product `json:"product"`
}

type categoriesEnvelope struct {
	Categories []Category `json:"categories"`
}

// ListProducts fetches products, optionally scoped to a category slug.
func (c *Client) ListProducts(ctx context.Context, categorySlug string) ([]Product, error) {
	path := "/products"
	if categorySlug != "" {
		path += "?category=" + url.QueryEscape(categorySlug)
	}
	var env productsEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var env productEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", productID), nil, &env); err != nil {
		return nil, err
	}
	if env.Product == nil {
		return nil, fmt.Errorf("%w: missing product", ErrMalformedResponse)
	}
	return env.Product, nil
}

// ListFeaturedProducts fetches the storefront's featured products.
func (c *Client) ListFeaturedProducts(ctx context.Context) ([]Product, error) {
	var env productsEnvelope
	if err := c.do(ctx, http.MethodGet, "/products/featured", nil, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

// ListCategories fetches all product categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var env categoriesEnvelope
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &env); err != nil {
		return nil, err
	}
	return env.Categories, nil
}
