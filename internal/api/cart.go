package api

import (
	"context"
	"fmt"
	"net/http"
)

// AddToCartRequest is the body for POST /cart/add. Color and size are
// optional variant selectors; omitted when empty.
type AddToCartRequest struct {
	ProductID     int64  `json:"product_id"`
	Quantity      int    `json:"quantity"`
	SelectedColor string `json:"selected_color,omitempty"`
	SelectedSize  string `json:"selected_size,omitempty"`
}

type cartEnvelope struct {
	Cart *Cart `json:"cart"`
}

// GetCart fetches the caller's current server-side cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &env); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: missing cart", ErrMalformedResponse)
	}
	return env.Cart, nil
}

// AddToCart adds a product line and returns the server's new cart.
func (c *Client) AddToCart(ctx context.Context, req AddToCartRequest) (*Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/cart/add", req, &env); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: missing cart", ErrMalformedResponse)
	}
	return env.Cart, nil
}

// UpdateCartItem replaces an item's quantity and returns the new cart.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*Cart, error) {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}

	var env cartEnvelope
	path := fmt.Sprintf("/cart/update/%d", itemID)
	if err := c.do(ctx, http.MethodPut, path, body, &env); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: missing cart", ErrMalformedResponse)
	}
	return env.Cart, nil
}

// RemoveCartItem deletes an item and returns the server's new cart.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) (*Cart, error) {
	var env cartEnvelope
	path := fmt.Sprintf("/cart/remove/%d", itemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: missing cart", ErrMalformedResponse)
	}
	return env.Cart, nil
}

// ClearCart empties the cart. The backend acks without returning a cart
// object, so callers synthesize the empty state themselves.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}
