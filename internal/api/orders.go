package api

import (
	"context"
	"fmt"
	"net/http"
)

// CreateOrderRequest is the body for POST /orders: the delivery form
// plus the fixed delivery fee and payment method.
type CreateOrderRequest struct {
	FullName      string  `json:"full_name"`
	PhoneNumber   string  `json:"phone_number"`
	County        string  `json:"county"`
	Town          string  `json:"town"`
	Address       string  `json:"address"`
	DeliveryFee   float64 `json:"delivery_fee"`
	PaymentMethod string  `json:"payment_method"`
}

type orderEnvelope struct {
	Order *Order `json:"order"`
}

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

// CreateOrder places an order from the current cart. The idempotency
// key lets the backend collapse an accidental duplicate submission.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*Order, error) {
	var env orderEnvelope
	err := c.doWithHeaders(ctx, http.MethodPost, "/orders", req, &env, map[string]string{
		"Idempotency-Key": idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if env.Order == nil {
		return nil, fmt.Errorf("%w: missing order", ErrMalformedResponse)
	}
	return env.Order, nil
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var env orderEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &env); err != nil {
		return nil, err
	}
	if env.Order == nil {
		return nil, fmt.Errorf("%w: missing order", ErrMalformedResponse)
	}
	return env.Order, nil
}

// ListOrders fetches the caller's order history.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var env ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &env); err != nil {
		return nil, err
	}
	return env.Orders, nil
}
