package api

import (
	"context"
	"fmt"
	"net/http"
)

// InitiatePaymentRequest is the body for POST /payments/mpesa/initiate.
// It asks the backend to send an STK push to the given phone number.
type InitiatePaymentRequest struct {
	OrderID     int64  `json:"order_id"`
	PhoneNumber string `json:"phone_number"`
}

// InitiatePaymentResponse is the backend's ack for an initiated push.
type InitiatePaymentResponse struct {
	Message           string `json:"message"`
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	TransactionID     string `json:"transaction_id"`
	CustomerMessage   string `json:"customer_message"`
}

// InitiateMpesaPayment sends the STK push prompt for an order.
func (c *Client) InitiateMpesaPayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	var resp InitiatePaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments/mpesa/initiate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPaymentStatus reports the settlement state of an order's payment.
func (c *Client) GetPaymentStatus(ctx context.Context, orderID int64) (*PaymentStatus, error) {
	var status PaymentStatus
	path := fmt.Sprintf("/payments/%d/status", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	if status.OrderID == 0 {
		return nil, fmt.Errorf("%w: missing payment status", ErrMalformedResponse)
	}
	return &status, nil
}

// SimulatePaymentSuccess marks an order's payment as settled. Sandbox
// backends only; production settlement arrives via the M-Pesa callback.
func (c *Client) SimulatePaymentSuccess(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/payments/mpesa/simulate-success/%d", orderID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
