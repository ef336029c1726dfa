package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, staticToken("test-token"))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

// ============================================
// Request shape
// ============================================

func TestClient_SetsAuthAndRequestHeaders(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		writeJSON(t, w, http.StatusOK, map[string]any{"cart": map[string]any{"id": 1, "items": []any{}}})
	})

	_, err := client.GetCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/cart", got.URL.Path)
}

func TestClient_AddToCart_SendsBodyAndPath(t *testing.T) {
	var body AddToCartRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/add", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{"cart": map[string]any{"id": 1, "items": []any{}, "total": 1000}})
	})

	cart, err := client.AddToCart(context.Background(), AddToCartRequest{
		ProductID: 42, Quantity: 2, SelectedColor: "ruby",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), body.ProductID)
	assert.Equal(t, 2, body.Quantity)
	assert.Equal(t, "ruby", body.SelectedColor)
	assert.Equal(t, 1000.0, cart.Total)
}

func TestClient_UpdateAndRemovePaths(t *testing.T) {
	var paths []string
	var methods []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		methods = append(methods, r.Method)
		writeJSON(t, w, http.StatusOK, map[string]any{"cart": map[string]any{"id": 1, "items": []any{}}})
	})

	_, err := client.UpdateCartItem(context.Background(), 11, 3)
	require.NoError(t, err)
	_, err = client.RemoveCartItem(context.Background(), 11)
	require.NoError(t, err)

	assert.Equal(t, []string{"/cart/update/11", "/cart/remove/11"}, paths)
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestClient_CreateOrder_SendsIdempotencyKey(t *testing.T) {
	var key string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		writeJSON(t, w, http.StatusCreated, map[string]any{"order": map[string]any{"id": 99}})
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		FullName: "Wanjiku Kamau", PhoneNumber: "+254712345678",
		County: "Nairobi", Town: "Westlands", Address: "Chiromo Lane",
		DeliveryFee: 500, PaymentMethod: "mpesa",
	}, "idem-123")

	require.NoError(t, err)
	assert.Equal(t, int64(99), order.ID)
	assert.Equal(t, "idem-123", key)
}

// ============================================
// Error convention
// ============================================

func TestClient_SurfacesServerMessageVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
	})

	_, err := client.AddToCart(context.Background(), AddToCartRequest{})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "product_id is required", apiErr.Message)
}

func TestClient_GenericMessageWhenBodyHasNone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetCart(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request failed with status 502", apiErr.Message)
}

func TestClient_MissingEnvelopeFailsLoudly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"unexpected": true})
	})

	_, err := client.GetCart(context.Background())

	assert.ErrorIs(t, err, ErrMalformedResponse)
}

// ============================================
// Payments
// ============================================

func TestClient_PaymentEndpoints(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/payments/mpesa/initiate":
			writeJSON(t, w, http.StatusOK, map[string]string{
				"message": "STK push initiated", "customer_message": "Enter your PIN",
			})
		case "/payments/5/status":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"order_id": 5, "payment_status": "completed", "order_status": "processing",
			})
		default:
			writeJSON(t, w, http.StatusOK, map[string]string{"message": "ok"})
		}
	})
	ctx := context.Background()

	resp, err := client.InitiateMpesaPayment(ctx, InitiatePaymentRequest{OrderID: 5, PhoneNumber: "+254712345678"})
	require.NoError(t, err)
	assert.Equal(t, "Enter your PIN", resp.CustomerMessage)

	status, err := client.GetPaymentStatus(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, status.PaymentStatus)

	require.NoError(t, client.SimulatePaymentSuccess(ctx, 5))

	assert.Equal(t, []string{
		"POST /payments/mpesa/initiate",
		"GET /payments/5/status",
		"POST /payments/mpesa/simulate-success/5",
	}, paths)
}

// ============================================
// Auth
// ============================================

func TestClient_Login_RequiresTokenAndUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"access_token": ""})
	})

	_, err := client.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})

	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_Login_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token": "jwt-token",
			"user":         map[string]any{"id": 7, "email": "wanjiku@example.com"},
		})
	})

	resp, err := client.Login(context.Background(), Credentials{Email: "wanjiku@example.com", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.AccessToken)
	assert.Equal(t, int64(7), resp.User.ID)
}
