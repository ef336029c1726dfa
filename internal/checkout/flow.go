package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/example/duka-storefront/internal/api"
)

// Stage is a step of the checkout flow, strictly ordered.
type Stage string

const (
	StageReview   Stage = "review"
	StageDelivery Stage = "delivery"
	StagePayment  Stage = "payment"
)

var (
	ErrInvalidTransition  = errors.New("invalid checkout stage transition")
	ErrOrderLocked        = errors.New("cannot leave payment after placing an order")
	ErrMissingField       = errors.New("required delivery field is missing")
	ErrInvalidPhone       = errors.New("phone number is not a valid M-Pesa number")
	ErrNotPaymentStage    = errors.New("orders can only be placed from the payment stage")
	ErrOrderAlreadyPlaced = errors.New("an order has already been placed for this session")
)

// validTransitions defines allowed stage transitions. Retreating from
// payment is additionally blocked once an order exists.
var validTransitions = map[Stage][]Stage{
	StageReview:   {StageDelivery},
	StageDelivery: {StagePayment, StageReview},
	StagePayment:  {StageDelivery},
}

// mpesaPhonePattern accepts Kenyan mobile numbers in international
// (+2547XXXXXXXX, +2541XXXXXXXX) or national (07.../01...) form.
var mpesaPhonePattern = regexp.MustCompile(`^(?:\+254|0)(?:7|1)\d{8}$`)

// DeliveryForm holds the delivery details collected at the second stage.
type DeliveryForm struct {
	FullName    string
	PhoneNumber string
	County      string
	Town        string
	Address     string
}

// Validate checks that every field is filled and that the phone number
// can receive an M-Pesa prompt. The phone format gates progression
// because payment initiation depends on it.
func (f DeliveryForm) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"full name", f.FullName},
		{"phone number", f.PhoneNumber},
		{"county", f.County},
		{"town", f.Town},
		{"address", f.Address},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}
	if !mpesaPhonePattern.MatchString(normalizePhone(f.PhoneNumber)) {
		return ErrInvalidPhone
	}
	return nil
}

func normalizePhone(phone string) string {
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

// Redirect is the entry guard's verdict.
type Redirect int

const (
	RedirectNone  Redirect = iota // render checkout
	RedirectLogin                 // unauthenticated
	RedirectCart                  // empty cart
)

// Identity is the slice of the session gate the flow needs.
type Identity interface {
	IsAuthenticated() bool
	CurrentUser() *api.User
}

// CartState is the slice of the cart synchronizer the flow needs.
type CartState interface {
	Empty() bool
	Total() float64
}

// OrderPlacer creates orders; *api.Client satisfies it.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest, idempotencyKey string) (*api.Order, error)
}

// Flow drives one checkout session: review -> delivery -> payment, with
// an entry guard over authentication and cart state, and at most one
// order placement. It is ephemeral; a new session starts at review.
type Flow struct {
	identity Identity
	cart     CartState
	orders   OrderPlacer

	deliveryFee float64
	idemKey     string

	mu      sync.Mutex
	stage   Stage
	form    DeliveryForm
	orderID int64
}

// NewFlow starts a checkout session at the review stage. The delivery
// form is prefilled from the authenticated user's profile.
func NewFlow(identity Identity, cartState CartState, orders OrderPlacer, deliveryFee float64) *Flow {
	f := &Flow{
		identity:    identity,
		cart:        cartState,
		orders:      orders,
		deliveryFee: deliveryFee,
		idemKey:     uuid.NewString(),
		stage:       StageReview,
	}
	if user := identity.CurrentUser(); user != nil {
		f.form.FullName = user.FullName
		f.form.PhoneNumber = user.PhoneNumber
	}
	return f
}

// Evaluate is the entry guard. It must be re-run on every auth or cart
// change, not just once: both resolve asynchronously and may flip after
// the first check.
func (f *Flow) Evaluate() Redirect {
	if !f.identity.IsAuthenticated() {
		return RedirectLogin
	}
	if f.cart.Empty() {
		return RedirectCart
	}
	return RedirectNone
}

// Stage returns the current checkout stage.
func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// SetDelivery records the delivery form. Values are validated when the
// flow advances to payment, not here.
func (f *Flow) SetDelivery(form DeliveryForm) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
}

// Delivery returns the current delivery form.
func (f *Flow) Delivery() DeliveryForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Next advances the flow one stage. Review -> delivery is always
// permitted; delivery -> payment requires a complete, valid form.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.stage {
	case StageReview:
		return f.transition(StageDelivery)
	case StageDelivery:
		if err := f.form.Validate(); err != nil {
			return err
		}
		return f.transition(StagePayment)
	default:
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, f.stage)
	}
}

// Back retreats one stage. Payment cannot be left once an order exists.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.stage {
	case StageDelivery:
		return f.transition(StageReview)
	case StagePayment:
		if f.orderID != 0 {
			return ErrOrderLocked
		}
		return f.transition(StageDelivery)
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, f.stage)
	}
}

func (f *Flow) transition(target Stage) error {
	for _, allowed := range validTransitions[f.stage] {
		if allowed == target {
			f.stage = target
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.stage, target)
}

// OrderID returns the placed order's id, or 0 when no order exists yet.
func (f *Flow) OrderID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderID
}

// Total is the checkout total: cart subtotal plus the delivery fee.
func (f *Flow) Total() float64 {
	return f.cart.Total() + f.deliveryFee
}

// PlaceOrder creates the order from the delivery form with the fixed
// delivery fee and M-Pesa as the payment method. It succeeds at most
// once per session; a failure leaves the session retryable. The same
// idempotency key is sent on every retry so the backend can collapse
// duplicates.
func (f *Flow) PlaceOrder(ctx context.Context) (*api.Order, error) {
	f.mu.Lock()
	if f.stage != StagePayment {
		f.mu.Unlock()
		return nil, ErrNotPaymentStage
	}
	if f.orderID != 0 {
		f.mu.Unlock()
		return nil, ErrOrderAlreadyPlaced
	}
	form := f.form
	f.mu.Unlock()

	order, err := f.orders.CreateOrder(ctx, api.CreateOrderRequest{
		FullName:      form.FullName,
		PhoneNumber:   normalizePhone(form.PhoneNumber),
		County:        form.County,
		Town:          form.Town,
		Address:       form.Address,
		DeliveryFee:   f.deliveryFee,
		PaymentMethod: "mpesa",
	}, f.idemKey)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.orderID = order.ID
	f.mu.Unlock()

	log.WithFields(log.Fields{"order_id": order.ID, "total": order.TotalAmount}).Info("Order placed")
	return order, nil
}
